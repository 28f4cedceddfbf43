package models

import (
	"path"
	"sort"
	"strings"
)

// FileEntry is one file recorded in a manifest
type FileEntry struct {
	// Name is the final path component
	Name string `json:"name"`

	// Path is relative to the project root, forward-slash separated
	Path string `json:"path"`

	// Fingerprint is the lowercase hex SHA-256 of the file content
	Fingerprint string `json:"sha256"`
}

// NewFileEntry builds an entry, deriving Name from the path
func NewFileEntry(relPath, fingerprint string) FileEntry {
	return FileEntry{Name: path.Base(relPath), Path: relPath, Fingerprint: fingerprint}
}

// Manifest is a snapshot of a tree: one entry per file plus the list of
// directories. The same structure is used for the local scan, the baseline
// and the remote manifest.
type Manifest struct {
	Files   []FileEntry `json:"files"`
	Folders []string    `json:"folders"`
	Message string      `json:"msg"`
	Author  string      `json:"author"`
}

// NewManifest returns an empty manifest with non-nil slices
func NewManifest() *Manifest {
	return &Manifest{Files: []FileEntry{}, Folders: []string{}}
}

// Clone returns a deep copy
func (m *Manifest) Clone() *Manifest {
	if m == nil {
		return NewManifest()
	}
	out := &Manifest{
		Files:   make([]FileEntry, len(m.Files)),
		Folders: make([]string, len(m.Folders)),
		Message: m.Message,
		Author:  m.Author,
	}
	copy(out.Files, m.Files)
	copy(out.Folders, m.Folders)
	return out
}

// Index maps path to entry. With duplicate paths the last entry wins;
// callers that care detect duplicates separately.
func (m *Manifest) Index() map[string]FileEntry {
	idx := make(map[string]FileEntry, len(m.Files))
	for _, f := range m.Files {
		idx[f.Path] = f
	}
	return idx
}

// Lookup finds the entry for relPath
func (m *Manifest) Lookup(relPath string) (FileEntry, bool) {
	for _, f := range m.Files {
		if f.Path == relPath {
			return f, true
		}
	}
	return FileEntry{}, false
}

// HasFolder reports whether relPath is a recorded folder
func (m *Manifest) HasFolder(relPath string) bool {
	for _, f := range m.Folders {
		if f == relPath {
			return true
		}
	}
	return false
}

// SetFile inserts or replaces the entry with the same path
func (m *Manifest) SetFile(entry FileEntry) {
	for i := range m.Files {
		if m.Files[i].Path == entry.Path {
			m.Files[i] = entry
			return
		}
	}
	m.Files = append(m.Files, entry)
}

// RemoveFile drops the entry for relPath, if any
func (m *Manifest) RemoveFile(relPath string) {
	kept := m.Files[:0]
	for _, f := range m.Files {
		if f.Path != relPath {
			kept = append(kept, f)
		}
	}
	m.Files = kept
}

// AddFolder records relPath and every ancestor of it
func (m *Manifest) AddFolder(relPath string) {
	for _, dir := range Ancestors(relPath, true) {
		if !m.HasFolder(dir) {
			m.Folders = append(m.Folders, dir)
		}
	}
}

// RemoveTree drops relPath and everything below it, files and folders
func (m *Manifest) RemoveTree(relPath string) {
	prefix := relPath + "/"
	files := m.Files[:0]
	for _, f := range m.Files {
		if f.Path != relPath && !strings.HasPrefix(f.Path, prefix) {
			files = append(files, f)
		}
	}
	m.Files = files

	folders := m.Folders[:0]
	for _, d := range m.Folders {
		if d != relPath && !strings.HasPrefix(d, prefix) {
			folders = append(folders, d)
		}
	}
	m.Folders = folders
}

// Normalize sorts files and folders by path and removes duplicate folders.
// Encoding a normalized manifest is deterministic.
func (m *Manifest) Normalize() {
	if m.Files == nil {
		m.Files = []FileEntry{}
	}
	if m.Folders == nil {
		m.Folders = []string{}
	}
	sort.SliceStable(m.Files, func(i, j int) bool {
		return m.Files[i].Path < m.Files[j].Path
	})

	sort.Strings(m.Folders)
	folders := m.Folders[:0]
	for _, d := range m.Folders {
		if len(folders) > 0 && d == folders[len(folders)-1] {
			continue
		}
		folders = append(folders, d)
	}
	m.Folders = folders
}

// Ancestors lists the parent directories of relPath from the top down.
// With self set, relPath itself is included last.
func Ancestors(relPath string, self bool) []string {
	var out []string
	parts := strings.Split(relPath, "/")
	if !self {
		parts = parts[:len(parts)-1]
	}
	for i := range parts {
		if parts[i] == "" {
			continue
		}
		out = append(out, strings.Join(parts[:i+1], "/"))
	}
	return out
}
