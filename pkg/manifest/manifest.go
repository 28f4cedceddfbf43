// Package manifest loads and stores manifest files.
//
// A manifest is persisted as indented JSON. The baseline lives in the
// project directory as <project>.sync; the remote copy is <remote>.sync in
// the remote root. Writes go through a temp file and a rename so a crash
// never leaves a truncated manifest behind.
package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sdejongh/syncbase/pkg/models"
	"github.com/sdejongh/syncbase/pkg/storage"
)

const (
	// Extension is appended to the project or remote name
	Extension = ".sync"
	// ShadowExtension marks the legacy remote-manifest copy kept next to the baseline
	ShadowExtension = ".rmsync"
	// PendingExtension marks the list of remote paths a commit could not confirm
	PendingExtension = ".pending"
)

// ErrNotFound is returned by Load when the manifest file does not exist
var ErrNotFound = errors.New("manifest not found")

// FileName returns the manifest file name for a project or remote name
func FileName(name string) string {
	return name + Extension
}

// IsManifestName reports whether a base name is a manifest belonging to project
func IsManifestName(name, project string) bool {
	switch name {
	case project + Extension, project + ShadowExtension, project + PendingExtension:
		return true
	}
	return false
}

// Decode parses manifest JSON. A missing folders field yields an empty list.
func Decode(data []byte) (*models.Manifest, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("manifest is empty")
	}

	var m models.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Files == nil {
		m.Files = []models.FileEntry{}
	}
	if m.Folders == nil {
		m.Folders = []string{}
	}
	for i, f := range m.Files {
		if f.Path == "" {
			return nil, fmt.Errorf("manifest entry %d has no path", i)
		}
		if f.Name == "" {
			m.Files[i].Name = f.Path[strings.LastIndex(f.Path, "/")+1:]
		}
	}
	return &m, nil
}

// Encode normalizes m in place and renders it as indented JSON.
// Encoding the same manifest twice yields identical bytes.
func Encode(m *models.Manifest) ([]byte, error) {
	m.Normalize()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// Load reads and decodes a manifest file from backend
func Load(ctx context.Context, backend storage.Backend, name string) (*models.Manifest, error) {
	rc, err := backend.Read(ctx, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read manifest %s: %w", name, err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", name, err)
	}

	m, err := Decode(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return m, nil
}

// Store encodes m and atomically replaces the manifest file
func Store(ctx context.Context, backend storage.Backend, name string, m *models.Manifest) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	if _, err := backend.Write(ctx, name, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to store manifest %s: %w", name, err)
	}
	return nil
}
