package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/sdejongh/syncbase/pkg/storage"
)

// FolderStore serves a directory tree as a remote. Object IDs are slash
// relative paths and the root folder is "". It backs shared network mounts
// and tests.
type FolderStore struct {
	backend storage.Backend
}

// NewFolderStore creates a store over backend
func NewFolderStore(backend storage.Backend) *FolderStore {
	return &FolderStore{backend: backend}
}

// RootID returns the ID of the store's top folder
func (s *FolderStore) RootID() string {
	return ""
}

func joinID(parentID, name string) string {
	if parentID == "" {
		return name
	}
	return parentID + "/" + name
}

func notFound(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

func (s *FolderStore) object(parentID string, fi storage.FileInfo) Object {
	obj := Object{
		ID:      fi.RelativePath,
		Name:    path.Base(fi.RelativePath),
		Parents: []string{parentID},
		Size:    fi.Size,
	}
	if fi.IsDir {
		obj.MimeType = FolderMimeType
		obj.Size = 0
	}
	return obj
}

// List returns the children of parentID matching q
func (s *FolderStore) List(ctx context.Context, parentID string, q Query) ([]Object, error) {
	entries, err := s.backend.ReadDir(ctx, parentID)
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("list %q: %w", parentID, ErrNotFound)
		}
		return nil, err
	}

	var out []Object
	for _, fi := range entries {
		name := path.Base(fi.RelativePath)
		if storage.IsTempName(name) {
			continue
		}
		if q.Name != "" && name != q.Name {
			continue
		}
		if q.FoldersOnly && !fi.IsDir {
			continue
		}
		out = append(out, s.object(parentID, fi))
	}
	return out, nil
}

// Get opens a file
func (s *FolderStore) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	info, err := s.backend.Stat(ctx, id)
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	if info.IsDir {
		return nil, fmt.Errorf("get %s: %w", id, ErrIsFolder)
	}
	return s.backend.Read(ctx, id)
}

// Put writes the file atomically, replacing any previous content
func (s *FolderStore) Put(ctx context.Context, parentID, name string, r io.Reader, size int64) (Object, error) {
	id := joinID(parentID, name)
	written, err := s.backend.Write(ctx, id, r)
	if err != nil {
		return Object{}, fmt.Errorf("put %s: %w", id, err)
	}
	return Object{ID: id, Name: name, Parents: []string{parentID}, Size: written}, nil
}

// Delete removes a file or folder tree
func (s *FolderStore) Delete(ctx context.Context, id string) error {
	if strings.Trim(id, "/") == "" {
		return errors.New("refusing to delete the remote root")
	}
	return s.backend.Delete(ctx, id)
}

// CreateFolder creates parentID/name
func (s *FolderStore) CreateFolder(ctx context.Context, parentID, name string) (Object, error) {
	id := joinID(parentID, name)
	if err := s.backend.MkdirAll(ctx, id); err != nil {
		return Object{}, fmt.Errorf("create folder %s: %w", id, err)
	}
	return Object{ID: id, Name: name, MimeType: FolderMimeType, Parents: []string{parentID}}, nil
}
