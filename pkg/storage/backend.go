package storage

import (
	"context"
	"io"
	"strings"
	"time"
)

// TempPrefix marks in-flight files written by Write. Scans skip them.
const TempPrefix = ".syncbase-tmp-"

// FileInfo represents metadata about a file or directory
type FileInfo struct {
	// RelativePath is relative to the backend root, forward-slash separated
	RelativePath string
	Size         int64
	ModTime      time.Time
	IsDir        bool
	// Regular is false for symlinks, devices and other special files
	Regular bool
}

// WalkFunc is called for every entry below the root in lexical order.
// A non-nil err reports an entry that could not be inspected; returning
// nil continues the walk.
type WalkFunc func(info FileInfo, err error) error

// Backend defines the storage operations the engine needs on a tree
type Backend interface {
	// Walk visits every entry below the root, excluding the root itself
	Walk(ctx context.Context, fn WalkFunc) error

	// ReadDir lists the direct children of a directory, sorted by name
	ReadDir(ctx context.Context, path string) ([]FileInfo, error)

	// Read opens a file for reading
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write replaces the file at path atomically and returns the byte count.
	// Parent directories are created as needed.
	Write(ctx context.Context, path string, reader io.Reader) (int64, error)

	// Delete removes a file or a directory tree. Missing paths are not an error.
	Delete(ctx context.Context, path string) error

	// Exists checks if a file or directory exists
	Exists(ctx context.Context, path string) (bool, error)

	// Stat returns file metadata
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// MkdirAll creates a directory and all necessary parents
	MkdirAll(ctx context.Context, path string) error

	// Close releases any resources held by the backend
	Close() error
}

// IsTempName reports whether a base name belongs to an in-flight write
func IsTempName(name string) bool {
	return strings.HasPrefix(name, TempPrefix)
}
