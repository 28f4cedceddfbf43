// Package remote defines the object-store contract the engine pushes to and
// pulls from, plus path resolution over it.
//
// Stores address objects by opaque IDs inside a parent/child hierarchy.
// Names are not unique by construction, so callers resolve paths one
// segment at a time with List.
package remote

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// FolderMimeType marks folder objects
const FolderMimeType = "application/vnd.google-apps.folder"

var (
	// ErrNotFound is returned when an object or path does not exist
	ErrNotFound = errors.New("remote object not found")
	// ErrIsFolder is returned when file content is requested from a folder
	ErrIsFolder = errors.New("remote object is a folder")
)

// Object is one entry in the remote store
type Object struct {
	ID       string
	Name     string
	MimeType string
	Parents  []string
	Size     int64
}

// IsFolder reports whether the object is a folder
func (o Object) IsFolder() bool {
	return o.MimeType == FolderMimeType
}

// Query narrows List results
type Query struct {
	// Name, when set, matches the exact object name
	Name string
	// FoldersOnly restricts results to folders
	FoldersOnly bool
}

// Store is the contract every remote backend implements
type Store interface {
	// List returns the non-trashed children of parentID matching q
	List(ctx context.Context, parentID string, q Query) ([]Object, error)

	// Get opens the content of a file object
	Get(ctx context.Context, id string) (io.ReadCloser, error)

	// Put creates a file named name under parentID, or overwrites the
	// content of the existing same-named file
	Put(ctx context.Context, parentID, name string, r io.Reader, size int64) (Object, error)

	// Delete removes an object; folders are removed with their contents.
	// Deleting a missing object is not an error.
	Delete(ctx context.Context, id string) error

	// CreateFolder creates a folder under parentID
	CreateFolder(ctx context.Context, parentID, name string) (Object, error)
}

// APIError is a failed call to a remote HTTP API
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: remote returned %d: %s", e.Op, e.StatusCode, e.Message)
}

// sniffLen is how much of a file mimetype inspects
const sniffLen = 3072

// sniff detects the content type from the head of r. The returned reader
// still yields r from its first byte.
func sniff(r io.Reader) (string, io.Reader, error) {
	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", nil, err
	}
	return mimetype.Detect(head).String(), br, nil
}

// countingReader records how many bytes passed through it
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
