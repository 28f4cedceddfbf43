package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// Local is a Backend over a billy filesystem rooted at the project directory.
// Production code uses the OS filesystem; tests swap in memfs.
type Local struct {
	rootPath string
	fs       billy.Filesystem
}

// NewLocal creates a backend rooted at an existing directory on disk
func NewLocal(rootPath string) (*Local, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absPath)
	}

	return &Local{rootPath: absPath, fs: osfs.New(absPath)}, nil
}

// NewLocalFS wraps an already-rooted filesystem. label is only used for display.
func NewLocalFS(fs billy.Filesystem, label string) *Local {
	return &Local{rootPath: label, fs: fs}
}

// Root returns the root the backend was created with
func (l *Local) Root() string {
	return l.rootPath
}

// FS exposes the underlying filesystem
func (l *Local) FS() billy.Filesystem {
	return l.fs
}

// clean turns a relative slash path into a billy path. Paths that would
// leave the root are rejected.
func clean(rel string) (string, error) {
	slashed := filepath.ToSlash(rel)
	for _, seg := range strings.Split(slashed, "/") {
		if seg == ".." {
			return "", fmt.Errorf("path escapes root: %s", rel)
		}
	}
	return path.Clean("/" + slashed), nil
}

func toInfo(rel string, fi os.FileInfo) FileInfo {
	return FileInfo{
		RelativePath: rel,
		Size:         fi.Size(),
		ModTime:      fi.ModTime(),
		IsDir:        fi.IsDir(),
		Regular:      fi.Mode().IsRegular(),
	}
}

func relative(p string) string {
	return strings.TrimPrefix(filepath.ToSlash(p), "/")
}

// Walk visits every entry below the root in lexical order
func (l *Local) Walk(ctx context.Context, fn WalkFunc) error {
	err := util.Walk(l.fs, "/", func(p string, fi os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel := relative(p)
		if rel == "" {
			// The root itself; an error here means the tree is unreadable.
			return err
		}
		if err != nil {
			return fn(FileInfo{RelativePath: rel}, err)
		}
		return fn(toInfo(rel, fi), nil)
	})
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", l.rootPath, err)
	}
	return nil
}

// ReadDir lists the direct children of a directory
func (l *Local) ReadDir(ctx context.Context, dir string) ([]FileInfo, error) {
	p, err := clean(dir)
	if err != nil {
		return nil, err
	}
	entries, err := l.fs.ReadDir(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	out := make([]FileInfo, 0, len(entries))
	for _, fi := range entries {
		out = append(out, toInfo(relative(path.Join(p, fi.Name())), fi))
	}
	return out, nil
}

// Read opens a file for reading
func (l *Local) Read(ctx context.Context, rel string) (io.ReadCloser, error) {
	p, err := clean(rel)
	if err != nil {
		return nil, err
	}
	file, err := l.fs.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Write streams reader into a temp file next to the target, then renames it
// over the target. Readers never observe a partially written file.
func (l *Local) Write(ctx context.Context, rel string, reader io.Reader) (int64, error) {
	p, err := clean(rel)
	if err != nil {
		return 0, err
	}
	dir := path.Dir(p)
	if err := l.fs.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := util.TempFile(l.fs, dir, TempPrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: reader})
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		l.fs.Remove(tmpName)
		return written, fmt.Errorf("failed to write file: %w", err)
	}

	if err := l.fs.Rename(tmpName, p); err != nil {
		l.fs.Remove(tmpName)
		return written, fmt.Errorf("failed to replace file: %w", err)
	}
	return written, nil
}

// Delete removes a file or directory tree
func (l *Local) Delete(ctx context.Context, rel string) error {
	p, err := clean(rel)
	if err != nil {
		return err
	}
	if p == "/" {
		return errors.New("refusing to delete the project root")
	}
	if err := util.RemoveAll(l.fs, p); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	return nil
}

// Exists checks if a file or directory exists
func (l *Local) Exists(ctx context.Context, rel string) (bool, error) {
	p, err := clean(rel)
	if err != nil {
		return false, err
	}
	_, err = l.fs.Stat(p)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check existence: %w", err)
}

// Stat returns file metadata
func (l *Local) Stat(ctx context.Context, rel string) (*FileInfo, error) {
	p, err := clean(rel)
	if err != nil {
		return nil, err
	}
	fi, err := l.fs.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	info := toInfo(relative(p), fi)
	return &info, nil
}

// MkdirAll creates a directory and all necessary parents
func (l *Local) MkdirAll(ctx context.Context, rel string) error {
	p, err := clean(rel)
	if err != nil {
		return err
	}
	if err := l.fs.MkdirAll(p, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// Close releases resources (no-op for billy filesystems)
func (l *Local) Close() error {
	return nil
}

// ctxReader stops a copy once the context is cancelled
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
