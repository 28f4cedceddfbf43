// Package scan walks a project tree and builds its manifest.
package scan

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/syncbase/pkg/compare"
	"github.com/sdejongh/syncbase/pkg/logging"
	"github.com/sdejongh/syncbase/pkg/models"
	"github.com/sdejongh/syncbase/pkg/storage"
)

// Error is a per-path failure. The path is left out of the manifest and
// the scan carries on.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Options configures a scan
type Options struct {
	// ProjectName and RemoteName identify the manifest files to skip
	ProjectName string
	RemoteName  string
	// Exclude holds gitignore-style patterns
	Exclude []string
	// Workers bounds concurrent hashing
	Workers int
}

// Stats summarizes a scan
type Stats struct {
	Files    int
	Dirs     int
	Bytes    int64
	Excluded int
	Skipped  int
	Duration time.Duration
}

// Result is the outcome of a scan
type Result struct {
	Manifest *models.Manifest
	Errors   []Error
	Stats    Stats
}

// Failed returns the set of paths that could not be scanned
func (r *Result) Failed() map[string]error {
	out := make(map[string]error, len(r.Errors))
	for _, e := range r.Errors {
		out[e.Path] = e.Err
	}
	return out
}

// Scanner builds manifests of a local tree
type Scanner struct {
	backend storage.Backend
	hasher  *compare.Hasher
	opts    Options
	logger  logging.Logger
}

// New creates a scanner over backend
func New(backend storage.Backend, hasher *compare.Hasher, logger logging.Logger, opts Options) *Scanner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Scanner{backend: backend, hasher: hasher, opts: opts, logger: logger}
}

type pending struct {
	path string
	size int64
}

// Scan walks the tree and fingerprints every regular file. Unreadable
// entries are reported in Result.Errors. Only cancellation or an unreadable
// root aborts the scan.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	start := time.Now()

	patterns := append([]string(nil), s.opts.Exclude...)
	fromFile, err := LoadIgnoreFile(ctx, s.backend)
	if err != nil {
		s.logger.Warn(ctx, "ignoring unreadable ignore file", logging.Fields{"file": IgnoreFile, "error": err.Error()})
	}
	patterns = append(patterns, fromFile...)
	excluder := NewExcluder(s.opts.ProjectName, s.opts.RemoteName, patterns)

	result := &Result{Manifest: models.NewManifest()}
	var files []pending

	err = s.backend.Walk(ctx, func(info storage.FileInfo, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, Error{Path: info.RelativePath, Err: err})
			return nil
		}
		if excluder.Excluded(info.RelativePath, info.IsDir) {
			result.Stats.Excluded++
			if info.IsDir {
				return filepath.SkipDir
			}
			return nil
		}

		switch {
		case info.IsDir:
			result.Manifest.Folders = append(result.Manifest.Folders, info.RelativePath)
		case info.Regular:
			files = append(files, pending{path: info.RelativePath, size: info.Size})
		default:
			result.Stats.Skipped++
			s.logger.Debug(ctx, "skipping special file", logging.Fields{"path": info.RelativePath})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	entries, hashErrs, err := s.hashAll(ctx, files)
	if err != nil {
		return nil, err
	}
	result.Errors = append(result.Errors, hashErrs...)

	for i, e := range entries {
		if e.Path == "" {
			continue
		}
		result.Manifest.Files = append(result.Manifest.Files, e)
		result.Stats.Bytes += files[i].size
	}
	result.Manifest.Normalize()

	result.Stats.Files = len(result.Manifest.Files)
	result.Stats.Dirs = len(result.Manifest.Folders)
	result.Stats.Duration = time.Since(start)

	for _, e := range result.Errors {
		s.logger.Warn(ctx, "skipped unreadable path", logging.Fields{"path": e.Path, "error": e.Err.Error()})
	}
	s.logger.Debug(ctx, "scan complete", logging.Fields{
		"files":    result.Stats.Files,
		"dirs":     result.Stats.Dirs,
		"errors":   len(result.Errors),
		"excluded": result.Stats.Excluded,
	})
	return result, nil
}

// hashAll fingerprints files with at most opts.Workers concurrent readers.
// Results keep the input order; failed slots are left zero.
func (s *Scanner) hashAll(ctx context.Context, files []pending) ([]models.FileEntry, []Error, error) {
	entries := make([]models.FileEntry, len(files))
	errs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, f := range files {
		g.Go(func() error {
			fp, _, err := s.hasher.HashFile(gctx, s.backend, f.path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				errs[i] = err
				return nil
			}
			entries[i] = models.NewFileEntry(f.path, fp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var scanErrs []Error
	for i, err := range errs {
		if err != nil {
			scanErrs = append(scanErrs, Error{Path: files[i].path, Err: err})
		}
	}
	return entries, scanErrs, nil
}
