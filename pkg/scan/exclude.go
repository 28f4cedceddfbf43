package scan

import (
	"bufio"
	"context"
	"errors"
	"os"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/sdejongh/syncbase/pkg/manifest"
	"github.com/sdejongh/syncbase/pkg/storage"
)

// IgnoreFile holds per-project exclude patterns, one gitignore pattern per line
const IgnoreFile = ".syncignore"

// Excluder decides which paths never enter a manifest. It combines fixed
// bookkeeping names with gitignore-style patterns from config and from
// the project's ignore file.
type Excluder struct {
	project  string
	reserved map[string]bool
	matcher  gitignore.Matcher
}

// NewExcluder builds an excluder. project and remote are the manifest base names.
func NewExcluder(project, remote string, patterns []string) *Excluder {
	reserved := map[string]bool{
		".DS_Store": true,
		IgnoreFile:  true,
	}
	if remote != "" {
		reserved[manifest.FileName(remote)] = true
	}

	var ps []gitignore.Pattern
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(p, nil))
	}
	return &Excluder{project: project, reserved: reserved, matcher: gitignore.NewMatcher(ps)}
}

// LoadIgnoreFile reads IgnoreFile from the project root. A missing file
// yields no patterns.
func LoadIgnoreFile(ctx context.Context, backend storage.Backend) ([]string, error) {
	rc, err := backend.Read(ctx, IgnoreFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer rc.Close()

	var patterns []string
	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, scanner.Err()
}

// Excluded reports whether relPath should be skipped
func (e *Excluder) Excluded(relPath string, isDir bool) bool {
	parts := strings.Split(relPath, "/")
	name := parts[len(parts)-1]
	if storage.IsTempName(name) {
		return true
	}
	if !isDir && (e.reserved[name] || manifest.IsManifestName(name, e.project)) {
		return true
	}
	return e.matcher.Match(parts, isDir)
}
