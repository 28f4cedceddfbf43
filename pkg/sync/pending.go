package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sdejongh/syncbase/pkg/models"
	"github.com/sdejongh/syncbase/pkg/remote"
)

// claims records remote manifest entries that a commit published but
// could not make true: a transfer failed and so did the corrective
// republish. For every path it keeps what the remote manifest claims and
// what the remote actually holds, until a later commit publishes a
// manifest that matches the remote again.
type claims struct {
	Paths   []string         `json:"paths"`
	Claimed *models.Manifest `json:"claimed"`
	Actual  *models.Manifest `json:"actual"`

	// stored is set when the list was read from disk
	stored bool
}

func (e *Engine) loadClaims(ctx context.Context, s *Session) (*claims, error) {
	rc, err := s.Workspace.Read(ctx, s.PendingFile())
	if errors.Is(err, os.ErrNotExist) {
		return &claims{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.PendingFile(), err)
	}
	defer rc.Close()

	var c claims
	if err := json.NewDecoder(rc).Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.PendingFile(), err)
	}
	c.stored = true
	return &c, nil
}

func (e *Engine) storeClaims(ctx context.Context, s *Session, c *claims) error {
	if len(c.Paths) == 0 {
		if !c.stored {
			return nil
		}
		return s.Workspace.Delete(ctx, s.PendingFile())
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if _, err := s.Workspace.Write(ctx, s.PendingFile(), bytes.NewReader(append(data, '\n'))); err != nil {
		return fmt.Errorf("failed to store %s: %w", s.PendingFile(), err)
	}
	return nil
}

// overlay returns a copy of m in which every pending path shows what the
// remote actually holds. Paths whose entries in m no longer match the
// claim were republished since and are dropped from c.
func (c *claims) overlay(m *models.Manifest) *models.Manifest {
	out := m.Clone()
	var kept []string
	for _, p := range c.Paths {
		if !sameManifest(subtree(m, p), subtree(c.Claimed, p)) {
			continue
		}
		replaceSubtree(out, p, subtree(c.Actual, p))
		kept = append(kept, p)
	}
	c.Paths = kept
	return out
}

// add records paths as unconfirmed. claimed is the manifest now on the
// remote and actual the state the remote really reached.
func (c *claims) add(paths []string, claimed, actual *models.Manifest) {
	seen := map[string]bool{}
	var all []string
	for _, p := range append(append([]string(nil), c.Paths...), paths...) {
		if !seen[p] {
			seen[p] = true
			all = append(all, p)
		}
	}
	sort.Strings(all)
	c.Paths = all
	c.Claimed = claimed.Clone()
	c.Actual = actual.Clone()
}

// subtree returns the entries of m at or below p
func subtree(m *models.Manifest, p string) *models.Manifest {
	out := models.NewManifest()
	if m == nil {
		return out
	}
	prefix := p + "/"
	for _, f := range m.Files {
		if f.Path == p || strings.HasPrefix(f.Path, prefix) {
			out.Files = append(out.Files, f)
		}
	}
	for _, d := range m.Folders {
		if d == p || strings.HasPrefix(d, prefix) {
			out.Folders = append(out.Folders, d)
		}
	}
	out.Normalize()
	return out
}

func replaceSubtree(m *models.Manifest, p string, with *models.Manifest) {
	m.RemoveTree(p)
	m.Files = append(m.Files, with.Files...)
	m.Folders = append(m.Folders, with.Folders...)
	m.Normalize()
}

// remoteView fetches the remote manifest and corrects it with the paths a
// previous commit left unconfirmed
func (e *Engine) remoteView(ctx context.Context, s *Session, resolver *remote.Resolver) (*models.Manifest, *claims, error) {
	m, err := e.fetchRemoteManifest(ctx, s, resolver)
	if err != nil {
		return nil, nil, err
	}
	c, err := e.loadClaims(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	if len(c.Paths) == 0 {
		return m, c, nil
	}
	return c.overlay(m), c, nil
}
