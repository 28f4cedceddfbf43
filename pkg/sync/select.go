package sync

import (
	"strings"

	"github.com/sdejongh/syncbase/pkg/models"
)

// Selection narrows the records a commit or pull acts on
type Selection struct {
	// Paths limits the selection to records at or below these
	// project-relative paths. Empty selects everything.
	Paths []string
	// FilesOnly leaves directory records unselected
	FilesOnly bool
}

func (sel Selection) matches(rel string) bool {
	if len(sel.Paths) == 0 {
		return true
	}
	for _, p := range sel.Paths {
		if p == "" || rel == p || strings.HasPrefix(rel, p+"/") {
			return true
		}
	}
	return false
}

// Select returns a copy of the records with Selected set according to sel.
// Directories are selected unless FilesOnly is set. Paths that could not
// be read, and everything below them, always stay unselected.
func (s *Status) Select(sel Selection) []models.StatusRecord {
	unreadable := map[string]bool{}
	for _, a := range s.Anomalies {
		if a.Kind == models.AnomalyUnreadable {
			unreadable[a.Path] = true
		}
	}
	for _, e := range s.ScanErrors {
		unreadable[e.Path] = true
	}

	out := make([]models.StatusRecord, len(s.Records))
	for i, rec := range s.Records {
		switch {
		case !sel.matches(rec.RelativePath):
			rec.Selected = false
		case hasAncestor(rec.RelativePath, unreadable):
			rec.Selected = false
		case rec.IsDir:
			rec.Selected = !sel.FilesOnly
		default:
			rec.Selected = true
		}
		out[i] = rec
	}
	return out
}

// within returns the key of set that is rel itself or its nearest ancestor
func within[V any](rel string, set map[string]V) (string, bool) {
	for p := rel; ; {
		if _, ok := set[p]; ok {
			return p, true
		}
		i := strings.LastIndex(p, "/")
		if i < 0 {
			return "", false
		}
		p = p[:i]
	}
}

func hasAncestor(rel string, set map[string]bool) bool {
	_, ok := within(rel, set)
	return ok
}
