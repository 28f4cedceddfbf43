package compare

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/sdejongh/syncbase/pkg/models"
)

// Classification is the result of a three-way comparison
type Classification struct {
	// Records holds one entry per path, sorted by path
	Records []models.StatusRecord

	// Anomalies lists inconsistencies the operator has to look at
	Anomalies []models.Anomaly
}

// Changed returns the records whose status is not synced
func (c *Classification) Changed() []models.StatusRecord {
	var out []models.StatusRecord
	for _, r := range c.Records {
		if r.Status != models.CodeSynced {
			out = append(out, r)
		}
	}
	return out
}

// side is one manifest indexed for lookups
type side struct {
	files map[string]string
	dirs  map[string]bool
}

func index(label string, m *models.Manifest, anomalies *[]models.Anomaly) side {
	s := side{files: map[string]string{}, dirs: map[string]bool{}}
	if m == nil {
		return s
	}

	for _, f := range m.Files {
		if !validPath(f.Path) {
			*anomalies = append(*anomalies, models.Anomaly{
				Path: f.Path, Kind: models.AnomalyInvalidPath,
				Message: fmt.Sprintf("ignored %s file entry with invalid path", label),
			})
			continue
		}
		if _, dup := s.files[f.Path]; dup {
			*anomalies = append(*anomalies, models.Anomaly{
				Path: f.Path, Kind: models.AnomalyDuplicate,
				Message: fmt.Sprintf("%s manifest lists the file more than once; first entry used", label),
			})
			continue
		}
		s.files[f.Path] = f.Fingerprint
	}

	for _, d := range m.Folders {
		if !validPath(d) {
			*anomalies = append(*anomalies, models.Anomaly{
				Path: d, Kind: models.AnomalyInvalidPath,
				Message: fmt.Sprintf("ignored %s folder entry with invalid path", label),
			})
			continue
		}
		s.dirs[d] = true
	}
	return s
}

// validPath accepts clean, relative, forward-slash paths inside the root
func validPath(p string) bool {
	if p == "" || p == "." || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return false
	}
	if path.Clean(p) != p {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}

// Classify compares the local scan, the baseline and the remote manifest
// and assigns every path a status code. It is a pure function of its inputs.
func Classify(local, baseline, remote *models.Manifest) *Classification {
	result := &Classification{}
	l := index("local", local, &result.Anomalies)
	b := index("baseline", baseline, &result.Anomalies)
	r := index("remote", remote, &result.Anomalies)

	dirs := map[string]struct{}{}
	for _, s := range []side{l, b, r} {
		for d := range s.dirs {
			dirs[d] = struct{}{}
		}
	}

	files := map[string]struct{}{}
	for _, s := range []side{l, b, r} {
		for f := range s.files {
			files[f] = struct{}{}
		}
	}

	clashes := map[string]bool{}
	for p := range files {
		if _, ok := dirs[p]; ok {
			clashes[p] = true
			result.Anomalies = append(result.Anomalies, models.Anomaly{
				Path: p, Kind: models.AnomalyPathKind,
				Message: "path is a file on one side and a directory on another; " + describeKinds(p, l, b, r),
			})
		}
	}

	for p := range files {
		if clashes[p] {
			continue
		}
		lf, lok := l.files[p]
		bf, bok := b.files[p]
		rf, rok := r.files[p]
		result.Records = append(result.Records, models.StatusRecord{
			Name:         path.Base(p),
			RelativePath: p,
			Selected:     true,
			Status:       FileStatus(present(lf, lok), present(bf, bok), present(rf, rok)),
			Fingerprints: models.Fingerprints{Local: lf, Baseline: bf, Remote: rf},
		})
	}

	for p := range dirs {
		result.Records = append(result.Records, models.StatusRecord{
			Name:         path.Base(p),
			RelativePath: p,
			Selected:     false,
			Status:       DirStatus(l.dirs[p], b.dirs[p], r.dirs[p]),
			IsDir:        true,
		})
	}

	sort.Slice(result.Records, func(i, j int) bool {
		return result.Records[i].RelativePath < result.Records[j].RelativePath
	})
	sort.SliceStable(result.Anomalies, func(i, j int) bool {
		return result.Anomalies[i].Path < result.Anomalies[j].Path
	})
	return result
}

func present(fp string, ok bool) *string {
	if !ok {
		return nil
	}
	return &fp
}

func describeKinds(p string, sides ...side) string {
	labels := []string{"local", "baseline", "remote"}
	var parts []string
	for i, s := range sides {
		switch {
		case s.dirs[p]:
			parts = append(parts, labels[i]+"=dir")
		case hasKey(s.files, p):
			parts = append(parts, labels[i]+"=file")
		}
	}
	return strings.Join(parts, " ")
}

func hasKey(m map[string]string, k string) bool {
	_, ok := m[k]
	return ok
}

// FileStatus maps a fingerprint triple to a status code. A nil pointer
// means the file is absent on that side.
func FileStatus(l, b, r *string) models.StatusCode {
	switch {
	case l != nil && b != nil && r != nil:
		switch {
		case *l == *b && *b == *r:
			return models.CodeSynced
		case *b == *r:
			return models.CodeLocalEdited
		case *l == *b:
			return models.CodeRemoteChanged
		case *l == *r:
			return models.CodeBaselineStale
		default:
			return models.CodeConflict
		}
	case l == nil && b == nil && r != nil:
		return models.CodeRemoteOnly
	case l == nil && b != nil && r != nil:
		return models.CodeDeletedLocally
	case l != nil && b != nil && r == nil:
		return models.CodeDeletedRemotely
	case l != nil && b == nil && r == nil:
		return models.CodeLocalOnly
	case l != nil && b == nil && r != nil:
		// Created on both sides independently.
		if *l == *r {
			return models.CodeBaselineStale
		}
		return models.CodeConflict
	default:
		// Gone from both sides; only the baseline still mentions it.
		return models.CodeBaselineStale
	}
}

// DirStatus classifies a directory by presence alone
func DirStatus(l, b, r bool) models.StatusCode {
	switch {
	case l && r:
		if b {
			return models.CodeSynced
		}
		return models.CodeBaselineStale
	case !l && b:
		return models.CodeDeletedLocally
	case l && b:
		return models.CodeDeletedRemotely
	case l:
		return models.CodeLocalOnly
	case r:
		return models.CodeRemoteOnly
	default:
		return models.CodeBaselineStale
	}
}
