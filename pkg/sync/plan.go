package sync

import (
	"path"
	"sort"
	"strings"

	"github.com/sdejongh/syncbase/pkg/models"
)

// op is one transfer derived from a selected record
type op struct {
	record models.StatusRecord
	action models.Action
}

func (o op) path() string {
	return o.record.RelativePath
}

// plan picks the records a commit (DirectionPush) or pull (DirectionPull)
// executes. Selected records that cannot run in that direction are added
// to report.Skipped. Baseline-stale records are returned separately: they
// need no transfer, only a baseline refresh.
func plan(records []models.StatusRecord, dir models.Direction, resolveConflicts bool, report *models.TransferReport) ([]op, []models.StatusRecord) {
	var ops []op
	var stale []models.StatusRecord

	for _, rec := range records {
		if rec.Status == models.CodeBaselineStale {
			stale = append(stale, rec)
			continue
		}
		if !rec.Selected {
			continue
		}
		if !rec.Status.Valid() {
			report.Skip(rec, "unknown status code")
			continue
		}

		action := rec.Action()
		switch {
		case action == models.ActionNone:
			continue
		case action == models.ActionConflict:
			if !resolveConflicts {
				report.Skip(rec, "conflict: changed both locally and on the remote")
				continue
			}
			action = models.ActionUpload
			if dir == models.DirectionPull {
				action = models.ActionDownload
			}
		case action.Direction() != dir:
			if dir == models.DirectionPush {
				report.Skip(rec, "remote change, pull to apply it")
			} else {
				report.Skip(rec, "local change, commit to publish it")
			}
			continue
		}
		ops = append(ops, op{record: rec, action: action})
	}
	return ops, stale
}

// phases splits ops into folder creations, file transfers and folder
// deletions. Deletions are ordered deepest first.
func phases(ops []op) (creates, files, deletes []op) {
	for _, o := range ops {
		switch {
		case o.action == models.ActionCreateRemoteFolder || o.action == models.ActionCreateLocalFolder:
			creates = append(creates, o)
		case o.record.IsDir && (o.action == models.ActionDeleteRemote || o.action == models.ActionDeleteLocal):
			deletes = append(deletes, o)
		default:
			files = append(files, o)
		}
	}
	sort.SliceStable(deletes, func(i, j int) bool {
		di, dj := strings.Count(deletes[i].path(), "/"), strings.Count(deletes[j].path(), "/")
		if di != dj {
			return di > dj
		}
		return deletes[i].path() > deletes[j].path()
	})
	return creates, files, deletes
}

// apply updates m to reflect a successful transfer
func apply(m *models.Manifest, res models.TransferResult) {
	switch res.Action {
	case models.ActionUpload, models.ActionDownload:
		if res.IsDir {
			m.AddFolder(res.Path)
			return
		}
		m.SetFile(models.NewFileEntry(res.Path, res.Fingerprint))
		if parent := path.Dir(res.Path); parent != "." {
			m.AddFolder(parent)
		}
	case models.ActionCreateRemoteFolder, models.ActionCreateLocalFolder:
		m.AddFolder(res.Path)
	case models.ActionDeleteRemote, models.ActionDeleteLocal:
		if res.IsDir {
			m.RemoveTree(res.Path)
		} else {
			m.RemoveFile(res.Path)
		}
	}
}

// refresh brings the baseline in line with a record whose local and remote
// sides already agree
func refresh(m *models.Manifest, rec models.StatusRecord) {
	if rec.IsDir {
		m.AddFolder(rec.RelativePath)
		return
	}
	if rec.Fingerprints.Local == "" {
		m.RemoveFile(rec.RelativePath)
		return
	}
	m.SetFile(models.NewFileEntry(rec.RelativePath, rec.Fingerprints.Local))
}

// intended is the result an op is expected to produce, used to publish the
// remote manifest before any transfer runs
func intended(o op) models.TransferResult {
	return models.TransferResult{
		Path:        o.path(),
		Action:      o.action,
		IsDir:       o.record.IsDir,
		Fingerprint: o.record.Fingerprints.Local,
	}
}
