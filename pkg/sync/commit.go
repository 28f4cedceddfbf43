package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/sdejongh/syncbase/pkg/compare"
	"github.com/sdejongh/syncbase/pkg/logging"
	"github.com/sdejongh/syncbase/pkg/manifest"
	"github.com/sdejongh/syncbase/pkg/models"
	"github.com/sdejongh/syncbase/pkg/ratelimit"
	"github.com/sdejongh/syncbase/pkg/remote"
)

func newReport(kind models.TransferKind, message string, dryRun bool) *models.TransferReport {
	return &models.TransferReport{
		OperationID: uuid.New().String(),
		Kind:        kind,
		Message:     message,
		DryRun:      dryRun,
		StartTime:   time.Now(),
	}
}

// Commit pushes the selected local changes to the remote.
//
// The remote manifest describing the intended end state is published
// first. Folder creations, file transfers and folder deletions follow in
// that order. If some transfers fail the remote manifest is published again
// to match what actually happened. Should that fail as well, the failed
// paths are recorded in the pending file and later scans see the remote as
// it really is until a commit publishes again. The baseline is rewritten
// last and only reflects successful transfers, so failed items stay
// unsynchronized.
//
// The returned error is non-nil only for setup failures; per-item failures
// are listed in the report.
func (e *Engine) Commit(ctx context.Context, s *Session, records []models.StatusRecord, message string) (*models.TransferReport, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return e.commit(ctx, s, records, message, models.KindCommit)
}

func (e *Engine) commit(ctx context.Context, s *Session, records []models.StatusRecord, message string, kind models.TransferKind) (*models.TransferReport, error) {
	report := newReport(kind, message, e.opts.DryRun)
	log := e.logger.WithFields(logging.Fields{"op": string(kind), "operation_id": report.OperationID})

	baseline, err := e.loadBaseline(ctx, s)
	if err != nil {
		return nil, err
	}
	resolver := remote.NewResolver(s.Remote, s.RemoteRoot)
	current, unconfirmed, err := e.remoteView(ctx, s, resolver)
	if err != nil {
		return nil, err
	}

	ops, stale := plan(records, models.DirectionPush, e.opts.ResolveConflicts, report)
	for _, sk := range report.Skipped {
		log.Info(ctx, "skipping record", logging.Fields{"path": sk.Path, "reason": sk.Reason})
	}

	planned := current.Clone()
	for _, o := range ops {
		apply(planned, intended(o))
	}
	planned.Message = message
	planned.Author = s.Author

	if e.opts.DryRun {
		for _, o := range ops {
			report.Record(intended(o))
		}
		report.Finish(false)
		return report, nil
	}

	log.Info(ctx, "commit started", logging.Fields{"transfers": len(ops), "message": message, "bandwidth": e.limiter.Rate()})
	if err := e.publishManifest(ctx, s, planned.Clone()); err != nil {
		report.Record(models.TransferResult{Path: s.RemoteFile(), Action: models.ActionPublishManifest, Err: err})
		report.Finish(ctx.Err() != nil)
		return report, err
	}

	results := e.transfer(ctx, ops, func(ctx context.Context, o op) task { return e.pushTask(ctx, s, resolver, o) })
	for _, res := range results {
		report.Record(res)
	}

	actual := current.Clone()
	for _, res := range results {
		if res.Succeeded() {
			apply(actual, res)
		}
	}
	actual.Message = message
	actual.Author = s.Author
	confirmed := true
	if !sameManifest(actual, planned) {
		log.Warn(ctx, "remote differs from the published manifest, republishing", nil)
		if err := e.publishManifest(ctx, s, actual.Clone()); err != nil {
			report.Record(models.TransferResult{Path: s.RemoteFile(), Action: models.ActionPublishManifest, Err: err})
			confirmed = false
		}
	}
	if confirmed {
		unconfirmed.Paths = nil
	} else {
		// The remote manifest still claims the failed transfers. Keep them
		// unconfirmed so they are retried, never refreshed.
		var failed []string
		for _, res := range results {
			if !res.Succeeded() {
				failed = append(failed, res.Path)
			}
		}
		unconfirmed.add(failed, planned, actual)
		log.Warn(ctx, "remote manifest lists failed transfers", logging.Fields{"paths": len(unconfirmed.Paths)})
	}
	claimsErr := e.storeClaims(ctx, s, unconfirmed)

	next := baseline.Clone()
	for _, res := range results {
		if res.Succeeded() {
			apply(next, res)
		}
	}
	for _, rec := range stale {
		refresh(next, rec)
	}
	next.Message = message
	next.Author = s.Author
	if err := manifest.Store(ctx, s.Workspace, s.BaselineFile(), next); err != nil {
		report.Finish(ctx.Err() != nil)
		return report, fmt.Errorf("failed to update baseline: %w", err)
	}

	report.Finish(ctx.Err() != nil)
	if claimsErr != nil {
		return report, claimsErr
	}
	log.Info(ctx, "commit finished", logging.Fields{
		"status":   string(report.Status),
		"uploaded": report.Stats.Uploaded,
		"deleted":  report.Stats.DeletedRemote,
		"failed":   report.Stats.Failed,
	})
	return report, nil
}

// transfer runs the three phases of ops through the executor
func (e *Engine) transfer(ctx context.Context, ops []op, build func(context.Context, op) task) []models.TransferResult {
	creates, files, deletes := phases(ops)

	var totalBytes int64
	batches := make([][]task, 0, 3)
	for _, phase := range [][]op{creates, files, deletes} {
		tasks := make([]task, len(phase))
		for i, o := range phase {
			tasks[i] = build(ctx, o)
			totalBytes += tasks[i].size
		}
		batches = append(batches, tasks)
	}
	if e.formatter != nil {
		e.formatter.Start(nil, len(ops), totalBytes, e.opts.MaxTransfers)
	}

	x := newExecutor(e.opts.MaxTransfers, len(ops), e.formatter, e.logger)
	results := x.run(ctx, batches[0])
	results = append(results, x.run(ctx, batches[1])...)

	// Deletions run one at a time so a parent never disappears under a child.
	sequential := newExecutor(1, len(ops), e.formatter, e.logger)
	sequential.started.Store(x.started.Load())
	return append(results, sequential.run(ctx, batches[2])...)
}

func (e *Engine) pushTask(ctx context.Context, s *Session, resolver *remote.Resolver, o op) task {
	t := task{op: o}
	relPath := o.path()
	dir, name := path.Dir(relPath), path.Base(relPath)
	if dir == "." {
		dir = ""
	}

	switch o.action {
	case models.ActionCreateRemoteFolder:
		t.run = func(ctx context.Context, _ func(io.Reader) io.Reader) models.TransferResult {
			_, err := resolver.EnsureFolder(ctx, relPath)
			return models.TransferResult{Err: err}
		}

	case models.ActionUpload:
		if info, err := s.Workspace.Stat(ctx, relPath); err == nil {
			t.size = info.Size
		}
		t.run = func(ctx context.Context, track func(io.Reader) io.Reader) models.TransferResult {
			parentID, err := resolver.EnsureFolder(ctx, dir)
			if err != nil {
				return models.TransferResult{Err: err}
			}
			rc, err := s.Workspace.Read(ctx, relPath)
			if err != nil {
				return models.TransferResult{Err: err}
			}
			rc = ratelimit.NewReadCloser(ctx, rc, e.limiter)
			defer rc.Close()

			hr := compare.NewHashingReader(rc)
			if _, err := s.Remote.Put(ctx, parentID, name, track(hr), -1); err != nil {
				return models.TransferResult{Err: err}
			}
			return models.TransferResult{Bytes: hr.BytesRead(), Fingerprint: hr.Fingerprint()}
		}

	case models.ActionDeleteRemote:
		t.run = func(ctx context.Context, _ func(io.Reader) io.Reader) models.TransferResult {
			var id string
			var err error
			if o.record.IsDir {
				id, err = resolver.Folder(ctx, relPath)
			} else {
				var obj remote.Object
				obj, err = resolver.Lookup(ctx, relPath)
				id = obj.ID
			}
			if errors.Is(err, remote.ErrNotFound) {
				// Already gone.
				return models.TransferResult{}
			}
			if err != nil {
				return models.TransferResult{Err: err}
			}
			if err := s.Remote.Delete(ctx, id); err != nil {
				return models.TransferResult{Err: err}
			}
			if o.record.IsDir {
				resolver.Forget(relPath)
			}
			return models.TransferResult{}
		}

	default:
		t.run = func(context.Context, func(io.Reader) io.Reader) models.TransferResult {
			return models.TransferResult{Err: fmt.Errorf("unsupported commit action %s", o.action)}
		}
	}
	return t
}

// sameManifest compares the encoded forms of two manifests
func sameManifest(a, b *models.Manifest) bool {
	ea, errA := manifest.Encode(a.Clone())
	eb, errB := manifest.Encode(b.Clone())
	return errA == nil && errB == nil && string(ea) == string(eb)
}
