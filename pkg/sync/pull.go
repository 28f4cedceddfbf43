package sync

import (
	"context"
	"fmt"
	"io"

	"github.com/sdejongh/syncbase/pkg/compare"
	"github.com/sdejongh/syncbase/pkg/logging"
	"github.com/sdejongh/syncbase/pkg/manifest"
	"github.com/sdejongh/syncbase/pkg/models"
	"github.com/sdejongh/syncbase/pkg/ratelimit"
	"github.com/sdejongh/syncbase/pkg/remote"
)

// Pull applies the selected remote changes to the working tree. Files are
// written atomically. Downloaded bytes that do not match the remote
// manifest are kept but reported as anomalies.
//
// The baseline takes the remote manifest's message and author. The
// returned error is non-nil only for setup failures.
func (e *Engine) Pull(ctx context.Context, s *Session, records []models.StatusRecord) (*models.TransferReport, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	report := newReport(models.KindPull, "", e.opts.DryRun)
	log := e.logger.WithFields(logging.Fields{"op": "pull", "operation_id": report.OperationID})

	baseline, err := e.loadBaseline(ctx, s)
	if err != nil {
		return nil, err
	}
	resolver := remote.NewResolver(s.Remote, s.RemoteRoot)
	current, _, err := e.remoteView(ctx, s, resolver)
	if err != nil {
		return nil, err
	}
	report.Message = current.Message

	ops, stale := plan(records, models.DirectionPull, e.opts.ResolveConflicts, report)
	for _, sk := range report.Skipped {
		log.Info(ctx, "skipping record", logging.Fields{"path": sk.Path, "reason": sk.Reason})
	}

	if e.opts.DryRun {
		for _, o := range ops {
			res := intended(o)
			res.Fingerprint = o.record.Fingerprints.Remote
			report.Record(res)
		}
		report.Finish(false)
		return report, nil
	}

	log.Info(ctx, "pull started", logging.Fields{"transfers": len(ops), "bandwidth": e.limiter.Rate()})
	results := e.transfer(ctx, ops, func(ctx context.Context, o op) task { return e.pullTask(s, resolver, o) })

	expected := make(map[string]string, len(ops))
	for _, o := range ops {
		expected[o.path()] = o.record.Fingerprints.Remote
	}

	next := baseline.Clone()
	for _, res := range results {
		report.Record(res)
		if !res.Succeeded() {
			continue
		}
		want := expected[res.Path]
		if res.Action == models.ActionDownload && !res.IsDir && want != "" && res.Fingerprint != want {
			report.Anomalies = append(report.Anomalies, models.Anomaly{
				Path:    res.Path,
				Kind:    models.AnomalyFingerprintMismatch,
				Message: fmt.Sprintf("downloaded content has fingerprint %s, remote manifest lists %s", res.Fingerprint, want),
			})
			log.Warn(ctx, "downloaded content does not match the remote manifest", logging.Fields{"path": res.Path})
		}
		apply(next, res)
	}
	for _, rec := range stale {
		refresh(next, rec)
	}
	next.Message = current.Message
	next.Author = current.Author
	if err := manifest.Store(ctx, s.Workspace, s.BaselineFile(), next); err != nil {
		report.Finish(ctx.Err() != nil)
		return report, fmt.Errorf("failed to update baseline: %w", err)
	}

	report.Finish(ctx.Err() != nil)
	log.Info(ctx, "pull finished", logging.Fields{
		"status":     string(report.Status),
		"downloaded": report.Stats.Downloaded,
		"deleted":    report.Stats.DeletedLocal,
		"failed":     report.Stats.Failed,
	})
	return report, nil
}

func (e *Engine) pullTask(s *Session, resolver *remote.Resolver, o op) task {
	t := task{op: o}
	relPath := o.path()

	switch o.action {
	case models.ActionCreateLocalFolder:
		t.run = func(ctx context.Context, _ func(io.Reader) io.Reader) models.TransferResult {
			return models.TransferResult{Err: s.Workspace.MkdirAll(ctx, relPath)}
		}

	case models.ActionDownload:
		t.run = func(ctx context.Context, track func(io.Reader) io.Reader) models.TransferResult {
			obj, err := resolver.Lookup(ctx, relPath)
			if err != nil {
				return models.TransferResult{Err: err}
			}
			if obj.IsFolder() {
				return models.TransferResult{IsDir: true, Err: s.Workspace.MkdirAll(ctx, relPath)}
			}

			rc, err := s.Remote.Get(ctx, obj.ID)
			if err != nil {
				return models.TransferResult{Err: err}
			}
			rc = ratelimit.NewReadCloser(ctx, rc, e.limiter)
			defer rc.Close()

			hr := compare.NewHashingReader(track(rc))
			if _, err := s.Workspace.Write(ctx, relPath, hr); err != nil {
				return models.TransferResult{Err: err}
			}
			return models.TransferResult{Bytes: hr.BytesRead(), Fingerprint: hr.Fingerprint()}
		}

	case models.ActionDeleteLocal:
		t.run = func(ctx context.Context, _ func(io.Reader) io.Reader) models.TransferResult {
			return models.TransferResult{Err: s.Workspace.Delete(ctx, relPath)}
		}

	default:
		t.run = func(context.Context, func(io.Reader) io.Reader) models.TransferResult {
			return models.TransferResult{Err: fmt.Errorf("unsupported pull action %s", o.action)}
		}
	}
	return t
}
