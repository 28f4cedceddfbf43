// Package sync reconciles a project directory with its remote copy.
//
// Every operation compares three manifests: the fresh local scan, the
// baseline recorded after the last successful sync and the manifest
// published on the remote. Commit pushes selected local changes, Pull
// fetches selected remote changes, and both rewrite the baseline once,
// after all transfers are known.
package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sdejongh/syncbase/pkg/compare"
	"github.com/sdejongh/syncbase/pkg/logging"
	"github.com/sdejongh/syncbase/pkg/manifest"
	"github.com/sdejongh/syncbase/pkg/models"
	"github.com/sdejongh/syncbase/pkg/output"
	"github.com/sdejongh/syncbase/pkg/ratelimit"
	"github.com/sdejongh/syncbase/pkg/remote"
	"github.com/sdejongh/syncbase/pkg/scan"
)

// Engine orchestrates status, commit and pull
type Engine struct {
	opts      models.TransferOptions
	hasher    *compare.Hasher
	limiter   *ratelimit.Limiter
	formatter output.Formatter
	logger    logging.Logger
}

// NewEngine creates a new engine. formatter and logger may be nil.
func NewEngine(opts models.TransferOptions, formatter output.Formatter, logger logging.Logger) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Engine{
		opts:      opts,
		hasher:    compare.NewHasher(opts.BufferSize),
		limiter:   ratelimit.NewLimiter(opts.BandwidthLimit),
		formatter: formatter,
		logger:    logger,
	}, nil
}

// Status is the outcome of a reconciliation scan
type Status struct {
	Records    []models.StatusRecord
	Anomalies  []models.Anomaly
	ScanErrors []scan.Error
	ScanStats  scan.Stats

	Local    *models.Manifest
	Baseline *models.Manifest
	Remote   *models.Manifest
}

// Changed returns the records that are not in sync
func (s *Status) Changed() []models.StatusRecord {
	var out []models.StatusRecord
	for _, r := range s.Records {
		if r.Status != models.CodeSynced {
			out = append(out, r)
		}
	}
	return out
}

// Initialize writes an empty baseline for a new project
func (e *Engine) Initialize(ctx context.Context, s *Session) (*models.Manifest, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	exists, err := s.Workspace.Exists(ctx, s.BaselineFile())
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%s: %w", s.BaselineFile(), ErrAlreadyInitialized)
	}

	baseline := models.NewManifest()
	baseline.Author = s.Author
	if err := manifest.Store(ctx, s.Workspace, s.BaselineFile(), baseline); err != nil {
		return nil, err
	}
	e.logger.Info(ctx, "project initialized", logging.Fields{"project": s.ProjectName})
	return baseline, nil
}

// InitializeAndCommit initializes the project and commits every local file
// and folder to the remote. Files already on the remote with identical
// content are only recorded in the baseline.
func (e *Engine) InitializeAndCommit(ctx context.Context, s *Session, message string) (*models.TransferReport, error) {
	if e.opts.DryRun {
		return nil, errors.New("initialization cannot be a dry run")
	}
	if _, err := e.Initialize(ctx, s); err != nil {
		return nil, err
	}
	status, err := e.ScanStatus(ctx, s)
	if err != nil {
		return nil, err
	}
	report, err := e.commit(ctx, s, status.Select(Selection{}), message, models.KindInitialize)
	if report != nil {
		report.Anomalies = append(report.Anomalies, status.Anomalies...)
	}
	return report, err
}

// ScanStatus hashes the working tree, loads the baseline, fetches the
// remote manifest and classifies every path. Paths that could not be read
// are reported and left unselected.
func (e *Engine) ScanStatus(ctx context.Context, s *Session) (*Status, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	baseline, err := e.loadBaseline(ctx, s)
	if err != nil {
		return nil, err
	}

	scanner := scan.New(s.Workspace, e.hasher, e.logger, scan.Options{
		ProjectName: s.ProjectName,
		RemoteName:  s.RemoteName,
		Exclude:     e.opts.ExcludePatterns,
		Workers:     e.opts.HashWorkers,
	})
	scanned, err := scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", s.ProjectName, err)
	}

	remoteManifest, unconfirmed, err := e.remoteView(ctx, s, remote.NewResolver(s.Remote, s.RemoteRoot))
	if err != nil {
		return nil, err
	}
	for _, p := range unconfirmed.Paths {
		e.logger.Warn(ctx, "remote manifest entry not confirmed by a transfer", logging.Fields{"path": p})
	}
	if err := manifest.Store(ctx, s.Workspace, s.ShadowFile(), remoteManifest.Clone()); err != nil {
		e.logger.Warn(ctx, "failed to cache remote manifest", logging.Fields{"error": err.Error()})
	}

	cls := compare.Classify(scanned.Manifest, baseline, remoteManifest)
	status := &Status{
		Records:    cls.Records,
		Anomalies:  cls.Anomalies,
		ScanErrors: scanned.Errors,
		ScanStats:  scanned.Stats,
		Local:      scanned.Manifest,
		Baseline:   baseline,
		Remote:     remoteManifest,
	}

	// A directory that could not be walked hides its whole subtree, so
	// everything at or below it is unreadable, not deleted.
	failed := scanned.Failed()
	for i := range status.Records {
		rel := status.Records[i].RelativePath
		at, ok := within(rel, failed)
		if !ok {
			continue
		}
		msg := failed[at].Error()
		if at != rel {
			msg = fmt.Sprintf("inside unreadable %s: %v", at, failed[at])
		}
		status.Records[i].Selected = false
		status.Anomalies = append(status.Anomalies, models.Anomaly{
			Path:    rel,
			Kind:    models.AnomalyUnreadable,
			Message: msg,
		})
	}
	for _, a := range status.Anomalies {
		e.logger.Warn(ctx, "classification anomaly", logging.Fields{"path": a.Path, "kind": string(a.Kind), "detail": a.Message})
	}

	e.logger.Info(ctx, "status computed", logging.Fields{
		"records":   len(status.Records),
		"changed":   len(status.Changed()),
		"anomalies": len(status.Anomalies),
	})
	return status, nil
}

func (e *Engine) loadBaseline(ctx context.Context, s *Session) (*models.Manifest, error) {
	baseline, err := manifest.Load(ctx, s.Workspace, s.BaselineFile())
	if err != nil {
		if errors.Is(err, manifest.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", s.BaselineFile(), ErrNotInitialized)
		}
		return nil, fmt.Errorf("failed to load baseline: %w", err)
	}
	return baseline, nil
}

// fetchRemoteManifest downloads <RemoteName>.sync from the remote root.
// A remote that has never been committed to yields an empty manifest.
func (e *Engine) fetchRemoteManifest(ctx context.Context, s *Session, resolver *remote.Resolver) (*models.Manifest, error) {
	obj, err := resolver.Lookup(ctx, s.RemoteFile())
	if errors.Is(err, remote.ErrNotFound) {
		e.logger.Debug(ctx, "remote manifest not found, assuming empty remote", logging.Fields{"name": s.RemoteFile()})
		return models.NewManifest(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to locate remote manifest: %w", err)
	}

	rc, err := s.Remote.Get(ctx, obj.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to download remote manifest: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to download remote manifest: %w", err)
	}
	m, err := manifest.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("remote manifest %s: %w", s.RemoteFile(), err)
	}
	return m, nil
}

// publishManifest uploads m as the remote manifest
func (e *Engine) publishManifest(ctx context.Context, s *Session, m *models.Manifest) error {
	data, err := manifest.Encode(m)
	if err != nil {
		return err
	}
	if _, err := s.Remote.Put(ctx, s.RemoteRoot, s.RemoteFile(), bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("failed to publish remote manifest: %w", err)
	}
	return nil
}
