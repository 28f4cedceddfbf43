package models

import (
	"fmt"
	"time"
)

// TransferKind names the operation that produced a report
type TransferKind string

const (
	KindCommit     TransferKind = "commit"
	KindPull       TransferKind = "pull"
	KindInitialize TransferKind = "init"
)

// TransferReport represents the results of a commit or pull
type TransferReport struct {
	OperationID string
	Kind        TransferKind
	Message     string
	DryRun      bool

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Stats Statistics

	// Results lists every attempted transfer in submission order
	Results []TransferResult

	// Skipped lists selected records that were not executed
	Skipped []SkippedItem

	Errors    []TransferError
	Anomalies []Anomaly

	Status SyncStatus
}

// Statistics holds transfer counters
type Statistics struct {
	Uploaded       int
	Downloaded     int
	DeletedRemote  int
	DeletedLocal   int
	FoldersCreated int
	Failed         int
	Skipped        int

	BytesTransferred int64
}

// TransferResult is the outcome of one transfer
type TransferResult struct {
	Path        string
	Action      Action
	IsDir       bool
	Bytes       int64
	Fingerprint string
	Duration    time.Duration
	Err         error
}

// Succeeded reports whether the transfer completed
func (r TransferResult) Succeeded() bool {
	return r.Err == nil
}

// SkippedItem is a selected record that was deliberately not executed
type SkippedItem struct {
	Path   string
	Status StatusCode
	Reason string
}

// TransferError identifies the item whose transfer failed
type TransferError struct {
	Path   string
	Action Action
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Action, e.Path, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// OK reports whether every attempted transfer succeeded
func (r *TransferReport) OK() bool {
	return len(r.Errors) == 0 && r.Status != StatusCancelled
}

// Record adds a result, updating counters and the error list
func (r *TransferReport) Record(res TransferResult) {
	r.Results = append(r.Results, res)
	if res.Err != nil {
		r.Stats.Failed++
		r.Errors = append(r.Errors, TransferError{Path: res.Path, Action: res.Action, Err: res.Err})
		return
	}
	r.Stats.BytesTransferred += res.Bytes
	switch res.Action {
	case ActionUpload:
		r.Stats.Uploaded++
	case ActionDownload:
		if res.IsDir {
			r.Stats.FoldersCreated++
		} else {
			r.Stats.Downloaded++
		}
	case ActionDeleteRemote:
		r.Stats.DeletedRemote++
	case ActionDeleteLocal:
		r.Stats.DeletedLocal++
	case ActionCreateRemoteFolder, ActionCreateLocalFolder:
		r.Stats.FoldersCreated++
	}
}

// Skip records a selected item that was not executed
func (r *TransferReport) Skip(rec StatusRecord, reason string) {
	r.Skipped = append(r.Skipped, SkippedItem{Path: rec.RelativePath, Status: rec.Status, Reason: reason})
	r.Stats.Skipped++
}

// Finish stamps the end time and derives the overall status
func (r *TransferReport) Finish(cancelled bool) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	switch {
	case cancelled:
		r.Status = StatusCancelled
	case len(r.Errors) == 0:
		r.Status = StatusSuccess
	case r.Stats.Failed < len(r.Results):
		r.Status = StatusPartial
	default:
		r.Status = StatusFailed
	}
}

// SyncStatus represents the overall result
type SyncStatus string

const (
	// StatusSuccess indicates all transfers completed
	StatusSuccess SyncStatus = "success"
	// StatusPartial indicates some transfers failed
	StatusPartial SyncStatus = "partial"
	// StatusFailed indicates nothing succeeded
	StatusFailed SyncStatus = "failed"
	// StatusCancelled indicates the context was cancelled mid-run
	StatusCancelled SyncStatus = "cancelled"
)

// ExitCode returns the process exit code for the status
func (s SyncStatus) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusPartial:
		return 1
	case StatusFailed:
		return 2
	case StatusCancelled:
		return 3
	default:
		return 2
	}
}
