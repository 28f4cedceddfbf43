package sync

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sdejongh/syncbase/pkg/logging"
	"github.com/sdejongh/syncbase/pkg/models"
	"github.com/sdejongh/syncbase/pkg/output"
)

// progressReader wraps an io.Reader to report progress
type progressReader struct {
	reader         io.Reader
	read           int64
	lastReported   int64
	lastReportTime time.Time
	onProgress     func(bytesRead int64)
}

// Progress reporting thresholds
const (
	progressReportInterval = 50 * time.Millisecond // Minimum time between progress reports
	progressReportBytes    = 64 * 1024             // Minimum bytes between reports (64KB)
)

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.read += int64(n)

		if pr.onProgress != nil {
			shouldReport := pr.read-pr.lastReported >= progressReportBytes ||
				time.Since(pr.lastReportTime) >= progressReportInterval ||
				err != nil // Always report on completion or error

			if shouldReport {
				pr.onProgress(pr.read)
				pr.lastReported = pr.read
				pr.lastReportTime = time.Now()
			}
		}
	}
	return n, err
}

// task is one unit of work handed to the executor. run performs the
// transfer; track wraps the data stream for progress reporting.
type task struct {
	op   op
	size int64
	run  func(ctx context.Context, track func(io.Reader) io.Reader) models.TransferResult
}

// executor runs transfers in parallel, bounded by a weighted semaphore.
// A failed transfer never stops the others.
type executor struct {
	sem       *semaphore.Weighted
	formatter output.Formatter
	logger    logging.Logger
	started   atomic.Int64
	total     int
}

func newExecutor(maxTransfers int, total int, formatter output.Formatter, logger logging.Logger) *executor {
	if maxTransfers < 1 {
		maxTransfers = 1
	}
	return &executor{
		sem:       semaphore.NewWeighted(int64(maxTransfers)),
		formatter: formatter,
		logger:    logger,
		total:     total,
	}
}

func (x *executor) notify(update output.ProgressUpdate) {
	if x.formatter != nil {
		update.TotalFiles = x.total
		x.formatter.Progress(update)
	}
}

// run executes tasks and returns their results in task order. Once ctx is
// done, tasks not yet started fail with the context error.
func (x *executor) run(ctx context.Context, tasks []task) []models.TransferResult {
	results := make([]models.TransferResult, len(tasks))
	var wg sync.WaitGroup

	for i, t := range tasks {
		err := x.sem.Acquire(ctx, 1)
		if err == nil && ctx.Err() != nil {
			x.sem.Release(1)
			err = ctx.Err()
		}
		if err != nil {
			for j := i; j < len(tasks); j++ {
				results[j] = failed(tasks[j].op, err)
			}
			break
		}

		wg.Add(1)
		go func(i int, t task) {
			defer wg.Done()
			defer x.sem.Release(1)
			results[i] = x.execute(ctx, t)
		}(i, t)
	}

	wg.Wait()
	return results
}

func (x *executor) execute(ctx context.Context, t task) models.TransferResult {
	index := int(x.started.Add(1))
	relPath := t.op.path()
	start := time.Now()

	x.notify(output.ProgressUpdate{
		Type:        output.UpdateFileStart,
		FilePath:    relPath,
		Action:      t.op.action,
		TotalBytes:  t.size,
		CurrentFile: index,
	})

	track := func(r io.Reader) io.Reader {
		return &progressReader{
			reader:         r,
			lastReportTime: time.Now(), // Initialize to enable throttling from start
			onProgress: func(bytesRead int64) {
				x.notify(output.ProgressUpdate{
					Type:         output.UpdateFileProgress,
					FilePath:     relPath,
					Action:       t.op.action,
					BytesWritten: bytesRead,
					TotalBytes:   t.size,
					CurrentFile:  index,
				})
			},
		}
	}

	res := t.run(ctx, track)
	res.Path = relPath
	res.Action = t.op.action
	res.IsDir = res.IsDir || t.op.record.IsDir
	res.Duration = time.Since(start)

	if res.Err != nil {
		x.logger.Error(ctx, "transfer failed", res.Err, logging.Fields{"path": relPath, "action": string(t.op.action)})
		x.notify(output.ProgressUpdate{
			Type:        output.UpdateFileError,
			FilePath:    relPath,
			Action:      t.op.action,
			CurrentFile: index,
			Error:       res.Err,
		})
		return res
	}

	x.logger.Debug(ctx, "transfer complete", logging.Fields{
		"path":   relPath,
		"action": string(t.op.action),
		"bytes":  res.Bytes,
	})
	x.notify(output.ProgressUpdate{
		Type:         output.UpdateFileComplete,
		FilePath:     relPath,
		Action:       t.op.action,
		BytesWritten: res.Bytes,
		TotalBytes:   t.size,
		CurrentFile:  index,
	})
	return res
}

func failed(o op, err error) models.TransferResult {
	return models.TransferResult{Path: o.path(), Action: o.action, IsDir: o.record.IsDir, Err: err}
}
