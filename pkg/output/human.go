package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sdejongh/syncbase/pkg/models"
)

// HumanFormatter prints one line per transfer event
type HumanFormatter struct {
	mu         sync.Mutex
	writer     io.Writer
	totalFiles int
	totalBytes int64
	startTime  time.Time
}

// NewHumanFormatter creates a new human-readable formatter writing to w.
// A nil writer means stdout.
func NewHumanFormatter(w io.Writer) *HumanFormatter {
	return &HumanFormatter{writer: w}
}

// Start initializes the formatter. A nil writer keeps the current one.
func (f *HumanFormatter) Start(writer io.Writer, totalFiles int, totalBytes int64, maxWorkers int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if writer != nil {
		f.writer = writer
	}
	if f.writer == nil {
		f.writer = os.Stdout
	}
	f.totalFiles = totalFiles
	f.totalBytes = totalBytes
	f.startTime = time.Now()

	if totalFiles > 0 {
		fmt.Fprintf(f.writer, "Transferring %d items, %s total (%d parallel)\n",
			totalFiles, formatBytes(totalBytes), maxWorkers)
	}
	return nil
}

// Progress reports transfer events. Byte-level progress is ignored.
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writer == nil {
		return nil
	}

	switch update.Type {
	case UpdateFileStart:
		fmt.Fprintf(f.writer, "[%d/%d] %s %s (%s)...\n",
			update.CurrentFile, update.TotalFiles,
			update.Action, update.FilePath, formatBytes(update.TotalBytes))

	case UpdateFileComplete:
		fmt.Fprintf(f.writer, "[%d/%d] ✓ %s (%s)\n",
			update.CurrentFile, update.TotalFiles,
			update.FilePath, formatBytes(update.BytesWritten))

	case UpdateFileError:
		fmt.Fprintf(f.writer, "[%d/%d] ✗ %s: %v\n",
			update.CurrentFile, update.TotalFiles,
			update.FilePath, update.Error)
	}
	return nil
}

// Complete displays the summary
func (f *HumanFormatter) Complete(report *models.TransferReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writer == nil {
		f.writer = os.Stdout
	}
	writeSummary(f.writer, report)
	return nil
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writer != nil {
		fmt.Fprintf(f.writer, "Error: %v\n", err)
	}
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

var kindTitles = map[models.TransferKind]string{
	models.KindCommit:     "Commit",
	models.KindPull:       "Pull",
	models.KindInitialize: "Initialization",
}

// writeSummary prints the end-of-operation report shared by the text formatters
func writeSummary(w io.Writer, report *models.TransferReport) {
	title, ok := kindTitles[report.Kind]
	if !ok {
		title = "Operation"
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "%s completed in %s\n", title, report.Duration.Round(time.Millisecond))
	if report.DryRun {
		fmt.Fprintf(w, "Dry run: nothing was changed\n")
	}
	if report.Message != "" {
		fmt.Fprintf(w, "Message: %s\n", report.Message)
	}
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Uploaded:        %d\n", report.Stats.Uploaded)
	fmt.Fprintf(w, "  Downloaded:      %d\n", report.Stats.Downloaded)
	fmt.Fprintf(w, "  Deleted remote:  %d\n", report.Stats.DeletedRemote)
	fmt.Fprintf(w, "  Deleted local:   %d\n", report.Stats.DeletedLocal)
	fmt.Fprintf(w, "  Folders created: %d\n", report.Stats.FoldersCreated)
	fmt.Fprintf(w, "  Skipped:         %d\n", report.Stats.Skipped)
	fmt.Fprintf(w, "  Failed:          %d\n", report.Stats.Failed)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Transfer:\n")
	fmt.Fprintf(w, "  Data:            %s\n", formatBytes(report.Stats.BytesTransferred))
	if report.Duration.Seconds() > 0 && report.Stats.BytesTransferred > 0 {
		avgSpeed := float64(report.Stats.BytesTransferred) / report.Duration.Seconds()
		fmt.Fprintf(w, "  Average speed:   %s/s\n", formatBytes(int64(avgSpeed)))
	}
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Status: %s\n", report.Status)

	if len(report.Skipped) > 0 {
		fmt.Fprintf(w, "\nSkipped:\n")
		for _, s := range report.Skipped {
			fmt.Fprintf(w, "  %s: %s\n", s.Path, s.Reason)
		}
	}
	if len(report.Anomalies) > 0 {
		fmt.Fprintf(w, "\nAnomalies:\n")
		for _, a := range report.Anomalies {
			fmt.Fprintf(w, "  %s\n", a)
		}
	}
	if len(report.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors:\n")
		for _, e := range report.Errors {
			fmt.Fprintf(w, "  %s\n", e.Error())
		}
	}
}

// formatBytes formats bytes in human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
