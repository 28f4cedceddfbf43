package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/sdejongh/syncbase/pkg/models"
)

const (
	progressTemplate = `{{string . "files"}} {{counters . }} {{bar . "[" "=" ">" " " "]"}} {{percent . }} {{speed . }} {{rtime . "ETA %s"}}`
	refreshRate      = 100 * time.Millisecond
)

// ProgressFormatter renders a byte-level progress bar. File errors are
// printed above the bar as they happen.
type ProgressFormatter struct {
	mu       sync.Mutex
	writer   io.Writer
	bar      *pb.ProgressBar
	terminal bool

	totalFiles     int
	processedFiles int
	doneBytes      int64
	active         map[int]int64 // file index -> bytes so far
}

// NewProgressFormatter creates a progress bar formatter writing to w.
// A nil writer means stdout.
func NewProgressFormatter(w io.Writer) *ProgressFormatter {
	return &ProgressFormatter{writer: w, active: make(map[int]int64)}
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// Start initializes the bar. A nil writer keeps the current one.
func (f *ProgressFormatter) Start(writer io.Writer, totalFiles int, totalBytes int64, maxWorkers int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if writer != nil {
		f.writer = writer
	}
	if f.writer == nil {
		f.writer = os.Stdout
	}
	f.terminal = IsTerminal(f.writer)
	f.totalFiles = totalFiles
	f.processedFiles = 0
	f.doneBytes = 0
	f.active = make(map[int]int64)

	bar := pb.New64(totalBytes)
	bar.SetWriter(f.writer)
	bar.Set(pb.Bytes, true)
	bar.Set(pb.Terminal, f.terminal)
	// Without a terminal the bar is only drawn when the transfer ends.
	bar.Set(pb.Static, !f.terminal)
	bar.SetTemplateString(progressTemplate)
	bar.SetRefreshRate(refreshRate)
	f.bar = bar
	f.updateFiles()
	bar.Start()
	return nil
}

// Progress updates the bar
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bar == nil {
		return nil
	}

	switch update.Type {
	case UpdateFileStart:
		f.active[update.CurrentFile] = 0

	case UpdateFileProgress:
		if _, ok := f.active[update.CurrentFile]; ok {
			f.active[update.CurrentFile] = update.BytesWritten
		}

	case UpdateFileComplete:
		delete(f.active, update.CurrentFile)
		f.processedFiles++
		f.doneBytes += update.BytesWritten

	case UpdateFileError:
		delete(f.active, update.CurrentFile)
		f.processedFiles++
		if f.terminal {
			// Clear the bar line before printing.
			fmt.Fprint(f.writer, "\r\033[2K")
		}
		fmt.Fprintf(f.writer, "✗ %s %s: %v\n", update.Action, update.FilePath, update.Error)
	}

	current := f.doneBytes
	for _, n := range f.active {
		current += n
	}
	f.bar.SetCurrent(current)
	f.updateFiles()
	return nil
}

func (f *ProgressFormatter) updateFiles() {
	f.bar.Set("files", fmt.Sprintf("%d/%d files", f.processedFiles, f.totalFiles))
}

// Complete stops the bar and prints the summary
func (f *ProgressFormatter) Complete(report *models.TransferReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar != nil {
		f.bar.SetCurrent(report.Stats.BytesTransferred)
		f.bar.Finish()
		if !f.terminal {
			f.bar.Write()
			fmt.Fprintln(f.writer)
		}
		f.bar = nil
	}
	if f.writer == nil {
		f.writer = os.Stdout
	}
	writeSummary(f.writer, report)
	return nil
}

// Error reports an error
func (f *ProgressFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writer != nil {
		fmt.Fprintf(f.writer, "\nError: %v\n", err)
	}
	return nil
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}
