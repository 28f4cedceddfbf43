package output

import (
	"fmt"
	"io"
	"os"

	"github.com/sdejongh/syncbase/pkg/models"
)

// Progress update types
const (
	UpdateFileStart    = "file_start"
	UpdateFileProgress = "file_progress"
	UpdateFileComplete = "file_complete"
	UpdateFileError    = "file_error"
)

// ProgressUpdate represents a progress notification during a transfer
type ProgressUpdate struct {
	Type         string
	FilePath     string
	Action       models.Action
	BytesWritten int64
	TotalBytes   int64
	CurrentFile  int
	TotalFiles   int
	Error        error
}

// Formatter defines the interface for transfer output.
// Implementations include human-readable, JSON and progress bar formatters.
type Formatter interface {
	// Start initializes the formatter for a new commit or pull.
	// maxWorkers indicates the number of parallel transfers for display purposes.
	Start(writer io.Writer, totalFiles int, totalBytes int64, maxWorkers int) error

	// Progress reports progress during the transfer
	Progress(update ProgressUpdate) error

	// Complete finalizes output and displays summary
	Complete(report *models.TransferReport) error

	// Error reports an error during the transfer
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// New returns the formatter registered under name: "human", "json" or
// "progress". Progress falls back to human when w is not a terminal.
func New(name string, w io.Writer) (Formatter, error) {
	switch name {
	case "", "human":
		return NewHumanFormatter(w), nil
	case "json":
		return NewJSONFormatter(w), nil
	case "progress":
		if w == nil {
			w = os.Stdout
		}
		if !IsTerminal(w) {
			return NewHumanFormatter(w), nil
		}
		return NewProgressFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want human, json or progress)", name)
	}
}
