package output

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sdejongh/syncbase/pkg/models"
)

// JSONFormatter formats output as JSON for automation and scripting.
// Only the final report is written; progress is not streamed.
type JSONFormatter struct {
	mu     sync.Mutex
	writer io.Writer
}

// JSONReportData represents the final report data
type JSONReportData struct {
	OperationID string            `json:"operation_id"`
	Kind        string            `json:"kind"`
	Message     string            `json:"message,omitempty"`
	DryRun      bool              `json:"dry_run"`
	Status      string            `json:"status"`
	ExitCode    int               `json:"exit_code"`
	Duration    string            `json:"duration"`
	DurationMs  int64             `json:"duration_ms"`
	Stats       JSONStatsData     `json:"stats"`
	Results     []JSONResultData  `json:"results,omitempty"`
	Skipped     []JSONSkippedData `json:"skipped,omitempty"`
	Anomalies   []models.Anomaly  `json:"anomalies,omitempty"`
	Errors      []JSONErrorData   `json:"errors,omitempty"`
}

// JSONStatsData represents transfer counters in JSON format
type JSONStatsData struct {
	Uploaded         int    `json:"uploaded"`
	Downloaded       int    `json:"downloaded"`
	DeletedRemote    int    `json:"deleted_remote"`
	DeletedLocal     int    `json:"deleted_local"`
	FoldersCreated   int    `json:"folders_created"`
	Skipped          int    `json:"skipped"`
	Failed           int    `json:"failed"`
	BytesTransferred int64  `json:"bytes_transferred"`
	AverageSpeed     int64  `json:"average_speed_bytes_per_sec,omitempty"`
	AverageSpeedStr  string `json:"average_speed,omitempty"`
}

// JSONResultData represents one attempted transfer
type JSONResultData struct {
	Path        string `json:"path"`
	Action      string `json:"action"`
	Dir         bool   `json:"dir,omitempty"`
	Bytes       int64  `json:"bytes,omitempty"`
	Fingerprint string `json:"sha256,omitempty"`
	Error       string `json:"error,omitempty"`
}

// JSONSkippedData represents a selected record that was not executed
type JSONSkippedData struct {
	Path   string `json:"path"`
	Status int    `json:"status"`
	Reason string `json:"reason"`
}

// JSONErrorData represents an error entry
type JSONErrorData struct {
	Path   string `json:"path"`
	Action string `json:"action"`
	Error  string `json:"error"`
}

// NewJSONFormatter creates a new JSON formatter writing to w.
// A nil writer means stdout.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// Start initializes the formatter. A nil writer keeps the current one.
func (f *JSONFormatter) Start(writer io.Writer, totalFiles int, totalBytes int64, maxWorkers int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if writer != nil {
		f.writer = writer
	}
	return nil
}

// Progress is a no-op to keep the output parseable
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	return nil
}

// Complete writes the report as a single JSON document
func (f *JSONFormatter) Complete(report *models.TransferReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return encodeJSON(f.out(), NewJSONReport(report))
}

// Error writes the error as a JSON object
func (f *JSONFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return encodeJSON(f.out(), map[string]string{"error": err.Error()})
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

func (f *JSONFormatter) out() io.Writer {
	if f.writer == nil {
		return os.Stdout
	}
	return f.writer
}

// NewJSONReport converts a transfer report to its JSON shape
func NewJSONReport(report *models.TransferReport) JSONReportData {
	var avgSpeed int64
	var avgSpeedStr string
	if report.Duration.Seconds() > 0 && report.Stats.BytesTransferred > 0 {
		avgSpeed = int64(float64(report.Stats.BytesTransferred) / report.Duration.Seconds())
		avgSpeedStr = formatBytes(avgSpeed) + "/s"
	}

	data := JSONReportData{
		OperationID: report.OperationID,
		Kind:        string(report.Kind),
		Message:     report.Message,
		DryRun:      report.DryRun,
		Status:      string(report.Status),
		ExitCode:    report.Status.ExitCode(),
		Duration:    report.Duration.Round(time.Millisecond).String(),
		DurationMs:  report.Duration.Milliseconds(),
		Stats: JSONStatsData{
			Uploaded:         report.Stats.Uploaded,
			Downloaded:       report.Stats.Downloaded,
			DeletedRemote:    report.Stats.DeletedRemote,
			DeletedLocal:     report.Stats.DeletedLocal,
			FoldersCreated:   report.Stats.FoldersCreated,
			Skipped:          report.Stats.Skipped,
			Failed:           report.Stats.Failed,
			BytesTransferred: report.Stats.BytesTransferred,
			AverageSpeed:     avgSpeed,
			AverageSpeedStr:  avgSpeedStr,
		},
		Anomalies: report.Anomalies,
	}

	for _, r := range report.Results {
		res := JSONResultData{
			Path:        r.Path,
			Action:      string(r.Action),
			Dir:         r.IsDir,
			Bytes:       r.Bytes,
			Fingerprint: r.Fingerprint,
		}
		if r.Err != nil {
			res.Error = r.Err.Error()
		}
		data.Results = append(data.Results, res)
	}
	for _, s := range report.Skipped {
		data.Skipped = append(data.Skipped, JSONSkippedData{Path: s.Path, Status: int(s.Status), Reason: s.Reason})
	}
	for _, e := range report.Errors {
		data.Errors = append(data.Errors, JSONErrorData{Path: e.Path, Action: string(e.Action), Error: e.Err.Error()})
	}
	return data
}

func encodeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
