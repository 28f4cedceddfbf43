package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sdejongh/syncbase/pkg/models"
)

// WriteReportFile writes a transfer report to a file.
// Format can be "human" or "json". Nothing is written for an empty report.
func WriteReportFile(report *models.TransferReport, path string, format string) error {
	if len(report.Results) == 0 && len(report.Skipped) == 0 && len(report.Anomalies) == 0 {
		return nil
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	switch format {
	case "json":
		return encodeJSON(file, NewJSONReport(report))
	default:
		return writeReportHuman(report, file)
	}
}

var actionLabels = map[models.Action]string{
	models.ActionUpload:             "Uploaded",
	models.ActionDownload:           "Downloaded",
	models.ActionDeleteRemote:       "Deleted on Remote",
	models.ActionDeleteLocal:        "Deleted Locally",
	models.ActionCreateRemoteFolder: "Remote Folders Created",
	models.ActionCreateLocalFolder:  "Local Folders Created",
	models.ActionPublishManifest:    "Remote Manifest",
}

var actionOrder = []models.Action{
	models.ActionPublishManifest,
	models.ActionCreateRemoteFolder,
	models.ActionCreateLocalFolder,
	models.ActionUpload,
	models.ActionDownload,
	models.ActionDeleteRemote,
	models.ActionDeleteLocal,
}

// writeReportHuman lists every result grouped by action
func writeReportHuman(report *models.TransferReport, w io.Writer) error {
	fmt.Fprintf(w, "Transfer Report\n")
	fmt.Fprintf(w, "===============\n\n")
	fmt.Fprintf(w, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "Operation: %s %s\n", report.Kind, report.OperationID)
	if report.Message != "" {
		fmt.Fprintf(w, "Message: %s\n", report.Message)
	}
	fmt.Fprintf(w, "Dry Run: %v\n", report.DryRun)
	fmt.Fprintf(w, "Status: %s\n\n", report.Status)

	byAction := make(map[models.Action][]models.TransferResult)
	for _, r := range report.Results {
		byAction[r.Action] = append(byAction[r.Action], r)
	}

	for _, action := range actionOrder {
		results := byAction[action]
		if len(results) == 0 {
			continue
		}

		label := fmt.Sprintf("%s (%d)", actionLabels[action], len(results))
		fmt.Fprintf(w, "%s\n", label)
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", len(label)))

		for _, r := range results {
			switch {
			case r.Err != nil:
				fmt.Fprintf(w, "  ✗ %s\n    Error: %v\n", r.Path, r.Err)
			case r.Fingerprint != "":
				fmt.Fprintf(w, "  %s\n    %s, sha256: %s\n", r.Path, formatBytes(r.Bytes), shortHash(r.Fingerprint))
			default:
				fmt.Fprintf(w, "  %s\n", r.Path)
			}
		}
		fmt.Fprintf(w, "\n")
	}

	if len(report.Skipped) > 0 {
		label := fmt.Sprintf("Skipped (%d)", len(report.Skipped))
		fmt.Fprintf(w, "%s\n%s\n", label, strings.Repeat("-", len(label)))
		for _, s := range report.Skipped {
			fmt.Fprintf(w, "  %s\n    Status: %d (%s)\n    Reason: %s\n", s.Path, s.Status, s.Status, s.Reason)
		}
		fmt.Fprintf(w, "\n")
	}

	if len(report.Anomalies) > 0 {
		label := fmt.Sprintf("Anomalies (%d)", len(report.Anomalies))
		fmt.Fprintf(w, "%s\n%s\n", label, strings.Repeat("-", len(label)))
		for _, a := range report.Anomalies {
			fmt.Fprintf(w, "  %s\n    %s: %s\n", a.Path, a.Kind, a.Message)
		}
		fmt.Fprintf(w, "\n")
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
