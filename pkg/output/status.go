package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sdejongh/syncbase/pkg/models"
)

// StatusView is what the status command renders
type StatusView struct {
	Project   string
	Remote    string
	Records   []models.StatusRecord
	Anomalies []models.Anomaly
	// All includes synced records
	All bool
}

// JSONStatusData is the JSON shape of a status listing
type JSONStatusData struct {
	Project   string           `json:"project"`
	Remote    string           `json:"remote"`
	Records   []JSONRecordData `json:"records"`
	Anomalies []models.Anomaly `json:"anomalies,omitempty"`
}

// JSONRecordData is a status record plus its derived label and action
type JSONRecordData struct {
	models.StatusRecord
	Label  string `json:"label"`
	Action string `json:"action"`
}

// groups lists status codes in display order, most urgent first
var groups = []models.StatusCode{
	models.CodeConflict,
	models.CodeLocalEdited,
	models.CodeLocalOnly,
	models.CodeDeletedLocally,
	models.CodeRemoteChanged,
	models.CodeRemoteOnly,
	models.CodeDeletedRemotely,
	models.CodeBaselineStale,
	models.CodeSynced,
}

var groupTitles = map[models.StatusCode]string{
	models.CodeConflict:        "Conflicts",
	models.CodeLocalEdited:     "Edited Locally",
	models.CodeLocalOnly:       "New Locally",
	models.CodeDeletedLocally:  "Deleted Locally",
	models.CodeRemoteChanged:   "Changed on Remote",
	models.CodeRemoteOnly:      "New on Remote",
	models.CodeDeletedRemotely: "Deleted on Remote",
	models.CodeBaselineStale:   "Baseline Out of Date",
	models.CodeSynced:          "Synchronized",
}

// WriteStatus renders a status listing as "human" or "json"
func WriteStatus(w io.Writer, format string, view StatusView) error {
	records := visible(view.Records, view.All)
	if format == "json" {
		data := JSONStatusData{
			Project:   view.Project,
			Remote:    view.Remote,
			Records:   make([]JSONRecordData, 0, len(records)),
			Anomalies: view.Anomalies,
		}
		for _, r := range records {
			data.Records = append(data.Records, JSONRecordData{
				StatusRecord: r,
				Label:        r.Status.String(),
				Action:       string(r.Action()),
			})
		}
		return encodeJSON(w, data)
	}
	return writeStatusHuman(w, view, records)
}

// visible drops synced records unless all is set. The result is sorted by
// path with files ahead of directories.
func visible(records []models.StatusRecord, all bool) []models.StatusRecord {
	out := make([]models.StatusRecord, 0, len(records))
	for _, r := range records {
		if all || r.Status != models.CodeSynced {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsDir != out[j].IsDir {
			return !out[i].IsDir
		}
		return out[i].RelativePath < out[j].RelativePath
	})
	return out
}

func writeStatusHuman(w io.Writer, view StatusView, records []models.StatusRecord) error {
	if view.Project != "" {
		fmt.Fprintf(w, "Project %s, remote %s\n\n", view.Project, view.Remote)
	}

	byCode := make(map[models.StatusCode][]models.StatusRecord)
	var unknown []models.StatusRecord
	for _, r := range records {
		if _, ok := groupTitles[r.Status]; !ok {
			unknown = append(unknown, r)
			continue
		}
		byCode[r.Status] = append(byCode[r.Status], r)
	}

	if len(records) == 0 {
		fmt.Fprintf(w, "Everything up to date.\n")
	}

	for _, code := range groups {
		recs := byCode[code]
		if len(recs) == 0 {
			continue
		}
		label := fmt.Sprintf("%s (%d)", groupTitles[code], len(recs))
		fmt.Fprintf(w, "%s\n", label)
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", len(label)))
		for _, r := range recs {
			writeRecordLine(w, r)
		}
		fmt.Fprintf(w, "\n")
	}

	if len(unknown) > 0 {
		fmt.Fprintf(w, "Unknown Status (%d)\n", len(unknown))
		for _, r := range unknown {
			writeRecordLine(w, r)
		}
		fmt.Fprintf(w, "\n")
	}

	if len(view.Anomalies) > 0 {
		label := fmt.Sprintf("Anomalies (%d)", len(view.Anomalies))
		fmt.Fprintf(w, "%s\n%s\n", label, strings.Repeat("-", len(label)))
		for _, a := range view.Anomalies {
			fmt.Fprintf(w, "  ! %s\n", a)
		}
		fmt.Fprintf(w, "\n")
	}
	return nil
}

func writeRecordLine(w io.Writer, r models.StatusRecord) {
	mark := "[ ]"
	if r.Selected {
		mark = "[x]"
	}
	name := r.RelativePath
	if r.IsDir {
		name += "/"
	}
	action := r.Action()
	if action == models.ActionNone {
		fmt.Fprintf(w, "  %s %d %s\n", mark, r.Status, name)
		return
	}
	fmt.Fprintf(w, "  %s %d %-50s  %s\n", mark, r.Status, name, action)
}
