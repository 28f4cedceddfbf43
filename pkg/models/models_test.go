package models

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

// ============== Manifest Tests ==============

func TestManifest_SetAndRemoveFile(t *testing.T) {
	m := NewManifest()
	m.SetFile(NewFileEntry("docs/a.txt", "aa"))
	m.SetFile(NewFileEntry("b.txt", "bb"))
	m.SetFile(NewFileEntry("docs/a.txt", "a2"))

	if len(m.Files) != 2 {
		t.Fatalf("len(Files) = %d, want 2", len(m.Files))
	}
	got, ok := m.Lookup("docs/a.txt")
	if !ok || got.Fingerprint != "a2" || got.Name != "a.txt" {
		t.Errorf("Lookup(docs/a.txt) = %+v, %v; want replaced entry named a.txt", got, ok)
	}

	m.RemoveFile("docs/a.txt")
	if _, ok := m.Lookup("docs/a.txt"); ok {
		t.Error("entry still present after RemoveFile")
	}
}

func TestManifest_AddFolderIncludesAncestors(t *testing.T) {
	m := NewManifest()
	m.AddFolder("a/b/c")
	m.AddFolder("a/b")

	want := []string{"a", "a/b", "a/b/c"}
	if !reflect.DeepEqual(m.Folders, want) {
		t.Errorf("Folders = %v, want %v", m.Folders, want)
	}
}

func TestManifest_RemoveTree(t *testing.T) {
	m := &Manifest{
		Files: []FileEntry{
			NewFileEntry("old/x.txt", "1"),
			NewFileEntry("old/deep/y.txt", "2"),
			NewFileEntry("older.txt", "3"),
		},
		Folders: []string{"old", "old/deep", "oldest"},
	}
	m.RemoveTree("old")

	if len(m.Files) != 1 || m.Files[0].Path != "older.txt" {
		t.Errorf("Files = %+v, want only older.txt", m.Files)
	}
	if !reflect.DeepEqual(m.Folders, []string{"oldest"}) {
		t.Errorf("Folders = %v, want [oldest]", m.Folders)
	}
}

func TestManifest_NormalizeAndClone(t *testing.T) {
	m := &Manifest{
		Files:   []FileEntry{NewFileEntry("z", "1"), NewFileEntry("a", "2")},
		Folders: []string{"q", "b", "q"},
		Message: "m",
	}
	c := m.Clone()
	m.Normalize()

	if m.Files[0].Path != "a" || m.Files[1].Path != "z" {
		t.Errorf("files not sorted: %+v", m.Files)
	}
	if !reflect.DeepEqual(m.Folders, []string{"b", "q"}) {
		t.Errorf("Folders = %v, want [b q]", m.Folders)
	}
	if c.Files[0].Path != "z" || len(c.Folders) != 3 {
		t.Error("Clone shares storage with the original")
	}

	var nilManifest *Manifest
	if empty := nilManifest.Clone(); empty.Files == nil || empty.Folders == nil {
		t.Error("Clone of nil should yield empty non-nil slices")
	}
}

func TestManifest_JSONFieldNames(t *testing.T) {
	m := NewManifest()
	m.SetFile(NewFileEntry("a.txt", "abc"))
	m.Message = "first"
	m.Author = "ana"

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"files":[{"name":"a.txt","path":"a.txt","sha256":"abc"}],"folders":[],"msg":"first","author":"ana"}`
	if string(data) != want {
		t.Errorf("Marshal() = %s\nwant %s", data, want)
	}
}

func TestAncestors(t *testing.T) {
	tests := []struct {
		path string
		self bool
		want []string
	}{
		{"a/b/c.txt", false, []string{"a", "a/b"}},
		{"a/b", true, []string{"a", "a/b"}},
		{"top.txt", false, nil},
	}
	for _, tt := range tests {
		if got := Ancestors(tt.path, tt.self); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Ancestors(%q, %v) = %v, want %v", tt.path, tt.self, got, tt.want)
		}
	}
}

// ============== Status Tests ==============

func TestStatusCode_Intent(t *testing.T) {
	tests := []struct {
		code StatusCode
		want Action
	}{
		{CodeSynced, ActionNone},
		{CodeLocalEdited, ActionUpload},
		{CodeRemoteChanged, ActionDownload},
		{CodeBaselineStale, ActionNone},
		{CodeConflict, ActionConflict},
		{CodeRemoteOnly, ActionDownload},
		{CodeDeletedLocally, ActionDeleteRemote},
		{CodeDeletedRemotely, ActionDeleteLocal},
		{CodeLocalOnly, ActionUpload},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			if got := tt.code.Intent(); got != tt.want {
				t.Errorf("Intent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusRecord_ActionForDirectories(t *testing.T) {
	tests := []struct {
		code StatusCode
		want Action
	}{
		{CodeLocalOnly, ActionCreateRemoteFolder},
		{CodeRemoteOnly, ActionCreateLocalFolder},
		{CodeDeletedLocally, ActionDeleteRemote},
		{CodeDeletedRemotely, ActionDeleteLocal},
		{CodeSynced, ActionNone},
	}
	for _, tt := range tests {
		rec := StatusRecord{RelativePath: "dir", Status: tt.code, IsDir: true}
		if got := rec.Action(); got != tt.want {
			t.Errorf("dir with %v: Action() = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestAction_Direction(t *testing.T) {
	if ActionUpload.Direction() != DirectionPush || ActionDeleteRemote.Direction() != DirectionPush {
		t.Error("remote-modifying actions should push")
	}
	if ActionDownload.Direction() != DirectionPull || ActionCreateLocalFolder.Direction() != DirectionPull {
		t.Error("local-modifying actions should pull")
	}
	if ActionConflict.Direction() != DirectionNone {
		t.Error("conflict must not have a direction")
	}
}

func TestStatusCode_String(t *testing.T) {
	if CodeConflict.String() != "conflict" {
		t.Errorf("CodeConflict.String() = %q", CodeConflict.String())
	}
	if StatusCode(9).Valid() || StatusCode(9).String() != "status(9)" {
		t.Error("code 9 should be invalid")
	}
}

func TestStatusRecord_JSON(t *testing.T) {
	rec := StatusRecord{Name: "a.txt", RelativePath: "x/a.txt", Selected: true, Status: CodeLocalEdited}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded["path"] != "x/a.txt" || decoded["select"] != true || decoded["status"] != float64(1) {
		t.Errorf("unexpected encoding: %s", data)
	}
}

// ============== Report Tests ==============

func TestTransferReport_RecordAndFinish(t *testing.T) {
	report := &TransferReport{Kind: KindCommit, StartTime: time.Now()}
	report.Record(TransferResult{Path: "a", Action: ActionUpload, Bytes: 10})
	report.Record(TransferResult{Path: "d", Action: ActionCreateRemoteFolder, IsDir: true})
	report.Record(TransferResult{Path: "b", Action: ActionUpload, Err: errors.New("quota")})
	report.Skip(StatusRecord{RelativePath: "c", Status: CodeConflict}, "conflict")
	report.Finish(false)

	if report.Stats.Uploaded != 1 || report.Stats.FoldersCreated != 1 || report.Stats.Failed != 1 {
		t.Errorf("Stats = %+v", report.Stats)
	}
	if report.Stats.BytesTransferred != 10 {
		t.Errorf("BytesTransferred = %d, want 10", report.Stats.BytesTransferred)
	}
	if report.Status != StatusPartial || report.OK() {
		t.Errorf("Status = %v, OK = %v; want partial, false", report.Status, report.OK())
	}
	if len(report.Errors) != 1 || report.Errors[0].Path != "b" {
		t.Fatalf("Errors = %+v", report.Errors)
	}
	if got := report.Errors[0].Error(); got != "upload b: quota" {
		t.Errorf("Error() = %q", got)
	}
}

func TestTransferReport_FinishStatuses(t *testing.T) {
	empty := &TransferReport{StartTime: time.Now()}
	empty.Finish(false)
	if empty.Status != StatusSuccess || !empty.OK() {
		t.Errorf("empty report status = %v", empty.Status)
	}

	allFailed := &TransferReport{StartTime: time.Now()}
	allFailed.Record(TransferResult{Path: "a", Action: ActionDownload, Err: errors.New("x")})
	allFailed.Finish(false)
	if allFailed.Status != StatusFailed {
		t.Errorf("Status = %v, want failed", allFailed.Status)
	}

	cancelled := &TransferReport{StartTime: time.Now()}
	cancelled.Finish(true)
	if cancelled.OK() {
		t.Error("cancelled report should not be OK")
	}
}

func TestSyncStatus_ExitCode(t *testing.T) {
	tests := map[SyncStatus]int{
		StatusSuccess:   0,
		StatusPartial:   1,
		StatusFailed:    2,
		StatusCancelled: 3,
		"bogus":         2,
	}
	for status, want := range tests {
		if got := status.ExitCode(); got != want {
			t.Errorf("%s.ExitCode() = %d, want %d", status, got, want)
		}
	}
}

// ============== Options Tests ==============

func TestTransferOptions_Validate(t *testing.T) {
	opts := DefaultTransferOptions()
	if err := opts.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if opts.MaxTransfers != 10 {
		t.Errorf("MaxTransfers = %d, want 10", opts.MaxTransfers)
	}

	opts.MaxTransfers = 0
	err := opts.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "MaxTransfers" {
		t.Errorf("Validate() = %v, want MaxTransfers validation error", err)
	}
}
