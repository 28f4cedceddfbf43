package platform

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestRelativeToProject(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"docs/notes.md", "docs/notes.md", false},
		{"./docs//notes.md", "docs/notes.md", false},
		{"docs/../a.txt", "a.txt", false},
		{".", "", false},
		{filepath.Join(root, "docs", "x.txt"), "docs/x.txt", false},
		{"../outside.txt", "", true},
		{filepath.Join(filepath.Dir(root), "sibling"), "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := RelativeToProject(root, tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("RelativeToProject(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("RelativeToProject(%q) = %q, want %q", tt.in, got, tt.want)
		}
		var perr *PathError
		if err != nil && !errors.As(err, &perr) {
			t.Errorf("error should be a *PathError: %T", err)
		}
	}
}

func TestCheckDisjoint(t *testing.T) {
	base := t.TempDir()
	project := filepath.Join(base, "project")
	remote := filepath.Join(base, "remote")

	if err := CheckDisjoint(project, remote); err != nil {
		t.Errorf("siblings should be accepted: %v", err)
	}
	if err := CheckDisjoint(project, project); err == nil {
		t.Error("same directory should be rejected")
	}
	if err := CheckDisjoint(project, filepath.Join(project, "backup")); err == nil {
		t.Error("remote inside project should be rejected")
	}
	if err := CheckDisjoint(filepath.Join(remote, "work"), remote); err == nil {
		t.Error("project inside remote should be rejected")
	}
	if err := CheckDisjoint(filepath.Join(base, "pro"), project); err != nil {
		t.Errorf("shared name prefix is not nesting: %v", err)
	}
}

func TestProjectName(t *testing.T) {
	if got := ProjectName(filepath.Join("home", "ada", "thesis")); got != "thesis" {
		t.Errorf("ProjectName() = %s, want thesis", got)
	}
	if got := ProjectName(string(filepath.Separator)); got != "project" {
		t.Errorf("ProjectName(root) = %s, want project", got)
	}
}
