package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sdejongh/syncbase/pkg/auth"
	"github.com/sdejongh/syncbase/pkg/models"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Performance.MaxTransfers != 10 {
		t.Errorf("MaxTransfers = %d, want 10", cfg.Performance.MaxTransfers)
	}
	if cfg.Remote.Kind != RemoteFolder || cfg.Remote.Name != "remote" {
		t.Errorf("Remote = %+v", cfg.Remote)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"MaxTransfers", func(c *Config) { c.Performance.MaxTransfers = 0 }, "performance.max_transfers"},
		{"HashWorkers", func(c *Config) { c.Performance.HashWorkers = 0 }, "performance.hash_workers"},
		{"BufferSize", func(c *Config) { c.Performance.BufferSize = 512 }, "performance.buffer_size"},
		{"BandwidthLimit", func(c *Config) { c.Performance.BandwidthLimit = -1 }, "performance.bandwidth_limit"},
		{"OutputFormat", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
		{"LogFormat", func(c *Config) { c.Logging.Format = "yaml" }, "logging.format"},
		{"LogLevel", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"ProjectName", func(c *Config) { c.Project.Name = "a/b" }, "project.name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			var verr *models.ValidationError
			if err := cfg.Validate(); !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("Validate() error = %v, want field %s", err, tt.field)
			}
		})
	}
}

func TestValidateRemote(t *testing.T) {
	tests := []struct {
		name   string
		remote RemoteConfig
		field  string
	}{
		{"FolderOK", RemoteConfig{Kind: RemoteFolder, Name: "remote", Path: "/mnt/share"}, ""},
		{"FolderNoPath", RemoteConfig{Kind: RemoteFolder, Name: "remote"}, "remote.path"},
		{"S3OK", RemoteConfig{Kind: RemoteS3, Name: "remote", Bucket: "b"}, ""},
		{"S3NoBucket", RemoteConfig{Kind: RemoteS3, Name: "remote"}, "remote.bucket"},
		{"DriveOK", RemoteConfig{Kind: RemoteDrive, Name: "remote", FolderID: "abc"}, ""},
		{"DriveNoFolder", RemoteConfig{Kind: RemoteDrive, Name: "remote"}, "remote.folder_id"},
		{"UnknownKind", RemoteConfig{Kind: "ftp", Name: "remote"}, "remote.kind"},
		{"BadName", RemoteConfig{Kind: RemoteS3, Name: "../x", Bucket: "b"}, "remote.name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Remote = tt.remote
			err := cfg.ValidateRemote()
			if tt.field == "" {
				if err != nil {
					t.Errorf("ValidateRemote() error = %v", err)
				}
				return
			}
			var verr *models.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("ValidateRemote() error = %v, want field %s", err, tt.field)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Project = ProjectConfig{Name: "thesis", Path: "/home/ada/thesis", Author: "ada"}
	cfg.Remote = RemoteConfig{Kind: RemoteDrive, Name: "thesis-remote", FolderID: "folder-1"}
	expiry := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cfg.SetCredential(auth.Credential{AccessToken: "at", RefreshToken: "rt", Expiry: expiry})

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file mode = %o, want 600", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Project != cfg.Project {
		t.Errorf("Project = %+v, want %+v", loaded.Project, cfg.Project)
	}
	cred := loaded.Credential()
	if cred.AccessToken != "at" || cred.RefreshToken != "rt" || !cred.Expiry.Equal(expiry) {
		t.Errorf("Credential() = %+v", cred)
	}
	if loaded.Remote.FolderID != "folder-1" || loaded.Remote.Name != "thesis-remote" {
		t.Errorf("Remote = %+v", loaded.Remote)
	}
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
remote:
  kind: s3
  bucket: backups
  prefix: thesis
performance:
  max_transfers: 3
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Performance.MaxTransfers != 3 || cfg.Performance.HashWorkers != 4 {
		t.Errorf("Performance = %+v", cfg.Performance)
	}
	if cfg.Remote.Bucket != "backups" || cfg.Remote.Name != "remote" {
		t.Errorf("Remote = %+v", cfg.Remote)
	}
	if err := cfg.ValidateRemote(); err != nil {
		t.Errorf("ValidateRemote() error = %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("performance: [not, a, map"), 0644)
	if _, err := Load(bad); err == nil || !strings.Contains(err.Error(), "parse") {
		t.Errorf("Load() error = %v, want parse error", err)
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	os.WriteFile(invalid, []byte("performance:\n  max_transfers: 0\n"), 0644)
	if _, err := Load(invalid); err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("Load() error = %v, want validation error", err)
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("performance:\n  max_transfer: 3\n"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "max_transfer") {
		t.Errorf("Load() error = %v, want the misspelt key reported", err)
	}
}

func TestLoad_EmptyFileIsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Performance != Default().Performance {
		t.Errorf("Performance = %+v, want defaults", cfg.Performance)
	}
}

func TestSave_ReplacesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("project:\n  author: old\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	cfg.Project.Author = "ada"
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file mode = %o, want 600 even over a world-readable file", perm)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only config.yaml", len(entries))
	}
	loaded, err := Load(path)
	if err != nil || loaded.Project.Author != "ada" {
		t.Errorf("Load() = %+v, %v", loaded, err)
	}

	bad := Default()
	bad.Performance.MaxTransfers = 0
	if err := Save(bad, path); err == nil {
		t.Error("Save() of an invalid configuration should fail")
	}
	if loaded, err := Load(path); err != nil || loaded.Project.Author != "ada" {
		t.Error("a rejected Save() must leave the file untouched")
	}
}

func TestPath(t *testing.T) {
	t.Setenv(EnvFile, "")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir, err := os.UserConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	path, err := Path()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "syncbase", "config.yaml"); path != want {
		t.Errorf("Path() = %s, want %s", path, want)
	}

	cfg, err := LoadOrDefault()
	if err != nil || cfg.Performance.MaxTransfers != 10 {
		t.Errorf("LoadOrDefault() without a file = %+v, %v", cfg, err)
	}

	override := filepath.Join(t.TempDir(), "elsewhere.yaml")
	t.Setenv(EnvFile, override)
	if path, _ := Path(); path != override {
		t.Errorf("Path() = %s, want %s from $%s", path, override, EnvFile)
	}
}
