package config

import (
	"strings"
	"time"

	"github.com/sdejongh/syncbase/pkg/auth"
	"github.com/sdejongh/syncbase/pkg/models"
)

// Remote kinds
const (
	RemoteFolder = "folder"
	RemoteS3     = "s3"
	RemoteDrive  = "drive"
)

// Config represents the application configuration
type Config struct {
	Project     ProjectConfig     `yaml:"project"`
	Remote      RemoteConfig      `yaml:"remote"`
	Performance PerformanceConfig `yaml:"performance"`
	Output      OutputConfig      `yaml:"output"`
	Logging     LoggingConfig     `yaml:"logging"`
	Exclude     []string          `yaml:"exclude"`
}

// ProjectConfig identifies the local project
type ProjectConfig struct {
	Name   string `yaml:"name"`   // Baseline is <name>.sync; empty = directory name
	Path   string `yaml:"path"`   // Project directory; empty = current directory
	Author string `yaml:"author"` // Recorded in committed manifests
}

// RemoteConfig selects and configures the remote store
type RemoteConfig struct {
	Kind string `yaml:"kind"` // "folder", "s3" or "drive"
	Name string `yaml:"name"` // Remote manifest is <name>.sync

	// folder
	Path string `yaml:"path,omitempty"`

	// s3
	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty"`

	// drive
	FolderID     string    `yaml:"folder_id,omitempty"`
	DriveID      string    `yaml:"drive_id,omitempty"`
	ClientID     string    `yaml:"client_id,omitempty"`
	ClientSecret string    `yaml:"client_secret,omitempty"`
	AccessToken  string    `yaml:"access_token,omitempty"`
	RefreshToken string    `yaml:"refresh_token,omitempty"`
	TokenExpiry  time.Time `yaml:"token_expiry,omitempty"`
}

// PerformanceConfig holds performance-related settings
type PerformanceConfig struct {
	MaxTransfers   int   `yaml:"max_transfers"`
	HashWorkers    int   `yaml:"hash_workers"`
	BufferSize     int   `yaml:"buffer_size"`
	BandwidthLimit int64 `yaml:"bandwidth_limit"` // bytes per second, 0 = unlimited
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "human" or "json"
	Progress bool   `yaml:"progress"` // Show a progress bar on terminals
	Quiet    bool   `yaml:"quiet"`    // Suppress non-error output
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Format     string `yaml:"format"` // "json" or "text"
	Level      string `yaml:"level"`  // "debug", "info", "warn", "error"
	File       string `yaml:"file"`   // Log file path
	MaxSize    int64  `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Remote: RemoteConfig{
			Kind: RemoteFolder,
			Name: "remote",
		},
		Performance: PerformanceConfig{
			MaxTransfers:   10,
			HashWorkers:    4,
			BufferSize:     65536,
			BandwidthLimit: 0,
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
			Quiet:    false,
		},
		Logging: LoggingConfig{
			Enabled:    false,
			Format:     "json",
			Level:      "info",
			File:       "",
			MaxSize:    10 * 1024 * 1024,
			MaxBackups: 3,
		},
		Exclude: []string{
			"*.tmp",
			".git/",
			"node_modules/",
		},
	}
}

// Validate checks if the configuration is valid. Remote settings are
// checked separately by ValidateRemote, since a fresh configuration has
// none yet.
func (c *Config) Validate() error {
	if c.Performance.MaxTransfers < 1 {
		return &models.ValidationError{
			Field:   "performance.max_transfers",
			Message: "must be at least 1",
		}
	}

	if c.Performance.HashWorkers < 1 {
		return &models.ValidationError{
			Field:   "performance.hash_workers",
			Message: "must be at least 1",
		}
	}

	if c.Performance.BufferSize < 1024 {
		return &models.ValidationError{
			Field:   "performance.buffer_size",
			Message: "must be at least 1024 bytes",
		}
	}

	if c.Performance.BandwidthLimit < 0 {
		return &models.ValidationError{
			Field:   "performance.bandwidth_limit",
			Message: "cannot be negative",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	if c.Project.Name != "" && !plainName(c.Project.Name) {
		return &models.ValidationError{
			Field:   "project.name",
			Message: "must be a plain file name",
		}
	}

	return nil
}

// ValidateRemote checks the settings required by the selected remote kind
func (c *Config) ValidateRemote() error {
	r := c.Remote
	if !plainName(r.Name) {
		return &models.ValidationError{Field: "remote.name", Message: "must be a plain file name"}
	}

	switch r.Kind {
	case RemoteFolder:
		if r.Path == "" {
			return &models.ValidationError{Field: "remote.path", Message: "required for a folder remote"}
		}
	case RemoteS3:
		if r.Bucket == "" {
			return &models.ValidationError{Field: "remote.bucket", Message: "required for an s3 remote"}
		}
	case RemoteDrive:
		if r.FolderID == "" {
			return &models.ValidationError{Field: "remote.folder_id", Message: "required for a drive remote"}
		}
	default:
		return &models.ValidationError{
			Field:   "remote.kind",
			Message: "must be 'folder', 's3' or 'drive'",
		}
	}
	return nil
}

// Credential returns the stored Drive tokens
func (c *Config) Credential() auth.Credential {
	return auth.Credential{
		AccessToken:  c.Remote.AccessToken,
		RefreshToken: c.Remote.RefreshToken,
		Expiry:       c.Remote.TokenExpiry,
	}
}

// SetCredential stores Drive tokens in the remote section
func (c *Config) SetCredential(cred auth.Credential) {
	c.Remote.AccessToken = cred.AccessToken
	c.Remote.RefreshToken = cred.RefreshToken
	c.Remote.TokenExpiry = cred.Expiry
}

func plainName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}
