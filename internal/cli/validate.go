package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/sdejongh/syncbase/pkg/config"
	"github.com/sdejongh/syncbase/pkg/logging"
	"github.com/sdejongh/syncbase/pkg/models"
	"github.com/sdejongh/syncbase/pkg/output"
)

// configPath returns the file the configuration is read from and saved to
func configPath() (string, error) {
	if globalFlags.ConfigFile != "" {
		return globalFlags.ConfigFile, nil
	}
	return config.Path()
}

// loadConfig loads configuration from file or returns default
func loadConfig() (*config.Config, error) {
	if globalFlags.ConfigFile != "" {
		return config.Load(globalFlags.ConfigFile)
	}
	return config.LoadOrDefault()
}

// applyFlagsToConfig overrides config values with command-line flags
func applyFlagsToConfig(cfg *config.Config, flags *TransferFlags) error {
	if flags != nil {
		// Parallel transfers (default: 10)
		if flags.Parallel > 0 {
			cfg.Performance.MaxTransfers = flags.Parallel
		}

		if flags.Bandwidth != "" {
			limit, err := parseBandwidth(flags.Bandwidth)
			if err != nil {
				return err
			}
			cfg.Performance.BandwidthLimit = limit
		}

		// Exclude patterns add to the configured ones
		cfg.Exclude = append(cfg.Exclude, flags.Exclude...)

		if flags.Output != "" {
			cfg.Output.Format = flags.Output
		}

		applyLogFlags(cfg, flags.LogFile, flags.LogFormat, flags.LogLevel)
	}

	// Disable progress in quiet mode
	if globalFlags.Quiet {
		cfg.Output.Progress = false
		cfg.Output.Quiet = true
	}

	return cfg.Validate()
}

func applyLogFlags(cfg *config.Config, file, format, level string) {
	if file != "" {
		cfg.Logging.Enabled = true
		cfg.Logging.File = file
	}
	if format != "" {
		cfg.Logging.Format = format
	}
	if level != "" {
		cfg.Logging.Level = level
	}
}

// transferOptions builds engine options from configuration
func transferOptions(cfg *config.Config, flags *TransferFlags) models.TransferOptions {
	opts := models.DefaultTransferOptions()
	opts.MaxTransfers = cfg.Performance.MaxTransfers
	opts.HashWorkers = cfg.Performance.HashWorkers
	opts.BufferSize = cfg.Performance.BufferSize
	opts.BandwidthLimit = cfg.Performance.BandwidthLimit
	opts.ExcludePatterns = cfg.Exclude
	if flags != nil {
		opts.DryRun = flags.DryRun
		opts.ResolveConflicts = flags.Resolve
	}
	return opts
}

// createFormatter picks the transfer output for the configuration
func createFormatter(cfg *config.Config, w io.Writer) (output.Formatter, error) {
	if cfg.Output.Quiet {
		w = io.Discard
	}
	name := cfg.Output.Format
	if name == "human" && cfg.Output.Progress {
		name = "progress"
	}
	return output.New(name, w)
}

// createLogger creates a logger based on configuration. Without a log file,
// --verbose logs to stderr.
func createLogger(cfg *config.Config) (logging.Logger, error) {
	var format logging.Format
	switch cfg.Logging.Format {
	case "json":
		format = logging.FormatJSON
	default:
		format = logging.FormatText
	}

	if cfg.Logging.Enabled && cfg.Logging.File != "" {
		return logging.NewFileLogger(logging.FileLoggerConfig{
			Path:       cfg.Logging.File,
			Format:     format,
			Level:      logging.ParseLevel(cfg.Logging.Level),
			MaxSize:    cfg.Logging.MaxSize,
			MaxBackups: cfg.Logging.MaxBackups,
		})
	}

	if globalFlags.Verbose {
		return logging.NewConsoleLogger(os.Stderr, logging.DebugLevel, logging.FormatText), nil
	}
	return logging.NewNullLogger(), nil
}

// checkProjectDir verifies the project directory exists
func checkProjectDir(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return fmt.Errorf("project directory does not exist: %s", dir)
	}
	if err != nil {
		return fmt.Errorf("failed to access project directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("project path exists but is not a directory: %s", dir)
	}
	return nil
}
