package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sdejongh/syncbase/pkg/config"
)

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View or modify syncbase configuration.`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigInitCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project: %s\n", orDefault(cfg.Project.Name, "(directory name)"))
			fmt.Fprintf(out, "Project Path: %s\n", orDefault(cfg.Project.Path, "(current directory)"))
			fmt.Fprintf(out, "Remote: %s (%s)\n", cfg.Remote.Name, cfg.Remote.Kind)
			switch cfg.Remote.Kind {
			case config.RemoteFolder:
				fmt.Fprintf(out, "Remote Path: %s\n", cfg.Remote.Path)
			case config.RemoteS3:
				fmt.Fprintf(out, "Bucket: %s\n", cfg.Remote.Bucket)
				fmt.Fprintf(out, "Prefix: %s\n", cfg.Remote.Prefix)
			case config.RemoteDrive:
				fmt.Fprintf(out, "Folder ID: %s\n", cfg.Remote.FolderID)
				fmt.Fprintf(out, "Logged In: %t\n", cfg.Remote.AccessToken != "" || cfg.Remote.RefreshToken != "")
			}
			fmt.Fprintf(out, "Max Transfers: %d\n", cfg.Performance.MaxTransfers)
			fmt.Fprintf(out, "Hash Workers: %d\n", cfg.Performance.HashWorkers)
			fmt.Fprintf(out, "Output Format: %s\n", cfg.Output.Format)
			fmt.Fprintf(out, "Log Format: %s\n", cfg.Logging.Format)
			fmt.Fprintf(out, "Log Level: %s\n", cfg.Logging.Level)

			return nil
		},
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
			}

			cfg := config.Default()
			if err := config.Save(cfg, path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}
