package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand assembles the syncbase command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "syncbase",
		Short: "Keep a project directory in sync with a remote copy",
		Long: `syncbase mirrors a project directory to a remote folder, S3 bucket or
Google Drive folder. It compares the local tree, the baseline recorded by the
last sync and the remote manifest, so it can tell local edits from remote
ones and report conflicts instead of overwriting them.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	AddGlobalFlags(rootCmd)

	// Add commands
	rootCmd.AddCommand(NewInitCommand())
	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewCommitCommand())
	rootCmd.AddCommand(NewPullCommand())
	rootCmd.AddCommand(NewLoginCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
