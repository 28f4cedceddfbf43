package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/syncbase/pkg/sync"
)

type initOptions struct {
	TransferFlags
	Push bool
}

var initFlags initOptions

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Start tracking a project directory",
		Long: `Write an empty baseline manifest (<project>.sync) in the project
directory. With --push every local file and folder is committed right away.`,
		Args: cobra.NoArgs,
		RunE: runInit,
	}

	cmd.Flags().BoolVar(&initFlags.Push, "push", false, "commit every local file to the remote")
	cmd.Flags().StringVarP(&initFlags.Message, "message", "m", "initial commit", "commit message used with --push")
	cmd.Flags().IntVarP(&initFlags.Parallel, "parallel", "p", 0, "number of concurrent transfers (default: 10)")
	cmd.Flags().StringVarP(&initFlags.Bandwidth, "bandwidth", "b", "", "bandwidth limit (e.g., \"10M\", \"1G\")")
	cmd.Flags().StringSliceVar(&initFlags.Exclude, "exclude", []string{}, "extra gitignore-style patterns to exclude")
	cmd.Flags().StringVarP(&initFlags.Output, "output", "o", "", "output format: human, json")
	cmd.Flags().StringVar(&initFlags.Report, "report", "", "write the transfer report to file")
	cmd.Flags().StringVar(&initFlags.ReportFormat, "report-format", "human", "transfer report format: human, json")
	addLogFlags(cmd, &initFlags.LogFile, &initFlags.LogFormat, &initFlags.LogLevel)

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, err := openProject(ctx, &initFlags.TransferFlags)
	if err != nil {
		return err
	}
	defer p.Close()

	formatter, err := createFormatter(p.cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	engine, err := sync.NewEngine(transferOptions(p.cfg, &initFlags.TransferFlags), formatter, p.logger)
	if err != nil {
		return err
	}

	if !initFlags.Push {
		if _, err := engine.Initialize(ctx, p.session); err != nil {
			return err
		}
		if !p.cfg.Output.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized project %s in %s\n", p.session.ProjectName, p.dir)
		}
		return nil
	}

	report, err := engine.InitializeAndCommit(ctx, p.session, initFlags.Message)
	if report == nil {
		return fmt.Errorf("init failed: %w", err)
	}
	return finishTransfer(formatter, report, err, &initFlags.TransferFlags)
}
