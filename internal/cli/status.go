package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/syncbase/pkg/output"
	"github.com/sdejongh/syncbase/pkg/sync"
)

type statusOptions struct {
	TransferFlags
	All bool
}

var statusFlags statusOptions

// NewStatusCommand creates the status command
func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what changed locally and on the remote",
		Long: `Scan the project, fetch the remote manifest and classify every path
against the baseline recorded by the last commit or pull.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}

	cmd.Flags().BoolVarP(&statusFlags.All, "all", "a", false, "also list synchronized paths")
	cmd.Flags().StringSliceVar(&statusFlags.Exclude, "exclude", []string{}, "extra gitignore-style patterns to exclude")
	cmd.Flags().StringVarP(&statusFlags.Output, "output", "o", "", "output format: human, json")
	addLogFlags(cmd, &statusFlags.LogFile, &statusFlags.LogFormat, &statusFlags.LogLevel)

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, err := openProject(ctx, &statusFlags.TransferFlags)
	if err != nil {
		return err
	}
	defer p.Close()

	engine, err := sync.NewEngine(transferOptions(p.cfg, nil), nil, p.logger)
	if err != nil {
		return err
	}
	status, err := engine.ScanStatus(ctx, p.session)
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	return output.WriteStatus(cmd.OutOrStdout(), p.cfg.Output.Format, output.StatusView{
		Project:   p.session.ProjectName,
		Remote:    p.session.RemoteName,
		Records:   status.Records,
		Anomalies: status.Anomalies,
		All:       statusFlags.All,
	})
}
