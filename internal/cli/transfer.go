package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/syncbase/internal/platform"
	"github.com/sdejongh/syncbase/pkg/models"
	"github.com/sdejongh/syncbase/pkg/output"
	"github.com/sdejongh/syncbase/pkg/sync"
)

var (
	commitFlags TransferFlags
	pullFlags   TransferFlags
)

// NewCommitCommand creates the commit command
func NewCommitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit [paths...]",
		Short: "Publish local changes to the remote",
		Long: `Upload new and edited files, delete on the remote what was deleted
locally and publish the remote manifest. Paths are relative to the project
directory; without paths every local change is committed. Conflicts are
skipped unless --resolve is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd, args, &commitFlags, func(ctx context.Context, e *sync.Engine, s *sync.Session, records []models.StatusRecord) (*models.TransferReport, error) {
				return e.Commit(ctx, s, records, commitFlags.Message)
			})
		},
	}

	cmd.Flags().StringVarP(&commitFlags.Message, "message", "m", "", "commit message (required)")
	cmd.MarkFlagRequired("message")
	addTransferFlags(cmd, &commitFlags)

	return cmd
}

// NewPullCommand creates the pull command
func NewPullCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull [paths...]",
		Short: "Apply remote changes to the project",
		Long: `Download new and changed files from the remote and delete locally
what was deleted on the remote. Paths are relative to the project directory;
without paths every remote change is pulled. Conflicts are skipped unless
--resolve is given, in which case the remote copy wins.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd, args, &pullFlags, func(ctx context.Context, e *sync.Engine, s *sync.Session, records []models.StatusRecord) (*models.TransferReport, error) {
				return e.Pull(ctx, s, records)
			})
		},
	}

	addTransferFlags(cmd, &pullFlags)

	return cmd
}

type transferFunc func(ctx context.Context, e *sync.Engine, s *sync.Session, records []models.StatusRecord) (*models.TransferReport, error)

// runTransfer computes the status, selects the records named by args and
// runs fn on them.
func runTransfer(cmd *cobra.Command, args []string, flags *TransferFlags, fn transferFunc) error {
	ctx := cmd.Context()

	p, err := openProject(ctx, flags)
	if err != nil {
		return err
	}
	defer p.Close()

	sel := sync.Selection{FilesOnly: flags.FilesOnly}
	for _, arg := range args {
		rel, err := platform.RelativeToProject(p.dir, arg)
		if err != nil {
			return err
		}
		sel.Paths = append(sel.Paths, rel)
	}

	formatter, err := createFormatter(p.cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	engine, err := sync.NewEngine(transferOptions(p.cfg, flags), formatter, p.logger)
	if err != nil {
		return err
	}

	status, err := engine.ScanStatus(ctx, p.session)
	if err != nil {
		return fmt.Errorf("%s failed: %w", cmd.Name(), err)
	}

	report, err := fn(ctx, engine, p.session, status.Select(sel))
	if report == nil {
		return fmt.Errorf("%s failed: %w", cmd.Name(), err)
	}
	report.Anomalies = append(report.Anomalies, status.Anomalies...)
	return finishTransfer(formatter, report, err, flags)
}

// finishTransfer prints the report, writes the report file and maps the
// outcome to an exit code.
func finishTransfer(formatter output.Formatter, report *models.TransferReport, runErr error, flags *TransferFlags) error {
	if err := formatter.Complete(report); err != nil {
		return err
	}

	if flags.Report != "" {
		if err := output.WriteReportFile(report, flags.Report, flags.ReportFormat); err != nil {
			return fmt.Errorf("failed to write transfer report: %w", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	if code := report.Status.ExitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}
