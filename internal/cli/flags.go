package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// GlobalFlags holds global flag values
type GlobalFlags struct {
	ConfigFile string
	ProjectDir string
	Verbose    bool
	Quiet      bool
}

var globalFlags GlobalFlags

// AddGlobalFlags adds global flags to the root command
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&globalFlags.ConfigFile,
		"config",
		"",
		"config file (default is $SYNCBASE_CONFIG or syncbase/config.yaml in the user config directory)",
	)
	cmd.PersistentFlags().StringVarP(
		&globalFlags.ProjectDir,
		"project",
		"C",
		"",
		"project directory (default is project.path or the current directory)",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Verbose,
		"verbose",
		"v",
		false,
		"verbose output",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Quiet,
		"quiet",
		"q",
		false,
		"suppress non-error output",
	)
}

// TransferFlags holds the flags shared by commit, pull and init --push
type TransferFlags struct {
	Message      string
	Resolve      bool
	FilesOnly    bool
	DryRun       bool
	Parallel     int
	Bandwidth    string
	Exclude      []string
	Output       string
	Report       string
	ReportFormat string
	// Logging flags
	LogFile   string
	LogFormat string
	LogLevel  string
}

func addTransferFlags(cmd *cobra.Command, f *TransferFlags) {
	cmd.Flags().BoolVar(&f.Resolve, "resolve", false, "also transfer conflicting files, overwriting the other side")
	cmd.Flags().BoolVar(&f.FilesOnly, "files-only", false, "leave folder creations and deletions out")
	cmd.Flags().BoolVar(&f.DryRun, "dry-run", false, "show what would be transferred, change nothing")
	cmd.Flags().IntVarP(&f.Parallel, "parallel", "p", 0, "number of concurrent transfers (default: 10)")
	cmd.Flags().StringVarP(&f.Bandwidth, "bandwidth", "b", "", "bandwidth limit (e.g., \"10M\", \"1G\")")
	cmd.Flags().StringSliceVar(&f.Exclude, "exclude", []string{}, "extra gitignore-style patterns to exclude")
	cmd.Flags().StringVarP(&f.Output, "output", "o", "", "output format: human, json, progress")
	cmd.Flags().StringVar(&f.Report, "report", "", "write the transfer report to file")
	cmd.Flags().StringVar(&f.ReportFormat, "report-format", "human", "transfer report format: human, json")
	addLogFlags(cmd, &f.LogFile, &f.LogFormat, &f.LogLevel)
}

func addLogFlags(cmd *cobra.Command, file, format, level *string) {
	cmd.Flags().StringVar(file, "log-file", "", "write logs to file (enables logging)")
	cmd.Flags().StringVar(format, "log-format", "", "log format: text, json")
	cmd.Flags().StringVar(level, "log-level", "", "log level: debug, info, warn, error")
}

var bandwidthUnits = map[string]int64{
	"":  1,
	"B": 1,
	"K": 1 << 10,
	"M": 1 << 20,
	"G": 1 << 30,
}

// parseBandwidth parses a rate such as "512K", "10M" or "1G" (bytes per
// second, binary units). An empty string means unlimited.
func parseBandwidth(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, nil
	}
	s = strings.TrimSuffix(strings.TrimSuffix(s, "/S"), "IB")
	if len(s) > 1 && strings.HasSuffix(s, "B") && strings.ContainsAny(s[len(s)-2:len(s)-1], "KMG") {
		s = s[:len(s)-1]
	}

	i := strings.IndexFunc(s, func(r rune) bool { return (r < '0' || r > '9') && r != '.' })
	number, unit := s, ""
	if i >= 0 {
		number, unit = s[:i], s[i:]
	}
	mult, ok := bandwidthUnits[unit]
	if !ok {
		return 0, fmt.Errorf("invalid bandwidth unit %q (use K, M or G)", unit)
	}
	value, err := strconv.ParseFloat(number, 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid bandwidth: %s", s)
	}
	return int64(value * float64(mult)), nil
}
