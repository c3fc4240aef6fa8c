package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/testmatrix/internal/report"
)

// GatherOptions holds flags for the gather command.
type GatherOptions struct {
	*RootOptions
	BuildDir string
	Output   string
}

// GatherSummary describes a merged report.
type GatherSummary struct {
	Output   string   `json:"output"`
	Files    []string `json:"files"`
	Tests    int      `json:"tests"`
	Failures int      `json:"failures"`
	Errors   int      `json:"errors"`
}

func (s GatherSummary) String() string {
	return fmt.Sprintf("merged %d reports (%d tests, %d failures, %d errors) into %s",
		len(s.Files), s.Tests, s.Failures, s.Errors, s.Output)
}

// NewGatherCommand creates the gather command.
func NewGatherCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GatherOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "gather [reports...]",
		Short: "Merge per-test JUnit reports",
		Long: `Merge per-test JUnit reports into a single document.

Without arguments every *.junit file in --build-dir is merged. The merged
report defaults to <build-dir>/junit.xml.

Examples:
  testmatrix gather
  testmatrix gather --build-dir build -o results.xml
  testmatrix gather build/t001-ceed.junit build/t002-ceed.junit`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGather(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.BuildDir, "build-dir", "build", "directory searched for *.junit reports")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "merged report path (default <build-dir>/junit.xml)")

	return cmd
}

func runGather(opts *GatherOptions, paths []string, cmd *cobra.Command) error {
	if len(paths) == 0 {
		found, err := report.FindJUnit(opts.BuildDir)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find reports", err)
		}
		paths = found
	}
	if len(paths) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no %s reports found in %s", report.JUnitExt, opts.BuildDir))
	}

	doc, err := report.Gather(paths)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read reports", err)
	}

	output := opts.Output
	if output == "" {
		output = filepath.Join(opts.BuildDir, "junit.xml")
	}
	if err := doc.WriteFile(output); err != nil {
		return WrapExitError(ExitCommandError, "failed to write merged report", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(GatherSummary{
		Output:   output,
		Files:    paths,
		Tests:    doc.Tests,
		Failures: doc.Failures,
		Errors:   doc.Errors,
	})
}
