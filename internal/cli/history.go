package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/testmatrix/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	RunID    string
}

// RunList is the history listing of recorded runs.
type RunList struct {
	Runs []store.Run `json:"runs"`
}

func (l RunList) String() string {
	if len(l.Runs) == 0 {
		return "No runs recorded."
	}
	var b strings.Builder
	for i, r := range l.Runs {
		if i > 0 {
			b.WriteByte('\n')
		}
		c := r.Counts
		fmt.Fprintf(&b, "%s  %s  %-24s %-5s %d runs: %d passed, %d skipped, %d failed, %d errored",
			r.ID, r.Started.Format("2006-01-02 15:04:05"), r.Test, r.Mode,
			c.Total, c.Passed, c.Skipped, c.Failed, c.Errored)
	}
	return b.String()
}

// RunDetail is one recorded run with its results.
type RunDetail struct {
	Run     store.Run            `json:"run"`
	Results []store.ResultRecord `json:"results"`
}

func (d RunDetail) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s: %s (%s) on %s",
		d.Run.ID, d.Run.Test, d.Run.Source, strings.Join(d.Run.Backends, " "))
	for _, r := range d.Results {
		fmt.Fprintf(&b, "\n  %3d %-5s %s", r.Position, r.Kind, r.Name)
		if r.Message != "" {
			fmt.Fprintf(&b, ": %s", r.Message)
		}
	}
	return b.String()
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [test]",
		Short: "Show recorded runs",
		Long: `List runs recorded with "run --db", newest first, optionally for one test.
With --run, show the classified results of a single run.

Examples:
  testmatrix history --db history.db
  testmatrix history t001-ceed --db history.db --limit 5
  testmatrix history --db history.db --run 0190a8b2-... --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			test := ""
			if len(args) == 1 {
				test = args[0]
			}
			return runHistory(opts, test, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs listed (0 for all)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the results of this run")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, test string, cmd *cobra.Command) error {
	// Do not create a database just to report it empty.
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	if opts.RunID != "" {
		run, err := st.Run(ctx, opts.RunID)
		if errors.Is(err, store.ErrRunNotFound) {
			return WrapExitError(ExitCommandError, "unknown run", err)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		results, err := st.Results(ctx, opts.RunID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read results", err)
		}
		return formatter.SuccessWithRun(run.ID, RunDetail{Run: run, Results: results})
	}

	runs, err := st.Runs(ctx, test, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	return formatter.Success(RunList{Runs: runs})
}
