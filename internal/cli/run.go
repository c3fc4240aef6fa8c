package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/testmatrix/internal/directive"
	"github.com/roach88/testmatrix/internal/harness"
	"github.com/roach88/testmatrix/internal/policy"
	"github.com/roach88/testmatrix/internal/report"
	"github.com/roach88/testmatrix/internal/runner"
	"github.com/roach88/testmatrix/internal/store"
)

// Run modes.
const (
	ModeJUnit = "junit"
	ModeTAP   = "tap"
)

// Environment variables read by the run command.
const (
	BackendsEnv   = "BACKENDS"
	JUnitBatchEnv = "JUNIT_BATCH"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Mode         string
	Output       string
	Backends     string
	Root         string
	BuildDir     string
	ReferenceDir string
	RulesFile    string
	Database     string
	Jobs         int
	ErrorHandler string

	// Runner allows overriding process spawning (for testing).
	// If nil, defaults to runner.Exec.
	Runner runner.Runner

	// IDGenerator allows overriding the run ID generator (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	IDGenerator store.IDGenerator

	// Clock allows overriding run timestamps (for testing).
	// If nil, defaults to harness.SystemClock.
	Clock harness.Clock
}

// RunSummary is the batch-mode result of the run command.
type RunSummary struct {
	Test     string         `json:"test"`
	Source   string         `json:"source"`
	Mode     string         `json:"mode"`
	Report   string         `json:"report,omitempty"`
	Backends []string       `json:"backends"`
	Counts   harness.Counts `json:"counts"`
	Elapsed  float64        `json:"elapsed_seconds"`
}

func (s RunSummary) String() string {
	c := s.Counts
	out := fmt.Sprintf("%s: %d runs, %d passed, %d skipped, %d failed, %d errored",
		s.Test, c.Total, c.Passed, c.Skipped, c.Failed, c.Errored)
	if s.Report != "" {
		out += "\nreport: " + s.Report
	}
	return out
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

// newRunCommand binds the run flags to opts, keeping its overrides.
func newRunCommand(opts *RunOptions) *cobra.Command {
	defaults := harness.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "run <test>",
		Short: "Run one test across every backend",
		Long: `Run the test binary <build-dir>/<test> once per argument variant declared
in its source and per backend, and classify each run.

In junit mode (default) results are collected into a JUnit XML report and
failing runs are echoed to stderr. In tap mode results stream to stdout as
they complete.

Backends come from --backends or the BACKENDS environment variable. The
default report path is <build-dir>/<test>[-$JUNIT_BATCH].junit.

Exit codes:
  0 - All runs passed or were skipped (always, in tap mode)
  1 - One or more runs failed or errored
  2 - Command error (bad flags, missing source, invalid variants, etc.)

Examples:
  testmatrix run t001-ceed --backends "/cpu/self/ref/serial /cpu/self/opt/blocked"
  BACKENDS="/cpu/self" testmatrix run t300-elemrestriction --mode tap
  testmatrix run ex1-volume --db history.db --jobs 4`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", ModeJUnit, "report mode (junit|tap)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "JUnit report path")
	cmd.Flags().StringVar(&opts.Backends, "backends", "", "space-separated backend resources (default $BACKENDS)")
	cmd.Flags().StringVar(&opts.Root, "root", defaults.Root, "repository root")
	cmd.Flags().StringVar(&opts.BuildDir, "build-dir", defaults.BuildDir, "directory of test executables, relative to root")
	cmd.Flags().StringVar(&opts.ReferenceDir, "reference-dir", defaults.ReferenceDir, "directory of reference outputs, relative to root")
	cmd.Flags().StringVar(&opts.RulesFile, "rules", "", "rule file (.yaml, .toml or .cue) applied to the default rules")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().IntVar(&opts.Jobs, "jobs", defaults.Jobs, "backends of one variant run concurrently")
	cmd.Flags().StringVar(&opts.ErrorHandler, "error-handler", defaults.Env.ErrorHandler, "value exported as "+runner.ErrorHandlerVar)

	return cmd
}

func runTest(opts *RunOptions, test string, cmd *cobra.Command) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	slog.SetDefault(logger)

	mode := strings.ToLower(opts.Mode)
	if mode != ModeJUnit && mode != ModeTAP {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid mode %q: must be %s or %s", opts.Mode, ModeJUnit, ModeTAP))
	}

	backends := resolveBackends(opts.Backends)
	if len(backends) == 0 {
		return NewExitError(ExitCommandError, "no backends: set --backends or "+BackendsEnv)
	}

	rules, err := loadRules(opts.RulesFile)
	if err != nil {
		return err
	}

	run := opts.Runner
	if run == nil {
		run = runner.Exec{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = harness.SystemClock{}
	}
	idGen := opts.IDGenerator
	if idGen == nil {
		idGen = store.UUIDv7Generator{}
	}

	cfg := harness.Config{
		Root:         opts.Root,
		BuildDir:     opts.BuildDir,
		ReferenceDir: opts.ReferenceDir,
		Env:          runner.Env{ErrorHandler: opts.ErrorHandler},
		Jobs:         opts.Jobs,
	}
	h := harness.New(cfg, rules, run, harness.WithLogger(logger), harness.WithClock(clock))

	plan, err := h.Plan(test, backends)
	if err != nil {
		switch {
		case harness.IsConfigError(err):
			return WrapExitError(ExitCommandError, "invalid test configuration", err)
		case errors.Is(err, directive.ErrUnsupportedSourceKind):
			return WrapExitError(ExitCommandError, "unsupported test source", err)
		}
		return WrapExitError(ExitCommandError, "failed to plan test", err)
	}

	var obs harness.Observer = report.NewConsole(cmd.ErrOrStderr())
	if mode == ModeTAP {
		obs = report.NewTAP(cmd.OutOrStdout())
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	runID := idGen.Generate()
	started := clock.Now()
	suite, runErr := h.Execute(ctx, plan, obs)
	elapsed := clock.Now().Sub(started)

	summary := RunSummary{
		Test:     test,
		Source:   plan.Source,
		Mode:     mode,
		Backends: backends,
		Counts:   suite.Counts(),
		Elapsed:  elapsed.Seconds(),
	}

	if mode == ModeJUnit {
		summary.Report = reportPath(opts, test)
		doc := report.NewJUnit(report.NewJUnitSuite(suite, report.JUnitOptions{RunID: runID}))
		if err := doc.WriteFile(summary.Report); err != nil {
			return WrapExitError(ExitCommandError, "failed to write report", err)
		}
		logger.Info("report written", "path", summary.Report, "runs", summary.Counts.Total)
	}

	if opts.Database != "" {
		info := store.RunInfo{
			ID:       runID,
			Test:     test,
			Source:   plan.Source,
			Mode:     mode,
			Backends: backends,
			Started:  started,
			Elapsed:  elapsed,
		}
		if err := recordRun(ctx, opts.Database, info, suite); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		logger.Info("run recorded", "db", opts.Database, "run_id", runID)
	}

	if runErr != nil {
		return WrapExitError(ExitFailure, "run interrupted", runErr)
	}

	if mode == ModeTAP {
		return nil
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if suite.HasFailures() {
		msg := fmt.Sprintf("%d of %d runs failed", summary.Counts.Failed+summary.Counts.Errored, summary.Counts.Total)
		if err := formatter.ErrorWithRun(runID, "RUN_FAILED", msg, summary); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return formatter.SuccessWithRun(runID, summary)
}

// newLogger returns a text logger on w at Info, or Debug when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// resolveBackends splits the flag value, falling back to BACKENDS.
func resolveBackends(flag string) []string {
	if strings.TrimSpace(flag) == "" {
		flag = os.Getenv(BackendsEnv)
	}
	return strings.Fields(flag)
}

// loadRules returns the default rules, extended or replaced by path.
func loadRules(path string) (*policy.Rules, error) {
	if path == "" {
		return policy.Default(), nil
	}
	rules, err := policy.Load(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load rules", err)
	}
	return rules, nil
}

// reportPath is --output, or <root>/<build-dir>/<test>[-$JUNIT_BATCH].junit.
func reportPath(opts *RunOptions, test string) string {
	if opts.Output != "" {
		return opts.Output
	}
	name := test
	if batch := os.Getenv(JUnitBatchEnv); batch != "" {
		name += "-" + batch
	}
	return filepath.Join(opts.Root, opts.BuildDir, name+report.JUnitExt)
}

func recordRun(ctx context.Context, path string, info store.RunInfo, suite *harness.Suite) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	// A run interrupted by a signal is still recorded.
	return st.WriteSuite(context.WithoutCancel(ctx), info, suite)
}

// signalContext cancels the returned context on SIGINT or SIGTERM.
// Uses the command's context if available (for testing).
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
