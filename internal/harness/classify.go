package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/roach88/testmatrix/internal/compare"
	"github.com/roach88/testmatrix/internal/policy"
	"github.com/roach88/testmatrix/internal/runner"
)

// PreRunSkipReason is the skip message for runs matched by a skip rule.
const PreRunSkipReason = "Pre-run skip rule"

// Classifier turns a request into a classified result.
type Classifier struct {
	Rules  *policy.Rules
	Runner runner.Runner
	Clock  Clock

	// ReferenceDir holds the golden <test>.out files.
	ReferenceDir string

	Logger *slog.Logger
}

// ReferencePath returns the golden output file of test.
func (c *Classifier) ReferencePath(test string) string {
	return filepath.Join(c.ReferenceDir, test+".out")
}

// Classify runs the ordered decision procedure for req.
// It always returns a result; problems are recorded in its status.
func (c *Classifier) Classify(ctx context.Context, req Request) *Result {
	logger := c.logger()

	if c.Rules.ShouldSkip(req.Test, req.Backend) {
		logger.Info("skip rule matched", "test", req.Test, "backend", req.Backend)
		return &Result{
			Request: req,
			Outcome: runner.Outcome{Started: c.now()},
			Status:  Skip(PreRunSkipReason),
		}
	}

	logger.Debug("spawning", "argv", req.Process.Argv())
	out, err := c.Runner.Run(ctx, req.Process)
	if out.Started.IsZero() {
		out.Started = c.now()
	}
	if err != nil {
		logger.Warn("spawn failed", "test", req.Test, "backend", req.Backend, "error", err)
		return &Result{
			Request: req,
			Outcome: out,
			Status:  Error("failed to start test binary", err.Error()),
		}
	}

	status := c.Decide(req.Test, req.Backend, out)
	logger.Debug("classified",
		"test", req.Test,
		"backend", req.Backend,
		"variant", req.Variant.Name,
		"status", status.Kind.String(),
		"exit_code", out.ExitCode,
	)
	return &Result{Request: req, Outcome: out, Status: status}
}

// Decide classifies the outcome of a process that ran.
func (c *Classifier) Decide(test, backend string, out runner.Outcome) Status {
	if l, ok := c.Rules.Limitation(out.Stderr); ok {
		return Skip(l.SkipReason(test, backend))
	}

	if rule, ok := c.Rules.RequiredFailure(test, backend); ok {
		passed, msg := rule.Check(out.Stderr)
		if passed {
			return Pass(msg)
		}
		return Fail(FailureRequired, msg, out.Stderr)
	}

	if out.Stderr != "" {
		return Fail(FailureStderr, "stderr", out.Stderr)
	}

	if out.ExitCode != 0 {
		return Error(fmt.Sprintf("returncode = %d", out.ExitCode), "")
	}

	ref, err := compare.Compare(c.ReferencePath(test), out.Stdout)
	if err != nil {
		return Error("cannot compare output", err.Error())
	}
	if ref.Exists {
		if !ref.Match() {
			return Fail(FailureDiff, "stdout", ref.Diff)
		}
		return Pass("")
	}

	if out.Stdout != "" && !c.Rules.StdoutAllowed(test) {
		return Fail(FailureStdout, "stdout", out.Stdout)
	}

	return Pass("")
}

func (c *Classifier) now() time.Time {
	if c.Clock == nil {
		return SystemClock{}.Now()
	}
	return c.Clock.Now()
}

func (c *Classifier) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}
