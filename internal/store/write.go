package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/testmatrix/internal/harness"
)

// timeLayout is fixed-width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// RunInfo describes one driver invocation.
type RunInfo struct {
	ID       string        `json:"id"`
	Test     string        `json:"test"`
	Source   string        `json:"source"`
	Mode     string        `json:"mode"`
	Backends []string      `json:"backends"`
	Started  time.Time     `json:"started"`
	Elapsed  time.Duration `json:"elapsed"`
}

// WriteSuite records info and every result of suite in one transaction.
// Writing a run ID twice fails.
func (s *Store) WriteSuite(ctx context.Context, info RunInfo, suite *harness.Suite) error {
	if info.ID == "" {
		return errors.New("write suite: empty run ID")
	}
	if info.Test == "" {
		info.Test = suite.Test
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write suite: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	c := suite.Counts()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, test, source, mode, backends, started_at, elapsed_ms, total, passed, skipped, failed, errored)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		info.ID,
		info.Test,
		info.Source,
		info.Mode,
		strings.Join(info.Backends, " "),
		formatTime(info.Started),
		info.Elapsed.Milliseconds(),
		c.Total,
		c.Passed,
		c.Skipped,
		c.Failed,
		c.Errored,
	)
	if err != nil {
		return fmt.Errorf("write suite: insert run: %w", err)
	}

	for _, r := range suite.Results {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO results
			(run_id, position, name, variant, backend, command_line, kind, failure, message, detail, exit_code, elapsed_ms, stdout, stderr)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			info.ID,
			r.Index,
			r.Name(),
			r.Request.Variant.Name,
			r.Request.Backend,
			r.Request.CommandLine(),
			r.Status.Kind.String(),
			string(r.Status.Failure),
			r.Status.Message,
			r.Status.Detail,
			r.Outcome.ExitCode,
			r.Outcome.Elapsed.Milliseconds(),
			r.Outcome.Stdout,
			r.Outcome.Stderr,
		)
		if err != nil {
			return fmt.Errorf("write suite: insert result %d: %w", r.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write suite: commit: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
