package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/testmatrix/internal/harness"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run is a recorded run with its tallies.
type Run struct {
	RunInfo
	Counts harness.Counts `json:"counts"`
}

// ResultRecord is one recorded result.
type ResultRecord struct {
	Position    int           `json:"position"`
	Name        string        `json:"name"`
	Variant     string        `json:"variant,omitempty"`
	Backend     string        `json:"backend"`
	CommandLine string        `json:"command_line"`
	Kind        string        `json:"kind"`
	Failure     string        `json:"failure,omitempty"`
	Message     string        `json:"message,omitempty"`
	Detail      string        `json:"detail,omitempty"`
	ExitCode    int           `json:"exit_code"`
	Elapsed     time.Duration `json:"elapsed"`
	Stdout      string        `json:"stdout,omitempty"`
	Stderr      string        `json:"stderr,omitempty"`
}

const runColumns = `id, test, source, mode, backends, started_at, elapsed_ms, total, passed, skipped, failed, errored`

// Runs lists recorded runs newest first. An empty test lists every test;
// a non-positive limit returns all matching runs.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) Runs(ctx context.Context, test string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE ? = '' OR test = ?
		ORDER BY started_at DESC, id COLLATE BINARY DESC
		LIMIT ?
	`, test, test, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Run retrieves a single run by ID.
// Returns ErrRunNotFound if it does not exist.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// Results returns the results of a run in reported order.
//
// Returns an empty slice (not nil) if the run has no results.
func (s *Store) Results(ctx context.Context, runID string) ([]ResultRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, name, variant, backend, command_line, kind, failure, message, detail, exit_code, elapsed_ms, stdout, stderr
		FROM results
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := []ResultRecord{}
	for rows.Next() {
		var (
			r         ResultRecord
			elapsedMS int64
		)
		if err := rows.Scan(
			&r.Position, &r.Name, &r.Variant, &r.Backend, &r.CommandLine,
			&r.Kind, &r.Failure, &r.Message, &r.Detail, &r.ExitCode,
			&elapsedMS, &r.Stdout, &r.Stderr,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run       Run
		backends  string
		started   string
		elapsedMS int64
	)
	err := row.Scan(
		&run.ID, &run.Test, &run.Source, &run.Mode, &backends, &started, &elapsedMS,
		&run.Counts.Total, &run.Counts.Passed, &run.Counts.Skipped,
		&run.Counts.Failed, &run.Counts.Errored,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	run.Backends = strings.Fields(backends)
	run.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	run.Started, err = time.Parse(timeLayout, started)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at %q: %w", started, err)
	}
	return run, nil
}
