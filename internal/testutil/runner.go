package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/roach88/testmatrix/internal/runner"
)

// Script is the canned response of a FakeRunner for one backend.
type Script struct {
	Stdout   string
	Stderr   string
	ExitCode int

	// Err simulates a spawn failure.
	Err error
}

// FakeRunner returns scripted outcomes instead of spawning processes.
//
// Responses are keyed by backend: the first request argument with a script
// selects it. Every outcome starts at Epoch and takes Elapsed.
//
// Thread-safety: FakeRunner is safe for concurrent use.
type FakeRunner struct {
	mu      sync.Mutex
	scripts map[string]Script
	calls   []runner.Request

	// Default answers backends without a script.
	Default Script

	// Elapsed is reported for every run.
	Elapsed time.Duration
}

// NewFakeRunner creates a runner answering an empty, successful run by default.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		scripts: make(map[string]Script),
		Elapsed: 250 * time.Millisecond,
	}
}

// On scripts the response for backend.
func (f *FakeRunner) On(backend string, s Script) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[backend] = s
	return f
}

// Run implements runner.Runner.
func (f *FakeRunner) Run(_ context.Context, req runner.Request) (runner.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)

	s := f.Default
	for _, arg := range req.Args {
		if scripted, ok := f.scripts[arg]; ok {
			s = scripted
			break
		}
	}

	out := runner.Outcome{Started: Epoch}
	if s.Err != nil {
		return out, s.Err
	}
	out.Stdout = s.Stdout
	out.Stderr = s.Stderr
	out.ExitCode = s.ExitCode
	out.Elapsed = f.Elapsed
	return out, nil
}

// Calls returns the requests received so far.
func (f *FakeRunner) Calls() []runner.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runner.Request(nil), f.calls...)
}

// CommandLines renders the received requests as space-joined argv strings.
func (f *FakeRunner) CommandLines() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = strings.Join(c.Argv(), " ")
	}
	return out
}
