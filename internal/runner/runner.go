// Package runner spawns test binaries and captures their outcome.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"syscall"
	"time"

	"golang.org/x/text/encoding/unicode"
)

// ErrorHandlerVar selects the library's error handler in the spawned process.
const ErrorHandlerVar = "CEED_ERROR_HANDLER"

// DefaultErrorHandler makes fatal library errors exit with a message on stderr.
const DefaultErrorHandler = "exit"

// Env is the environment override applied to every spawned process.
type Env struct {
	// ErrorHandler is exported as ErrorHandlerVar. Empty leaves the inherited value.
	ErrorHandler string

	// Extra holds additional variables to set.
	Extra map[string]string
}

// DefaultEnv forces the non-interactive "exit" error handler.
func DefaultEnv() Env {
	return Env{ErrorHandler: DefaultErrorHandler}
}

// Environ returns base with the override appended. Later entries win in
// os/exec, so overrides take precedence over inherited values.
func (e Env) Environ(base []string) []string {
	env := make([]string, len(base), len(base)+len(e.Extra)+1)
	copy(env, base)

	if e.ErrorHandler != "" {
		env = append(env, ErrorHandlerVar+"="+e.ErrorHandler)
	}

	keys := make([]string, 0, len(e.Extra))
	for k := range e.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, e.Extra[k]))
	}
	return env
}

// Request is one fully substituted process invocation.
type Request struct {
	// Path is the executable.
	Path string

	// Args are passed after the executable path.
	Args []string

	// Dir is the working directory. Empty uses the caller's.
	Dir string

	Env Env
}

// Argv returns the full argument vector including the executable.
func (r Request) Argv() []string {
	return append([]string{r.Path}, r.Args...)
}

// Outcome is the raw result of a process execution.
type Outcome struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Started  time.Time
	Elapsed  time.Duration
}

// Runner executes test processes.
type Runner interface {
	// Run blocks until the process exits. The returned error is non-nil only
	// when the process could not be started; a non-zero exit is reported
	// through Outcome.ExitCode.
	Run(ctx context.Context, req Request) (Outcome, error)
}

// Exec runs requests as operating system processes.
type Exec struct {
	// Environ supplies the inherited environment. Defaults to os.Environ.
	Environ func() []string
}

// Run implements Runner.
func (e Exec) Run(ctx context.Context, req Request) (Outcome, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, req.Path, req.Args...)
	cmd.Dir = req.Dir
	cmd.Env = req.Env.Environ(e.environ())
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	out := Outcome{Started: time.Now()}
	if err := cmd.Start(); err != nil {
		return out, fmt.Errorf("start %s: %w", req.Path, err)
	}

	waitErr := cmd.Wait()
	out.Elapsed = time.Since(out.Started)
	out.Stdout = decode(stdout.Bytes())
	out.Stderr = decode(stderr.Bytes())

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return out, fmt.Errorf("wait %s: %w", req.Path, waitErr)
		}
		out.ExitCode = exitCode(exitErr)
	}
	return out, nil
}

func (e Exec) environ() []string {
	if e.Environ != nil {
		return e.Environ()
	}
	return os.Environ()
}

// decode converts captured bytes to text, replacing invalid UTF-8 sequences.
func decode(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	s, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

// exitCode reports the process exit status, or the negated signal number
// when the process was killed by a signal.
func exitCode(exitErr *exec.ExitError) int {
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return -int(status.Signal())
	}
	return exitErr.ExitCode()
}
