package report

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/roach88/testmatrix/internal/harness"
)

// Console echoes failing and erroring runs while a batch report is built.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole creates a console echo on w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Begin implements harness.Observer.
func (c *Console) Begin(int) {}

// Result prints r if it failed or errored.
func (c *Console) Result(r *harness.Result) {
	var tag string
	switch r.Status.Kind {
	case harness.Errored:
		tag = "ERROR"
	case harness.Failed:
		tag = "FAIL"
	default:
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "Test: %s\n", r.Name())
	fmt.Fprintf(c.w, "%s: %s\n", tag, strings.TrimSpace(r.Status.Message))
	if detail := strings.TrimSpace(r.Status.Detail); detail != "" {
		fmt.Fprintln(c.w, detail)
	}
}
