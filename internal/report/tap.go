package report

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/roach88/testmatrix/internal/harness"
)

// TAP streams results in Test Anything Protocol form.
type TAP struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTAP creates a TAP writer on w.
func NewTAP(w io.Writer) *TAP {
	return &TAP{w: w}
}

// Begin writes the plan line.
func (t *TAP) Begin(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "1..%d\n", total)
}

// Result writes the test point for r and its diagnostics.
func (t *TAP) Result(r *harness.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.w, "# Test: %s\n", r.Name())
	fmt.Fprintf(t.w, "# $ %s\n", r.Request.CommandLine())

	st := r.Status
	msg := strings.TrimSpace(st.Message)
	switch st.Kind {
	case harness.Errored:
		fmt.Fprintf(t.w, "not ok %d - ERROR: %s\n", r.Index, msg)
	case harness.Failed:
		fmt.Fprintf(t.w, "not ok %d - FAIL: %s\n", r.Index, msg)
	case harness.Skipped:
		fmt.Fprintf(t.w, "ok %d - SKIP: %s\n", r.Index, msg)
	default:
		if msg != "" {
			fmt.Fprintf(t.w, "ok %d - PASS: %s\n", r.Index, msg)
		} else {
			fmt.Fprintf(t.w, "ok %d - PASS\n", r.Index)
		}
	}

	if st.Kind == harness.Failed || st.Kind == harness.Errored {
		writeDiagnostics(t.w, st.Detail)
	}
}

// writeDiagnostics prefixes every detail line with "# " so that only test
// points start with "ok" or "not ok".
func writeDiagnostics(w io.Writer, detail string) {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return
	}
	for _, line := range strings.Split(detail, "\n") {
		if line == "" {
			fmt.Fprintln(w, "#")
			continue
		}
		fmt.Fprintf(w, "# %s\n", line)
	}
}
