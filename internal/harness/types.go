package harness

import (
	"path/filepath"
	"strings"

	"github.com/roach88/testmatrix/internal/directive"
	"github.com/roach88/testmatrix/internal/runner"
)

// Kind is the final classification of a run.
type Kind int

const (
	Passed Kind = iota
	Skipped
	Failed
	Errored
)

func (k Kind) String() string {
	switch k {
	case Passed:
		return "pass"
	case Skipped:
		return "skip"
	case Failed:
		return "fail"
	case Errored:
		return "error"
	}
	return "unknown"
}

// FailureKind says which check a failed run tripped.
type FailureKind string

const (
	FailureStderr   FailureKind = "stderr"
	FailureStdout   FailureKind = "stdout"
	FailureDiff     FailureKind = "diff"
	FailureRequired FailureKind = "required"
)

// Status is the classification of one run. Exactly one Kind holds.
type Status struct {
	Kind Kind `json:"kind"`

	// Failure is set only for Failed.
	Failure FailureKind `json:"failure,omitempty"`

	// Message is the short reason: skip reason, failure or error message,
	// or an optional note for Passed.
	Message string `json:"message,omitempty"`

	// Detail carries long-form output such as stderr or a diff.
	Detail string `json:"detail,omitempty"`
}

// Pass returns a passing status with an optional note.
func Pass(note string) Status {
	return Status{Kind: Passed, Message: note}
}

// Skip returns a skipped status.
func Skip(reason string) Status {
	return Status{Kind: Skipped, Message: reason}
}

// Fail returns a failed status.
func Fail(kind FailureKind, message, detail string) Status {
	return Status{Kind: Failed, Failure: kind, Message: message, Detail: detail}
}

// Error returns an errored status.
func Error(message, detail string) Status {
	return Status{Kind: Errored, Message: message, Detail: detail}
}

// Request is one concrete (test, variant, backend) run.
type Request struct {
	Test string

	// Source is the test's source file the variant was declared in.
	Source string

	Variant directive.Variant

	// VariantIndex is the position of Variant in the plan.
	VariantIndex int

	Backend string

	// Process is the fully substituted invocation.
	Process runner.Request
}

// Name identifies the run in reports: test, variant name (if any) and backend.
func (r Request) Name() string {
	parts := []string{r.Test}
	if r.Variant.Name != "" {
		parts = append(parts, r.Variant.Name)
	}
	parts = append(parts, r.Backend)
	return strings.Join(parts, " ")
}

// ClassName groups runs by the directory of their source.
func (r Request) ClassName() string {
	return filepath.ToSlash(filepath.Dir(r.Source))
}

// CommandLine renders the process argument vector.
func (r Request) CommandLine() string {
	return strings.Join(r.Process.Argv(), " ")
}

// Result is a classified run.
type Result struct {
	// Index is the 1-based position of the run in its suite.
	Index int

	Request Request
	Outcome runner.Outcome
	Status  Status
}

// Name is shorthand for Request.Name.
func (r *Result) Name() string {
	return r.Request.Name()
}

// Counts tallies results by kind.
type Counts struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
}

// Suite accumulates the results of one test in run order.
type Suite struct {
	Test    string
	Results []*Result
}

// NewSuite creates an empty suite for test.
func NewSuite(test string) *Suite {
	return &Suite{Test: test, Results: []*Result{}}
}

// Add appends r and assigns its index.
func (s *Suite) Add(r *Result) {
	s.Results = append(s.Results, r)
	r.Index = len(s.Results)
}

// Counts tallies the suite.
func (s *Suite) Counts() Counts {
	c := Counts{Total: len(s.Results)}
	for _, r := range s.Results {
		switch r.Status.Kind {
		case Passed:
			c.Passed++
		case Skipped:
			c.Skipped++
		case Failed:
			c.Failed++
		case Errored:
			c.Errored++
		}
	}
	return c
}

// HasFailures reports whether any run failed or errored.
func (s *Suite) HasFailures() bool {
	c := s.Counts()
	return c.Failed+c.Errored > 0
}
