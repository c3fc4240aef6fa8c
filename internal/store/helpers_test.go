package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/testmatrix/internal/directive"
	"github.com/roach88/testmatrix/internal/harness"
	"github.com/roach88/testmatrix/internal/runner"
	"github.com/roach88/testmatrix/internal/testutil"
)

// createTestStore opens a fresh store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestResult(test, backend string, status harness.Status) *harness.Result {
	return &harness.Result{
		Request: harness.Request{
			Test:    test,
			Source:  "tests/" + test + ".c",
			Variant: directive.DefaultVariant(),
			Backend: backend,
			Process: runner.Request{Path: "build/" + test, Args: []string{"-ceed", backend}},
		},
		Outcome: runner.Outcome{
			Stdout:  "out\n",
			Started: testutil.Epoch,
			Elapsed: 1200 * time.Millisecond,
		},
		Status: status,
	}
}

func createTestSuite(test string) *harness.Suite {
	s := harness.NewSuite(test)
	s.Add(createTestResult(test, "/cpu/self", harness.Pass("")))
	s.Add(createTestResult(test, "/gpu/cuda", harness.Skip(harness.PreRunSkipReason)))
	s.Add(createTestResult(test, "/cpu/self/opt", harness.Fail(harness.FailureDiff, "stdout", "-a\n+b\n")))
	return s
}

func createTestInfo(id, test string, started time.Time) RunInfo {
	return RunInfo{
		ID:       id,
		Test:     test,
		Source:   "tests/" + test + ".c",
		Mode:     "junit",
		Backends: []string{"/cpu/self", "/gpu/cuda", "/cpu/self/opt"},
		Started:  started,
		Elapsed:  3 * time.Second,
	}
}
