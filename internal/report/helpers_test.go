package report

import (
	"time"

	"github.com/roach88/testmatrix/internal/directive"
	"github.com/roach88/testmatrix/internal/harness"
	"github.com/roach88/testmatrix/internal/runner"
	"github.com/roach88/testmatrix/internal/testutil"
)

func request(test, backend string) harness.Request {
	return harness.Request{
		Test:    test,
		Source:  "tests/" + test + ".c",
		Variant: directive.DefaultVariant(),
		Backend: backend,
		Process: runner.Request{
			Path: "build/" + test,
			Args: []string{"-ceed", backend},
		},
	}
}

func outcome(stdout, stderr string, code int) runner.Outcome {
	return runner.Outcome{
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: code,
		Started:  testutil.Epoch,
		Elapsed:  1500 * time.Millisecond,
	}
}

// sampleSuite covers every classification once.
func sampleSuite() *harness.Suite {
	s := harness.NewSuite("t001-ceed")
	s.Add(&harness.Result{
		Request: request("t001-ceed", "/cpu/self"),
		Outcome: outcome("hello\n", "", 0),
		Status:  harness.Pass(""),
	})
	s.Add(&harness.Result{
		Request: request("t001-ceed", "/gpu/cuda"),
		Status:  harness.Skip(harness.PreRunSkipReason),
	})
	s.Add(&harness.Result{
		Request: request("t001-ceed", "/cpu/self/opt"),
		Outcome: outcome("bye\n", "", 0),
		Status: harness.Fail(harness.FailureDiff, "stdout",
			"--- tests/output/t001-ceed.out\n+++ New\n@@ -1 +1 @@\n-hello\n+bye\n"),
	})
	s.Add(&harness.Result{
		Request: request("t001-ceed", "/cpu/self/ref"),
		Outcome: outcome("", "", 3),
		Status:  harness.Error("returncode = 3", ""),
	})
	return s
}

func emit(o harness.Observer, s *harness.Suite) {
	o.Begin(len(s.Results))
	for _, r := range s.Results {
		o.Result(r)
	}
}
