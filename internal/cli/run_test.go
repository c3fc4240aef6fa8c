package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/testmatrix/internal/harness"
	"github.com/roach88/testmatrix/internal/report"
	"github.com/roach88/testmatrix/internal/store"
	"github.com/roach88/testmatrix/internal/testutil"
)

const twoBackends = "/cpu/self /gpu/cuda"

func TestRun_JUnitWritesReport(t *testing.T) {
	root := newTestRepo(t)
	fake := newFakeRunner()
	f := newRunFixture("text", fake, "t001-ceed", "--root", root, "--backends", twoBackends)

	require.NoError(t, f.cmd.Execute())

	path := filepath.Join(root, "build", "t001-ceed.junit")
	doc, err := report.ReadJUnitFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Tests)
	assert.Zero(t, doc.Failures)
	require.Len(t, doc.Suites, 1)
	require.NotNil(t, doc.Suites[0].Properties)
	assert.Equal(t, []report.JUnitProperty{{Name: "run_id", Value: "run-fixed"}}, doc.Suites[0].Properties.Properties)

	assert.Equal(t, "t001-ceed: 2 runs, 2 passed, 0 skipped, 0 failed, 0 errored\nreport: "+path+"\n", f.stdout.String())
	assert.Equal(t, []string{
		filepath.Join(root, "build", "t001-ceed") + " /cpu/self",
		filepath.Join(root, "build", "t001-ceed") + " /gpu/cuda",
	}, fake.CommandLines())
}

func TestRun_ExportsErrorHandler(t *testing.T) {
	root := newTestRepo(t)
	fake := newFakeRunner()
	f := newRunFixture("text", fake, "t001-ceed", "--root", root, "--backends", "/cpu/self")

	require.NoError(t, f.cmd.Execute())

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "exit", calls[0].Env.ErrorHandler)
}

func TestRun_FailureExitsOne(t *testing.T) {
	root := newTestRepo(t)
	fake := newFakeRunner().On("/gpu/cuda", testutil.Script{Stdout: "hello\n", Stderr: "boom\n"})
	f := newRunFixture("text", fake, "t001-ceed", "--root", root, "--backends", twoBackends)

	err := f.cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 of 2 runs failed")

	assert.Contains(t, f.stderr.String(), "Test: t001-ceed /gpu/cuda\nFAIL: stderr\nboom\n")
	assert.Contains(t, f.stdout.String(), "Error [RUN_FAILED]: 1 of 2 runs failed")

	doc, err := report.ReadJUnitFile(filepath.Join(root, "build", "t001-ceed.junit"))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Failures)
}

func TestRun_TAPNeverFails(t *testing.T) {
	root := newTestRepo(t)
	fake := newFakeRunner().On("/gpu/cuda", testutil.Script{ExitCode: 3})
	f := newRunFixture("text", fake, "t001-ceed", "--root", root, "--backends", twoBackends, "--mode", "TAP")

	require.NoError(t, f.cmd.Execute())

	out := f.stdout.String()
	assert.True(t, strings.HasPrefix(out, "1..2\n"), out)
	assert.Contains(t, out, "ok 1 - PASS\n")
	assert.Contains(t, out, "not ok 2 - ERROR: returncode = 3\n")

	_, err := os.Stat(filepath.Join(root, "build", "t001-ceed.junit"))
	assert.True(t, os.IsNotExist(err), "tap mode writes no report")
}

func TestRun_BackendsFromEnv(t *testing.T) {
	t.Setenv(BackendsEnv, "/cpu/self/ref/serial")
	root := newTestRepo(t)
	fake := newFakeRunner()
	f := newRunFixture("text", fake, "t001-ceed", "--root", root)

	require.NoError(t, f.cmd.Execute())
	assert.Len(t, fake.Calls(), 1)
}

func TestRun_NoBackends(t *testing.T) {
	t.Setenv(BackendsEnv, "")
	root := newTestRepo(t)
	fake := newFakeRunner()
	f := newRunFixture("text", fake, "t001-ceed", "--root", root)

	err := f.cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Empty(t, fake.Calls())
}

func TestRun_InvalidMode(t *testing.T) {
	root := newTestRepo(t)
	f := newRunFixture("text", newFakeRunner(), "t001-ceed", "--root", root, "--backends", "/cpu/self", "--mode", "xml")

	err := f.cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid mode")
}

func TestRun_MissingPlaceholderSpawnsNothing(t *testing.T) {
	root := newTestRepo(t)
	writeFile(t, root, "tests/t002-ceed.c", "//TESTARGS -ceed /cpu/self\n")
	fake := newFakeRunner()
	f := newRunFixture("text", fake, "t002-ceed", "--root", root, "--backends", twoBackends)

	err := f.cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.True(t, harness.IsConfigError(err))
	assert.Empty(t, fake.Calls())
}

func TestRun_MissingSource(t *testing.T) {
	root := newTestRepo(t)
	f := newRunFixture("text", newFakeRunner(), "t999-missing", "--root", root, "--backends", "/cpu/self")

	err := f.cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_JUnitBatchSuffix(t *testing.T) {
	t.Setenv(JUnitBatchEnv, "nightly")
	root := newTestRepo(t)
	f := newRunFixture("text", newFakeRunner(), "t001-ceed", "--root", root, "--backends", "/cpu/self")

	require.NoError(t, f.cmd.Execute())

	_, err := os.Stat(filepath.Join(root, "build", "t001-ceed-nightly.junit"))
	assert.NoError(t, err)
}

func TestRun_OutputFlag(t *testing.T) {
	root := newTestRepo(t)
	out := filepath.Join(t.TempDir(), "reports", "custom.xml")
	f := newRunFixture("text", newFakeRunner(), "t001-ceed", "--root", root, "--backends", "/cpu/self", "-o", out)

	require.NoError(t, f.cmd.Execute())

	doc, err := report.ReadJUnitFile(out)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Tests)
}

func TestRun_JSONSummary(t *testing.T) {
	root := newTestRepo(t)
	f := newRunFixture("json", newFakeRunner(), "t001-ceed", "--root", root, "--backends", twoBackends)

	require.NoError(t, f.cmd.Execute())

	var resp struct {
		Status string     `json:"status"`
		RunID  string     `json:"run_id"`
		Data   RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(f.stdout.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-fixed", resp.RunID)
	assert.Equal(t, "t001-ceed", resp.Data.Test)
	assert.Equal(t, "tests/t001-ceed.c", resp.Data.Source)
	assert.Equal(t, []string{"/cpu/self", "/gpu/cuda"}, resp.Data.Backends)
	assert.Equal(t, harness.Counts{Total: 2, Passed: 2}, resp.Data.Counts)
}

func TestRun_RulesFile(t *testing.T) {
	root := newTestRepo(t)
	rules := writeFile(t, root, "rules.yaml", `
skip:
  - prefix: t001
    backends: [/gpu]
`)
	fake := newFakeRunner()
	f := newRunFixture("json", fake, "t001-ceed", "--root", root, "--backends", twoBackends, "--rules", rules)

	require.NoError(t, f.cmd.Execute())
	assert.Len(t, fake.Calls(), 1, "skipped backend is never spawned")

	var resp struct {
		Data RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(f.stdout.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Counts.Skipped)
}

func TestRun_BadRulesFile(t *testing.T) {
	root := newTestRepo(t)
	rules := writeFile(t, root, "rules.ini", "skip=t001\n")
	f := newRunFixture("text", newFakeRunner(), "t001-ceed", "--root", root, "--backends", "/cpu/self", "--rules", rules)

	err := f.cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load rules")
}

func TestRun_RecordsHistory(t *testing.T) {
	root := newTestRepo(t)
	db := filepath.Join(t.TempDir(), "history.db")
	fake := newFakeRunner().On("/gpu/cuda", testutil.Script{ExitCode: 1})
	f := newRunFixture("text", fake, "t001-ceed", "--root", root, "--backends", twoBackends, "--db", db)

	err := f.cmd.Execute()
	assert.Equal(t, ExitFailure, GetExitCode(err))

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	runs, err := st.Runs(ctx, "t001-ceed", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-fixed", runs[0].ID)
	assert.Equal(t, "junit", runs[0].Mode)
	assert.Equal(t, harness.Counts{Total: 2, Passed: 1, Errored: 1}, runs[0].Counts)
	assert.True(t, runs[0].Started.Equal(testutil.Epoch))

	results, err := st.Results(ctx, "run-fixed")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "error", results[1].Kind)
	assert.Equal(t, "returncode = 1", results[1].Message)
}

func TestRun_Jobs(t *testing.T) {
	root := newTestRepo(t)
	fake := newFakeRunner()
	f := newRunFixture("text", fake, "t001-ceed", "--root", root,
		"--backends", "/cpu/self /cpu/self/opt /gpu/cuda /gpu/hip", "--jobs", "3", "--mode", "tap")

	require.NoError(t, f.cmd.Execute())

	lines := strings.Split(strings.TrimSpace(f.stdout.String()), "\n")
	var points []string
	for _, l := range lines {
		if strings.HasPrefix(l, "ok") {
			points = append(points, l)
		}
	}
	assert.Equal(t, []string{"ok 1 - PASS", "ok 2 - PASS", "ok 3 - PASS", "ok 4 - PASS"}, points)
	assert.Len(t, fake.Calls(), 4)
}
