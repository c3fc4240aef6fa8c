package harness

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/testmatrix/internal/policy"
	"github.com/roach88/testmatrix/internal/testutil"
)

const twoVariantSource = `/// @file
//TESTARGS(name="blocked") -ceed {ceed_resource} -problem blocked
//TESTARGS(name="serial") -ceed {ceed_resource} -problem serial
int main(int argc, char **argv) { return 0; }
`

func TestPlanDefaultVariant(t *testing.T) {
	r := newRepo(t)
	r.write("tests/t001-ceed.c", "int main() { return 0; }\n")
	h := newTestHarness(r, testutil.NewFakeRunner())

	plan, err := h.Plan("t001-ceed", []string{"/cpu/self/ref/serial", "/cpu/self/opt/blocked"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("tests", "t001-ceed.c"), plan.Source)
	require.Len(t, plan.Variants, 1)
	require.Len(t, plan.Requests, 2)

	exe := filepath.Join(r.root, "build", "t001-ceed")
	assert.Equal(t, []string{exe, "/cpu/self/ref/serial"}, plan.Requests[0].Process.Argv())
	assert.Equal(t, []string{exe, "/cpu/self/opt/blocked"}, plan.Requests[1].Process.Argv())
	assert.Equal(t, "exit", plan.Requests[0].Process.Env.ErrorHandler)
	assert.Equal(t, "t001-ceed /cpu/self/ref/serial", plan.Requests[0].Name())
	assert.Equal(t, "tests", plan.Requests[0].ClassName())
}

func TestPlanVariantMajorOrder(t *testing.T) {
	r := newRepo(t)
	r.write("examples/fluids/navierstokes.c", twoVariantSource)
	h := newTestHarness(r, testutil.NewFakeRunner())

	plan, err := h.Plan("fluids-navierstokes", []string{"/cpu/a", "/cpu/b", "/cpu/c"})
	require.NoError(t, err)
	require.Len(t, plan.Requests, 6)

	var got []string
	for _, req := range plan.Requests {
		got = append(got, req.Name())
	}
	assert.Equal(t, []string{
		"fluids-navierstokes blocked /cpu/a",
		"fluids-navierstokes blocked /cpu/b",
		"fluids-navierstokes blocked /cpu/c",
		"fluids-navierstokes serial /cpu/a",
		"fluids-navierstokes serial /cpu/b",
		"fluids-navierstokes serial /cpu/c",
	}, got)
	assert.Equal(t, []string{"-ceed", "/cpu/b", "-problem", "serial"}, plan.Requests[4].Process.Args)
	assert.Equal(t, 1, plan.Requests[4].VariantIndex)
	assert.Equal(t, "examples/fluids", plan.Requests[0].ClassName())
}

func TestPlanPlaceholderDefects(t *testing.T) {
	tests := []struct {
		name   string
		source string
		code   ConfigErrorCode
	}{
		{
			name:   "missing placeholder",
			source: "//TESTARGS(name=\"bad\") -ceed /cpu/self\n",
			code:   ErrCodeMissingPlaceholder,
		},
		{
			name:   "duplicate placeholder",
			source: "//TESTARGS(name=\"bad\") {ceed_resource} {ceed_resource}\n",
			code:   ErrCodeDuplicatePlaceholder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRepo(t)
			r.write("tests/t100-vector.c", tt.source)
			fake := testutil.NewFakeRunner()
			h := newTestHarness(r, fake)

			suite, err := h.Run(context.Background(), "t100-vector", []string{"/cpu/self"}, nil)
			require.Error(t, err)
			assert.Nil(t, suite)
			assert.True(t, IsConfigError(err))

			var ce *ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.code, ce.Code)
			assert.Equal(t, "bad", ce.Variant)
			assert.Empty(t, fake.Calls(), "no process may be spawned")
		})
	}
}

func TestPlanNoBackends(t *testing.T) {
	r := newRepo(t)
	r.write("tests/t001-ceed.c", "")
	h := newTestHarness(r, testutil.NewFakeRunner())

	_, err := h.Plan("t001-ceed", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(ErrCodeNoBackends))
}

func TestPlanMissingSource(t *testing.T) {
	r := newRepo(t)
	h := newTestHarness(r, testutil.NewFakeRunner())

	_, err := h.Plan("t999-missing", []string{"/cpu/self"})
	require.Error(t, err)
	assert.False(t, IsConfigError(err))
}

func TestRunStreamsEveryRequestInOrder(t *testing.T) {
	r := newRepo(t)
	r.write("examples/fluids/navierstokes.c", twoVariantSource)
	fake := testutil.NewFakeRunner()
	h := newTestHarness(r, fake)
	rec := &recorder{}

	backends := []string{"/cpu/a", "/cpu/b", "/cpu/c"}
	suite, err := h.Run(context.Background(), "fluids-navierstokes", backends, rec)
	require.NoError(t, err)

	assert.Equal(t, 1, rec.begins)
	assert.Equal(t, 2*len(backends), rec.total)
	require.Len(t, rec.results, 2*len(backends))
	for i, res := range rec.results {
		assert.Equal(t, i+1, res.Index)
		assert.Same(t, suite.Results[i], res)
	}
	assert.Len(t, fake.Calls(), 6)
}

func TestRunSkipRuleSpawnsNothing(t *testing.T) {
	r := newRepo(t)
	r.write("tests/t400-qfunction.c", "")
	fake := testutil.NewFakeRunner()
	h := newTestHarness(r, fake)

	suite, err := h.Run(context.Background(), "t400-qfunction", []string{"/cpu/occa", "/cpu/self"}, nil)
	require.NoError(t, err)
	require.Len(t, suite.Results, 2)

	skipped := suite.Results[0]
	assert.Equal(t, Skipped, skipped.Status.Kind)
	assert.Equal(t, PreRunSkipReason, skipped.Status.Message)
	assert.Zero(t, skipped.Outcome.Elapsed)
	assert.Equal(t, testutil.Epoch, skipped.Outcome.Started)

	assert.Equal(t, Passed, suite.Results[1].Status.Kind)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"/cpu/self"}, calls[0].Args)
}

func TestRunParallelMatchesSequential(t *testing.T) {
	r := newRepo(t)
	r.write("examples/fluids/navierstokes.c", twoVariantSource)
	backends := []string{"/cpu/a", "/cpu/b", "/cpu/c", "/cpu/d"}

	script := func() *testutil.FakeRunner {
		return testutil.NewFakeRunner().
			On("/cpu/b", testutil.Script{Stderr: "boom"}).
			On("/cpu/d", testutil.Script{ExitCode: 2})
	}

	seq, err := newTestHarness(r, script()).Run(context.Background(), "fluids-navierstokes", backends, nil)
	require.NoError(t, err)

	cfg := r.config()
	cfg.Jobs = 3
	par := New(cfg, policy.Default(), script(), WithClock(testutil.NewDeterministicClock()))
	rec := &recorder{}
	got, err := par.Run(context.Background(), "fluids-navierstokes", backends, rec)
	require.NoError(t, err)

	require.Len(t, got.Results, len(seq.Results))
	for i := range seq.Results {
		assert.Equal(t, seq.Results[i].Name(), got.Results[i].Name())
		assert.Equal(t, seq.Results[i].Status, got.Results[i].Status)
		assert.Equal(t, i+1, rec.results[i].Index)
	}
	assert.Equal(t, Counts{Total: 8, Passed: 4, Failed: 2, Errored: 2}, got.Counts())
}

func TestRunCancelled(t *testing.T) {
	r := newRepo(t)
	r.write("tests/t001-ceed.c", "")
	fake := testutil.NewFakeRunner()
	h := newTestHarness(r, fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	suite, err := h.Run(ctx, "t001-ceed", []string{"/cpu/self"}, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, suite)
	assert.Empty(t, suite.Results)
	assert.Empty(t, fake.Calls())
}

func TestSuiteCounts(t *testing.T) {
	s := NewSuite("t001")
	s.Add(&Result{Status: Pass("")})
	s.Add(&Result{Status: Skip("x")})
	assert.False(t, s.HasFailures())

	s.Add(&Result{Status: Error("returncode = 1", "")})
	assert.True(t, s.HasFailures())
	assert.Equal(t, Counts{Total: 3, Passed: 1, Skipped: 1, Errored: 1}, s.Counts())
	assert.Equal(t, 3, s.Results[2].Index)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "pass", Passed.String())
	assert.Equal(t, "skip", Skipped.String())
	assert.Equal(t, "fail", Failed.String())
	assert.Equal(t, "error", Errored.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
