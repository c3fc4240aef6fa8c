package harness

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/testmatrix/internal/policy"
	"github.com/roach88/testmatrix/internal/runner"
	"github.com/roach88/testmatrix/internal/testutil"
)

// repo is a throwaway repository root with test sources and references.
type repo struct {
	t    *testing.T
	root string
}

func newRepo(t *testing.T) *repo {
	t.Helper()
	return &repo{t: t, root: t.TempDir()}
}

func (r *repo) write(rel, content string) {
	r.t.Helper()
	path := filepath.Join(r.root, rel)
	require.NoError(r.t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(r.t, os.WriteFile(path, []byte(content), 0644))
}

func (r *repo) config() Config {
	cfg := DefaultConfig()
	cfg.Root = r.root
	return cfg
}

func newTestHarness(r *repo, fake runner.Runner) *Harness {
	return New(r.config(), policy.Default(), fake,
		WithClock(testutil.NewDeterministicClock()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

// recorder is an Observer keeping everything it is told.
type recorder struct {
	total   int
	begins  int
	results []*Result
}

func (r *recorder) Begin(total int) {
	r.begins++
	r.total = total
}

func (r *recorder) Result(res *Result) {
	r.results = append(r.results, res)
}
