package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/testmatrix/internal/testutil"
)

// writeFile creates root/rel with content.
func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// newTestRepo creates a repository root holding t001-ceed with a reference
// output of "hello\n".
func newTestRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "tests/t001-ceed.c", "int main(void) { return 0; }\n")
	writeFile(t, root, "tests/output/t001-ceed.out", "hello\n")
	return root
}

// newFakeRunner answers every backend with the reference output.
func newFakeRunner() *testutil.FakeRunner {
	f := testutil.NewFakeRunner()
	f.Default = testutil.Script{Stdout: "hello\n"}
	return f
}

type runFixture struct {
	opts   *RunOptions
	cmd    *cobra.Command
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

// newRunFixture builds a run command with deterministic overrides.
func newRunFixture(format string, fake *testutil.FakeRunner, args ...string) *runFixture {
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: format},
		Runner:      fake,
		IDGenerator: testutil.NewFixedIDGenerator("run-fixed"),
		Clock:       testutil.NewDeterministicClock(),
	}
	f := &runFixture{
		opts:   opts,
		cmd:    newRunCommand(opts),
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	f.cmd.SetOut(f.stdout)
	f.cmd.SetErr(f.stderr)
	f.cmd.SetArgs(args)
	return f
}
