package fixture_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pako-23/layered/internal/fixture"
	"github.com/pako-23/layered/internal/layer"
	"gotest.tools/v3/assert"
)

func TestCommandHooks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	journal := filepath.Join(dir, "journal")
	record := func(hook string) []string {
		return []string{"sh", "-c", `echo "` + hook + ` $LAYERED_LAYER $EXTRA" >> journal`}
	}

	cmd := &fixture.Command{
		Layer:            "db",
		SetUpArgs:        record("setup"),
		TearDownArgs:     record("teardown"),
		TestSetUpArgs:    record("test-setup"),
		TestTearDownArgs: record("test-teardown"),
		Env:              []string{"EXTRA=x"},
		Dir:              dir,
	}
	ctx := context.Background()

	assert.NilError(t, cmd.SetUp(ctx))
	assert.NilError(t, cmd.TestSetUp(ctx))
	assert.NilError(t, cmd.TestTearDown(ctx))
	assert.NilError(t, cmd.TearDown(ctx))

	data, err := os.ReadFile(journal)
	assert.NilError(t, err)
	assert.Equal(t, string(data), "setup db x\ntest-setup db x\ntest-teardown db x\nteardown db x\n")
}

func TestCommandEmptyHooks(t *testing.T) {
	t.Parallel()

	cmd := &fixture.Command{Layer: "empty"}
	ctx := context.Background()

	assert.NilError(t, cmd.SetUp(ctx))
	assert.NilError(t, cmd.TestSetUp(ctx))
	assert.NilError(t, cmd.TestTearDown(ctx))
	assert.NilError(t, cmd.TearDown(ctx))
}

func TestCommandPersistent(t *testing.T) {
	t.Parallel()

	cmd := &fixture.Command{Layer: "p", Persistent: true, TearDownArgs: []string{"false"}}
	assert.ErrorIs(t, cmd.TearDown(context.Background()), layer.ErrTearDownNotSupported)
}

func TestCommandFailure(t *testing.T) {
	t.Parallel()

	cmd := &fixture.Command{
		Layer:     "broken",
		SetUpArgs: []string{"sh", "-c", "echo starting; echo no database >&2; exit 3"},
	}

	err := cmd.SetUp(context.Background())
	var cmdErr *fixture.CommandError
	assert.Assert(t, errors.As(err, &cmdErr))
	assert.ErrorContains(t, err, "exit status 3")
	assert.ErrorContains(t, err, "no database")

	var exitErr *exec.ExitError
	assert.Assert(t, errors.As(err, &exitErr))
	assert.Equal(t, exitErr.ExitCode(), 3)
}

func TestCommandNotFound(t *testing.T) {
	t.Parallel()

	cmd := &fixture.Command{SetUpArgs: []string{"/not/existing/program"}}
	assert.ErrorContains(t, cmd.SetUp(context.Background()), "/not/existing/program")
}

func TestTail(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		output   string
		n        int
		expected string
	}{
		"short":            {output: "abc\n", n: 10, expected: "abc"},
		"truncated":        {output: "abcdef", n: 3, expected: "def"},
		"trailing newline": {output: strings.Repeat("x", 5) + "\n\n", n: 5, expected: "xxxxx"},
		"empty":            {output: "", n: 3, expected: ""},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, string(fixture.Tail([]byte(test.output), test.n)), test.expected)
		})
	}
}
