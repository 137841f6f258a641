package testsuite

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/pako-23/layered/internal/fixture"
	"github.com/pako-23/layered/internal/runner"
)

// SkipExitCode is the exit code of commands that skipped their test.
const SkipExitCode = 77

// CommandTest is a test run as an external command. It passes when the
// command exits with status zero.
type CommandTest struct {
	Name  string
	Layer string
	Args  []string
	Env   []string
	Dir   string
}

func (t *CommandTest) ID() string {
	return t.Name
}

func (t *CommandTest) Run(ctx context.Context) error {
	env := append([]string{"LAYERED_LAYER=" + t.Layer, "LAYERED_TEST=" + t.Name}, t.Env...)

	err := fixture.Run(ctx, t.Args, env, t.Dir)
	if err == nil {
		return nil
	}

	var (
		cmdErr  *fixture.CommandError
		exitErr *exec.ExitError
	)
	if !errors.As(err, &cmdErr) || !errors.As(err, &exitErr) || ctx.Err() != nil {
		return err
	}

	output := strings.TrimSpace(string(fixture.Tail(cmdErr.Output, 2048)))
	if exitErr.ExitCode() == SkipExitCode {
		if output == "" {
			output = "exit status 77"
		}

		return runner.Skip(output)
	}

	return runner.Fail("%s exited with status %d\n%s", strings.Join(t.Args, " "), exitErr.ExitCode(), output)
}
