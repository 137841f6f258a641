package runner_test

import (
	"bytes"
	"context"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/pako-23/layered/internal/layer"
	"github.com/pako-23/layered/internal/output"
	"github.com/pako-23/layered/internal/runner"
	"gotest.tools/v3/assert"
)

const workerEnv = "LAYERED_TEST_WORKER"

// workerSuite registers the same layers and tests in the parent and in
// the worker processes. The database layer cannot be torn down.
func workerSuite(t *testing.T, options ...runner.Option) *runner.Runner {
	var journal []string

	registry := layer.NewRegistry()
	database, err := registry.Define("database", &fixture{name: "database", journal: &journal, persistent: true})
	if err != nil {
		t.Fatal(err)
	}
	web, err := registry.Define("web", &fixture{name: "web", journal: &journal})
	if err != nil {
		t.Fatal(err)
	}

	r, err := runner.New(registry, options...)
	if err != nil {
		t.Fatal(err)
	}
	r.Register(database, &fakeTest{name: "query"}, &fakeTest{name: "broken query", err: runner.Fail("no rows")})
	r.Register(web, &fakeTest{name: "index"}, &fakeTest{name: "login", err: errInjectedFailure})

	return r
}

// TestWorkerProcess is not a real test: it is the body of the worker
// processes started by the tests below.
func TestWorkerProcess(t *testing.T) {
	if os.Getenv(workerEnv) != "1" {
		t.Skip("only runs as a worker process")
	}

	var (
		args        = os.Args
		resumeLayer string
		number      int
	)

	for i := 0; i < len(args)-1; i++ {
		switch args[i] {
		case "--resume-layer":
			resumeLayer = args[i+1]
		case "--resume-number":
			number, _ = strconv.Atoi(args[i+1])
		}
	}

	r := workerSuite(t,
		runner.WithOutput(output.NewPlain(os.Stdout, output.InSubprocess())),
		runner.WithResume(resumeLayer, number))

	report, err := r.Run(context.Background())
	if err != nil {
		os.Exit(2)
	}
	if err := report.WriteControl(os.Stderr); err != nil {
		os.Exit(3)
	}
	os.Exit(0)
}

func workerCommand() runner.Option {
	return runner.WithWorkerCommand([]string{os.Args[0], "-test.run=^TestWorkerProcess$", "--"}, nil, "")
}

func TestRunnerResumesAfterCanNotTearDown(t *testing.T) {
	t.Setenv(workerEnv, "1")

	var stdout bytes.Buffer
	out := &recorder{}
	r := workerSuite(t, runner.WithOutput(out), runner.WithStdout(&stdout), workerCommand())

	report, err := r.Run(context.Background())
	assert.NilError(t, err)

	assert.Equal(t, report.Ran, 4)
	assert.DeepEqual(t, failureNamesOf(report.Failures), []string{"broken query"})
	assert.DeepEqual(t, failureNamesOf(report.Errors), []string{"login"})

	events := out.Events()
	assert.Check(t, contains(events, "info Running web tests:"))
	assert.Check(t, contains(events, "not supported"))
	assert.Check(t, contains(events, "totals 4/1/1/0"))

	forwarded := stdout.String()
	assert.Check(t, !strings.Contains(forwarded, "Running web tests:"), forwarded)
	assert.Check(t, strings.Contains(forwarded, "  Running in a subprocess."), forwarded)
	assert.Check(t, strings.Contains(forwarded, "Error in test login"), forwarded)
}

func TestRunnerResumesInParallel(t *testing.T) {
	t.Setenv(workerEnv, "1")

	var stdout bytes.Buffer
	out := &recorder{}
	r := workerSuite(t, runner.WithOutput(out), runner.WithStdout(&stdout), runner.WithProcesses(2), workerCommand())

	report, err := r.Run(context.Background())
	assert.NilError(t, err)

	assert.Equal(t, report.Ran, 4)
	assert.DeepEqual(t, failureNamesOf(report.Failures), []string{"broken query"})
	assert.DeepEqual(t, failureNamesOf(report.Errors), []string{"login"})

	forwarded := stdout.String()
	database := strings.Index(forwarded, "Running database tests:")
	web := strings.Index(forwarded, "Running web tests:")
	assert.Check(t, database >= 0 && web > database, forwarded)
	assert.Check(t, !contains(strings.Split(forwarded, "\n"), "."), forwarded)
}

func TestRunnerWorkerCommunicationFailure(t *testing.T) {
	t.Parallel()

	out := &recorder{}
	r := workerSuite(t,
		runner.WithOutput(out),
		runner.WithStdout(&bytes.Buffer{}),
		runner.WithProcesses(2),
		runner.WithWorkerCommand([]string{"/nonexistent/layered-worker"}, nil, ""))

	report, err := r.Run(context.Background())
	assert.NilError(t, err)

	assert.Equal(t, report.Ran, 0)
	assert.DeepEqual(t, failureNamesOf(report.Errors), []string{"subprocess for database", "subprocess for web"})
}

func failureNamesOf(failures []runner.Failure) []string {
	names := []string{}
	for _, f := range failures {
		names = append(names, f.Name)
	}

	return names
}
