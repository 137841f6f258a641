package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pako-23/layered/internal/layer"
	"github.com/pako-23/layered/internal/output"
	"golang.org/x/exp/slices"
)

// A Test is a single test case belonging to a layer.
type Test interface {
	ID() string
	Run(ctx context.Context) error
}

// FailureError is returned by tests whose assertions did not hold. Any
// other error is reported as an error of the test.
type FailureError struct {
	Message string
}

func (e *FailureError) Error() string {
	return e.Message
}

// Fail returns a FailureError with the formatted message.
func Fail(format string, args ...any) error {
	return &FailureError{Message: fmt.Sprintf(format, args...)}
}

// SkipError is returned by tests that decided not to run.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}

func Skip(reason string) error {
	return &SkipError{Reason: reason}
}

type testResult struct {
	report     Report
	shouldStop bool
}

// runTests runs the tests of a layer that is already set up and returns
// how many of them ran in the last iteration.
func (r *Runner) runTests(ctx context.Context, l *layer.Layer, tests []Test) (int, error) {
	var (
		options = &r.options
		hooks   = layer.OrderByBases(layer.Gather(l, nil))
		ran     int
	)

	for iteration := 0; iteration < max(options.Repeat, 1); iteration++ {
		if options.Repeat > 1 {
			options.Output.Info(fmt.Sprintf("Iteration %d", iteration+1))
		}
		if options.Verbose > 1 {
			options.Output.Info("  Running:")
		}

		result := &testResult{}
		start := time.Now()

		for _, test := range tests {
			if result.shouldStop {
				break
			}

			if err := r.runTest(ctx, hooks, test, len(tests), result); err != nil {
				options.Output.StopTests()
				r.report.merge(&result.report)
				return result.report.Ran, err
			}
		}

		elapsed := time.Since(start)
		options.Output.StopTests()
		r.report.merge(&result.report)
		options.Output.Summary(output.Summary{
			Tests:    result.report.Ran,
			Failures: len(result.report.Failures),
			Errors:   len(result.report.Errors),
			Skipped:  len(result.report.Skipped),
			Elapsed:  elapsed,
		})
		ran = result.report.Ran
	}

	return ran, nil
}

func (r *Runner) runTest(ctx context.Context, hooks []*layer.Layer, test Test, total int, result *testResult) error {
	options := &r.options
	name := test.ID()

	result.report.Ran++
	options.Output.StartTest(name, result.report.Ran, total)
	start := time.Now()

	err := testSetUp(ctx, hooks)
	if err == nil {
		err = callHook(ctx, name, test.Run)
	}
	if tearDownErr := testTearDown(ctx, hooks); tearDownErr != nil && err == nil {
		err = tearDownErr
	}

	elapsed := time.Since(start)
	defer options.Output.StopTest(name)

	var (
		failure *FailureError
		skip    *SkipError
	)

	switch {
	case err == nil:
		options.Output.TestSuccess(name, elapsed)
	case fatal(ctx, err):
		options.Output.TestError(name, elapsed, err)
		result.report.Errors = append(result.report.Errors, Failure{Name: name, Err: err})
		result.report.aborted = true
		return err
	case errors.As(err, &skip):
		options.Output.TestSkipped(name, skip.Reason)
		result.report.Skipped = append(result.report.Skipped, Skip{Name: name, Reason: skip.Reason})
	case errors.As(err, &failure):
		options.Output.TestFailure(name, elapsed, err)
		result.report.Failures = append(result.report.Failures, Failure{Name: name, Err: err})
		result.shouldStop = options.StopOnError
	default:
		options.Output.TestError(name, elapsed, err)
		result.report.Errors = append(result.report.Errors, Failure{Name: name, Err: err})
		result.shouldStop = options.StopOnError
	}

	return nil
}

func testSetUp(ctx context.Context, hooks []*layer.Layer) error {
	for _, l := range hooks {
		if err := callHook(ctx, l.Name()+".testSetUp", l.TestSetUp); err != nil {
			return &LayerError{Layer: l, Op: "testSetUp", Err: err}
		}
	}

	return nil
}

func testTearDown(ctx context.Context, hooks []*layer.Layer) error {
	reversed := slices.Clone(hooks)
	slices.Reverse(reversed)

	var errs []error
	for _, l := range reversed {
		if err := callHook(ctx, l.Name()+".testTearDown", l.TestTearDown); err != nil {
			errs = append(errs, &LayerError{Layer: l, Op: "testTearDown", Err: err})
		}
	}

	return errors.Join(errs...)
}
