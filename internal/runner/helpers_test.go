package runner_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/pako-23/layered/internal/layer"
	"github.com/pako-23/layered/internal/output"
	"github.com/pako-23/layered/internal/runner"
)

var (
	errInjectedFailure = errors.New("injected failure")
	layerComparer      = gocmp.Comparer(func(a, b *layer.Layer) bool { return a == b })
)

// recorder is a formatter remembering the events it received.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string{}, r.events...)
}

func (r *recorder) Info(message string)                    { r.add("info %s", message) }
func (r *recorder) InfoSuboptimal(message string)          { r.add("suboptimal %s", message) }
func (r *recorder) Error(message string)                   { r.add("error %s", message) }
func (r *recorder) ErrorWithBanner(message string)         { r.add("banner %s", message) }
func (r *recorder) StartSetUp(name string)                 { r.add("set up %s", name) }
func (r *recorder) StopSetUp(time.Duration)                {}
func (r *recorder) StartTearDown(name string)              { r.add("tear down %s", name) }
func (r *recorder) StopTearDown(time.Duration)             {}
func (r *recorder) TearDownNotSupported()                  { r.add("not supported") }
func (r *recorder) LayerFailure(failure string, err error) { r.add("layer failure %s", failure) }
func (r *recorder) StartTest(test string, ran, total int)  { r.add("start %s %d/%d", test, ran, total) }
func (r *recorder) TestSuccess(string, time.Duration)      {}
func (r *recorder) TestSkipped(test, reason string)        { r.add("skipped %s: %s", test, reason) }
func (r *recorder) TestFailure(test string, _ time.Duration, err error) {
	r.add("failure %s", test)
}
func (r *recorder) TestError(test string, _ time.Duration, err error) {
	r.add("test error %s", test)
}
func (r *recorder) StopTest(string) {}
func (r *recorder) StopTests()      {}
func (r *recorder) Summary(s output.Summary) {
	r.add("summary %d/%d/%d/%d", s.Tests, s.Failures, s.Errors, s.Skipped)
}
func (r *recorder) Totals(s output.Summary) {
	r.add("totals %d/%d/%d/%d", s.Tests, s.Failures, s.Errors, s.Skipped)
}
func (r *recorder) TestsWithFailures([]string)   {}
func (r *recorder) TestsWithErrors([]string)     {}
func (r *recorder) ListOfTests(string, []string) {}

// fixture is a layer fixture recording its calls into a shared journal.
type fixture struct {
	name         string
	journal      *[]string
	failSetUp    bool
	failTearDown bool
	persistent   bool
	panics       bool
	exhausted    bool
}

func (f *fixture) SetUp(context.Context) error {
	*f.journal = append(*f.journal, f.name+".setUp")
	switch {
	case f.panics:
		panic("set up exploded")
	case f.exhausted:
		return fmt.Errorf("out of memory: %w", layer.ErrResourceExhausted)
	case f.failSetUp:
		return errInjectedFailure
	}

	return nil
}

func (f *fixture) TearDown(context.Context) error {
	*f.journal = append(*f.journal, f.name+".tearDown")
	switch {
	case f.persistent:
		return layer.ErrTearDownNotSupported
	case f.failTearDown:
		return errInjectedFailure
	}

	return nil
}

func (f *fixture) TestSetUp(context.Context) error {
	*f.journal = append(*f.journal, f.name+".testSetUp")
	return nil
}

func (f *fixture) TestTearDown(context.Context) error {
	*f.journal = append(*f.journal, f.name+".testTearDown")
	return nil
}

// fakeTest returns its outcome and records that it ran.
type fakeTest struct {
	name    string
	journal *[]string
	err     error
}

func (t *fakeTest) ID() string {
	return t.name
}

func (t *fakeTest) Run(context.Context) error {
	if t.journal != nil {
		*t.journal = append(*t.journal, t.name)
	}

	return t.err
}

func newOptions(formatter output.Formatter) *runner.Options {
	return &runner.Options{Output: formatter, Processes: 1, Repeat: 1}
}
