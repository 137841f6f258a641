package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// PlainOption configures a Plain formatter.
type PlainOption func(*Plain)

// WithVerbosity sets how much detail is printed about single tests.
func WithVerbosity(level int) PlainOption {
	return func(p *Plain) {
		p.verbose = level
	}
}

// WithColor enables colored output.
func WithColor(enabled bool) PlainOption {
	return func(p *Plain) {
		p.colored = enabled
	}
}

// InSubprocess makes the formatter end every progress mark with a new
// line, so that a parent process forwarding output line by line shows
// progress in a timely manner.
func InSubprocess() PlainOption {
	return func(p *Plain) {
		p.subprocess = true
	}
}

// Plain writes human readable text.
type Plain struct {
	mu         sync.Mutex
	w          io.Writer
	verbose    int
	colored    bool
	subprocess bool

	info       *color.Color
	suboptimal *color.Color
	failure    *color.Color
	success    *color.Color
	skipped    *color.Color
	slow       *color.Color
}

func NewPlain(w io.Writer, options ...PlainOption) *Plain {
	p := &Plain{
		w:          w,
		verbose:    1,
		info:       color.New(color.FgBlue),
		suboptimal: color.New(color.FgHiYellow),
		failure:    color.New(color.FgRed, color.Bold),
		success:    color.New(color.FgGreen),
		skipped:    color.New(color.FgYellow),
		slow:       color.New(color.FgHiRed),
	}

	for _, option := range options {
		option(p)
	}

	for _, c := range []*color.Color{p.info, p.suboptimal, p.failure, p.success, p.skipped, p.slow} {
		if p.colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return p
}

func (p *Plain) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, format, args...)
}

func (p *Plain) Info(message string) {
	p.printf("%s\n", p.info.Sprint(message))
}

func (p *Plain) InfoSuboptimal(message string) {
	p.printf("%s\n", p.suboptimal.Sprint(message))
}

func (p *Plain) Error(message string) {
	p.printf("%s\n", p.failure.Sprint(message))
}

func (p *Plain) ErrorWithBanner(message string) {
	banner := p.failure.Sprint(strings.Repeat("*", 70))
	p.printf("\n%s\n%s\n%s\n\n", banner, p.failure.Sprint(message), banner)
}

func (p *Plain) StartSetUp(layer string) {
	p.printf("  Set up %s ", layer)
}

func (p *Plain) StopSetUp(elapsed time.Duration) {
	p.printf("in %s.\n", p.seconds(elapsed))
}

func (p *Plain) StartTearDown(layer string) {
	p.printf("  Tear down %s ", layer)
}

func (p *Plain) StopTearDown(elapsed time.Duration) {
	p.printf("in %s.\n", p.seconds(elapsed))
}

func (p *Plain) TearDownNotSupported() {
	p.printf("... %s\n", p.suboptimal.Sprint("not supported"))
}

func (p *Plain) LayerFailure(failure string, err error) {
	p.printf("\n%s\n%s\n", p.failure.Sprint(failure), p.describe(err))
}

func (p *Plain) StartTest(test string, ran, total int) {
	switch {
	case p.verbose == 1 && p.subprocess:
		p.printf(".\n")
	case p.verbose == 1:
		p.printf(".")
	case p.verbose > 1:
		p.printf(" %s", test)
	}
}

func (p *Plain) TestSuccess(test string, elapsed time.Duration) {
	if p.verbose > 2 {
		p.printf(" (%s)", p.success.Sprint(formatSecondsShort(elapsed)))
	}
}

func (p *Plain) TestSkipped(test, reason string) {
	switch {
	case p.verbose > 2:
		p.printf(" (%s)", p.skipped.Sprintf("skipped: %s", reason))
	case p.verbose > 1:
		p.printf(" (%s)", p.skipped.Sprint("skipped"))
	}
}

func (p *Plain) TestFailure(test string, elapsed time.Duration, err error) {
	p.testProblem("Failure", test, elapsed, err)
}

func (p *Plain) TestError(test string, elapsed time.Duration, err error) {
	p.testProblem("Error", test, elapsed, err)
}

func (p *Plain) testProblem(kind, test string, elapsed time.Duration, err error) {
	if p.verbose > 2 {
		p.printf(" (%s)\n", formatSecondsShort(elapsed))
	}
	p.printf("\n\n%s\n%s\n", p.failure.Sprintf("%s in test %s", kind, test), p.describe(err))
}

func (p *Plain) StopTest(test string) {
	if p.verbose > 1 {
		p.printf("\n")
	}
}

func (p *Plain) StopTests() {
	if p.verbose == 1 && !p.subprocess {
		p.printf("\n")
	}
}

func (p *Plain) Summary(summary Summary) {
	p.printf("  Ran %d tests with %s failures, %s errors and %s skipped in %s.\n",
		summary.Tests,
		p.count(p.failure, summary.Failures),
		p.count(p.failure, summary.Errors),
		p.count(p.skipped, summary.Skipped),
		p.seconds(summary.Elapsed))
}

func (p *Plain) Totals(summary Summary) {
	p.printf("Total: %d tests, %s failures, %s errors and %s skipped in %s.\n",
		summary.Tests,
		p.count(p.failure, summary.Failures),
		p.count(p.failure, summary.Errors),
		p.count(p.skipped, summary.Skipped),
		p.seconds(summary.Elapsed))
}

func (p *Plain) TestsWithFailures(tests []string) {
	p.testList("Tests with failures:", tests)
}

func (p *Plain) TestsWithErrors(tests []string) {
	p.testList("Tests with errors:", tests)
}

func (p *Plain) testList(title string, tests []string) {
	if len(tests) == 0 {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", title)
	for _, test := range tests {
		fmt.Fprintf(&b, "   %s\n", test)
	}
	p.printf("%s", b.String())
}

func (p *Plain) ListOfTests(layer string, tests []string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Listing %s tests:\n", layer)
	for _, test := range tests {
		fmt.Fprintf(&b, "  %s\n", test)
	}
	p.printf("%s", b.String())
}

func (p *Plain) count(c *color.Color, n int) string {
	if n == 0 {
		return p.success.Sprint(n)
	}

	return c.Sprint(n)
}

func (p *Plain) seconds(elapsed time.Duration) string {
	if elapsed >= time.Minute {
		return p.slow.Sprint(formatSeconds(elapsed))
	}

	return formatSeconds(elapsed)
}

// describe prints stack traces, when errors carry them, only on high
// verbosity levels.
func (p *Plain) describe(err error) string {
	if err == nil {
		return ""
	}

	if p.verbose > 1 {
		return fmt.Sprintf("%+v\n", err)
	}

	return fmt.Sprintf("%v\n", err)
}
