package runner

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// A Failure is a test, or a layer hook, that did not succeed. Err is nil
// for failures reported by worker processes.
type Failure struct {
	Name string
	Err  error
}

type Skip struct {
	Name   string
	Reason string
}

// Report collects the outcome of a run.
type Report struct {
	Ran      int
	Failures []Failure
	Errors   []Failure
	Skipped  []Skip
	aborted  bool
}

// Failed tells whether any test or layer did not succeed.
func (r *Report) Failed() bool {
	return r.aborted || len(r.Failures) > 0 || len(r.Errors) > 0
}

func (r *Report) merge(other *Report) {
	r.Failures = append(r.Failures, other.Failures...)
	r.Errors = append(r.Errors, other.Errors...)
	r.Skipped = append(r.Skipped, other.Skipped...)
}

func failureNames(failures []Failure) []string {
	names := make([]string, len(failures))
	for i, f := range failures {
		names[i] = f.Name
	}

	return names
}

// WriteControl writes the summary a worker process hands to its parent:
// a line with the number of tests run, failures and errors, followed by
// the names of the failures and then of the errors.
func (r *Report) WriteControl(w io.Writer) error {
	buf := bufio.NewWriter(w)

	fmt.Fprintf(buf, "%d %d %d\n", r.Ran, len(r.Failures), len(r.Errors))
	for _, f := range r.Failures {
		fmt.Fprintln(buf, controlName(f.Name))
	}
	for _, f := range r.Errors {
		fmt.Fprintln(buf, controlName(f.Name))
	}

	if err := buf.Flush(); err != nil {
		return fmt.Errorf("failed to write control data: %w", err)
	}

	return nil
}

func controlName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// parseControl looks for the control data among the stderr lines of a
// worker process. Lines preceding it are ignored.
func parseControl(lines []string) (*Report, bool) {
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}

		var counts [3]int
		valid := true
		for j, field := range fields {
			n, err := strconv.Atoi(field)
			if err != nil || n < 0 {
				valid = false
				break
			}
			counts[j] = n
		}
		if !valid {
			continue
		}

		report := &Report{Ran: counts[0]}
		rest := lines[i+1:]
		for j := 0; j < counts[1] && j < len(rest); j++ {
			report.Failures = append(report.Failures, Failure{Name: strings.TrimSpace(rest[j])})
		}
		rest = rest[min(counts[1], len(rest)):]
		for j := 0; j < counts[2] && j < len(rest); j++ {
			report.Errors = append(report.Errors, Failure{Name: strings.TrimSpace(rest[j])})
		}

		return report, true
	}

	return nil, false
}

func splitLines(data string) []string {
	if data == "" {
		return nil
	}

	return strings.Split(strings.TrimSuffix(strings.ReplaceAll(data, "\r\n", "\n"), "\n"), "\n")
}
