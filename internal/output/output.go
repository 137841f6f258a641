// Copyright 2023 The GTDD Authors. All rights reserved.
// Use of this source code is governed by a GPL-style
// license that can be found in the LICENSE file.

// Package output reports the progress of a test run.
package output

import (
	"fmt"
	"time"
)

// A Formatter receives every event of a test run. Implementations decide
// how, and whether, each event is shown.
type Formatter interface {
	Info(message string)
	// InfoSuboptimal reports a message about a behaviour that works but
	// that could be improved, like running a layer in a subprocess.
	InfoSuboptimal(message string)
	Error(message string)
	ErrorWithBanner(message string)

	StartSetUp(layer string)
	StopSetUp(elapsed time.Duration)
	StartTearDown(layer string)
	StopTearDown(elapsed time.Duration)
	TearDownNotSupported()
	LayerFailure(failure string, err error)

	StartTest(test string, ran, total int)
	TestSuccess(test string, elapsed time.Duration)
	TestSkipped(test, reason string)
	TestFailure(test string, elapsed time.Duration, err error)
	TestError(test string, elapsed time.Duration, err error)
	StopTest(test string)
	StopTests()

	Summary(summary Summary)
	Totals(summary Summary)
	TestsWithFailures(tests []string)
	TestsWithErrors(tests []string)
	ListOfTests(layer string, tests []string)
}

// Summary holds the counters of a set of tests.
type Summary struct {
	Tests    int
	Failures int
	Errors   int
	Skipped  int
	Elapsed  time.Duration
}

// Add returns the sum of two summaries.
func (s Summary) Add(other Summary) Summary {
	return Summary{
		Tests:    s.Tests + other.Tests,
		Failures: s.Failures + other.Failures,
		Errors:   s.Errors + other.Errors,
		Skipped:  s.Skipped + other.Skipped,
		Elapsed:  s.Elapsed + other.Elapsed,
	}
}

func formatSeconds(d time.Duration) string {
	seconds := d.Seconds()
	if seconds >= 60 {
		minutes := int(seconds / 60)
		return fmt.Sprintf("%d minutes %.3f seconds", minutes, seconds-float64(minutes*60))
	}

	return fmt.Sprintf("%.3f seconds", seconds)
}

func formatSecondsShort(d time.Duration) string {
	return fmt.Sprintf("%.3f s", d.Seconds())
}
