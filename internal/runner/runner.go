// Copyright 2023 The GTDD Authors. All rights reserved.
// Use of this source code is governed by a GPL-style
// license that can be found in the LICENSE file.

// Package runner runs tests grouped by layer, setting up and tearing down
// layers as few times as possible. Layers that cannot be torn down make
// the remaining layers run in worker processes.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pako-23/layered/internal/layer"
	"github.com/pako-23/layered/internal/output"
	log "github.com/sirupsen/logrus"
)

// A Group is a layer with the tests to run in it.
type Group struct {
	Layer *layer.Layer
	Tests []Test
}

// Runner runs the tests registered for each layer.
type Runner struct {
	options  Options
	registry *layer.Registry
	tests    map[*layer.Layer][]Test
	report   Report
}

// New creates a runner resolving layers through registry.
func New(registry *layer.Registry, options ...Option) (*Runner, error) {
	r := &Runner{
		options:  defaultOptions(),
		registry: registry,
		tests:    map[*layer.Layer][]Test{},
	}

	for _, option := range options {
		if err := option(&r.options); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Options returns the options the runner was configured with.
func (r *Runner) Options() *Options {
	return &r.options
}

// Register adds tests to the ones to run in l.
func (r *Runner) Register(l *layer.Layer, tests ...Test) {
	r.tests[l] = append(r.tests[l], tests...)
}

// OrderedLayers returns the groups to run in the order they must run. A
// worker process only runs its own layer. With multiple processes, the
// parent starts with an empty layer so that every real layer runs in a
// worker.
func (r *Runner) OrderedLayers() ([]Group, error) {
	if r.options.resumed() {
		l, err := r.registry.Lookup(r.options.ResumeLayer)
		if err != nil {
			return nil, fmt.Errorf("failed to resume layer: %w", err)
		}

		return []Group{{Layer: l, Tests: r.tests[l]}}, nil
	}

	groups := []Group{}
	if r.options.Processes > 1 {
		groups = append(groups, Group{Layer: layer.Empty})
	}

	registered := LayerSet{}
	for l := range r.tests {
		registered[l] = struct{}{}
	}

	for _, l := range layer.OrderByBases(registered.Layers()) {
		groups = append(groups, Group{Layer: l, Tests: r.tests[l]})
	}

	return groups, nil
}

// Run runs every registered test. The returned error is only set when the
// run could not complete, test failures are part of the report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	var (
		live         = LayerSet{}
		shouldResume = false
		start        = time.Now()
	)

	groups, err := r.OrderedLayers()
	if err != nil {
		return nil, err
	}

	for len(groups) > 0 {
		ran, err := r.runLayer(ctx, groups[0], live)
		r.report.Ran += ran

		if errors.Is(err, ErrEndRun) {
			r.report.aborted = true
			break
		} else if errors.Is(err, ErrCanNotTearDown) {
			if !r.options.resumed() {
				shouldResume = true
				break
			}
		} else if err != nil {
			return &r.report, err
		}

		groups = groups[1:]
		if r.options.Processes > 1 {
			shouldResume = true
			break
		}

		if r.options.StopOnError && (len(r.report.Failures) > 0 || len(r.report.Errors) > 0) {
			break
		}
	}

	if shouldResume && len(groups) > 0 {
		r.report.Ran += r.resumeTests(ctx, groups)
	}

	if len(live) > 0 {
		if !r.options.resumed() {
			r.options.Output.Info("Tearing down left over layers:")
		}
		if err := TearDownUnneeded(ctx, &r.options, nil, live, &r.report, true); err != nil {
			return &r.report, err
		}
	}

	if !r.options.resumed() {
		r.options.Output.Totals(output.Summary{
			Tests:    r.report.Ran,
			Failures: len(r.report.Failures),
			Errors:   len(r.report.Errors),
			Skipped:  len(r.report.Skipped),
			Elapsed:  time.Since(start),
		})
		if r.options.Verbose > 0 {
			r.options.Output.TestsWithErrors(failureNames(r.report.Errors))
			r.options.Output.TestsWithFailures(failureNames(r.report.Failures))
		}
	}

	return &r.report, nil
}

func (r *Runner) runLayer(ctx context.Context, group Group, live LayerSet) (int, error) {
	var (
		options = &r.options
		name    = group.Layer.Name()
		needed  = NewLayerSet(layer.Gather(group.Layer, nil)...)
	)

	if !options.resumed() || options.ResumeNumber != 0 {
		options.Output.Info(fmt.Sprintf("Running %s tests:", name))
	}

	if err := TearDownUnneeded(ctx, options, needed, live, &r.report, false); err != nil {
		return 0, err
	}

	if options.resumed() {
		options.Output.InfoSuboptimal("  Running in a subprocess.")
	}

	if err := SetupLayer(ctx, options, group.Layer, live); err != nil {
		if fatal(ctx, err) {
			return 0, err
		}

		var failure *LayerError
		if !errors.As(err, &failure) {
			failure = &LayerError{Layer: group.Layer, Op: "setUp", Err: err}
		}
		handleLayerFailure(options, &r.report, failure)
		log.Debugf("[layer=%s] skipping %d tests", name, len(group.Tests))

		return 0, nil
	}

	return r.runTests(ctx, group.Layer, group.Tests)
}
