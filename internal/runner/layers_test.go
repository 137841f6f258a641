package runner_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pako-23/layered/internal/layer"
	"github.com/pako-23/layered/internal/runner"
	"gotest.tools/v3/assert"
)

func TestSetupLayer(t *testing.T) {
	t.Parallel()

	var (
		journal []string
		out     recorder
		base    = layer.New("base", &fixture{name: "base", journal: &journal})
		left    = layer.New("left", &fixture{name: "left", journal: &journal}, base)
		right   = layer.New("right", &fixture{name: "right", journal: &journal}, base)
		top     = layer.New("top", &fixture{name: "top", journal: &journal}, left, right)
		live    = runner.LayerSet{}
	)

	assert.NilError(t, runner.SetupLayer(context.Background(), newOptions(&out), top, live))
	assert.DeepEqual(t, journal, []string{"base.setUp", "left.setUp", "right.setUp", "top.setUp"})
	assert.DeepEqual(t, live.Layers(), []*layer.Layer{base, left, right, top}, layerComparer)

	assert.NilError(t, runner.SetupLayer(context.Background(), newOptions(&out), top, live))
	assert.Equal(t, len(journal), 4)
}

func TestSetupLayerFailure(t *testing.T) {
	t.Parallel()

	var tests = []struct {
		name     string
		fixture  fixture
		contains string
	}{
		{name: "error", fixture: fixture{failSetUp: true}, contains: errInjectedFailure.Error()},
		{name: "panic", fixture: fixture{panics: true}, contains: "panic in broken.setUp: set up exploded"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			var (
				journal []string
				out     recorder
				live    = runner.LayerSet{}
				base    = layer.New("base", &fixture{name: "base", journal: &journal})
			)

			test.fixture.name = "broken"
			test.fixture.journal = &journal
			broken := layer.New("broken", &test.fixture, base)

			err := runner.SetupLayer(context.Background(), newOptions(&out), broken, live)

			var failure *runner.LayerError
			assert.Assert(t, errors.As(err, &failure))
			assert.Equal(t, failure.Name(), "Layer: broken.setUp")
			assert.ErrorContains(t, err, test.contains)
			assert.Check(t, live.Has(base))
			assert.Check(t, !live.Has(broken))
		})
	}
}

func TestSetupLayerPostMortem(t *testing.T) {
	t.Parallel()

	var (
		journal  []string
		out      recorder
		debugged error
		options  = newOptions(&out)
		broken   = layer.New("broken", &fixture{name: "broken", journal: &journal, failSetUp: true})
	)

	options.PostMortem = true
	options.Debugger = func(_ context.Context, err error) { debugged = err }

	err := runner.SetupLayer(context.Background(), options, broken, runner.LayerSet{})
	assert.ErrorIs(t, err, errInjectedFailure)
	assert.ErrorIs(t, debugged, errInjectedFailure)

	options.ResumeLayer = "broken"
	debugged = nil
	err = runner.SetupLayer(context.Background(), options, broken, runner.LayerSet{})
	assert.ErrorIs(t, err, errInjectedFailure)
	assert.NilError(t, debugged)

	events := out.Events()
	assert.Check(t, strings.Contains(events[len(events)-1], `Try running layer "broken" by itself.`))
}

func TestTearDownUnneeded(t *testing.T) {
	t.Parallel()

	var (
		journal []string
		out     recorder
		report  runner.Report
		base    = layer.New("base", &fixture{name: "base", journal: &journal})
		left    = layer.New("left", &fixture{name: "left", journal: &journal}, base)
		right   = layer.New("right", &fixture{name: "right", journal: &journal, failTearDown: true}, base)
		top     = layer.New("top", &fixture{name: "top", journal: &journal}, left)
		live    = runner.NewLayerSet(base, left, right, top)
	)

	err := runner.TearDownUnneeded(context.Background(), newOptions(&out), runner.NewLayerSet(base), live, &report, false)
	assert.NilError(t, err)
	assert.DeepEqual(t, journal, []string{"right.tearDown", "top.tearDown", "left.tearDown"})
	assert.DeepEqual(t, live.Layers(), []*layer.Layer{base}, layerComparer)
	assert.Equal(t, len(report.Errors), 1)
	assert.Equal(t, report.Errors[0].Name, "Layer: right.tearDown")
	assert.ErrorIs(t, report.Errors[0].Err, errInjectedFailure)
}

func TestTearDownUnneededNotSupported(t *testing.T) {
	t.Parallel()

	var (
		journal []string
		out     recorder
		report  runner.Report
		stuck   = layer.New("stuck", &fixture{name: "stuck", journal: &journal, persistent: true})
		live    = runner.NewLayerSet(stuck)
	)

	err := runner.TearDownUnneeded(context.Background(), newOptions(&out), nil, live, &report, false)
	assert.ErrorIs(t, err, runner.ErrCanNotTearDown)
	assert.Equal(t, len(live), 0)
	assert.DeepEqual(t, out.Events(), []string{"tear down stuck", "not supported"})

	live = runner.NewLayerSet(stuck)
	err = runner.TearDownUnneeded(context.Background(), newOptions(&out), nil, live, &report, true)
	assert.NilError(t, err)
	assert.Equal(t, len(live), 0)
	assert.Equal(t, len(report.Errors), 0)
}
