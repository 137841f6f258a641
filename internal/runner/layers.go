package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pako-23/layered/internal/layer"
	pkgerrors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

var (
	// ErrCanNotTearDown is returned when a layer that is no longer needed
	// cannot be torn down. The remaining layers must run in new processes.
	ErrCanNotTearDown = errors.New("can not tear down layer")
	// ErrEndRun aborts the whole run when returned by a test or a hook.
	ErrEndRun = errors.New("end of run requested")
)

const cantPostMortemMessage = `
Can't post-mortem debug when running a layer as a subprocess!
Try running layer %q by itself.
`

// LayerSet is a set of layers. The set of live layers of a process tells
// which layers are currently set up.
type LayerSet map[*layer.Layer]struct{}

func NewLayerSet(layers ...*layer.Layer) LayerSet {
	set := make(LayerSet, len(layers))
	for _, l := range layers {
		set[l] = struct{}{}
	}

	return set
}

func (s LayerSet) Has(l *layer.Layer) bool {
	_, ok := s[l]
	return ok
}

// Layers returns the layers in the set sorted by name.
func (s LayerSet) Layers() []*layer.Layer {
	layers := make([]*layer.Layer, 0, len(s))
	for l := range s {
		layers = append(layers, l)
	}
	sort.Slice(layers, func(i, j int) bool {
		return layers[i].Name() < layers[j].Name()
	})

	return layers
}

// LayerError is a failure of a layer hook.
type LayerError struct {
	Layer *layer.Layer
	Op    string
	Err   error
}

// Name identifies the failing hook in reports.
func (e *LayerError) Name() string {
	return fmt.Sprintf("Layer: %s.%s", e.Layer.Name(), e.Op)
}

func (e *LayerError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name(), e.Err)
}

func (e *LayerError) Unwrap() error {
	return e.Err
}

// callHook runs hook turning panics into errors carrying a stack trace.
func callHook(ctx context.Context, name string, hook func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = pkgerrors.Errorf("panic in %s: %v", name, r)
		}
	}()

	return hook(ctx)
}

// fatal tells whether err must stop the run instead of being reported.
func fatal(ctx context.Context, err error) bool {
	return errors.Is(err, layer.ErrResourceExhausted) ||
		errors.Is(err, ErrEndRun) ||
		ctx.Err() != nil
}

func handleLayerFailure(options *Options, report *Report, failure *LayerError) {
	options.Output.LayerFailure(failure.Name(), failure.Err)
	report.Errors = append(report.Errors, Failure{Name: failure.Name(), Err: failure.Err})
}

// SetupLayer sets up l after its bases, unless it is already live. Every
// layer successfully set up is added to live.
func SetupLayer(ctx context.Context, options *Options, l *layer.Layer, live LayerSet) error {
	if live.Has(l) {
		return nil
	}

	for _, base := range l.Bases() {
		if err := SetupLayer(ctx, options, base, live); err != nil {
			return err
		}
	}

	options.Output.StartSetUp(l.Name())
	start := time.Now()

	if err := callHook(ctx, l.Name()+".setUp", l.SetUp); err != nil {
		if options.PostMortem && !fatal(ctx, err) {
			if options.resumed() {
				options.Output.ErrorWithBanner(fmt.Sprintf(cantPostMortemMessage, options.ResumeLayer))
			} else if options.Debugger != nil {
				options.Debugger(ctx, err)
			}
		}

		return &LayerError{Layer: l, Op: "setUp", Err: err}
	}

	options.Output.StopSetUp(time.Since(start))
	live[l] = struct{}{}
	log.Debugf("[layer=%s] set up", l.Name())

	return nil
}

// TearDownUnneeded tears down, most specific first, every live layer not
// in needed. Failing tear downs are added to the errors of report. A layer
// that does not support being torn down makes the function return
// ErrCanNotTearDown, unless optional is set.
func TearDownUnneeded(ctx context.Context, options *Options, needed, live LayerSet, report *Report, optional bool) error {
	unneeded := []*layer.Layer{}
	for _, l := range live.Layers() {
		if !needed.Has(l) {
			unneeded = append(unneeded, l)
		}
	}

	unneeded = layer.OrderByBases(unneeded)
	slices.Reverse(unneeded)

	for _, l := range unneeded {
		if err := tearDownLayer(ctx, options, l, live, report, optional); err != nil {
			return err
		}
	}

	return nil
}

func tearDownLayer(ctx context.Context, options *Options, l *layer.Layer, live LayerSet, report *Report, optional bool) error {
	defer delete(live, l)

	options.Output.StartTearDown(l.Name())
	start := time.Now()

	err := callHook(ctx, l.Name()+".tearDown", l.TearDown)
	switch {
	case err == nil:
		options.Output.StopTearDown(time.Since(start))
		log.Debugf("[layer=%s] torn down", l.Name())
	case errors.Is(err, layer.ErrTearDownNotSupported):
		options.Output.TearDownNotSupported()
		if !optional {
			return fmt.Errorf("%w: %s", ErrCanNotTearDown, l.Name())
		}
	case fatal(ctx, err):
		return err
	default:
		handleLayerFailure(options, report, &LayerError{Layer: l, Op: "tearDown", Err: err})
	}

	return nil
}
