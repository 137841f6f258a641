package runner

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/pako-23/layered/internal/output"
)

// Options configures how layers and tests are run. The same options are
// shared by the functions that set up and tear down layers.
type Options struct {
	Output output.Formatter
	// Stdout receives the output forwarded from worker processes.
	Stdout    io.Writer
	Processes int
	// ResumeLayer is set when the current process is a worker started to
	// run a single layer.
	ResumeLayer  string
	ResumeNumber int
	// Defaults are forwarded to every worker process.
	Defaults []string
	// ScriptParts is the command starting a worker process, Args are the
	// arguments forwarded to it after the resume flags.
	ScriptParts []string
	Args        []string
	Dir         string
	PostMortem  bool
	// Debugger is called with a layer set up error when PostMortem is set.
	Debugger    func(ctx context.Context, err error)
	StopOnError bool
	Repeat      int
	Verbose     int
}

func (o *Options) resumed() bool {
	return o.ResumeLayer != ""
}

// Option is used to customize a Runner.
type Option func(*Options) error

var ErrInvalidRepeat = errors.New("tests must be repeated at least once")

func WithOutput(formatter output.Formatter) Option {
	return func(o *Options) error {
		o.Output = formatter
		return nil
	}
}

func WithStdout(w io.Writer) Option {
	return func(o *Options) error {
		o.Stdout = w
		return nil
	}
}

// WithProcesses sets how many worker processes may run layers at the same
// time. With more than one process every layer runs in a worker.
func WithProcesses(n int) Option {
	return func(o *Options) error {
		if n < 1 {
			return ErrWrongSetSize
		}
		o.Processes = n
		return nil
	}
}

// WithResume marks the current process as a worker running only layer.
func WithResume(layer string, number int) Option {
	return func(o *Options) error {
		o.ResumeLayer = layer
		o.ResumeNumber = number
		return nil
	}
}

func WithDefaults(defaults ...string) Option {
	return func(o *Options) error {
		o.Defaults = append(o.Defaults, defaults...)
		return nil
	}
}

// WithWorkerCommand sets the command used to start worker processes and
// the arguments forwarded to them.
func WithWorkerCommand(scriptParts []string, args []string, dir string) Option {
	return func(o *Options) error {
		o.ScriptParts = scriptParts
		o.Args = args
		o.Dir = dir
		return nil
	}
}

func WithPostMortem(debugger func(ctx context.Context, err error)) Option {
	return func(o *Options) error {
		o.PostMortem = true
		o.Debugger = debugger
		return nil
	}
}

func WithStopOnError() Option {
	return func(o *Options) error {
		o.StopOnError = true
		return nil
	}
}

func WithRepeat(n int) Option {
	return func(o *Options) error {
		if n < 1 {
			return ErrInvalidRepeat
		}
		o.Repeat = n
		return nil
	}
}

func WithVerbosity(level int) Option {
	return func(o *Options) error {
		o.Verbose = level
		return nil
	}
}

func defaultOptions() Options {
	return Options{
		Output:    output.NewPlain(os.Stdout),
		Stdout:    os.Stdout,
		Processes: DefaultSetSize,
		Repeat:    1,
		Verbose:   1,
	}
}
