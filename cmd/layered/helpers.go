package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/pako-23/layered/internal/docker"
	"github.com/pako-23/layered/internal/fixture"
	"github.com/pako-23/layered/internal/output"
	"github.com/pako-23/layered/internal/testsuite"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	errTestsFailed      = errors.New("tests failed")
	errInvalidDefault   = errors.New("configuration defaults must have the form key=value")
	errInvalidColorMode = errors.New("color must be one of auto, always, never")
	errInvalidFormat    = errors.New("unsupported format")
)

// applyDefaults sets configuration defaults handed to a worker process
// by its parent.
func applyDefaults(defaults []string) error {
	for _, d := range defaults {
		key, value, ok := strings.Cut(d, "=")
		if !ok || key == "" {
			return fmt.Errorf("%w: %q", errInvalidDefault, d)
		}
		viper.SetDefault(key, value)
	}

	return nil
}

// workerDefaults are the settings every worker process inherits.
func workerDefaults() []string {
	defaults := []string{}
	for _, key := range []string{"log", "log-format", "log-file"} {
		if value := viper.GetString(key); value != "" {
			defaults = append(defaults, key+"="+value)
		}
	}

	return defaults
}

func colorEnabled(mode string) (bool, error) {
	switch mode {
	case "auto", "":
		return !color.NoColor, nil
	case "always":
		return true, nil
	case "never":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", errInvalidColorMode, mode)
	}
}

func newFormatter(w io.Writer, format string, verbose int, colorMode string, subprocess bool) (output.Formatter, error) {
	switch format {
	case "log":
		return output.NewLog(nil), nil
	case "plain", "":
	default:
		return nil, fmt.Errorf("%w: %q", errInvalidFormat, format)
	}

	colored, err := colorEnabled(colorMode)
	if err != nil {
		return nil, err
	}

	options := []output.PlainOption{output.WithVerbosity(verbose), output.WithColor(colored)}
	if subprocess {
		options = append(options, output.InSubprocess())
	}

	return output.NewPlain(w, options...), nil
}

// loadSuite reads the suite at path. The returned function releases the
// Docker client used by Compose layers.
func loadSuite(path string) (*testsuite.Suite, func(), error) {
	file, err := testsuite.Load(path)
	if err != nil {
		return nil, nil, err
	}

	var (
		engine  fixture.Engine
		release = func() {}
	)
	if file.UsesCompose() {
		client, err := docker.NewDefaultClient()
		if err != nil {
			return nil, nil, err
		}
		engine = client
		release = func() {
			if err := client.Close(); err != nil {
				log.Errorf("failed to close Docker client: %v", err)
			}
		}
	}

	suite, err := testsuite.Build(file, engine)
	if err != nil {
		release()
		return nil, nil, err
	}

	return suite, release, nil
}

// postMortem shows a layer set up failure with its stack and waits for
// the user before the run goes on.
func postMortem(in io.Reader, out io.Writer) func(context.Context, error) {
	reader := bufio.NewReader(in)

	return func(_ context.Context, err error) {
		fmt.Fprintf(out, "%+v\n\nPress Enter to continue...", err)
		_, _ = reader.ReadString('\n')
	}
}

// forwardedArgs are the arguments a worker process needs to select and
// run tests the way the parent does.
func forwardedArgs(path string, seed int64, shuffled bool) ([]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	args := []string{}
	if cfg := viper.ConfigFileUsed(); cfg != "" {
		args = append(args, "--config", cfg)
	}
	args = append(args,
		"--layer", viper.GetString("layer"),
		"--test", viper.GetString("test"),
		"--repeat", strconv.Itoa(viper.GetInt("repeat")),
		"--format", viper.GetString("format"),
		"--color", viper.GetString("color"),
		"--verbose", strconv.Itoa(viper.GetInt("verbose")),
	)
	if shuffled {
		args = append(args, "--shuffle-seed", strconv.FormatInt(seed, 10))
	}
	if viper.GetBool("stop-on-error") {
		args = append(args, "--stop-on-error")
	}
	if viper.GetBool("post-mortem") {
		args = append(args, "--post-mortem")
	}

	return append(args, abs), nil
}

func executable() ([]string, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate the layered executable: %w", err)
	}

	return []string{exe, "run"}, nil
}
