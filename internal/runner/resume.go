package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

var dots = regexp.MustCompile(`^\.+\r?\n$`)

// subprocessResult holds what a worker process reported about its layer.
type subprocessResult struct {
	layer  string
	stdout [][]byte
	report Report
	done   chan struct{}
	// immediate results are written as soon as they are read.
	immediate io.Writer
}

func (s *subprocessResult) write(line []byte) {
	if s.immediate != nil {
		_, _ = s.immediate.Write(line)
		return
	}

	if !dots.Match(line) {
		s.stdout = append(s.stdout, bytes.Clone(line))
	}
}

// resumeTests runs every group in its own worker process, at most
// Processes at a time, and returns the number of tests they ran. Output
// and results are replayed in the order of groups.
func (r *Runner) resumeTests(ctx context.Context, groups []Group) int {
	var (
		options = &r.options
		results = make([]*subprocessResult, len(groups))
		number  = 0
	)

	if options.Processes > 1 {
		number = 1
	}

	for i, group := range groups {
		results[i] = &subprocessResult{layer: group.Layer.Name(), done: make(chan struct{})}
		if options.Processes == 1 {
			results[i].immediate = options.Stdout
		}
	}

	set, err := NewProcessSet(max(options.Processes, 1))
	if err != nil {
		log.Errorf("failed to create process set: %v", err)
		return 0
	}

	go func() {
		for i, result := range results {
			set.Go(func() error {
				defer close(result.done)
				r.spawnLayerInSubprocess(ctx, result, number+i)
				return nil
			})
		}
		_ = set.Wait()
	}()

	ran := 0
	for _, result := range results {
		<-result.done

		for _, line := range result.stdout {
			_, _ = options.Stdout.Write(line)
		}
		r.report.merge(&result.report)
		ran += result.report.Ran
	}

	return ran
}

// workerArgs returns the command line of the worker running layer.
func (o *Options) workerArgs(layer string, number int) []string {
	args := append([]string{}, o.ScriptParts...)
	args = append(args, "--resume-layer", layer, "--resume-number", strconv.Itoa(number))

	for _, d := range o.Defaults {
		args = append(args, "--default", d)
	}

	return append(args, o.Args...)
}

func (r *Runner) spawnLayerInSubprocess(ctx context.Context, result *subprocessResult, number int) {
	var (
		options = &r.options
		args    = options.workerArgs(result.layer, number)
	)

	if len(args) == 0 {
		r.communicationFailure(result, args, nil)
		return
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = options.Dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		log.Errorf("[layer=%s] failed to get worker stdout: %v", result.layer, err)
		r.communicationFailure(result, args, nil)
		return
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		log.Errorf("[layer=%s] failed to get worker stderr: %v", result.layer, err)
		r.communicationFailure(result, args, nil)
		return
	}

	if err := cmd.Start(); err != nil {
		log.Errorf("[layer=%s] failed to start worker: %v", result.layer, err)
		r.communicationFailure(result, args, nil)
		return
	}
	log.Debugf("[layer=%s] started worker %d: %v", result.layer, cmd.Process.Pid, args)

	var (
		errOutput []byte
		errDone   = make(chan struct{})
	)

	go func() {
		defer close(errDone)
		errOutput, _ = io.ReadAll(stderr)
	}()

	reader := bufio.NewReader(stdout)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			result.write(line)
		}

		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			options.Output.Error(fmt.Sprintf("Error reading subprocess output for %s", result.layer))
			options.Output.Info(err.Error())
			_, _ = io.Copy(io.Discard, reader)
			break
		}
	}

	<-errDone
	if err := cmd.Wait(); err != nil {
		log.Debugf("[layer=%s] worker exited: %v", result.layer, err)
	}

	lines := splitLines(string(errOutput))
	report, ok := parseControl(lines)
	if !ok {
		r.communicationFailure(result, args, lines)
		return
	}

	result.report.Ran = report.Ran
	result.report.Failures = report.Failures
	result.report.Errors = report.Errors
}

func (r *Runner) communicationFailure(result *subprocessResult, args, lines []string) {
	var (
		verbose = r.options.Verbose
		message strings.Builder
	)

	result.report.Errors = append(result.report.Errors, Failure{Name: "subprocess for " + result.layer})

	message.WriteString("Could not communicate with subprocess!")
	if verbose >= 1 {
		fmt.Fprintf(&message, "\nChild command line: %v", args)
	}

	indent := func(lines []string) string {
		indented := make([]string, len(lines))
		for i, line := range lines {
			indented[i] = "  " + line
		}
		return strings.Join(indented, "\n")
	}

	if verbose >= 2 || (verbose == 1 && len(lines) < 20) {
		message.WriteString("\nChild stderr was:\n" + indent(lines))
	} else if verbose >= 1 {
		message.WriteString("\nChild stderr was:\n" + indent(lines[:10]) + "\n...\n" + indent(lines[len(lines)-10:]))
	}

	r.options.Output.ErrorWithBanner(message.String())
}
