// Copyright 2023 The GTDD Authors. All rights reserved.
// Use of this source code is governed by a GPL-style
// license that can be found in the LICENSE file.

// Package fixture provides the resources that layers set up and tear
// down: external commands and Docker Compose projects.
package fixture

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/pako-23/layered/internal/layer"
	log "github.com/sirupsen/logrus"
)

// outputTail is the number of output bytes attached to a failed command.
const outputTail = 2048

// Command runs external programs as layer hooks. Empty hooks do
// nothing.
type Command struct {
	Layer            string
	SetUpArgs        []string
	TearDownArgs     []string
	TestSetUpArgs    []string
	TestTearDownArgs []string
	Env              []string
	Dir              string
	// Persistent layers can not be torn down in process.
	Persistent bool
}

// CommandError is returned when a hook exits unsuccessfully.
type CommandError struct {
	Args   []string
	Output []byte
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q failed: %v", strings.Join(e.Args, " "), e.Err)
	if len(e.Output) == 0 {
		return msg
	}

	return msg + "\n" + string(Tail(e.Output, outputTail))
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Tail returns at most n trailing bytes of output.
func Tail(output []byte, n int) []byte {
	output = bytes.TrimRight(output, "\n")
	if len(output) <= n {
		return output
	}

	return output[len(output)-n:]
}

// Run executes args in dir with env appended to the current
// environment.
func Run(ctx context.Context, args, env []string, dir string) error {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	if err != nil {
		return &CommandError{Args: args, Output: output, Err: err}
	}

	return nil
}

func (c *Command) run(ctx context.Context, hook string, args []string) error {
	if len(args) == 0 {
		return nil
	}

	log.Debugf("[layer=%s] running %s hook: %v", c.Layer, hook, args)
	env := append([]string{"LAYERED_LAYER=" + c.Layer}, c.Env...)

	return Run(ctx, args, env, c.Dir)
}

func (c *Command) SetUp(ctx context.Context) error {
	return c.run(ctx, "set up", c.SetUpArgs)
}

func (c *Command) TearDown(ctx context.Context) error {
	if c.Persistent {
		return layer.ErrTearDownNotSupported
	}

	return c.run(ctx, "tear down", c.TearDownArgs)
}

func (c *Command) TestSetUp(ctx context.Context) error {
	return c.run(ctx, "test set up", c.TestSetUpArgs)
}

func (c *Command) TestTearDown(ctx context.Context) error {
	return c.run(ctx, "test tear down", c.TestTearDownArgs)
}
