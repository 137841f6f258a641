// Copyright 2023 The GTDD Authors. All rights reserved.
// Use of this source code is governed by a GPL-style
// license that can be found in the LICENSE file.

// Package testsuite loads layered test suites from YAML files.
package testsuite

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pako-23/layered/internal/fixture"
	"github.com/pako-23/layered/internal/layer"
	"github.com/pako-23/layered/internal/runner"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingName     = errors.New("missing name")
	ErrDuplicateName   = errors.New("duplicate name")
	ErrUnknownLayer    = errors.New("unknown layer")
	ErrMissingCommand  = errors.New("missing command")
	ErrNoComposeEngine = errors.New("no Docker engine available for compose layers")
)

// LayerSpec is the definition of a layer in a suite file.
type LayerSpec struct {
	Name         string            `yaml:"name"`
	Bases        []string          `yaml:"bases"`
	SetUp        []string          `yaml:"setup"`
	TearDown     []string          `yaml:"teardown"`
	TestSetUp    []string          `yaml:"test-setup"`
	TestTearDown []string          `yaml:"test-teardown"`
	Persistent   bool              `yaml:"persistent"`
	Compose      string            `yaml:"compose"`
	Env          map[string]string `yaml:"env"`
	Dir          string            `yaml:"dir"`
}

// TestSpec is the definition of a test in a suite file. Tests without a
// layer run in the UnitTests layer.
type TestSpec struct {
	Name    string            `yaml:"name"`
	Layer   string            `yaml:"layer"`
	Command []string          `yaml:"command"`
	Env     map[string]string `yaml:"env"`
	Dir     string            `yaml:"dir"`
}

// File is a decoded suite file.
type File struct {
	Layers []LayerSpec `yaml:"layers"`
	Tests  []TestSpec  `yaml:"tests"`
}

// Decode reads a suite from r. Unknown fields are rejected.
func Decode(r io.Reader) (*File, error) {
	var file File

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode test suite: %w", err)
	}

	if err := file.Validate(); err != nil {
		return nil, err
	}

	return &file, nil
}

// Load reads the suite file at path. Relative directories in the file
// are resolved against the directory of the file.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open test suite: %w", err)
	}
	defer f.Close()

	file, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	root, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	file.resolve(root)
	log.Debugf("loaded %d layers and %d tests from %s", len(file.Layers), len(file.Tests), path)

	return file, nil
}

func resolveDir(root, dir string) string {
	if dir == "" {
		return root
	}
	if filepath.IsAbs(dir) {
		return dir
	}

	return filepath.Join(root, dir)
}

func (f *File) resolve(root string) {
	for i := range f.Layers {
		f.Layers[i].Dir = resolveDir(root, f.Layers[i].Dir)
		if f.Layers[i].Compose != "" && !filepath.IsAbs(f.Layers[i].Compose) {
			f.Layers[i].Compose = filepath.Join(f.Layers[i].Dir, f.Layers[i].Compose)
		}
	}
	for i := range f.Tests {
		f.Tests[i].Dir = resolveDir(root, f.Tests[i].Dir)
	}
}

// UsesCompose tells whether a layer of the suite runs a Compose project.
func (f *File) UsesCompose() bool {
	for _, spec := range f.Layers {
		if spec.Compose != "" {
			return true
		}
	}

	return false
}

// Validate checks that names are unique, that every referenced layer is
// defined and that layers do not inherit from themselves.
func (f *File) Validate() error {
	layers := make(map[string]struct{}, len(f.Layers))
	for _, spec := range f.Layers {
		if spec.Name == "" {
			return fmt.Errorf("layer: %w", ErrMissingName)
		}
		if _, ok := layers[spec.Name]; ok || spec.Name == layer.UnitTests.Name() || spec.Name == layer.Empty.Name() {
			return fmt.Errorf("layer %s: %w", spec.Name, ErrDuplicateName)
		}
		layers[spec.Name] = struct{}{}
	}

	if err := checkCycles(f.Layers); err != nil {
		return err
	}

	tests := make(map[string]struct{}, len(f.Tests))
	for _, spec := range f.Tests {
		if spec.Name == "" {
			return fmt.Errorf("test: %w", ErrMissingName)
		}
		if _, ok := tests[spec.Name]; ok {
			return fmt.Errorf("test %s: %w", spec.Name, ErrDuplicateName)
		}
		tests[spec.Name] = struct{}{}

		if _, ok := layers[spec.Layer]; spec.Layer != "" && !ok {
			return fmt.Errorf("test %s: %w %s", spec.Name, ErrUnknownLayer, spec.Layer)
		}
		if len(spec.Command) == 0 {
			return fmt.Errorf("test %s: %w", spec.Name, ErrMissingCommand)
		}
	}

	return nil
}

func environ(env map[string]string) []string {
	result := make([]string, 0, len(env))
	for k, v := range env {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)

	return result
}

// Suite is a loaded test suite: its layers and the tests of each layer
// in file order.
type Suite struct {
	Registry *layer.Registry
	Tests    map[*layer.Layer][]runner.Test
}

// Build defines the layers of file in a new registry. engine deploys
// Compose layers and may be nil when no layer uses Compose.
func Build(file *File, engine fixture.Engine) (*Suite, error) {
	if err := file.Validate(); err != nil {
		return nil, err
	}
	if engine == nil && file.UsesCompose() {
		return nil, ErrNoComposeEngine
	}

	suite := &Suite{
		Registry: layer.NewRegistry(),
		Tests:    map[*layer.Layer][]runner.Test{},
	}

	specs := make(map[string]*LayerSpec, len(file.Layers))
	for i := range file.Layers {
		specs[file.Layers[i].Name] = &file.Layers[i]
	}

	var define func(spec *LayerSpec) error
	define = func(spec *LayerSpec) error {
		if _, err := suite.Registry.Lookup(spec.Name); err == nil {
			return nil
		}
		for _, base := range spec.Bases {
			if err := define(specs[base]); err != nil {
				return err
			}
		}

		_, err := suite.Registry.Define(spec.Name, newFixture(spec, engine), spec.Bases...)
		return err
	}

	for i := range file.Layers {
		if err := define(&file.Layers[i]); err != nil {
			return nil, err
		}
	}

	for _, spec := range file.Tests {
		l := layer.UnitTests
		if spec.Layer != "" {
			var err error
			if l, err = suite.Registry.Lookup(spec.Layer); err != nil {
				return nil, err
			}
		}

		suite.Tests[l] = append(suite.Tests[l], &CommandTest{
			Name:  spec.Name,
			Layer: l.Name(),
			Args:  spec.Command,
			Env:   environ(spec.Env),
			Dir:   spec.Dir,
		})
	}

	return suite, nil
}

func newFixture(spec *LayerSpec, engine fixture.Engine) any {
	command := &fixture.Command{
		Layer:            spec.Name,
		SetUpArgs:        spec.SetUp,
		TearDownArgs:     spec.TearDown,
		TestSetUpArgs:    spec.TestSetUp,
		TestTearDownArgs: spec.TestTearDown,
		Env:              environ(spec.Env),
		Dir:              spec.Dir,
		Persistent:       spec.Persistent,
	}

	if spec.Compose == "" {
		return command
	}

	return fixture.Sequence{fixture.NewCompose(engine, spec.Name, spec.Compose), command}
}

// Register adds the tests of the suite to r.
func (s *Suite) Register(r *runner.Runner) {
	for l, tests := range s.Tests {
		r.Register(l, tests...)
	}
}

// Count returns the number of tests in the suite.
func (s *Suite) Count() int {
	total := 0
	for _, tests := range s.Tests {
		total += len(tests)
	}

	return total
}
