// Copyright 2023 The GTDD Authors. All rights reserved.
// Use of this source code is governed by a GPL-style
// license that can be found in the LICENSE file.

// Package layer models shared test fixtures as named nodes of a directed
// acyclic graph and orders them so that fixtures are set up and torn down
// as few times as possible.
package layer

import (
	"context"
	"errors"
)

var (
	// ErrTearDownNotSupported is returned by a fixture whose resources
	// cannot be released inside the current process.
	ErrTearDownNotSupported = errors.New("tear down not supported")
	// ErrResourceExhausted marks failures that must abort the whole run
	// instead of being reported and skipped.
	ErrResourceExhausted = errors.New("resource exhausted")
)

// SetUpper is implemented by fixtures that acquire resources once per layer.
type SetUpper interface {
	SetUp(ctx context.Context) error
}

// TearDowner is implemented by fixtures that release their resources.
type TearDowner interface {
	TearDown(ctx context.Context) error
}

// TestSetUpper is implemented by fixtures that prepare every single test.
type TestSetUpper interface {
	TestSetUp(ctx context.Context) error
}

// TestTearDowner is implemented by fixtures that clean up after every test.
type TestTearDowner interface {
	TestTearDown(ctx context.Context) error
}

// A Layer is a named shared fixture. Its bases are the layers that must be
// live before it can be set up, in the order they were declared.
type Layer struct {
	name    string
	bases   []*Layer
	fixture any
}

// New returns a layer named name depending on the provided bases. The
// fixture may implement any of SetUpper, TearDowner, TestSetUpper and
// TestTearDowner; a nil fixture gives a layer without hooks.
func New(name string, fixture any, bases ...*Layer) *Layer {
	return &Layer{
		name:    name,
		bases:   append([]*Layer(nil), bases...),
		fixture: fixture,
	}
}

func (l *Layer) Name() string {
	return l.name
}

func (l *Layer) String() string {
	return l.name
}

// Bases returns the declared bases of the layer.
func (l *Layer) Bases() []*Layer {
	return l.bases
}

func (l *Layer) Fixture() any {
	return l.fixture
}

// SetUp runs the set up hook of the fixture if it has one.
func (l *Layer) SetUp(ctx context.Context) error {
	if f, ok := l.fixture.(SetUpper); ok {
		return f.SetUp(ctx)
	}

	return nil
}

// TearDown runs the tear down hook of the fixture if it has one.
func (l *Layer) TearDown(ctx context.Context) error {
	if f, ok := l.fixture.(TearDowner); ok {
		return f.TearDown(ctx)
	}

	return nil
}

func (l *Layer) TestSetUp(ctx context.Context) error {
	if f, ok := l.fixture.(TestSetUpper); ok {
		return f.TestSetUp(ctx)
	}

	return nil
}

func (l *Layer) TestTearDown(ctx context.Context) error {
	if f, ok := l.fixture.(TestTearDowner); ok {
		return f.TestTearDown(ctx)
	}

	return nil
}

var (
	// UnitTests groups tests that need no shared fixture. It never
	// contributes to the sort key of other layers.
	UnitTests = New("UnitTests", nil)
	// Empty is a layer without tests. It is run first when the remaining
	// layers are handed to worker processes.
	Empty = New("EmptyLayer", nil)
)
