package runner

import (
	"errors"

	"golang.org/x/sync/errgroup"
)

// The default number of processes running layers at the same time.
const DefaultSetSize = 1

var ErrWrongSetSize = errors.New("a process set must have at least size 1")

// ProcessSet bounds the number of worker processes running at the same
// time.
type ProcessSet struct {
	group errgroup.Group
	size  int
}

// NewProcessSet creates a set allowing size concurrent workers.
func NewProcessSet(size int) (*ProcessSet, error) {
	if size < 1 {
		return nil, ErrWrongSetSize
	}

	set := &ProcessSet{size: size}
	set.group.SetLimit(size)

	return set, nil
}

// Go runs fn as soon as a slot is free. It blocks while the set is full.
func (p *ProcessSet) Go(fn func() error) {
	p.group.Go(fn)
}

// Wait blocks until every function started with Go returned, and returns
// the first error among them.
func (p *ProcessSet) Wait() error {
	return p.group.Wait()
}

func (p *ProcessSet) Size() int {
	return p.size
}
