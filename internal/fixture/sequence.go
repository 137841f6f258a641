package fixture

import (
	"context"
	"errors"

	"github.com/pako-23/layered/internal/layer"
	"golang.org/x/exp/slices"
)

// Sequence combines fixtures. Set up hooks run in order and tear down
// hooks in reverse order. A sequence can not be torn down if one of its
// parts can not.
type Sequence []any

func (s Sequence) SetUp(ctx context.Context) error {
	for _, part := range s {
		if f, ok := part.(layer.SetUpper); ok {
			if err := f.SetUp(ctx); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s Sequence) TearDown(ctx context.Context) error {
	reversed := slices.Clone(s)
	slices.Reverse(reversed)

	var errs []error
	for _, part := range reversed {
		if f, ok := part.(layer.TearDowner); ok {
			if err := f.TearDown(ctx); err != nil {
				if errors.Is(err, layer.ErrTearDownNotSupported) {
					return err
				}
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

func (s Sequence) TestSetUp(ctx context.Context) error {
	for _, part := range s {
		if f, ok := part.(layer.TestSetUpper); ok {
			if err := f.TestSetUp(ctx); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s Sequence) TestTearDown(ctx context.Context) error {
	reversed := slices.Clone(s)
	slices.Reverse(reversed)

	var errs []error
	for _, part := range reversed {
		if f, ok := part.(layer.TestTearDowner); ok {
			errs = append(errs, f.TestTearDown(ctx))
		}
	}

	return errors.Join(errs...)
}
