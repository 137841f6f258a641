package testsuite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pako-23/layered/internal/digraph"
	"golang.org/x/exp/slices"
)

// CycleError reports layers that are their own bases.
type CycleError struct {
	Cycles [][]string
}

func (e *CycleError) Error() string {
	cycles := make([]string, len(e.Cycles))
	for i, cycle := range e.Cycles {
		cycles[i] = "[" + strings.Join(cycle, ", ") + "]"
	}

	return "layer base cycles: " + strings.Join(cycles, ", ")
}

func checkCycles(specs []LayerSpec) error {
	g := digraph.New[string]()
	for _, spec := range specs {
		g.AddNodes(spec.Name)
	}

	for _, spec := range specs {
		if err := g.AddNeighbors(spec.Name, spec.Bases, false); err != nil {
			var missing *digraph.MissingNeighborsError[string]
			if errors.As(err, &missing) {
				return fmt.Errorf("layer %s: %w %s", spec.Name, ErrUnknownLayer, strings.Join(missing.Neighbors, ", "))
			}

			return err
		}
	}

	var cycles [][]string
	for scc := range g.SCCs(false) {
		cycle := slices.Clone(scc)
		slices.Sort(cycle)
		cycles = append(cycles, cycle)
	}

	if len(cycles) == 0 {
		return nil
	}

	slices.SortFunc(cycles, func(a, b []string) int {
		return strings.Compare(a[0], b[0])
	})

	return &CycleError{Cycles: cycles}
}
