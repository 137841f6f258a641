package testsuite

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"

	"github.com/pako-23/layered/internal/layer"
	"github.com/pako-23/layered/internal/runner"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Filter keeps the tests whose layer name matches layerPattern and whose
// ID matches testPattern. Empty patterns match everything. Layers left
// without tests are dropped.
func (s *Suite) Filter(layerPattern, testPattern string) error {
	layerRe, err := regexp.Compile(layerPattern)
	if err != nil {
		return fmt.Errorf("invalid layer pattern: %w", err)
	}
	testRe, err := regexp.Compile(testPattern)
	if err != nil {
		return fmt.Errorf("invalid test pattern: %w", err)
	}

	for l, tests := range s.Tests {
		if !layerRe.MatchString(l.Name()) {
			delete(s.Tests, l)
			continue
		}

		tests = slices.DeleteFunc(tests, func(t runner.Test) bool {
			return !testRe.MatchString(t.ID())
		})
		if len(tests) == 0 {
			delete(s.Tests, l)
		} else {
			s.Tests[l] = tests
		}
	}

	return nil
}

// Shuffle randomizes the order of the tests within each layer. The same
// seed always gives the same order.
func (s *Suite) Shuffle(seed int64) {
	rng := rand.New(rand.NewSource(seed))

	layers := maps.Keys(s.Tests)
	slices.SortFunc(layers, func(a, b *layer.Layer) int {
		return strings.Compare(a.Name(), b.Name())
	})

	for _, l := range layers {
		tests := s.Tests[l]
		rng.Shuffle(len(tests), func(i, j int) {
			tests[i], tests[j] = tests[j], tests[i]
		})
	}
}
