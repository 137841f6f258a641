package layer_test

import (
	"strings"
	"testing"

	"github.com/pako-23/layered/internal/layer"
	"gotest.tools/v3/assert"
)

type declaration struct {
	name  string
	bases []string
}

func newRegistry(t *testing.T, declarations ...declaration) *layer.Registry {
	t.Helper()

	registry := layer.NewRegistry()
	for _, d := range declarations {
		_, err := registry.Define(d.name, nil, d.bases...)
		assert.NilError(t, err)
	}

	return registry
}

func lookup(t *testing.T, registry *layer.Registry, names ...string) []*layer.Layer {
	t.Helper()

	layers := make([]*layer.Layer, len(names))
	for i, name := range names {
		l, err := registry.Lookup(name)
		assert.NilError(t, err)
		layers[i] = l
	}

	return layers
}

func names(layers []*layer.Layer) string {
	result := make([]string, len(layers))
	for i, l := range layers {
		result[i] = l.Name()
	}

	return strings.Join(result, ", ")
}

var (
	diamond = []declaration{
		{name: "A"},
		{name: "B", bases: []string{"A"}},
		{name: "C", bases: []string{"B"}},
		{name: "D", bases: []string{"A"}},
		{name: "E", bases: []string{"D"}},
		{name: "F", bases: []string{"C", "E"}},
	}
	multipleInheritance = []declaration{
		{name: "Layer1"},
		{name: "Layerx"},
		{name: "Layer11", bases: []string{"Layer1"}},
		{name: "Layer12", bases: []string{"Layer1"}},
		{name: "Layer111", bases: []string{"Layerx", "Layer11"}},
		{name: "Layer121", bases: []string{"Layer12"}},
		{name: "Layer112", bases: []string{"Layerx", "Layer11"}},
		{name: "Layer122", bases: []string{"Layer12"}},
	}
)

func TestSortKey(t *testing.T) {
	t.Parallel()

	var tests = []struct {
		declarations []declaration
		layer        string
		expected     string
	}{
		{
			declarations: []declaration{{name: "A"}, {name: "B"}, {name: "AB", bases: []string{"A", "B"}}},
			layer:        "AB",
			expected:     "B, A, AB",
		},
		{
			declarations: []declaration{{name: "A"}, {name: "A1", bases: []string{"A"}}},
			layer:        "A1",
			expected:     "A, A1",
		},
		{declarations: diamond, layer: "F", expected: "A, D, E, B, C, F"},
		{declarations: multipleInheritance, layer: "Layer111", expected: "Layer1, Layer11, Layerx, Layer111"},
		{declarations: nil, layer: "UnitTests", expected: ""},
	}

	for _, test := range tests {
		registry := newRegistry(t, test.declarations...)
		l := lookup(t, registry, test.layer)[0]

		assert.Equal(t, strings.Join(layer.SortKey(l), ", "), test.expected)
	}
}

func TestGather(t *testing.T) {
	t.Parallel()

	registry := newRegistry(t, diamond...)
	f := lookup(t, registry, "F")[0]

	assert.Equal(t, names(layer.Gather(f, nil)), "F, C, B, A, E, D, A")
}

func TestOrderByBases(t *testing.T) {
	t.Parallel()

	var tests = []struct {
		name         string
		declarations []declaration
		input        []string
		expected     string
	}{
		{
			name: "unit tests first",
			declarations: []declaration{
				{name: "A"},
				{name: "B"},
				{name: "A1", bases: []string{"A"}},
				{name: "A2", bases: []string{"A"}},
				{name: "AB", bases: []string{"A", "B"}},
			},
			input:    []string{"B", "A1", "A2", "A1", "AB", "UnitTests"},
			expected: "UnitTests, A1, A2, B, AB",
		},
		{
			name: "alphabetical by base",
			declarations: []declaration{
				{name: "X"},
				{name: "Y"},
				{name: "Z"},
				{name: "A", bases: []string{"Y"}},
				{name: "B", bases: []string{"X"}},
				{name: "C", bases: []string{"Z"}},
			},
			input:    []string{"A", "B", "C"},
			expected: "B, A, C",
		},
		{
			name:         "diamond",
			declarations: diamond,
			input:        []string{"A", "B", "C", "D", "E", "F"},
			expected:     "A, B, C, D, E, F",
		},
		{
			name:         "diamond subset",
			declarations: diamond,
			input:        []string{"B", "E"},
			expected:     "B, E",
		},
		{
			name: "shared set up",
			declarations: []declaration{
				{name: "A"},
				{name: "AB", bases: []string{"A"}},
				{name: "AC", bases: []string{"A"}},
				{name: "AAAABD", bases: []string{"AB"}},
				{name: "ZZZABE", bases: []string{"AB"}},
				{name: "MMMACF", bases: []string{"AC"}},
			},
			input:    []string{"AAAABD", "MMMACF", "ZZZABE"},
			expected: "AAAABD, ZZZABE, MMMACF",
		},
		{
			name:         "multiple inheritance",
			declarations: multipleInheritance,
			input:        []string{"Layer1", "Layer11", "Layer12", "Layer111", "Layer112", "Layer121", "Layer122"},
			expected:     "Layer1, Layer11, Layer111, Layer112, Layer12, Layer121, Layer122",
		},
		{
			name:         "multiple inheritance subset",
			declarations: multipleInheritance,
			input:        []string{"Layer111", "Layer12"},
			expected:     "Layer111, Layer12",
		},
		{
			name:         "multiple inheritance with extra base",
			declarations: multipleInheritance,
			input:        []string{"Layerx", "Layer1", "Layer11", "Layer112"},
			expected:     "Layer1, Layer11, Layerx, Layer112",
		},
		{
			name: "reverse tree subset",
			declarations: []declaration{
				{name: "F"},
				{name: "E"},
				{name: "D"},
				{name: "C", bases: []string{"D", "F"}},
				{name: "B", bases: []string{"D", "E"}},
				{name: "A", bases: []string{"B", "C"}},
			},
			input:    []string{"A", "B", "C"},
			expected: "B, C, A",
		},
		{
			name: "reverse tree",
			declarations: []declaration{
				{name: "F"},
				{name: "E"},
				{name: "D"},
				{name: "C", bases: []string{"D", "F"}},
				{name: "B", bases: []string{"D", "E"}},
				{name: "A", bases: []string{"B", "C"}},
			},
			input:    []string{"A", "B", "C", "D", "E", "F"},
			expected: "D, E, B, F, C, A",
		},
		{
			name: "complicated hierarchy",
			declarations: []declaration{
				{name: "A"},
				{name: "B"},
				{name: "C"},
				{name: "D"},
				{name: "E"},
				{name: "K1", bases: []string{"A", "B", "C"}},
				{name: "K2", bases: []string{"D", "B", "E"}},
				{name: "K3", bases: []string{"D", "A"}},
				{name: "ZZ", bases: []string{"K1", "K2", "K3"}},
			},
			input:    []string{"K1", "K2", "K3", "ZZ"},
			expected: "K3, K2, K1, ZZ",
		},
		{
			name:     "empty",
			input:    nil,
			expected: "",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			registry := newRegistry(t, test.declarations...)
			got := layer.OrderByBases(lookup(t, registry, test.input...))

			assert.Equal(t, names(got), test.expected)
		})
	}
}

func TestOrderByBasesPutsBasesFirst(t *testing.T) {
	t.Parallel()

	registry := newRegistry(t, multipleInheritance...)
	ordered := layer.OrderByBases(registry.Layers())
	position := map[*layer.Layer]int{}

	for i, l := range ordered {
		position[l] = i
	}

	assert.Equal(t, len(ordered), len(registry.Layers()))
	for _, l := range ordered {
		for _, base := range l.Bases() {
			assert.Check(t, position[base] < position[l], "%s before %s", base, l)
		}
	}
}
