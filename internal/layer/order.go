package layer

import (
	"golang.org/x/exp/slices"
)

// Gather appends l and, recursively, every one of its bases in declared
// order to acc. Layers reachable through several paths appear once per
// path.
func Gather(l *Layer, acc []*Layer) []*Layer {
	acc = append(acc, l)
	for _, base := range l.bases {
		acc = Gather(base, acc)
	}

	return acc
}

// SortKey returns the names of l and of all its ancestors. Bases are
// visited in reverse declaration order, each ancestor is listed once and
// always after its own bases. UnitTests is never part of a key.
func SortKey(l *Layer) []string {
	var (
		seen = map[*Layer]struct{}{}
		key  []string
		walk func(*Layer)
	)

	walk = func(node *Layer) {
		for i := len(node.bases) - 1; i >= 0; i-- {
			base := node.bases[i]
			if _, ok := seen[base]; ok {
				continue
			}
			seen[base] = struct{}{}
			walk(base)
		}

		if node != UnitTests {
			key = append(key, node.name)
		}
	}

	walk(l)

	return key
}

// OrderByBases returns the given layers in the order they should be set
// up. A layer always comes after every one of its bases that is also in
// the input, and layers sharing bases are kept close together. Duplicates
// in the input are dropped. The result only depends on the layer graph and
// on the input order of layers with equal sort keys.
func OrderByBases(layers []*Layer) []*Layer {
	type keyed struct {
		layer *Layer
		key   []string
	}

	sorted := make([]keyed, len(layers))
	for i, l := range layers {
		sorted[i] = keyed{layer: l, key: SortKey(l)}
	}

	slices.SortStableFunc(sorted, func(a, b keyed) int {
		return slices.Compare(b.key, a.key)
	})

	var gathered []*Layer
	for _, k := range sorted {
		gathered = Gather(k.layer, gathered)
	}
	slices.Reverse(gathered)

	wanted := make(map[*Layer]struct{}, len(layers))
	for _, l := range layers {
		wanted[l] = struct{}{}
	}

	result := make([]*Layer, 0, len(wanted))
	seen := make(map[*Layer]struct{}, len(gathered))
	for _, l := range gathered {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}

		if _, ok := wanted[l]; ok {
			result = append(result, l)
		}
	}

	return result
}
