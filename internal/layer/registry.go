package layer

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	ErrDuplicateLayer = errors.New("layer already registered")
	ErrUnknownLayer   = errors.New("unknown layer")
)

// Registry maps layer names to layers. Names are unique within a registry.
// UnitTests and Empty are always registered.
type Registry struct {
	mu     sync.RWMutex
	layers map[string]*Layer
}

func NewRegistry() *Registry {
	r := &Registry{}
	r.Clear()

	return r
}

// Register adds l to the registry. It fails if another layer already owns
// the same name.
func (r *Registry) Register(l *Layer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.layers[l.name]; ok {
		if existing == l {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrDuplicateLayer, l.name)
	}
	r.layers[l.name] = l

	return nil
}

// Define creates and registers a layer whose bases are looked up by name.
// Since bases must already be registered, layers defined this way can
// never form a cycle.
func (r *Registry) Define(name string, fixture any, baseNames ...string) (*Layer, error) {
	bases := make([]*Layer, 0, len(baseNames))

	for _, baseName := range baseNames {
		base, err := r.Lookup(baseName)
		if err != nil {
			return nil, fmt.Errorf("failed to define layer %s: %w", name, err)
		}
		bases = append(bases, base)
	}

	l := New(name, fixture, bases...)
	if err := r.Register(l); err != nil {
		return nil, err
	}

	return l, nil
}

// Lookup returns the layer registered under name.
func (r *Registry) Lookup(name string) (*Layer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.layers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLayer, name)
	}

	return l, nil
}

// Layers returns every registered layer sorted by name.
func (r *Registry) Layers() []*Layer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	layers := maps.Values(r.layers)
	slices.SortFunc(layers, func(a, b *Layer) int {
		return strings.Compare(a.name, b.name)
	})

	return layers
}

// Clear forgets every layer but the built-in ones.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.layers = map[string]*Layer{
		UnitTests.name: UnitTests,
		Empty.name:     Empty,
	}
}
