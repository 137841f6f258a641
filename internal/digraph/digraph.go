// Copyright 2023 The GTDD Authors. All rights reserved.
// Use of this source code is governed by a GPL-style
// license that can be found in the LICENSE file.

// Package digraph implements a directed graph able to find its strongly
// connected components.
package digraph

import (
	"errors"
	"fmt"
	"iter"
)

var (
	ErrMissingNode      = errors.New("node is not part of the graph")
	ErrMissingNeighbors = errors.New("neighbors are not part of the graph")
)

// MissingNeighborsError lists the neighbors that were not part of the graph
// when they were added to a node.
type MissingNeighborsError[N any] struct {
	Neighbors []N
}

func (e *MissingNeighborsError[N]) Error() string {
	return fmt.Sprintf("%v: %v", ErrMissingNeighbors, e.Neighbors)
}

func (e *MissingNeighborsError[N]) Unwrap() error {
	return ErrMissingNeighbors
}

// DiGraph is a directed graph over nodes of type N. Nodes are identified by
// the key K computed from them: two nodes with the same key are the same
// node, and the first one added is the one returned by queries.
type DiGraph[N any, K comparable] struct {
	key       func(N) K
	nodes     map[K]N
	order     []K
	neighbors map[K][]K
	edges     map[K]map[K]struct{}
}

// New returns a graph whose nodes are identified by their own value.
func New[N comparable](nodes ...N) *DiGraph[N, N] {
	return NewWithKey(func(n N) N { return n }, nodes...)
}

// NewWithKey returns a graph whose nodes are identified by key.
func NewWithKey[N any, K comparable](key func(N) K, nodes ...N) *DiGraph[N, K] {
	g := &DiGraph[N, K]{
		key:       key,
		nodes:     map[K]N{},
		neighbors: map[K][]K{},
		edges:     map[K]map[K]struct{}{},
	}
	g.AddNodes(nodes...)

	return g
}

// AddNodes adds the nodes not yet part of the graph.
func (g *DiGraph[N, K]) AddNodes(nodes ...N) {
	for _, node := range nodes {
		k := g.key(node)
		if _, ok := g.nodes[k]; ok {
			continue
		}

		g.nodes[k] = node
		g.order = append(g.order, k)
		g.edges[k] = map[K]struct{}{}
	}
}

// AddNeighbors adds edges from node to each of the neighbors. Repeated
// calls accumulate. When ignoreUnknown is set, an unknown node is a no-op
// and unknown neighbors are skipped; otherwise they are reported as
// ErrMissingNode and MissingNeighborsError, and no edge is added.
func (g *DiGraph[N, K]) AddNeighbors(node N, neighbors []N, ignoreUnknown bool) error {
	k := g.key(node)
	if _, ok := g.nodes[k]; !ok {
		if ignoreUnknown {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrMissingNode, node)
	}

	known := make([]K, 0, len(neighbors))
	var missing []N

	for _, neighbor := range neighbors {
		nk := g.key(neighbor)
		if _, ok := g.nodes[nk]; !ok {
			missing = append(missing, neighbor)
			continue
		}
		known = append(known, nk)
	}

	if len(missing) > 0 && !ignoreUnknown {
		return &MissingNeighborsError[N]{Neighbors: missing}
	}

	for _, nk := range known {
		if _, ok := g.edges[k][nk]; ok {
			continue
		}
		g.edges[k][nk] = struct{}{}
		g.neighbors[k] = append(g.neighbors[k], nk)
	}

	return nil
}

// Nodes returns the nodes of the graph in insertion order.
func (g *DiGraph[N, K]) Nodes() []N {
	result := make([]N, len(g.order))
	for i, k := range g.order {
		result[i] = g.nodes[k]
	}

	return result
}

// Neighbors returns the direct neighbors of node in insertion order.
func (g *DiGraph[N, K]) Neighbors(node N) ([]N, error) {
	k := g.key(node)
	if _, ok := g.nodes[k]; !ok {
		return nil, fmt.Errorf("%w: %v", ErrMissingNode, node)
	}

	return g.untransform(g.neighbors[k]), nil
}

func (g *DiGraph[N, K]) untransform(keys []K) []N {
	result := make([]N, len(keys))
	for i, k := range keys {
		result[i] = g.nodes[k]
	}

	return result
}

func (g *DiGraph[N, K]) hasEdge(from, to K) bool {
	_, ok := g.edges[from][to]
	return ok
}

// SCCs yields the strongly connected components of the graph. A component
// made of a single node is only yielded if trivial is set or the node has
// an edge to itself. Components are computed lazily: stopping the
// iteration stops the search.
func (g *DiGraph[N, K]) SCCs(trivial bool) iter.Seq[[]N] {
	return func(yield func([]N) bool) {
		type state struct {
			dfs     int
			low     int
			stacked bool
		}
		type visit struct {
			node K
			ret  bool
		}

		var (
			states    = map[K]*state{}
			ancestors []K
			stack     []K
			visits    []visit
			counter   int
		)

		for _, root := range g.order {
			if _, ok := states[root]; ok {
				continue
			}

			visits = append(visits, visit{node: root})
			for len(visits) > 0 {
				top := visits[len(visits)-1]

				if top.ret {
					visits = visits[:len(visits)-1]
					node := ancestors[len(ancestors)-1]
					ancestors = ancestors[:len(ancestors)-1]
					current := states[node]

					if current.low == current.dfs {
						var component []K
						for {
							member := stack[len(stack)-1]
							stack = stack[:len(stack)-1]
							states[member].stacked = false
							component = append(component, member)
							if member == node {
								break
							}
						}

						if len(component) > 1 || trivial || g.hasEdge(node, node) {
							if !yield(g.untransform(component)) {
								return
							}
						}
					}

					if len(ancestors) > 0 {
						parent := states[ancestors[len(ancestors)-1]]
						parent.low = min(parent.low, current.low)
					}

					continue
				}

				if seen, ok := states[top.node]; ok {
					visits = visits[:len(visits)-1]
					if seen.stacked {
						parent := states[ancestors[len(ancestors)-1]]
						parent.low = min(parent.low, seen.dfs)
					}

					continue
				}

				states[top.node] = &state{dfs: counter, low: counter, stacked: true}
				counter++
				ancestors = append(ancestors, top.node)
				stack = append(stack, top.node)
				visits[len(visits)-1].ret = true

				for _, neighbor := range g.neighbors[top.node] {
					visits = append(visits, visit{node: neighbor})
				}
			}
		}
	}
}
