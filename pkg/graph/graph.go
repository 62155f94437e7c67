package graph

import (
	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type (
	// Directed is an acyclic directed graph of V, keyed by the string produced by its hash function.
	// Adding an edge that would close a cycle is rejected.
	Directed[V any] struct {
		underlying graph.Graph[string, V]
		hash       func(V) string
	}

	Edge[V any] struct {
		Source      V
		Destination V
	}
)

var ErrCycle = errors.New("dependency would create a cycle")

func NewDirected[V any](hash func(V) string) *Directed[V] {
	return &Directed[V]{
		underlying: graph.New(hash, graph.Directed(), graph.PreventCycles()),
		hash:       hash,
	}
}

// AddVertex adds v, ignoring it if a vertex with the same key is already present.
func (d *Directed[V]) AddVertex(v V) {
	err := d.underlying.AddVertex(v)
	if err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		zap.S().With(zap.Error(err)).Errorf("unexpected error while adding vertex %s", d.hash(v))
	}
}

// AddEdge adds an edge between two existing keys. Duplicate edges are ignored.
func (d *Directed[V]) AddEdge(source, dest string) error {
	err := d.underlying.AddEdge(source, dest)
	switch {
	case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists):
		return nil
	case errors.Is(err, graph.ErrEdgeCreatesCycle):
		return errors.Wrapf(ErrCycle, "%s -> %s", source, dest)
	default:
		return errors.Wrapf(err, "could not add edge %s -> %s", source, dest)
	}
}

// AddVerticesAndEdge adds both vertices (if absent) and the edge between them.
func (d *Directed[V]) AddVerticesAndEdge(source, dest V) error {
	d.AddVertex(source)
	d.AddVertex(dest)
	return d.AddEdge(d.hash(source), d.hash(dest))
}

// GetVertex returns the vertex for key, and whether it was found.
func (d *Directed[V]) GetVertex(key string) (V, bool) {
	v, err := d.underlying.Vertex(key)
	if err != nil {
		if !errors.Is(err, graph.ErrVertexNotFound) {
			zap.S().With(zap.Error(err)).Errorf("unexpected error while getting vertex %s", key)
		}
		return v, false
	}
	return v, true
}

func (d *Directed[V]) HasEdge(source, dest string) bool {
	_, err := d.underlying.Edge(source, dest)
	return err == nil
}

// GetAllVertices returns every vertex in key order.
func (d *Directed[V]) GetAllVertices() []V {
	keys, err := d.sortedKeys()
	if err != nil {
		// The in-memory store never fails.
		panic(err)
	}
	vertices := make([]V, 0, len(keys))
	for _, k := range keys {
		if v, ok := d.GetVertex(k); ok {
			vertices = append(vertices, v)
		}
	}
	return vertices
}

// GetAllEdges returns every edge ordered by source key then destination key.
func (d *Directed[V]) GetAllEdges() []Edge[V] {
	adjacency, err := d.underlying.AdjacencyMap()
	if err != nil {
		panic(err)
	}
	keys, err := d.sortedKeys()
	if err != nil {
		panic(err)
	}
	var results []Edge[V]
	for _, source := range keys {
		targets := make([]string, 0, len(adjacency[source]))
		for t := range adjacency[source] {
			targets = append(targets, t)
		}
		sortStrings(targets)
		src, _ := d.GetVertex(source)
		for _, t := range targets {
			dst, ok := d.GetVertex(t)
			if !ok {
				continue
			}
			results = append(results, Edge[V]{Source: src, Destination: dst})
		}
	}
	return results
}

// OutgoingVertices returns the direct dependencies of from, ordered by key.
func (d *Directed[V]) OutgoingVertices(from V) []V {
	adjacency, err := d.underlying.AdjacencyMap()
	if err != nil {
		panic(err)
	}
	return d.resolve(adjacency[d.hash(from)])
}

// IncomingVertices returns the direct dependents of to, ordered by key.
func (d *Directed[V]) IncomingVertices(to V) []V {
	predecessors, err := d.underlying.PredecessorMap()
	if err != nil {
		panic(err)
	}
	return d.resolve(predecessors[d.hash(to)])
}

// Roots returns the vertices nothing depends on.
func (d *Directed[V]) Roots() []V {
	predecessors, err := d.underlying.PredecessorMap()
	if err != nil {
		panic(err)
	}
	var roots []string
	for k, incoming := range predecessors {
		if len(incoming) == 0 {
			roots = append(roots, k)
		}
	}
	sortStrings(roots)
	var out []V
	for _, k := range roots {
		if v, ok := d.GetVertex(k); ok {
			out = append(out, v)
		}
	}
	return out
}

// DependencyOrder returns keys so that every vertex appears after all of the vertices it has an
// edge to. Ties are broken by key so that the order is stable across runs.
func (d *Directed[V]) DependencyOrder() ([]string, error) {
	adjacency, err := d.underlying.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	return stableTopologicalSort(adjacency)
}

func (d *Directed[V]) Len() int {
	n, err := d.underlying.Order()
	if err != nil {
		panic(err)
	}
	return n
}

func (d *Directed[V]) resolve(edges map[string]graph.Edge[string]) []V {
	keys := make([]string, 0, len(edges))
	for k := range edges {
		keys = append(keys, k)
	}
	sortStrings(keys)
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		if v, ok := d.GetVertex(k); ok {
			out = append(out, v)
		}
	}
	return out
}

func (d *Directed[V]) sortedKeys() ([]string, error) {
	adjacency, err := d.underlying.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(adjacency))
	for k := range adjacency {
		keys = append(keys, k)
	}
	sortStrings(keys)
	return keys, nil
}
