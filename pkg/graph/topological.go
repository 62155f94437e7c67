package graph

import (
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
)

// stableTopologicalSort is a Kahn's-algorithm sort over an adjacency map where an edge A -> B means
// "A depends on B", so B is emitted before A. Whenever more than one vertex is ready, the smallest
// key goes first, which makes the result identical across runs.
func stableTopologicalSort(adjacency map[string]map[string]graph.Edge[string]) ([]string, error) {
	remaining := make(map[string]int, len(adjacency))
	dependents := make(map[string][]string, len(adjacency))
	for source, targets := range adjacency {
		remaining[source] = len(targets)
		for target := range targets {
			dependents[target] = append(dependents[target], source)
		}
	}

	var ready []string
	for k, n := range remaining {
		if n == 0 {
			ready = append(ready, k)
		}
	}
	sortStrings(ready)

	order := make([]string, 0, len(adjacency))
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		order = append(order, current)

		var unlocked []string
		for _, dependent := range dependents[current] {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				unlocked = append(unlocked, dependent)
			}
		}
		if len(unlocked) > 0 {
			ready = append(ready, unlocked...)
			sortStrings(ready)
		}
	}

	if len(order) != len(adjacency) {
		return nil, errors.New("topological sort cannot be computed on graph with cycles")
	}
	return order, nil
}

func sortStrings(s []string) {
	sort.Strings(s)
}
