package refcount

import (
	"fmt"

	"github.com/matzehuels/debtower/pkg/dag"
)

// Subgraph returns the part of c reachable from start as a graph. Nodes are
// added in closure order; names absent from c are marked with
// Meta["missing"] = true. Every dependency edge between two closure members
// is included, so cycles show up as back edges. An empty start fails with
// [dag.ErrInvalidNodeID].
func Subgraph(c Catalog, start string) (*dag.DAG, error) {
	closure := Closure(c, start)
	g := dag.New(dag.Metadata{"root": start})

	for _, name := range closure {
		n := dag.Node{ID: name}
		if _, ok := c.DependencyNames(name); !ok {
			n.Meta = dag.Metadata{"missing": true}
		}
		if err := g.AddNode(n); err != nil {
			return nil, fmt.Errorf("subgraph of %q: node %q: %w", start, name, err)
		}
	}
	for _, name := range closure {
		deps, _ := c.DependencyNames(name)
		seen := make(map[string]bool, len(deps))
		for _, d := range deps {
			if seen[d] {
				continue
			}
			seen[d] = true
			if err := g.AddEdge(dag.Edge{From: name, To: d}); err != nil {
				return nil, fmt.Errorf("subgraph of %q: edge %s -> %s: %w", start, name, d, err)
			}
		}
	}
	return g, nil
}
