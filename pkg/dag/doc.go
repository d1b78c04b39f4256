// Package dag holds a small directed graph used to export the dependency
// closure of a single package, and renders it as Graphviz DOT or SVG.
//
// Graphs are usually produced by [github.com/matzehuels/debtower/pkg/refcount.Subgraph]:
//
//	g, err := refcount.Subgraph(catalog, "curl")
//	if err != nil {
//	    return err
//	}
//	dot := dag.ToDOT(g, dag.Options{})
//	svg, err := dag.RenderSVG(ctx, dot)
//
// Node order is insertion order, which for a subgraph is closure order, so
// DOT output is stable for a given index.
package dag
