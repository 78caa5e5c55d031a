package render

import (
	"github.com/zboralski/lattice"

	"unreflect/internal/unreal"
)

// Hierarchy builds a lattice graph with one node per class path and an
// edge from each class to its superclass. Ancestors of the given classes
// are included even when not listed.
func Hierarchy(classes []*unreal.Class) *lattice.Graph {
	g := &lattice.Graph{}
	seen := make(map[*unreal.Class]bool)
	for _, c := range classes {
		for k := c; k != nil && !seen[k]; k = k.Super {
			seen[k] = true
			g.Nodes = append(g.Nodes, k.Path)
			if k.Super != nil {
				g.Edges = append(g.Edges, lattice.Edge{
					Caller: k.Path,
					Callee: k.Super.Path,
				})
			}
		}
	}
	g.Dedup()
	return g
}

// References builds a lattice graph of object references: one node per
// object path, and an edge for each object-valued field pointing at
// another object. Nested struct instances (empty path) are skipped.
func References(objs []*unreal.Object) *lattice.Graph {
	g := &lattice.Graph{}
	for _, o := range objs {
		if o.Path == "" {
			continue
		}
		g.Nodes = append(g.Nodes, o.Path)
		for _, r := range o.References() {
			if r.Path == "" || r == o {
				continue
			}
			g.Edges = append(g.Edges, lattice.Edge{
				Caller: o.Path,
				Callee: r.Path,
			})
		}
	}
	g.Dedup()
	return g
}
