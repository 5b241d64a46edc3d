// Package callgraph converts methods and their control flow graphs to
// lattice graphs for DOT rendering.
package callgraph

import (
	"github.com/zboralski/lattice"

	"decaf/internal/ir"
)

// Callee returns the call graph node name of an invoked method.
func Callee(ref *ir.Ref) string {
	return ref.Owner + "." + ref.Name + ref.Desc
}

// BuildCallGraph constructs a lattice.Graph from methods. Each method becomes
// a node named by its ID. Each INVOKE becomes an edge to the invoked member;
// invokedynamic call sites are skipped, their target is only known at link
// time.
func BuildCallGraph(methods []*ir.Method) *lattice.Graph {
	g := &lattice.Graph{}
	for _, m := range methods {
		caller := m.ID()
		g.Nodes = append(g.Nodes, caller)
		for _, op := range m.Ops {
			if op.Code != ir.INVOKE || op.Ref == nil || op.Invoke == ir.Dynamic {
				continue
			}
			g.Edges = append(g.Edges, lattice.Edge{
				Caller: caller,
				Callee: Callee(op.Ref),
			})
		}
	}
	g.Dedup()
	return g
}
