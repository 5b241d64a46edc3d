package callgraph

import (
	"github.com/zboralski/lattice"

	"decaf/internal/cfg"
	"decaf/internal/ir"
)

// BuildCFG constructs a lattice.CFGGraph from methods. Methods without code
// and methods whose operations do not form a graph are skipped.
func BuildCFG(methods []*ir.Method) *lattice.CFGGraph {
	cg := &lattice.CFGGraph{}
	for _, m := range methods {
		if !m.HasCode() {
			continue
		}
		g, err := cfg.Build(m)
		if err != nil {
			continue
		}
		lcfg, _ := BuildFuncCFG(g)
		cg.Funcs = append(cg.Funcs, lcfg)
	}
	return cg
}

// BuildFuncCFG maps g to a lattice.FuncCFG. Folded blocks are left out.
// Returns the FuncCFG and the number of blocks kept.
func BuildFuncCFG(g *cfg.Graph) (*lattice.FuncCFG, int) {
	lcfg := &lattice.FuncCFG{Name: g.Name}
	for _, blk := range g.Blocks {
		if blk.Folded {
			continue
		}
		lb := &lattice.BasicBlock{
			ID:    blk.ID,
			Start: blk.Start,
			End:   blk.End,
			Term:  blk.Term,
		}

		for _, e := range blk.Succs {
			lb.Succs = append(lb.Succs, lattice.Successor{
				BlockID: e.To,
				Cond:    e.Label(),
			})
		}

		for idx := blk.Start; idx < blk.End; idx++ {
			op := g.Ops[idx]
			if op.Code != ir.INVOKE || op.Ref == nil {
				continue
			}
			lb.Calls = append(lb.Calls, lattice.CallSite{
				Offset: idx,
				Callee: Callee(op.Ref),
			})
		}

		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg, len(lcfg.Blocks)
}
