package synth

import (
	"sort"

	"decaf/internal/ast"
	"decaf/internal/cfg"
)

// flat emits every reachable block in PC order, joined by gotos. It serves
// methods whose control flow cannot be structured at all.
func (e *emitter) flat() []ast.Stmt {
	g := e.Graph
	var order []int
	for _, id := range g.RPO() {
		if !g.Blocks[id].Folded {
			order = append(order, id)
		}
	}
	sort.Slice(order, func(i, j int) bool { return g.Blocks[order[i]].PC < g.Blocks[order[j]].PC })

	var out []ast.Stmt
	for i, b := range order {
		next := -1
		if i+1 < len(order) {
			next = order[i+1]
		}
		out = append(out, e.flatBlock(b, next)...)
	}
	e.pending = nil
	return out
}

// flatBlock emits b followed by explicit jumps to its successors, except to
// next, the block emitted after it.
func (e *emitter) flatBlock(b, next int) []ast.Stmt {
	blk := e.Graph.Blocks[b]
	out := e.block(b)
	if blk.Handler {
		text := "catch"
		if v := blk.CatchVar; v != nil {
			text += " " + v.Name
		}
		out = append([]ast.Stmt{out[0], &ast.Comment{Text: text}}, out[1:]...)
	}
	if blk.Term {
		return out
	}

	goTo := func(to int) []ast.Stmt {
		if to < 0 || to == next {
			return nil
		}
		return []ast.Stmt{e.gotoBlock(to)}
	}
	switch {
	case blk.Cond != nil:
		then := &ast.Block{Stmts: []ast.Stmt{e.gotoBlock(blk.Succ(cfg.Taken))}}
		out = append(out, &ast.If{Cond: blk.Cond, Then: then})
		out = append(out, goTo(blk.Succ(cfg.Fall))...)
	case blk.Switch != nil:
		sw := &ast.Switch{X: blk.Switch}
		for _, ed := range blk.Normal() {
			sw.Cases = append(sw.Cases, &ast.Case{Keys: e.keys(blk.Switch, ed.Keys), Default: ed.Default, Body: []ast.Stmt{e.gotoBlock(ed.To)}})
		}
		out = append(out, sw)
	default:
		for _, ed := range blk.Normal() {
			out = append(out, goTo(ed.To)...)
		}
	}
	return out
}
