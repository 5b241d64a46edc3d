// Package translate turns the operations of every basic block into
// statements and expressions by symbolically executing the operand stack.
//
// Blocks are visited in reverse postorder. A block inherits the expression
// stack of its only predecessor; where control merges with a non-empty stack
// the values either fold into a conditional expression or are held in stack
// variables assigned at the end of every predecessor. Conditional blocks
// that only test a further condition are folded into && and || chains as
// they are produced.
package translate

import (
	"context"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"decaf/internal/ast"
	"decaf/internal/cfg"
	"decaf/internal/dataflow"
	"decaf/internal/diag"
	"decaf/internal/ir"
	"decaf/internal/types"
	"decaf/internal/vars"
)

// Input is everything the translator needs about one method.
type Input struct {
	Cache  *types.Cache
	Graph  *cfg.Graph
	Flow   *dataflow.Result
	Vars   *vars.Table
	Diags  *diag.Diags
	Owner  *types.T // declaring class
	Return *types.T
}

// item is one operand stack entry: the expression and its analysis type.
type item struct {
	e ast.Expr
	t *types.T
}

func wide(it item) bool { return it.t != nil && it.t.IsWide() }

type translator struct {
	Input

	entry [][]item
	exit  [][]item
	done  []bool

	// spilled marks blocks whose entry stack lives in stack variables.
	spilled map[int]bool
	// strs marks expressions appended to a string builder as strings.
	strs map[ast.Expr]bool
}

// Translate fills Stmts, Cond, Switch and CatchVar of every reachable block
// of in.Graph and recomputes the graph's dominator data, since folding
// removes blocks and edges.
func Translate(ctx context.Context, in Input) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "translate", "method", in.Graph.Name)
	defer tr.Finish("err", &err)

	n := len(in.Graph.Blocks)
	t := &translator{
		Input:   in,
		entry:   make([][]item, n),
		exit:    make([][]item, n),
		done:    make([]bool, n),
		spilled: make(map[int]bool),
		strs:    make(map[ast.Expr]bool),
	}

	for _, id := range in.Graph.RPO() {
		b := in.Graph.Blocks[id]
		if b.Folded || in.Flow.In[id] == nil {
			continue
		}
		if err = t.block(b); err != nil {
			return err
		}
		t.done[id] = true
		t.foldCond(b)
	}

	in.Graph.Recompute()

	if tr.If("dump_blocks") {
		for _, b := range in.Graph.Blocks {
			if !b.Folded {
				tr.Printw("block", "id", b.ID, "stmts", len(b.Stmts), "cond", b.Cond != nil)
			}
		}
	}
	return nil
}

func (t *translator) block(b *cfg.Block) error {
	s := &state{
		t: t,
		b: b,
		f: t.Flow.In[b.ID].Clone(),
	}
	s.stack = t.entryStack(b, s)
	t.entry[b.ID] = clone(s.stack)

	for i := b.Start; i < b.End; i++ {
		if err := s.op(i); err != nil {
			return err
		}
	}
	b.Stmts = append(b.Stmts, s.stmts...)
	t.exit[b.ID] = s.stack

	for _, e := range b.Normal() {
		if t.spilled[e.To] {
			t.spillInto(b, e.To)
		}
	}
	return nil
}

// entryStack decides the expression stack a block starts with.
func (t *translator) entryStack(b *cfg.Block, s *state) []item {
	in := t.Flow.In[b.ID]
	h := len(in.Stack)

	if b.Handler && h == 1 {
		return []item{t.catchEntry(b, s, in.Stack[0])}
	}
	if h == 0 {
		return nil
	}

	var preds []int
	for {
		preds = t.preds(b)
		if len(preds) == 1 && t.done[preds[0]] {
			p := t.Graph.Blocks[preds[0]]
			if len(p.Normal()) > 1 {
				t.settle(p)
			}
			return clone(t.exit[p.ID])
		}
		if !t.foldTernary(b, preds) {
			break
		}
	}

	t.spilled[b.ID] = true
	items := make([]item, h)
	for i, ty := range in.Stack {
		items[i] = item{e: &ast.Local{V: t.Vars.Stack(i, ty)}, t: ty}
	}
	t.entry[b.ID] = items
	for _, p := range preds {
		if t.done[p] {
			t.spillInto(t.Graph.Blocks[p], b.ID)
		}
	}
	return clone(items)
}

// catchEntry binds the exception variable of a handler. A leading store of
// the exception names the variable after its register and is skipped.
func (t *translator) catchEntry(b *cfg.Block, s *state, typ *types.T) item {
	op := t.Graph.Ops[b.Start]
	if op.Code == ir.STORE && b.End > b.Start {
		v := t.Vars.Store(op.Reg, op.PC, s.next(b.Start), typ)
		b.CatchVar = v
		s.catchStore = true
	} else {
		b.CatchVar = t.Vars.Catch(typ)
	}
	return item{e: &ast.Local{V: b.CatchVar}, t: typ}
}

// preds returns the reachable, unfolded normal predecessors of b.
func (t *translator) preds(b *cfg.Block) []int {
	var out []int
	for _, e := range b.NormalPreds() {
		p := t.Graph.Blocks[e.From]
		if p.Folded || !t.Graph.Reachable(p.ID) || containsInt(out, p.ID) {
			continue
		}
		out = append(out, p.ID)
	}
	return out
}

// settle moves stack values with side effects of a branching block into
// stack variables so that every successor can share the values.
func (t *translator) settle(p *cfg.Block) {
	stack := t.exit[p.ID]
	for i, it := range stack {
		if pure(it.e, nil) {
			continue
		}
		v := t.Vars.Stack(i, it.t)
		t.Vars.Constrain(v, p.PC, it.t)
		p.Stmts = append(p.Stmts, assignStmt(v, it.e))
		stack[i] = item{e: &ast.Local{V: v}, t: it.t}
	}
}

// spillInto assigns the exit stack of p to the stack variables holding the
// entry stack of b.
func (t *translator) spillInto(p *cfg.Block, b int) {
	out := t.exit[p.ID]
	in := t.entry[b]
	if len(out) != len(in) {
		t.Diags.Addf(p.PC, diag.Structure, "stack of %d values flows into a block expecting %d", len(out), len(in))
		return
	}
	for i, it := range out {
		dst := in[i].e.(*ast.Local)
		if l, ok := it.e.(*ast.Local); ok && l.V == dst.V {
			continue
		}
		t.Vars.Constrain(dst.V, p.PC, it.t)
		p.Stmts = append(p.Stmts, assignStmt(dst.V, it.e))
		out[i] = item{e: dst, t: it.t}
	}
}

// foldTernary merges two arm blocks that each push one value on top of the
// stack of their common conditional predecessor into a conditional
// expression evaluated by that predecessor. It reports whether it changed
// the graph.
func (t *translator) foldTernary(b *cfg.Block, preds []int) bool {
	g := t.Graph
	arms := make(map[int][]int)
	var heads []int
	for _, p := range preds {
		a := g.Blocks[p]
		if !t.done[p] || len(a.Stmts) > 0 || a.Handler || a.Cond != nil || a.Switch != nil || len(a.Normal()) != 1 {
			continue
		}
		hp := t.preds(a)
		if len(hp) != 1 || !t.done[hp[0]] {
			continue
		}
		if arms[hp[0]] == nil {
			heads = append(heads, hp[0])
		}
		arms[hp[0]] = append(arms[hp[0]], p)
	}

	for _, hid := range heads {
		list := arms[hid]
		h := g.Blocks[hid]
		if len(list) != 2 || h.Cond == nil {
			continue
		}
		taken, fall := h.Succ(cfg.Taken), h.Succ(cfg.Fall)
		if !(taken == list[0] && fall == list[1]) && !(taken == list[1] && fall == list[0]) {
			continue
		}
		prefix := t.exit[hid]
		te, fe := t.exit[taken], t.exit[fall]
		if len(te) != len(prefix)+1 || len(fe) != len(prefix)+1 || !sameItems(te[:len(prefix)], prefix) || !sameItems(fe[:len(prefix)], prefix) {
			continue
		}

		tv, fv := te[len(prefix)], fe[len(prefix)]
		typ := t.Cache.MergeRead(tv.t, fv.t)
		if typ == nil || typ.IsConflict() {
			typ = t.Cache.Widen(tv.t, fv.t)
		}
		cond := &ast.Cond{C: h.Cond, Then: tv.e, Else: fv.e, T: typ}

		for _, e := range append([]*cfg.Edge(nil), h.Normal()...) {
			g.RemoveEdge(e)
		}
		g.Fold(taken)
		g.Fold(fall)
		g.AddEdge(hid, b.ID, cfg.Jump)
		h.Cond = nil
		t.exit[hid] = append(clone(prefix), item{e: cond, t: typ})
		return true
	}
	return false
}

// foldCond merges b2 into its only predecessor b1 when b2 does nothing but
// test another condition, combining both tests with && or ||.
func (t *translator) foldCond(b2 *cfg.Block) {
	g := t.Graph
	if b2.Cond == nil || len(b2.Stmts) > 0 || b2.Handler {
		return
	}
	preds := t.preds(b2)
	if len(preds) != 1 {
		return
	}
	b1 := g.Blocks[preds[0]]
	if b1 == b2 || b1.Cond == nil || !t.done[b1.ID] {
		return
	}
	if !sameItems(t.entry[b2.ID], t.exit[b2.ID]) || !sameCatches(b1, b2) {
		return
	}

	t1, f1 := b1.Succ(cfg.Taken), b1.Succ(cfg.Fall)
	t2, f2 := b2.Succ(cfg.Taken), b2.Succ(cfg.Fall)
	if t2 == f2 || t2 < 0 || f2 < 0 {
		return
	}

	c1, c2 := b1.Cond, b2.Cond
	var c ast.Expr
	switch {
	case f1 == b2.ID && t1 == t2:
		c = or(c1, c2)
	case f1 == b2.ID && t1 == f2:
		c = and(ast.Negate(c1), c2)
	case t1 == b2.ID && f1 == f2:
		c = and(c1, c2)
	case t1 == b2.ID && f1 == t2:
		c = or(ast.Negate(c1), c2)
	default:
		return
	}

	for _, e := range append([]*cfg.Edge(nil), b1.Normal()...) {
		g.RemoveEdge(e)
	}
	g.Fold(b2.ID)
	g.AddEdge(b1.ID, t2, cfg.Taken)
	g.AddEdge(b1.ID, f2, cfg.Fall)
	b1.Cond = c
}

func and(a, b ast.Expr) ast.Expr { return &ast.Binary{Op: "&&", L: a, R: b, T: a.Type()} }
func or(a, b ast.Expr) ast.Expr  { return &ast.Binary{Op: "||", L: a, R: b, T: a.Type()} }

func sameCatches(a, b *cfg.Block) bool {
	type key struct {
		to  int
		typ string
	}
	set := make(map[key]int)
	for _, e := range a.Succs {
		if e.Kind == cfg.Catch {
			set[key{e.To, e.Type}]++
		}
	}
	for _, e := range b.Succs {
		if e.Kind == cfg.Catch {
			set[key{e.To, e.Type}]--
		}
	}
	for _, n := range set {
		if n != 0 {
			return false
		}
	}
	return true
}

func sameItems(a, b []item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].e != b[i].e {
			return false
		}
	}
	return true
}

func clone(s []item) []item { return append([]item(nil), s...) }

func containsInt(list []int, x int) bool {
	for _, y := range list {
		if y == x {
			return true
		}
	}
	return false
}

func assignStmt(v *ast.Variable, e ast.Expr) ast.Stmt {
	return &ast.ExprStmt{X: &ast.Assign{Op: "=", L: &ast.Local{V: v}, R: e}}
}

// errStack wraps stack inconsistencies met while translating, which the
// dataflow pass should have rejected.
var errStack = errors.New("translator stack out of sync")
