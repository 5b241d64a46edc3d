// Package synth turns the structure tree of a translated method into nested
// statements and tidies the result: local declarations, for loops, literal
// types and boolean comparisons.
package synth

import (
	"context"
	"fmt"
	"sort"

	"github.com/nikandfor/tlog"

	"decaf/internal/ast"
	"decaf/internal/cfg"
	"decaf/internal/diag"
	"decaf/internal/structure"
	"decaf/internal/types"
	"decaf/internal/vars"
)

// Input is one translated and structured method.
type Input struct {
	Cache  *types.Cache
	Graph  *cfg.Graph
	Tree   *structure.Tree // nil emits labels and gotos only
	Vars   *vars.Table
	Diags  *diag.Diags
	Return *types.T

	KeepWhile bool // do not rewrite while loops as for loops
}

// scope is an enclosing statement a jump may leave.
type scope struct {
	kind  structure.Kind
	brk   int // block a break reaches, -1 if none
	cont  int // block a continue reaches, -1 if none
	label string
}

type emitter struct {
	Input

	emitted []bool
	done    map[int]bool // structures already emitted
	scopes  []*scope
	nlabel  int

	marks   map[int]*ast.Label // emission point of every block
	labels  map[int]string     // goto targets
	pending []int
}

// Synthesize returns the body of the method. Unstructured control flow
// falls back to labels and gotos, each reported as a structure diagnostic.
func Synthesize(ctx context.Context, in Input) (body *ast.Block, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "synth", "method", in.Graph.Name)
	defer tr.Finish("err", &err)

	e := &emitter{
		Input:   in,
		emitted: make([]bool, len(in.Graph.Blocks)),
		done:    make(map[int]bool),
		marks:   make(map[int]*ast.Label),
		labels:  make(map[int]string),
	}

	var stmts []ast.Stmt
	if in.Tree == nil {
		stmts = e.flat()
	} else {
		stmts = e.seq(0, -1, 0, true)
		stmts = append(stmts, e.drain()...)
	}
	e.resolveLabels()
	stmts = stripMarks(stmts)

	in.Vars.Finish(in.Diags)
	stmts = simplify(stmts)
	stmts = dropTrailingReturn(stmts, in.Return)
	stmts = declare(stmts, in.Vars)
	if !in.KeepWhile {
		stmts = forLoops(stmts)
	}

	if tr.If("dump_body") {
		tr.Printw("body", "stmts", len(stmts), "labels", len(e.labels))
	}
	return &ast.Block{Stmts: stmts}, nil
}

// seq emits the blocks control flows through from b inside structure
// within, stopping at stop, the block following the enclosing statement.
// first suppresses the stop test for b itself, for loops starting at their
// own head.
func (e *emitter) seq(b, stop, within int, first bool) []ast.Stmt {
	t := e.Tree
	var out []ast.Stmt
	for b >= 0 {
		if b == stop && !first {
			break
		}
		first = false

		if e.emitted[b] || !t.Contains(within, b) {
			out = append(out, e.jump(b))
			break
		}
		if s := e.child(b, within); s != nil {
			out = append(out, e.emit(s)...)
			b = s.Follow
			continue
		}
		if t.Owner[b] != within {
			out = append(out, e.gotoBlock(b))
			break
		}

		out = append(out, e.block(b)...)
		blk := e.Graph.Blocks[b]
		if blk.Term {
			break
		}
		var tail []ast.Stmt
		b, tail = e.next(blk)
		out = append(out, tail...)
	}
	return out
}

// child returns the outermost structure headed at b directly inside
// within, unless it was emitted.
func (e *emitter) child(b, within int) *structure.Struct {
	for _, id := range e.Tree.Headed(b) {
		s := e.Tree.Structs[id]
		if s.Parent == within && !e.done[id] {
			e.done[id] = true
			return s
		}
	}
	return nil
}

func (e *emitter) block(b int) []ast.Stmt {
	e.emitted[b] = true
	return append([]ast.Stmt{e.mark(b)}, e.Graph.Blocks[b].Stmts...)
}

// next returns the block following blk. A branch nothing recognized
// becomes an if or a switch of jumps.
func (e *emitter) next(blk *cfg.Block) (int, []ast.Stmt) {
	switch {
	case blk.Cond != nil:
		then := &ast.Block{Stmts: []ast.Stmt{e.jump(blk.Succ(cfg.Taken))}}
		return blk.Succ(cfg.Fall), []ast.Stmt{&ast.If{Cond: blk.Cond, Then: then}}
	case blk.Switch != nil:
		sw := &ast.Switch{X: blk.Switch}
		for _, ed := range blk.Normal() {
			sw.Cases = append(sw.Cases, &ast.Case{Keys: e.keys(blk.Switch, ed.Keys), Default: ed.Default, Body: []ast.Stmt{e.jump(ed.To)}})
		}
		return -1, []ast.Stmt{sw}
	}
	for _, ed := range blk.Normal() {
		return ed.To, nil
	}
	return -1, nil
}

// jump returns the statement transferring control to block to: a break or
// continue of an enclosing statement, labeled when it is not the innermost
// one, else a goto.
func (e *emitter) jump(to int) ast.Stmt {
	innerBreak, innerLoop := true, true
	for i := len(e.scopes) - 1; i >= 0; i-- {
		sc := e.scopes[i]
		breakable := sc.kind == structure.Loop || sc.kind == structure.Switch
		if sc.brk >= 0 && sc.brk == to {
			if breakable && innerBreak {
				return &ast.Break{}
			}
			return &ast.Break{Label: e.label(sc)}
		}
		if sc.cont >= 0 && sc.cont == to {
			if innerLoop {
				return &ast.Continue{}
			}
			return &ast.Continue{Label: e.label(sc)}
		}
		if breakable {
			innerBreak = false
		}
		if sc.kind == structure.Loop {
			innerLoop = false
		}
	}
	return e.gotoBlock(to)
}

func (e *emitter) label(sc *scope) string {
	if sc.label == "" {
		e.nlabel++
		sc.label = fmt.Sprintf("label%d", e.nlabel)
	}
	return sc.label
}

func (e *emitter) push(kind structure.Kind, brk, cont int) *scope {
	sc := &scope{kind: kind, brk: brk, cont: cont}
	e.scopes = append(e.scopes, sc)
	return sc
}

func (e *emitter) pop() { e.scopes = e.scopes[:len(e.scopes)-1] }

// wrap labels s when a jump named its scope.
func wrap(sc *scope, s ast.Stmt) ast.Stmt {
	if sc.label == "" {
		return s
	}
	return &ast.Labeled{Label: sc.label, Body: s}
}

func (e *emitter) mark(b int) *ast.Label {
	l := &ast.Label{}
	e.marks[b] = l
	return l
}

func (e *emitter) gotoBlock(to int) ast.Stmt {
	name, ok := e.labels[to]
	if !ok {
		blk := e.Graph.Blocks[to]
		name = fmt.Sprintf("L%d", blk.PC)
		e.labels[to] = name
		if e.Tree != nil {
			e.Diags.Addf(blk.PC, diag.Structure, "unstructured jump to pc %d", blk.PC)
		}
	}
	if !e.emitted[to] {
		e.pending = append(e.pending, to)
	}
	return &ast.Goto{Label: name}
}

// drain emits the goto targets no structure reached, in PC order.
func (e *emitter) drain() []ast.Stmt {
	var out []ast.Stmt
	for len(e.pending) > 0 {
		sort.Slice(e.pending, func(i, j int) bool { return e.Graph.Blocks[e.pending[i]].PC < e.Graph.Blocks[e.pending[j]].PC })
		b := e.pending[0]
		e.pending = e.pending[1:]
		if e.emitted[b] {
			continue
		}
		out = append(out, e.flatBlock(b, -1)...)
	}
	return out
}

func (e *emitter) resolveLabels() {
	for b, name := range e.labels {
		if m := e.marks[b]; m != nil {
			m.Name = name
		}
	}
}

// keys returns the case labels of a switch on x.
func (e *emitter) keys(x ast.Expr, keys []int) []ast.Expr {
	kt := e.Cache.Int()
	if t := x.Type(); t != nil && t.IsKind(types.Char) {
		kt = t
	}
	out := make([]ast.Expr, len(keys))
	for i, k := range keys {
		out[i] = &ast.Literal{T: kt, Value: int64(k)}
	}
	return out
}
