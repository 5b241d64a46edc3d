// Package cfg builds the basic-block graph of a method: normal edges from
// jumps and fall-through, exception edges from protected ranges to handlers,
// postorder numbering, dominators and dominance frontiers.
package cfg

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nikandfor/errors"

	"decaf/internal/ast"
	"decaf/internal/ir"
)

// EdgeKind tells how control reaches an edge's target.
type EdgeKind uint8

const (
	Fall  EdgeKind = iota // fall-through, the false side of a conditional
	Taken                 // conditional branch taken
	Jump                  // unconditional jump
	Case                  // switch dispatch
	Catch                 // exception edge to a handler
)

// Edge is a control-flow edge between two blocks.
type Edge struct {
	From, To int
	Kind     EdgeKind
	Keys     []int  // Case: the keys dispatching to To, in source order
	Default  bool   // Case: To is also the default target
	Type     string // Catch: caught class name, empty for catch-any
}

// Label returns a short edge label for renderings.
func (e *Edge) Label() string {
	switch e.Kind {
	case Fall:
		return "F"
	case Taken:
		return "T"
	case Case:
		var parts []string
		for _, k := range e.Keys {
			parts = append(parts, strconv.Itoa(k))
		}
		if e.Default {
			parts = append(parts, "default")
		}
		return strings.Join(parts, ",")
	case Catch:
		if e.Type == "" {
			return "catch any"
		}
		return "catch " + e.Type
	}
	return ""
}

// Block is a maximal straight-line run of operations Ops[Start:End].
type Block struct {
	ID         int
	Start, End int // index range into Graph.Ops
	PC         int // PC of the first operation

	Succs []*Edge
	Preds []*Edge

	Post int // postorder index, -1 when unreachable
	IDom int // immediate dominator block ID, -1 for the entry and unreachable blocks

	Handler bool // entry of an exception handler
	Term    bool // ends with return or throw
	Folded  bool // merged into another block by expression folding

	// Filled by the expression translator.
	Stmts    []ast.Stmt
	Cond     ast.Expr      // condition of the Taken edge
	Switch   ast.Expr      // switch discriminant
	CatchVar *ast.Variable // exception variable of a handler entry
}

// Last returns the final operation of b.
func (g *Graph) Last(b *Block) ir.Op { return g.Ops[b.End-1] }

// Normal returns the non-exception successor edges of b.
func (b *Block) Normal() []*Edge {
	var out []*Edge
	for _, e := range b.Succs {
		if e.Kind != Catch {
			out = append(out, e)
		}
	}
	return out
}

// NormalPreds returns the non-exception predecessor edges of b.
func (b *Block) NormalPreds() []*Edge {
	var out []*Edge
	for _, e := range b.Preds {
		if e.Kind != Catch {
			out = append(out, e)
		}
	}
	return out
}

// Succ returns the target of the first successor edge of the given kind, or -1.
func (b *Block) Succ(kind EdgeKind) int {
	for _, e := range b.Succs {
		if e.Kind == kind {
			return e.To
		}
	}
	return -1
}

// Graph is a per-method control flow graph.
type Graph struct {
	Name     string
	Ops      []ir.Op
	Handlers []ir.Handler
	Blocks   []*Block

	rpo []int
	df  [][]int
}

// Build constructs the control flow graph of m. The algorithm:
//  1. Find block leaders: the first operation, jump targets, operations after
//     block terminators, handler entries and protected range boundaries.
//  2. Partition operations into blocks by leaders.
//  3. Add successor edges from each block's last operation, then exception
//     edges from every block inside a protected range to its handler.
//
// A method without operations gets a single block with a synthesized return.
func Build(m *ir.Method) (*Graph, error) {
	ops := m.Ops
	if len(ops) == 0 {
		ops = fallOff(m.Desc)
	}
	g := &Graph{Name: m.ID(), Ops: ops, Handlers: m.Handlers}

	pcToIdx := make(map[int]int, len(ops))
	for i, op := range ops {
		pcToIdx[op.PC] = i
	}
	resolve := func(from ir.Op, pc int) (int, error) {
		idx, ok := pcToIdx[pc]
		if !ok {
			return 0, errors.Wrap(ir.ErrCorrupt, "pc %d: target %d is not an operation", from.PC, pc)
		}
		return idx, nil
	}

	// Pass 1: Identify block leaders.
	leaders := map[int]bool{0: true}
	for i, op := range ops {
		bi := ir.Branch(op)
		if bi == nil {
			continue
		}
		if i+1 < len(ops) {
			leaders[i+1] = true
		}
		for _, t := range bi.Targets {
			idx, err := resolve(op, t)
			if err != nil {
				return nil, err
			}
			leaders[idx] = true
		}
	}
	for _, h := range g.Handlers {
		for _, pc := range []int{h.Start, h.End, h.Handler} {
			if idx, ok := pcToIdx[pc]; ok {
				leaders[idx] = true
			} else if pc != h.End {
				return nil, errors.Wrap(ir.ErrCorrupt, "handler [%d,%d)->%d: pc %d is not an operation", h.Start, h.End, h.Handler, pc)
			}
		}
	}

	sorted := make([]int, 0, len(leaders))
	for idx := range leaders {
		sorted = append(sorted, idx)
	}
	sort.Ints(sorted)

	// Pass 2: Partition into blocks.
	leaderToBlock := make(map[int]int, len(sorted))
	for i, start := range sorted {
		end := len(ops)
		if i+1 < len(sorted) {
			end = sorted[i+1]
		}
		g.Blocks = append(g.Blocks, &Block{ID: i, Start: start, End: end, PC: ops[start].PC, Post: -1, IDom: -1})
		leaderToBlock[start] = i
	}
	blockAt := func(from ir.Op, pc int) (int, error) {
		idx, err := resolve(from, pc)
		if err != nil {
			return 0, err
		}
		return leaderToBlock[idx], nil
	}

	// Pass 3: Compute successors.
	for _, blk := range g.Blocks {
		last := ops[blk.End-1]
		next, hasNext := leaderToBlock[blk.End]
		bi := ir.Branch(last)

		switch {
		case bi == nil:
			if hasNext {
				g.AddEdge(blk.ID, next, Fall)
			}
		case bi.IsTerm:
			blk.Term = true
		case bi.Switch:
			bySucc := make(map[int]*Edge)
			var order []*Edge
			caseEdge := func(to int) *Edge {
				e, ok := bySucc[to]
				if !ok {
					e = &Edge{From: blk.ID, To: to, Kind: Case}
					bySucc[to] = e
					order = append(order, e)
				}
				return e
			}
			for i, k := range last.Keys {
				to, err := blockAt(last, last.Targets[i])
				if err != nil {
					return nil, err
				}
				e := caseEdge(to)
				e.Keys = append(e.Keys, k)
			}
			to, err := blockAt(last, last.Default)
			if err != nil {
				return nil, err
			}
			caseEdge(to).Default = true
			for _, e := range order {
				g.link(e)
			}
		case bi.Cond:
			to, err := blockAt(last, bi.Targets[0])
			if err != nil {
				return nil, err
			}
			g.AddEdge(blk.ID, to, Taken)
			if hasNext {
				g.AddEdge(blk.ID, next, Fall)
			}
		default:
			to, err := blockAt(last, bi.Targets[0])
			if err != nil {
				return nil, err
			}
			g.AddEdge(blk.ID, to, Jump)
		}
	}

	for _, h := range g.Handlers {
		hb := leaderToBlock[pcToIdx[h.Handler]]
		g.Blocks[hb].Handler = true
		for _, blk := range g.Blocks {
			if blk.PC < h.Start || blk.PC >= h.End || g.hasCatch(blk.ID, hb, h.Catch) {
				continue
			}
			g.link(&Edge{From: blk.ID, To: hb, Kind: Catch, Type: h.Catch})
		}
	}

	g.Recompute()
	return g, nil
}

// fallOff synthesizes the body of an empty method: return the zero value of
// the descriptor's return type.
func fallOff(desc string) []ir.Op {
	ret := "V"
	if i := strings.LastIndexByte(desc, ')'); i >= 0 && i+1 < len(desc) {
		ret = desc[i+1:]
	}
	switch ret[0] {
	case 'V':
		return []ir.Op{{Code: ir.RETURN, Type: "V"}}
	case 'L', '[':
		return []ir.Op{{Code: ir.PUSH, Type: ret}, {PC: 1, Code: ir.RETURN, Type: ret}}
	case 'J':
		return []ir.Op{{Code: ir.PUSH, Type: "J", Value: int64(0)}, {PC: 1, Code: ir.RETURN, Type: "J"}}
	case 'F', 'D':
		return []ir.Op{{Code: ir.PUSH, Type: ret[:1], Value: float64(0)}, {PC: 1, Code: ir.RETURN, Type: ret[:1]}}
	}
	return []ir.Op{{Code: ir.PUSH, Type: "I", Value: int64(0)}, {PC: 1, Code: ir.RETURN, Type: "I"}}
}

func (g *Graph) hasCatch(from, to int, typ string) bool {
	for _, e := range g.Blocks[from].Succs {
		if e.Kind == Catch && e.To == to && e.Type == typ {
			return true
		}
	}
	return false
}

func (g *Graph) link(e *Edge) {
	g.Blocks[e.From].Succs = append(g.Blocks[e.From].Succs, e)
	g.Blocks[e.To].Preds = append(g.Blocks[e.To].Preds, e)
}

// AddEdge links from to to.
func (g *Graph) AddEdge(from, to int, kind EdgeKind) *Edge {
	e := &Edge{From: from, To: to, Kind: kind}
	g.link(e)
	return e
}

// RemoveEdge unlinks e from both of its blocks.
func (g *Graph) RemoveEdge(e *Edge) {
	g.Blocks[e.From].Succs = without(g.Blocks[e.From].Succs, e)
	g.Blocks[e.To].Preds = without(g.Blocks[e.To].Preds, e)
}

// Fold detaches b from the graph. The block keeps its ID and operations.
func (g *Graph) Fold(b int) {
	blk := g.Blocks[b]
	for _, e := range append([]*Edge(nil), blk.Succs...) {
		g.RemoveEdge(e)
	}
	for _, e := range append([]*Edge(nil), blk.Preds...) {
		g.RemoveEdge(e)
	}
	blk.Folded = true
	blk.Stmts, blk.Cond, blk.Switch = nil, nil, nil
}

func without(list []*Edge, e *Edge) []*Edge {
	out := list[:0]
	for _, x := range list {
		if x != e {
			out = append(out, x)
		}
	}
	return out
}

// BlockOf returns the block containing the operation with the given PC, or -1.
func (g *Graph) BlockOf(pc int) int {
	i := sort.Search(len(g.Blocks), func(i int) bool { return g.Blocks[i].PC > pc })
	if i == 0 {
		return -1
	}
	b := g.Blocks[i-1]
	for _, op := range g.Ops[b.Start:b.End] {
		if op.PC == pc {
			return b.ID
		}
	}
	return -1
}

// String renders the graph in a stable text form for tests and dumps.
func (g *Graph) String() string {
	var b strings.Builder
	for _, blk := range g.Blocks {
		if blk.Folded {
			continue
		}
		fmt.Fprintf(&b, "B%d [%d..%d] post=%d idom=%d", blk.ID, blk.PC, g.Ops[blk.End-1].PC, blk.Post, blk.IDom)
		for _, e := range blk.Succs {
			fmt.Fprintf(&b, " ->B%d", e.To)
			if l := e.Label(); l != "" {
				fmt.Fprintf(&b, "(%s)", l)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
