package structure

import (
	"context"
	"reflect"
	"testing"

	"decaf/internal/ast"
	"decaf/internal/cfg"
	"decaf/internal/diag"
	"decaf/internal/ir"
)

func makeOp(pc int, code ir.Code) ir.Op {
	return ir.Op{PC: pc, Code: code, Type: "I"}
}

func jump(pc int, code ir.Code, target int) ir.Op {
	op := makeOp(pc, code)
	op.Target = target
	return op
}

// build constructs the graph and stands in for the translator: every
// conditional block gets a condition and every switch a discriminant.
func build(t *testing.T, ops []ir.Op, handlers ...ir.Handler) (*cfg.Graph, *Tree, *diag.Diags) {
	t.Helper()
	m := &ir.Method{Owner: "p.C", Name: "f", Desc: "(I)I", MaxLocals: 4, Ops: ops, Handlers: handlers}
	g, err := cfg.Build(m)
	if err != nil {
		t.Fatalf("cfg.Build: %v", err)
	}
	for _, blk := range g.Blocks {
		switch g.Last(blk).Code {
		case ir.JCND, ir.JCMP:
			blk.Cond = &ast.Literal{}
		case ir.SWITCH:
			blk.Switch = &ast.Literal{}
		}
	}
	d := diag.For(g.Name)
	tree, err := Build(context.Background(), g, d)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	checkPartition(t, g, tree)
	return g, tree, d
}

// checkPartition verifies every reachable block has one owner and every
// structure lies inside its parent.
func checkPartition(t *testing.T, g *cfg.Graph, tree *Tree) {
	t.Helper()
	for _, id := range g.RPO() {
		if tree.Owner[id] < 0 {
			t.Errorf("B%d has no owner", id)
		}
	}
	for _, s := range tree.Structs[1:] {
		parent := tree.Structs[s.Parent]
		for _, id := range s.Blocks {
			if !containsInt(parent.Blocks, id) {
				t.Errorf("%s#%d: B%d is outside parent %s#%d", s.Kind, s.ID, id, parent.Kind, parent.ID)
			}
			if !tree.Contains(s.ID, id) {
				t.Errorf("%s#%d does not contain its block B%d", s.Kind, s.ID, id)
			}
		}
	}
}

func only(t *testing.T, tree *Tree, kind Kind) *Struct {
	t.Helper()
	var found *Struct
	for _, s := range tree.Structs {
		if s.Kind != kind {
			continue
		}
		if found != nil {
			t.Fatalf("more than one %s:\n%s", kind, tree)
		}
		found = s
	}
	if found == nil {
		t.Fatalf("no %s:\n%s", kind, tree)
	}
	return found
}

func TestBuild_WhileLoop(t *testing.T) {
	ops := []ir.Op{
		makeOp(0, ir.PUSH),
		makeOp(1, ir.STORE),
		makeOp(2, ir.PUSH),
		makeOp(3, ir.STORE),
		makeOp(4, ir.LOAD),
		makeOp(5, ir.LOAD),
		jump(6, ir.JCMP, 14),
		makeOp(7, ir.LOAD),
		makeOp(8, ir.LOAD),
		makeOp(9, ir.ADD),
		makeOp(10, ir.STORE),
		makeOp(11, ir.INC),
		jump(12, ir.GOTO, 4),
		makeOp(14, ir.LOAD),
		makeOp(15, ir.RETURN),
	}
	g, tree, d := build(t, ops)

	loop := only(t, tree, Loop)
	head := g.BlockOf(4)
	if loop.Head != head || loop.Loop != While {
		t.Errorf("loop head = B%d kind = %s, want B%d while", loop.Head, loop.Loop, head)
	}
	if want := g.BlockOf(14); loop.Follow != want {
		t.Errorf("follow = B%d, want B%d", loop.Follow, want)
	}
	if want := g.BlockOf(12); loop.Tail != want {
		t.Errorf("tail = B%d, want B%d", loop.Tail, want)
	}
	if tree.Owner[g.BlockOf(0)] != 0 || tree.Owner[g.BlockOf(14)] != 0 {
		t.Errorf("blocks outside the loop should belong to the method:\n%s", tree)
	}
	for _, s := range tree.Structs {
		if s.Kind == If {
			t.Errorf("loop head test also recognized as a conditional:\n%s", tree)
		}
	}
	if d.Len() != 0 {
		t.Errorf("diags = %v", d.Items())
	}
}

func TestBuild_DoWhile(t *testing.T) {
	ops := []ir.Op{
		makeOp(0, ir.NOP),
		makeOp(1, ir.LOAD),
		jump(2, ir.JCND, 0),
		makeOp(3, ir.RETURN),
	}
	m := &ir.Method{Owner: "p.C", Name: "f", Desc: "()V", MaxLocals: 2, Ops: ops}
	g, err := cfg.Build(m)
	if err != nil {
		t.Fatal(err)
	}
	g.Blocks[0].Cond = &ast.Literal{}
	g.Blocks[0].Stmts = []ast.Stmt{&ast.ExprStmt{X: &ast.Literal{}}}

	tree, err := Build(context.Background(), g, diag.For(g.Name))
	if err != nil {
		t.Fatal(err)
	}
	loop := only(t, tree, Loop)
	if loop.Loop != DoWhile || loop.Tail != 0 || loop.Follow != 1 {
		t.Errorf("loop = %s tail=%d follow=%d, want do-while tail=0 follow=1", loop.Loop, loop.Tail, loop.Follow)
	}
	for _, s := range tree.Structs {
		if s.Kind == If {
			t.Errorf("loop tail test also recognized as a conditional:\n%s", tree)
		}
	}
}

func TestBuild_IfElse(t *testing.T) {
	//  0: LOAD; 1: JCND -> 5; 2: PUSH; 3: GOTO -> 6; 5: PUSH; 6: RETURN
	ops := []ir.Op{
		makeOp(0, ir.LOAD),
		jump(1, ir.JCND, 5),
		makeOp(2, ir.PUSH),
		jump(3, ir.GOTO, 6),
		makeOp(5, ir.PUSH),
		makeOp(6, ir.RETURN),
	}
	g, tree, _ := build(t, ops)

	s := only(t, tree, If)
	thenB, elseB, join := g.BlockOf(5), g.BlockOf(2), g.BlockOf(6)
	if s.Head != 0 || s.Follow != join {
		t.Errorf("if head = B%d follow = B%d, want B0 and B%d", s.Head, s.Follow, join)
	}
	if len(s.Members) != 2 {
		t.Fatalf("members = %d, want 2", len(s.Members))
	}
	if got := s.Members[0].Blocks; !reflect.DeepEqual(got, []int{thenB}) {
		t.Errorf("taken arm = %v, want [%d]", got, thenB)
	}
	if got := s.Members[1].Blocks; !reflect.DeepEqual(got, []int{elseB}) {
		t.Errorf("fall arm = %v, want [%d]", got, elseB)
	}
	if tree.Owner[join] != 0 {
		t.Errorf("follow owned by #%d, want the method", tree.Owner[join])
	}
}

func TestBuild_IfWithoutElse(t *testing.T) {
	//  0: LOAD; 1: JCND -> 4; 2: NOP; 3: NOP; 4: RETURN
	ops := []ir.Op{
		makeOp(0, ir.LOAD),
		jump(1, ir.JCND, 4),
		makeOp(2, ir.NOP),
		makeOp(3, ir.NOP),
		makeOp(4, ir.RETURN),
	}
	g, tree, _ := build(t, ops)

	s := only(t, tree, If)
	if want := g.BlockOf(4); s.Follow != want || s.Members[0].Entry != want {
		t.Errorf("follow = B%d taken entry = B%d, want both B%d", s.Follow, s.Members[0].Entry, want)
	}
	if len(s.Members[0].Blocks) != 0 {
		t.Errorf("taken arm = %v, want empty", s.Members[0].Blocks)
	}
}

func TestBuild_SwitchSharedKeys(t *testing.T) {
	sw := makeOp(1, ir.SWITCH)
	sw.Keys = []int{1, 2, 3}
	sw.Targets = []int{10, 10, 20}
	sw.Default = 30
	ops := []ir.Op{
		makeOp(0, ir.LOAD),
		sw,
		makeOp(10, ir.NOP),
		jump(11, ir.GOTO, 40),
		makeOp(20, ir.NOP),
		jump(21, ir.GOTO, 40),
		makeOp(30, ir.NOP),
		makeOp(40, ir.RETURN),
	}
	g, tree, d := build(t, ops)

	s := only(t, tree, Switch)
	if want := g.BlockOf(40); s.Follow != want {
		t.Errorf("follow = B%d, want B%d", s.Follow, want)
	}
	if len(s.Members) != 3 {
		t.Fatalf("members = %d, want 3:\n%s", len(s.Members), tree)
	}
	if got := s.Members[0].Keys; !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("first case keys = %v, want [1 2]", got)
	}
	if got := s.Members[1].Keys; !reflect.DeepEqual(got, []int{3}) {
		t.Errorf("second case keys = %v, want [3]", got)
	}
	if !s.Members[2].Default || s.Members[2].Entry != g.BlockOf(30) {
		t.Errorf("last member = %+v, want the default", s.Members[2])
	}
	if d.Count(diag.Structure) != 0 {
		t.Errorf("diags = %v", d.Items())
	}
}

func TestBuild_TryCatch(t *testing.T) {
	//  try { 0: NOP; 1: NOP } 2: GOTO 10; catch (Exception) { 5: NOP; 6: NOP } 10: RETURN
	ops := []ir.Op{
		makeOp(0, ir.NOP),
		makeOp(1, ir.NOP),
		jump(2, ir.GOTO, 10),
		makeOp(5, ir.NOP),
		makeOp(6, ir.NOP),
		makeOp(10, ir.RETURN),
	}
	g, tree, d := build(t, ops, ir.Handler{Start: 0, End: 2, Handler: 5, Catch: "java.lang.Exception"})

	s := only(t, tree, Try)
	handler, after := g.BlockOf(5), g.BlockOf(10)
	if s.Head != 0 || s.Follow != after {
		t.Errorf("try head = B%d follow = B%d, want B0 and B%d", s.Head, s.Follow, after)
	}
	for _, e := range g.Blocks[0].Normal() {
		if e.To == handler {
			t.Fatal("handler should only be reached by an exception edge")
		}
	}
	if len(s.Members) != 2 {
		t.Fatalf("members = %d, want body and one handler", len(s.Members))
	}
	if got := s.Members[0].Blocks; !reflect.DeepEqual(got, []int{0, g.BlockOf(2)}) {
		t.Errorf("body = %v", got)
	}
	h := s.Members[1]
	if h.Entry != handler || !reflect.DeepEqual(h.Catch, []string{"java.lang.Exception"}) {
		t.Errorf("handler member = %+v", h)
	}
	if tree.Owner[after] != 0 {
		t.Errorf("follow owned by #%d, want the method", tree.Owner[after])
	}
	if d.Len() != 0 {
		t.Errorf("diags = %v", d.Items())
	}
}

func TestBuild_NestedLoopBreak(t *testing.T) {
	//  outer: 0: LOAD; 1: JCND -> 20
	//  inner: 2: LOAD; 3: JCND -> 10; 4: LOAD; 5: JCND -> 20 (break outer); 6: GOTO 2
	//  10: GOTO 0
	//  20: RETURN
	ops := []ir.Op{
		makeOp(0, ir.LOAD),
		jump(1, ir.JCND, 20),
		makeOp(2, ir.LOAD),
		jump(3, ir.JCND, 10),
		makeOp(4, ir.LOAD),
		jump(5, ir.JCND, 20),
		jump(6, ir.GOTO, 2),
		jump(10, ir.GOTO, 0),
		makeOp(20, ir.RETURN),
	}
	g, tree, _ := build(t, ops)

	var loops []*Struct
	for _, s := range tree.Structs {
		if s.Kind == Loop {
			loops = append(loops, s)
		}
	}
	if len(loops) != 2 {
		t.Fatalf("loops = %d, want 2:\n%s", len(loops), tree)
	}
	outer, inner := loops[0], loops[1]
	if inner.Parent != outer.ID {
		t.Errorf("inner loop parent = #%d, want #%d", inner.Parent, outer.ID)
	}
	if want := g.BlockOf(20); outer.Follow != want {
		t.Errorf("outer follow = B%d, want B%d", outer.Follow, want)
	}
	if want := g.BlockOf(10); inner.Follow != want {
		t.Errorf("inner follow = B%d, want B%d", inner.Follow, want)
	}

	// The jump to the outer follow is a break, not a conditional follow.
	for _, s := range tree.Structs {
		if s.Kind == If && s.Follow == g.BlockOf(20) {
			t.Errorf("conditional at B%d merges at the outer follow:\n%s", s.Head, tree)
		}
	}
}

func TestBuild_IfFollowTieBreak(t *testing.T) {
	// Both arms branch to both m1 (pc 5) and m2 (pc 6), so each is a merge
	// point immediately dominated by the head.
	ops := []ir.Op{
		jump(0, ir.JCND, 3),
		jump(1, ir.JCND, 6),
		jump(2, ir.GOTO, 5),
		jump(3, ir.JCND, 6),
		jump(4, ir.GOTO, 5),
		jump(5, ir.GOTO, 7),
		makeOp(6, ir.NOP),
		makeOp(7, ir.RETURN),
	}
	g, tree, d := build(t, ops)

	h, m1, m2 := g.BlockOf(0), g.BlockOf(5), g.BlockOf(6)
	if g.Blocks[m1].IDom != h || g.Blocks[m2].IDom != h {
		t.Fatalf("idom(m1) = B%d, idom(m2) = B%d, want B%d", g.Blocks[m1].IDom, g.Blocks[m2].IDom, h)
	}

	want := m1
	if g.Blocks[m2].Post < g.Blocks[m1].Post {
		want = m2
	}

	var s *Struct
	for _, x := range tree.Structs {
		if x.Kind == If && x.Head == h {
			s = x
		}
	}
	if s == nil {
		t.Fatalf("no conditional at B%d:\n%s", h, tree)
	}
	if s.Follow != want {
		t.Errorf("follow = B%d, want B%d (post %d vs %d)", s.Follow, want, g.Blocks[m1].Post, g.Blocks[m2].Post)
	}
	if d.Count(diag.Structure) == 0 {
		t.Error("ambiguous merge point not reported")
	}
}
