package render

import (
	"context"
	"strings"
	"testing"

	"decaf/internal/ast"
	"decaf/internal/cfg"
	"decaf/internal/diag"
	"decaf/internal/ir"
	"decaf/internal/structure"
)

func reg(pc int, code ir.Code, r int) ir.Op {
	return ir.Op{PC: pc, Code: code, Type: "I", Reg: r}
}

// static int f(int x) { int s = 0; for (int i = 0; i < x; i++) { s += i; } return s; }
func sumLoop() *ir.Method {
	return &ir.Method{
		Owner: "p.C", Name: "f", Desc: "(I)I", Flags: ir.AccStatic, MaxLocals: 3,
		Ops: []ir.Op{
			{PC: 0, Code: ir.PUSH, Type: "I", Value: int64(0)},
			reg(1, ir.STORE, 1),
			{PC: 2, Code: ir.PUSH, Type: "I", Value: int64(0)},
			reg(3, ir.STORE, 2),
			reg(4, ir.LOAD, 2),
			reg(5, ir.LOAD, 0),
			{PC: 6, Code: ir.JCMP, Type: "I", Cond: ir.GE, Target: 14},
			reg(7, ir.LOAD, 1),
			reg(8, ir.LOAD, 2),
			{PC: 9, Code: ir.ADD, Type: "I"},
			reg(10, ir.STORE, 1),
			{PC: 11, Code: ir.INC, Reg: 2, Value: int64(1)},
			{PC: 12, Code: ir.GOTO, Target: 4},
			reg(14, ir.LOAD, 1),
			{PC: 15, Code: ir.RETURN, Type: "I"},
		},
	}
}

func TestStructDOT(t *testing.T) {
	g, err := cfg.Build(sumLoop())
	if err != nil {
		t.Fatalf("cfg.Build: %v", err)
	}
	// Conditions come from the translator; a loop head without one is endless.
	for _, blk := range g.Blocks {
		if g.Last(blk).Code == ir.JCMP {
			blk.Cond = &ast.Literal{}
		}
	}
	tree, err := structure.Build(context.Background(), g, diag.For(g.Name))
	if err != nil {
		t.Fatalf("structure.Build: %v", err)
	}

	dot := StructDOT(g, tree, NASA)
	for _, want := range []string{
		"digraph cfg {",
		"p.C.f(I)I",
		"subgraph cluster_s1 {",
		"while #1",
		"bb0 [label=<B0",
		"JCMP GE I -&gt; 14",
		"bb2 -> bb1 [color=\"#E65100\", style=bold];",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT does not contain %q:\n%s", want, dot)
		}
	}
	if n := strings.Count(dot, "[label=<B"); n != 4 {
		t.Errorf("nodes = %d, want 4", n)
	}
}

func TestStructDOT_NoTree(t *testing.T) {
	g, err := cfg.Build(sumLoop())
	if err != nil {
		t.Fatalf("cfg.Build: %v", err)
	}

	dot := StructDOT(g, nil, NASA)
	if strings.Contains(dot, "subgraph") {
		t.Errorf("clusters without a tree:\n%s", dot)
	}
	if !strings.Contains(dot, "bb1 -> bb3 [color=\"#0B3D91\", style=solid, label=") {
		t.Errorf("taken edge missing:\n%s", dot)
	}
}
