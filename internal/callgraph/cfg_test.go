package callgraph

import (
	"testing"

	"github.com/zboralski/lattice/render"

	"decaf/internal/ir"
)

func invoke(pc int, kind ir.InvokeKind, owner, name, desc string) ir.Op {
	return ir.Op{PC: pc, Code: ir.INVOKE, Invoke: kind, Ref: &ir.Ref{Owner: owner, Name: name, Desc: desc}}
}

func TestBuildCFG_DOTOutput(t *testing.T) {
	// static void run(int x) {
	//   Foo.bar();              // B0
	//   if (x != 0) {
	//     Baz.qux();            // B1
	//     return;
	//   }
	//   Quux.run();             // B2
	// }
	m := &ir.Method{
		Owner: "p.C", Name: "run", Desc: "(I)V", Flags: ir.AccStatic, MaxLocals: 1,
		Ops: []ir.Op{
			invoke(0, ir.Static, "p.Foo", "bar", "()V"),
			{PC: 3, Code: ir.LOAD, Type: "I", Reg: 0},
			{PC: 4, Code: ir.JCND, Type: "I", Cond: ir.EQ, Target: 11},
			invoke(7, ir.Static, "p.Baz", "qux", "()V"),
			{PC: 10, Code: ir.RETURN, Type: "V"},
			invoke(11, ir.Static, "p.Quux", "run", "()V"),
			{PC: 14, Code: ir.RETURN, Type: "V"},
		},
	}

	cfg := BuildCFG([]*ir.Method{m, {Owner: "p.C", Name: "abs", Desc: "()V", Flags: ir.AccAbstract}})

	if len(cfg.Funcs) != 1 {
		t.Fatalf("expected 1 function, got %d", len(cfg.Funcs))
	}
	f := cfg.Funcs[0]
	if f.Name != "p.C.run(I)V" {
		t.Errorf("func name = %q", f.Name)
	}
	if len(f.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(f.Blocks))
	}

	// B0: entry, has 1 call (Foo.bar), 2 successors (T→B2, F→B1)
	b0 := f.Blocks[0]
	if len(b0.Calls) != 1 || b0.Calls[0].Callee != "p.Foo.bar()V" {
		t.Errorf("B0 calls = %+v", b0.Calls)
	}
	if len(b0.Succs) != 2 {
		t.Fatalf("B0 succs = %+v", b0.Succs)
	}
	if b0.Succs[0].BlockID != 2 || b0.Succs[0].Cond != "T" {
		t.Errorf("B0 taken = %+v, want B2 T", b0.Succs[0])
	}

	b1 := f.Blocks[1]
	if len(b1.Calls) != 1 || b1.Calls[0].Callee != "p.Baz.qux()V" || b1.Calls[0].Offset != 3 {
		t.Errorf("B1 calls = %+v", b1.Calls)
	}
	if !b1.Term || !f.Blocks[2].Term {
		t.Error("B1 and B2 should be terminal")
	}

	dot := render.DOTCFG(cfg, "decaf CFG example")
	if dot == "" {
		t.Error("expected non-empty DOT output")
	}
}

func TestBuildCallGraph_DOTOutput(t *testing.T) {
	methods := []*ir.Method{
		{
			Owner: "p.Main", Name: "main", Desc: "([Ljava/lang/String;)V",
			Ops: []ir.Op{
				invoke(0, ir.Static, "p.Foo", "init", "()V"),
				invoke(3, ir.Virtual, "p.Bar", "run", "()V"),
				invoke(6, ir.Static, "p.Foo", "init", "()V"),
				invoke(9, ir.Dynamic, "java.lang.invoke.StringConcatFactory", "makeConcatWithConstants", "()Ljava/lang/String;"),
			},
		},
		{
			Owner: "p.Foo", Name: "init", Desc: "()V",
			Ops: []ir.Op{invoke(0, ir.Static, "p.Log", "log", "()V")},
		},
		{
			Owner: "p.Bar", Name: "run", Desc: "()V",
			Ops: []ir.Op{invoke(0, ir.Static, "p.Log", "log", "()V")},
		},
		{Owner: "p.Log", Name: "log", Desc: "()V"},
	}

	cg := BuildCallGraph(methods)

	if len(cg.Nodes) != 4 {
		t.Errorf("expected 4 nodes, got %d", len(cg.Nodes))
	}
	if len(cg.Edges) != 4 {
		t.Errorf("expected 4 edges, got %d: %+v", len(cg.Edges), cg.Edges)
	}

	dot := render.DOT(cg, "decaf call graph example")
	if dot == "" {
		t.Error("expected non-empty DOT output")
	}
}
