package cfg

import (
	"testing"

	"decaf/internal/ir"
)

// makeOp creates a synthetic operation at the given PC.
func makeOp(pc int, code ir.Code) ir.Op {
	return ir.Op{PC: pc, Code: code, Type: "I"}
}

func jump(pc int, code ir.Code, target int) ir.Op {
	op := makeOp(pc, code)
	op.Target = target
	return op
}

func method(ops []ir.Op, handlers ...ir.Handler) *ir.Method {
	return &ir.Method{Owner: "p.C", Name: "f", Desc: "(I)I", MaxLocals: 4, Ops: ops, Handlers: handlers}
}

func mustBuild(t *testing.T, m *ir.Method) *Graph {
	t.Helper()
	g, err := Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func TestBuild_Linear(t *testing.T) {
	g := mustBuild(t, method([]ir.Op{makeOp(0, ir.NOP), makeOp(1, ir.PUSH), makeOp(2, ir.RETURN)}))
	if len(g.Blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(g.Blocks))
	}
	blk := g.Blocks[0]
	if blk.Start != 0 || blk.End != 3 {
		t.Errorf("block range = [%d,%d), want [0,3)", blk.Start, blk.End)
	}
	if !blk.Term || len(blk.Succs) != 0 {
		t.Errorf("term = %v succs = %d", blk.Term, len(blk.Succs))
	}
}

func TestBuild_JumpTargetsStartBlocks(t *testing.T) {
	//  0: LOAD; 1: JCND -> 5; 3: PUSH; 4: GOTO -> 7; 5: PUSH; 6: NOP; 7: RETURN
	ops := []ir.Op{
		makeOp(0, ir.LOAD),
		jump(1, ir.JCND, 5),
		makeOp(3, ir.PUSH),
		jump(4, ir.GOTO, 7),
		makeOp(5, ir.PUSH),
		makeOp(6, ir.NOP),
		makeOp(7, ir.RETURN),
	}
	g := mustBuild(t, method(ops))

	for _, op := range ops {
		bi := ir.Branch(op)
		if bi == nil {
			continue
		}
		for _, target := range bi.Targets {
			b := g.BlockOf(target)
			if b < 0 || g.Blocks[b].PC != target {
				t.Errorf("no block starts at jump target %d", target)
			}
		}
	}

	if len(g.Blocks) != 4 {
		t.Fatalf("blocks = %d, want 4\n%s", len(g.Blocks), g)
	}
	b0 := g.Blocks[0]
	if got := b0.Succ(Taken); got != 2 {
		t.Errorf("taken = B%d, want B2", got)
	}
	if got := b0.Succ(Fall); got != 1 {
		t.Errorf("fall = B%d, want B1", got)
	}
	if got := g.Blocks[1].Succ(Jump); got != 3 {
		t.Errorf("jump = B%d, want B3", got)
	}
	if got := g.Blocks[2].Succ(Fall); got != 3 {
		t.Errorf("B2 fall = B%d, want B3", got)
	}

	if g.Blocks[3].IDom != 0 {
		t.Errorf("idom(B3) = %d, want 0", g.Blocks[3].IDom)
	}
	if df := g.DF(1); len(df) != 1 || df[0] != 3 {
		t.Errorf("DF(B1) = %v, want [3]", df)
	}
	if rpo := g.RPO(); len(rpo) != 4 || rpo[0] != 0 || rpo[3] != 3 {
		t.Errorf("rpo = %v", rpo)
	}
}

func TestBuild_SwitchSharedTarget(t *testing.T) {
	sw := makeOp(1, ir.SWITCH)
	sw.Keys = []int{1, 2, 3}
	sw.Targets = []int{10, 10, 20}
	sw.Default = 30
	ops := []ir.Op{
		makeOp(0, ir.LOAD), sw,
		makeOp(10, ir.RETURN), makeOp(20, ir.RETURN), makeOp(30, ir.RETURN),
	}
	g := mustBuild(t, method(ops))
	succs := g.Blocks[0].Succs
	if len(succs) != 3 {
		t.Fatalf("succs = %d, want 3", len(succs))
	}
	if e := succs[0]; e.Kind != Case || len(e.Keys) != 2 || e.Keys[0] != 1 || e.Keys[1] != 2 {
		t.Errorf("first case edge = %+v, want keys [1 2]", e)
	}
	if e := succs[2]; !e.Default || len(e.Keys) != 0 {
		t.Errorf("default edge = %+v", e)
	}
}

func TestBuild_ExceptionEdges(t *testing.T) {
	// try { 0..3 } catch (E) { 4..5 } 6: return
	ops := []ir.Op{
		makeOp(0, ir.INVOKE),
		makeOp(1, ir.INVOKE),
		jump(2, ir.GOTO, 6),
		makeOp(4, ir.STORE),
		makeOp(5, ir.NOP),
		makeOp(6, ir.RETURN),
	}
	g := mustBuild(t, method(ops, ir.Handler{Start: 0, End: 4, Handler: 4, Catch: "p.E"}))

	hb := g.BlockOf(4)
	if !g.Blocks[hb].Handler {
		t.Fatal("handler block not marked")
	}
	for _, blk := range g.Blocks {
		if blk.PC >= 0 && blk.PC < 4 {
			if !g.hasCatch(blk.ID, hb, "p.E") {
				t.Errorf("B%d in protected range has no exception edge", blk.ID)
			}
		}
	}
	for _, e := range g.Blocks[hb].Preds {
		if e.Kind != Catch {
			t.Errorf("handler reached by %v edge from B%d", e.Kind, e.From)
		}
	}
	if !g.Reachable(hb) {
		t.Error("handler should be reachable through its exception edge")
	}
}

func TestBuild_LoopDominators(t *testing.T) {
	// 0: PUSH; 1: STORE; 2: LOAD; 3: JCND -> 9; 5: INC; 6: GOTO -> 2; 9: RETURN
	ops := []ir.Op{
		makeOp(0, ir.PUSH), makeOp(1, ir.STORE),
		makeOp(2, ir.LOAD), jump(3, ir.JCND, 9),
		makeOp(5, ir.INC), jump(6, ir.GOTO, 2),
		makeOp(9, ir.RETURN),
	}
	g := mustBuild(t, method(ops))
	head, body := g.BlockOf(2), g.BlockOf(5)
	var back *Edge
	for _, e := range g.Blocks[body].Succs {
		if e.To == head {
			back = e
		}
	}
	if back == nil || !g.IsBackEdge(back) {
		t.Fatalf("missing back edge B%d->B%d\n%s", body, head, g)
	}
	if !g.Dominates(head, body) || g.Dominates(body, head) {
		t.Error("header should dominate the body only")
	}
}

func TestBuild_EmptyBody(t *testing.T) {
	g := mustBuild(t, &ir.Method{Owner: "p.C", Name: "f", Desc: "()Ljava/lang/String;"})
	if len(g.Blocks) != 1 || !g.Blocks[0].Term {
		t.Fatalf("graph = %s", g)
	}
	if last := g.Last(g.Blocks[0]); last.Code != ir.RETURN || last.Type != "Ljava/lang/String;" {
		t.Errorf("last = %v", last)
	}
}

func TestBuild_BadTarget(t *testing.T) {
	_, err := Build(method([]ir.Op{jump(0, ir.GOTO, 42)}))
	if err == nil {
		t.Fatal("expected error for dangling target")
	}
}

func TestFold(t *testing.T) {
	ops := []ir.Op{makeOp(0, ir.LOAD), jump(1, ir.JCND, 4), makeOp(3, ir.NOP), makeOp(4, ir.RETURN)}
	g := mustBuild(t, method(ops))
	g.Fold(1)
	g.Recompute()
	if len(g.Blocks[2].Preds) != 1 || g.Reachable(1) {
		t.Errorf("after fold: %s", g)
	}
}
