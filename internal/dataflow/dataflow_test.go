package dataflow

import (
	"context"
	"testing"

	"decaf/internal/cfg"
	"decaf/internal/diag"
	"decaf/internal/ir"
	"decaf/internal/types"
)

func makeOp(pc int, code ir.Code, typ string) ir.Op {
	return ir.Op{PC: pc, Code: code, Type: typ}
}

func reg(pc int, code ir.Code, typ string, r int) ir.Op {
	op := makeOp(pc, code, typ)
	op.Reg = r
	return op
}

func push(pc int, typ string, v any) ir.Op {
	op := makeOp(pc, ir.PUSH, typ)
	op.Value = v
	return op
}

func jump(pc int, code ir.Code, cond ir.Cond, target int) ir.Op {
	op := makeOp(pc, code, "I")
	op.Cond, op.Target = cond, target
	return op
}

type fixture struct {
	c   *types.Cache
	g   *cfg.Graph
	res *Result
	d   *diag.Diags
}

func analyze(t *testing.T, m *ir.Method, params ...*types.T) (*fixture, error) {
	t.Helper()
	g, err := cfg.Build(m)
	if err != nil {
		t.Fatalf("cfg.Build: %v", err)
	}
	c := types.NewCache(nil)
	if params == nil {
		params = []*types.T{c.Int()}
	}
	d := diag.For(m.ID())
	init := InitialFrame(c, m, nil, params)
	res, err := Analyze(context.Background(), c, g, init, diag.Options{}, d)
	return &fixture{c: c, g: g, res: res, d: d}, err
}

// sumLoop is: static int f(int x) { int s = 0; for (int i = 0; i < x; i++) s += i; return s; }
func sumLoop() *ir.Method {
	inc := reg(11, ir.INC, "I", 2)
	inc.Value = int64(1)
	return &ir.Method{
		Owner: "p.C", Name: "f", Desc: "(I)I", Flags: ir.AccStatic, MaxLocals: 3,
		Ops: []ir.Op{
			push(0, "I", int64(0)),
			reg(1, ir.STORE, "I", 1),
			push(2, "I", int64(0)),
			reg(3, ir.STORE, "I", 2),
			reg(4, ir.LOAD, "I", 2),
			reg(5, ir.LOAD, "I", 0),
			jump(6, ir.JCMP, ir.GE, 14),
			reg(7, ir.LOAD, "I", 1),
			reg(8, ir.LOAD, "I", 2),
			makeOp(9, ir.ADD, "I"),
			reg(10, ir.STORE, "I", 1),
			inc,
			jump(12, ir.GOTO, 0, 4),
			reg(14, ir.LOAD, "I", 1),
			makeOp(15, ir.RETURN, "I"),
		},
	}
}

func TestAnalyze_LoopSoundness(t *testing.T) {
	fx, err := analyze(t, sumLoop())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if fx.res.Passes > 4 {
		t.Errorf("passes = %d, want at most 4", fx.res.Passes)
	}

	head := fx.g.BlockOf(4)
	in := fx.res.In[head]
	if in.Regs[1] != fx.c.Int() || in.Regs[2] != fx.c.Int() {
		t.Errorf("loop head frame = %v, want s and i int", in)
	}

	// Every entry register type is the join of the predecessors' exit types.
	for _, id := range fx.g.RPO() {
		b := fx.g.Blocks[id]
		if len(b.Preds) == 0 {
			continue
		}
		var want *Frame
		if id == 0 {
			want = InitialFrame(fx.c, sumLoop(), nil, []*types.T{fx.c.Int()})
		}
		for _, e := range b.Preds {
			want, err = Join(fx.c, want, fx.res.Out[e.From])
			if err != nil {
				t.Fatal(err)
			}
		}
		if !want.Equal(fx.res.In[id]) {
			t.Errorf("block %d: in = %v, want join %v", id, fx.res.In[id], want)
		}
	}

	if fx.d.Len() != 0 {
		t.Errorf("diags = %v, want none", fx.d.Items())
	}
}

func TestAnalyze_StackHeightMismatch(t *testing.T) {
	m := &ir.Method{
		Owner: "p.C", Name: "f", Desc: "(I)V", Flags: ir.AccStatic, MaxLocals: 1,
		Ops: []ir.Op{
			reg(0, ir.LOAD, "I", 0),
			jump(1, ir.JCND, ir.EQ, 4),
			push(2, "I", int64(1)),
			makeOp(3, ir.NOP, ""),
			makeOp(4, ir.RETURN, "V"),
		},
	}
	_, err := analyze(t, m)
	if !diag.IsFatal(err) {
		t.Fatalf("err = %v, want fatal", err)
	}
}

func TestAnalyze_Underflow(t *testing.T) {
	m := &ir.Method{
		Owner: "p.C", Name: "f", Desc: "()V", Flags: ir.AccStatic,
		Ops: []ir.Op{makeOp(0, ir.POP, ""), makeOp(1, ir.RETURN, "V")},
	}
	_, err := analyze(t, m, []*types.T{}...)
	if !diag.IsFatal(err) {
		t.Fatalf("err = %v, want fatal", err)
	}
}

func TestAnalyze_HandlerFrame(t *testing.T) {
	m := &ir.Method{
		Owner: "p.C", Name: "f", Desc: "(I)Ljava/lang/Object;", Flags: ir.AccStatic, MaxLocals: 3,
		Ops: []ir.Op{
			push(0, "Ljava/lang/String;", "s"),
			reg(1, ir.STORE, "A", 1),
			reg(2, ir.LOAD, "A", 1),
			makeOp(3, ir.RETURN, "A"),
			reg(4, ir.STORE, "A", 2),
			reg(5, ir.LOAD, "A", 1),
			makeOp(6, ir.RETURN, "A"),
		},
		Handlers: []ir.Handler{{Start: 0, End: 4, Handler: 4, Catch: "java.lang.Exception"}},
	}
	fx, err := analyze(t, m)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	h := fx.res.In[fx.g.BlockOf(4)]
	if len(h.Stack) != 1 || h.Stack[0] != fx.c.T("java.lang.Exception") {
		t.Errorf("handler stack = %v, want [java.lang.Exception]", h.Stack)
	}
	if h.Regs[1] != fx.c.StringT() {
		t.Errorf("handler r1 = %v, want String", h.Regs[1])
	}
}

func TestAnalyze_ConflictingRegister(t *testing.T) {
	m := &ir.Method{
		Owner: "p.C", Name: "f", Desc: "(I)V", Flags: ir.AccStatic, MaxLocals: 2,
		Ops: []ir.Op{
			reg(0, ir.LOAD, "I", 0),
			jump(1, ir.JCND, ir.EQ, 5),
			push(2, "I", int64(7)),
			reg(3, ir.STORE, "I", 1),
			jump(4, ir.GOTO, 0, 7),
			push(5, "Ljava/lang/String;", "x"),
			reg(6, ir.STORE, "A", 1),
			reg(7, ir.LOAD, "I", 1),
			makeOp(8, ir.POP, ""),
			makeOp(9, ir.RETURN, "V"),
		},
	}
	fx, err := analyze(t, m)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	join := fx.res.In[fx.g.BlockOf(7)]
	if !join.Bad[1] {
		t.Errorf("r1 at join = %v, want bad", join)
	}
	if got := fx.d.Count(diag.TypeInference); got != 1 {
		t.Errorf("type inference diags = %d, want 1", got)
	}
}

func TestAnalyze_SubroutineUnsupported(t *testing.T) {
	m := &ir.Method{
		Owner: "p.C", Name: "f", Desc: "()V", Flags: ir.AccStatic, MaxLocals: 1,
		Ops: []ir.Op{
			jump(0, ir.JSR, 0, 2),
			makeOp(1, ir.RETURN, "V"),
			reg(2, ir.STORE, "A", 0),
			reg(3, ir.RET, "", 0),
		},
	}
	fx, err := analyze(t, m, []*types.T{}...)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !fx.res.Unsupported || fx.d.Count(diag.Unsupported) != 1 {
		t.Errorf("unsupported = %v diags = %v", fx.res.Unsupported, fx.d.Items())
	}
}

func TestShuffle(t *testing.T) {
	narrow := func(string) bool { return false }
	wide := func(s string) bool { return s == "J" }

	tests := []struct {
		code ir.Code
		in   []string
		w    func(string) bool
		want []string
	}{
		{ir.DUP, []string{"a"}, narrow, []string{"a", "a"}},
		{ir.DUP_X1, []string{"b", "a"}, narrow, []string{"a", "b", "a"}},
		{ir.DUP_X2, []string{"c", "b", "a"}, narrow, []string{"a", "c", "b", "a"}},
		{ir.DUP_X2, []string{"J", "a"}, wide, []string{"a", "J", "a"}},
		{ir.DUP2, []string{"b", "a"}, narrow, []string{"b", "a", "b", "a"}},
		{ir.DUP2, []string{"J"}, wide, []string{"J", "J"}},
		{ir.DUP2_X1, []string{"c", "b", "a"}, narrow, []string{"b", "a", "c", "b", "a"}},
		{ir.DUP2_X1, []string{"b", "J"}, wide, []string{"J", "b", "J"}},
		{ir.DUP2_X2, []string{"d", "c", "b", "a"}, narrow, []string{"b", "a", "d", "c", "b", "a"}},
		{ir.DUP2_X2, []string{"J", "J"}, wide, []string{"J", "J", "J"}},
		{ir.POP2, []string{"x", "J"}, wide, []string{"x"}},
		{ir.SWAP, []string{"b", "a"}, narrow, []string{"a", "b"}},
	}
	for _, tt := range tests {
		got, err := Shuffle(tt.in, tt.code, tt.w)
		if err != nil {
			t.Errorf("%s %v: %v", tt.code, tt.in, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("%s %v = %v, want %v", tt.code, tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s %v = %v, want %v", tt.code, tt.in, got, tt.want)
				break
			}
		}
	}

	if _, err := Shuffle([]string{"a"}, ir.DUP_X1, narrow); err == nil {
		t.Error("DUP_X1 on one element should underflow")
	}
}

func TestStep_Invoke(t *testing.T) {
	c := types.NewCache(nil)
	f := NewFrame(1)
	f.Push(c.StringT())
	f.Push(c.Int())
	op := ir.Op{Code: ir.INVOKE, Invoke: ir.Virtual, Ref: &ir.Ref{Owner: "java.lang.String", Name: "charAt", Desc: "(I)C"}}
	if err := Step(c, f, op); err != nil {
		t.Fatal(err)
	}
	if len(f.Stack) != 1 || f.Stack[0] != c.Prim(types.Char) {
		t.Errorf("stack = %v, want [char]", f.Stack)
	}
}

func TestJoin_ConflictStaysBad(t *testing.T) {
	c := types.NewCache(nil)
	frame := func(r *types.T) *Frame {
		f := NewFrame(1)
		f.Regs[0] = r
		return f
	}

	// boolean, boolean, float joined in either order leaves the register bad.
	ab, err := Join(c, frame(c.Boolean()), frame(c.Boolean()))
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	left, err := Join(c, ab, frame(c.Float()))
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	bf, err := Join(c, frame(c.Boolean()), frame(c.Float()))
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	right, err := Join(c, frame(c.Boolean()), bf)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !left.Bad[0] || !right.Bad[0] {
		t.Errorf("bad = %v, %v, want both true", left.Bad[0], right.Bad[0])
	}
	if !left.Equal(right) {
		t.Errorf("join order matters: %v vs %v", left, right)
	}
}
