package ir

import (
	"strings"
	"testing"

	"github.com/nikandfor/errors"
)

func TestBranch_Return(t *testing.T) {
	bi := Branch(Op{Code: RETURN})
	if bi == nil {
		t.Fatal("expected RETURN to end a block")
	}
	if !bi.IsTerm {
		t.Error("expected IsTerm=true")
	}
}

func TestBranch_Cond(t *testing.T) {
	bi := Branch(Op{Code: JCMP, Cond: LT, Target: 20})
	if bi == nil {
		t.Fatal("expected JCMP to end a block")
	}
	if !bi.Cond || len(bi.Targets) != 1 || bi.Targets[0] != 20 {
		t.Errorf("branch = %+v", bi)
	}
}

func TestBranch_Switch(t *testing.T) {
	bi := Branch(Op{Code: SWITCH, Keys: []int{1, 2}, Targets: []int{10, 20}, Default: 30})
	if bi == nil || !bi.Switch {
		t.Fatalf("branch = %+v", bi)
	}
	if len(bi.Targets) != 3 || bi.Targets[2] != 30 {
		t.Errorf("targets = %v, want default last", bi.Targets)
	}
}

func TestBranch_NotTerminator(t *testing.T) {
	for _, c := range []Code{PUSH, LOAD, ADD, INVOKE, DUP} {
		if IsTerminator(Op{Code: c}) {
			t.Errorf("%s should not end a block", c)
		}
	}
}

func TestCondNegate(t *testing.T) {
	for c := EQ; c <= LE; c++ {
		if c.Negate().Negate() != c {
			t.Errorf("%s negated twice = %s", c, c.Negate().Negate())
		}
		if c.Negate() == c {
			t.Errorf("%s negates to itself", c)
		}
	}
}

func TestParseCode(t *testing.T) {
	c, ok := ParseCode("dup_x1")
	if !ok || c != DUP_X1 {
		t.Errorf("ParseCode(dup_x1) = %v, %v", c, ok)
	}
	if _, ok := ParseCode("bogus"); ok {
		t.Error("ParseCode(bogus) should fail")
	}
}

func TestValidate(t *testing.T) {
	good := &Method{
		MaxLocals: 2,
		Ops: []Op{
			{PC: 0, Code: LOAD, Type: "I", Reg: 1},
			{PC: 1, Code: JCND, Cond: EQ, Type: "I", Target: 4},
			{PC: 3, Code: GOTO, Target: 0},
			{PC: 4, Code: RETURN},
		},
		Handlers: []Handler{{Start: 0, End: 4, Handler: 4}},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	bad := []*Method{
		{Ops: []Op{{PC: 0, Code: GOTO, Target: 7}}},
		{Ops: []Op{{PC: 0, Code: INVOKE}}},
		{MaxLocals: 1, Ops: []Op{{PC: 0, Code: LOAD, Reg: 3}}},
		{Ops: []Op{{PC: 2, Code: NOP}, {PC: 1, Code: NOP}}},
		{Ops: []Op{{PC: 0, Code: NOP}, {PC: 1, Code: RETURN}}, Handlers: []Handler{{Start: 0, End: 0, Handler: 1}}},
	}
	for i, m := range bad {
		if err := m.Validate(); !errors.Is(err, ErrCorrupt) {
			t.Errorf("case %d: err = %v, want ErrCorrupt", i, err)
		}
	}
}

func TestFormat(t *testing.T) {
	text := Format([]Op{
		{PC: 0, Code: PUSH, Type: "I", Value: int64(1), Line: 3},
		{PC: 1, Code: INVOKE, Invoke: Static, Ref: &Ref{Owner: "a.B", Name: "f", Desc: "(I)V"}},
	})
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "PUSH I 1") || !strings.Contains(lines[0], "line 3") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "INVOKE static a.B.f(I)V") {
		t.Errorf("line 1 = %q", lines[1])
	}
}
