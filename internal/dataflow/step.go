package dataflow

import (
	"github.com/nikandfor/errors"

	"decaf/internal/ir"
	"decaf/internal/types"
)

// Shuffle applies a DUP*, POP*, or SWAP operation to a stack of any element
// type. wide reports whether an element occupies two slots (long, double);
// the two-slot forms pick their variant from it.
func Shuffle[E any](s []E, code ir.Code, wide func(E) bool) ([]E, error) {
	n := len(s)
	top := func(k int) (E, bool) {
		var zero E
		if n < k {
			return zero, false
		}
		return s[n-k], true
	}
	need := func(k int) error {
		if n < k {
			return ErrUnderflow
		}
		return nil
	}
	// insert copies the top m elements below the top d elements.
	insert := func(m, d int) []E {
		r := make([]E, 0, n+m)
		r = append(r, s[:n-d]...)
		r = append(r, s[n-m:]...)
		r = append(r, s[n-d:]...)
		return r
	}

	switch code {
	case ir.DUP:
		if err := need(1); err != nil {
			return nil, err
		}
		return insert(1, 1), nil
	case ir.DUP_X1:
		if err := need(2); err != nil {
			return nil, err
		}
		return insert(1, 2), nil
	case ir.DUP_X2:
		b, ok := top(2)
		if !ok {
			return nil, ErrUnderflow
		}
		if wide(b) {
			return insert(1, 2), nil
		}
		if err := need(3); err != nil {
			return nil, err
		}
		return insert(1, 3), nil
	case ir.DUP2:
		a, ok := top(1)
		if !ok {
			return nil, ErrUnderflow
		}
		if wide(a) {
			return insert(1, 1), nil
		}
		if err := need(2); err != nil {
			return nil, err
		}
		return insert(2, 2), nil
	case ir.DUP2_X1:
		a, ok := top(1)
		if !ok {
			return nil, ErrUnderflow
		}
		if wide(a) {
			if err := need(2); err != nil {
				return nil, err
			}
			return insert(1, 2), nil
		}
		if err := need(3); err != nil {
			return nil, err
		}
		return insert(2, 3), nil
	case ir.DUP2_X2:
		a, ok := top(1)
		if !ok {
			return nil, ErrUnderflow
		}
		if wide(a) {
			b, ok := top(2)
			if !ok {
				return nil, ErrUnderflow
			}
			if wide(b) {
				return insert(1, 2), nil
			}
			if err := need(3); err != nil {
				return nil, err
			}
			return insert(1, 3), nil
		}
		c, ok := top(3)
		if !ok {
			return nil, ErrUnderflow
		}
		if wide(c) {
			return insert(2, 3), nil
		}
		if err := need(4); err != nil {
			return nil, err
		}
		return insert(2, 4), nil
	case ir.POP:
		if err := need(1); err != nil {
			return nil, err
		}
		return s[:n-1], nil
	case ir.POP2:
		a, ok := top(1)
		if !ok {
			return nil, ErrUnderflow
		}
		if wide(a) {
			return s[:n-1], nil
		}
		if err := need(2); err != nil {
			return nil, err
		}
		return s[:n-2], nil
	case ir.SWAP:
		if err := need(2); err != nil {
			return nil, err
		}
		r := append([]E(nil), s...)
		r[n-1], r[n-2] = r[n-2], r[n-1]
		return r, nil
	}
	return nil, errors.New("%s is not a stack shuffle", code)
}

// IsShuffle reports whether code only rearranges the operand stack.
func IsShuffle(code ir.Code) bool {
	return code >= ir.DUP && code <= ir.SWAP
}

func isWide(t *types.T) bool { return t != nil && t.IsWide() }

// Step applies op to f in place. Errors wrapping ErrUnderflow leave f in an
// undefined state; ErrBadRead is informational and f is complete.
func Step(c *types.Cache, f *Frame, op ir.Op) (err error) {
	pop := func() *types.T {
		if err != nil {
			return c.Object()
		}
		t, e := f.Pop()
		if e != nil {
			err = e
			return c.Object()
		}
		return t
	}
	var bad error

	switch op.Code {
	case ir.NOP, ir.GOTO, ir.RET:
	case ir.PUSH:
		f.Push(ConstType(c, op))
	case ir.LOAD:
		want := OpType(c, op.Type)
		t := f.Regs[op.Reg]
		switch {
		case f.Bad[op.Reg] || t == nil:
			bad = ErrBadRead
			t = want
		case want != nil && t.IsPrim() != want.IsPrim():
			bad = ErrBadRead
			t = want
		}
		if t == nil {
			t = c.Object()
		}
		f.Push(t)
	case ir.STORE:
		t := pop()
		f.setReg(op.Reg, t)
	case ir.INC:
		if t := f.Regs[op.Reg]; t == nil || f.Bad[op.Reg] || !t.IsPrim() || !types.AnyInt.Has(t.Kinds()) {
			bad = ErrBadRead
		}
		f.setReg(op.Reg, c.Int())
	case ir.ADD, ir.SUB, ir.MUL, ir.DIV, ir.REM, ir.SHL, ir.SHR, ir.USHR:
		pop()
		pop()
		f.Push(arithType(c, op.Type))
	case ir.AND, ir.OR, ir.XOR:
		r := pop()
		l := pop()
		t := arithType(c, op.Type)
		if t == c.Int() || op.Type == "Z" {
			// Boolean logic keeps its kind set.
			if m := c.MergeRead(l, r); m != nil && m.IsPrim() && types.AnyInt.Has(m.Kinds()) {
				t = m
			}
		}
		f.Push(t)
	case ir.NEG:
		pop()
		f.Push(arithType(c, op.Type))
	case ir.CMP:
		pop()
		pop()
		f.Push(c.Int())
	case ir.CONVERT:
		pop()
		f.Push(arithType(c, op.Type))
	case ir.DUP, ir.DUP_X1, ir.DUP_X2, ir.DUP2, ir.DUP2_X1, ir.DUP2_X2, ir.POP, ir.POP2, ir.SWAP:
		s, e := Shuffle(f.Stack, op.Code, isWide)
		if e != nil {
			return e
		}
		f.Stack = s
	case ir.GET:
		if !op.Static {
			pop()
		}
		f.Push(fieldType(c, op.Ref.Desc))
	case ir.PUT:
		pop()
		if !op.Static {
			pop()
		}
	case ir.INVOKE:
		ms, e := c.MethodDesc(op.Ref.Desc, false)
		if e != nil {
			return errors.Wrap(e, "invoke %s", op.Ref)
		}
		for range ms.Params {
			pop()
		}
		if op.Invoke != ir.Static && op.Invoke != ir.Dynamic {
			pop()
		}
		if ms.Return != c.Void() {
			f.Push(ms.Return)
		}
	case ir.NEW, ir.CHECKCAST:
		if op.Code == ir.CHECKCAST {
			pop()
		}
		f.Push(OpType(c, op.Type))
	case ir.NEWARRAY:
		for i := 0; i < max(op.Dims, 1); i++ {
			pop()
		}
		f.Push(OpType(c, op.Type))
	case ir.ARRAYLENGTH:
		pop()
		f.Push(c.Int())
	case ir.ALOAD:
		pop()
		arr := pop()
		if e := arr.Component(); e != nil {
			f.Push(e)
		} else {
			f.Push(arithType(c, op.Type))
		}
	case ir.ASTORE:
		pop()
		pop()
		pop()
	case ir.INSTANCEOF:
		pop()
		f.Push(c.Boolean())
	case ir.THROW, ir.JCND, ir.SWITCH, ir.MONITOR:
		pop()
	case ir.JCMP:
		pop()
		pop()
	case ir.RETURN:
		if op.Type != "" && op.Type != "V" {
			pop()
		}
	case ir.JSR:
		f.Push(c.Prim(types.ReturnAddr))
	default:
		return errors.New("unknown code %s", op.Code)
	}
	if err != nil {
		return err
	}
	return bad
}

// setReg stores t into register r. A wide value also claims r+1, and a store
// into the upper half of a wide value kills it.
func (f *Frame) setReg(r int, t *types.T) {
	f.Regs[r], f.Bad[r] = t, false
	if isWide(t) && r+1 < len(f.Regs) {
		f.Regs[r+1], f.Bad[r+1] = nil, false
	}
	if r > 0 && isWide(f.Regs[r-1]) {
		f.Regs[r-1] = nil
	}
}

// arithType is the result type of an arithmetic operation on operands of
// the named type. Sub-int operands compute in int.
func arithType(c *types.Cache, s string) *types.T {
	switch s {
	case "J":
		return c.Long()
	case "F":
		return c.Float()
	case "D":
		return c.Double()
	case "B", "C", "S":
		return OpType(c, s)
	case "Z":
		return c.Boolean()
	case "", "I":
		return c.Int()
	}
	return OpType(c, s)
}

func fieldType(c *types.Cache, desc string) *types.T {
	t, err := c.DescT(desc)
	if err != nil {
		return c.Object()
	}
	return t
}
