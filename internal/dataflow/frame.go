// Package dataflow computes the abstract machine state at every block entry
// and exit: register types and the typed operand stack.
package dataflow

import (
	"fmt"
	"strings"

	"github.com/nikandfor/errors"

	"decaf/internal/ir"
	"decaf/internal/types"
)

var (
	// ErrUnderflow and ErrHeight mark operation lists the stack discipline
	// cannot explain. Analyze reports them as fatal.
	ErrUnderflow = errors.New("operand stack underflow")
	ErrHeight    = errors.New("operand stack heights differ at join")

	// ErrBadRead is returned by Step after reading a register whose type
	// failed to unify. The step itself completes with a fallback type.
	ErrBadRead = errors.New("read of a register without a single type")
)

// Frame is the abstract state at one program point.
type Frame struct {
	Regs  []*types.T
	Bad   []bool // register types failed to unify at a join
	Stack []*types.T
}

// NewFrame returns an empty frame with n registers.
func NewFrame(n int) *Frame {
	return &Frame{Regs: make([]*types.T, n), Bad: make([]bool, n)}
}

func (f *Frame) Clone() *Frame {
	return &Frame{
		Regs:  append([]*types.T(nil), f.Regs...),
		Bad:   append([]bool(nil), f.Bad...),
		Stack: append([]*types.T(nil), f.Stack...),
	}
}

func (f *Frame) Push(t *types.T) { f.Stack = append(f.Stack, t) }

func (f *Frame) Pop() (*types.T, error) {
	if len(f.Stack) == 0 {
		return nil, ErrUnderflow
	}
	t := f.Stack[len(f.Stack)-1]
	f.Stack = f.Stack[:len(f.Stack)-1]
	return t, nil
}

func (f *Frame) popN(n int) error {
	if len(f.Stack) < n {
		return ErrUnderflow
	}
	f.Stack = f.Stack[:len(f.Stack)-n]
	return nil
}

// Equal reports whether two frames hold the same types.
func (f *Frame) Equal(o *Frame) bool {
	if f == nil || o == nil {
		return f == o
	}
	if len(f.Regs) != len(o.Regs) || len(f.Stack) != len(o.Stack) {
		return false
	}
	for i := range f.Regs {
		if f.Regs[i] != o.Regs[i] || f.Bad[i] != o.Bad[i] {
			return false
		}
	}
	for i := range f.Stack {
		if f.Stack[i] != o.Stack[i] {
			return false
		}
	}
	return true
}

func (f *Frame) String() string {
	var b strings.Builder
	b.WriteString("regs[")
	for i, t := range f.Regs {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch {
		case f.Bad[i]:
			b.WriteString("!")
		case t == nil:
			b.WriteString("-")
		default:
			b.WriteString(t.Name())
		}
	}
	b.WriteString("] stack[")
	for i, t := range f.Stack {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t.Name())
	}
	b.WriteByte(']')
	return b.String()
}

// Join merges o into a copy of f slot by slot with MergeRead. Registers that
// fail to unify are marked bad; stack slots fall back to the widened type.
func Join(c *types.Cache, f, o *Frame) (*Frame, error) {
	if f == nil {
		return o.Clone(), nil
	}
	if len(f.Stack) != len(o.Stack) {
		return nil, errors.Wrap(ErrHeight, "%d and %d", len(f.Stack), len(o.Stack))
	}
	r := f.Clone()
	for i := range r.Regs {
		if i >= len(o.Regs) {
			break
		}
		if r.Bad[i] || o.Bad[i] {
			r.Regs[i], r.Bad[i] = nil, true
			continue
		}
		a, b := r.Regs[i], o.Regs[i]
		m := c.MergeRead(a, b)
		if m.IsConflict() {
			r.Regs[i], r.Bad[i] = nil, true
			continue
		}
		r.Regs[i] = m
	}
	for i := range r.Stack {
		r.Stack[i] = c.Widen(r.Stack[i], o.Stack[i])
	}
	return r, nil
}

// OpType returns the type named by an operation's Type field: a primitive
// descriptor letter, "A" for an unspecified reference, a class name or a
// descriptor. It returns nil for an empty string.
func OpType(c *types.Cache, s string) *types.T {
	switch s {
	case "":
		return nil
	case "A":
		return c.Object()
	case "I":
		return c.Int()
	case "J":
		return c.Long()
	case "F":
		return c.Float()
	case "D":
		return c.Double()
	case "Z":
		return c.Boolean()
	case "B":
		return c.Prim(types.Byte)
	case "C":
		return c.Prim(types.Char)
	case "S":
		return c.Prim(types.Short)
	case "V":
		return c.Void()
	}
	t, err := c.RefT(s)
	if err != nil {
		return c.Object()
	}
	return t
}

// ConstType returns the type of a PUSH operand.
func ConstType(c *types.Cache, op ir.Op) *types.T {
	switch v := op.Value.(type) {
	case nil:
		return c.Null()
	case string:
		return c.StringT()
	case ir.ClassConst:
		return c.T(types.ClassName)
	case int64:
		switch op.Type {
		case "J":
			return c.Long()
		case "F":
			return c.Float()
		case "D":
			return c.Double()
		}
		return c.Prim(types.IntConstKinds(v))
	case float64:
		if op.Type == "F" {
			return c.Float()
		}
		return c.Double()
	}
	panic(fmt.Sprintf("pc %d: constant of type %T", op.PC, op.Value))
}
