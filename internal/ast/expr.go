// Package ast defines the Java-like syntax tree handed to the printer:
// expressions built bottom-up from the operand stack, structured statements
// and type declarations.
package ast

import "decaf/internal/types"

// Node is any tree node.
type Node interface{ node() }

// Expr is an expression. Type returns the static type of the value; it may be
// an ambiguous primitive kind set until variable types are settled.
type Expr interface {
	Node
	Type() *types.T
}

// Variable is a source-level variable shared by every reference to it.
type Variable struct {
	Name  string
	T     *types.T
	Param bool
	This  bool
}

// Binary operator precedence, higher binds tighter.
const (
	PrecAssign = iota + 1
	PrecCond
	PrecOrOr
	PrecAndAnd
	PrecOr
	PrecXor
	PrecAnd
	PrecEq
	PrecRel
	PrecShift
	PrecAdd
	PrecMul
	PrecUnary
	PrecPostfix
	PrecPrimary
)

var binaryPrec = map[string]int{
	"||": PrecOrOr, "&&": PrecAndAnd, "|": PrecOr, "^": PrecXor, "&": PrecAnd,
	"==": PrecEq, "!=": PrecEq, "<": PrecRel, ">=": PrecRel, ">": PrecRel, "<=": PrecRel,
	"<<": PrecShift, ">>": PrecShift, ">>>": PrecShift,
	"+": PrecAdd, "-": PrecAdd, "*": PrecMul, "/": PrecMul, "%": PrecMul,
}

type (
	// Literal is a constant. Value is int64, float64, string or nil; integer
	// literals typed boolean or char print as true/false and character literals.
	Literal struct {
		T     *types.T
		Value any
	}

	// ClassLit is T.class.
	ClassLit struct {
		Of *types.T
		T  *types.T // java.lang.Class
	}

	// Local reads a variable.
	Local struct{ V *Variable }

	// Field is Obj.Name, or Owner.Name when Obj is nil.
	Field struct {
		Obj   Expr
		Owner *types.T
		Name  string
		T     *types.T
	}

	Index struct {
		Arr, Idx Expr
		T        *types.T
	}

	Length struct {
		Arr Expr
		T   *types.T
	}

	// Call is a method invocation. Obj is nil for static calls. Super marks
	// super.m(...). Ctor marks an explicit this(...) or super(...) call, in
	// which case Name is "this" or "super".
	Call struct {
		Obj   Expr
		Owner *types.T
		Name  string
		Args  []Expr
		T     *types.T
		Super bool
		Ctor  bool
	}

	// New is an instance creation. Pending is set between NEW and the
	// constructor invocation. Body holds an inlined anonymous class.
	New struct {
		T       *types.T
		Args    []Expr
		Pending bool
		Body    *TypeDecl
	}

	// NewArray creates an array of type T. Init non-nil means an initializer.
	NewArray struct {
		T    *types.T
		Dims []Expr
		Init []Expr
	}

	Binary struct {
		Op   string
		L, R Expr
		T    *types.T
	}

	Unary struct {
		Op string // "-", "!", "~"
		X  Expr
		T  *types.T
	}

	// Cast is (T) X. Implicit casts are widening conversions the printer omits.
	Cast struct {
		T        *types.T
		X        Expr
		Implicit bool
	}

	InstanceOf struct {
		X  Expr
		Of *types.T
		T  *types.T // boolean
	}

	// Cond is C ? Then : Else.
	Cond struct {
		C, Then, Else Expr
		T             *types.T
	}

	// Assign is L Op R with Op "=" or a compound operator such as "+=".
	Assign struct {
		Op   string
		L, R Expr
	}

	// IncDec is X++ / X-- or the prefix forms.
	IncDec struct {
		X      Expr
		Op     string // "++" or "--"
		Prefix bool
	}

	// Cmp is the three-way comparison of long, float or double values.
	Cmp struct {
		L, R    Expr
		Greater bool
		T       *types.T // int
	}
)

func (*Literal) node()    {}
func (*ClassLit) node()   {}
func (*Local) node()      {}
func (*Field) node()      {}
func (*Index) node()      {}
func (*Length) node()     {}
func (*Call) node()       {}
func (*New) node()        {}
func (*NewArray) node()   {}
func (*Binary) node()     {}
func (*Unary) node()      {}
func (*Cast) node()       {}
func (*InstanceOf) node() {}
func (*Cond) node()       {}
func (*Assign) node()     {}
func (*IncDec) node()     {}
func (*Cmp) node()        {}

func (e *Literal) Type() *types.T    { return e.T }
func (e *ClassLit) Type() *types.T   { return e.T }
func (e *Local) Type() *types.T      { return e.V.T }
func (e *Field) Type() *types.T      { return e.T }
func (e *Index) Type() *types.T      { return e.T }
func (e *Length) Type() *types.T     { return e.T }
func (e *Call) Type() *types.T       { return e.T }
func (e *New) Type() *types.T        { return e.T }
func (e *NewArray) Type() *types.T   { return e.T }
func (e *Binary) Type() *types.T     { return e.T }
func (e *Unary) Type() *types.T      { return e.T }
func (e *Cast) Type() *types.T       { return e.T }
func (e *InstanceOf) Type() *types.T { return e.T }
func (e *Cond) Type() *types.T       { return e.T }
func (e *Assign) Type() *types.T     { return e.L.Type() }
func (e *IncDec) Type() *types.T     { return e.X.Type() }
func (e *Cmp) Type() *types.T        { return e.T }

// Prec returns the precedence of e for parenthesization.
func Prec(e Expr) int {
	switch e := e.(type) {
	case *Binary:
		return binaryPrec[e.Op]
	case *Assign:
		return PrecAssign
	case *Cond:
		return PrecCond
	case *InstanceOf:
		return PrecRel
	case *Unary:
		return PrecUnary
	case *Cast:
		if e.Implicit {
			return Prec(e.X)
		}
		return PrecUnary
	case *IncDec:
		if e.Prefix {
			return PrecUnary
		}
		return PrecPostfix
	case *Literal:
		if n, ok := e.Value.(int64); ok && n < 0 {
			return PrecUnary
		}
		if f, ok := e.Value.(float64); ok && f < 0 {
			return PrecUnary
		}
	}
	return PrecPrimary
}

// Negate returns the logical negation of a boolean expression, flipping
// relational operators and applying De Morgan's laws.
func Negate(e Expr) Expr {
	switch e := e.(type) {
	case *Unary:
		if e.Op == "!" {
			return e.X
		}
	case *Binary:
		switch e.Op {
		case "==", "!=", "<", ">=", ">", "<=":
			return &Binary{Op: negRel[e.Op], L: e.L, R: e.R, T: e.T}
		case "&&":
			return &Binary{Op: "||", L: Negate(e.L), R: Negate(e.R), T: e.T}
		case "||":
			return &Binary{Op: "&&", L: Negate(e.L), R: Negate(e.R), T: e.T}
		}
	case *Literal:
		if b, ok := e.Value.(int64); ok && e.T != nil && e.T.IsKind(types.Boolean) {
			return &Literal{T: e.T, Value: 1 - b}
		}
	}
	return &Unary{Op: "!", X: e, T: e.Type()}
}

var negRel = map[string]string{"==": "!=", "!=": "==", "<": ">=", ">=": "<", ">": "<=", "<=": ">"}

// SideEffects reports whether evaluating e may change state, so it cannot be
// dropped or duplicated.
func SideEffects(e Expr) bool {
	found := false
	Walk(e, func(n Node) bool {
		switch n.(type) {
		case *Call, *New, *NewArray, *Assign, *IncDec:
			found = true
		}
		return !found
	})
	return found
}

// Uses reports whether e reads or writes v.
func Uses(e Node, v *Variable) bool {
	found := false
	Walk(e, func(n Node) bool {
		if l, ok := n.(*Local); ok && l.V == v {
			found = true
		}
		return !found
	})
	return found
}
