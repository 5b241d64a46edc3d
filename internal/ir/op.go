// Package ir defines the canonical operation list handed over by a bytecode
// adapter (class file, dex, smali). Operations follow the stack discipline of
// the class-file VM; register-based input is lowered to the same codes.
package ir

import (
	"fmt"
	"strings"
)

// Code is an operation code.
type Code uint8

const (
	NOP Code = iota
	PUSH
	LOAD
	STORE
	INC
	ADD
	SUB
	MUL
	DIV
	REM
	AND
	OR
	XOR
	SHL
	SHR
	USHR
	NEG
	CMP
	CONVERT
	DUP
	DUP_X1
	DUP_X2
	DUP2
	DUP2_X1
	DUP2_X2
	POP
	POP2
	SWAP
	GET
	PUT
	INVOKE
	NEW
	NEWARRAY
	ARRAYLENGTH
	ALOAD
	ASTORE
	CHECKCAST
	INSTANCEOF
	THROW
	RETURN
	GOTO
	JCND
	JCMP
	SWITCH
	MONITOR
	JSR
	RET

	numCodes
)

var codeNames = [numCodes]string{
	"NOP", "PUSH", "LOAD", "STORE", "INC", "ADD", "SUB", "MUL", "DIV", "REM",
	"AND", "OR", "XOR", "SHL", "SHR", "USHR", "NEG", "CMP", "CONVERT",
	"DUP", "DUP_X1", "DUP_X2", "DUP2", "DUP2_X1", "DUP2_X2", "POP", "POP2", "SWAP",
	"GET", "PUT", "INVOKE", "NEW", "NEWARRAY", "ARRAYLENGTH", "ALOAD", "ASTORE",
	"CHECKCAST", "INSTANCEOF", "THROW", "RETURN", "GOTO", "JCND", "JCMP", "SWITCH",
	"MONITOR", "JSR", "RET",
}

func (c Code) String() string {
	if c < numCodes {
		return codeNames[c]
	}
	return fmt.Sprintf("Code(%d)", uint8(c))
}

// ParseCode returns the code with the given name, case-insensitively.
func ParseCode(s string) (Code, bool) {
	s = strings.ToUpper(s)
	for i, n := range codeNames {
		if n == s {
			return Code(i), true
		}
	}
	return 0, false
}

// IsArith reports whether c is a binary arithmetic or bitwise operation.
func (c Code) IsArith() bool { return c >= ADD && c <= USHR }

// Cond is a comparison operator of JCND and JCMP.
type Cond uint8

const (
	EQ Cond = iota
	NE
	LT
	GE
	GT
	LE
)

var condNames = [...]string{"EQ", "NE", "LT", "GE", "GT", "LE"}

func (c Cond) String() string {
	if int(c) < len(condNames) {
		return condNames[c]
	}
	return fmt.Sprintf("Cond(%d)", uint8(c))
}

// ParseCond returns the condition with the given name.
func ParseCond(s string) (Cond, bool) {
	s = strings.ToUpper(s)
	for i, n := range condNames {
		if n == s {
			return Cond(i), true
		}
	}
	return 0, false
}

// Negate returns the complementary condition.
func (c Cond) Negate() Cond {
	switch c {
	case EQ:
		return NE
	case NE:
		return EQ
	case LT:
		return GE
	case GE:
		return LT
	case GT:
		return LE
	}
	return GT
}

// InvokeKind distinguishes INVOKE dispatch modes.
type InvokeKind uint8

const (
	Virtual InvokeKind = iota
	Special
	Static
	Interface
	Dynamic
)

var invokeNames = [...]string{"virtual", "special", "static", "interface", "dynamic"}

func (k InvokeKind) String() string {
	if int(k) < len(invokeNames) {
		return invokeNames[k]
	}
	return fmt.Sprintf("InvokeKind(%d)", uint8(k))
}

// ParseInvokeKind returns the invoke kind with the given name.
func ParseInvokeKind(s string) (InvokeKind, bool) {
	s = strings.ToLower(s)
	for i, n := range invokeNames {
		if n == s {
			return InvokeKind(i), true
		}
	}
	return 0, false
}

// Ref names a field or method.
type Ref struct {
	Owner string // dotted class name
	Name  string
	Desc  string
}

func (r *Ref) String() string {
	if r == nil {
		return "<nil>"
	}
	return r.Owner + "." + r.Name + r.Desc
}

// Op is one decoded operation.
type Op struct {
	PC   int
	Line int // source line, 0 if unknown
	Code Code

	// Type is the descriptor of the operand type: PUSH constant, LOAD/STORE,
	// arithmetic, CONVERT target, NEW/CHECKCAST/INSTANCEOF class, NEWARRAY
	// array descriptor, ALOAD/ASTORE element, RETURN value ("V" or empty for
	// void).
	Type string
	From string // CONVERT source type descriptor

	Reg   int // LOAD, STORE, INC
	Value any // PUSH constant (int64, float64, string, nil, ClassConst); INC delta

	Cond   Cond // JCND, JCMP
	Target int  // GOTO, JCND, JCMP, JSR target PC

	Keys    []int // SWITCH case keys
	Targets []int // SWITCH case targets, parallel to Keys
	Default int   // SWITCH default target

	Ref     *Ref       // GET, PUT, INVOKE
	Static  bool       // GET, PUT
	Invoke  InvokeKind // INVOKE
	Dims    int        // NEWARRAY dimension count (0 means 1)
	Enter   bool       // MONITOR: enter or exit
	Greater bool       // CMP: NaN compares greater (fcmpg/dcmpg)
}

// ClassConst is a PUSH value for class literals (ldc of a class).
type ClassConst string

func (op Op) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%4d: %s", op.PC, op.Code)
	switch op.Code {
	case PUSH:
		fmt.Fprintf(&b, " %s %v", op.Type, formatValue(op.Value))
	case LOAD, STORE:
		fmt.Fprintf(&b, " %s r%d", op.Type, op.Reg)
	case INC:
		fmt.Fprintf(&b, " r%d %v", op.Reg, op.Value)
	case CONVERT:
		fmt.Fprintf(&b, " %s -> %s", op.From, op.Type)
	case GET, PUT, INVOKE:
		if op.Code == INVOKE {
			fmt.Fprintf(&b, " %s", op.Invoke)
		} else if op.Static {
			b.WriteString(" static")
		}
		fmt.Fprintf(&b, " %s", op.Ref)
	case JCND, JCMP:
		fmt.Fprintf(&b, " %s %s -> %d", op.Cond, op.Type, op.Target)
	case GOTO, JSR:
		fmt.Fprintf(&b, " -> %d", op.Target)
	case SWITCH:
		for i, k := range op.Keys {
			fmt.Fprintf(&b, " %d:%d", k, op.Targets[i])
		}
		fmt.Fprintf(&b, " default:%d", op.Default)
	case MONITOR:
		if op.Enter {
			b.WriteString(" enter")
		} else {
			b.WriteString(" exit")
		}
	default:
		if op.Type != "" {
			fmt.Fprintf(&b, " %s", op.Type)
		}
	}
	return b.String()
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", v)
	case ClassConst:
		return string(v) + ".class"
	}
	return fmt.Sprint(v)
}

// Format renders a method's operations as stable text, one per line,
// annotated with the source line when known.
func Format(ops []Op) string {
	var b strings.Builder
	for _, op := range ops {
		b.WriteString(op.String())
		if op.Line > 0 {
			fmt.Fprintf(&b, "  ; line %d", op.Line)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
