package ir

import "github.com/nikandfor/errors"

// Access flags shared by classes, fields and methods.
type Flags uint32

const (
	AccPublic       Flags = 0x0001
	AccPrivate      Flags = 0x0002
	AccProtected    Flags = 0x0004
	AccStatic       Flags = 0x0008
	AccFinal        Flags = 0x0010
	AccSynchronized Flags = 0x0020
	AccVolatile     Flags = 0x0040
	AccBridge       Flags = 0x0040
	AccTransient    Flags = 0x0080
	AccVarargs      Flags = 0x0080
	AccNative       Flags = 0x0100
	AccInterface    Flags = 0x0200
	AccAbstract     Flags = 0x0400
	AccStrict       Flags = 0x0800
	AccSynthetic    Flags = 0x1000
	AccAnnotation   Flags = 0x2000
	AccEnum         Flags = 0x4000
)

func (f Flags) Has(o Flags) bool { return f&o == o }

// Class is the adapter's view of one class, interface or enum.
type Class struct {
	Name       string // dotted, nested classes joined with '$'
	Super      string
	Interfaces []string
	Flags      Flags
	Signature  string // generic class signature, optional
	SourceFile string

	Fields  []*Field
	Methods []*Method

	InnerClasses    []InnerClass
	EnclosingMethod string // "name(desc)" for local and anonymous classes
}

// InnerClass mirrors one entry of the InnerClasses attribute.
type InnerClass struct {
	Inner string
	Outer string // empty for local and anonymous classes
	Name  string // simple name, empty for anonymous classes
	Flags Flags
}

// Field is a field declaration.
type Field struct {
	Name      string
	Desc      string
	Signature string
	Flags     Flags
	Value     any // ConstantValue attribute
}

// Method is a method declaration with its code.
type Method struct {
	Owner     string
	Name      string
	Desc      string
	Signature string
	Flags     Flags
	Throws    []string

	MaxLocals int
	MaxStack  int
	Ops       []Op
	Handlers  []Handler
	Locals    []LocalVar
}

// Handler is one exception table entry. Catch is empty for catch-any
// (finally) handlers.
type Handler struct {
	Start   int // inclusive PC
	End     int // exclusive PC
	Handler int
	Catch   string
}

// LocalVar is one local variable debug record, valid for PCs in [Start, End).
type LocalVar struct {
	Reg       int
	Name      string
	Desc      string
	Signature string
	Start     int
	End       int
}

// ID returns "Owner.name(desc)".
func (m *Method) ID() string { return m.Owner + "." + m.Name + m.Desc }

func (m *Method) IsStatic() bool      { return m.Flags.Has(AccStatic) }
func (m *Method) IsConstructor() bool { return m.Name == "<init>" }
func (m *Method) IsInitializer() bool { return m.Name == "<clinit>" }

// HasCode reports whether the method carries a body. Abstract and native
// methods do not.
func (m *Method) HasCode() bool {
	return !m.Flags.Has(AccAbstract) && !m.Flags.Has(AccNative)
}

// ErrCorrupt marks operation lists that cannot be decompiled at all.
var ErrCorrupt = errors.New("corrupt operation list")

// Validate checks that every operation has the operand data it needs.
// Any failure wraps ErrCorrupt.
func (m *Method) Validate() error {
	pcs := make(map[int]bool, len(m.Ops))
	prev := -1
	for _, op := range m.Ops {
		if op.PC <= prev {
			return errors.Wrap(ErrCorrupt, "pc %d out of order", op.PC)
		}
		prev = op.PC
		pcs[op.PC] = true
	}
	target := func(op Op, pc int) error {
		if !pcs[pc] {
			return errors.Wrap(ErrCorrupt, "pc %d: %s target %d is not an operation", op.PC, op.Code, pc)
		}
		return nil
	}

	for _, op := range m.Ops {
		if op.Code >= numCodes {
			return errors.Wrap(ErrCorrupt, "pc %d: unknown code %d", op.PC, op.Code)
		}
		switch op.Code {
		case GOTO, JCND, JCMP, JSR:
			if err := target(op, op.Target); err != nil {
				return err
			}
		case SWITCH:
			if len(op.Keys) != len(op.Targets) {
				return errors.Wrap(ErrCorrupt, "pc %d: %d keys for %d targets", op.PC, len(op.Keys), len(op.Targets))
			}
			for _, t := range op.Targets {
				if err := target(op, t); err != nil {
					return err
				}
			}
			if err := target(op, op.Default); err != nil {
				return err
			}
		case GET, PUT, INVOKE:
			if op.Ref == nil || op.Ref.Name == "" || op.Ref.Desc == "" {
				return errors.Wrap(ErrCorrupt, "pc %d: %s without member reference", op.PC, op.Code)
			}
		case LOAD, STORE, INC, RET:
			if op.Reg < 0 || (m.MaxLocals > 0 && op.Reg >= m.MaxLocals) {
				return errors.Wrap(ErrCorrupt, "pc %d: register %d out of range", op.PC, op.Reg)
			}
		case NEW, CHECKCAST, INSTANCEOF, NEWARRAY:
			if op.Type == "" {
				return errors.Wrap(ErrCorrupt, "pc %d: %s without type", op.PC, op.Code)
			}
		}
	}

	// prev is the last PC; a range may end past it (end of code).
	for _, h := range m.Handlers {
		if !pcs[h.Start] || !pcs[h.Handler] || h.End <= h.Start || (h.End <= prev && !pcs[h.End]) {
			return errors.Wrap(ErrCorrupt, "handler [%d,%d)->%d out of range", h.Start, h.End, h.Handler)
		}
	}
	return nil
}
