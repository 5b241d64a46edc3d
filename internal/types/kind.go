// Package types models JVM-level types for the decompiler: primitives with an
// ambiguous-width kind lattice, class and interface references, arrays, and
// the generic forms (parameterized types, type variables, wildcards).
//
// All types are interned per Cache, so pointer equality is type equality
// within one decompilation session.
package types

import "strings"

// Kind is a bit set of primitive kinds. A concrete primitive has exactly one
// bit set; a set with several bits describes a value whose declared width is
// not yet known (an int literal 1 may be read back as boolean, byte, short,
// char or int).
type Kind uint16

const (
	Boolean Kind = 1 << iota
	Char
	Byte
	Short
	Int
	Float
	Long
	Double
	Void
	Ref
	ReturnAddr
)

const (
	// AnyInt is any integer-like kind of size <= int.
	AnyInt = Boolean | Char | Byte | Short | Int
	// Wide kinds take two register slots.
	Wide = Long | Double
	// Single kinds take one register slot.
	Single = AnyInt | Float | Ref
	// AnyKind is every value kind.
	AnyKind = Single | Wide
)

var kindNames = []struct {
	k    Kind
	name string
	desc byte
}{
	{Int, "int", 'I'},
	{Short, "short", 'S'},
	{Char, "char", 'C'},
	{Byte, "byte", 'B'},
	{Boolean, "boolean", 'Z'},
	{Float, "float", 'F'},
	{Long, "long", 'J'},
	{Double, "double", 'D'},
	{Void, "void", 'V'},
	{Ref, "ref", 0},
	{ReturnAddr, "retaddr", 0},
}

// Has reports whether all kinds of o are contained in k.
func (k Kind) Has(o Kind) bool { return k&o == o }

// Single reports whether exactly one kind bit is set.
func (k Kind) Single() bool { return k != 0 && k&(k-1) == 0 }

// IsWide reports whether the kinds occupy two slots.
func (k Kind) IsWide() bool { return k != 0 && k&^Wide == 0 }

// Preferred picks the kind a declaration should use when the set is
// ambiguous: int before the narrower integer kinds, then float, long, double.
func (k Kind) Preferred() Kind {
	for _, kn := range kindNames {
		if k&kn.k != 0 {
			return kn.k
		}
	}
	return 0
}

func (k Kind) String() string {
	if k == 0 {
		return "none"
	}
	var parts []string
	for _, kn := range kindNames {
		if k&kn.k != 0 {
			parts = append(parts, kn.name)
		}
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// IntConstKinds returns the kinds an int constant can be read back as.
func IntConstKinds(v int64) Kind {
	k := Int
	if v == 0 || v == 1 {
		k |= Boolean
	}
	if v >= -128 && v <= 127 {
		k |= Byte
	}
	if v >= -32768 && v <= 32767 {
		k |= Short
	}
	if v >= 0 && v <= 0xFFFF {
		k |= Char
	}
	return k
}

func kindByDesc(c byte) Kind {
	for _, kn := range kindNames {
		if kn.desc == c && kn.desc != 0 {
			return kn.k
		}
	}
	return 0
}

func kindByName(name string) Kind {
	for _, kn := range kindNames {
		if kn.name == name && kn.desc != 0 {
			return kn.k
		}
	}
	return 0
}

func descOfKind(k Kind) byte {
	for _, kn := range kindNames {
		if kn.k == k {
			return kn.desc
		}
	}
	return 0
}
