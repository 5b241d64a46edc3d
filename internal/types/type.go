package types

import "strings"

// Sort distinguishes the structural variants of T.
type Sort uint8

const (
	SortPrim Sort = iota
	SortClass
	SortArray
	SortParam
	SortVar
	SortWildcard
	SortNull
	SortConflict
)

// T is an interned type. Only a Cache creates T values.
type T struct {
	sort  Sort
	kinds Kind
	name  string // dotted class name, type variable name
	cache *Cache

	// class and type variable: super type and interfaces (bounds for variables).
	resolved bool
	iface    bool
	super    *T
	ifaces   []*T

	// array: non-array base element and number of dimensions.
	elem *T
	dims int

	// parameterized: raw generic type and its arguments.
	generic *T
	args    []*T

	// wildcard: optional bound and bound direction.
	bound *T
	lower bool
}

func (t *T) Sort() Sort   { return t.sort }
func (t *T) Kinds() Kind  { return t.kinds }
func (t *T) IsPrim() bool { return t.sort == SortPrim }
func (t *T) IsRef() bool  { return t.sort != SortPrim && t.sort != SortConflict }

// IsConflict reports whether t is the result of a failed MergeRead.
func (t *T) IsConflict() bool { return t != nil && t.sort == SortConflict }

// IsKind reports whether t is the concrete primitive k.
func (t *T) IsKind(k Kind) bool { return t.sort == SortPrim && t.kinds == k }

// IsWide reports whether values of t take two slots.
func (t *T) IsWide() bool { return t.sort == SortPrim && t.kinds.IsWide() }

// IsArray reports whether t is an array type.
func (t *T) IsArray() bool { return t.sort == SortArray }

// IsInterface reports whether t is a resolved interface type.
func (t *T) IsInterface() bool {
	t.cache.resolve(t)
	return t.iface
}

// Name returns the fully qualified dotted name ("java.lang.String",
// "int", "int[][]", "java.util.List<java.lang.String>").
func (t *T) Name() string {
	switch t.sort {
	case SortPrim:
		if t.kinds.Single() {
			return t.kinds.String()
		}
		return t.kinds.Preferred().String()
	case SortArray:
		return t.elem.Name() + strings.Repeat("[]", t.dims)
	case SortParam:
		var b strings.Builder
		b.WriteString(t.generic.Name())
		b.WriteByte('<')
		for i, a := range t.args {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(a.Name())
		}
		b.WriteByte('>')
		return b.String()
	case SortWildcard:
		switch {
		case t.bound == nil:
			return "?"
		case t.lower:
			return "? super " + t.bound.Name()
		default:
			return "? extends " + t.bound.Name()
		}
	case SortNull:
		return "null"
	case SortConflict:
		return "conflict"
	}
	return t.name
}

// SimpleName returns the class name without package; nested class names keep
// their '$' separated outer prefix.
func (t *T) SimpleName() string {
	n := t.Raw().name
	if i := strings.LastIndexByte(n, '.'); i >= 0 {
		return n[i+1:]
	}
	return n
}

// PackageName returns the package part of a class name.
func (t *T) PackageName() string {
	n := t.Raw().name
	if i := strings.LastIndexByte(n, '.'); i >= 0 {
		return n[:i]
	}
	return ""
}

// Raw strips type arguments: the generic type of a parameterized type, the
// first bound of a type variable, or t itself.
func (t *T) Raw() *T {
	switch t.sort {
	case SortParam:
		return t.generic
	case SortVar:
		if t.super != nil {
			return t.super.Raw()
		}
		return t.cache.Object()
	}
	return t
}

// Elem returns the non-array base type of an array.
func (t *T) Elem() *T { return t.elem }

// Dims returns the number of array dimensions, 0 for non-arrays.
func (t *T) Dims() int { return t.dims }

// Component returns the type of one array element.
func (t *T) Component() *T {
	if t.sort != SortArray {
		return nil
	}
	if t.dims == 1 {
		return t.elem
	}
	return t.cache.ArrayT(t.elem, t.dims-1)
}

// Generic returns the raw type of a parameterized type.
func (t *T) Generic() *T { return t.generic }

// Args returns the type arguments of a parameterized type.
func (t *T) Args() []*T { return t.args }

// Bound returns a wildcard bound and whether it is a lower (super) bound.
func (t *T) Bound() (*T, bool) { return t.bound, t.lower }

// Super returns the super class, resolving it lazily. Interfaces and
// java.lang.Object return nil; arrays return java.lang.Object.
func (t *T) Super() *T {
	t.cache.resolve(t)
	return t.super
}

// Interfaces returns the directly implemented interfaces, resolving lazily.
func (t *T) Interfaces() []*T {
	t.cache.resolve(t)
	return t.ifaces
}

// Desc returns the JVM descriptor of t (type arguments are erased).
func (t *T) Desc() string {
	switch t.sort {
	case SortPrim:
		if c := descOfKind(t.kinds.Preferred()); c != 0 {
			return string(c)
		}
		return "Ljava/lang/Object;"
	case SortArray:
		return strings.Repeat("[", t.dims) + t.elem.Desc()
	case SortClass:
		return "L" + strings.ReplaceAll(t.name, ".", "/") + ";"
	case SortParam, SortVar:
		return t.Raw().Desc()
	}
	return "Ljava/lang/Object;"
}

func (t *T) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.sort == SortPrim {
		return t.kinds.String()
	}
	return t.Name()
}
