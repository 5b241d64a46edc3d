package types

// MergeRead joins two types describing the same value read through two access
// paths, or the same register arriving from two predecessors. Primitive kind
// sets intersect; disjoint integer kinds widen to int; references meet at
// their common super type. Conflict is returned when no single type fits (int
// and float, primitive and reference) and absorbs later merges. nil is the
// unset type and the identity.
//
// MergeRead is commutative, associative and MergeRead(a, a) == a.
func (c *Cache) MergeRead(a, b *T) *T {
	switch {
	case a == b:
		return a
	case a == nil:
		return b
	case b == nil:
		return a
	case a.IsConflict():
		return a
	case b.IsConflict():
		return b
	}
	if a.IsPrim() != b.IsPrim() {
		return c.Conflict()
	}
	if a.IsPrim() {
		if k := a.kinds & b.kinds; k != 0 {
			return c.Prim(k)
		}
		if AnyInt.Has(a.kinds) && AnyInt.Has(b.kinds) {
			return c.Prim(Int)
		}
		return c.Conflict()
	}
	return c.commonSuper(a, b)
}

// MergeStore joins a register's declared type a with the type b of a value
// stored into it. The subsuming side decides: for primitives the narrower kind
// set wins (it is more determined), for references the assignable-to type wins.
// nil, the failure sentinel, is returned when neither side subsumes the other;
// callers then fall back to Widen.
func (c *Cache) MergeStore(a, b *T) *T {
	switch {
	case a == b:
		return a
	case a == nil:
		return b
	case b == nil:
		return a
	case a.IsConflict() || b.IsConflict():
		return nil
	}
	if a.IsPrim() != b.IsPrim() {
		return nil
	}
	if a.IsPrim() {
		switch {
		case a.kinds.Has(b.kinds):
			return b
		case b.kinds.Has(a.kinds):
			return a
		}
		return nil
	}
	switch {
	case c.Assignable(a, b):
		return a
	case c.Assignable(b, a):
		return b
	}
	return nil
}

// Widen is the fallback for a failed MergeStore: the MergeRead join, or
// java.lang.Object when even that fails.
func (c *Cache) Widen(a, b *T) *T {
	if t := c.MergeRead(a, b); t != nil && !t.IsConflict() {
		return t
	}
	return c.Object()
}

// Concrete returns the declarable type for t: ambiguous primitive kind sets
// collapse to their preferred kind and the null type becomes Object.
func (c *Cache) Concrete(t *T) *T {
	switch {
	case t == nil, t.sort == SortConflict:
		return c.Object()
	case t.sort == SortPrim && !t.kinds.Single():
		if p := t.kinds.Preferred(); p != 0 {
			return c.Prim(p)
		}
		return c.Object()
	case t.sort == SortNull:
		return c.Object()
	}
	return t
}

var primWidening = map[Kind]Kind{
	Byte:  Byte | Short | Int | Long | Float | Double,
	Short: Short | Int | Long | Float | Double,
	Char:  Char | Int | Long | Float | Double,
	Int:   Int | Long | Float | Double,
	Long:  Long | Float | Double,
	Float: Float | Double,
}

// Assignable reports whether a value of type from may be assigned to a
// variable of type to without a cast.
func (c *Cache) Assignable(to, from *T) bool {
	if to == from {
		return true
	}
	if to == nil || from == nil {
		return false
	}
	if to.IsPrim() || from.IsPrim() {
		if !to.IsPrim() || !from.IsPrim() {
			return false
		}
		if to.kinds.Has(from.kinds) {
			return true
		}
		if from.kinds.Single() {
			return primWidening[from.kinds].Has(to.kinds.Preferred())
		}
		return false
	}
	if from.sort == SortNull {
		return true
	}
	to, from = to.Raw(), from.Raw()
	if to == from || to.name == ObjectName {
		return true
	}
	if from.sort == SortArray {
		if to.sort == SortArray {
			if to.dims == from.dims {
				return to.elem.IsRef() && from.elem.IsRef() && c.Assignable(to.elem, from.elem)
			}
			if to.dims < from.dims && to.elem.IsRef() {
				return c.Assignable(to.elem, c.Object())
			}
			return false
		}
		return to.name == CloneableName || to.name == SerializableName
	}
	if to.sort == SortArray || from.sort != SortClass {
		return false
	}
	seen := make(map[*T]bool)
	var walk func(t *T) bool
	walk = func(t *T) bool {
		if t == nil || seen[t] {
			return false
		}
		seen[t] = true
		if t == to {
			return true
		}
		for _, i := range t.Interfaces() {
			if walk(i.Raw()) {
				return true
			}
		}
		if s := t.Super(); s != nil {
			return walk(s.Raw())
		}
		return false
	}
	return walk(from)
}

// commonSuper returns the least common super type of two references.
func (c *Cache) commonSuper(a, b *T) *T {
	if a.sort == SortNull {
		return b
	}
	if b.sort == SortNull {
		return a
	}
	if a.Raw() == b.Raw() {
		return a.Raw()
	}
	if c.Assignable(a, b) {
		return a
	}
	if c.Assignable(b, a) {
		return b
	}
	if a.sort == SortArray && b.sort == SortArray && a.dims == b.dims && a.elem.IsRef() && b.elem.IsRef() {
		return c.ArrayT(c.commonSuper(a.elem, b.elem), a.dims)
	}
	if a.sort == SortArray || b.sort == SortArray {
		return c.Object()
	}
	chain := make(map[*T]bool)
	for t := a.Raw(); t != nil; t = t.Super() {
		chain[t] = true
	}
	for t := b.Raw(); t != nil; t = t.Super() {
		if chain[t] {
			return t
		}
	}
	return c.Object()
}
