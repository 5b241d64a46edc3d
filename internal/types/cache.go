package types

import (
	"strings"
	"sync"
)

// Well-known class names.
const (
	ObjectName       = "java.lang.Object"
	StringName       = "java.lang.String"
	ClassName        = "java.lang.Class"
	ThrowableName    = "java.lang.Throwable"
	CloneableName    = "java.lang.Cloneable"
	SerializableName = "java.io.Serializable"
)

// Hierarchy supplies super type information for lazily resolved classes.
// ok is false when the class is unknown; it then extends java.lang.Object.
type Hierarchy interface {
	Hierarchy(name string) (super string, ifaces []string, iface bool, ok bool)
}

type arrayKey struct {
	elem *T
	dims int
}

type wildKey struct {
	bound *T
	lower bool
}

type varKey struct {
	name  string
	bound *T
}

// Cache interns every type of one decompilation session. It is safe for
// concurrent use: several type declarations may resolve the same external
// class at the same time.
type Cache struct {
	mu sync.Mutex
	h  Hierarchy

	prims   map[Kind]*T
	classes map[string]*T
	arrays  map[arrayKey]*T
	params  map[string]*T
	vars    map[varKey]*T
	wilds   map[wildKey]*T
	descs   map[string]*T
	null    *T
	clash   *T
}

// NewCache creates an empty type cache. h may be nil.
func NewCache(h Hierarchy) *Cache {
	return &Cache{
		h:       h,
		prims:   make(map[Kind]*T),
		classes: make(map[string]*T),
		arrays:  make(map[arrayKey]*T),
		params:  make(map[string]*T),
		vars:    make(map[varKey]*T),
		wilds:   make(map[wildKey]*T),
		descs:   make(map[string]*T),
	}
}

// SetHierarchy installs the hierarchy source. Classes already resolved keep
// their super types.
func (c *Cache) SetHierarchy(h Hierarchy) {
	c.mu.Lock()
	c.h = h
	c.mu.Unlock()
}

// Prim returns the canonical lattice element for the kind set k.
func (c *Cache) Prim(k Kind) *T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.primLocked(k)
}

func (c *Cache) primLocked(k Kind) *T {
	if k == Ref {
		return c.classLocked(ObjectName)
	}
	t, ok := c.prims[k]
	if !ok {
		t = &T{sort: SortPrim, kinds: k, cache: c, resolved: true}
		c.prims[k] = t
	}
	return t
}

func (c *Cache) Int() *T     { return c.Prim(Int) }
func (c *Cache) Long() *T    { return c.Prim(Long) }
func (c *Cache) Float() *T   { return c.Prim(Float) }
func (c *Cache) Double() *T  { return c.Prim(Double) }
func (c *Cache) Boolean() *T { return c.Prim(Boolean) }
func (c *Cache) Void() *T    { return c.Prim(Void) }
func (c *Cache) Object() *T  { return c.T(ObjectName) }
func (c *Cache) StringT() *T { return c.T(StringName) }

// Null returns the type of the null constant, assignable to every reference.
func (c *Cache) Null() *T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.null == nil {
		c.null = &T{sort: SortNull, kinds: Ref, cache: c, resolved: true}
	}
	return c.null
}

// Conflict returns the result of a MergeRead without a common type. It
// absorbs every further MergeRead.
func (c *Cache) Conflict() *T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clash == nil {
		c.clash = &T{sort: SortConflict, cache: c, resolved: true}
	}
	return c.clash
}

// T returns the type for a source-level name: a primitive name ("int"),
// a class name in dotted or slashed form, or either followed by "[]" pairs.
func (c *Cache) T(name string) *T {
	dims := 0
	for strings.HasSuffix(name, "[]") {
		name = name[:len(name)-2]
		dims++
	}
	var base *T
	if k := kindByName(name); k != 0 {
		base = c.Prim(k)
	} else {
		c.mu.Lock()
		base = c.classLocked(strings.ReplaceAll(name, "/", "."))
		c.mu.Unlock()
	}
	if dims > 0 {
		return c.ArrayT(base, dims)
	}
	return base
}

func (c *Cache) classLocked(name string) *T {
	t, ok := c.classes[name]
	if !ok {
		t = &T{sort: SortClass, kinds: Ref, name: name, cache: c}
		c.classes[name] = t
	}
	return t
}

// ArrayT returns the array type with the given element and dimensions.
// An array element is flattened into the dimension count.
func (c *Cache) ArrayT(elem *T, dims int) *T {
	if dims <= 0 {
		return elem
	}
	if elem.sort == SortArray {
		dims += elem.dims
		elem = elem.elem
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	k := arrayKey{elem, dims}
	t, ok := c.arrays[k]
	if !ok {
		t = &T{sort: SortArray, kinds: Ref, elem: elem, dims: dims, cache: c}
		c.arrays[k] = t
	}
	return t
}

// ParamT returns the parameterized type generic<args...>.
func (c *Cache) ParamT(generic *T, args []*T) *T {
	if len(args) == 0 {
		return generic
	}
	var b strings.Builder
	b.WriteString(generic.Name())
	for _, a := range args {
		b.WriteByte('|')
		b.WriteString(a.Name())
	}
	key := b.String()

	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.params[key]
	if !ok {
		t = &T{sort: SortParam, kinds: Ref, generic: generic, args: append([]*T(nil), args...), cache: c, resolved: true}
		c.params[key] = t
	}
	return t
}

// VarT returns the type variable name bounded by super and ifaces.
func (c *Cache) VarT(name string, super *T, ifaces []*T) *T {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := varKey{name, super}
	t, ok := c.vars[k]
	if !ok {
		t = &T{sort: SortVar, kinds: Ref, name: name, super: super, ifaces: ifaces, cache: c, resolved: true}
		c.vars[k] = t
	}
	return t
}

// WildcardT returns "?" (bound nil), "? extends bound" or "? super bound".
func (c *Cache) WildcardT(bound *T, lower bool) *T {
	if bound == nil {
		lower = false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	k := wildKey{bound, lower}
	t, ok := c.wilds[k]
	if !ok {
		t = &T{sort: SortWildcard, kinds: Ref, bound: bound, lower: lower, cache: c, resolved: true}
		c.wilds[k] = t
	}
	return t
}

// resolve attaches super types on first use.
func (c *Cache) resolve(t *T) {
	c.mu.Lock()
	if t.resolved {
		c.mu.Unlock()
		return
	}
	h := c.h
	c.mu.Unlock()

	var (
		super  *T
		ifaces []*T
		iface  bool
	)
	switch t.sort {
	case SortArray:
		super = c.Object()
		ifaces = []*T{c.T(CloneableName), c.T(SerializableName)}
	case SortClass:
		if t.name == ObjectName {
			break
		}
		var (
			superName  string
			ifaceNames []string
			ok         bool
		)
		if h != nil {
			superName, ifaceNames, iface, ok = h.Hierarchy(t.name)
		}
		if !ok || superName == "" {
			superName = ObjectName
		}
		super = c.T(superName)
		for _, n := range ifaceNames {
			ifaces = append(ifaces, c.T(n))
		}
	}

	c.mu.Lock()
	if !t.resolved {
		t.super, t.ifaces, t.iface, t.resolved = super, ifaces, iface, true
	}
	c.mu.Unlock()
}
