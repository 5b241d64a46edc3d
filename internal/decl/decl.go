// Package decl holds the decompilation unit: the session registry of type,
// method and field declarations and the type cache they share.
package decl

import (
	"sort"
	"sync"

	"github.com/nikandfor/errors"

	"decaf/internal/ast"
	"decaf/internal/cfg"
	"decaf/internal/diag"
	"decaf/internal/ir"
	"decaf/internal/structure"
	"decaf/internal/types"
)

// DU is a decompilation unit. It maps class names to type declarations, owns
// the type cache and answers super type queries for it. A DU only grows.
type DU struct {
	mu    sync.RWMutex
	cache *types.Cache
	tds   map[string]*TD
	order []string
}

// NewDU creates an empty decompilation unit.
func NewDU() *DU {
	du := &DU{tds: make(map[string]*TD)}
	du.cache = types.NewCache(du)
	return du
}

// Cache returns the type cache of the unit.
func (du *DU) Cache() *types.Cache { return du.cache }

// T returns the interned type for a class or primitive name.
func (du *DU) T(name string) *types.T { return du.cache.T(name) }

// DescT returns the interned type for a descriptor.
func (du *DU) DescT(desc string) (*types.T, error) { return du.cache.DescT(desc) }

// Hierarchy implements types.Hierarchy from the declarations read so far,
// falling back to the well-known platform classes.
func (du *DU) Hierarchy(name string) (super string, ifaces []string, iface bool, ok bool) {
	du.mu.RLock()
	td := du.tds[name]
	du.mu.RUnlock()
	if td != nil {
		c := td.Class
		return c.Super, c.Interfaces, c.Flags.Has(ir.AccInterface), true
	}
	if p, ok := platform[name]; ok {
		return p.super, p.ifaces, p.iface, true
	}
	return "", nil, false, false
}

// Add builds the declarations of a class and registers it. Adding a name
// twice is an error. A class whose declarations cannot be built is not
// registered.
func (du *DU) Add(c *ir.Class) (*TD, error) {
	if du.TD(c.Name) != nil {
		return nil, errors.New("duplicate class %v", c.Name)
	}

	td := &TD{DU: du, Class: c, Name: c.Name}
	if err := td.build(); err != nil {
		return nil, errors.Wrap(err, "class %v", c.Name)
	}

	du.mu.Lock()
	defer du.mu.Unlock()
	if _, dup := du.tds[c.Name]; dup {
		return nil, errors.New("duplicate class %v", c.Name)
	}
	du.tds[c.Name] = td
	du.order = append(du.order, c.Name)

	return td, nil
}

// TD returns the declaration of a class, or nil.
func (du *DU) TD(name string) *TD {
	du.mu.RLock()
	defer du.mu.RUnlock()
	return du.tds[name]
}

// TDs returns all declarations in the order they were added.
func (du *DU) TDs() []*TD {
	du.mu.RLock()
	defer du.mu.RUnlock()
	out := make([]*TD, 0, len(du.order))
	for _, n := range du.order {
		out = append(out, du.tds[n])
	}
	return out
}

// Names returns all class names, sorted.
func (du *DU) Names() []string {
	du.mu.RLock()
	defer du.mu.RUnlock()
	out := append([]string(nil), du.order...)
	sort.Strings(out)
	return out
}

// TD is a type declaration: one class, interface or enum.
type TD struct {
	DU    *DU
	Class *ir.Class
	Name  string
	T     *types.T
	Sig   *types.ClassSig // nil without a generic signature

	Fields  []*FD
	Methods []*MD

	Diags diag.Diags
	Err   error // fatal error in strict mode
}

// FD is a field declaration.
type FD struct {
	TD    *TD
	Field *ir.Field
	T     *types.T
}

// MD is a method declaration. It owns its control flow graph and, after
// decompilation, its body.
type MD struct {
	TD     *TD
	Method *ir.Method
	Sig    *types.MethodSig // descriptor types, or generic signature when present
	Desc   *types.MethodSig // erased descriptor types

	CFG    *cfg.Graph
	Tree   *structure.Tree // nil when the body is flat
	Params []*ast.Variable
	Body   *ast.Block
	Diags  *diag.Diags
	Err    error // fatal error of this method
}

// ID returns "Owner.name(desc)".
func (md *MD) ID() string { return md.Method.ID() }

func (td *TD) build() error {
	c := td.DU.cache
	td.T = c.T(td.Name)
	if td.Class.Signature != "" {
		if sig, err := c.ClassSignature(td.Class.Signature); err == nil {
			td.Sig = sig
		}
	}
	for _, f := range td.Class.Fields {
		t, err := fieldType(c, f)
		if err != nil {
			return errors.Wrap(err, "field %v", f.Name)
		}
		td.Fields = append(td.Fields, &FD{TD: td, Field: f, T: t})
	}
	for _, m := range td.Class.Methods {
		if m.Owner == "" {
			m.Owner = td.Name
		}
		desc, err := c.MethodDesc(m.Desc, false)
		if err != nil {
			return errors.Wrap(err, "method %v", m.Name)
		}
		md := &MD{TD: td, Method: m, Sig: desc, Desc: desc, Diags: diag.For(m.ID())}
		if m.Signature != "" {
			if sig, err := c.MethodDesc(m.Signature, true); err == nil && len(sig.Params) == len(desc.Params) {
				md.Sig = sig
			}
		}
		td.Methods = append(td.Methods, md)
	}
	return nil
}

func fieldType(c *types.Cache, f *ir.Field) (*types.T, error) {
	if f.Signature != "" {
		if t, err := c.SigT(f.Signature); err == nil {
			return t, nil
		}
	}
	return c.DescT(f.Desc)
}

// Field returns the field declaration with the given name, or nil.
func (td *TD) Field(name string) *FD {
	for _, f := range td.Fields {
		if f.Field.Name == name {
			return f
		}
	}
	return nil
}

// Method returns the method declaration with the given name and descriptor.
func (td *TD) Method(name, desc string) *MD {
	for _, m := range td.Methods {
		if m.Method.Name == name && m.Method.Desc == desc {
			return m
		}
	}
	return nil
}
