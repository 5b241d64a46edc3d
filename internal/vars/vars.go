// Package vars maps VM registers to source-level variables.
//
// A register R is a local slot at a program point. A variable V is a named
// source variable valid for PCs in [Start, End). Debug records give names and
// declared types; registers without them get one synthesized variable per
// register and value category, typed by the stores into it.
package vars

import (
	"fmt"
	"sort"

	"decaf/internal/ast"
	"decaf/internal/diag"
	"decaf/internal/ir"
	"decaf/internal/types"
)

// Category groups types a register may hold without being a different
// variable.
type Category uint8

const (
	CatInt Category = iota
	CatLong
	CatFloat
	CatDouble
	CatRef
)

// CategoryOf returns the value category of t.
func CategoryOf(t *types.T) Category {
	if t == nil || t.IsRef() {
		return CatRef
	}
	k := t.Kinds()
	switch {
	case types.AnyInt&k != 0:
		return CatInt
	case k.Has(types.Long):
		return CatLong
	case k.Has(types.Float):
		return CatFloat
	case k.Has(types.Double):
		return CatDouble
	}
	return CatRef
}

// V is one validity range of a variable. Several ranges may share Var.
type V struct {
	Reg        int
	Start, End int
	Var        *ast.Variable
}

type regKey struct {
	reg int
	cat Category
}

// Table holds the variables of one method.
type Table struct {
	c *types.Cache

	debug  map[int][]*V
	synth  map[regKey]*ast.Variable
	stack  map[regKey]*ast.Variable
	this   *ast.Variable
	params []*ast.Variable
	byReg  map[int]*ast.Variable // parameter registers

	// inferred collects the store and use types of variables whose type is
	// not fixed by a declaration.
	inferred map[*ast.Variable][]typeAt
	fixed    map[*ast.Variable]bool
	order    []*ast.Variable
	names    map[string]bool
}

type typeAt struct {
	pc int
	t  *types.T
}

// New creates the variable table of m. this is nil for static methods;
// params are the declared parameter types in order.
func New(c *types.Cache, m *ir.Method, this *types.T, params []*types.T) *Table {
	t := &Table{
		c:        c,
		debug:    make(map[int][]*V),
		synth:    make(map[regKey]*ast.Variable),
		stack:    make(map[regKey]*ast.Variable),
		byReg:    make(map[int]*ast.Variable),
		inferred: make(map[*ast.Variable][]typeAt),
		fixed:    make(map[*ast.Variable]bool),
		names:    make(map[string]bool),
	}

	if this != nil {
		t.this = &ast.Variable{Name: "this", T: this, This: true}
		t.fixed[t.this] = true
		t.byReg[0] = t.this
		t.names["this"] = true
	}

	shared := make(map[string]*ast.Variable)
	for _, lv := range m.Locals {
		if lv.Reg == 0 && t.this != nil && lv.Name == "this" {
			t.debug[0] = append(t.debug[0], &V{Reg: 0, Start: lv.Start, End: lv.End, Var: t.this})
			continue
		}
		typ := t.debugType(lv)
		if typ == nil {
			continue
		}
		key := fmt.Sprintf("%d/%s/%s", lv.Reg, lv.Name, lv.Desc)
		v, ok := shared[key]
		if !ok {
			v = &ast.Variable{Name: Sanitize(lv.Name), T: typ}
			shared[key] = v
			t.fixed[v] = true
			t.names[v.Name] = true
		}
		t.debug[lv.Reg] = append(t.debug[lv.Reg], &V{Reg: lv.Reg, Start: lv.Start, End: lv.End, Var: v})
	}
	for _, list := range t.debug {
		sort.Slice(list, func(i, j int) bool { return list[i].Start < list[j].Start })
	}

	reg := 0
	if this != nil {
		reg = 1
	}
	for _, pt := range params {
		v := t.at(reg, 0, CategoryOf(pt))
		if v == nil {
			v = &ast.Variable{T: pt}
			t.order = append(t.order, v)
		}
		v.Param = true
		t.fixed[v] = true
		t.params = append(t.params, v)
		t.byReg[reg] = v
		reg++
		if pt.IsWide() {
			reg++
		}
	}
	return t
}

func (t *Table) debugType(lv ir.LocalVar) *types.T {
	if lv.Signature != "" {
		if typ, err := t.c.SigT(lv.Signature); err == nil {
			return typ
		}
	}
	typ, err := t.c.DescT(lv.Desc)
	if err != nil {
		return nil
	}
	return typ
}

// at returns the debug variable of reg covering pc with a matching category.
func (t *Table) at(reg, pc int, cat Category) *ast.Variable {
	for _, v := range t.debug[reg] {
		if v.Start <= pc && pc < v.End && CategoryOf(v.Var.T) == cat {
			return v.Var
		}
	}
	return nil
}

// This returns the receiver variable, nil for static methods.
func (t *Table) This() *ast.Variable { return t.this }

// Params returns the parameter variables in declaration order.
func (t *Table) Params() []*ast.Variable { return t.params }

// Load returns the variable read from reg at pc.
func (t *Table) Load(reg, pc int, typ *types.T) *ast.Variable {
	cat := CategoryOf(typ)
	if v := t.at(reg, pc, cat); v != nil {
		return v
	}
	return t.register(reg, cat, pc, nil)
}

// Store returns the variable written by a store to reg at pc, next being the
// PC of the following operation: debug ranges usually start right after the
// store. typ is recorded for declared type inference.
func (t *Table) Store(reg, pc, next int, typ *types.T) *ast.Variable {
	cat := CategoryOf(typ)
	v := t.at(reg, pc, cat)
	if v == nil {
		v = t.at(reg, next, cat)
	}
	if v == nil {
		v = t.register(reg, cat, pc, typ)
	}
	return v
}

func (t *Table) register(reg int, cat Category, pc int, typ *types.T) *ast.Variable {
	if v := t.byReg[reg]; v != nil && CategoryOf(v.T) == cat {
		return v
	}
	k := regKey{reg, cat}
	v, ok := t.synth[k]
	if !ok {
		v = &ast.Variable{}
		t.synth[k] = v
		t.order = append(t.order, v)
	}
	t.Constrain(v, pc, typ)
	return v
}

// Stack returns the variable holding operand stack slot depth across a block
// boundary or a statement.
func (t *Table) Stack(depth int, typ *types.T) *ast.Variable {
	k := regKey{depth, CategoryOf(typ)}
	v, ok := t.stack[k]
	if !ok {
		name := fmt.Sprintf("stack%d", depth)
		for t.names[name] {
			name += "_"
		}
		t.names[name] = true
		v = &ast.Variable{Name: name}
		t.stack[k] = v
		t.order = append(t.order, v)
	}
	return v
}

// Catch returns a fresh exception variable of the given type.
func (t *Table) Catch(typ *types.T) *ast.Variable {
	v := &ast.Variable{T: typ}
	t.order = append(t.order, v)
	return v
}

// Constrain records that v is stored, or used where typ is expected. It has
// no effect on variables with a declared type.
func (t *Table) Constrain(v *ast.Variable, pc int, typ *types.T) {
	if v == nil || typ == nil || t.fixed[v] {
		return
	}
	t.inferred[v] = append(t.inferred[v], typeAt{pc, typ})
}

// Finish settles the declared type of every inferred variable and names the
// unnamed ones. Store types are joined with MergeStore; when that fails the
// variable falls back to the widened join and a type inference diagnostic is
// recorded.
func (t *Table) Finish(d *diag.Diags) {
	for _, v := range t.order {
		if t.fixed[v] {
			continue
		}
		typ := v.T
		for _, ta := range t.inferred[v] {
			if typ == nil {
				typ = ta.t
				continue
			}
			merged := t.c.MergeStore(typ, ta.t)
			if merged == nil {
				merged = t.c.Widen(typ, ta.t)
				if d != nil {
					d.Addf(ta.pc, diag.TypeInference, "variable holds %v and %v, declared %v", typ, ta.t, merged)
				}
			}
			typ = merged
		}
		v.T = t.c.Concrete(typ)
	}
	for _, v := range t.order {
		if v.Name == "" {
			v.Name = t.unique(NameFor(v.T))
		}
	}
}

// Vars returns every variable in creation order.
func (t *Table) Vars() []*ast.Variable { return t.order }

func (t *Table) unique(base string) string {
	if !t.names[base] {
		t.names[base] = true
		return base
	}
	if base == "i" {
		for _, alt := range []string{"j", "k", "m", "n"} {
			if !t.names[alt] {
				t.names[alt] = true
				return alt
			}
		}
	}
	for n := 2; ; n++ {
		name := fmt.Sprintf("%s%d", base, n)
		if !t.names[name] {
			t.names[name] = true
			return name
		}
	}
}
