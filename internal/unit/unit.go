// Package unit assembles compilation units: it merges nested, local and
// anonymous classes into their top-level class, drops members the compiler
// generated, moves class constants into field initializers and resolves
// imports.
package unit

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"decaf/internal/ast"
	"decaf/internal/decl"
	"decaf/internal/ir"
	"decaf/internal/types"
	"decaf/internal/vars"
)

// Options selects the compiler-generated members that survive.
type Options struct {
	KeepSynthetic    bool
	KeepDefaultCtors bool
}

// Assembler builds compilation units from the declarations of one DU.
type Assembler struct {
	du       *decl.DU
	opts     Options
	nests    map[string]nest
	children map[string][]string
}

// New indexes the class nesting of du. Classes added to du later are not seen.
func New(du *decl.DU, opts Options) *Assembler {
	nests, children := nesting(du)
	return &Assembler{du: du, opts: opts, nests: nests, children: children}
}

// TopLevel returns the declarations that start a compilation unit, sorted by
// name.
func (a *Assembler) TopLevel() []*decl.TD {
	var out []*decl.TD
	for _, td := range a.du.TDs() {
		if _, nested := a.nests[td.Name]; !nested {
			out = append(out, td)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Members returns top followed by every class nested in it, depth first.
func (a *Assembler) Members(top *decl.TD) []*decl.TD {
	out := []*decl.TD{top}
	for _, n := range a.children[top.Name] {
		if td := a.du.TD(n); td != nil {
			out = append(out, a.Members(td)...)
		}
	}
	return out
}

// Assemble builds the compilation unit of top. Method bodies of top and of
// every class nested in it must be final; the assembler edits them in place.
func (a *Assembler) Assemble(ctx context.Context, top *decl.TD) (cu *ast.CU, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "unit", "type", top.Name)
	defer tr.Finish("err", &err)

	if n, nested := a.nests[top.Name]; nested {
		return nil, errors.New("%v is declared inside %v", top.Name, n.outer)
	}

	b := &builder{a: a, c: a.du.Cache(), local: make(map[string]string)}
	td := b.typeDecl(top, top.T.SimpleName(), top.T.SimpleName(), top.Class.Flags, false)
	cu = &ast.CU{Package: top.T.PackageName(), Types: []*ast.TypeDecl{td}}
	b.imports(cu)

	tr.Printw("assembled", "nested", len(b.local)-1, "imports", len(cu.Imports))
	return cu, nil
}

type builder struct {
	a *Assembler
	c *types.Cache

	// local maps classes declared in the unit to their printed names.
	local map[string]string
}

func kindOf(f ir.Flags) ast.TypeKind {
	switch {
	case f.Has(ir.AccAnnotation):
		return ast.AnnotationKind
	case f.Has(ir.AccInterface):
		return ast.InterfaceKind
	case f.Has(ir.AccEnum):
		return ast.EnumKind
	}
	return ast.ClassKind
}

// typeDecl builds the declaration of td. path is the name td is printed
// with inside the unit. The constructors of an inlined anonymous class are
// dropped.
func (b *builder) typeDecl(td *decl.TD, name, path string, flags ir.Flags, inlined bool) *ast.TypeDecl {
	b.local[td.Name] = path
	d := &ast.TypeDecl{Name: name, T: td.T, Kind: kindOf(td.Class.Flags), Flags: flags &^ ir.AccSynthetic}
	b.supers(td, d)

	for _, fd := range td.Fields {
		if b.dropField(fd.Field) {
			continue
		}
		d.Fields = append(d.Fields, &ast.FieldDecl{Name: fd.Field.Name, T: fd.T, Flags: fd.Field.Flags, Init: constant(b.c, fd)})
	}

	var clinit *decl.MD
	for _, md := range td.Methods {
		m := md.Method
		switch {
		case m.IsInitializer():
			clinit = md
		case inlined && m.IsConstructor():
		case b.dropMethod(td, d, m):
		default:
			d.Methods = append(d.Methods, b.method(td, d, md))
		}
	}
	b.staticInit(td, d, clinit)
	if !b.a.opts.KeepDefaultCtors {
		b.dropDefaultCtor(d)
	}
	if !b.a.opts.KeepSynthetic {
		b.rewriteSynthetic(td, d)
	}

	for _, child := range b.a.children[td.Name] {
		n := b.a.nests[child]
		ctd := b.a.du.TD(child)
		if n.kind == anonymous && b.inline(d, ctd, path) {
			continue
		}
		cname := n.name
		if n.kind == anonymous {
			cname = "$" + child[strings.LastIndexByte(child, '$')+1:]
		}
		d.Types = append(d.Types, b.typeDecl(ctd, cname, path+"."+cname, n.flags, false))
	}
	return d
}

func (b *builder) supers(td *decl.TD, d *ast.TypeDecl) {
	var super *types.T
	var ifaces []*types.T
	if td.Sig != nil {
		d.TypeParams = td.Sig.TypeParams
		super, ifaces = td.Sig.Super, td.Sig.Interfaces
	} else {
		if td.Class.Super != "" {
			super = b.c.T(td.Class.Super)
		}
		for _, n := range td.Class.Interfaces {
			ifaces = append(ifaces, b.c.T(n))
		}
	}

	switch d.Kind {
	case ast.InterfaceKind, ast.EnumKind:
		super = nil
	case ast.AnnotationKind:
		super = nil
		var keep []*types.T
		for _, t := range ifaces {
			if t.Raw().Name() != "java.lang.annotation.Annotation" {
				keep = append(keep, t)
			}
		}
		ifaces = keep
	}
	if super != nil && super.Raw().Name() == types.ObjectName {
		super = nil
	}
	d.Super, d.Interfaces = super, ifaces
}

func (b *builder) dropField(f *ir.Field) bool {
	if b.a.opts.KeepSynthetic {
		return false
	}
	return f.Flags.Has(ir.AccSynthetic) || syntheticField.MatchString(f.Name)
}

func (b *builder) dropMethod(td *decl.TD, d *ast.TypeDecl, m *ir.Method) bool {
	if b.a.opts.KeepSynthetic {
		return false
	}
	// Other bodies still call lambda bodies and accessors.
	if keptSynthetic.MatchString(m.Name) {
		return false
	}
	if m.Flags.Has(ir.AccSynthetic) || m.Flags.Has(ir.AccBridge) {
		return true
	}
	if d.Kind == ast.EnumKind && m.IsStatic() {
		self := td.T.Desc()
		return m.Name == "values" && m.Desc == "()["+self ||
			m.Name == "valueOf" && m.Desc == "(Ljava/lang/String;)"+self
	}
	return false
}

// constant returns the initializer of a field with a constant value.
func constant(c *types.Cache, fd *decl.FD) ast.Expr {
	v := fd.Field.Value
	switch x := v.(type) {
	case nil:
		return nil
	case int:
		v = int64(x)
	case int32:
		v = int64(x)
	case bool:
		v = int64(0)
		if x {
			v = int64(1)
		}
	case float32:
		v = float64(x)
	}
	return &ast.Literal{T: fd.T, Value: v}
}

func (b *builder) method(td *decl.TD, d *ast.TypeDecl, md *decl.MD) *ast.MethodDecl {
	m := md.Method
	out := &ast.MethodDecl{
		Name:       m.Name,
		Flags:      m.Flags &^ (ir.AccSynthetic | ir.AccBridge),
		TypeParams: md.Sig.TypeParams,
		Return:     md.Sig.Return,
		Params:     md.Params,
		Throws:     md.Sig.Throws,
		Body:       md.Body,
		Ctor:       m.IsConstructor(),
	}
	if md.Err != nil {
		out.Failed = md.Err.Error()
	}
	if out.Throws == nil {
		for _, n := range m.Throws {
			out.Throws = append(out.Throws, b.c.T(n))
		}
	}
	if out.Params == nil {
		out.Params = paramVars(md.Sig.Params)
	}
	if out.Ctor {
		b.ctor(td, d, out)
	}
	return out
}

// paramVars names the parameters of a method without a decompiled body.
func paramVars(list []*types.T) []*ast.Variable {
	out := make([]*ast.Variable, len(list))
	used := make(map[string]int)
	for i, t := range list {
		base := vars.NameFor(t)
		name := base
		if n := used[base]; n > 0 {
			name = base + strconv.Itoa(n+1)
		}
		used[base]++
		out[i] = &ast.Variable{Name: name, T: t, Param: true}
	}
	return out
}
