package unit

import (
	"strings"

	"decaf/internal/ast"
	"decaf/internal/decl"
	"decaf/internal/ir"
	"decaf/internal/types"
)

// ctor drops the synthetic parameters and statements of a constructor: the
// name and ordinal of enum constructors, the outer instance of inner
// classes, stores into synthetic fields and an argument-less super() call.
func (b *builder) ctor(td *decl.TD, d *ast.TypeDecl, m *ast.MethodDecl) {
	if b.a.opts.KeepSynthetic {
		return
	}
	switch {
	case d.Kind == ast.EnumKind && len(m.Params) >= 2:
		m.Params = m.Params[2:]
	case len(m.Params) > 0 && hasField(td, outerField.MatchString) && !d.Flags.Has(ir.AccStatic):
		if n, ok := b.a.nests[td.Name]; ok && m.Params[0].T == b.c.T(n.outer) {
			m.Params = m.Params[1:]
		}
	}
	if m.Body == nil {
		return
	}

	var keep []ast.Stmt
	for _, s := range m.Body.Stmts {
		if f, _ := store(s); f != nil && isThis(f.Obj) {
			if fd := td.Field(f.Name); fd != nil && b.dropField(fd.Field) {
				continue
			}
		}
		keep = append(keep, s)
	}
	if len(keep) > 0 {
		if call := superCall(keep[0]); call != nil && (len(call.Args) == 0 || d.Kind == ast.EnumKind) {
			keep = keep[1:]
		}
	}
	m.Body = &ast.Block{Stmts: keep}
}

func hasField(td *decl.TD, match func(string) bool) bool {
	for _, fd := range td.Fields {
		if match(fd.Field.Name) {
			return true
		}
	}
	return false
}

func countFields(td *decl.TD, match func(string) bool) int {
	n := 0
	for _, fd := range td.Fields {
		if match(fd.Field.Name) {
			n++
		}
	}
	return n
}

// store returns the field and value of a plain field assignment statement.
func store(s ast.Stmt) (*ast.Field, ast.Expr) {
	es, ok := s.(*ast.ExprStmt)
	if !ok {
		return nil, nil
	}
	a, ok := es.X.(*ast.Assign)
	if !ok || a.Op != "=" {
		return nil, nil
	}
	f, ok := a.L.(*ast.Field)
	if !ok {
		return nil, nil
	}
	return f, a.R
}

func superCall(s ast.Stmt) *ast.Call {
	es, ok := s.(*ast.ExprStmt)
	if !ok {
		return nil
	}
	c, ok := es.X.(*ast.Call)
	if !ok || !c.Ctor || c.Name != "super" {
		return nil
	}
	return c
}

func isThis(e ast.Expr) bool {
	l, ok := e.(*ast.Local)
	return ok && l.V.This
}

func usesLocals(e ast.Expr) bool {
	found := false
	ast.Walk(e, func(n ast.Node) bool {
		if _, ok := n.(*ast.Local); ok {
			found = true
		}
		return !found
	})
	return found
}

// dropDefaultCtor removes the only constructor when it takes no arguments,
// does nothing and has the visibility the compiler gives a default one.
func (b *builder) dropDefaultCtor(d *ast.TypeDecl) {
	idx := -1
	for i, m := range d.Methods {
		if !m.Ctor {
			continue
		}
		if idx >= 0 {
			return
		}
		idx = i
	}
	if idx < 0 {
		return
	}
	m := d.Methods[idx]
	if len(m.Params) > 0 || m.Failed != "" || m.Body == nil || len(m.Body.Stmts) > 0 {
		return
	}
	const vis = ir.AccPublic | ir.AccProtected | ir.AccPrivate
	if d.Kind != ast.EnumKind && m.Flags&vis != d.Flags&vis {
		return
	}
	d.Methods = append(d.Methods[:idx], d.Methods[idx+1:]...)
}

// staticInit turns the leading stores of the class initializer into field
// initializers and keeps the rest as a static block. Stores into dropped
// synthetic fields disappear.
func (b *builder) staticInit(td *decl.TD, d *ast.TypeDecl, md *decl.MD) {
	if md == nil {
		return
	}
	init := &ast.MethodDecl{Name: md.Method.Name, Flags: ir.AccStatic, StaticInit: true}
	if md.Err != nil || md.Body == nil {
		init.Body = md.Body
		if md.Err != nil {
			init.Failed = md.Err.Error()
		}
		d.Methods = append(d.Methods, init)
		return
	}

	hoist := true
	var rest []ast.Stmt
	for _, s := range md.Body.Stmts {
		if f, rhs := store(s); f != nil && f.Obj == nil && f.Owner == td.T {
			if fd := td.Field(f.Name); fd != nil && b.dropField(fd.Field) {
				continue
			}
			if fd := fieldDecl(d, f.Name); hoist && fd != nil && fd.Init == nil && !usesLocals(rhs) {
				fd.Init = enumConstant(fd, rhs)
				continue
			}
		}
		hoist = false
		rest = append(rest, s)
	}
	if len(rest) > 0 {
		init.Body = &ast.Block{Stmts: rest}
		d.Methods = append(d.Methods, init)
	}
}

func fieldDecl(d *ast.TypeDecl, name string) *ast.FieldDecl {
	for _, f := range d.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// enumConstant strips the name and ordinal arguments from the creation of
// an enum constant.
func enumConstant(fd *ast.FieldDecl, e ast.Expr) ast.Expr {
	nw, ok := e.(*ast.New)
	if !ok || !fd.Flags.Has(ir.AccEnum) || len(nw.Args) < 2 {
		return e
	}
	return &ast.New{T: nw.T, Args: nw.Args[2:], Body: nw.Body}
}

// rewriteSynthetic replaces reads of the outer instance and of captured
// variables in the bodies of a nested class by Outer.this and the captured
// variable names.
func (b *builder) rewriteSynthetic(td *decl.TD, d *ast.TypeDecl) {
	n, nested := b.a.nests[td.Name]
	if !nested {
		return
	}
	outer := b.local[n.outer]
	fn := func(e ast.Expr) ast.Expr {
		f, ok := e.(*ast.Field)
		if !ok || !isThis(f.Obj) {
			return e
		}
		switch {
		case outerField.MatchString(f.Name) && outer != "":
			return &ast.Local{V: &ast.Variable{Name: outer + ".this", T: f.T}}
		case capturedField.MatchString(f.Name):
			return &ast.Local{V: &ast.Variable{Name: strings.TrimPrefix(f.Name, "val$"), T: f.T}}
		}
		return e
	}
	for _, m := range d.Methods {
		if m.Body != nil {
			ast.Rewrite(&m.Body.Stmts, fn)
		}
	}
}

// inline moves an anonymous class into its only instance creation
// expression in d. It reports false when the class is created elsewhere or
// more than once.
func (b *builder) inline(d *ast.TypeDecl, ctd *decl.TD, path string) bool {
	var sites []*ast.New
	ast.Walk(d, func(n ast.Node) bool {
		if nw, ok := n.(*ast.New); ok && nw.T == ctd.T {
			sites = append(sites, nw)
		}
		return true
	})
	if len(sites) != 1 {
		return false
	}
	nw := sites[0]

	args := nw.Args
	if !b.a.opts.KeepSynthetic {
		if hasField(ctd, outerField.MatchString) && len(args) > 0 {
			args = args[1:]
		}
		if k := countFields(ctd, capturedField.MatchString); k <= len(args) {
			args = args[:len(args)-k]
		}
	}

	base := b.c.Object()
	if ctd.Sig != nil {
		base = ctd.Sig.Super
		if len(ctd.Sig.Interfaces) == 1 && base.Raw().Name() == types.ObjectName {
			base = ctd.Sig.Interfaces[0]
		}
	} else {
		if ctd.Class.Super != "" {
			base = b.c.T(ctd.Class.Super)
		}
		if len(ctd.Class.Interfaces) == 1 && base == b.c.Object() {
			base = b.c.T(ctd.Class.Interfaces[0])
		}
	}

	name := "$" + ctd.Name[strings.LastIndexByte(ctd.Name, '$')+1:]
	body := b.typeDecl(ctd, "", path+"."+name, b.a.nests[ctd.Name].flags, true)
	body.Super, body.Interfaces = nil, nil

	nw.T, nw.Args, nw.Body = base, args, body
	return true
}
