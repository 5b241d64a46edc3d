// Package javasrc prints syntax trees as Java source text.
package javasrc

import (
	"io"
	"strings"

	"github.com/nikandfor/errors"

	"decaf/internal/ast"
	"decaf/internal/ir"
	"decaf/internal/types"
)

const indentUnit = "    "

type printer struct {
	b      strings.Builder
	names  map[string]string
	indent int
}

// Format returns the source text of cu.
func Format(cu *ast.CU) string {
	p := &printer{names: cu.Names}
	p.unit(cu)
	return p.b.String()
}

// Write prints cu to w.
func Write(w io.Writer, cu *ast.CU) error {
	if _, err := io.WriteString(w, Format(cu)); err != nil {
		return errors.Wrap(err, "write unit")
	}
	return nil
}

// Expr returns the source text of e. names maps qualified class names to
// the names to print; it may be nil.
func Expr(e ast.Expr, names map[string]string) string {
	p := &printer{names: names}
	return p.expr(e, 0)
}

// Stmts returns the source text of list, one statement per line.
func Stmts(list []ast.Stmt, names map[string]string) string {
	p := &printer{names: names}
	p.stmts(list)
	return p.b.String()
}

func (p *printer) line(parts ...string) {
	if len(parts) != 0 {
		p.b.WriteString(strings.Repeat(indentUnit, p.indent))
	}
	for _, s := range parts {
		p.b.WriteString(s)
	}
	p.b.WriteByte('\n')
}

func (p *printer) unit(cu *ast.CU) {
	if cu.Package != "" {
		p.line("package ", cu.Package, ";")
		p.line()
	}
	for _, imp := range cu.Imports {
		p.line("import ", imp, ";")
	}
	if len(cu.Imports) > 0 {
		p.line()
	}
	for i, td := range cu.Types {
		if i > 0 {
			p.line()
		}
		p.typeDecl(td)
	}
}

func (p *printer) typeDecl(td *ast.TypeDecl) {
	p.line(p.typeHeader(td), " {")
	p.indent++
	p.members(td)
	p.indent--
	p.line("}")
}

func (p *printer) typeHeader(td *ast.TypeDecl) string {
	var h strings.Builder
	h.WriteString(modifiers(td.Flags, typeMods))
	switch td.Kind {
	case ast.InterfaceKind:
		h.WriteString("interface ")
	case ast.EnumKind:
		h.WriteString("enum ")
	case ast.AnnotationKind:
		h.WriteString("@interface ")
	default:
		h.WriteString("class ")
	}
	h.WriteString(td.Name)
	h.WriteString(p.typeParams(td.TypeParams))
	if td.Super != nil {
		h.WriteString(" extends " + p.typeName(td.Super))
	}
	if len(td.Interfaces) > 0 {
		kw := " implements "
		if td.Kind == ast.InterfaceKind {
			kw = " extends "
		}
		h.WriteString(kw + p.typeList(td.Interfaces))
	}
	return h.String()
}

func (p *printer) typeParams(list []*types.T) string {
	if len(list) == 0 {
		return ""
	}
	parts := make([]string, len(list))
	for i, t := range list {
		parts[i] = t.Name()
		if raw := t.Raw(); raw.Name() != types.ObjectName {
			parts[i] += " extends " + p.typeName(raw)
		}
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

func (p *printer) typeList(list []*types.T) string {
	parts := make([]string, len(list))
	for i, t := range list {
		parts[i] = p.typeName(t)
	}
	return strings.Join(parts, ", ")
}

func (p *printer) members(td *ast.TypeDecl) {
	first := true
	sep := func() {
		if !first {
			p.line()
		}
		first = false
	}

	fields := td.Fields
	if td.Kind == ast.EnumKind {
		var consts []string
		var rest []*ast.FieldDecl
		for _, f := range fields {
			if f.Flags.Has(ir.AccEnum) {
				consts = append(consts, p.enumConst(f))
			} else {
				rest = append(rest, f)
			}
		}
		sep()
		p.line(strings.Join(consts, ", "), ";")
		fields = rest
	}
	if len(fields) > 0 {
		sep()
		for _, f := range fields {
			p.field(td, f)
		}
	}
	for _, m := range td.Methods {
		sep()
		p.method(td, m)
	}
	for _, nt := range td.Types {
		sep()
		p.typeDecl(nt)
	}
}

// enumConst prints an enum constant with its constructor arguments and
// class body.
func (p *printer) enumConst(f *ast.FieldDecl) string {
	s := f.Name
	nw, ok := f.Init.(*ast.New)
	if !ok {
		return s
	}
	if len(nw.Args) > 0 {
		s += p.args(nw.Args)
	}
	if nw.Body != nil {
		s += " " + p.anonymous(nw.Body)
	}
	return s
}

func (p *printer) field(td *ast.TypeDecl, f *ast.FieldDecl) {
	flags := f.Flags
	if td.Kind == ast.InterfaceKind {
		flags &^= ir.AccPublic | ir.AccStatic | ir.AccFinal
	}
	s := modifiers(flags, fieldMods) + p.typeName(f.T) + " " + f.Name
	if f.Init != nil {
		s += " = " + p.expr(f.Init, ast.PrecAssign)
	}
	p.line(s, ";")
}

func (p *printer) method(td *ast.TypeDecl, m *ast.MethodDecl) {
	if m.StaticInit {
		p.line("static {")
		p.body(m)
		p.line("}")
		return
	}

	flags := m.Flags
	if td.Kind == ast.InterfaceKind {
		flags &^= ir.AccPublic | ir.AccAbstract
	}
	var h strings.Builder
	h.WriteString(modifiers(flags, methodMods))
	if td.Kind == ast.InterfaceKind && m.Body != nil && !m.Flags.Has(ir.AccStatic) && !m.Flags.Has(ir.AccPrivate) {
		h.WriteString("default ")
	}
	if tp := p.typeParams(m.TypeParams); tp != "" {
		h.WriteString(tp + " ")
	}
	if m.Ctor {
		h.WriteString(td.Name)
	} else {
		h.WriteString(p.typeName(m.Return) + " " + m.Name)
	}
	h.WriteString(p.params(m))
	if len(m.Throws) > 0 {
		h.WriteString(" throws " + p.typeList(m.Throws))
	}

	if m.Body == nil && m.Failed == "" {
		p.line(h.String(), ";")
		return
	}
	p.line(h.String(), " {")
	p.body(m)
	p.line("}")
}

func (p *printer) params(m *ast.MethodDecl) string {
	parts := make([]string, len(m.Params))
	for i, v := range m.Params {
		t := p.typeName(v.T)
		if i == len(m.Params)-1 && m.Flags.Has(ir.AccVarargs) && strings.HasSuffix(t, "[]") {
			t = strings.TrimSuffix(t, "[]") + "..."
		}
		parts[i] = t + " " + v.Name
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (p *printer) body(m *ast.MethodDecl) {
	p.indent++
	if m.Failed != "" {
		p.line("// decompilation failed: ", m.Failed)
	}
	if m.Body != nil {
		p.stmts(m.Body.Stmts)
	}
	p.indent--
}

// anonymous prints the body of an inlined anonymous class.
func (p *printer) anonymous(td *ast.TypeDecl) string {
	sub := &printer{names: p.names, indent: p.indent + 1}
	sub.members(td)
	return "{\n" + sub.b.String() + strings.Repeat(indentUnit, p.indent) + "}"
}

type modSet uint8

const (
	typeMods modSet = iota
	fieldMods
	methodMods
)

func modifiers(f ir.Flags, set modSet) string {
	var out []string
	add := func(flag ir.Flags, name string) {
		if f.Has(flag) {
			out = append(out, name)
		}
	}
	add(ir.AccPublic, "public")
	add(ir.AccProtected, "protected")
	add(ir.AccPrivate, "private")
	switch set {
	case typeMods:
		if !f.Has(ir.AccInterface) {
			add(ir.AccAbstract, "abstract")
		}
		add(ir.AccStatic, "static")
		if !f.Has(ir.AccEnum) {
			add(ir.AccFinal, "final")
		}
	case fieldMods:
		add(ir.AccStatic, "static")
		add(ir.AccFinal, "final")
		add(ir.AccTransient, "transient")
		add(ir.AccVolatile, "volatile")
	case methodMods:
		add(ir.AccAbstract, "abstract")
		add(ir.AccStatic, "static")
		add(ir.AccFinal, "final")
		add(ir.AccSynchronized, "synchronized")
		add(ir.AccNative, "native")
		add(ir.AccStrict, "strictfp")
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, " ") + " "
}
