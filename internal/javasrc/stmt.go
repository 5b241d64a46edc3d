package javasrc

import (
	"strings"

	"decaf/internal/ast"
)

func (p *printer) stmts(list []ast.Stmt) {
	for _, s := range list {
		p.stmt(s, "")
	}
}

// block prints list as the indented body of a compound statement.
func (p *printer) block(b *ast.Block) {
	p.indent++
	if b != nil {
		p.stmts(b.Stmts)
	}
	p.indent--
}

// stmt prints s. prefix goes in front of the first line and carries a
// statement label.
func (p *printer) stmt(s ast.Stmt, prefix string) {
	switch s := s.(type) {
	case *ast.Block:
		p.line(prefix, "{")
		p.block(s)
		p.line("}")
	case *ast.ExprStmt:
		p.line(prefix, p.expr(s.X, 0), ";")
	case *ast.LocalDecl:
		p.line(prefix, p.decl(s), ";")
	case *ast.Return:
		if s.X == nil {
			p.line(prefix, "return;")
		} else {
			p.line(prefix, "return ", p.expr(s.X, 0), ";")
		}
	case *ast.Throw:
		p.line(prefix, "throw ", p.expr(s.X, 0), ";")
	case *ast.If:
		p.ifStmt(s, prefix)
	case *ast.While:
		p.line(prefix, "while (", p.expr(s.Cond, 0), ") {")
		p.block(s.Body)
		p.line("}")
	case *ast.DoWhile:
		p.line(prefix, "do {")
		p.block(s.Body)
		p.line("} while (", p.expr(s.Cond, 0), ");")
	case *ast.For:
		p.line(prefix, "for (", p.forHeader(s), ") {")
		p.block(s.Body)
		p.line("}")
	case *ast.Switch:
		p.switchStmt(s, prefix)
	case *ast.Break:
		p.line(prefix, jumpText("break", s.Label))
	case *ast.Continue:
		p.line(prefix, jumpText("continue", s.Label))
	case *ast.Labeled:
		p.stmt(s.Body, prefix+s.Label+": ")
	case *ast.Goto:
		p.line(prefix, "goto ", s.Label, ";")
	case *ast.Label:
		p.line(prefix, s.Name, ":")
	case *ast.Try:
		p.tryStmt(s, prefix)
	case *ast.Monitor:
		name := "monitorexit"
		if s.Enter {
			name = "monitorenter"
		}
		p.line(prefix, name, "(", p.expr(s.X, 0), ");")
	case *ast.Comment:
		p.line(prefix, "// ", s.Text)
	default:
		p.line(prefix, "/* ? */;")
	}
}

func jumpText(kw, label string) string {
	if label == "" {
		return kw + ";"
	}
	return kw + " " + label + ";"
}

func (p *printer) decl(d *ast.LocalDecl) string {
	s := p.typeName(d.V.T) + " " + d.V.Name
	if d.Init != nil {
		s += " = " + p.expr(d.Init, ast.PrecAssign)
	}
	return s
}

func (p *printer) ifStmt(s *ast.If, prefix string) {
	p.line(prefix, "if (", p.expr(s.Cond, 0), ") {")
	for {
		p.block(s.Then)
		if s.Else == nil {
			break
		}
		if len(s.Else.Stmts) == 1 {
			if next, ok := s.Else.Stmts[0].(*ast.If); ok {
				p.line("} else if (", p.expr(next.Cond, 0), ") {")
				s = next
				continue
			}
		}
		p.line("} else {")
		p.block(s.Else)
		break
	}
	p.line("}")
}

func (p *printer) forHeader(s *ast.For) string {
	var init []string
	for i, st := range s.Init {
		switch st := st.(type) {
		case *ast.LocalDecl:
			if i == 0 {
				init = append(init, p.decl(st))
				continue
			}
			part := st.V.Name
			if st.Init != nil {
				part += " = " + p.expr(st.Init, ast.PrecAssign)
			}
			init = append(init, part)
		case *ast.ExprStmt:
			init = append(init, p.expr(st.X, 0))
		}
	}
	cond := ""
	if s.Cond != nil {
		cond = p.expr(s.Cond, 0)
	}
	upd := make([]string, len(s.Update))
	for i, e := range s.Update {
		upd[i] = p.expr(e, 0)
	}
	return strings.Join(init, ", ") + "; " + cond + "; " + strings.Join(upd, ", ")
}

func (p *printer) switchStmt(s *ast.Switch, prefix string) {
	p.line(prefix, "switch (", p.expr(s.X, 0), ") {")
	p.indent++
	for _, c := range s.Cases {
		for _, k := range c.Keys {
			p.line("case ", p.expr(k, 0), ":")
		}
		if c.Default {
			p.line("default:")
		}
		p.indent++
		p.stmts(c.Body)
		p.indent--
	}
	p.indent--
	p.line("}")
}

func (p *printer) tryStmt(s *ast.Try, prefix string) {
	p.line(prefix, "try {")
	p.block(s.Body)
	for _, c := range s.Catches {
		names := make([]string, len(c.Types))
		for i, t := range c.Types {
			if t == nil {
				names[i] = "Throwable"
			} else {
				names[i] = p.typeName(t)
			}
		}
		if len(names) == 0 {
			names = []string{"Throwable"}
		}
		v := "e"
		if c.V != nil {
			v = c.V.Name
		}
		p.line("} catch (", strings.Join(names, " | "), " ", v, ") {")
		p.block(c.Body)
	}
	if s.Finally != nil {
		p.line("} finally {")
		p.block(s.Finally)
	}
	p.line("}")
}
