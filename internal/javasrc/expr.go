package javasrc

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"decaf/internal/ast"
	"decaf/internal/types"
)

// typeName returns the source spelling of t, short where the unit imports it.
func (p *printer) typeName(t *types.T) string {
	if t == nil {
		return "Object"
	}
	switch t.Sort() {
	case types.SortPrim:
		return t.Name()
	case types.SortArray:
		return p.typeName(t.Elem()) + strings.Repeat("[]", t.Dims())
	case types.SortParam:
		args := make([]string, len(t.Args()))
		for i, a := range t.Args() {
			args[i] = p.typeName(a)
		}
		return p.typeName(t.Generic()) + "<" + strings.Join(args, ", ") + ">"
	case types.SortWildcard:
		b, lower := t.Bound()
		switch {
		case b == nil:
			return "?"
		case lower:
			return "? super " + p.typeName(b)
		}
		return "? extends " + p.typeName(b)
	case types.SortVar:
		return t.Name()
	case types.SortNull:
		return "Object"
	}
	name := t.Name()
	if short, ok := p.names[name]; ok {
		return short
	}
	return strings.ReplaceAll(name, "$", ".")
}

func (p *printer) expr(e ast.Expr, prec int) string {
	s := p.exprText(e)
	if ast.Prec(e) < prec {
		return "(" + s + ")"
	}
	return s
}

func (p *printer) exprText(e ast.Expr) string {
	switch e := e.(type) {
	case nil:
		return "/* missing */"
	case *ast.Literal:
		return literal(e)
	case *ast.ClassLit:
		return p.typeName(e.Of) + ".class"
	case *ast.Local:
		return e.V.Name
	case *ast.Field:
		if e.Obj == nil {
			return p.typeName(e.Owner) + "." + e.Name
		}
		return p.expr(e.Obj, ast.PrecPrimary) + "." + e.Name
	case *ast.Index:
		return p.expr(e.Arr, ast.PrecPrimary) + "[" + p.expr(e.Idx, 0) + "]"
	case *ast.Length:
		return p.expr(e.Arr, ast.PrecPrimary) + ".length"
	case *ast.Call:
		args := p.args(e.Args)
		switch {
		case e.Ctor:
			return e.Name + args
		case e.Super:
			return "super." + e.Name + args
		case e.Obj == nil:
			return p.typeName(e.Owner) + "." + e.Name + args
		}
		return p.expr(e.Obj, ast.PrecPrimary) + "." + e.Name + args
	case *ast.New:
		s := "new " + p.typeName(e.T) + p.args(e.Args)
		if e.Body != nil {
			s += " " + p.anonymous(e.Body)
		}
		return s
	case *ast.NewArray:
		return p.newArray(e)
	case *ast.Binary:
		prec := ast.Prec(e)
		return p.expr(e.L, prec) + " " + e.Op + " " + p.expr(e.R, prec+1)
	case *ast.Unary:
		x := p.expr(e.X, ast.PrecUnary)
		if e.Op != "!" && e.Op != "~" && strings.HasPrefix(x, e.Op) {
			x = "(" + x + ")"
		}
		return e.Op + x
	case *ast.Cast:
		if e.Implicit {
			return p.exprText(e.X)
		}
		return "(" + p.typeName(e.T) + ") " + p.expr(e.X, ast.PrecUnary)
	case *ast.InstanceOf:
		return p.expr(e.X, ast.PrecRel) + " instanceof " + p.typeName(e.Of)
	case *ast.Cond:
		return p.expr(e.C, ast.PrecOrOr) + " ? " + p.expr(e.Then, ast.PrecCond+1) + " : " + p.expr(e.Else, ast.PrecCond)
	case *ast.Assign:
		return p.expr(e.L, ast.PrecUnary) + " " + e.Op + " " + p.expr(e.R, ast.PrecAssign)
	case *ast.IncDec:
		if e.Prefix {
			return e.Op + p.expr(e.X, ast.PrecUnary)
		}
		return p.expr(e.X, ast.PrecPostfix) + e.Op
	case *ast.Cmp:
		box := "Long"
		if t := e.L.Type(); t != nil {
			switch {
			case t.IsKind(types.Float):
				box = "Float"
			case t.IsKind(types.Double):
				box = "Double"
			}
		}
		return box + ".compare(" + p.expr(e.L, 0) + ", " + p.expr(e.R, 0) + ")"
	}
	return fmt.Sprintf("/* %T */", e)
}

func (p *printer) args(list []ast.Expr) string {
	parts := make([]string, len(list))
	for i, a := range list {
		parts[i] = p.expr(a, ast.PrecAssign)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// newArray prints dimension expressions or an initializer. An initializer
// shorter than a constant length is padded with zero values.
func (p *printer) newArray(e *ast.NewArray) string {
	if e.Init != nil {
		init := e.Init
		if len(e.Dims) == 1 {
			if n, ok := e.Dims[0].(*ast.Literal); ok {
				if k, ok := n.Value.(int64); ok && int(k) > len(init) && k < 1<<16 {
					zero := zeroValue(e.T.Component())
					for len(init) < int(k) {
						init = append(init, zero)
					}
				}
			}
		}
		parts := make([]string, len(init))
		for i, x := range init {
			parts[i] = p.expr(x, ast.PrecAssign)
		}
		return "new " + p.typeName(e.T) + "{" + strings.Join(parts, ", ") + "}"
	}

	var b strings.Builder
	b.WriteString("new ")
	b.WriteString(p.typeName(e.T.Elem()))
	for _, d := range e.Dims {
		b.WriteString("[" + p.expr(d, 0) + "]")
	}
	b.WriteString(strings.Repeat("[]", e.T.Dims()-len(e.Dims)))
	return b.String()
}

func zeroValue(t *types.T) ast.Expr {
	if t == nil || t.IsRef() {
		return &ast.Literal{T: t}
	}
	if t.IsKind(types.Float) || t.IsKind(types.Double) {
		return &ast.Literal{T: t, Value: float64(0)}
	}
	return &ast.Literal{T: t, Value: int64(0)}
}

func literal(e *ast.Literal) string {
	t := e.T
	switch v := e.Value.(type) {
	case nil:
		return "null"
	case string:
		return quote(v)
	case int64:
		switch {
		case t == nil:
		case t.IsKind(types.Boolean):
			return strconv.FormatBool(v != 0)
		case t.IsKind(types.Char):
			return charLit(rune(v))
		case t.IsKind(types.Long):
			return strconv.FormatInt(v, 10) + "L"
		case t.IsKind(types.Float):
			return floatLit(float64(v), 32)
		case t.IsKind(types.Double):
			return floatLit(float64(v), 64)
		}
		return strconv.FormatInt(v, 10)
	case float64:
		if t != nil && t.IsKind(types.Float) {
			return floatLit(v, 32)
		}
		return floatLit(v, 64)
	}
	return fmt.Sprint(e.Value)
}

func floatLit(v float64, bits int) string {
	box, suffix := "Double", ""
	if bits == 32 {
		box, suffix = "Float", "F"
	}
	switch {
	case math.IsNaN(v):
		return box + ".NaN"
	case math.IsInf(v, 1):
		return box + ".POSITIVE_INFINITY"
	case math.IsInf(v, -1):
		return box + ".NEGATIVE_INFINITY"
	}
	s := strconv.FormatFloat(v, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s + suffix
}

func charLit(r rune) string {
	switch r {
	case '\'':
		return `'\''`
	case '"':
		return `'"'`
	}
	return "'" + escape(r) + "'"
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		b.WriteString(escape(r))
	}
	b.WriteByte('"')
	return b.String()
}

func escape(r rune) string {
	switch r {
	case '\\':
		return `\\`
	case '"':
		return `\"`
	case '\n':
		return `\n`
	case '\r':
		return `\r`
	case '\t':
		return `\t`
	case '\b':
		return `\b`
	case '\f':
		return `\f`
	}
	if r < 0x20 || r >= 0x7f && r <= 0xffff {
		return fmt.Sprintf(`\u%04x`, r)
	}
	if r > 0xffff {
		r -= 0x10000
		return fmt.Sprintf(`\u%04x\u%04x`, 0xd800+(r>>10), 0xdc00+(r&0x3ff))
	}
	return string(r)
}
