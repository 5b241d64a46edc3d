package translate

import (
	"github.com/nikandfor/errors"

	"decaf/internal/ast"
	"decaf/internal/diag"
	"decaf/internal/ir"
	"decaf/internal/types"
)

const (
	builderName = "java.lang.StringBuilder"
	bufferName  = "java.lang.StringBuffer"
)

func (s *state) invoke(op ir.Op) error {
	c := s.t.Cache
	ref := op.Ref

	ms, err := c.MethodDesc(ref.Desc, false)
	if err != nil {
		return &diag.MethodError{Method: s.t.Graph.Name, PC: op.PC, Err: errors.Wrap(err, "invoke %s", ref)}
	}

	args := make([]ast.Expr, len(ms.Params))
	for k := len(args) - 1; k >= 0; k-- {
		args[k] = s.coerce(s.pop().e, ms.Params[k])
		if isBuilder(ref.Owner) && ref.Name == "append" && isStringish(ms.Params[k]) {
			s.t.strs[args[k]] = true
		}
	}

	var recv item
	if op.Invoke != ir.Static && op.Invoke != ir.Dynamic {
		recv = s.pop()
	}
	owner := c.T(ref.Owner)

	var call ast.Expr
	switch {
	case ref.Name == "<init>":
		if nw, ok := recv.e.(*ast.New); ok && nw.Pending {
			nw.Args, nw.Pending = args, false
			if s.find(nw) < 0 {
				s.emit(&ast.ExprStmt{X: nw}, nil)
			}
			return nil
		}
		if isThis(recv.e) {
			name := "super"
			if owner == s.t.Owner {
				name = "this"
			}
			s.emit(&ast.ExprStmt{X: &ast.Call{Owner: owner, Name: name, Args: args, T: c.Void(), Ctor: true}}, nil)
			return nil
		}
		s.t.Diags.Addf(op.PC, diag.Unsupported, "constructor call on %T receiver", recv.e)
		call = &ast.Call{Obj: recv.e, Owner: owner, Name: ref.Name, Args: args, T: c.Void()}
	case op.Invoke == ir.Dynamic:
		if ref.Name == "makeConcatWithConstants" || ref.Name == "makeConcat" {
			s.push(concat(c, args, s.t.strs), s.top())
			return nil
		}
		call = &ast.Call{Name: ref.Name, Args: args, T: ms.Return}
	case op.Invoke == ir.Static:
		call = &ast.Call{Owner: owner, Name: ref.Name, Args: args, T: ms.Return}
	default:
		cl := &ast.Call{Obj: recv.e, Owner: owner, Name: ref.Name, Args: args, T: ms.Return}
		if op.Invoke == ir.Special && isThis(recv.e) && owner != s.t.Owner {
			cl.Super = true
		}
		call = cl
		if e := builderString(c, cl, s.t.strs); e != nil {
			call = e
		}
	}

	if ms.Return == c.Void() {
		s.emit(&ast.ExprStmt{X: call}, nil)
		return nil
	}
	s.push(call, s.top())
	return nil
}

func isThis(e ast.Expr) bool {
	l, ok := e.(*ast.Local)
	return ok && l.V.This
}

func isBuilder(name string) bool { return name == builderName || name == bufferName }

func isStringish(t *types.T) bool {
	return t != nil && (t.Name() == types.StringName || t.Name() == "java.lang.CharSequence")
}

// builderString recognizes new StringBuilder().append(a).append(b).toString()
// and returns the string concatenation a + b, or nil.
func builderString(c *types.Cache, call *ast.Call, strs map[ast.Expr]bool) ast.Expr {
	if call.Name != "toString" || len(call.Args) != 0 || call.Owner == nil || !isBuilder(call.Owner.Name()) {
		return nil
	}

	var parts []ast.Expr
	e := call.Obj
	for {
		app, ok := e.(*ast.Call)
		if !ok || app.Name != "append" || len(app.Args) != 1 || app.Owner != call.Owner {
			break
		}
		parts = append(parts, app.Args[0])
		e = app.Obj
	}

	nw, ok := e.(*ast.New)
	if !ok || nw.Pending || nw.T.Raw() != call.Owner || len(nw.Args) > 1 {
		return nil
	}
	if len(nw.Args) == 1 {
		a := nw.Args[0]
		if v, ok := a.(*ast.Call); ok && v.Name == "valueOf" && v.Obj == nil && len(v.Args) == 1 && v.Owner != nil && v.Owner.Name() == types.StringName {
			a = v.Args[0]
		} else if t := a.Type(); t == nil || t.Name() != types.StringName {
			return nil
		}
		parts = append(parts, a)
	}

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return concat(c, parts, strs)
}

// concat folds parts into a left-associated string concatenation, starting
// with "" when neither of the first two operands is a string.
func concat(c *types.Cache, parts []ast.Expr, strs map[ast.Expr]bool) ast.Expr {
	str := c.StringT()
	isStr := func(e ast.Expr) bool {
		if strs[e] {
			return true
		}
		t := e.Type()
		return t != nil && t.Name() == types.StringName
	}

	if len(parts) == 0 {
		return &ast.Literal{T: str, Value: ""}
	}
	if !isStr(parts[0]) && (len(parts) == 1 || !isStr(parts[1])) {
		parts = append([]ast.Expr{&ast.Literal{T: str, Value: ""}}, parts...)
	}

	var e ast.Expr = parts[0]
	for _, p := range parts[1:] {
		e = &ast.Binary{Op: "+", L: e, R: p, T: str}
	}
	return e
}
