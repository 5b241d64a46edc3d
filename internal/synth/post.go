package synth

import (
	"sort"

	"decaf/internal/ast"
	"decaf/internal/types"
	"decaf/internal/vars"
)

// stripMarks removes the block labels no goto targets.
func stripMarks(stmts []ast.Stmt) []ast.Stmt {
	ast.EachList(&stmts, func(list *[]ast.Stmt) {
		out := (*list)[:0]
		for _, s := range *list {
			if l, ok := s.(*ast.Label); ok && l.Name == "" {
				continue
			}
			out = append(out, s)
		}
		*list = out
	})
	return stmts
}

// simplify rewrites comparisons of booleans against 0 and 1 and gives
// integer literals the type of the variable or operand they meet. Types
// must be settled.
func simplify(stmts []ast.Stmt) []ast.Stmt {
	ast.Rewrite(&stmts, simplifyExpr)
	return stmts
}

func simplifyExpr(e ast.Expr) ast.Expr {
	switch e := e.(type) {
	case *ast.Binary:
		switch e.Op {
		case "==", "!=":
			if isKind(e.L, types.Boolean) {
				if n, ok := intValue(e.R); ok && (n == 0 || n == 1) {
					if (e.Op == "==") == (n == 1) {
						return e.L
					}
					return ast.Negate(e.L)
				}
			}
			fallthrough
		case "<", ">=", ">", "<=":
			e.L, e.R = retype(e.L, e.R), retype(e.R, e.L)
		}
	case *ast.Assign:
		if e.Op == "=" {
			e.R = retype(e.R, e.L)
		}
	}
	return e
}

// retype returns lit typed like other when lit is an integer literal and
// other is a boolean or char.
func retype(lit, other ast.Expr) ast.Expr {
	l, ok := lit.(*ast.Literal)
	if !ok {
		return lit
	}
	n, ok := l.Value.(int64)
	if !ok {
		return lit
	}
	switch {
	case isKind(other, types.Boolean) && (n == 0 || n == 1),
		isKind(other, types.Char) && n >= 0 && n <= 0xffff:
		return &ast.Literal{T: other.Type(), Value: n}
	}
	return lit
}

func isKind(e ast.Expr, k types.Kind) bool {
	t := e.Type()
	return t != nil && t.IsKind(k)
}

func intValue(e ast.Expr) (int64, bool) {
	l, ok := e.(*ast.Literal)
	if !ok {
		return 0, false
	}
	n, ok := l.Value.(int64)
	return n, ok
}

// dropTrailingReturn removes the implicit return at the end of a void
// method.
func dropTrailingReturn(stmts []ast.Stmt, ret *types.T) []ast.Stmt {
	if ret != nil && !ret.IsKind(types.Void) || len(stmts) == 0 {
		return stmts
	}
	if r, ok := stmts[len(stmts)-1].(*ast.Return); ok && r.X == nil {
		return stmts[:len(stmts)-1]
	}
	return stmts
}

type step struct {
	list *[]ast.Stmt
	idx  int
}

// declare places a declaration of every local variable in the innermost
// statement list enclosing all its uses, right before the first of them.
// A plain assignment there becomes the initializer.
func declare(stmts []ast.Stmt, vt *vars.Table) []ast.Stmt {
	uses := make(map[*ast.Variable][][]step)
	skip := make(map[*ast.Variable]bool)
	var order []*ast.Variable

	if vt != nil {
		for _, v := range vt.Params() {
			skip[v] = true
		}
		if v := vt.This(); v != nil {
			skip[v] = true
		}
	}

	var walk func(list *[]ast.Stmt, path []step)
	walk = func(list *[]ast.Stmt, path []step) {
		for i, s := range *list {
			p := append(path[:len(path):len(path)], step{list, i})
			switch s := s.(type) {
			case *ast.LocalDecl:
				skip[s.V] = true
			case *ast.Try:
				for _, c := range s.Catches {
					skip[c.V] = true
				}
			}
			for _, slot := range ast.Slots(s) {
				ast.Walk(*slot, func(n ast.Node) bool {
					l, ok := n.(*ast.Local)
					if !ok {
						return true
					}
					if _, seen := uses[l.V]; !seen {
						order = append(order, l.V)
					}
					uses[l.V] = append(uses[l.V], p)
					return true
				})
			}
			for _, l := range ast.Lists(s) {
				walk(l, p)
			}
		}
	}
	walk(&stmts, nil)

	type insert struct {
		idx int
		ord int
		v   *ast.Variable
	}
	byList := make(map[*[]ast.Stmt][]insert)
	var listOrder []*[]ast.Stmt
	for ord, v := range order {
		if skip[v] || v.Param || v.This {
			continue
		}
		paths := uses[v]
		common := paths[0]
		depth := len(common)
		for _, p := range paths[1:] {
			n := 0
			for n < depth && n < len(p) && p[n].list == common[n].list {
				n++
			}
			depth = n
		}
		lvl := depth - 1
		idx := common[lvl].idx
		for _, p := range paths[1:] {
			if p[lvl].idx < idx {
				idx = p[lvl].idx
			}
		}
		l := common[lvl].list
		if _, ok := byList[l]; !ok {
			listOrder = append(listOrder, l)
		}
		byList[l] = append(byList[l], insert{idx, ord, v})
	}

	for _, l := range listOrder {
		ins := byList[l]
		sort.Slice(ins, func(i, j int) bool {
			if ins[i].idx != ins[j].idx {
				return ins[i].idx > ins[j].idx
			}
			return ins[i].ord > ins[j].ord
		})
		for _, in := range ins {
			if d := initializer((*l)[in.idx], in.v); d != nil {
				(*l)[in.idx] = d
				continue
			}
			list := append((*l)[:in.idx:in.idx], &ast.LocalDecl{V: in.v})
			*l = append(list, (*l)[in.idx:]...)
		}
	}
	return stmts
}

// initializer turns "v = x" into a declaration of v.
func initializer(s ast.Stmt, v *ast.Variable) *ast.LocalDecl {
	es, ok := s.(*ast.ExprStmt)
	if !ok {
		return nil
	}
	a, ok := es.X.(*ast.Assign)
	if !ok || a.Op != "=" {
		return nil
	}
	l, ok := a.L.(*ast.Local)
	if !ok || l.V != v || ast.Uses(a.R, v) {
		return nil
	}
	return &ast.LocalDecl{V: v, Init: a.R}
}

// forLoops turns "init; while (cond) { body; update; }" into a for loop
// when init and update assign the variable cond tests.
func forLoops(stmts []ast.Stmt) []ast.Stmt {
	ast.EachList(&stmts, func(list *[]ast.Stmt) {
		for i := 1; i < len(*list); i++ {
			s := (*list)[i]
			w, label := whileOf(s)
			if w == nil || len(w.Body.Stmts) == 0 {
				continue
			}
			body := w.Body.Stmts
			upd, v := update(body[len(body)-1])
			if v == nil || !ast.Uses(w.Cond, v) || continues(body, label, 0) {
				continue
			}
			init := (*list)[i-1]
			if !assigns(init, v) {
				continue
			}
			if _, decl := init.(*ast.LocalDecl); decl && usedIn((*list)[i+1:], v) {
				continue
			}

			var loop ast.Stmt = &ast.For{Init: []ast.Stmt{init}, Cond: w.Cond, Update: []ast.Expr{upd}, Body: &ast.Block{Stmts: body[:len(body)-1]}}
			if label != "" {
				loop = &ast.Labeled{Label: label, Body: loop}
			}
			(*list)[i] = loop
			*list = append((*list)[:i-1], (*list)[i:]...)
			i--
		}
	})
	return stmts
}

func whileOf(s ast.Stmt) (*ast.While, string) {
	switch s := s.(type) {
	case *ast.While:
		return s, ""
	case *ast.Labeled:
		if w, ok := s.Body.(*ast.While); ok {
			return w, s.Label
		}
	}
	return nil, ""
}

// update returns the increment or compound assignment of a variable s
// performs.
func update(s ast.Stmt) (ast.Expr, *ast.Variable) {
	es, ok := s.(*ast.ExprStmt)
	if !ok {
		return nil, nil
	}
	switch x := es.X.(type) {
	case *ast.IncDec:
		if l, ok := x.X.(*ast.Local); ok {
			return x, l.V
		}
	case *ast.Assign:
		if l, ok := x.L.(*ast.Local); ok && (x.Op != "=" || ast.Uses(x.R, l.V)) {
			return x, l.V
		}
	}
	return nil, nil
}

func assigns(s ast.Stmt, v *ast.Variable) bool {
	switch s := s.(type) {
	case *ast.LocalDecl:
		return s.V == v && s.Init != nil
	case *ast.ExprStmt:
		a, ok := s.X.(*ast.Assign)
		if !ok || a.Op != "=" {
			return false
		}
		l, ok := a.L.(*ast.Local)
		return ok && l.V == v
	}
	return false
}

func usedIn(list []ast.Stmt, v *ast.Variable) bool {
	for _, s := range list {
		if ast.Uses(s, v) {
			return true
		}
	}
	return false
}

// continues reports whether list continues the loop labeled label, or the
// innermost loop at depth 0.
func continues(list []ast.Stmt, label string, depth int) bool {
	for _, s := range list {
		switch s := s.(type) {
		case *ast.Continue:
			if s.Label == "" && depth == 0 || s.Label != "" && s.Label == label {
				return true
			}
			continue
		case *ast.While, *ast.DoWhile, *ast.For:
			for _, l := range ast.Lists(s) {
				if continues(*l, label, depth+1) {
					return true
				}
			}
			continue
		case *ast.Labeled:
			if continues([]ast.Stmt{s.Body}, label, depth) {
				return true
			}
			continue
		}
		for _, l := range ast.Lists(s) {
			if continues(*l, label, depth) {
				return true
			}
		}
	}
	return false
}
