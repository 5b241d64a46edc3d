package ast

// Lists returns the statement lists nested directly in s.
func Lists(s Stmt) []*[]Stmt {
	var out []*[]Stmt
	block := func(b *Block) {
		if b != nil {
			out = append(out, &b.Stmts)
		}
	}
	switch s := s.(type) {
	case *Block:
		out = append(out, &s.Stmts)
	case *If:
		block(s.Then)
		block(s.Else)
	case *While:
		block(s.Body)
	case *DoWhile:
		block(s.Body)
	case *For:
		block(s.Body)
	case *Switch:
		for _, c := range s.Cases {
			out = append(out, &c.Body)
		}
	case *Labeled:
		return Lists(s.Body)
	case *Try:
		block(s.Body)
		for _, c := range s.Catches {
			block(c.Body)
		}
		block(s.Finally)
	}
	return out
}

// Slots returns the expressions s holds outside its nested lists.
func Slots(s Stmt) []*Expr {
	var out []*Expr
	add := func(e *Expr) {
		if *e != nil {
			out = append(out, e)
		}
	}
	switch s := s.(type) {
	case *ExprStmt:
		add(&s.X)
	case *LocalDecl:
		add(&s.Init)
	case *Return:
		add(&s.X)
	case *Throw:
		add(&s.X)
	case *If:
		add(&s.Cond)
	case *While:
		add(&s.Cond)
	case *DoWhile:
		add(&s.Cond)
	case *For:
		for _, init := range s.Init {
			out = append(out, Slots(init)...)
		}
		add(&s.Cond)
		for i := range s.Update {
			add(&s.Update[i])
		}
	case *Switch:
		add(&s.X)
	case *Monitor:
		add(&s.X)
	case *Labeled:
		return Slots(s.Body)
	}
	return out
}

// EachList calls fn for list and every list nested in it, innermost first.
func EachList(list *[]Stmt, fn func(*[]Stmt)) {
	for _, s := range *list {
		for _, l := range Lists(s) {
			EachList(l, fn)
		}
	}
	fn(list)
}

// MapExpr rebuilds e bottom-up, replacing every node by fn's result.
func MapExpr(e Expr, fn func(Expr) Expr) Expr {
	if e == nil {
		return nil
	}
	m := func(x *Expr) { *x = MapExpr(*x, fn) }
	all := func(list []Expr) {
		for i := range list {
			m(&list[i])
		}
	}
	switch e := e.(type) {
	case *Field:
		m(&e.Obj)
	case *Index:
		m(&e.Arr)
		m(&e.Idx)
	case *Length:
		m(&e.Arr)
	case *Call:
		m(&e.Obj)
		all(e.Args)
	case *New:
		all(e.Args)
	case *NewArray:
		all(e.Dims)
		all(e.Init)
	case *Binary:
		m(&e.L)
		m(&e.R)
	case *Unary:
		m(&e.X)
	case *Cast:
		m(&e.X)
	case *InstanceOf:
		m(&e.X)
	case *Cond:
		m(&e.C)
		m(&e.Then)
		m(&e.Else)
	case *Assign:
		m(&e.L)
		m(&e.R)
	case *IncDec:
		m(&e.X)
	case *Cmp:
		m(&e.L)
		m(&e.R)
	}
	return fn(e)
}

// Rewrite replaces every expression held by the statements of list and
// their nested lists with fn's result, bottom-up.
func Rewrite(list *[]Stmt, fn func(Expr) Expr) {
	EachList(list, func(l *[]Stmt) {
		for _, s := range *l {
			for _, slot := range Slots(s) {
				*slot = MapExpr(*slot, fn)
			}
		}
	})
}
