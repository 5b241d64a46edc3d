package ast

// Walk traverses n depth-first, calling fn for every node before its
// children. Children are skipped when fn returns false.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	exprs := func(list []Expr) {
		for _, e := range list {
			walkExpr(e, fn)
		}
	}
	stmts := func(list []Stmt) {
		for _, s := range list {
			Walk(s, fn)
		}
	}
	block := func(b *Block) {
		if b != nil {
			Walk(b, fn)
		}
	}

	switch n := n.(type) {
	case *Field:
		walkExpr(n.Obj, fn)
	case *Index:
		walkExpr(n.Arr, fn)
		walkExpr(n.Idx, fn)
	case *Length:
		walkExpr(n.Arr, fn)
	case *Call:
		walkExpr(n.Obj, fn)
		exprs(n.Args)
	case *New:
		exprs(n.Args)
		if n.Body != nil {
			Walk(n.Body, fn)
		}
	case *NewArray:
		exprs(n.Dims)
		exprs(n.Init)
	case *Binary:
		walkExpr(n.L, fn)
		walkExpr(n.R, fn)
	case *Unary:
		walkExpr(n.X, fn)
	case *Cast:
		walkExpr(n.X, fn)
	case *InstanceOf:
		walkExpr(n.X, fn)
	case *Cond:
		walkExpr(n.C, fn)
		walkExpr(n.Then, fn)
		walkExpr(n.Else, fn)
	case *Assign:
		walkExpr(n.L, fn)
		walkExpr(n.R, fn)
	case *IncDec:
		walkExpr(n.X, fn)
	case *Cmp:
		walkExpr(n.L, fn)
		walkExpr(n.R, fn)

	case *Block:
		stmts(n.Stmts)
	case *ExprStmt:
		walkExpr(n.X, fn)
	case *LocalDecl:
		walkExpr(n.Init, fn)
	case *Return:
		walkExpr(n.X, fn)
	case *Throw:
		walkExpr(n.X, fn)
	case *If:
		walkExpr(n.Cond, fn)
		block(n.Then)
		block(n.Else)
	case *While:
		walkExpr(n.Cond, fn)
		block(n.Body)
	case *DoWhile:
		block(n.Body)
		walkExpr(n.Cond, fn)
	case *For:
		stmts(n.Init)
		walkExpr(n.Cond, fn)
		exprs(n.Update)
		block(n.Body)
	case *Switch:
		walkExpr(n.X, fn)
		for _, c := range n.Cases {
			Walk(c, fn)
		}
	case *Case:
		exprs(n.Keys)
		stmts(n.Body)
	case *Labeled:
		Walk(n.Body, fn)
	case *Try:
		block(n.Body)
		for _, c := range n.Catches {
			Walk(c, fn)
		}
		block(n.Finally)
	case *Catch:
		block(n.Body)
	case *Monitor:
		walkExpr(n.X, fn)

	case *CU:
		for _, t := range n.Types {
			Walk(t, fn)
		}
	case *TypeDecl:
		for _, f := range n.Fields {
			Walk(f, fn)
		}
		for _, m := range n.Methods {
			Walk(m, fn)
		}
		for _, t := range n.Types {
			Walk(t, fn)
		}
	case *FieldDecl:
		walkExpr(n.Init, fn)
	case *MethodDecl:
		block(n.Body)
	}
}

// walkExpr skips nil interfaces, which Walk cannot detect once boxed.
func walkExpr(e Expr, fn func(Node) bool) {
	if e != nil {
		Walk(e, fn)
	}
}
