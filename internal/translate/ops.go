package translate

import (
	"github.com/nikandfor/errors"

	"decaf/internal/ast"
	"decaf/internal/cfg"
	"decaf/internal/dataflow"
	"decaf/internal/diag"
	"decaf/internal/ir"
	"decaf/internal/types"
)

// state is the symbolic execution state inside one block.
type state struct {
	t *translator
	b *cfg.Block
	f *dataflow.Frame

	stack []item
	stmts []ast.Stmt
	pc    int

	catchStore bool       // the next store binds the handler's exception
	prevLoad   *ast.Local // pushed by the previous operation
}

var binOps = map[ir.Code]string{
	ir.ADD: "+", ir.SUB: "-", ir.MUL: "*", ir.DIV: "/", ir.REM: "%",
	ir.AND: "&", ir.OR: "|", ir.XOR: "^", ir.SHL: "<<", ir.SHR: ">>", ir.USHR: ">>>",
}

var relOps = [...]string{ir.EQ: "==", ir.NE: "!=", ir.LT: "<", ir.GE: ">=", ir.GT: ">", ir.LE: "<="}

func (s *state) next(i int) int {
	if i+1 < len(s.t.Graph.Ops) {
		return s.t.Graph.Ops[i+1].PC
	}
	return s.t.Graph.Ops[i].PC + 1
}

func (s *state) push(e ast.Expr, t *types.T) { s.stack = append(s.stack, item{e: e, t: t}) }

func (s *state) pop() item {
	if len(s.stack) == 0 {
		return item{e: &ast.Literal{T: s.t.Cache.Null()}, t: s.t.Cache.Object()}
	}
	it := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return it
}

// top returns the analysis type of the value the last step pushed.
func (s *state) top() *types.T {
	if len(s.f.Stack) == 0 {
		return s.t.Cache.Object()
	}
	return s.f.Stack[len(s.f.Stack)-1]
}

// find returns the stack position of an expression, -1 if absent.
func (s *state) find(e ast.Expr) int {
	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i].e == e {
			return i
		}
	}
	return -1
}

func (s *state) replace(old, e ast.Expr) {
	for i := range s.stack {
		if s.stack[i].e == old {
			s.stack[i].e = e
		}
	}
}

// emit appends a statement. Stack values that the statement could change
// are moved into stack variables first so they keep their evaluation order.
func (s *state) emit(st ast.Stmt, written *ast.Variable) {
	s.spill(written)
	s.stmts = append(s.stmts, st)
}

func (s *state) spill(written *ast.Variable) {
	for i, it := range s.stack {
		if pure(it.e, written) {
			continue
		}
		v := s.t.Vars.Stack(i, it.t)
		s.t.Vars.Constrain(v, s.pc, it.t)
		s.stmts = append(s.stmts, assignStmt(v, it.e))
		s.replace(it.e, &ast.Local{V: v})
	}
}

// pure reports whether e can be evaluated later without changing its value
// as long as written is not assigned.
func pure(e ast.Expr, written *ast.Variable) bool {
	switch e := e.(type) {
	case *ast.Literal, *ast.ClassLit:
		return true
	case *ast.Local:
		return e.V != written
	case *ast.New:
		return e.Pending
	case *ast.NewArray:
		for _, d := range e.Dims {
			if !pure(d, written) {
				return false
			}
		}
		return true
	case *ast.Binary:
		return pure(e.L, written) && pure(e.R, written)
	case *ast.Unary:
		return pure(e.X, written)
	case *ast.Cast:
		return pure(e.X, written)
	case *ast.InstanceOf:
		return pure(e.X, written)
	case *ast.Cmp:
		return pure(e.L, written) && pure(e.R, written)
	case *ast.Cond:
		return pure(e.C, written) && pure(e.Then, written) && pure(e.Else, written)
	}
	return false
}

func (s *state) op(i int) error {
	c := s.t.Cache
	op := s.t.Graph.Ops[i]
	s.pc = op.PC
	prevLoad := s.prevLoad
	s.prevLoad = nil

	if err := dataflow.Step(c, s.f, op); err != nil && !errors.Is(err, dataflow.ErrBadRead) {
		return &diag.MethodError{Method: s.t.Graph.Name, PC: op.PC, Err: err}
	}

	switch op.Code {
	case ir.NOP, ir.GOTO:
	case ir.PUSH:
		s.push(s.constant(op), s.top())
	case ir.LOAD:
		v := s.t.Vars.Load(op.Reg, op.PC, s.top())
		l := &ast.Local{V: v}
		s.push(l, s.top())
		s.prevLoad = l
	case ir.STORE:
		it := s.pop()
		if s.catchStore && i == s.b.Start {
			s.catchStore = false
			break
		}
		if it.t != nil && it.t.IsKind(types.ReturnAddr) {
			break
		}
		v := s.t.Vars.Store(op.Reg, op.PC, s.next(i), it.t)
		target := v.T
		if target == nil {
			target = it.t
		}
		s.assign(&ast.Local{V: v}, s.coerce(it.e, target), target, v)
	case ir.INC:
		s.inc(op, prevLoad)
	case ir.ADD, ir.SUB, ir.MUL, ir.DIV, ir.REM, ir.AND, ir.OR, ir.XOR, ir.SHL, ir.SHR, ir.USHR:
		r := s.pop()
		l := s.pop()
		typ := s.top()
		if op.Code == ir.XOR && isMinusOne(r.e) {
			s.push(&ast.Unary{Op: "~", X: l.e, T: typ}, typ)
			break
		}
		if typ.IsKind(types.Boolean) {
			l.e, r.e = s.coerce(l.e, typ), s.coerce(r.e, typ)
		}
		s.push(&ast.Binary{Op: binOps[op.Code], L: l.e, R: r.e, T: typ}, typ)
	case ir.NEG:
		x := s.pop()
		s.push(negate(x.e, s.top()), s.top())
	case ir.CMP:
		r := s.pop()
		l := s.pop()
		s.push(&ast.Cmp{L: l.e, R: r.e, Greater: op.Greater, T: s.top()}, s.top())
	case ir.CONVERT:
		x := s.pop()
		s.push(s.convert(x, s.top()), s.top())
	case ir.DUP, ir.DUP_X1, ir.DUP_X2, ir.DUP2, ir.DUP2_X1, ir.DUP2_X2, ir.POP, ir.POP2, ir.SWAP:
		s.shuffle(op, i)
	case ir.GET:
		var obj ast.Expr
		if !op.Static {
			obj = s.pop().e
		}
		s.push(&ast.Field{Obj: obj, Owner: c.T(op.Ref.Owner), Name: op.Ref.Name, T: s.top()}, s.top())
	case ir.PUT:
		val := s.pop()
		var obj ast.Expr
		if !op.Static {
			obj = s.pop().e
		}
		ft, err := c.DescT(op.Ref.Desc)
		if err != nil {
			ft = val.t
		}
		lhs := &ast.Field{Obj: obj, Owner: c.T(op.Ref.Owner), Name: op.Ref.Name, T: ft}
		s.assign(lhs, s.coerce(val.e, ft), ft, nil)
	case ir.INVOKE:
		return s.invoke(op)
	case ir.NEW:
		s.push(&ast.New{T: s.top(), Pending: true}, s.top())
	case ir.NEWARRAY:
		dims := make([]ast.Expr, max(op.Dims, 1))
		for k := len(dims) - 1; k >= 0; k-- {
			dims[k] = s.coerce(s.pop().e, c.Int())
		}
		s.push(&ast.NewArray{T: s.top(), Dims: dims}, s.top())
	case ir.ARRAYLENGTH:
		arr := s.pop()
		s.push(&ast.Length{Arr: arr.e, T: s.top()}, s.top())
	case ir.ALOAD:
		idx := s.pop()
		arr := s.pop()
		s.push(&ast.Index{Arr: arr.e, Idx: s.coerce(idx.e, c.Int()), T: s.top()}, s.top())
	case ir.ASTORE:
		s.arrayStore(op)
	case ir.CHECKCAST:
		x := s.pop()
		s.push(&ast.Cast{T: s.top(), X: x.e}, s.top())
	case ir.INSTANCEOF:
		x := s.pop()
		s.push(&ast.InstanceOf{X: x.e, Of: dataflow.OpType(c, op.Type), T: s.top()}, s.top())
	case ir.THROW:
		x := s.pop()
		s.emit(&ast.Throw{X: x.e}, nil)
	case ir.RETURN:
		var x ast.Expr
		if op.Type != "" && op.Type != "V" {
			x = s.coerce(s.pop().e, s.t.Return)
		}
		s.emit(&ast.Return{X: x}, nil)
	case ir.JCND:
		x := s.pop()
		s.b.Cond = s.test(op.Cond, x)
	case ir.JCMP:
		r := s.pop()
		l := s.pop()
		s.b.Cond = s.compare(op.Cond, l, r)
	case ir.SWITCH:
		x := s.pop()
		s.b.Switch = s.coerce(x.e, c.Int())
	case ir.MONITOR:
		x := s.pop()
		s.emit(&ast.Monitor{Enter: op.Enter, X: x.e}, nil)
	case ir.JSR:
		s.push(&ast.Literal{T: s.top()}, s.top())
	case ir.RET:
		s.emit(&ast.Comment{Text: "ret"}, nil)
	default:
		return errors.Wrap(errStack, "pc %d: %s", op.PC, op.Code)
	}

	if len(s.stack) != len(s.f.Stack) {
		return &diag.MethodError{Method: s.t.Graph.Name, PC: op.PC, Err: errors.Wrap(errStack, "%d values, frame has %d", len(s.stack), len(s.f.Stack))}
	}
	return nil
}

func (s *state) constant(op ir.Op) ast.Expr {
	c := s.t.Cache
	switch v := op.Value.(type) {
	case ir.ClassConst:
		of := dataflow.OpType(c, string(v))
		return &ast.ClassLit{Of: of, T: c.T(types.ClassName)}
	case nil:
		return &ast.Literal{T: c.Null()}
	}
	return &ast.Literal{T: s.top(), Value: op.Value}
}

func (s *state) shuffle(op ir.Op, i int) {
	if op.Code == ir.POP || op.Code == ir.POP2 {
		n := 1
		if op.Code == ir.POP2 && !wide(s.stack[len(s.stack)-1]) {
			n = 2
		}
		for ; n > 0; n-- {
			it := s.pop()
			if ast.SideEffects(it.e) && s.find(it.e) < 0 {
				s.emit(&ast.ExprStmt{X: it.e}, nil)
			}
		}
		return
	}

	// Duplicated values with side effects are evaluated once, into a
	// stack variable, unless the copy feeds an assignment expression. New
	// objects and array initializers stay on the stack.
	if op.Code != ir.SWAP && !s.storesNext(i) {
		n := 1
		if op.Code >= ir.DUP2 && !wide(s.stack[len(s.stack)-1]) {
			n = 2
		}
		for k := len(s.stack) - n; k < len(s.stack); k++ {
			it := s.stack[k]
			switch it.e.(type) {
			case *ast.New, *ast.NewArray:
				continue
			}
			if ast.SideEffects(it.e) {
				v := s.t.Vars.Stack(k, it.t)
				s.t.Vars.Constrain(v, s.pc, it.t)
				s.stmts = append(s.stmts, assignStmt(v, it.e))
				s.replace(it.e, &ast.Local{V: v})
			}
		}
	}

	st, err := dataflow.Shuffle(s.stack, op.Code, wide)
	if err == nil {
		s.stack = st
	}
}

func (s *state) storesNext(i int) bool {
	if i+1 >= s.b.End {
		return false
	}
	switch s.t.Graph.Ops[i+1].Code {
	case ir.STORE, ir.PUT:
		return true
	}
	return false
}

// inc translates an increment of a local. Directly after a load of the same
// register it becomes a postfix increment of the loaded value.
func (s *state) inc(op ir.Op, prevLoad *ast.Local) {
	v := s.t.Vars.Load(op.Reg, op.PC, s.t.Cache.Int())
	delta, _ := op.Value.(int64)
	if prevLoad != nil && prevLoad.V == v && (delta == 1 || delta == -1) && s.find(prevLoad) == len(s.stack)-1 {
		s.replace(prevLoad, &ast.IncDec{X: prevLoad, Op: incOp(delta)})
		return
	}
	s.emit(&ast.ExprStmt{X: incExpr(&ast.Local{V: v}, delta, s.t.Cache.Int())}, v)
}

func incOp(delta int64) string {
	if delta < 0 {
		return "--"
	}
	return "++"
}

func incExpr(x ast.Expr, delta int64, t *types.T) ast.Expr {
	switch {
	case delta == 1 || delta == -1:
		return &ast.IncDec{X: x, Op: incOp(delta)}
	case delta < 0:
		return &ast.Assign{Op: "-=", L: x, R: &ast.Literal{T: t, Value: -delta}}
	}
	return &ast.Assign{Op: "+=", L: x, R: &ast.Literal{T: t, Value: delta}}
}

// assign stores val into lhs. A value still on the stack makes the store an
// assignment expression; otherwise it becomes a statement.
func (s *state) assign(lhs, val ast.Expr, typ *types.T, written *ast.Variable) {
	x := compound(lhs, val, typ)

	if s.find(val) >= 0 {
		if inc, ok := x.(*ast.IncDec); ok {
			inc.Prefix = true
		}
		s.replace(val, x)
		return
	}

	// x.f++ leaves the old value of x.f on the stack.
	if inc, ok := x.(*ast.IncDec); ok {
		if b, _ := binaryOf(val); b != nil && s.find(b.L) >= 0 {
			s.replace(b.L, inc)
			return
		}
	}

	s.emit(&ast.ExprStmt{X: x}, written)
}

var compoundOps = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"&": true, "|": true, "^": true, "<<": true, ">>": true, ">>>": true,
}

// compound turns lhs = lhs op r into lhs op= r and lhs = lhs ± 1 into ++/--.
// A narrowing cast to the variable type around the operation is implied by
// the compound form.
func compound(lhs, val ast.Expr, typ *types.T) ast.Expr {
	b, cast := binaryOf(val)
	if b == nil || !compoundOps[b.Op] || !sameLValue(b.L, lhs) {
		return &ast.Assign{Op: "=", L: lhs, R: val}
	}
	if cast != nil && cast.T != typ {
		return &ast.Assign{Op: "=", L: lhs, R: val}
	}
	if (b.Op == "+" || b.Op == "-") && isOne(b.R) && b.T != nil && b.T.IsPrim() {
		return &ast.IncDec{X: lhs, Op: b.Op + b.Op}
	}
	return &ast.Assign{Op: b.Op + "=", L: lhs, R: b.R}
}

func binaryOf(e ast.Expr) (*ast.Binary, *ast.Cast) {
	switch e := e.(type) {
	case *ast.Binary:
		return e, nil
	case *ast.Cast:
		if b, ok := e.X.(*ast.Binary); ok {
			return b, e
		}
	}
	return nil, nil
}

// sameLValue reports whether a reads the location lhs writes.
func sameLValue(a, lhs ast.Expr) bool {
	if a == lhs {
		return true
	}
	switch l := lhs.(type) {
	case *ast.Local:
		r, ok := a.(*ast.Local)
		return ok && r.V == l.V
	case *ast.Field:
		r, ok := a.(*ast.Field)
		if !ok || r.Name != l.Name || r.Owner != l.Owner {
			return false
		}
		if l.Obj == nil || r.Obj == nil {
			return l.Obj == nil && r.Obj == nil
		}
		return r.Obj == l.Obj || sameLValue(r.Obj, l.Obj)
	case *ast.Index:
		r, ok := a.(*ast.Index)
		return ok && (r.Arr == l.Arr || sameLValue(r.Arr, l.Arr)) && (r.Idx == l.Idx || sameLValue(r.Idx, l.Idx))
	}
	return false
}

func (s *state) arrayStore(op ir.Op) {
	val := s.pop()
	idx := s.pop()
	arr := s.pop()

	var comp *types.T
	if arr.t != nil {
		comp = arr.t.Component()
	}
	if comp == nil {
		comp = dataflow.OpType(s.t.Cache, op.Type)
	}

	if na, ok := arr.e.(*ast.NewArray); ok && len(na.Dims) == 1 && s.find(na) >= 0 {
		k, kok := intLit(idx.e)
		n, nok := intLit(na.Dims[0])
		if kok && nok && k < n && k >= int64(len(na.Init)) {
			for int64(len(na.Init)) < k {
				na.Init = append(na.Init, zero(s.t.Cache, comp))
			}
			na.Init = append(na.Init, s.coerce(val.e, comp))
			return
		}
	}

	lhs := &ast.Index{Arr: arr.e, Idx: idx.e, T: comp}
	s.assign(lhs, s.coerce(val.e, comp), comp, nil)
}

func intLit(e ast.Expr) (int64, bool) {
	l, ok := e.(*ast.Literal)
	if !ok {
		return 0, false
	}
	v, ok := l.Value.(int64)
	return v, ok
}

func isOne(e ast.Expr) bool {
	l, ok := e.(*ast.Literal)
	if !ok {
		return false
	}
	switch v := l.Value.(type) {
	case int64:
		return v == 1
	case float64:
		return v == 1
	}
	return false
}

func isMinusOne(e ast.Expr) bool {
	v, ok := intLit(e)
	return ok && v == -1
}

// zero returns the default value of t.
func zero(c *types.Cache, t *types.T) ast.Expr {
	switch {
	case t == nil || t.IsRef():
		return &ast.Literal{T: c.Null()}
	case t.IsKind(types.Float) || t.IsKind(types.Double):
		return &ast.Literal{T: t, Value: float64(0)}
	}
	return &ast.Literal{T: t, Value: int64(0)}
}

func negate(x ast.Expr, t *types.T) ast.Expr {
	if l, ok := x.(*ast.Literal); ok {
		switch v := l.Value.(type) {
		case int64:
			return &ast.Literal{T: t, Value: -v}
		case float64:
			return &ast.Literal{T: t, Value: -v}
		}
	}
	return &ast.Unary{Op: "-", X: x, T: t}
}

// convert translates a primitive conversion. Widening conversions are
// implicit in source; constants are converted in place.
func (s *state) convert(x item, to *types.T) ast.Expr {
	c := s.t.Cache
	if l, ok := x.e.(*ast.Literal); ok {
		switch v := l.Value.(type) {
		case int64:
			switch {
			case to.IsKind(types.Long):
				return &ast.Literal{T: to, Value: v}
			case to.IsKind(types.Float) || to.IsKind(types.Double):
				return &ast.Literal{T: to, Value: float64(v)}
			}
		case float64:
			if to.IsKind(types.Double) {
				return &ast.Literal{T: to, Value: v}
			}
		}
	}
	from := c.Concrete(x.t)
	implicit := from != to && c.Assignable(to, from)
	return &ast.Cast{T: to, X: x.e, Implicit: implicit}
}

// test translates a comparison of one value against zero or null.
func (s *state) test(cond ir.Cond, x item) ast.Expr {
	c := s.t.Cache
	if cmp, ok := x.e.(*ast.Cmp); ok {
		return &ast.Binary{Op: relOps[cond], L: cmp.L, R: cmp.R, T: c.Boolean()}
	}
	if x.t != nil && x.t.IsRef() {
		return &ast.Binary{Op: relOps[cond], L: x.e, R: &ast.Literal{T: c.Null()}, T: c.Boolean()}
	}
	if isBoolean(x) && (cond == ir.EQ || cond == ir.NE) {
		e := s.coerce(x.e, c.Boolean())
		if cond == ir.EQ {
			return ast.Negate(e)
		}
		return e
	}
	return &ast.Binary{Op: relOps[cond], L: x.e, R: &ast.Literal{T: c.Int(), Value: int64(0)}, T: c.Boolean()}
}

func (s *state) compare(cond ir.Cond, l, r item) ast.Expr {
	c := s.t.Cache
	switch {
	case isBoolean(l):
		r.e = s.coerce(r.e, c.Boolean())
	case isBoolean(r):
		l.e = s.coerce(l.e, c.Boolean())
	}
	return &ast.Binary{Op: relOps[cond], L: l.e, R: r.e, T: c.Boolean()}
}

// isBoolean reports whether a value is known to be a boolean.
func isBoolean(x item) bool {
	if x.t != nil && x.t.IsKind(types.Boolean) {
		return true
	}
	switch e := x.e.(type) {
	case *ast.InstanceOf:
		return true
	case *ast.Unary:
		return e.Op == "!"
	case *ast.Binary:
		switch e.Op {
		case "==", "!=", "<", ">=", ">", "<=", "&&", "||":
			return true
		}
	case *ast.Cond:
		return isBoolean(item{e: e.Then}) && isBoolean(item{e: e.Else})
	case *ast.Literal:
		return false
	}
	t := x.e.Type()
	return t != nil && t.IsKind(types.Boolean)
}

// coerce adapts e to a context expecting target: integer constants take
// the target kind, c ? 1 : 0 becomes c in boolean context, and variables
// without a declaration record the expected type.
func (s *state) coerce(e ast.Expr, target *types.T) ast.Expr {
	if target == nil || !target.IsPrim() {
		return e
	}
	switch x := e.(type) {
	case *ast.Literal:
		if _, ok := x.Value.(int64); ok && x.T != nil && x.T.IsPrim() && x.T != target && x.T.Kinds().Has(target.Kinds()) {
			return &ast.Literal{T: target, Value: x.Value}
		}
	case *ast.Cond:
		if target.IsKind(types.Boolean) {
			tv, tok := intLit(x.Then)
			fv, fok := intLit(x.Else)
			switch {
			case tok && fok && tv == 1 && fv == 0:
				return x.C
			case tok && fok && tv == 0 && fv == 1:
				return ast.Negate(x.C)
			}
		}
		return &ast.Cond{C: x.C, Then: s.coerce(x.Then, target), Else: s.coerce(x.Else, target), T: target}
	case *ast.Local:
		s.t.Vars.Constrain(x.V, s.pc, target)
	}
	return e
}
