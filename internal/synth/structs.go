package synth

import (
	"decaf/internal/ast"
	"decaf/internal/cfg"
	"decaf/internal/structure"
	"decaf/internal/types"
)

func (e *emitter) emit(s *structure.Struct) []ast.Stmt {
	switch s.Kind {
	case structure.Loop:
		return e.loop(s)
	case structure.If:
		return e.cond(s)
	case structure.Switch:
		return e.switchStmt(s)
	case structure.Try:
		return e.try(s)
	}
	return nil
}

func (e *emitter) loop(s *structure.Struct) []ast.Stmt {
	g := e.Graph
	head := g.Blocks[s.Head]

	cont := s.Head
	if s.Loop == structure.DoWhile || s.Loop == structure.DoWhileNot {
		cont = -1
		if s.Tail != s.Head && len(g.Blocks[s.Tail].Stmts) == 0 {
			cont = s.Tail
		}
	}
	sc := e.push(structure.Loop, s.Follow, cont)
	defer e.pop()

	var out []ast.Stmt
	var st ast.Stmt
	switch s.Loop {
	case structure.While, structure.WhileNot:
		out = append(out, e.mark(s.Head))
		e.emitted[s.Head] = true
		cond, entry := ast.Negate(head.Cond), head.Succ(cfg.Fall)
		if s.Loop == structure.WhileNot {
			cond, entry = head.Cond, head.Succ(cfg.Taken)
		}
		body := e.seq(entry, s.Head, s.ID, false)
		st = &ast.While{Cond: cond, Body: &ast.Block{Stmts: body}}

	case structure.DoWhile, structure.DoWhileNot:
		var body []ast.Stmt
		if s.Tail == s.Head {
			body = e.block(s.Head)
		} else {
			body = e.seq(s.Head, s.Tail, s.ID, true)
			body = append(body, e.block(s.Tail)...)
		}
		tail := g.Blocks[s.Tail]
		cond := tail.Cond
		if s.Loop == structure.DoWhileNot {
			cond = ast.Negate(cond)
		}
		st = &ast.DoWhile{Body: &ast.Block{Stmts: body}, Cond: cond}

	default:
		body := e.seq(s.Head, s.Head, s.ID, true)
		st = &ast.While{Cond: &ast.Literal{T: e.Cache.Boolean(), Value: int64(1)}, Body: &ast.Block{Stmts: body}}
	}
	return append(out, wrap(sc, st))
}

// cond emits a conditional with the fall-through arm as its then branch.
func (e *emitter) cond(s *structure.Struct) []ast.Stmt {
	head := e.Graph.Blocks[s.Head]
	out := e.block(s.Head)

	sc := e.push(structure.If, s.Follow, -1)
	defer e.pop()

	thenS := e.arm(s, s.Members[1])
	elseS := e.arm(s, s.Members[0])
	cond := ast.Negate(head.Cond)
	if len(thenS) == 0 && len(elseS) > 0 {
		cond, thenS, elseS = head.Cond, elseS, nil
	}

	st := &ast.If{Cond: cond, Then: &ast.Block{Stmts: thenS}}
	var hoisted []ast.Stmt
	switch {
	case len(elseS) == 0:
	case ast.EndsWithJump(thenS) && sc.label == "" && !isElseIf(elseS):
		hoisted = elseS
	default:
		st.Else = &ast.Block{Stmts: elseS}
	}
	out = append(out, wrap(sc, st))
	return append(out, hoisted...)
}

func isElseIf(list []ast.Stmt) bool {
	if len(list) != 1 {
		return false
	}
	_, ok := list[0].(*ast.If)
	return ok
}

func (e *emitter) arm(s *structure.Struct, m structure.Member) []ast.Stmt {
	switch {
	case m.Entry < 0 || m.Entry == s.Follow:
		return nil
	case len(m.Blocks) == 0:
		return []ast.Stmt{e.jump(m.Entry)}
	}
	return e.seq(m.Entry, s.Follow, s.ID, false)
}

// switchStmt emits the cases in entry order. A case falls into the next
// one when control runs into its entry.
func (e *emitter) switchStmt(s *structure.Struct) []ast.Stmt {
	head := e.Graph.Blocks[s.Head]
	out := e.block(s.Head)

	sc := e.push(structure.Switch, s.Follow, -1)
	defer e.pop()

	sw := &ast.Switch{X: head.Switch}
	for i, m := range s.Members {
		stop := s.Follow
		if i+1 < len(s.Members) {
			stop = s.Members[i+1].Entry
		}
		var body []ast.Stmt
		switch {
		case m.Entry == s.Follow:
			body = []ast.Stmt{&ast.Break{}}
		case len(m.Blocks) == 0:
			body = []ast.Stmt{e.jump(m.Entry)}
		default:
			body = e.seq(m.Entry, stop, s.ID, false)
		}
		sw.Cases = append(sw.Cases, &ast.Case{Keys: e.keys(head.Switch, m.Keys), Default: m.Default, Body: body})
	}
	return append(out, wrap(sc, sw))
}

func (e *emitter) try(s *structure.Struct) []ast.Stmt {
	sc := e.push(structure.Try, s.Follow, -1)
	defer e.pop()

	body := e.seq(s.Head, s.Follow, s.ID, true)
	st := &ast.Try{Body: &ast.Block{Stmts: body}}
	for _, m := range s.Members[1:] {
		var ts []*types.T
		for _, c := range m.Catch {
			if c == "" {
				ts = append(ts, nil)
			} else {
				ts = append(ts, e.Cache.T(c))
			}
		}
		v := e.Graph.Blocks[m.Entry].CatchVar
		if v == nil {
			v = e.Vars.Catch(catchType(e.Cache, ts))
		}
		handler := e.seq(m.Entry, s.Follow, s.ID, false)
		st.Catches = append(st.Catches, &ast.Catch{Types: ts, V: v, Body: &ast.Block{Stmts: handler}})
	}
	return []ast.Stmt{wrap(sc, st)}
}

func catchType(c *types.Cache, ts []*types.T) *types.T {
	if len(ts) == 1 && ts[0] != nil {
		return ts[0]
	}
	return c.T(types.ThrowableName)
}
