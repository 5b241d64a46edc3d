package dataflow

import (
	"context"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"decaf/internal/cfg"
	"decaf/internal/diag"
	"decaf/internal/ir"
	"decaf/internal/types"
)

// Result holds the converged frames of every reachable block, indexed by
// block ID. Unreachable blocks have nil frames.
type Result struct {
	In, Out []*Frame
	Passes  int

	// Unsupported is set when the method uses JSR or RET. Translation still
	// runs but the body is emitted as a flat labeled statement list.
	Unsupported bool
}

// InitialFrame returns the entry frame of m: the receiver in register 0 for
// instance methods, then the parameters, wide ones taking two registers.
func InitialFrame(c *types.Cache, m *ir.Method, this *types.T, params []*types.T) *Frame {
	n := 0
	if this != nil {
		n++
	}
	for _, p := range params {
		n++
		if p.IsWide() {
			n++
		}
	}
	for _, op := range m.Ops {
		switch op.Code {
		case ir.LOAD, ir.STORE, ir.INC, ir.RET:
			n = max(n, op.Reg+2)
		}
	}
	n = max(n, m.MaxLocals)

	f := NewFrame(n)
	r := 0
	if this != nil {
		f.Regs[0] = this
		r++
	}
	for _, p := range params {
		f.Regs[r] = p
		r++
		if p.IsWide() {
			r++
		}
	}
	return f
}

// Analyze runs the register and stack type analysis over g to a fixed
// point. Blocks are visited in reverse postorder each pass; a block's entry
// frame is the join of its reachable predecessors' exit frames (and entry
// for block 0). Handler entries join every intermediate register state of
// the protected blocks, with the caught type as the only stack element.
//
// Stack underflow or mismatched stack heights at a join are fatal and
// returned as *diag.MethodError. Failing to converge within the pass limit
// and reads of registers without a unique type are reported to d.
func Analyze(ctx context.Context, c *types.Cache, g *cfg.Graph, init *Frame, opts diag.Options, d *diag.Diags) (res *Result, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "dataflow", "method", g.Name, "blocks", len(g.Blocks))
	defer tr.Finish("err", &err)

	n := len(g.Blocks)
	res = &Result{In: make([]*Frame, n), Out: make([]*Frame, n)}
	exc := make([]*Frame, n)

	for _, op := range g.Ops {
		if op.Code == ir.JSR || op.Code == ir.RET {
			res.Unsupported = true
			d.Add(op.PC, diag.Unsupported, "subroutines (jsr/ret) are emitted without structure")
			break
		}
	}

	limit := opts.EffectiveMaxPasses(n)
	rpo := g.RPO()

	for changed := true; changed; {
		if res.Passes >= limit {
			d.Addf(-1, diag.Unsupported, "register types did not converge after %d passes", limit)
			break
		}
		res.Passes++
		changed = false

		for _, id := range rpo {
			b := g.Blocks[id]

			in, err := entryFrame(c, g, b, init, res.Out, exc)
			if err != nil {
				return nil, &diag.MethodError{Method: g.Name, PC: b.PC, Err: err}
			}
			if in == nil {
				continue
			}

			out, ex, err := transfer(c, g, b, in, nil)
			if err != nil {
				return nil, err
			}

			if !in.Equal(res.In[id]) || !out.Equal(res.Out[id]) || !ex.Equal(exc[id]) {
				changed = true
			}
			res.In[id], res.Out[id], exc[id] = in, out, ex
		}
	}

	for _, id := range rpo {
		if res.In[id] == nil {
			continue
		}
		_, _, _ = transfer(c, g, g.Blocks[id], res.In[id], func(op ir.Op) {
			d.Addf(op.PC, diag.TypeInference, "register %d has no single type here", op.Reg)
		})
	}

	if tr.If("dump_frames") {
		for _, id := range rpo {
			if res.In[id] != nil {
				tr.Printw("frame", "block", id, "in", res.In[id].String(), "out", res.Out[id].String())
			}
		}
	}
	tr.V("dataflow").Printw("converged", "passes", res.Passes)

	return res, nil
}

// entryFrame joins the incoming states of b. It returns nil when no
// predecessor has been visited yet.
func entryFrame(c *types.Cache, g *cfg.Graph, b *cfg.Block, init *Frame, out, exc []*Frame) (in *Frame, err error) {
	if b.ID == 0 {
		in = init.Clone()
	}

	for _, e := range b.Preds {
		if !g.Reachable(e.From) {
			continue
		}

		var f *Frame
		if e.Kind == cfg.Catch {
			if exc[e.From] == nil {
				continue
			}
			f = exc[e.From].Clone()
			f.Stack = []*types.T{catchType(c, e.Type)}
		} else {
			f = out[e.From]
		}
		if f == nil {
			continue
		}

		in, err = Join(c, in, f)
		if err != nil {
			return nil, err
		}
	}
	return in, nil
}

// transfer steps through b starting from in. It returns the exit frame and
// the join of every intermediate register state, the state a handler of b
// may observe. badRead, if set, is called for reads of ununified registers.
func transfer(c *types.Cache, g *cfg.Graph, b *cfg.Block, in *Frame, badRead func(ir.Op)) (out, ex *Frame, err error) {
	f := in.Clone()
	ex = &Frame{Regs: append([]*types.T(nil), in.Regs...), Bad: append([]bool(nil), in.Bad...)}

	for _, op := range g.Ops[b.Start:b.End] {
		err = Step(c, f, op)
		switch {
		case errors.Is(err, ErrBadRead):
			if badRead != nil {
				badRead(op)
			}
		case err != nil:
			return nil, nil, &diag.MethodError{Method: g.Name, PC: op.PC, Err: err}
		}

		if op.Code == ir.STORE || op.Code == ir.INC {
			regs := &Frame{Regs: f.Regs, Bad: f.Bad}
			j, _ := Join(c, ex, regs)
			ex = j
		}
	}
	return f, ex, nil
}

func catchType(c *types.Cache, name string) *types.T {
	if name == "" {
		return c.T(types.ThrowableName)
	}
	t, err := c.RefT(name)
	if err != nil {
		return c.T(types.ThrowableName)
	}
	return t
}
