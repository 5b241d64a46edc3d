// Package decompile runs the decompilation pipeline over a decompilation
// unit. Every type declaration is decompiled independently, methods one
// after another:
//
//	validate → cfg → vars → dataflow → translate → structure → synth
//
// Type declarations run concurrently on a pool of workers. Compilation units
// are assembled only after every worker has finished.
package decompile

import (
	"context"
	"sync"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"decaf/internal/ast"
	"decaf/internal/cfg"
	"decaf/internal/dataflow"
	"decaf/internal/decl"
	"decaf/internal/diag"
	"decaf/internal/structure"
	"decaf/internal/synth"
	"decaf/internal/translate"
	"decaf/internal/types"
	"decaf/internal/unit"
	"decaf/internal/vars"
)

// Session decompiles the declarations of one DU.
type Session struct {
	du   *decl.DU
	cfg  Config
	opts diag.Options
}

// Unit is one assembled compilation unit.
type Unit struct {
	Top *decl.TD
	CU  *ast.CU // nil when Err is set
	Err error   // strict mode failure of a member, or an assembly error
}

// Result is the output of Session.Run.
type Result struct {
	Units []*Unit
	Diags []diag.Diag

	Methods int // methods with code
	Failed  int // methods whose body could not be decompiled
}

// New returns a session over du.
func New(du *decl.DU, c Config) *Session {
	c.applyDefaults()
	return &Session{du: du, cfg: c, opts: c.Options()}
}

// Run decompiles the named top-level classes and everything nested in them,
// or every class when no name is given, and assembles their units. The
// error is non-nil only for an unknown name or a canceled context; failures
// of single methods and types are reported in the result.
func (s *Session) Run(ctx context.Context, names ...string) (res *Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "decompile", "classes", len(s.du.Names()), "workers", s.opts.EffectiveWorkers())
	defer tr.Finish("err", &err)

	a := unit.New(s.du, s.cfg.unitOptions())

	tops := a.TopLevel()
	if len(names) != 0 {
		tops = tops[:0:0]
		for _, n := range names {
			td := s.du.TD(n)
			if td == nil {
				return nil, errors.New("unknown class %v", n)
			}
			tops = append(tops, td)
		}
	}

	var work []*decl.TD
	for _, top := range tops {
		work = append(work, a.Members(top)...)
	}

	if err = s.pool(ctx, work); err != nil {
		return nil, err
	}

	res = &Result{}
	for _, td := range work {
		res.Diags = append(res.Diags, td.Diags.Items()...)
		for _, md := range td.Methods {
			if !md.Method.HasCode() {
				continue
			}
			res.Methods++
			if md.Err != nil {
				res.Failed++
			}
		}
	}

	for _, top := range tops {
		u := &Unit{Top: top}
		res.Units = append(res.Units, u)

		for _, td := range a.Members(top) {
			if td.Err != nil {
				u.Err = td.Err
				break
			}
		}
		if u.Err != nil {
			continue
		}

		u.CU, u.Err = a.Assemble(ctx, top)
	}

	tr.Printw("decompiled", "units", len(res.Units), "methods", res.Methods, "failed", res.Failed, "diags", len(res.Diags))

	return res, nil
}

// pool runs Type over work on the configured number of workers and returns
// once all of them are done.
func (s *Session) pool(ctx context.Context, work []*decl.TD) error {
	jobs := make(chan *decl.TD)
	var wg sync.WaitGroup

	for i := 0; i < s.opts.EffectiveWorkers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for td := range jobs {
				_ = s.Type(ctx, td)
			}
		}()
	}

	var err error
	for _, td := range work {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case jobs <- td:
		case <-ctx.Done():
		}
	}
	if err == nil {
		err = ctx.Err()
	}
	close(jobs)
	wg.Wait()

	return err
}

// Type decompiles every method of td. In best-effort mode a failing method
// keeps its error and the others continue; in strict mode the first failure
// stops td and is stored in td.Err.
func (s *Session) Type(ctx context.Context, td *decl.TD) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "decompile: type", "name", td.Name)
	defer tr.Finish("err", &err)

	for _, md := range td.Methods {
		if !md.Method.HasCode() {
			continue
		}

		merr := s.Method(ctx, md)
		td.Diags.Merge(md.Diags)
		if merr == nil {
			continue
		}

		if s.opts.Mode == diag.ModeStrict {
			td.Err = errors.Wrap(merr, "type %v", td.Name)
			return td.Err
		}

		tr.Printw("method failed", "method", md.ID(), "err", merr)
	}

	return nil
}

// Method runs the pipeline for one method and stores the CFG, parameters
// and body in md. Degradations go to md.Diags; a fatal error is stored in
// md.Err and returned.
func (s *Session) Method(ctx context.Context, md *decl.MD) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "decompile: method", "method", md.ID())
	defer tr.Finish("err", &err)

	defer func() {
		if err == nil {
			return
		}
		var me *diag.MethodError
		if !errors.As(err, &me) {
			err = &diag.MethodError{Method: md.ID(), PC: -1, Err: err}
		}
		md.Err = err
	}()

	m := md.Method
	c := md.TD.DU.Cache()

	if err = m.Validate(); err != nil {
		return err
	}

	g, err := cfg.Build(m)
	if err != nil {
		return errors.Wrap(err, "cfg")
	}
	md.CFG = g

	var this *types.T
	if !m.IsStatic() {
		this = md.TD.T
	}
	params := md.Desc.Params

	vt := vars.New(c, m, this, params)
	md.Params = vt.Params()

	flow, err := dataflow.Analyze(ctx, c, g, dataflow.InitialFrame(c, m, this, params), s.opts, md.Diags)
	if err != nil {
		return err
	}

	err = translate.Translate(ctx, translate.Input{
		Cache:  c,
		Graph:  g,
		Flow:   flow,
		Vars:   vt,
		Diags:  md.Diags,
		Owner:  md.TD.T,
		Return: md.Desc.Return,
	})
	if err != nil {
		return errors.Wrap(err, "translate")
	}

	var tree *structure.Tree
	if !flow.Unsupported {
		tree, err = structure.Build(ctx, g, md.Diags)
		if err != nil {
			md.Diags.Addf(-1, diag.Structure, "no structure: %v", err)
			tree = nil
		}
	}
	md.Tree = tree

	md.Body, err = synth.Synthesize(ctx, synth.Input{
		Cache:     c,
		Graph:     g,
		Tree:      tree,
		Vars:      vt,
		Diags:     md.Diags,
		Return:    md.Desc.Return,
		KeepWhile: !*s.cfg.FoldFor,
	})
	if err != nil {
		return errors.Wrap(err, "synth")
	}

	if n := md.Diags.Len(); n != 0 {
		tr.Printw("degraded", "diags", n, "structure", md.Diags.Count(diag.Structure), "types", md.Diags.Count(diag.TypeInference))
	}

	return nil
}
