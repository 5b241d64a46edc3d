package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nikandfor/errors"
	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"

	"decaf/internal/callgraph"
	"decaf/internal/ir"
	"decaf/internal/output"
)

func cmdCallgraph(args []string) error {
	fs := flag.NewFlagSet("callgraph", flag.ExitOnError)
	common := addCommonFlags(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}

	_, tr, _, err := common.setup(fs)
	if err != nil {
		return err
	}
	defer tr.Finish()

	_, classes, err := readUnit(*common.in)
	if err != nil {
		return err
	}

	var methods []*ir.Method
	for _, c := range classes {
		methods = append(methods, c.Methods...)
	}

	if err := os.MkdirAll(*common.out, 0755); err != nil {
		return errors.Wrap(err, "mkdir out")
	}

	cg := callgraph.BuildCallGraph(methods)
	cgDOT := render.DOT(cg, "callgraph")
	cgPath := filepath.Join(*common.out, "callgraph.dot")
	if err := os.WriteFile(cgPath, []byte(cgDOT), 0644); err != nil {
		return errors.Wrap(err, "write callgraph.dot")
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d nodes, %d edges)\n", cgPath, len(cg.Nodes), len(cg.Edges))

	// Per-method CFG: build, convert, render, write.
	cfgCount := 0
	for _, f := range callgraph.BuildCFG(methods).Funcs {
		if len(f.Blocks) < 2 {
			continue
		}
		g := &lattice.CFGGraph{Funcs: []*lattice.FuncCFG{f}}
		if err := output.WriteDOT(*common.out, "lattice/"+safeName(f.Name), render.DOTCFG(g, f.Name)); err != nil {
			return errors.Wrap(err, "write cfg dot %s", f.Name)
		}
		cfgCount++
	}
	fmt.Fprintf(os.Stderr, "wrote %d per-method CFG DOTs to %s\n", cfgCount, filepath.Join(*common.out, "dot", "lattice"))

	return nil
}
