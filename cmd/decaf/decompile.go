package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nikandfor/errors"

	"decaf/internal/decompile"
	"decaf/internal/output"
	"decaf/internal/render"
)

func cmdDecompile(args []string) error {
	fs := flag.NewFlagSet("decompile", flag.ExitOnError)
	common := addCommonFlags(fs)
	classes := fs.String("class", "", "comma-separated top-level classes (default: all)")
	keepSynthetic := fs.Bool("keep-synthetic", false, "keep compiler-generated members")
	keepCtors := fs.Bool("keep-ctors", false, "keep default constructors")
	noFor := fs.Bool("no-for", false, "do not rewrite counting while loops as for loops")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, tr, ctx, err := common.setup(fs)
	if err != nil {
		return err
	}
	defer tr.Finish()

	if *keepSynthetic {
		cfg.KeepSynthetic = true
	}
	if *keepCtors {
		cfg.KeepDefaultCtors = true
	}
	if *noFor {
		f := false
		cfg.FoldFor = &f
	}

	du, _, err := readUnit(*common.in)
	if err != nil {
		return err
	}

	res, err := decompile.New(du, cfg).Run(ctx, splitList(*classes)...)
	if err != nil {
		return errors.Wrap(err, "decompile")
	}

	if err := os.MkdirAll(*common.out, 0755); err != nil {
		return errors.Wrap(err, "mkdir out")
	}

	index := &render.Report{Title: "decaf " + filepath.Base(*common.in), Methods: res.Methods, Diags: res.Diags}

	written, failed := 0, 0
	for _, u := range res.Units {
		if u.Err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", u.Top.Name, u.Err)
			index.Units = append(index.Units, render.ReportUnit{Name: u.Top.Name, Err: u.Err.Error()})
			failed++
			continue
		}
		path, err := output.WriteJava(*common.out, u.CU)
		if err != nil {
			return err
		}
		tr.V("files").Printw("wrote", "path", path)
		rel, _ := filepath.Rel(*common.out, path)
		index.Units = append(index.Units, render.ReportUnit{Name: u.Top.Name, Path: filepath.ToSlash(rel)})
		written++
	}

	report := &output.DiagsReport{Methods: res.Methods, Diags: res.Diags}
	for _, td := range du.TDs() {
		for _, md := range td.Methods {
			if md.Err != nil {
				report.Failed = append(report.Failed, output.FailedMethod{Method: md.ID(), Err: md.Err.Error()})
				index.Failed = append(index.Failed, render.ReportFailure{Method: md.ID(), Err: md.Err.Error()})
			}
		}
	}
	if err := output.WriteDiagsJSON(*common.out, report); err != nil {
		return err
	}

	idxPath := filepath.Join(*common.out, "index.html")
	f, err := os.Create(idxPath)
	if err != nil {
		return errors.Wrap(err, "create index.html")
	}
	render.WriteIndexHTML(f, index)
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "write index.html")
	}

	fmt.Fprintf(os.Stderr, "wrote %d units to %s (%d methods, %d failed, %d diagnostics)\n",
		written, *common.out, res.Methods, res.Failed, len(res.Diags))

	if failed > 0 {
		return errors.New("%d units failed", failed)
	}
	return nil
}
