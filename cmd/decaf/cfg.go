package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/nikandfor/errors"

	"decaf/internal/decompile"
	"decaf/internal/output"
	"decaf/internal/render"
)

func cmdCFG(args []string) error {
	fs := flag.NewFlagSet("cfg", flag.ExitOnError)
	common := addCommonFlags(fs)
	method := fs.String("method", "", "only methods whose ID contains this string")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, tr, ctx, err := common.setup(fs)
	if err != nil {
		return err
	}
	defer tr.Finish()

	du, _, err := readUnit(*common.in)
	if err != nil {
		return err
	}

	// Units are assembled too; the graphs are read back from the methods.
	if _, err := decompile.New(du, cfg).Run(ctx); err != nil {
		return errors.Wrap(err, "decompile")
	}

	count, skipped := 0, 0
	for _, td := range du.TDs() {
		for _, md := range td.Methods {
			if *method != "" && !strings.Contains(md.ID(), *method) {
				continue
			}
			if md.CFG == nil {
				skipped++
				continue
			}
			dot := render.StructDOT(md.CFG, md.Tree, render.NASA)
			if err := output.WriteDOT(*common.out, td.Name+"/"+fileName(md.Method), dot); err != nil {
				return errors.Wrap(err, "write cfg dot %s", md.ID())
			}
			count++
		}
	}

	fmt.Fprintf(os.Stderr, "wrote %d CFG DOTs to %s (%d methods without a graph)\n", count, *common.out, skipped)
	return nil
}
