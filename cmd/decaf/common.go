package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"decaf/internal/decl"
	"decaf/internal/decompile"
	"decaf/internal/ir"
	"decaf/internal/listing"
)

// commonFlags are the flags shared by every command.
type commonFlags struct {
	in      *string
	out     *string
	config  *string
	strict  *bool
	workers *int
	verbose *string
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		in:      fs.String("in", "", "operation listing (YAML or JSON)"),
		out:     fs.String("out", "", "output directory"),
		config:  fs.String("config", "", "YAML configuration file"),
		strict:  fs.Bool("strict", false, "fail a whole class on its first corrupt method"),
		workers: fs.Int("workers", 0, "classes decompiled concurrently (default: number of CPUs)"),
		verbose: fs.String("v", "", "verbose log topics"),
	}
}

// setup checks required flags, starts the log span of the command and
// loads the configuration. Flags set on the command line override the file.
func (c *commonFlags) setup(fs *flag.FlagSet) (decompile.Config, tlog.Span, context.Context, error) {
	var cfg decompile.Config

	if *c.in == "" {
		return cfg, tlog.Span{}, nil, errors.New("--in is required")
	}
	if *c.out == "" {
		return cfg, tlog.Span{}, nil, errors.New("--out is required")
	}

	tlog.DefaultLogger = tlog.New(tlog.NewConsoleWriter(os.Stderr, tlog.LstdFlags))
	if *c.verbose != "" {
		tlog.SetVerbosity(*c.verbose)
	}
	tr := tlog.Start("decaf: "+fs.Name(), "in", *c.in)
	ctx := tlog.ContextWithSpan(context.Background(), tr)

	if *c.config != "" {
		var err error
		cfg, err = decompile.LoadConfig(*c.config)
		if err != nil {
			tr.Finish()
			return cfg, tlog.Span{}, nil, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "strict":
			if *c.strict {
				cfg.Mode = "strict"
			}
		case "workers":
			cfg.Workers = *c.workers
		}
	})

	return cfg, tr, ctx, nil
}

// readUnit reads the listing into a new decompilation unit.
func readUnit(path string) (*decl.DU, []*ir.Class, error) {
	classes, err := listing.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read listing")
	}

	du := decl.NewDU()
	if err := listing.Populate(du, classes); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	fmt.Fprintf(os.Stderr, "read %d classes (%d loaded)\n", len(classes), len(du.Names()))

	return du, classes, nil
}

// fileName turns a method into a file name: "f(I)I" becomes "f_I_I".
func fileName(m *ir.Method) string {
	return safeName(m.Name + m.Desc)
}

func safeName(s string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '(', ')', '/', ';', '[', '$':
			return '_'
		}
		return r
	}, s)
	return strings.Trim(name, "_")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
