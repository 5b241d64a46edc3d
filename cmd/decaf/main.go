package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "decompile":
		err = cmdDecompile(os.Args[2:])
	case "cfg":
		err = cmdCFG(os.Args[2:])
	case "callgraph":
		err = cmdCallgraph(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `decaf — JVM/Dalvik bytecode decompiler

Usage:
  decaf decompile --in <listing> --out <dir>    Decompile classes to Java source
  decaf cfg       --in <listing> --out <dir>    Structure-annotated CFG DOT per method
  decaf callgraph --in <listing> --out <dir>    Call graph and per-method CFG DOT
  decaf help                                     Show this help

Common flags:
  --config <file>     YAML configuration (mode, workers, max_passes, keep_synthetic,
                      keep_default_ctors, fold_for); flags override it
  --strict            fail a whole class on its first corrupt method
  --workers <n>       classes decompiled concurrently (default: number of CPUs)
  --v <topics>        verbose log topics, e.g. dataflow,dump_structs

decompile flags:
  --class <names>     comma-separated top-level classes (default: all)
  --keep-synthetic    keep compiler-generated members
  --keep-ctors        keep default constructors
  --no-for            do not rewrite counting while loops as for loops

cfg flags:
  --method <substr>   only methods whose "Owner.name(desc)" contains substr

The listing is the YAML or JSON operation listing written by a bytecode adapter.
decompile writes <pkg>/<Type>.java per unit plus diags.json and index.html.
`)
}
