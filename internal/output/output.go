// Package output writes decompilation results to files.
package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/nikandfor/errors"

	"decaf/internal/ast"
	"decaf/internal/diag"
	"decaf/internal/javasrc"
)

// JavaPath returns the path of a unit's source file below dir:
// <dir>/<package dirs>/<Type>.java.
func JavaPath(dir string, cu *ast.CU) string {
	name := "unit"
	if len(cu.Types) != 0 {
		name = cu.Types[0].Name
	}
	pkg := filepath.FromSlash(strings.ReplaceAll(cu.Package, ".", "/"))
	return filepath.Join(dir, pkg, name+".java")
}

// WriteJava writes the unit as Java source to JavaPath(dir, cu) and returns
// the path.
func WriteJava(dir string, cu *ast.CU) (string, error) {
	path := JavaPath(dir, cu)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", errors.Wrap(err, "output: mkdir")
	}

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "output: create %s", path)
	}
	defer f.Close()

	if err := javasrc.Write(f, cu); err != nil {
		return "", errors.Wrap(err, "output: %s", path)
	}
	return path, f.Close()
}

// WriteDOT writes a DOT graph to dot/<name>.dot.
// name may contain path separators (e.g., "p.C/f") for directory grouping.
func WriteDOT(dir string, name string, dot string) error {
	path := filepath.Join(dir, "dot", name+".dot")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "output: mkdir dot")
	}
	return os.WriteFile(path, []byte(dot), 0644)
}

// DiagsReport is the content of diags.json.
type DiagsReport struct {
	Methods int            `json:"methods"`
	Failed  []FailedMethod `json:"failed,omitempty"`
	Counts  map[string]int `json:"counts"`
	Diags   []diag.Diag    `json:"diags"`
}

// FailedMethod is a method whose body could not be decompiled.
type FailedMethod struct {
	Method string `json:"method"`
	Err    string `json:"err"`
}

// WriteDiagsJSON writes the report to diags.json. Counts is filled from
// r.Diags.
func WriteDiagsJSON(dir string, r *DiagsReport) error {
	r.Counts = make(map[string]int)
	for _, d := range r.Diags {
		r.Counts[string(d.Kind)]++
	}
	if r.Diags == nil {
		r.Diags = []diag.Diag{}
	}
	return writeJSON(filepath.Join(dir, "diags.json"), r)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "output: create %s", path)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "output: encode %s", path)
	}
	return nil
}
