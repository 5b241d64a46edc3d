package unit

import (
	"sort"
	"strings"

	"decaf/internal/ast"
	"decaf/internal/types"
)

// imports collects the classes cu refers to and decides how each is printed.
// Classes declared in the unit and their simple names come first; among the
// rest the first class to claim a simple name gets it, later classes with
// the same simple name stay qualified.
func (b *builder) imports(cu *ast.CU) {
	names := make(map[string]string)
	taken := make(map[string]string) // simple name to the top-level class owning it

	locals := make([]string, 0, len(b.local))
	for q, path := range b.local {
		names[q] = path
		locals = append(locals, q)
	}
	sort.Strings(locals)
	for _, q := range locals {
		path := b.local[q]
		simple := path[strings.LastIndexByte(path, '.')+1:]
		if _, ok := taken[simple]; !ok {
			taken[simple] = q
		}
	}

	var order []string
	seen := make(map[string]bool)
	var add func(t *types.T)
	add = func(t *types.T) {
		if t == nil {
			return
		}
		switch t.Sort() {
		case types.SortArray:
			add(t.Elem())
		case types.SortParam:
			add(t.Generic())
			for _, a := range t.Args() {
				add(a)
			}
		case types.SortWildcard:
			bound, _ := t.Bound()
			add(bound)
		case types.SortVar:
			add(t.Super())
		case types.SortClass:
			if n := t.Name(); !seen[n] {
				seen[n] = true
				order = append(order, n)
			}
		}
	}
	all := func(list []*types.T) {
		for _, t := range list {
			add(t)
		}
	}

	ast.Walk(cu, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.TypeDecl:
			all(n.TypeParams)
			add(n.Super)
			all(n.Interfaces)
		case *ast.FieldDecl:
			add(n.T)
		case *ast.MethodDecl:
			all(n.TypeParams)
			add(n.Return)
			for _, p := range n.Params {
				add(p.T)
			}
			all(n.Throws)
		case *ast.LocalDecl:
			add(n.V.T)
		case *ast.Catch:
			all(n.Types)
		case *ast.Field:
			if n.Obj == nil {
				add(n.Owner)
			}
		case *ast.Call:
			if n.Obj == nil && !n.Ctor {
				add(n.Owner)
			}
		case *ast.New:
			add(n.T)
		case *ast.NewArray:
			add(n.T)
		case *ast.Cast:
			if !n.Implicit {
				add(n.T)
			}
		case *ast.InstanceOf:
			add(n.Of)
		case *ast.ClassLit:
			add(n.Of)
		}
		return true
	})

	imports := make(map[string]bool)
	for _, q := range order {
		if _, ok := names[q]; ok {
			continue
		}
		top, rest := q, ""
		pkgEnd := strings.LastIndexByte(q, '.')
		if i := strings.IndexByte(q[pkgEnd+1:], '$'); i > 0 {
			top, rest = q[:pkgEnd+1+i], q[pkgEnd+1+i:]
		}
		pkg, simple := "", top
		if pkgEnd >= 0 {
			pkg, simple = top[:pkgEnd], top[pkgEnd+1:]
		}

		if owner, ok := taken[simple]; ok && owner != top {
			names[q] = strings.ReplaceAll(q, "$", ".")
			continue
		}
		taken[simple] = top
		if pkg != "" && pkg != "java.lang" && pkg != cu.Package {
			imports[top] = true
		}
		names[q] = simple + strings.ReplaceAll(rest, "$", ".")
	}

	for imp := range imports {
		cu.Imports = append(cu.Imports, imp)
	}
	sort.Strings(cu.Imports)
	cu.Names = names
}
