package unit

import (
	"sort"
	"strings"

	"github.com/coregx/coregex"

	"decaf/internal/decl"
	"decaf/internal/ir"
)

var (
	leadDigits     = coregex.MustCompile(`^[0-9]+`)
	syntheticField = coregex.MustCompile(`^(this\$[0-9]+|val\$.+|\$assertionsDisabled|\$VALUES|\$SwitchMap\$.+)$`)
	keptSynthetic  = coregex.MustCompile(`^(lambda|access)\$`)
	capturedField  = coregex.MustCompile(`^val\$`)
	outerField     = coregex.MustCompile(`^this\$[0-9]+$`)
)

type nestKind uint8

const (
	member nestKind = iota
	local
	anonymous
)

// nest records where a class is declared inside another class of the unit.
type nest struct {
	outer string
	name  string // simple name, empty for anonymous classes
	kind  nestKind
	flags ir.Flags
}

// nesting finds the enclosing class of every nested class in du. The
// InnerClasses attribute decides where present, the '$' naming convention
// otherwise. Classes whose outer class is not part of du stay top level.
func nesting(du *decl.DU) (map[string]nest, map[string][]string) {
	tds := du.TDs()
	declared := make(map[string]nest)
	for _, td := range tds {
		for _, ic := range td.Class.InnerClasses {
			if _, ok := declared[ic.Inner]; ok || ic.Outer == "" {
				continue
			}
			declared[ic.Inner] = nest{outer: ic.Outer, name: ic.Name, kind: member, flags: ic.Flags}
		}
	}

	out := make(map[string]nest)
	children := make(map[string][]string)
	for _, td := range tds {
		n, ok := declared[td.Name]
		if !ok {
			i := strings.LastIndexByte(td.Name, '$')
			if i <= 0 || i == len(td.Name)-1 {
				continue
			}
			n = nest{outer: td.Name[:i], name: td.Name[i+1:], kind: member, flags: td.Class.Flags}
			if digits := leadDigits.FindStringIndex(n.name); digits != nil {
				n.name = n.name[digits[1]:]
				n.kind = local
				if n.name == "" {
					n.kind = anonymous
				}
			}
		}
		if du.TD(n.outer) == nil {
			continue
		}
		out[td.Name] = n
		children[n.outer] = append(children[n.outer], td.Name)
	}
	for _, list := range children {
		sort.Strings(list)
	}
	return out, children
}
