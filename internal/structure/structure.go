// Package structure recognizes loops, conditionals, switches and try
// regions in a translated control flow graph and arranges them in a tree
// where every reachable block has exactly one innermost owner.
package structure

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nikandfor/tlog"

	"decaf/internal/cfg"
	"decaf/internal/diag"
)

// Kind is the kind of a structure.
type Kind uint8

const (
	Method Kind = iota // root, the whole method body
	Loop
	If
	Switch
	Try
)

var kindNames = [...]string{"method", "loop", "if", "switch", "try"}

func (k Kind) String() string { return kindNames[k] }

// LoopKind is the shape of a loop.
type LoopKind uint8

const (
	Endless    LoopKind = iota // while (true), exits are breaks
	While                      // head tests, body on the fall-through edge
	WhileNot                   // head tests, body on the taken edge
	DoWhile                    // tail tests, taken edge continues
	DoWhileNot                 // tail tests, fall-through edge continues
)

var loopNames = [...]string{"endless", "while", "while-not", "do-while", "do-while-not"}

func (k LoopKind) String() string { return loopNames[k] }

// Member is one arm of a conditional, one case group of a switch, or the
// body and handlers of a try.
type Member struct {
	Entry   int // entry block, -1 for an empty arm
	Keys    []int
	Default bool
	Catch   []string // handler types, "" for catch-any
	Blocks  []int
}

// Struct is one recognized structure. Blocks holds its whole region,
// including the head and blocks of nested structures.
type Struct struct {
	ID     int
	Kind   Kind
	Parent int
	Head   int
	Follow int // block control reaches after the structure, -1 if none

	Blocks   []int
	Members  []Member
	Children []int

	Loop LoopKind
	Tail int // Loop: source of the last back edge
}

// Tree is the structure tree of one method. Structs[0] is the root.
type Tree struct {
	Structs []*Struct
	Owner   []int // innermost structure of each block, -1 if unreachable

	heads map[int][]int
}

// Headed returns the structures headed at block b, outermost first.
func (t *Tree) Headed(b int) []int { return t.heads[b] }

// Contains reports whether structure s contains block b.
func (t *Tree) Contains(s, b int) bool {
	if b < 0 || b >= len(t.Owner) {
		return false
	}
	for o := t.Owner[b]; o >= 0; o = t.Structs[o].Parent {
		if o == s {
			return true
		}
	}
	return false
}

type builder struct {
	g *cfg.Graph
	d *diag.Diags
	t *Tree

	reach map[int]map[int]bool
	pos   map[int]int // reverse postorder position
}

// Build recognizes the structures of g. Conflicting or ambiguous shapes are
// reported to d and resolved by the most conservative choice; the tree is
// always complete.
func Build(ctx context.Context, g *cfg.Graph, d *diag.Diags) (t *Tree, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "structure", "method", g.Name)
	defer tr.Finish("err", &err)

	t = &Tree{Owner: make([]int, len(g.Blocks)), heads: make(map[int][]int)}
	for i := range t.Owner {
		t.Owner[i] = -1
	}
	root := &Struct{ID: 0, Kind: Method, Parent: -1, Follow: -1, Tail: -1}
	for _, id := range g.RPO() {
		t.Owner[id] = 0
		root.Blocks = append(root.Blocks, id)
	}
	t.Structs = append(t.Structs, root)

	b := &builder{g: g, d: d, t: t, reach: make(map[int]map[int]bool), pos: make(map[int]int)}
	for i, id := range g.RPO() {
		b.pos[id] = i
	}
	b.irreducible()

	for _, h := range g.RPO() {
		b.structure(h)
	}

	if tr.If("dump_structs") {
		tr.Printw("structures", "tree", t.String())
	}
	return t, nil
}

// add links c under the current owner of its head and claims its region,
// recomputed against that owner.
func (b *builder) add(c *Struct) {
	t := b.t
	parent := t.Owner[c.Head]
	c.ID = len(t.Structs)
	c.Parent = parent
	c.Blocks = b.clip(c.Blocks, parent)
	for i := range c.Members {
		c.Members[i].Blocks = b.clip(c.Members[i].Blocks, parent)
	}
	if len(c.Blocks) == 0 {
		return
	}

	t.Structs = append(t.Structs, c)
	t.Structs[parent].Children = append(t.Structs[parent].Children, c.ID)
	t.heads[c.Head] = append(t.heads[c.Head], c.ID)
	for _, id := range c.Blocks {
		t.Owner[id] = c.ID
	}
}

// clip keeps the blocks currently owned by s.
func (b *builder) clip(blocks []int, s int) []int {
	out := blocks[:0:0]
	for _, id := range blocks {
		if b.t.Owner[id] == s {
			out = append(out, id)
		}
	}
	return out
}

// structure adds the structures headed at h. Loops and try regions come
// first, larger regions outside smaller ones; a conditional or switch at h
// nests inside them.
func (b *builder) structure(h int) {
	blk := b.g.Blocks[h]

	outer := b.tries(h)
	loop := b.loop(h)
	if loop != nil {
		outer = append(outer, loop)
	}
	sort.SliceStable(outer, func(i, j int) bool { return len(outer[i].Blocks) > len(outer[j].Blocks) })
	for _, c := range outer {
		b.add(c)
	}

	headTest := loop != nil && (loop.Loop == While || loop.Loop == WhileNot)
	switch {
	case blk.Switch != nil:
		if s := b.switchAt(h); s != nil {
			b.add(s)
		}
	case blk.Cond != nil && !headTest && !b.isLoopTail(h):
		if s := b.ifAt(h); s != nil {
			b.add(s)
		}
	}
}

// isLoopTail reports whether h is the testing tail of an enclosing do-while.
func (b *builder) isLoopTail(h int) bool {
	for s := b.t.Owner[h]; s >= 0; s = b.t.Structs[s].Parent {
		st := b.t.Structs[s]
		if st.Kind == Loop && st.Tail == h && (st.Loop == DoWhile || st.Loop == DoWhileNot) {
			return true
		}
	}
	return false
}

// region returns the blocks owned by the current owner of h that h
// dominates, less the follow and the blocks it dominates when the follow
// lies below h.
func (b *builder) region(h, follow int) []int {
	g := b.g
	owner := b.t.Owner[h]
	cut := follow >= 0 && follow != h && g.Dominates(h, follow)
	var out []int
	for _, id := range g.RPO() {
		if b.t.Owner[id] != owner || !g.Dominates(h, id) {
			continue
		}
		if cut && g.Dominates(follow, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// exits returns the block IDs that jumps leaving the enclosing structures
// of h target: loop heads and follows, switch and try follows.
func (b *builder) exits(h int) map[int]bool {
	x := make(map[int]bool)
	for s := b.t.Owner[h]; s >= 0; s = b.t.Structs[s].Parent {
		st := b.t.Structs[s]
		if st.Kind == Loop {
			x[st.Head] = true
		}
		if st.Follow >= 0 && st.Kind != If {
			x[st.Follow] = true
		}
	}
	return x
}

// reachable returns the blocks reachable from id along normal edges.
func (b *builder) reachable(id int) map[int]bool {
	if r, ok := b.reach[id]; ok {
		return r
	}
	r := map[int]bool{id: true}
	work := []int{id}
	for len(work) > 0 {
		n := work[len(work)-1]
		work = work[:len(work)-1]
		for _, e := range b.g.Blocks[n].Normal() {
			if !r[e.To] {
				r[e.To] = true
				work = append(work, e.To)
			}
		}
	}
	b.reach[id] = r
	return r
}

func (b *builder) irreducible() {
	g := b.g
	for _, id := range g.RPO() {
		for _, e := range g.Blocks[id].Normal() {
			if b.pos[e.To] <= b.pos[id] && !g.Dominates(e.To, id) {
				b.d.Addf(g.Blocks[id].PC, diag.Structure, "irreducible jump to pc %d", g.Blocks[e.To].PC)
			}
		}
	}
}

func (t *Tree) String() string {
	var sb strings.Builder
	var walk func(id, depth int)
	walk = func(id, depth int) {
		s := t.Structs[id]
		fmt.Fprintf(&sb, "%s%s#%d head=%d follow=%d", strings.Repeat("  ", depth), s.Kind, s.ID, s.Head, s.Follow)
		if s.Kind == Loop {
			fmt.Fprintf(&sb, " %s tail=%d", s.Loop, s.Tail)
		}
		fmt.Fprintf(&sb, " blocks=%v\n", s.Blocks)
		for _, c := range s.Children {
			walk(c, depth+1)
		}
	}
	walk(0, 0)
	return sb.String()
}
