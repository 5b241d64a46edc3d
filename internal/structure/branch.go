package structure

import (
	"sort"

	"decaf/internal/cfg"
	"decaf/internal/diag"
)

// ifAt recognizes a two-way conditional headed at h. Members[0] is the arm
// of the taken edge, Members[1] the fall-through arm.
func (b *builder) ifAt(h int) *Struct {
	g := b.g
	hb := g.Blocks[h]
	t, f := hb.Succ(cfg.Taken), hb.Succ(cfg.Fall)
	if t < 0 || f < 0 {
		return nil
	}

	follow := b.ifFollow(h, t, f)
	s := &Struct{Kind: If, Head: h, Follow: follow, Tail: -1}
	s.Blocks, s.Members = b.arms(h, follow, t, f)

	if follow < 0 {
		if l := b.leftover(h, s); l >= 0 {
			s.Follow = l
			s.Blocks, s.Members = b.arms(h, l, t, f)
		}
	}
	return s
}

func (b *builder) ifFollow(h, t, f int) int {
	g := b.g
	x := b.exits(h)

	switch {
	case t == f:
		return t
	case x[t] && x[f]:
		return -1
	case x[t]:
		return f
	case x[f]:
		return t
	}

	// Candidates are blocks both arms reach first.
	ct := append([]int{t}, g.DF(t)...)
	cf := append([]int{f}, g.DF(f)...)
	var cands []int
	for _, c := range ct {
		if containsInt(cf, c) && !x[c] && c != h && b.pos[c] > b.pos[h] {
			cands = append(cands, c)
		}
	}

	if len(cands) == 0 {
		dt, df := g.Dominates(h, t), g.Dominates(h, f)
		switch {
		case !dt && df:
			return t
		case dt && !df:
			return f
		case !dt && !df:
			b.d.Addf(g.Blocks[h].PC, diag.Structure, "conditional at pc %d has no common successor", g.Blocks[h].PC)
			return -1
		}
		// Both arms end without merging: keep the smaller one inside.
		rt, rf := len(b.reachable(t)), len(b.reachable(f))
		switch {
		case rt > rf:
			return t
		case rf > rt:
			return f
		case g.Blocks[t].PC > g.Blocks[f].PC:
			return t
		}
		return f
	}

	// Candidates dominated by h come first, lowest postorder number first.
	sort.Slice(cands, func(i, j int) bool {
		bi, bj := g.Blocks[cands[i]], g.Blocks[cands[j]]
		ii, ij := bi.IDom == h, bj.IDom == h
		if ii != ij {
			return ii
		}
		if ii {
			return bi.Post < bj.Post
		}
		return b.pos[cands[i]] < b.pos[cands[j]]
	})
	if len(cands) > 1 && g.Blocks[cands[1]].IDom == h {
		b.d.Addf(g.Blocks[h].PC, diag.Structure, "conditional at pc %d has %d candidate merge points", g.Blocks[h].PC, len(cands))
	}
	return cands[0]
}

// arms computes the region of a conditional and its two members.
func (b *builder) arms(h, follow, t, f int) ([]int, []Member) {
	g := b.g
	region := b.region(h, follow)
	in := make(map[int]bool, len(region))
	for _, id := range region {
		in[id] = true
	}

	members := []Member{{Entry: t}, {Entry: f}}
	for i, arm := range []int{t, f} {
		if !in[arm] || arm == h || arm == follow || (i == 1 && f == t) {
			continue
		}
		for _, id := range region {
			if g.Dominates(arm, id) {
				members[i].Blocks = append(members[i].Blocks, id)
			}
		}
	}
	return region, members
}

// leftover returns a block of s's region outside both arms that merges
// them, the follow the frontier search could not settle. -1 if none.
func (b *builder) leftover(h int, s *Struct) int {
	owned := make(map[int]bool)
	for _, m := range s.Members {
		for _, id := range m.Blocks {
			owned[id] = true
		}
	}
	best := -1
	for _, id := range s.Blocks {
		if id == h || owned[id] || b.g.Blocks[id].IDom != h {
			continue
		}
		if best < 0 || b.pos[id] < b.pos[best] {
			best = id
		}
	}
	return best
}

// switchAt recognizes a switch headed at h. Keys sharing a target form one
// member; members are ordered by entry PC.
func (b *builder) switchAt(h int) *Struct {
	g := b.g
	hb := g.Blocks[h]

	entries := make(map[int]bool)
	defTarget := -1
	for _, e := range hb.Normal() {
		if e.Kind != cfg.Case {
			continue
		}
		entries[e.To] = true
		if e.Default {
			defTarget = e.To
		}
	}

	follow := -1
	bestPreds := 0
	for _, id := range g.RPO() {
		blk := g.Blocks[id]
		if blk.IDom != h || entries[id] || b.t.Owner[id] != b.t.Owner[h] {
			continue
		}
		n := len(blk.NormalPreds())
		if follow < 0 || n > bestPreds || n == bestPreds && b.pos[id] < b.pos[follow] {
			follow, bestPreds = id, n
		}
	}
	if follow < 0 && defTarget >= 0 && len(g.Blocks[defTarget].NormalPreds()) >= 2 {
		follow = defTarget
	}

	s := &Struct{Kind: Switch, Head: h, Follow: follow, Tail: -1}
	s.Blocks = b.region(h, follow)

	for _, e := range hb.Normal() {
		if e.Kind != cfg.Case || (e.To == follow && len(e.Keys) == 0) {
			continue
		}
		s.Members = append(s.Members, Member{Entry: e.To, Keys: e.Keys, Default: e.Default && e.To != follow})
	}
	sort.SliceStable(s.Members, func(i, j int) bool {
		return g.Blocks[s.Members[i].Entry].PC < g.Blocks[s.Members[j].Entry].PC
	})

	var lost int
	for _, id := range s.Blocks {
		if id == h {
			continue
		}
		placed := false
		for i := range s.Members {
			m := &s.Members[i]
			if m.Entry != follow && g.Dominates(m.Entry, id) {
				m.Blocks = append(m.Blocks, id)
				placed = true
				break
			}
		}
		if !placed {
			lost++
		}
	}
	if lost > 0 {
		b.d.Addf(hb.PC, diag.Structure, "switch at pc %d: %d blocks belong to no case", hb.PC, lost)
	}
	return s
}
