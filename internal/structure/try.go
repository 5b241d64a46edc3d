package structure

import (
	"sort"

	"decaf/internal/diag"
)

type span struct{ start, end int }

// tries recognizes the try regions whose protected range starts at h.
// Handler entries sharing a range form one try; several caught types
// jumping to the same handler form one multi-catch member.
func (b *builder) tries(h int) []*Struct {
	g := b.g

	var spans []span
	groups := make(map[span][]int) // handler indexes
	for i, hd := range g.Handlers {
		if g.BlockOf(hd.Start) != h {
			continue
		}
		sp := span{hd.Start, hd.End}
		if _, ok := groups[sp]; !ok {
			spans = append(spans, sp)
		}
		groups[sp] = append(groups[sp], i)
	}

	var out []*Struct
	for _, sp := range spans {
		if s := b.try(h, sp, groups[sp]); s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (b *builder) try(h int, sp span, handlers []int) *Struct {
	g := b.g
	owner := b.t.Owner[h]

	var members []Member
	for _, i := range handlers {
		hd := g.Handlers[i]
		entry := g.BlockOf(hd.Handler)
		if entry < 0 || !g.Reachable(entry) {
			continue
		}
		found := false
		for k := range members {
			if members[k].Entry == entry {
				members[k].Catch = append(members[k].Catch, hd.Catch)
				found = true
			}
		}
		if !found {
			members = append(members, Member{Entry: entry, Catch: []string{hd.Catch}})
		}
	}
	if len(members) == 0 {
		return nil
	}
	for _, m := range members {
		if !g.Dominates(h, m.Entry) || b.t.Owner[m.Entry] != owner {
			b.d.Addf(g.Blocks[h].PC, diag.Structure, "handler at pc %d is not enclosed by its try", g.Blocks[m.Entry].PC)
			return nil
		}
	}

	// Inside: protected blocks and the code handlers dominate.
	inside := make(map[int]bool)
	for _, id := range g.RPO() {
		blk := g.Blocks[id]
		if b.t.Owner[id] != owner {
			continue
		}
		if blk.PC >= sp.start && blk.PC < sp.end && g.Dominates(h, id) {
			inside[id] = true
			continue
		}
		for _, m := range members {
			if g.Dominates(m.Entry, id) {
				inside[id] = true
			}
		}
	}

	var exits []int
	for id := range inside {
		for _, e := range g.Blocks[id].Normal() {
			if !inside[e.To] && !containsInt(exits, e.To) {
				exits = append(exits, e.To)
			}
		}
	}
	sort.Slice(exits, func(i, j int) bool { return b.pos[exits[i]] < b.pos[exits[j]] })

	s := &Struct{Kind: Try, Head: h, Tail: -1, Follow: b.follow(h, inside, exits, false)}
	s.Blocks = b.region(h, s.Follow)

	body := Member{Entry: h}
	for _, id := range s.Blocks {
		in := false
		for k := range members {
			if g.Dominates(members[k].Entry, id) {
				members[k].Blocks = append(members[k].Blocks, id)
				in = true
				break
			}
		}
		if !in {
			body.Blocks = append(body.Blocks, id)
		}
	}
	sort.SliceStable(members, func(i, j int) bool { return g.Blocks[members[i].Entry].PC < g.Blocks[members[j].Entry].PC })
	s.Members = append([]Member{body}, members...)
	return s
}
