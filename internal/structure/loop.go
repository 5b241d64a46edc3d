package structure

import (
	"sort"

	"decaf/internal/cfg"
)

// loop recognizes a natural loop headed at h: the blocks that reach a back
// edge into h without passing through h.
func (b *builder) loop(h int) *Struct {
	g := b.g

	var latches []int
	for _, e := range g.Blocks[h].Preds {
		if e.Kind == cfg.Catch || !g.Reachable(e.From) || !g.Dominates(h, e.From) || containsInt(latches, e.From) {
			continue
		}
		latches = append(latches, e.From)
	}
	if len(latches) == 0 {
		return nil
	}

	body := map[int]bool{h: true}
	work := append([]int(nil), latches...)
	for len(work) > 0 {
		n := work[len(work)-1]
		work = work[:len(work)-1]
		if body[n] {
			continue
		}
		body[n] = true
		for _, e := range g.Blocks[n].Preds {
			if g.Reachable(e.From) && !body[e.From] && g.Dominates(h, e.From) {
				work = append(work, e.From)
			}
		}
	}

	tail := latches[0]
	for _, l := range latches[1:] {
		if g.Blocks[l].PC > g.Blocks[tail].PC {
			tail = l
		}
	}

	var exits []int
	for n := range body {
		for _, e := range g.Blocks[n].Normal() {
			if !body[e.To] && !containsInt(exits, e.To) {
				exits = append(exits, e.To)
			}
		}
	}
	sort.Slice(exits, func(i, j int) bool { return b.pos[exits[i]] < b.pos[exits[j]] })

	s := &Struct{Kind: Loop, Head: h, Tail: tail, Follow: b.follow(h, body, exits, true)}
	s.Loop = b.loopKind(s, body, len(latches))
	s.Blocks = b.region(h, s.Follow)
	return s
}

// follow picks the block after a loop or try region given the targets of
// jumps leaving it. With several exits it is the first block every voting
// exit reaches. Jumps to enclosing loops and follows do not vote; with
// merging set, neither do exits that only lead to code they dominate
// (return, throw).
func (b *builder) follow(h int, inside map[int]bool, exits []int, merging bool) int {
	x := b.exits(h)
	var voting []int
	for _, e := range exits {
		if !x[e] {
			voting = append(voting, e)
		}
	}
	switch {
	case len(exits) == 0:
		return -1
	case len(voting) == 0:
		return exits[0]
	case len(voting) == 1:
		return voting[0]
	}

	var common map[int]bool
	for _, e := range voting {
		r := b.reachable(e)
		if merging && !b.merges(e, r) {
			continue
		}
		if common == nil {
			common = make(map[int]bool, len(r))
			for n := range r {
				common[n] = true
			}
			continue
		}
		for n := range common {
			if !r[n] {
				delete(common, n)
			}
		}
	}

	best := -1
	for n := range common {
		if inside[n] || x[n] || b.pos[n] <= b.pos[h] {
			continue
		}
		if best < 0 || b.pos[n] < b.pos[best] {
			best = n
		}
	}
	if best >= 0 {
		return best
	}

	for _, e := range voting {
		if best < 0 || len(b.reachable(e)) > len(b.reachable(best)) {
			best = e
		}
	}
	return best
}

// merges reports whether some block reachable from e is not dominated by
// it, that is, whether e's code joins other paths.
func (b *builder) merges(e int, r map[int]bool) bool {
	for n := range r {
		if !b.g.Dominates(e, n) {
			return true
		}
	}
	return false
}

func (b *builder) loopKind(s *Struct, body map[int]bool, latches int) LoopKind {
	g := b.g

	hb := g.Blocks[s.Head]
	if hb.Cond != nil && len(hb.Stmts) == 0 {
		t, f := hb.Succ(cfg.Taken), hb.Succ(cfg.Fall)
		switch {
		case body[f] && !body[t] && t == s.Follow:
			return While
		case body[t] && !body[f] && f == s.Follow:
			return WhileNot
		}
	}

	if latches == 1 {
		tb := g.Blocks[s.Tail]
		if tb.Cond != nil {
			t, f := tb.Succ(cfg.Taken), tb.Succ(cfg.Fall)
			switch {
			case t == s.Head && f == s.Follow:
				return DoWhile
			case f == s.Head && t == s.Follow:
				return DoWhileNot
			}
		}
	}
	return Endless
}

func containsInt(list []int, x int) bool {
	for _, y := range list {
		if y == x {
			return true
		}
	}
	return false
}
