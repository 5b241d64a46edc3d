package cfg

import "sort"

// Recompute renumbers blocks in postorder and recomputes dominators and
// dominance frontiers. It must be called after edges change.
func (g *Graph) Recompute() {
	for _, b := range g.Blocks {
		b.Post, b.IDom = -1, -1
	}
	g.rpo = g.rpo[:0]
	if len(g.Blocks) == 0 {
		return
	}

	// Iterative DFS. Successors with higher PCs are visited first so the
	// reverse postorder follows source order where the code is structured.
	type frame struct {
		b    int
		next int
		succ []int
	}
	visited := make([]bool, len(g.Blocks))
	post := 0
	var order []int
	stack := []frame{{b: 0, succ: g.dfsSuccs(0)}}
	visited[0] = true
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.succ) {
			s := top.succ[top.next]
			top.next++
			if !visited[s] {
				visited[s] = true
				stack = append(stack, frame{b: s, succ: g.dfsSuccs(s)})
			}
			continue
		}
		g.Blocks[top.b].Post = post
		post++
		order = append(order, top.b)
		stack = stack[:len(stack)-1]
	}
	for i := len(order) - 1; i >= 0; i-- {
		g.rpo = append(g.rpo, order[i])
	}

	g.dominators()
	g.frontiers()
}

func (g *Graph) dfsSuccs(b int) []int {
	var out []int
	seen := map[int]bool{}
	for _, e := range g.Blocks[b].Succs {
		if !seen[e.To] {
			seen[e.To] = true
			out = append(out, e.To)
		}
	}
	sort.Slice(out, func(i, j int) bool { return g.Blocks[out[i]].PC > g.Blocks[out[j]].PC })
	return out
}

// dominators is the iterative algorithm of Cooper, Harvey and Kennedy over
// the reverse postorder. Exception edges count as ordinary edges.
func (g *Graph) dominators() {
	idom := make([]int, len(g.Blocks))
	for i := range idom {
		idom[i] = -1
	}
	entry := g.rpo[0]
	idom[entry] = entry

	for changed := true; changed; {
		changed = false
		for _, b := range g.rpo[1:] {
			newIdom := -1
			for _, e := range g.Blocks[b].Preds {
				p := e.From
				if idom[p] == -1 {
					continue
				}
				if newIdom == -1 {
					newIdom = p
				} else {
					newIdom = g.intersect(idom, p, newIdom)
				}
			}
			if newIdom != -1 && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	for _, b := range g.rpo {
		if b != entry {
			g.Blocks[b].IDom = idom[b]
		}
	}
}

func (g *Graph) intersect(idom []int, b1, b2 int) int {
	for b1 != b2 {
		for g.Blocks[b1].Post < g.Blocks[b2].Post {
			b1 = idom[b1]
		}
		for g.Blocks[b2].Post < g.Blocks[b1].Post {
			b2 = idom[b2]
		}
	}
	return b1
}

func (g *Graph) frontiers() {
	g.df = make([][]int, len(g.Blocks))
	for _, b := range g.rpo {
		blk := g.Blocks[b]
		preds := g.reachablePreds(b)
		if len(preds) < 2 {
			continue
		}
		for _, p := range preds {
			for runner := p; runner != -1 && runner != blk.IDom; runner = g.Blocks[runner].IDom {
				if !contains(g.df[runner], b) {
					g.df[runner] = append(g.df[runner], b)
				}
				if runner == g.rpo[0] {
					break
				}
			}
		}
	}
}

func (g *Graph) reachablePreds(b int) []int {
	var out []int
	for _, e := range g.Blocks[b].Preds {
		if g.Blocks[e.From].Post >= 0 && !contains(out, e.From) {
			out = append(out, e.From)
		}
	}
	return out
}

func contains(list []int, x int) bool {
	for _, y := range list {
		if y == x {
			return true
		}
	}
	return false
}

// RPO returns reachable block IDs in reverse postorder.
func (g *Graph) RPO() []int { return g.rpo }

// DF returns the dominance frontier of b.
func (g *Graph) DF(b int) []int { return g.df[b] }

// Reachable reports whether b is reachable from the entry.
func (g *Graph) Reachable(b int) bool { return g.Blocks[b].Post >= 0 }

// Dominates reports whether a dominates b. Every block dominates itself.
func (g *Graph) Dominates(a, b int) bool {
	if !g.Reachable(a) || !g.Reachable(b) {
		return false
	}
	for b != -1 {
		if a == b {
			return true
		}
		b = g.Blocks[b].IDom
	}
	return false
}

// IsBackEdge reports whether e targets a block dominating its source.
func (g *Graph) IsBackEdge(e *Edge) bool {
	return g.Dominates(e.To, e.From)
}
