package render

import (
	"fmt"
	"strings"

	"decaf/internal/cfg"
	"decaf/internal/structure"
)

// StructDOT renders a method's basic-block CFG as DOT. Each basic block is a
// node; edges represent control flow. When tree is not nil every structure
// becomes a nested cluster around the blocks it owns. Entry block is
// highlighted. Folded blocks are left out.
func StructDOT(g *cfg.Graph, tree *structure.Tree, t Theme) string {
	if len(g.Blocks) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("digraph cfg {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  nodesep=0.3;\n")
	b.WriteString("  ranksep=0.4;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Courier,monospace\", fontsize=8, fontcolor=%q, margin=\"0.08,0.04\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	fmt.Fprintf(&b, "  edge [penwidth=0.7, arrowsize=0.5, arrowhead=vee];\n")
	fmt.Fprintf(&b, "  labelloc=t;\n  labeljust=l;\n")
	fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"9\" color=\"%s\">%s</font>>;\n",
		t.TextColor, dotEscape(g.Name))
	b.WriteByte('\n')

	if tree == nil {
		for _, blk := range g.Blocks {
			if !blk.Folded {
				writeBlock(&b, g, blk, t, "  ")
			}
		}
	} else {
		writeStruct(&b, g, tree, 0, t, "  ")
		// Unreachable blocks have no owner.
		for _, blk := range g.Blocks {
			if !blk.Folded && tree.Owner[blk.ID] < 0 {
				writeBlock(&b, g, blk, t, "  ")
			}
		}
	}
	b.WriteByte('\n')

	// Render edges.
	for _, blk := range g.Blocks {
		if blk.Folded {
			continue
		}
		from := fmt.Sprintf("bb%d", blk.ID)
		for _, e := range blk.Succs {
			to := fmt.Sprintf("bb%d", e.To)
			color, style := t.EdgeJump, "solid"
			switch e.Kind {
			case cfg.Taken:
				color = t.EdgeTaken
			case cfg.Fall:
				color = t.EdgeFall
			case cfg.Case:
				color = t.EdgeCase
			case cfg.Catch:
				color, style = t.EdgeCatch, "dashed"
			}
			if e.Kind != cfg.Catch && g.IsBackEdge(e) {
				color, style = t.EdgeBack, "bold"
			}
			label := ""
			if l := e.Label(); l != "" {
				label = fmt.Sprintf(", label=<<font point-size=\"7\" color=\"%s\">%s</font>>", color, dotEscape(truncLabel(l, 40)))
			}
			fmt.Fprintf(&b, "  %s -> %s [color=%q, style=%s%s];\n", from, to, color, style, label)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// writeStruct writes the blocks owned by structure id, then its children as
// clusters. The root is written without a cluster.
func writeStruct(b *strings.Builder, g *cfg.Graph, tree *structure.Tree, id int, t Theme, indent string) {
	s := tree.Structs[id]
	inner := indent
	if s.Kind != structure.Method {
		inner = indent + "  "
		name := s.Kind.String()
		if s.Kind == structure.Loop {
			name = s.Loop.String()
		}
		fmt.Fprintf(b, "%ssubgraph cluster_s%d {\n", indent, s.ID)
		fmt.Fprintf(b, "%sstyle=rounded;\n%scolor=%q;\n", inner, inner, clusterColor(s.Kind, t))
		fmt.Fprintf(b, "%slabel=<<font point-size=\"7\" color=\"%s\">%s #%d</font>>;\n", inner, t.ClusterLabel, name, s.ID)
	}

	for _, bid := range s.Blocks {
		blk := g.Blocks[bid]
		if !blk.Folded && tree.Owner[bid] == id {
			writeBlock(b, g, blk, t, inner)
		}
	}
	for _, c := range s.Children {
		writeStruct(b, g, tree, c, t, inner)
	}

	if s.Kind != structure.Method {
		fmt.Fprintf(b, "%s}\n", indent)
	}
}

func clusterColor(k structure.Kind, t Theme) string {
	switch k {
	case structure.Loop:
		return t.ClusterLoop
	case structure.If:
		return t.ClusterIf
	case structure.Switch:
		return t.ClusterSwitch
	}
	return t.ClusterTry
}

func writeBlock(b *strings.Builder, g *cfg.Graph, blk *cfg.Block, t Theme, indent string) {
	// Build label: one line per operation.
	var lines []string
	for _, op := range g.Ops[blk.Start:blk.End] {
		lines = append(lines, dotEscape(truncLabel(strings.TrimSpace(op.String()), 60)))
	}
	// Truncate long blocks.
	if len(lines) > 12 {
		kept := append(lines[:5:5], fmt.Sprintf("... (%d more)", len(lines)-10))
		lines = append(kept, lines[len(lines)-5:]...)
	}

	label := fmt.Sprintf("B%d<br align=\"left\"/>", blk.ID)
	label += strings.Join(lines, "<br align=\"left\"/>")
	label += "<br align=\"left\"/>"

	attrs := ""
	if blk.ID == 0 {
		attrs = fmt.Sprintf(", penwidth=1.5, color=%q", t.EntryBorder)
	}
	switch {
	case blk.Handler:
		attrs += fmt.Sprintf(", fillcolor=%q", t.HandlerFill)
	case blk.Term:
		attrs += fmt.Sprintf(", fillcolor=%q", t.TermFill)
	}
	fmt.Fprintf(b, "%sbb%d [label=<%s>%s];\n", indent, blk.ID, label, attrs)
}
