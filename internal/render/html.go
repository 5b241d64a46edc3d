package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"decaf/internal/diag"
)

// Report summarizes one decompile run for WriteIndexHTML.
type Report struct {
	Title   string
	Units   []ReportUnit
	Methods int
	Failed  []ReportFailure
	Diags   []diag.Diag
}

// ReportUnit is one top-level class. Path is relative to the index page and
// empty when the unit failed.
type ReportUnit struct {
	Name string
	Path string
	Err  string
}

type ReportFailure struct {
	Method string
	Err    string
}

// WriteIndexHTML writes a small HTML page linking every written unit and
// summarizing failures and diagnostics.
func WriteIndexHTML(w io.Writer, r *Report) {
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: "Helvetica Neue", Helvetica, Arial, sans-serif; font-size: 14px; color: #1A1A1A; background: #F5F5F5; margin: 2em; max-width: 900px; }
h1 { font-size: 18px; font-weight: 600; margin-bottom: 0.5em; }
h2 { font-size: 14px; font-weight: 600; margin-top: 1.5em; border-bottom: 1px solid #ddd; padding-bottom: 4px; }
table { border-collapse: collapse; margin: 0.5em 0; }
th, td { text-align: left; padding: 3px 12px 3px 0; font-size: 13px; }
th { font-weight: 600; }
td.num { text-align: right; font-variant-numeric: tabular-nums; }
.kind { display: inline-block; width: 10px; height: 10px; border-radius: 2px; margin-right: 4px; vertical-align: middle; }
a { color: #0B3D91; }
.bar { height: 8px; border-radius: 2px; display: inline-block; vertical-align: middle; }
.code { font-family: "Courier New", monospace; font-size: 12px; }
.err { color: #FC3D21; }
</style>
</head>
<body>
`, htmlEscape(r.Title))

	fmt.Fprintf(w, "<h1>%s</h1>\n", htmlEscape(r.Title))

	failedUnits := 0
	for _, u := range r.Units {
		if u.Err != "" {
			failedUnits++
		}
	}

	fmt.Fprintln(w, "<h2>Summary</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintf(w, "<tr><td>Units</td><td class=\"num\">%d</td></tr>\n", len(r.Units))
	fmt.Fprintf(w, "<tr><td>Units failed</td><td class=\"num\">%d</td></tr>\n", failedUnits)
	fmt.Fprintf(w, "<tr><td>Methods</td><td class=\"num\">%d</td></tr>\n", r.Methods)
	fmt.Fprintf(w, "<tr><td>Methods failed</td><td class=\"num\">%d</td></tr>\n", len(r.Failed))
	fmt.Fprintf(w, "<tr><td>Diagnostics</td><td class=\"num\">%d</td></tr>\n", len(r.Diags))
	fmt.Fprintln(w, "</table>")

	writeDiagKinds(w, r.Diags)

	if len(r.Units) > 0 {
		units := append([]ReportUnit(nil), r.Units...)
		sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })

		fmt.Fprintln(w, "<h2>Units</h2>")
		fmt.Fprintln(w, "<table>")
		for _, u := range units {
			if u.Err != "" {
				fmt.Fprintf(w, "<tr><td class=\"code\">%s</td><td class=\"err\">%s</td></tr>\n", htmlEscape(u.Name), htmlEscape(u.Err))
				continue
			}
			fmt.Fprintf(w, "<tr><td class=\"code\"><a href=\"%s\">%s</a></td><td></td></tr>\n", htmlEscape(u.Path), htmlEscape(u.Name))
		}
		fmt.Fprintln(w, "</table>")
	}

	if len(r.Failed) > 0 {
		fmt.Fprintln(w, "<h2>Failed Methods</h2>")
		fmt.Fprintln(w, "<table>")
		fmt.Fprintln(w, "<tr><th>Method</th><th>Error</th></tr>")
		for _, f := range r.Failed {
			fmt.Fprintf(w, "<tr><td class=\"code\">%s</td><td>%s</td></tr>\n", htmlEscape(f.Method), htmlEscape(f.Err))
		}
		fmt.Fprintln(w, "</table>")
	}

	writeDegraded(w, r.Diags)

	fmt.Fprintln(w, "</body></html>")
}

func writeDiagKinds(w io.Writer, ds []diag.Diag) {
	if len(ds) == 0 {
		return
	}

	counts := make(map[diag.Kind]int)
	for _, d := range ds {
		counts[d.Kind]++
	}

	nasa := NASA
	kinds := []struct {
		kind  diag.Kind
		label string
		color string
	}{
		{diag.Structure, "Structure (goto fallback)", nasa.EdgeTaken},
		{diag.TypeInference, "Type inference", nasa.EdgeCase},
		{diag.Unsupported, "Unsupported bytecode", nasa.EdgeFall},
	}

	fmt.Fprintln(w, "<h2>Diagnostics</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintln(w, "<tr><th></th><th>Kind</th><th>Count</th><th></th></tr>")
	for _, k := range kinds {
		n := counts[k.kind]
		if n == 0 {
			continue
		}
		barW := n * 200 / len(ds)
		if barW < 2 {
			barW = 2
		}
		fmt.Fprintf(w, "<tr><td><span class=\"kind\" style=\"background:%s\"></span></td><td>%s</td><td class=\"num\">%d</td><td><span class=\"bar\" style=\"width:%dpx;background:%s\"></span></td></tr>\n",
			k.color, k.label, n, barW, k.color)
	}
	fmt.Fprintln(w, "</table>")
}

// writeDegraded lists the methods with the most diagnostics.
func writeDegraded(w io.Writer, ds []diag.Diag) {
	per := make(map[string]int)
	for _, d := range ds {
		per[d.Method]++
	}
	if len(per) == 0 {
		return
	}

	type methodCount struct {
		name  string
		count int
	}
	top := make([]methodCount, 0, len(per))
	for n, c := range per {
		top = append(top, methodCount{n, c})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].count != top[j].count {
			return top[i].count > top[j].count
		}
		return top[i].name < top[j].name
	})

	limit := 20
	if len(top) < limit {
		limit = len(top)
	}

	fmt.Fprintln(w, "<h2>Most Degraded Methods</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintln(w, "<tr><th>Method</th><th>Diagnostics</th></tr>")
	for _, mc := range top[:limit] {
		fmt.Fprintf(w, "<tr><td class=\"code\">%s</td><td class=\"num\">%d</td></tr>\n", htmlEscape(mc.name), mc.count)
	}
	if len(top) > limit {
		fmt.Fprintf(w, "<tr><td>... and %d more</td></tr>\n", len(top)-limit)
	}
	fmt.Fprintln(w, "</table>")
}

func htmlEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}
