package render

import (
	"strings"
	"testing"

	"decaf/internal/diag"
)

func TestWriteIndexHTML(t *testing.T) {
	d := diag.For("p.C.f()V")
	d.Add(3, diag.Structure, "goto")
	d.Add(4, diag.Structure, "goto")
	e := diag.For("p.D.g()V")
	e.Add(1, diag.TypeInference, "widened")

	r := &Report{
		Title:   "decaf <in.yaml>",
		Methods: 5,
		Units: []ReportUnit{
			{Name: "p.D", Path: "p/D.java"},
			{Name: "p.C", Err: "type p.C: corrupt"},
		},
		Failed: []ReportFailure{{Method: "p.C.h()V", Err: "corrupt"}},
		Diags:  append(d.Items(), e.Items()...),
	}

	var b strings.Builder
	WriteIndexHTML(&b, r)
	out := b.String()

	for _, want := range []string{
		"<title>decaf &lt;in.yaml&gt;</title>",
		`<tr><td>Units failed</td><td class="num">1</td></tr>`,
		`<a href="p/D.java">p.D</a>`,
		`<td class="err">type p.C: corrupt</td>`,
		"Structure (goto fallback)",
		`<tr><td class="code">p.C.f()V</td><td class="num">2</td></tr>`,
		"<h2>Failed Methods</h2>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q", want)
		}
	}
	if strings.Contains(out, "Unsupported bytecode") {
		t.Error("empty kind listed")
	}
	if i, j := strings.Index(out, "p.C.f()V"), strings.Index(out, "p.D.g()V"); i < 0 || j < i {
		t.Error("degraded methods not ordered by count")
	}
}

func TestWriteIndexHTML_Empty(t *testing.T) {
	var b strings.Builder
	WriteIndexHTML(&b, &Report{Title: "x"})
	out := b.String()

	if strings.Contains(out, "<h2>Diagnostics</h2>") || strings.Contains(out, "<h2>Units</h2>") {
		t.Errorf("empty sections written:\n%s", out)
	}
	if !strings.HasSuffix(out, "</body></html>\n") {
		t.Error("page not closed")
	}
}
