package unit

import (
	"context"
	"strings"
	"testing"

	"decaf/internal/ast"
	"decaf/internal/decl"
	"decaf/internal/ir"
	"decaf/internal/javasrc"
)

func add(t *testing.T, du *decl.DU, c *ir.Class) *decl.TD {
	t.Helper()
	td, err := du.Add(c)
	if err != nil {
		t.Fatalf("Add(%s): %v", c.Name, err)
	}
	return td
}

func body(stmts ...ast.Stmt) *ast.Block { return &ast.Block{Stmts: stmts} }

func assign(l, r ast.Expr) ast.Stmt {
	return &ast.ExprStmt{X: &ast.Assign{Op: "=", L: l, R: r}}
}

func assemble(t *testing.T, du *decl.DU, top *decl.TD, opts Options) string {
	t.Helper()
	cu, err := New(du, opts).Assemble(context.Background(), top)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return javasrc.Format(cu)
}

func TestAssemble_NestedAndImports(t *testing.T) {
	du := decl.NewDU()
	c := du.Cache()
	outer := add(t, du, &ir.Class{
		Name: "p.Outer", Super: "java.lang.Object", Flags: ir.AccPublic,
		Fields: []*ir.Field{
			{Name: "MAX", Desc: "I", Flags: ir.AccPublic | ir.AccStatic | ir.AccFinal, Value: 10},
			{Name: "items", Desc: "Ljava/util/List;", Flags: ir.AccStatic},
			{Name: "$assertionsDisabled", Desc: "Z", Flags: ir.AccStatic | ir.AccFinal | ir.AccSynthetic},
			{Name: "other", Desc: "Lq/List;", Flags: ir.AccStatic},
		},
		Methods: []*ir.Method{
			{Name: "<init>", Desc: "()V", Flags: ir.AccPublic},
			{Name: "<clinit>", Desc: "()V", Flags: ir.AccStatic},
		},
		InnerClasses: []ir.InnerClass{{Inner: "p.Outer$Inner", Outer: "p.Outer", Name: "Inner", Flags: ir.AccPublic | ir.AccStatic}},
	})
	add(t, du, &ir.Class{
		Name: "p.Outer$Inner", Super: "java.lang.Object", Flags: ir.AccPublic,
		Fields: []*ir.Field{{Name: "e", Desc: "Ljava/util/Map$Entry;", Flags: ir.AccPrivate}},
	})

	self := c.T("p.Outer")
	outer.Method("<init>", "()V").Body = body(&ast.ExprStmt{X: &ast.Call{Owner: c.Object(), Name: "super", T: c.Void(), Ctor: true}})
	outer.Method("<clinit>", "()V").Body = body(
		assign(&ast.Field{Owner: self, Name: "items", T: c.T("java.util.List")}, &ast.New{T: c.T("java.util.ArrayList")}),
		assign(&ast.Field{Owner: self, Name: "$assertionsDisabled", T: c.Boolean()}, &ast.Literal{T: c.Boolean(), Value: int64(0)}),
		&ast.ExprStmt{X: &ast.Call{
			Obj:   &ast.Field{Owner: c.T("java.lang.System"), Name: "out", T: c.T("java.io.PrintStream")},
			Owner: c.T("java.io.PrintStream"), Name: "println",
			Args: []ast.Expr{&ast.Literal{T: c.StringT(), Value: "x"}}, T: c.Void(),
		}},
	)

	a := New(du, Options{})
	if top := a.TopLevel(); len(top) != 1 || top[0] != outer {
		t.Fatalf("top level = %v, want [p.Outer]", top)
	}

	got := assemble(t, du, outer, Options{})
	want := `package p;

import java.util.ArrayList;
import java.util.List;
import java.util.Map;

public class Outer {
    public static final int MAX = 10;
    static List items = new ArrayList();
    static q.List other;

    static {
        System.out.println("x");
    }

    public static class Inner {
        private Map.Entry e;
    }
}
`
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}

	if _, err := a.Assemble(context.Background(), du.TD("p.Outer$Inner")); err == nil {
		t.Error("assembling a nested class should fail")
	}
}

func TestAssemble_AnonymousClass(t *testing.T) {
	du := decl.NewDU()
	c := du.Cache()
	outer := add(t, du, &ir.Class{
		Name: "p.Outer", Super: "java.lang.Object", Flags: ir.AccPublic,
		Methods: []*ir.Method{{Name: "start", Desc: "(I)V"}},
	})
	anon := add(t, du, &ir.Class{
		Name: "p.Outer$1", Super: "java.lang.Object", Interfaces: []string{"java.lang.Runnable"},
		EnclosingMethod: "start(I)V",
		Fields: []*ir.Field{
			{Name: "this$0", Desc: "Lp/Outer;", Flags: ir.AccFinal | ir.AccSynthetic},
			{Name: "val$n", Desc: "I", Flags: ir.AccFinal | ir.AccSynthetic},
		},
		Methods: []*ir.Method{
			{Name: "<init>", Desc: "(Lp/Outer;I)V"},
			{Name: "run", Desc: "()V", Flags: ir.AccPublic},
		},
	})

	this := &ast.Variable{Name: "this", T: c.T("p.Outer"), This: true}
	n := &ast.Variable{Name: "n", T: c.Int(), Param: true}
	r := &ast.Variable{Name: "r", T: c.T("java.lang.Runnable")}
	start := outer.Method("start", "(I)V")
	start.Params = []*ast.Variable{n}
	start.Body = body(&ast.LocalDecl{V: r, Init: &ast.New{
		T:    c.T("p.Outer$1"),
		Args: []ast.Expr{&ast.Local{V: this}, &ast.Local{V: n}},
	}})

	anonThis := &ast.Variable{Name: "this", T: anon.T, This: true}
	anon.Method("run", "()V").Body = body(&ast.ExprStmt{X: &ast.Call{
		Obj:   &ast.Field{Obj: &ast.Local{V: anonThis}, Owner: anon.T, Name: "this$0", T: c.T("p.Outer")},
		Owner: c.T("p.Outer"), Name: "work",
		Args: []ast.Expr{&ast.Field{Obj: &ast.Local{V: anonThis}, Owner: anon.T, Name: "val$n", T: c.Int()}},
		T:    c.Void(),
	}})

	got := assemble(t, du, outer, Options{})
	want := `package p;

public class Outer {
    void start(int n) {
        Runnable r = new Runnable() {
            public void run() {
                Outer.this.work(n);
            }
        };
    }
}
`
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestAssemble_Enum(t *testing.T) {
	du := decl.NewDU()
	c := du.Cache()
	const flags = ir.AccPublic | ir.AccStatic | ir.AccFinal | ir.AccEnum
	color := add(t, du, &ir.Class{
		Name: "p.Color", Super: "java.lang.Enum", Flags: ir.AccPublic | ir.AccFinal | ir.AccEnum,
		Fields: []*ir.Field{
			{Name: "RED", Desc: "Lp/Color;", Flags: flags},
			{Name: "GREEN", Desc: "Lp/Color;", Flags: flags},
			{Name: "$VALUES", Desc: "[Lp/Color;", Flags: ir.AccPrivate | ir.AccStatic | ir.AccFinal | ir.AccSynthetic},
		},
		Methods: []*ir.Method{
			{Name: "values", Desc: "()[Lp/Color;", Flags: ir.AccPublic | ir.AccStatic},
			{Name: "valueOf", Desc: "(Ljava/lang/String;)Lp/Color;", Flags: ir.AccPublic | ir.AccStatic},
			{Name: "<init>", Desc: "(Ljava/lang/String;I)V", Flags: ir.AccPrivate},
			{Name: "<clinit>", Desc: "()V", Flags: ir.AccStatic},
		},
	})

	name := &ast.Variable{Name: "name", T: c.StringT(), Param: true}
	ord := &ast.Variable{Name: "ordinal", T: c.Int(), Param: true}
	init := color.Method("<init>", "(Ljava/lang/String;I)V")
	init.Params = []*ast.Variable{name, ord}
	init.Body = body(&ast.ExprStmt{X: &ast.Call{
		Owner: c.T("java.lang.Enum"), Name: "super", Ctor: true, T: c.Void(),
		Args: []ast.Expr{&ast.Local{V: name}, &ast.Local{V: ord}},
	}})

	self := color.T
	constant := func(n string, i int64) ast.Stmt {
		return assign(&ast.Field{Owner: self, Name: n, T: self}, &ast.New{T: self, Args: []ast.Expr{
			&ast.Literal{T: c.StringT(), Value: n}, &ast.Literal{T: c.Int(), Value: i},
		}})
	}
	color.Method("<clinit>", "()V").Body = body(
		constant("RED", 0),
		constant("GREEN", 1),
		assign(&ast.Field{Owner: self, Name: "$VALUES", T: c.ArrayT(self, 1)}, &ast.NewArray{T: c.ArrayT(self, 1)}),
	)

	got := assemble(t, du, color, Options{})
	want := `package p;

public enum Color {
    RED, GREEN;
}
`
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}

	kept := assemble(t, du, color, Options{KeepSynthetic: true, KeepDefaultCtors: true})
	if kept == want {
		t.Error("KeepSynthetic printed the same unit")
	}
}

func TestAssemble_SharedSimpleNames(t *testing.T) {
	du := decl.NewDU()
	outer := add(t, du, &ir.Class{
		Name: "p.Outer", Super: "java.lang.Object",
		Fields: []*ir.Field{{Name: "other", Desc: "Lq/Node;", Flags: ir.AccStatic}},
	})
	for _, n := range []string{"p.Outer$A", "p.Outer$A$Node", "p.Outer$B", "p.Outer$B$Node"} {
		add(t, du, &ir.Class{Name: n, Super: "java.lang.Object", Flags: ir.AccStatic})
	}

	first := assemble(t, du, outer, Options{})
	if !strings.Contains(first, "static q.Node other;") {
		t.Errorf("q.Node should stay qualified:\n%s", first)
	}
	if strings.Contains(first, "import q.Node;") {
		t.Errorf("q.Node imported over a nested class:\n%s", first)
	}
	for i := 0; i < 10; i++ {
		if got := assemble(t, du, outer, Options{}); got != first {
			t.Fatalf("assembly %d differs:\n%s\nwant:\n%s", i, got, first)
		}
	}
}
