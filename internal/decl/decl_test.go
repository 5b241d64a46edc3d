package decl

import (
	"sync"
	"testing"

	"decaf/internal/ir"
)

func TestAddAndHierarchy(t *testing.T) {
	du := NewDU()
	if _, err := du.Add(&ir.Class{Name: "p.Animal", Super: "java.lang.Object"}); err != nil {
		t.Fatal(err)
	}
	dog, err := du.Add(&ir.Class{
		Name: "p.Dog", Super: "p.Animal",
		Fields:  []*ir.Field{{Name: "names", Desc: "Ljava/util/List;", Signature: "Ljava/util/List<Ljava/lang/String;>;"}},
		Methods: []*ir.Method{{Name: "bark", Desc: "(I)V"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if du.TD("p.Dog") != dog || dog.T != du.T("p.Dog") {
		t.Fatal("lookup mismatch")
	}
	if got := dog.T.Super(); got != du.T("p.Animal") {
		t.Errorf("super = %v, want p.Animal", got)
	}
	if f := dog.Field("names"); f == nil || f.T.Name() != "java.util.List<java.lang.String>" {
		t.Errorf("field type = %v", f)
	}
	if md := dog.Method("bark", "(I)V"); md == nil || md.Method.Owner != "p.Dog" || len(md.Sig.Params) != 1 {
		t.Errorf("method = %+v", md)
	}
	if _, err := du.Add(&ir.Class{Name: "p.Dog"}); err == nil {
		t.Error("duplicate class accepted")
	}
}

func TestAdd_BadClassNotRegistered(t *testing.T) {
	du := NewDU()
	bad := &ir.Class{
		Name:    "p.Bad",
		Methods: []*ir.Method{{Name: "ok", Desc: "()V"}, {Name: "f", Desc: "(Q)V"}},
	}
	if _, err := du.Add(bad); err == nil {
		t.Fatal("bad descriptor accepted")
	}
	if td := du.TD("p.Bad"); td != nil {
		t.Fatalf("half-built class registered: %d methods", len(td.Methods))
	}
	if n := len(du.TDs()); n != 0 {
		t.Errorf("TDs = %d, want 0", n)
	}

	if _, err := du.Add(&ir.Class{Name: "p.Bad", Methods: []*ir.Method{{Name: "f", Desc: "(I)V"}}}); err != nil {
		t.Errorf("corrected class: %v", err)
	}
}

func TestPlatformCommonSuper(t *testing.T) {
	du := NewDU()
	c := du.Cache()
	got := c.MergeRead(c.T("java.lang.Integer"), c.T("java.lang.Long"))
	if got != c.T("java.lang.Number") {
		t.Errorf("Integer/Long = %v, want java.lang.Number", got)
	}
	got = c.MergeRead(c.T("java.io.IOException"), c.T("java.lang.IllegalStateException"))
	if got != c.T("java.lang.Exception") {
		t.Errorf("IOException/IllegalStateException = %v, want java.lang.Exception", got)
	}
}

func TestConcurrentResolve(t *testing.T) {
	du := NewDU()
	for _, n := range []string{"p.A", "p.B", "p.C"} {
		if _, err := du.Add(&ir.Class{Name: n, Super: "java.lang.Exception"}); err != nil {
			t.Fatal(err)
		}
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := du.Cache()
			if got := c.MergeRead(c.T("p.A"), c.T("p.B")); got != c.T("java.lang.Exception") {
				t.Errorf("A/B = %v", got)
			}
		}()
	}
	wg.Wait()
}
