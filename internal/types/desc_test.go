package types

import (
	"testing"

	"github.com/nikandfor/errors"
)

func TestDescT_Interned(t *testing.T) {
	c := NewCache(nil)
	for _, d := range []string{"I", "J", "Z", "[I", "[[Ljava/lang/String;", "Ljava/util/Map$Entry;"} {
		a, err := c.DescT(d)
		if err != nil {
			t.Fatalf("DescT(%q): %v", d, err)
		}
		b, _ := c.DescT(d)
		if a != b {
			t.Errorf("DescT(%q) returned distinct instances", d)
		}
		if a.Desc() != d {
			t.Errorf("DescT(%q).Desc() = %q", d, a.Desc())
		}
	}
	if s, _ := c.DescT("Ljava/lang/String;"); s != c.T("java.lang.String") {
		t.Error("descriptor and name lookups disagree")
	}
}

func TestDescT_Errors(t *testing.T) {
	c := NewCache(nil)
	for _, d := range []string{"", "V", "Q", "Ljava/lang/String", "II", "TT;"} {
		if _, err := c.DescT(d); !errors.Is(err, ErrBadDescriptor) {
			t.Errorf("DescT(%q) err = %v, want ErrBadDescriptor", d, err)
		}
	}
}

func TestMethodDesc(t *testing.T) {
	c := NewCache(nil)
	ms, err := c.MethodDesc("(IJ[Ljava/lang/Object;)V", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(ms.Params) != 3 {
		t.Fatalf("params = %d, want 3", len(ms.Params))
	}
	if ms.Params[1] != c.Long() || ms.Return != c.Void() {
		t.Errorf("params = %v return = %v", ms.Params, ms.Return)
	}
	if ms.Params[2].Name() != "java.lang.Object[]" {
		t.Errorf("param 2 = %s", ms.Params[2].Name())
	}
}

func TestSignatures(t *testing.T) {
	c := NewCache(nil)

	list, err := c.SigT("Ljava/util/List<+Ljava/lang/Number;>;")
	if err != nil {
		t.Fatal(err)
	}
	if list.Sort() != SortParam || list.Generic() != c.T("java.util.List") {
		t.Fatalf("sig = %v", list)
	}
	if got := list.Name(); got != "java.util.List<? extends java.lang.Number>" {
		t.Errorf("name = %q", got)
	}
	if list.Raw().Desc() != "Ljava/util/List;" {
		t.Errorf("raw desc = %q", list.Raw().Desc())
	}

	ms, err := c.MethodDesc("<T:Ljava/lang/Object;>(Ljava/util/Map<TT;*>;)TT;^Ljava/io/IOException;", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(ms.TypeParams) != 1 || ms.TypeParams[0].Name() != "T" {
		t.Fatalf("type params = %v", ms.TypeParams)
	}
	if ms.Return.Sort() != SortVar || len(ms.Throws) != 1 {
		t.Errorf("return = %v throws = %v", ms.Return, ms.Throws)
	}
	if got := ms.Params[0].Name(); got != "java.util.Map<T,?>" {
		t.Errorf("param = %q", got)
	}

	cs, err := c.ClassSignature("<E:Ljava/lang/Object;>Ljava/util/AbstractList<TE;>;Ljava/util/RandomAccess;")
	if err != nil {
		t.Fatal(err)
	}
	if cs.Super.Generic() != c.T("java.util.AbstractList") || len(cs.Interfaces) != 1 {
		t.Errorf("class sig = %+v", cs)
	}

	inner, err := c.SigT("Lp/Outer<TT;>.Inner;")
	if err != nil {
		t.Fatal(err)
	}
	if inner != c.T("p.Outer$Inner") {
		t.Errorf("inner = %v", inner)
	}
}

func TestRefT(t *testing.T) {
	c := NewCache(nil)
	if got, _ := c.RefT("java/lang/String"); got != c.StringT() {
		t.Errorf("RefT(internal name) = %v", got)
	}
	if got, _ := c.RefT("[I"); got != c.ArrayT(c.Int(), 1) {
		t.Errorf("RefT([I) = %v", got)
	}
	if _, err := c.RefT(""); !errors.Is(err, ErrBadDescriptor) {
		t.Errorf("RefT(\"\") err = %v", err)
	}
}
