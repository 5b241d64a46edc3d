package diag

import (
	"testing"

	"github.com/nikandfor/errors"
)

func TestDiagsFor(t *testing.T) {
	d := For("a.B.f()V")
	d.Addf(4, TypeInference, "register %d", 2)
	d.Add(9, Structure, "irreducible")
	if d.Len() != 2 {
		t.Fatalf("Len = %d, want 2", d.Len())
	}
	if got := d.Items()[0].String(); got != "[type_inference] a.B.f()V pc 4: register 2" {
		t.Errorf("String = %q", got)
	}
	if d.Count(Structure) != 1 || d.Count(Unsupported) != 0 {
		t.Errorf("counts = %d/%d", d.Count(Structure), d.Count(Unsupported))
	}

	var all Diags
	all.Merge(d)
	all.Merge(nil)
	if all.Len() != 2 {
		t.Errorf("merged Len = %d, want 2", all.Len())
	}
}

func TestMethodErrorIsFatal(t *testing.T) {
	err := errors.Wrap(Fatalf("a.B.f()V", 3, "stack underflow"), "type a.B")
	if !IsFatal(err) {
		t.Errorf("IsFatal(%v) = false", err)
	}
	var me *MethodError
	if !errors.As(err, &me) || me.PC != 3 {
		t.Errorf("As = %v, %+v", errors.As(err, &me), me)
	}
	if IsFatal(errors.New("other")) {
		t.Error("plain error reported fatal")
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeBestEffort, "strict": ModeStrict, "best-effort": ModeBestEffort} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParseMode("lenient"); err == nil {
		t.Error("ParseMode(lenient) should fail")
	}
}

func TestEffectiveMaxPasses(t *testing.T) {
	if got := (Options{MaxPasses: 7}).EffectiveMaxPasses(100); got != 7 {
		t.Errorf("got = %d, want 7", got)
	}
	if got := (Options{}).EffectiveMaxPasses(10); got != 400 {
		t.Errorf("got = %d, want 400", got)
	}
}
