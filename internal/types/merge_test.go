package types

import "testing"

type fakeHierarchy map[string][3]string // name → super, iface, "i" if interface

func (h fakeHierarchy) Hierarchy(name string) (string, []string, bool, bool) {
	e, ok := h[name]
	if !ok {
		return "", nil, false, false
	}
	var ifaces []string
	if e[1] != "" {
		ifaces = []string{e[1]}
	}
	return e[0], ifaces, e[2] == "i", true
}

var primKinds = []Kind{
	Boolean, Char, Byte, Short, Int, Float, Long, Double,
	AnyInt, Byte | Short | Int, Short | Int, Char | Int, Wide,
}

func TestMergeRead_Commutative(t *testing.T) {
	c := NewCache(nil)
	for _, a := range primKinds {
		for _, b := range primKinds {
			ab := c.MergeRead(c.Prim(a), c.Prim(b))
			ba := c.MergeRead(c.Prim(b), c.Prim(a))
			if ab != ba {
				t.Errorf("MergeRead(%v, %v) = %v, reversed = %v", a, b, ab, ba)
			}
		}
	}
}

func TestMergeRead_Idempotent(t *testing.T) {
	c := NewCache(nil)
	for _, a := range primKinds {
		if got := c.MergeRead(c.Prim(a), c.Prim(a)); got != c.Prim(a) {
			t.Errorf("MergeRead(%v, %v) = %v", a, a, got)
		}
	}
}

func TestMergeRead_Canonical(t *testing.T) {
	c := NewCache(nil)
	a := c.MergeRead(c.Prim(AnyInt), c.Prim(Short|Int))
	b := c.MergeRead(c.Prim(Short|Int|Long), c.Prim(AnyInt))
	if a != b {
		t.Fatalf("merge results are distinct objects: %p vs %p", a, b)
	}
	if a.Kinds() != Short|Int {
		t.Errorf("kinds = %v, want {int,short}", a.Kinds())
	}
}

func TestMergeRead_WidensIntegers(t *testing.T) {
	c := NewCache(nil)
	if got := c.MergeRead(c.Prim(Short), c.Prim(Char)); got != c.Int() {
		t.Errorf("short ∨ char = %v, want int", got)
	}
	if got := c.MergeRead(c.Int(), c.Float()); !got.IsConflict() {
		t.Errorf("int ∨ float = %v, want conflict", got)
	}
	if got := c.MergeRead(c.Int(), c.StringT()); !got.IsConflict() {
		t.Errorf("int ∨ String = %v, want conflict", got)
	}
	if got := c.Widen(c.Int(), c.Float()); got != c.Object() {
		t.Errorf("Widen(int, float) = %v, want java.lang.Object", got)
	}
}

func TestMergeRead_Associative(t *testing.T) {
	c := NewCache(nil)
	for _, a := range primKinds {
		for _, b := range primKinds {
			for _, d := range primKinds {
				x, y, z := c.Prim(a), c.Prim(b), c.Prim(d)
				l := c.MergeRead(c.MergeRead(x, y), z)
				r := c.MergeRead(x, c.MergeRead(y, z))
				if l != r {
					t.Errorf("(%v ∨ %v) ∨ %v = %v, %v ∨ (%v ∨ %v) = %v", a, b, d, l, a, b, d, r)
				}
			}
		}
	}

	// A failed merge is not forgotten by the next one.
	failed := c.MergeRead(c.Boolean(), c.Float())
	if got := c.MergeRead(failed, c.Boolean()); !got.IsConflict() {
		t.Errorf("conflict ∨ boolean = %v, want conflict", got)
	}
	if got := c.MergeRead(nil, c.Boolean()); got != c.Boolean() {
		t.Errorf("unset ∨ boolean = %v, want boolean", got)
	}
	if got := c.Concrete(failed); got != c.Object() {
		t.Errorf("Concrete(conflict) = %v", got)
	}
}

func TestMergeStore_FailsExactlyWithoutSubsumption(t *testing.T) {
	c := NewCache(nil)
	for _, a := range primKinds {
		for _, b := range primKinds {
			got := c.MergeStore(c.Prim(a), c.Prim(b))
			subsumes := a.Has(b) || b.Has(a)
			if (got == nil) == subsumes {
				t.Errorf("MergeStore(%v, %v) = %v, subsumes = %v", a, b, got, subsumes)
			}
		}
	}
}

func TestMergeStore_IntShort(t *testing.T) {
	c := NewCache(nil)
	if got := c.MergeStore(c.Int(), c.Prim(Short)); got != nil {
		t.Errorf("MergeStore(int, short) = %v, want failure", got)
	}
	if got := c.MergeStore(c.Prim(AnyInt), c.Prim(Short)); got != c.Prim(Short) {
		t.Errorf("MergeStore(anyint, short) = %v, want short", got)
	}
	if got := c.Widen(c.Int(), c.Prim(Short)); got != c.Int() {
		t.Errorf("Widen(int, short) = %v, want int", got)
	}
}

func TestMergeRefs_CommonSuper(t *testing.T) {
	h := fakeHierarchy{
		"a.Animal": {ObjectName, "", ""},
		"a.Dog":    {"a.Animal", "a.Pet", ""},
		"a.Cat":    {"a.Animal", "a.Pet", ""},
		"a.Pet":    {ObjectName, "", "i"},
	}
	c := NewCache(h)
	dog, cat, animal := c.T("a.Dog"), c.T("a.Cat"), c.T("a.Animal")

	if got := c.MergeRead(dog, cat); got != animal {
		t.Errorf("Dog ∨ Cat = %v, want a.Animal", got)
	}
	if got := c.MergeRead(cat, dog); got != animal {
		t.Errorf("Cat ∨ Dog = %v, want a.Animal", got)
	}
	if got := c.MergeRead(c.Null(), dog); got != dog {
		t.Errorf("null ∨ Dog = %v, want a.Dog", got)
	}
	if got := c.MergeStore(animal, dog); got != animal {
		t.Errorf("MergeStore(Animal, Dog) = %v, want a.Animal", got)
	}
	if got := c.MergeStore(dog, cat); got != nil {
		t.Errorf("MergeStore(Dog, Cat) = %v, want failure", got)
	}
	if !c.Assignable(c.T("a.Pet"), dog) {
		t.Error("Dog should be assignable to Pet")
	}
	if !c.T("a.Pet").IsInterface() {
		t.Error("Pet should resolve as interface")
	}
}

func TestArraySuperTypes(t *testing.T) {
	c := NewCache(nil)
	arr := c.T("int[][]")
	if arr.Dims() != 2 || arr.Elem() != c.Int() {
		t.Fatalf("int[][] = dims %d elem %v", arr.Dims(), arr.Elem())
	}
	if arr.Super() != c.Object() {
		t.Errorf("array super = %v, want Object", arr.Super())
	}
	ifaces := arr.Interfaces()
	if len(ifaces) != 2 || ifaces[0].Name() != CloneableName || ifaces[1].Name() != SerializableName {
		t.Errorf("array interfaces = %v", ifaces)
	}
	if arr.Component() != c.T("int[]") {
		t.Errorf("component = %v, want int[]", arr.Component())
	}
	strs := c.ArrayT(c.StringT(), 1)
	objs := c.ArrayT(c.Object(), 1)
	if got := c.MergeRead(strs, c.ArrayT(c.T("java.lang.Integer"), 1)); got != objs {
		t.Errorf("String[] ∨ Integer[] = %v, want Object[]", got)
	}
}

func TestIntConstKinds(t *testing.T) {
	tests := []struct {
		v    int64
		want Kind
	}{
		{0, AnyInt},
		{1, AnyInt},
		{-1, Byte | Short | Int},
		{200, Short | Char | Int},
		{70000, Int},
	}
	for _, tt := range tests {
		if got := IntConstKinds(tt.v); got != tt.want {
			t.Errorf("IntConstKinds(%d) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
