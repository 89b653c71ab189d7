package vm

import "testing"

func TestIsFalsey(t *testing.T) {
	falsey := []Value{Nil, False, NumberValue(0)}
	for _, v := range falsey {
		if !v.IsFalsey() {
			t.Errorf("%v: want falsey", v)
		}
	}

	truthy := []Value{True, NumberValue(1), NumberValue(-1)}
	for _, v := range truthy {
		if v.IsFalsey() {
			t.Errorf("%v: want truthy", v)
		}
	}
}

func TestOptionFalsiness(t *testing.T) {
	vm := NewVM()
	none := vm.newOption(false, Nil)
	some := vm.newOption(true, NumberValue(0))

	if !ObjectValue(none).IsFalsey() {
		t.Errorf("option::none should be falsey")
	}
	if ObjectValue(some).IsFalsey() {
		t.Errorf("some(0) should be truthy: only nil, option::none, false, and the bare number 0 are falsey")
	}
}

func TestValuesEqual(t *testing.T) {
	vm := NewVM()
	a := vm.InternString([]byte("hi"))
	b := vm.InternString([]byte("hi"))
	if a != b {
		t.Fatalf("interning should return the same *ObjString for equal content")
	}
	if !ValuesEqual(ObjectValue(a), ObjectValue(b)) {
		t.Errorf("interned strings with equal content should compare equal")
	}
	if ValuesEqual(NumberValue(1), ObjectValue(a)) {
		t.Errorf("values of different ValueType should never compare equal")
	}
	if ValuesEqual(NumberValue(1), NumberValue(2)) {
		t.Errorf("distinct numbers should not compare equal")
	}
	if !ValuesEqual(Nil, Nil) {
		t.Errorf("nil should equal nil")
	}
}

func TestNumberFormatting(t *testing.T) {
	cases := map[float64]string{
		3:    "3",
		3.5:  "3.5",
		-0.5: "-0.5",
	}
	for n, want := range cases {
		if got := NumberValue(n).String(); got != want {
			t.Errorf("NumberValue(%v).String() = %q, want %q", n, got, want)
		}
	}
}

func TestTypeName(t *testing.T) {
	vm := NewVM()
	list := vm.newList(nil)
	if got := ObjectValue(list).TypeName(); got != "list" {
		t.Errorf("list TypeName() = %q, want %q", got, "list")
	}
	if got := NumberValue(1).TypeName(); got != "number" {
		t.Errorf("number TypeName() = %q, want %q", got, "number")
	}
}
