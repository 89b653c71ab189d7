package builtins

import (
	"bytes"
	"testing"

	"raven/pkg/compiler"
	raverr "raven/pkg/errors"
	vmpkg "raven/pkg/vm"
)

func run(t *testing.T, source string) (string, raverr.RavenError) {
	t.Helper()
	vm := vmpkg.NewVM()
	Register(vm)
	var out bytes.Buffer
	vm.Stdout = &out
	fn, cerr := compiler.Compile(vm, source)
	if cerr != nil {
		t.Fatalf("Compile(%q): %v", source, cerr)
	}
	rerr := vm.Interpret(fn)
	return out.String(), rerr
}

func TestLengthIsAPropertyNotAMethod(t *testing.T) {
	vm := vmpkg.NewVM()
	Register(vm)

	lengthVal, found, _ := vm.StringMembers().Get(vmpkg.ObjectValue(vm.InternString([]byte("length"))))
	if !found {
		t.Fatalf("string member table should have a length entry")
	}
	if !lengthVal.AsNative().IsProperty {
		t.Errorf("string length native should be IsProperty=true, so GET_PROPERTY invokes it directly")
	}

	appendVal, found, _ := vm.ListMembers().Get(vmpkg.ObjectValue(vm.InternString([]byte("append"))))
	if !found {
		t.Fatalf("list member table should have an append entry")
	}
	if appendVal.AsNative().IsProperty {
		t.Errorf("list append native should be IsProperty=false, since it requires call syntax")
	}

	listLengthVal, found, _ := vm.ListMembers().Get(vmpkg.ObjectValue(vm.InternString([]byte("length"))))
	if !found {
		t.Fatalf("list member table should have a length entry")
	}
	if !listLengthVal.AsNative().IsProperty {
		t.Errorf("list length native should be IsProperty=true")
	}

	unwrapVal, found, _ := vm.OptionMembers().Get(vmpkg.ObjectValue(vm.InternString([]byte("unwrap"))))
	if !found {
		t.Fatalf("option member table should have an unwrap entry")
	}
	if unwrapVal.AsNative().IsProperty {
		t.Errorf("option unwrap native should be IsProperty=false, since it requires call syntax")
	}
}

func TestStringLengthNative(t *testing.T) {
	vm := vmpkg.NewVM()
	s := vm.InternString([]byte("hello"))
	result, ok := stringLengthNative(vm, vmpkg.ObjectValue(s), 0, nil)
	if !ok {
		t.Fatalf("stringLengthNative failed: %v", result)
	}
	if result.AsNumber() != 5 {
		t.Errorf("stringLengthNative(%q) = %v, want 5", "hello", result)
	}
}

func TestStringLengthNativeRejectsArguments(t *testing.T) {
	vm := vmpkg.NewVM()
	s := vm.InternString([]byte("hi"))
	_, ok := stringLengthNative(vm, vmpkg.ObjectValue(s), 1, []vmpkg.Value{vmpkg.NumberValue(1)})
	if ok {
		t.Errorf("stringLengthNative should fail when called with arguments")
	}
}

func TestOptionUnwrapNative(t *testing.T) {
	out, rerr := run(t, `print some(7).unwrap();`)
	if rerr != nil {
		t.Fatalf("unexpected error: %v", rerr)
	}
	if out != "7\n" {
		t.Errorf("got %q, want %q", out, "7\n")
	}
}

// The language itself never constructs an option with HasValue=false
// (some(x) is the only constructor, and it always sets HasValue=true),
// but optionUnwrapNative must still reject one if it ever saw one.
func TestOptionUnwrapNativeFailsOnEmptyOption(t *testing.T) {
	vm := vmpkg.NewVM()
	empty := &vmpkg.ObjOption{HasValue: false, Value: vmpkg.Nil}
	_, ok := optionUnwrapNative(vm, vmpkg.ObjectValue(empty), 0, nil)
	if ok {
		t.Errorf("optionUnwrapNative on an empty option should fail")
	}
}

func TestListAppendAndLengthThroughSource(t *testing.T) {
	out, rerr := run(t, `var xs = [1,2,3]; xs.append(4); print xs.length; print xs[3];`)
	if rerr != nil {
		t.Fatalf("unexpected error: %v", rerr)
	}
	if out != "4\n4\n" {
		t.Errorf("got %q, want %q", out, "4\n4\n")
	}
}

func TestClockNativeIsMonotonicallyNonDecreasing(t *testing.T) {
	vm := vmpkg.NewVM()
	first, ok := clockNative(vm, vmpkg.Nil, 0, nil)
	if !ok {
		t.Fatalf("clockNative failed: %v", first)
	}
	second, ok := clockNative(vm, vmpkg.Nil, 0, nil)
	if !ok {
		t.Fatalf("clockNative failed: %v", second)
	}
	if second.AsNumber() < first.AsNumber() {
		t.Errorf("clock() should never go backwards: %v then %v", first.AsNumber(), second.AsNumber())
	}
}

func TestClockNativeThroughSource(t *testing.T) {
	out, rerr := run(t, `print clock() >= 0;`)
	if rerr != nil {
		t.Fatalf("unexpected error: %v", rerr)
	}
	if out != "true\n" {
		t.Errorf("got %q, want %q", out, "true\n")
	}
}
