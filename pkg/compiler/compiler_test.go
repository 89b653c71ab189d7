package compiler

import (
	"bytes"
	"testing"

	vmpkg "raven/pkg/vm"
)

func compileOK(t *testing.T, source string) *vmpkg.ObjFunction {
	t.Helper()
	vm := vmpkg.NewVM()
	fn, err := Compile(vm, source)
	if err != nil {
		t.Fatalf("Compile(%q): unexpected error: %v", source, err)
	}
	return fn
}

func containsOp(code []byte, op vmpkg.OpCode) bool {
	return bytes.IndexByte(code, byte(op)) >= 0
}

func TestLocalsCompileToGetLocalNotGetGlobal(t *testing.T) {
	fn := compileOK(t, `func f() { var a = 1; print a; }`)
	var body *vmpkg.ObjFunction
	for _, c := range fn.Chunk.Constants {
		if c.IsFunction() {
			body = c.AsFunction()
		}
	}
	if body == nil {
		t.Fatalf("expected f's closure constant in the script chunk")
	}
	if !containsOp(body.Chunk.Code, vmpkg.OpGetLocal) {
		t.Errorf("reading a local should emit OP_GET_LOCAL")
	}
	if containsOp(body.Chunk.Code, vmpkg.OpGetGlobal) {
		t.Errorf("reading a local should never emit OP_GET_GLOBAL")
	}
}

func TestTopLevelVarCompilesToGlobalOps(t *testing.T) {
	fn := compileOK(t, `var a = 1; print a;`)
	if !containsOp(fn.Chunk.Code, vmpkg.OpDefineGlobal) {
		t.Errorf("a top-level var should emit OP_DEFINE_GLOBAL")
	}
	if !containsOp(fn.Chunk.Code, vmpkg.OpGetGlobal) {
		t.Errorf("reading a top-level var should emit OP_GET_GLOBAL")
	}
}

func TestCapturedLocalCompilesToUpvalue(t *testing.T) {
	fn := compileOK(t, `func outer() { var a = 1; func inner() { a } return inner; } outer();`)
	var outer *vmpkg.ObjFunction
	for _, c := range fn.Chunk.Constants {
		if c.IsFunction() {
			outer = c.AsFunction()
		}
	}
	if outer == nil {
		t.Fatalf("expected outer's closure constant in the script chunk")
	}
	if !containsOp(outer.Chunk.Code, vmpkg.OpClosure) {
		t.Errorf("a function capturing an enclosing local should emit OP_CLOSURE for inner")
	}

	var inner *vmpkg.ObjFunction
	for _, c := range outer.Chunk.Constants {
		if c.IsFunction() {
			inner = c.AsFunction()
		}
	}
	if inner == nil {
		t.Fatalf("expected inner's function constant in outer's chunk")
	}
	if inner.UpvalueCount != 1 {
		t.Errorf("inner.UpvalueCount = %d, want 1", inner.UpvalueCount)
	}
	if !containsOp(inner.Chunk.Code, vmpkg.OpGetUpvalue) {
		t.Errorf("reading a captured variable inside inner should emit OP_GET_UPVALUE")
	}
}

func TestSyntaxErrorOnMissingParen(t *testing.T) {
	vm := vmpkg.NewVM()
	_, err := Compile(vm, `func f( { 1 }`)
	if err == nil {
		t.Fatalf("expected a syntax error")
	}
	if err.Kind() != "Syntax" {
		t.Errorf("Kind() = %q, want %q", err.Kind(), "Syntax")
	}
}

func TestCompileErrorOnInvalidAssignmentTarget(t *testing.T) {
	vm := vmpkg.NewVM()
	_, err := Compile(vm, `1 + 1 = 2;`)
	if err == nil {
		t.Fatalf("expected a compile error for an invalid assignment target")
	}
}

func TestBlockExpressionYieldsLastExpression(t *testing.T) {
	vm := vmpkg.NewVM()
	var out bytes.Buffer
	vm.Stdout = &out
	fn, err := Compile(vm, `func f() { if true { 1 } else { 2 } } print f();`)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if rerr := vm.Interpret(fn); rerr != nil {
		t.Fatalf("unexpected runtime error: %v", rerr)
	}
	if got := out.String(); got != "1\n" {
		t.Fatalf("printed %q, want %q", got, "1\n")
	}
}

func TestReservedWordsAreRejectedAsIdentifiers(t *testing.T) {
	vm := vmpkg.NewVM()
	_, err := Compile(vm, `var class = 1;`)
	if err == nil {
		t.Fatalf("expected a syntax error using a keyword as an identifier")
	}
}
