package driver

import (
	"bytes"
	"strings"
	"testing"

	"raven/pkg/config"
)

func newTestSession(t *testing.T) (*Session, *bytes.Buffer) {
	t.Helper()
	sess := New(config.Default())
	var out bytes.Buffer
	sess.VM.Stdout = &out
	return sess, &out
}

func TestRunStringScenarios(t *testing.T) {
	cases := []struct {
		name   string
		source string
		want   string
	}{
		{
			"string concat",
			`print "Hello, " + "world!";`,
			"Hello, world!\n",
		},
		{
			"recursive function and if-expression",
			`func fac(x) { if x==1 { 1 } else { x*fac(x-1) } } print fac(10);`,
			"3.6288e+06\n",
		},
		{
			"closures share captured state",
			`func outer() { var a = 1; func inner() { a = a + 1; a } inner } var f = outer(); print f(); print f(); print f();`,
			"2\n3\n4\n",
		},
		{
			"single inheritance",
			`class A { hello() { print "hi"; } } class B < A {} B().hello();`,
			"hi\n",
		},
		{
			"list append and index",
			`var xs = [1,2,3]; xs.append(4); print xs.length; print xs[3];`,
			"4\n4\n",
		},
		{
			"string iteration",
			`for c in "wow" { print c; }`,
			"w\no\nw\n",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sess, out := newTestSession(t)
			if err := sess.RunString(c.source); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.String() != c.want {
				t.Fatalf("got %q, want %q", out.String(), c.want)
			}
		})
	}
}

func TestRunStringErrorScenarios(t *testing.T) {
	cases := []struct {
		name    string
		source  string
		wantMsg string
	}{
		{
			"mixed-type add",
			`print 1 + "a";`,
			"Operands must be two numbers or two strings.",
		},
		{
			"list index out of bounds",
			`var xs=[1]; print xs[5];`,
			"List index out of bounds.",
		},
		{
			"wrong arity on class call",
			`class A {} A(1);`,
			"Expected 0 arguments but got 1.",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sess, _ := newTestSession(t)
			err := sess.RunString(c.source)
			if err == nil {
				t.Fatalf("expected a runtime error, got none")
			}
			if err.Kind() != "Runtime" {
				t.Fatalf("expected Runtime error, got %s", err.Kind())
			}
			if !strings.Contains(err.Message(), c.wantMsg) {
				t.Fatalf("got message %q, want it to contain %q", err.Message(), c.wantMsg)
			}
		})
	}
}

func TestSyntaxErrorReturnsSyntaxKind(t *testing.T) {
	sess, _ := newTestSession(t)
	err := sess.RunString(`func f( { 1 }`)
	if err == nil {
		t.Fatalf("expected a syntax error, got none")
	}
	if err.Kind() != "Syntax" && err.Kind() != "Compile" {
		t.Fatalf("expected a compile-time error kind, got %s", err.Kind())
	}
}

func TestRunFileMissingReturnsIOError(t *testing.T) {
	sess, _ := newTestSession(t)
	ravenErr, ioErr := sess.RunFile("/nonexistent/path/does-not-exist.rv")
	if ioErr == nil {
		t.Fatalf("expected an I/O error, got none")
	}
	if ravenErr != nil {
		t.Fatalf("expected no Raven error alongside an I/O error, got %v", ravenErr)
	}
}

func TestSessionPersistsGlobalsAcrossCalls(t *testing.T) {
	sess, out := newTestSession(t)
	if err := sess.RunString(`var x = 1;`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sess.RunString(`print x;`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "1\n" {
		t.Fatalf("got %q, want %q", out.String(), "1\n")
	}
}

func TestOptionUnwrap(t *testing.T) {
	sess, out := newTestSession(t)
	if err := sess.RunString(`print some(5).unwrap();`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "5\n" {
		t.Fatalf("got %q, want %q", out.String(), "5\n")
	}
}

func TestOptionUnwrapEmptyErrors(t *testing.T) {
	sess, _ := newTestSession(t)
	err := sess.RunString(`nil.unwrap;`)
	if err == nil {
		t.Fatalf("expected an error calling unwrap on a non-option")
	}
}
