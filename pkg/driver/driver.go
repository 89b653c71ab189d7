// Package driver wires the lexer-driven compiler and the VM together into
// the session a CLI or embedder actually drives: construct once, register
// builtins once, then feed it source repeatedly.
package driver

import (
	"os"

	"raven/pkg/builtins"
	"raven/pkg/compiler"
	"raven/pkg/config"
	raverr "raven/pkg/errors"
	vmpkg "raven/pkg/vm"
)

// Session is a persistent Raven VM plus whatever global state a program
// accumulates across calls to RunString: a REPL keeps one Session alive
// for its whole lifetime so that variables and classes defined on one
// line are visible on the next.
type Session struct {
	VM *vmpkg.VM
}

// New constructs a Session with a fresh VM tuned by cfg and the native
// surface (clock, string/list/option members) already registered.
func New(cfg config.Config) *Session {
	vm := vmpkg.NewVM()
	vm.SetGCTuning(cfg.InitialHeapBytes(), cfg.GC.GrowthFactor)
	vm.SetGCStressMode(cfg.GC.Stress)
	builtins.Register(vm)
	return &Session{VM: vm}
}

// RunString compiles and executes source against the session's VM. A
// compile error short-circuits before anything runs; a runtime error
// leaves the VM's global state as it was at the point of failure, which
// is what lets a REPL keep going after a bad line.
func (s *Session) RunString(source string) raverr.RavenError {
	fn, err := compiler.Compile(s.VM, source)
	if err != nil {
		return err
	}
	return s.VM.Interpret(fn)
}

// RunFile reads path and runs its contents. The returned ioErr is non-nil
// only for a failure to open or read the file; callers should treat that
// case as the CLI's I/O-error exit code, distinct from a RavenError.
func (s *Session) RunFile(path string) (raverr.RavenError, error) {
	data, ioErr := os.ReadFile(path)
	if ioErr != nil {
		return nil, ioErr
	}
	return s.RunString(string(data)), nil
}
