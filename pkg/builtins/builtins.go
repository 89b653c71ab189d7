// Package builtins installs Raven's native surface into a VM: the
// top-level clock() function and the per-type member tables that back
// property and method lookups on strings, lists, dicts, and options.
package builtins

import (
	"fmt"
	"time"

	vmpkg "raven/pkg/vm"
)

var processStart = time.Now()

// Register installs every native onto vm. The driver calls this once,
// right after constructing a fresh VM and before compiling any source.
func Register(vm *vmpkg.VM) {
	vm.DefineNative("clock", clockNative)
	registerString(vm)
	registerList(vm)
	registerOption(vm)
}

// fail builds the (Value, false) pair a NativeFn returns to signal a
// runtime error; the VM formats it as "%s" of the returned value.
func fail(vm *vmpkg.VM, format string, a ...interface{}) (vmpkg.Value, bool) {
	msg := vm.InternString([]byte(fmt.Sprintf(format, a...)))
	return vmpkg.ObjectValue(msg), false
}

// clockNative returns seconds elapsed since the process started.
func clockNative(vm *vmpkg.VM, recv vmpkg.Value, argCount int, args []vmpkg.Value) (vmpkg.Value, bool) {
	if argCount != 0 {
		return fail(vm, "%d args expected but got %d.", 0, argCount)
	}
	return vmpkg.NumberValue(time.Since(processStart).Seconds()), true
}

func addMember(table *vmpkg.Table, vm *vmpkg.VM, name string, fn vmpkg.NativeFn) {
	nameStr := vm.InternString([]byte(name))
	native := vm.NewNative(name, fn)
	table.Set(vmpkg.ObjectValue(nameStr), vmpkg.ObjectValue(native))
}

// addProperty registers a member native that GET_PROPERTY evaluates
// immediately on access, like a string's length, rather than binding it
// for a later call.
func addProperty(table *vmpkg.Table, vm *vmpkg.VM, name string, fn vmpkg.NativeFn) {
	nameStr := vm.InternString([]byte(name))
	native := vm.NewNative(name, fn)
	native.IsProperty = true
	table.Set(vmpkg.ObjectValue(nameStr), vmpkg.ObjectValue(native))
}
