package builtins

import vmpkg "raven/pkg/vm"

func registerString(vm *vmpkg.VM) {
	addProperty(vm.StringMembers(), vm, "length", stringLengthNative)
}

func stringLengthNative(vm *vmpkg.VM, recv vmpkg.Value, argCount int, args []vmpkg.Value) (vmpkg.Value, bool) {
	if argCount != 0 {
		return fail(vm, "%d args expected but got %d.", 0, argCount)
	}
	return vmpkg.NumberValue(float64(len(recv.AsString().Bytes))), true
}
