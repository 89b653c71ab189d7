package builtins

import vmpkg "raven/pkg/vm"

func registerList(vm *vmpkg.VM) {
	members := vm.ListMembers()
	addMember(members, vm, "append", listAppendNative)
	addProperty(members, vm, "length", listLengthNative)
}

// append mutates the receiving list in place and returns the appended
// value, so "a.append(x)" composes as an expression.
func listAppendNative(vm *vmpkg.VM, recv vmpkg.Value, argCount int, args []vmpkg.Value) (vmpkg.Value, bool) {
	if argCount != 1 {
		return fail(vm, "%d args expected but got %d.", 1, argCount)
	}
	list := recv.AsList()
	list.Items = append(list.Items, args[0])
	return args[0], true
}

func listLengthNative(vm *vmpkg.VM, recv vmpkg.Value, argCount int, args []vmpkg.Value) (vmpkg.Value, bool) {
	if argCount != 0 {
		return fail(vm, "%d args expected but got %d.", 0, argCount)
	}
	return vmpkg.NumberValue(float64(len(recv.AsList().Items))), true
}
