package builtins

import vmpkg "raven/pkg/vm"

func registerOption(vm *vmpkg.VM) {
	addMember(vm.OptionMembers(), vm, "unwrap", optionUnwrapNative)
}

func optionUnwrapNative(vm *vmpkg.VM, recv vmpkg.Value, argCount int, args []vmpkg.Value) (vmpkg.Value, bool) {
	if argCount != 0 {
		return fail(vm, "%d args expected but got %d.", 0, argCount)
	}
	opt := recv.AsOption()
	if !opt.HasValue {
		return fail(vm, "Called unwrap on an empty option.")
	}
	return opt.Value, true
}
