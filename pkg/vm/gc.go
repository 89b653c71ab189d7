package vm

// gc.go implements a tricolor mark-sweep collector. White objects are
// unmarked; gray objects are marked but their children are not yet traced;
// black objects are marked with children traced. This port tracks
// "white/black" with a single mark bit (gray status is implicit in
// membership on the gray stack) and represents liveness as reachability
// from the VM's intrusive object list rather than raw pointers.

const (
	initialNextGC  = 1 << 20 // 1 MiB
	gcGrowthFactor = 2
)

// collectGarbage runs one full mark-sweep cycle.
func (vm *VM) collectGarbage() {
	if vm.gcStressMode {
		vm.runGC = true
	}

	before := vm.bytesAllocated

	vm.markRoots()
	vm.traceReferences()
	vm.strings.removeWhite()
	vm.sweep()

	vm.nextGC = vm.bytesAllocated * vm.growthFactor
	if vm.nextGC < vm.initialHeap {
		vm.nextGC = vm.initialHeap
	}

	if vm.onGC != nil {
		vm.onGC(before, vm.bytesAllocated)
	}
}

// markRoots marks every value the collector must treat as reachable
// independent of the object graph: the stack, active frames' closures,
// open upvalues, globals, the four built-in member tables, the reserve
// slot, every compiler's in-progress function, and the interned "init"
// string.
func (vm *VM) markRoots() {
	for i := 0; i < vm.stackTop; i++ {
		vm.markValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		vm.markObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.OpenNext {
		vm.markObject(uv)
	}
	vm.globals.mark(vm)
	if vm.builtins != nil {
		vm.builtins.StringMembers.mark(vm)
		vm.builtins.ListMembers.mark(vm)
		vm.builtins.DictMembers.mark(vm)
		vm.builtins.OptionMembers.mark(vm)
	}
	vm.markValue(vm.reserve)
	for _, fn := range vm.compilerRoots {
		vm.markObject(fn)
	}
	if vm.initString != nil {
		vm.markObject(vm.initString)
	}
}

// markValue marks the object a value refers to, if any.
func (vm *VM) markValue(v Value) {
	if v.typ == ValObject {
		vm.markObject(v.obj)
	}
}

// markObject pushes a previously-white object onto the gray stack.
func (vm *VM) markObject(o Obj) {
	if o == nil || o.isMarked() {
		return
	}
	o.setMarked(true)
	vm.grayStack = append(vm.grayStack, o)
}

// traceReferences drains the gray stack, marking each object's children
// (turning it black) until no gray objects remain.
func (vm *VM) traceReferences() {
	for len(vm.grayStack) > 0 {
		o := vm.grayStack[len(vm.grayStack)-1]
		vm.grayStack = vm.grayStack[:len(vm.grayStack)-1]
		vm.blackenObject(o)
	}
}

func (vm *VM) blackenObject(o Obj) {
	switch obj := o.(type) {
	case *ObjString, *ObjNative:
		// no outgoing references
	case *ObjUpvalue:
		vm.markValue(obj.Closed)
		if obj.isOpen() {
			vm.markValue(*obj.Location)
		}
	case *ObjFunction:
		if obj.Name != nil {
			vm.markObject(obj.Name)
		}
		for _, c := range obj.Chunk.Constants {
			vm.markValue(c)
		}
	case *ObjClosure:
		vm.markObject(obj.Fn)
		for _, uv := range obj.Upvalues {
			vm.markObject(uv)
		}
	case *ObjBoundMethod:
		vm.markValue(obj.Receiver)
		vm.markObject(obj.Method)
	case *ObjBoundNative:
		vm.markValue(obj.Receiver)
		vm.markObject(obj.Method)
	case *ObjClass:
		vm.markObject(obj.Name)
		obj.Methods.mark(vm)
	case *ObjInstance:
		vm.markObject(obj.Class)
		obj.Fields.mark(vm)
	case *ObjList:
		for _, v := range obj.Items {
			vm.markValue(v)
		}
	case *ObjDict:
		obj.Table.mark(vm)
	case *ObjOption:
		if obj.HasValue {
			vm.markValue(obj.Value)
		}
	}
}

// sweep walks the intrusive object list, unlinking and discarding every
// unmarked object, and clears the mark bit on survivors so the next cycle
// starts white. Go's own allocator reclaims the memory once nothing else
// references the discarded object.
func (vm *VM) sweep() {
	var prev Obj
	cur := vm.objects
	for cur != nil {
		if cur.isMarked() {
			cur.setMarked(false)
			prev = cur
			cur = cur.nextObj()
			continue
		}
		unreached := cur
		cur = cur.nextObj()
		if prev != nil {
			prev.setNextObj(cur)
		} else {
			vm.objects = cur
		}
		vm.bytesAllocated -= objectSize(unreached)
		if fn, ok := unreached.(*ObjFunction); ok {
			fn.Chunk.Free()
		}
	}
}

// objectSize estimates an object's heap footprint for GC accounting
// purposes; it need not be exact, only consistent between allocation and
// sweep.
func objectSize(o Obj) uint64 {
	switch obj := o.(type) {
	case *ObjString:
		return uint64(32 + len(obj.Bytes))
	case *ObjFunction:
		return uint64(64 + len(obj.Chunk.Code) + len(obj.Chunk.Constants)*16)
	case *ObjNative:
		return 48
	case *ObjClosure:
		return uint64(32 + len(obj.Upvalues)*8)
	case *ObjUpvalue:
		return 32
	case *ObjBoundMethod, *ObjBoundNative:
		return 32
	case *ObjClass:
		return 64
	case *ObjInstance:
		return 48
	case *ObjList:
		return uint64(32 + len(obj.Items)*16)
	case *ObjDict:
		return 48
	case *ObjOption:
		return 32
	}
	return 16
}
