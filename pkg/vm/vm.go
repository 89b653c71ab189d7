package vm

import (
	"fmt"
	"io"
	"math"
	"os"

	raverr "raven/pkg/errors"
)

const (
	framesMax = 64
	stackMax  = framesMax * 256
)

// CallFrame is one activation record: the closure being executed, its
// instruction pointer, and the base stack slot its locals start at.
type CallFrame struct {
	closure *ObjClosure
	ip      int
	slots   int
}

// Builtins holds the four member tables exposed on primitive receivers.
type Builtins struct {
	StringMembers *Table
	ListMembers   *Table
	DictMembers   *Table
	OptionMembers *Table
}

// VM is Raven's single-threaded stack-based bytecode interpreter.
type VM struct {
	stack    [stackMax]Value
	stackTop int

	frames     [framesMax]CallFrame
	frameCount int

	openUpvalues *ObjUpvalue

	globals *Table
	strings *Table // intern table

	builtins *Builtins

	reserve Value // the single VM-wide reserve slot

	initString *ObjString

	// GC bookkeeping
	objects        Obj
	grayStack      []Obj
	bytesAllocated uint64
	nextGC         uint64
	initialHeap    uint64
	growthFactor   uint64
	gcStressMode   bool
	runGC          bool
	compilerRoots  []*ObjFunction
	onGC           func(before, after uint64)

	// kill is an escape hatch for fatal conditions raised on a path with no
	// direct return to the dispatch loop; checked at the end of each
	// iteration.
	kill    bool
	killMsg string

	// Stdout is where OP_PRINT writes; defaults to os.Stdout but tests can
	// substitute a buffer.
	Stdout io.Writer
}

// NewVM constructs a VM with an empty stack and globals, ready to run a
// top-level function produced by the compiler.
func NewVM() *VM {
	vm := &VM{
		globals:      NewTable(),
		strings:      NewTable(),
		nextGC:       initialNextGC,
		initialHeap:  initialNextGC,
		growthFactor: gcGrowthFactor,
	}
	vm.initString = vm.InternString([]byte("init"))
	vm.builtins = &Builtins{
		StringMembers: NewTable(),
		ListMembers:   NewTable(),
		DictMembers:   NewTable(),
		OptionMembers: NewTable(),
	}
	return vm
}

// SetGCTuning overrides the collector's initial heap threshold and growth
// factor; called by the driver after loading a config file. A zero
// growthFactor is rejected in favor of the default to avoid a collector
// that never lets the heap grow.
func (vm *VM) SetGCTuning(initialHeap, growthFactor uint64) {
	if initialHeap > 0 {
		vm.initialHeap = initialHeap
		vm.nextGC = initialHeap
	}
	if growthFactor > 0 {
		vm.growthFactor = growthFactor
	}
}

// SetGCStressMode forces a collection before every single allocation, used
// by tests to shake out GC bugs that only show up under memory pressure.
func (vm *VM) SetGCStressMode(stress bool) { vm.gcStressMode = stress }

// OnGC installs a callback invoked after every collection with the
// heap size before and after sweeping.
func (vm *VM) OnGC(f func(before, after uint64)) { vm.onGC = f }

// HeapStats reports the collector's current live-byte count and the
// threshold that will trigger the next collection.
func (vm *VM) HeapStats() (allocated, next uint64) { return vm.bytesAllocated, vm.nextGC }

// registerObject links a freshly allocated object into the intrusive
// object list and accounts for its size, triggering a collection first if
// the VM is under allocation pressure or in GC-stress mode.
func (vm *VM) registerObject(o Obj, size uint64) {
	if vm.bytesAllocated+size > vm.nextGC || vm.gcStressMode {
		vm.collectGarbage()
	}
	o.setNextObj(vm.objects)
	vm.objects = o
	vm.bytesAllocated += size
}

// InternString returns the canonical ObjString for data, allocating and
// registering a new one only if an equal string isn't already interned.
func (vm *VM) InternString(data []byte) *ObjString {
	hash := fnv1a(data)
	if s := vm.strings.FindString(data, hash); s != nil {
		return s
	}
	s := &ObjString{Bytes: append([]byte(nil), data...), Hash: hash}
	vm.registerObject(s, uint64(32+len(data)))
	vm.strings.Set(ObjectValue(s), True)
	return s
}

// NewFunction allocates an empty function object for the compiler to fill
// in; exported because the compiler, not the VM, drives compilation.
func (vm *VM) NewFunction() *ObjFunction {
	fn := &ObjFunction{Chunk: NewChunk()}
	vm.registerObject(fn, 64)
	return fn
}

// PushCompilerRoot registers fn as a GC root while the compiler is still
// building it.
func (vm *VM) PushCompilerRoot(fn *ObjFunction) {
	vm.compilerRoots = append(vm.compilerRoots, fn)
}

// PopCompilerRoot unregisters the most recently pushed compiler root.
func (vm *VM) PopCompilerRoot() {
	vm.compilerRoots = vm.compilerRoots[:len(vm.compilerRoots)-1]
}

func (vm *VM) newClosure(fn *ObjFunction) *ObjClosure {
	c := &ObjClosure{Fn: fn, Upvalues: make([]*ObjUpvalue, fn.UpvalueCount)}
	vm.registerObject(c, uint64(32+fn.UpvalueCount*8))
	return c
}

func (vm *VM) newUpvalue(slot *Value) *ObjUpvalue {
	uv := &ObjUpvalue{}
	uv.Location = slot
	vm.registerObject(uv, 32)
	return uv
}

func (vm *VM) newClass(name *ObjString) *ObjClass {
	c := &ObjClass{Name: name, Methods: NewTable()}
	vm.registerObject(c, 64)
	return c
}

func (vm *VM) newInstance(class *ObjClass) *ObjInstance {
	i := &ObjInstance{Class: class, Fields: NewTable()}
	vm.registerObject(i, 48)
	return i
}

func (vm *VM) newList(items []Value) *ObjList {
	l := &ObjList{Items: items}
	vm.registerObject(l, uint64(32+len(items)*16))
	return l
}

func (vm *VM) newDict(t *Table) *ObjDict {
	d := &ObjDict{Table: t}
	vm.registerObject(d, 48)
	return d
}

func (vm *VM) newOption(has bool, val Value) *ObjOption {
	o := &ObjOption{HasValue: has, Value: val}
	vm.registerObject(o, 32)
	return o
}

func (vm *VM) newBoundMethod(recv Value, m *ObjClosure) *ObjBoundMethod {
	b := &ObjBoundMethod{Receiver: recv, Method: m}
	vm.registerObject(b, 32)
	return b
}

func (vm *VM) newBoundNative(recv Value, m *ObjNative) *ObjBoundNative {
	b := &ObjBoundNative{Receiver: recv, Method: m}
	vm.registerObject(b, 32)
	return b
}

// StringMembers, ListMembers, DictMembers, and OptionMembers expose the
// per-type method tables for pkg/builtins to populate at startup.
func (vm *VM) StringMembers() *Table { return vm.builtins.StringMembers }
func (vm *VM) ListMembers() *Table   { return vm.builtins.ListMembers }
func (vm *VM) DictMembers() *Table   { return vm.builtins.DictMembers }
func (vm *VM) OptionMembers() *Table { return vm.builtins.OptionMembers }

// NewNative allocates a native function object without binding it
// anywhere; callers install it into a global or a member table themselves.
func (vm *VM) NewNative(name string, fn NativeFn) *ObjNative {
	n := &ObjNative{Fn: fn, Name: name}
	vm.registerObject(n, 48)
	return n
}

// DefineNative installs a top-level native function as a global.
func (vm *VM) DefineNative(name string, fn NativeFn) {
	n := vm.NewNative(name, fn)
	nameStr := vm.InternString([]byte(name))
	vm.globals.Set(ObjectValue(nameStr), ObjectValue(n))
}

func (vm *VM) push(v Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

// Kill arms the fatal-termination flag; natives call this when they hit an
// irrecoverable condition with no direct return path to the dispatch loop.
func (vm *VM) Kill(msg string) {
	vm.kill = true
	vm.killMsg = msg
}

func (vm *VM) pop() Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

// runtimeError builds a RuntimeError carrying the current call stack as a
// traceback from the innermost frame outward.
func (vm *VM) runtimeError(format string, a ...interface{}) *raverr.RuntimeError {
	msg := fmt.Sprintf(format, a...)
	frames := make([]string, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		fr := &vm.frames[i]
		fn := fr.closure.Fn
		line := 0
		if fr.ip-1 >= 0 && fr.ip-1 < len(fn.Chunk.Lines) {
			line = fn.Chunk.Lines[fr.ip-1]
		}
		name := "script"
		if fn.Name != nil {
			name = string(fn.Name.Bytes) + "()"
		}
		frames = append(frames, fmt.Sprintf("[line %d] in %s", line, name))
	}
	line := 0
	if vm.frameCount > 0 {
		fr := &vm.frames[vm.frameCount-1]
		if fr.ip-1 >= 0 && fr.ip-1 < len(fr.closure.Fn.Chunk.Lines) {
			line = fr.closure.Fn.Chunk.Lines[fr.ip-1]
		}
	}
	vm.resetStack()
	return &raverr.RuntimeError{
		Position: raverr.Position{Line: line},
		Msg:      msg,
		Frames:   frames,
	}
}

// Interpret runs the top-level function returned by the compiler for a
// source program. It is the entry point the driver package calls.
func (vm *VM) Interpret(fn *ObjFunction) raverr.RavenError {
	vm.push(ObjectValue(fn))
	closure := vm.newClosure(fn)
	vm.pop()
	vm.push(ObjectValue(closure))
	if err := vm.call(closure, 0); err != nil {
		return err
	}
	return vm.run()
}

func (vm *VM) currentFrame() *CallFrame { return &vm.frames[vm.frameCount-1] }

func (vm *VM) readByte(fr *CallFrame) byte {
	b := fr.closure.Fn.Chunk.Code[fr.ip]
	fr.ip++
	return b
}

func (vm *VM) readShort(fr *CallFrame) uint16 {
	hi := vm.readByte(fr)
	lo := vm.readByte(fr)
	return uint16(hi)<<8 | uint16(lo)
}

func (vm *VM) readConstant(fr *CallFrame) Value {
	idx := vm.readByte(fr)
	return fr.closure.Fn.Chunk.Constants[idx]
}

// run executes bytecode until the outermost call frame returns.
func (vm *VM) run() raverr.RavenError {
	fr := vm.currentFrame()
	for {
		op := OpCode(vm.readByte(fr))
		switch op {
		case OpConstant:
			vm.push(vm.readConstant(fr))
		case OpNil:
			vm.push(Nil)
		case OpTrue:
			vm.push(True)
		case OpFalse:
			vm.push(False)
		case OpInt:
			vm.push(NumberValue(float64(vm.readByte(fr))))
		case OpPop:
			vm.pop()

		case OpGetLocal:
			slot := int(vm.readByte(fr))
			vm.push(vm.stack[fr.slots+slot])
		case OpSetLocal:
			slot := int(vm.readByte(fr))
			vm.stack[fr.slots+slot] = vm.peek(0)

		case OpGetGlobal:
			name := vm.readConstant(fr).AsString()
			v, ok, _ := vm.globals.Get(ObjectValue(name))
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", string(name.Bytes))
			}
			vm.push(v)
		case OpDefineGlobal:
			name := vm.readConstant(fr).AsString()
			vm.globals.Set(ObjectValue(name), vm.pop())
		case OpSetGlobal:
			name := vm.readConstant(fr).AsString()
			isNew, _ := vm.globals.Set(ObjectValue(name), vm.peek(0))
			if isNew {
				vm.globals.Delete(ObjectValue(name))
				return vm.runtimeError("Undefined variable '%s'.", string(name.Bytes))
			}

		case OpGetUpvalue:
			idx := vm.readByte(fr)
			vm.push(*fr.closure.Upvalues[idx].Location)
		case OpSetUpvalue:
			idx := vm.readByte(fr)
			*fr.closure.Upvalues[idx].Location = vm.peek(0)

		case OpGetProperty:
			if err := vm.execGetProperty(fr); err != nil {
				return err
			}
		case OpSetProperty:
			name := vm.readConstant(fr).AsString()
			if !vm.peek(1).IsInstance() {
				return vm.runtimeError("Only instances have fields.")
			}
			inst := vm.peek(1).AsInstance()
			val := vm.pop()
			inst.Fields.Set(ObjectValue(name), val)
			vm.pop()
			vm.push(val)
		case OpGetSuper:
			name := vm.readConstant(fr).AsString()
			superclass := vm.pop().AsClass()
			receiver := vm.pop()
			bound, err := vm.bindMethod(superclass, name, receiver)
			if err != nil {
				return err
			}
			vm.push(bound)

		case OpGetIndex:
			if err := vm.execGetIndex(); err != nil {
				return err
			}
		case OpSetIndex:
			if err := vm.execSetIndex(); err != nil {
				return err
			}

		case OpList:
			n := int(vm.readByte(fr))
			items := make([]Value, n)
			copy(items, vm.stack[vm.stackTop-n:vm.stackTop])
			list := vm.newList(items)
			vm.stackTop -= n
			vm.push(ObjectValue(list))
		case OpDict:
			n := int(vm.readByte(fr))
			t := NewTable()
			base := vm.stackTop - 2*n
			for i := 0; i < n; i++ {
				k := vm.stack[base+2*i]
				v := vm.stack[base+2*i+1]
				if _, err := t.Set(k, v); err != nil {
					return vm.runtimeError("Unhashable dict key.")
				}
			}
			dict := vm.newDict(t)
			vm.stackTop = base
			vm.push(ObjectValue(dict))

		case OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(BoolValue(ValuesEqual(a, b)))
		case OpGreater:
			if err := vm.binaryNumberOp(func(a, b float64) Value { return BoolValue(a > b) }); err != nil {
				return err
			}
		case OpLess:
			if err := vm.binaryNumberOp(func(a, b float64) Value { return BoolValue(a < b) }); err != nil {
				return err
			}
		case OpAdd:
			if err := vm.execAdd(); err != nil {
				return err
			}
		case OpSubtract:
			if err := vm.binaryNumberOp(func(a, b float64) Value { return NumberValue(a - b) }); err != nil {
				return err
			}
		case OpMultiply:
			if err := vm.binaryNumberOp(func(a, b float64) Value { return NumberValue(a * b) }); err != nil {
				return err
			}
		case OpDivide:
			if err := vm.binaryNumberOp(func(a, b float64) Value { return NumberValue(a / b) }); err != nil {
				return err
			}
		case OpNot:
			vm.push(BoolValue(vm.pop().IsFalsey()))
		case OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(NumberValue(-vm.pop().AsNumber()))
		case OpPrint:
			// Does not pop: the statement form that emits this opcode
			// follows it with its own OpPop.
			fmt.Fprintln(vm.stdout(), vm.peek(0).String())

		case OpJump:
			offset := vm.readShort(fr)
			fr.ip += int(offset)
		case OpJumpIfFalse:
			offset := vm.readShort(fr)
			if vm.peek(0).IsFalsey() {
				fr.ip += int(offset)
			}
		case OpLoop:
			offset := vm.readShort(fr)
			fr.ip -= int(offset)
		case OpNextJump:
			offset := vm.readShort(fr)
			index := vm.pop()
			iterable := vm.peek(0)
			elem, hasNext, iterErr := vm.iterElement(iterable, int(index.AsNumber()))
			if iterErr != nil {
				return iterErr
			}
			if !hasNext {
				fr.ip += int(offset)
			} else {
				vm.push(NumberValue(index.AsNumber() + 1))
				vm.push(elem)
			}

		case OpCall:
			argCount := int(vm.readByte(fr))
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
			fr = vm.currentFrame()
		case OpInvoke:
			name := vm.readConstant(fr).AsString()
			argCount := int(vm.readByte(fr))
			if err := vm.invoke(name, argCount); err != nil {
				return err
			}
			fr = vm.currentFrame()
		case OpSuperInvoke:
			name := vm.readConstant(fr).AsString()
			argCount := int(vm.readByte(fr))
			superclass := vm.pop().AsClass()
			if err := vm.invokeFromClass(superclass, name, argCount); err != nil {
				return err
			}
			fr = vm.currentFrame()

		case OpClosure:
			fn := vm.readConstant(fr).AsFunction()
			closure := vm.newClosure(fn)
			vm.push(ObjectValue(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte(fr)
				index := vm.readByte(fr)
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(fr.slots + int(index))
				} else {
					closure.Upvalues[i] = fr.closure.Upvalues[index]
				}
			}
		case OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()
		case OpReturn:
			result := vm.pop()
			vm.closeUpvalues(fr.slots)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.stackTop = fr.slots
			vm.push(result)
			fr = vm.currentFrame()

		case OpClass:
			name := vm.readConstant(fr).AsString()
			vm.push(ObjectValue(vm.newClass(name)))
		case OpInherit:
			superVal := vm.peek(1)
			if !superVal.IsClass() {
				return vm.runtimeError("Superclass must be a class.")
			}
			subclass := vm.peek(0).AsClass()
			subclass.Methods.AddAll(superVal.AsClass().Methods)
			vm.pop()
		case OpMethod:
			name := vm.readConstant(fr).AsString()
			method := vm.peek(0)
			class := vm.peek(1).AsClass()
			class.Methods.Set(ObjectValue(name), method)
			vm.pop()

		case OpGetReserve:
			vm.push(vm.reserve)
		case OpSetReserve:
			vm.reserve = vm.peek(0)

		case OpSome:
			opt := vm.newOption(true, vm.peek(0))
			vm.pop()
			vm.push(ObjectValue(opt))

		default:
			return vm.runtimeError("Unknown opcode %d.", byte(op))
		}

		if vm.kill {
			msg := vm.killMsg
			vm.resetStack()
			return &raverr.FatalError{Msg: msg}
		}
		if vm.stackTop >= stackMax {
			return vm.runtimeError("Stack overflow.")
		}
	}
}

func (vm *VM) stdout() io.Writer {
	if vm.Stdout != nil {
		return vm.Stdout
	}
	return os.Stdout
}

func (vm *VM) binaryNumberOp(f func(a, b float64) Value) raverr.RavenError {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(f(a, b))
	return nil
}

func (vm *VM) execAdd() raverr.RavenError {
	b, a := vm.peek(0), vm.peek(1)
	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(NumberValue(a.AsNumber() + b.AsNumber()))
	case a.IsString() && b.IsString():
		vm.pop()
		vm.pop()
		concat := append(append([]byte(nil), a.AsString().Bytes...), b.AsString().Bytes...)
		vm.push(ObjectValue(vm.InternString(concat)))
	default:
		return vm.runtimeError("Operands must be two numbers or two strings.")
	}
	return nil
}

// wholeIndex validates that v is a number with no fractional part, per the
// the "non-number or non-whole-number index" runtime error.
func (vm *VM) wholeIndex(v Value) (int, raverr.RavenError) {
	if !v.IsNumber() {
		return 0, vm.runtimeError("Index must be a number.")
	}
	n := v.AsNumber()
	if n != math.Trunc(n) {
		return 0, vm.runtimeError("Index must be a whole number.")
	}
	return int(n), nil
}

func (vm *VM) execGetIndex() raverr.RavenError {
	index := vm.pop()
	target := vm.pop()
	switch {
	case target.IsList():
		i, err := vm.wholeIndex(index)
		if err != nil {
			return err
		}
		l := target.AsList()
		if i < 0 || i >= len(l.Items) {
			return vm.runtimeError("List index out of bounds.")
		}
		vm.push(l.Items[i])
	case target.IsDict():
		v, ok, err := target.AsDict().Table.Get(index)
		if err != nil {
			return vm.runtimeError("Unhashable dict key.")
		}
		if !ok {
			vm.push(Nil)
		} else {
			vm.push(v)
		}
	case target.IsString():
		i, err := vm.wholeIndex(index)
		if err != nil {
			return err
		}
		s := target.AsString()
		if i < 0 || i >= len(s.Bytes) {
			return vm.runtimeError("String index out of bounds.")
		}
		vm.push(ObjectValue(vm.InternString(s.Bytes[i : i+1])))
	default:
		return vm.runtimeError("Cannot index a %s.", target.TypeName())
	}
	return nil
}

func (vm *VM) execSetIndex() raverr.RavenError {
	value := vm.pop()
	index := vm.pop()
	target := vm.pop()
	switch {
	case target.IsList():
		i, err := vm.wholeIndex(index)
		if err != nil {
			return err
		}
		l := target.AsList()
		if i < 0 || i >= len(l.Items) {
			return vm.runtimeError("List index out of bounds.")
		}
		l.Items[i] = value
	case target.IsDict():
		if _, err := target.AsDict().Table.Set(index, value); err != nil {
			return vm.runtimeError("Unhashable dict key.")
		}
	default:
		return vm.runtimeError("Cannot index-assign a %s.", target.TypeName())
	}
	vm.push(value)
	return nil
}

// iterElement implements the for-in iteration protocol: lists and strings
// (by single-character substrings) are the only iterables.
func (vm *VM) iterElement(v Value, i int) (Value, bool, raverr.RavenError) {
	switch {
	case v.IsList():
		l := v.AsList()
		if i < 0 || i >= len(l.Items) {
			return Nil, false, nil
		}
		return l.Items[i], true, nil
	case v.IsString():
		s := v.AsString()
		if i < 0 || i >= len(s.Bytes) {
			return Nil, false, nil
		}
		return ObjectValue(vm.InternString(s.Bytes[i : i+1])), true, nil
	}
	return Nil, false, vm.runtimeError("Value is not iterable.")
}

func (vm *VM) execGetProperty(fr *CallFrame) raverr.RavenError {
	name := vm.readConstant(fr).AsString()
	receiver := vm.peek(0)

	if inst, ok := receiver.objOfType(ObjTypeInstance); ok {
		instance := inst.(*ObjInstance)
		if v, found, _ := instance.Fields.Get(ObjectValue(name)); found {
			vm.pop()
			vm.push(v)
			return nil
		}
		bound, err := vm.bindMethod(instance.Class, name, receiver)
		if err != nil {
			return err
		}
		vm.pop()
		vm.push(bound)
		return nil
	}

	members, ok := vm.memberTableFor(receiver)
	if !ok {
		return vm.runtimeError("Value has no properties.")
	}
	v, found, _ := members.Get(ObjectValue(name))
	if !found {
		return vm.runtimeError("Undefined member '%s'.", string(name.Bytes))
	}
	if native, ok := v.objOfType(ObjTypeNative); ok {
		n := native.(*ObjNative)
		if n.IsProperty {
			result, ok := n.Fn(vm, receiver, 0, nil)
			if !ok {
				return vm.runtimeError("%s", result.String())
			}
			vm.pop()
			vm.push(result)
			return nil
		}
		vm.pop()
		vm.push(ObjectValue(vm.newBoundNative(receiver, n)))
		return nil
	}
	vm.pop()
	vm.push(v)
	return nil
}

func (vm *VM) memberTableFor(v Value) (*Table, bool) {
	switch {
	case v.IsString():
		return vm.builtins.StringMembers, true
	case v.IsList():
		return vm.builtins.ListMembers, true
	case v.IsDict():
		return vm.builtins.DictMembers, true
	case v.IsOption():
		return vm.builtins.OptionMembers, true
	}
	return nil, false
}

// bindMethod looks up name on class and wraps it with receiver as a bound
// method. It does not touch the stack; callers decide how to splice the
// result in, since GET_PROPERTY and GET_SUPER consume their operands
// differently.
func (vm *VM) bindMethod(class *ObjClass, name *ObjString, receiver Value) (Value, raverr.RavenError) {
	method, found, _ := class.Methods.Get(ObjectValue(name))
	if !found {
		return Nil, vm.runtimeError("Undefined property '%s'.", string(name.Bytes))
	}
	return ObjectValue(vm.newBoundMethod(receiver, method.AsClosure())), nil
}

// callValue implements the call protocol: closures push a new frame,
// natives/classes/bound values run synchronously or rewrite the call into
// a plain closure call.
func (vm *VM) callValue(callee Value, argCount int) raverr.RavenError {
	if callee.IsObject() {
		switch callee.AsObject().Type() {
		case ObjTypeClosure:
			return vm.call(callee.AsClosure(), argCount)
		case ObjTypeNative:
			return vm.callNative(callee.AsNative(), Nil, argCount, vm.stackTop-argCount-1)
		case ObjTypeBoundMethod:
			bm := callee.AsBoundMethod()
			vm.stack[vm.stackTop-argCount-1] = bm.Receiver
			return vm.call(bm.Method, argCount)
		case ObjTypeBoundNative:
			bn := callee.AsBoundNative()
			vm.stack[vm.stackTop-argCount-1] = bn.Receiver
			return vm.callNative(bn.Method, bn.Receiver, argCount, vm.stackTop-argCount-1)
		case ObjTypeClass:
			class := callee.AsClass()
			instance := vm.newInstance(class)
			vm.stack[vm.stackTop-argCount-1] = ObjectValue(instance)
			if init, found, _ := class.Methods.Get(ObjectValue(vm.initString)); found {
				return vm.call(init.AsClosure(), argCount)
			}
			if argCount != 0 {
				return vm.runtimeError("Expected 0 arguments but got %d.", argCount)
			}
			return nil
		}
	}
	return vm.runtimeError("Can only call functions and classes.")
}

// callNative invokes a native function with recv as its bound receiver
// (Nil for a top-level native). recvSlot is the stack slot the callee or
// receiver occupied; argCount arguments sit directly above it.
func (vm *VM) callNative(n *ObjNative, recv Value, argCount int, recvSlot int) raverr.RavenError {
	args := vm.stack[recvSlot+1 : recvSlot+1+argCount]
	result, ok := n.Fn(vm, recv, argCount, args)
	if !ok {
		return vm.runtimeError("%s", result.String())
	}
	vm.stackTop = recvSlot
	vm.push(result)
	return nil
}

func (vm *VM) call(closure *ObjClosure, argCount int) raverr.RavenError {
	if argCount != closure.Fn.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", closure.Fn.Arity, argCount)
	}
	if vm.frameCount == framesMax {
		return vm.runtimeError("Stack overflow.")
	}
	fr := &vm.frames[vm.frameCount]
	vm.frameCount++
	fr.closure = closure
	fr.ip = 0
	fr.slots = vm.stackTop - argCount - 1
	return nil
}

func (vm *VM) invoke(name *ObjString, argCount int) raverr.RavenError {
	receiver := vm.peek(argCount)
	if inst, ok := receiver.objOfType(ObjTypeInstance); ok {
		instance := inst.(*ObjInstance)
		if v, found, _ := instance.Fields.Get(ObjectValue(name)); found {
			vm.stack[vm.stackTop-argCount-1] = v
			return vm.callValue(v, argCount)
		}
		return vm.invokeFromClass(instance.Class, name, argCount)
	}
	members, ok := vm.memberTableFor(receiver)
	if !ok {
		return vm.runtimeError("Value has no properties.")
	}
	v, found, _ := members.Get(ObjectValue(name))
	if !found {
		return vm.runtimeError("Undefined member '%s'.", string(name.Bytes))
	}
	if native, ok := v.objOfType(ObjTypeNative); ok {
		return vm.callNative(native.(*ObjNative), receiver, argCount, vm.stackTop-argCount-1)
	}
	return vm.runtimeError("Undefined member '%s'.", string(name.Bytes))
}

func (vm *VM) invokeFromClass(class *ObjClass, name *ObjString, argCount int) raverr.RavenError {
	method, found, _ := class.Methods.Get(ObjectValue(name))
	if !found {
		return vm.runtimeError("Undefined property '%s'.", string(name.Bytes))
	}
	return vm.call(method.AsClosure(), argCount)
}

// captureUpvalue returns the existing open upvalue for slot if one exists
// (the list is sorted by descending stack index), otherwise creates one and
// inserts it in order. Slot indices, not pointer comparisons, drive the
// ordering since Go forbids relational comparisons between pointers.
func (vm *VM) captureUpvalue(slot int) *ObjUpvalue {
	var prev *ObjUpvalue
	uv := vm.openUpvalues
	for uv != nil && uv.slot > slot {
		prev = uv
		uv = uv.OpenNext
	}
	if uv != nil && uv.slot == slot {
		return uv
	}
	created := vm.newUpvalue(&vm.stack[slot])
	created.slot = slot
	created.OpenNext = uv
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.OpenNext = created
	}
	return created
}

// closeUpvalues closes every open upvalue referencing a stack slot >= from,
// copying the value into the upvalue's own cell.
func (vm *VM) closeUpvalues(from int) {
	for vm.openUpvalues != nil && vm.openUpvalues.slot >= from {
		uv := vm.openUpvalues
		uv.Closed = *uv.Location
		uv.Location = &uv.Closed
		vm.openUpvalues = uv.OpenNext
	}
}
