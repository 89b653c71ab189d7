package vm

// ObjType tags the variant of a heap object.
type ObjType uint8

const (
	ObjTypeString ObjType = iota
	ObjTypeFunction
	ObjTypeNative
	ObjTypeClosure
	ObjTypeUpvalue
	ObjTypeBoundMethod
	ObjTypeBoundNative
	ObjTypeClass
	ObjTypeInstance
	ObjTypeList
	ObjTypeDict
	ObjTypeOption
)

// Obj is implemented by every heap-allocated value. Header supplies the
// mark bit and the intrusive "next" link that forms the VM's singly
// linked list of all live objects.
type Obj interface {
	Type() ObjType
	isMarked() bool
	setMarked(bool)
	nextObj() Obj
	setNextObj(Obj)
}

// Header is embedded by every concrete object type.
type Header struct {
	marked bool
	next   Obj
}

func (h *Header) isMarked() bool     { return h.marked }
func (h *Header) setMarked(m bool)   { h.marked = m }
func (h *Header) nextObj() Obj       { return h.next }
func (h *Header) setNextObj(o Obj)   { h.next = o }

// ObjString is an immutable, interned byte sequence with a precomputed
// FNV-1a hash.
type ObjString struct {
	Header
	Bytes []byte
	Hash  uint32
}

func (*ObjString) Type() ObjType { return ObjTypeString }

// ObjFunction is the compiled body of a function: its arity, how many
// upvalue slots it declares, its chunk, and an optional name (nil for the
// implicit top-level script function).
type ObjFunction struct {
	Header
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
	Name         *ObjString
}

func (*ObjFunction) Type() ObjType { return ObjTypeFunction }

// NativeFn is the host-function signature. recv is the bound receiver for
// a primitive member native (Nil for a top-level native like clock). On
// success it returns its result and true; on failure it returns an error
// message wrapped as a string Value and false, which the VM turns into a
// runtime error.
type NativeFn func(vm *VM, recv Value, argCount int, args []Value) (Value, bool)

// ObjNative wraps a native function pointer. IsProperty marks a member
// native that GET_PROPERTY invokes immediately on access (like a string's
// "length") rather than binding for a later call (like a list's
// "append") — the distinction a plain OP_GET_PROPERTY/OP_INVOKE split
// can't express on its own, since both opcodes share one member table.
type ObjNative struct {
	Header
	Fn         NativeFn
	Name       string
	IsProperty bool
}

func (*ObjNative) Type() ObjType { return ObjTypeNative }

// ObjUpvalue is either OPEN (Location aliases a stack slot) or CLOSED
// (Location points at Closed, its own cell). OpenNext threads the VM's
// per-slot-descending open-upvalue list.
type ObjUpvalue struct {
	Header
	Location *Value
	Closed   Value
	OpenNext *ObjUpvalue
	slot     int // stack index Location points into, while open
}

func (*ObjUpvalue) Type() ObjType { return ObjTypeUpvalue }

func (u *ObjUpvalue) isOpen() bool { return u.Location != &u.Closed }

// ObjClosure pairs a function with the upvalues it captured.
type ObjClosure struct {
	Header
	Fn       *ObjFunction
	Upvalues []*ObjUpvalue
}

func (*ObjClosure) Type() ObjType { return ObjTypeClosure }

// ObjBoundMethod binds a scripted method closure to its receiver instance.
type ObjBoundMethod struct {
	Header
	Receiver Value
	Method   *ObjClosure
}

func (*ObjBoundMethod) Type() ObjType { return ObjTypeBoundMethod }

// ObjBoundNative binds a built-in member function to its receiver.
type ObjBoundNative struct {
	Header
	Receiver Value
	Method   *ObjNative
}

func (*ObjBoundNative) Type() ObjType { return ObjTypeBoundNative }

// ObjClass has a name and a methods table (string -> closure). Single
// inheritance copies the superclass's methods down at class-creation time
// (OP_INHERIT).
type ObjClass struct {
	Header
	Name    *ObjString
	Methods *Table
}

func (*ObjClass) Type() ObjType { return ObjTypeClass }

// ObjInstance references its class and owns a fields table (value -> value).
type ObjInstance struct {
	Header
	Class  *ObjClass
	Fields *Table
}

func (*ObjInstance) Type() ObjType { return ObjTypeInstance }

// ObjList is a dynamic array of values.
type ObjList struct {
	Header
	Items []Value
}

func (*ObjList) Type() ObjType { return ObjTypeList }

// ObjDict wraps a hash table of value -> value.
type ObjDict struct {
	Header
	Table *Table
}

func (*ObjDict) Type() ObjType { return ObjTypeDict }

// ObjOption is either "none" or carries a single value.
type ObjOption struct {
	Header
	HasValue bool
	Value    Value
}

func (*ObjOption) Type() ObjType { return ObjTypeOption }
