package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueType is the tag of the discriminated-union Value representation.
// NaN-boxing is a viable alternative encoding; this implementation uses a
// tagged union for clarity.
type ValueType uint8

const (
	ValNil ValueType = iota
	ValEmpty          // sentinel reserved for empty hash-table slots
	ValBool
	ValNumber
	ValObject
)

// Value is a tagged union of the VM's five variants. Two values compare
// equal by value for numbers/booleans and by reference for heap objects.
type Value struct {
	typ ValueType
	num float64
	obj Obj
}

var (
	Nil   = Value{typ: ValNil}
	Empty = Value{typ: ValEmpty}
	True  = Value{typ: ValBool, num: 1}
	False = Value{typ: ValBool, num: 0}
)

// BoolValue returns True or False.
func BoolValue(b bool) Value {
	if b {
		return True
	}
	return False
}

// NumberValue wraps an IEEE-754 double.
func NumberValue(n float64) Value { return Value{typ: ValNumber, num: n} }

// ObjectValue wraps a heap object reference.
func ObjectValue(o Obj) Value { return Value{typ: ValObject, obj: o} }

func (v Value) IsNil() bool    { return v.typ == ValNil }
func (v Value) IsEmpty() bool  { return v.typ == ValEmpty }
func (v Value) IsBool() bool   { return v.typ == ValBool }
func (v Value) IsNumber() bool { return v.typ == ValNumber }
func (v Value) IsObject() bool { return v.typ == ValObject }

func (v Value) AsBool() bool      { return v.num != 0 }
func (v Value) AsNumber() float64 { return v.num }
func (v Value) AsObject() Obj     { return v.obj }

func (v Value) objOfType(t ObjType) (Obj, bool) {
	if v.typ != ValObject || v.obj == nil || v.obj.Type() != t {
		return nil, false
	}
	return v.obj, true
}

func (v Value) IsString() bool { _, ok := v.objOfType(ObjTypeString); return ok }
func (v Value) AsString() *ObjString {
	o, _ := v.objOfType(ObjTypeString)
	s, _ := o.(*ObjString)
	return s
}

func (v Value) IsFunction() bool { _, ok := v.objOfType(ObjTypeFunction); return ok }
func (v Value) AsFunction() *ObjFunction {
	o, _ := v.objOfType(ObjTypeFunction)
	f, _ := o.(*ObjFunction)
	return f
}

func (v Value) IsClosure() bool { _, ok := v.objOfType(ObjTypeClosure); return ok }
func (v Value) AsClosure() *ObjClosure {
	o, _ := v.objOfType(ObjTypeClosure)
	c, _ := o.(*ObjClosure)
	return c
}

func (v Value) IsNative() bool { _, ok := v.objOfType(ObjTypeNative); return ok }
func (v Value) AsNative() *ObjNative {
	o, _ := v.objOfType(ObjTypeNative)
	n, _ := o.(*ObjNative)
	return n
}

func (v Value) IsClass() bool { _, ok := v.objOfType(ObjTypeClass); return ok }
func (v Value) AsClass() *ObjClass {
	o, _ := v.objOfType(ObjTypeClass)
	c, _ := o.(*ObjClass)
	return c
}

func (v Value) IsInstance() bool { _, ok := v.objOfType(ObjTypeInstance); return ok }
func (v Value) AsInstance() *ObjInstance {
	o, _ := v.objOfType(ObjTypeInstance)
	i, _ := o.(*ObjInstance)
	return i
}

func (v Value) IsBoundMethod() bool { _, ok := v.objOfType(ObjTypeBoundMethod); return ok }
func (v Value) AsBoundMethod() *ObjBoundMethod {
	o, _ := v.objOfType(ObjTypeBoundMethod)
	b, _ := o.(*ObjBoundMethod)
	return b
}

func (v Value) IsBoundNative() bool { _, ok := v.objOfType(ObjTypeBoundNative); return ok }
func (v Value) AsBoundNative() *ObjBoundNative {
	o, _ := v.objOfType(ObjTypeBoundNative)
	b, _ := o.(*ObjBoundNative)
	return b
}

func (v Value) IsList() bool { _, ok := v.objOfType(ObjTypeList); return ok }
func (v Value) AsList() *ObjList {
	o, _ := v.objOfType(ObjTypeList)
	l, _ := o.(*ObjList)
	return l
}

func (v Value) IsDict() bool { _, ok := v.objOfType(ObjTypeDict); return ok }
func (v Value) AsDict() *ObjDict {
	o, _ := v.objOfType(ObjTypeDict)
	d, _ := o.(*ObjDict)
	return d
}

func (v Value) IsOption() bool { _, ok := v.objOfType(ObjTypeOption); return ok }
func (v Value) AsOption() *ObjOption {
	o, _ := v.objOfType(ObjTypeOption)
	opt, _ := o.(*ObjOption)
	return opt
}

// IsFalsey reports whether v counts as false in a boolean context: nil,
// false, the number zero, and an option holding nothing.
func (v Value) IsFalsey() bool {
	switch v.typ {
	case ValNil:
		return true
	case ValBool:
		return !v.AsBool()
	case ValNumber:
		return v.num == 0
	case ValObject:
		if opt, ok := v.objOfType(ObjTypeOption); ok {
			return !opt.(*ObjOption).HasValue
		}
		return false
	}
	return false
}

// ValuesEqual compares by value for numbers/booleans/nil and by reference
// identity for heap objects (safe for strings because of interning).
func ValuesEqual(a, b Value) bool {
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case ValNil, ValEmpty:
		return true
	case ValBool, ValNumber:
		return a.num == b.num
	case ValObject:
		return a.obj == b.obj
	}
	return false
}

// String renders a value the way PRINT does.
func (v Value) String() string {
	switch v.typ {
	case ValNil:
		return "nil"
	case ValBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case ValNumber:
		return formatNumber(v.num)
	case ValObject:
		return objectString(v.obj)
	}
	return "<empty>"
}

func formatNumber(n float64) string {
	if math.IsInf(n, 1) {
		return "+inf"
	}
	if math.IsInf(n, -1) {
		return "-inf"
	}
	if math.IsNaN(n) {
		return "NaN"
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

func objectString(o Obj) string {
	switch obj := o.(type) {
	case *ObjString:
		return string(obj.Bytes)
	case *ObjFunction:
		if obj.Name == nil {
			return "<script>"
		}
		return fmt.Sprintf("<func %s>", string(obj.Name.Bytes))
	case *ObjNative:
		return fmt.Sprintf("<native %s>", obj.Name)
	case *ObjClosure:
		return objectString(obj.Fn)
	case *ObjUpvalue:
		return "<upvalue>"
	case *ObjBoundMethod:
		return objectString(obj.Method)
	case *ObjBoundNative:
		return objectString(obj.Method)
	case *ObjClass:
		return string(obj.Name.Bytes)
	case *ObjInstance:
		return fmt.Sprintf("<%s instance>", string(obj.Class.Name.Bytes))
	case *ObjList:
		parts := make([]string, len(obj.Items))
		for i, it := range obj.Items {
			if it.IsString() {
				parts[i] = fmt.Sprintf("%q", string(it.AsString().Bytes))
			} else {
				parts[i] = it.String()
			}
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *ObjDict:
		return "<dict>"
	case *ObjOption:
		if obj.HasValue {
			return fmt.Sprintf("some(%s)", obj.Value.String())
		}
		return "none"
	}
	return "<object>"
}

// TypeName reports the dynamic type name used in runtime error messages.
func (v Value) TypeName() string {
	switch v.typ {
	case ValNil:
		return "nil"
	case ValBool:
		return "boolean"
	case ValNumber:
		return "number"
	case ValObject:
		switch v.obj.Type() {
		case ObjTypeString:
			return "string"
		case ObjTypeFunction, ObjTypeClosure, ObjTypeNative:
			return "function"
		case ObjTypeClass:
			return "class"
		case ObjTypeInstance:
			return "instance"
		case ObjTypeList:
			return "list"
		case ObjTypeDict:
			return "dict"
		case ObjTypeOption:
			return "option"
		case ObjTypeBoundMethod, ObjTypeBoundNative:
			return "bound method"
		}
	}
	return "value"
}
