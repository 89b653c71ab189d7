package vm

import (
	"bytes"
	"math"
)

// ErrUnhashable is returned by table operations when the key's type has no
// hash (any object variant other than a string).
var ErrUnhashable = &chunkError{"Unhashable type."}

// hashValue reduces numbers by XOR-folding their IEEE bit pattern rather
// than truncating, so non-integer keys hash sensibly.
func hashValue(v Value) (uint32, bool) {
	switch v.typ {
	case ValNil, ValEmpty:
		return 0, true
	case ValBool:
		if v.AsBool() {
			return 1, true
		}
		return 0, true
	case ValNumber:
		bits := math.Float64bits(v.num)
		return uint32(bits) ^ uint32(bits>>32), true
	case ValObject:
		if s, ok := v.objOfType(ObjTypeString); ok {
			return s.(*ObjString).Hash, true
		}
		return 0, false
	}
	return 0, false
}

func fnv1a(data []byte) uint32 {
	var h uint32 = 2166136261
	for _, b := range data {
		h ^= uint32(b)
		h *= 16777619
	}
	return h
}

type tableEntry struct {
	key   Value
	value Value
}

// Table is an open-addressed hash table keyed by Value, with linear
// probing and tombstone-on-delete.
type Table struct {
	entries []tableEntry
	count   int // live entries plus tombstones
}

// NewTable returns an empty table.
func NewTable() *Table { return &Table{} }

func emptyEntries(n int) []tableEntry {
	e := make([]tableEntry, n)
	for i := range e {
		e[i] = tableEntry{key: Empty, value: Nil}
	}
	return e
}

func (t *Table) findEntry(entries []tableEntry, key Value) (*tableEntry, error) {
	capacity := len(entries)
	h, ok := hashValue(key)
	if !ok {
		return nil, ErrUnhashable
	}
	index := int(h) & (capacity - 1)
	var tombstone *tableEntry
	for {
		e := &entries[index]
		if e.key.IsEmpty() {
			if e.value.IsNil() {
				if tombstone != nil {
					return tombstone, nil
				}
				return e, nil
			}
			if tombstone == nil {
				tombstone = e
			}
		} else if ValuesEqual(e.key, key) {
			return e, nil
		}
		index = (index + 1) & (capacity - 1)
	}
}

func (t *Table) grow() {
	newCap := 8
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}
	newEntries := emptyEntries(newCap)
	newCount := 0
	for _, e := range t.entries {
		if e.key.IsEmpty() {
			continue
		}
		dst, _ := t.findEntry(newEntries, e.key)
		dst.key = e.key
		dst.value = e.value
		newCount++
	}
	t.entries = newEntries
	t.count = newCount
}

// Get looks up key, returning (value, found, err). err is ErrUnhashable if
// the key's type cannot be hashed.
func (t *Table) Get(key Value) (Value, bool, error) {
	if len(t.entries) == 0 {
		if _, ok := hashValue(key); !ok {
			return Nil, false, ErrUnhashable
		}
		return Nil, false, nil
	}
	e, err := t.findEntry(t.entries, key)
	if err != nil {
		return Nil, false, err
	}
	if e.key.IsEmpty() {
		return Nil, false, nil
	}
	return e.value, true, nil
}

// Set inserts or overwrites key -> value, returning (isNewKey, err).
func (t *Table) Set(key Value, value Value) (bool, error) {
	if _, ok := hashValue(key); !ok {
		return false, ErrUnhashable
	}
	if len(t.entries) == 0 || t.count+1 > int(float64(len(t.entries))*0.75) {
		t.grow()
	}
	e, err := t.findEntry(t.entries, key)
	if err != nil {
		return false, err
	}
	isNew := e.key.IsEmpty()
	if isNew && e.value.IsNil() {
		t.count++
	}
	e.key = key
	e.value = value
	return isNew, nil
}

// Delete writes a tombstone for key, returning whether it had been present.
func (t *Table) Delete(key Value) (bool, error) {
	if len(t.entries) == 0 {
		return false, nil
	}
	e, err := t.findEntry(t.entries, key)
	if err != nil {
		return false, err
	}
	if e.key.IsEmpty() {
		return false, nil
	}
	e.key = Empty
	e.value = True
	return true, nil
}

// AddAll bulk-copies every live entry from src into t (used by OP_INHERIT).
func (t *Table) AddAll(src *Table) {
	for _, e := range src.entries {
		if !e.key.IsEmpty() {
			t.Set(e.key, e.value)
		}
	}
}

// FindString looks up an interned string by content without allocating a
// new object, used by the VM's string-interning path.
func (t *Table) FindString(data []byte, hash uint32) *ObjString {
	if len(t.entries) == 0 {
		return nil
	}
	capacity := len(t.entries)
	index := int(hash) & (capacity - 1)
	for {
		e := &t.entries[index]
		if e.key.IsEmpty() {
			if e.value.IsNil() {
				return nil
			}
		} else if s, ok := e.key.objOfType(ObjTypeString); ok {
			str := s.(*ObjString)
			if str.Hash == hash && bytes.Equal(str.Bytes, data) {
				return str
			}
		}
		index = (index + 1) & (capacity - 1)
	}
}

// mark marks every live key object and value reachable from the table.
func (t *Table) mark(vm *VM) {
	for i := range t.entries {
		vm.markValue(t.entries[i].key)
		vm.markValue(t.entries[i].value)
	}
}

// removeWhite deletes entries whose key object was not marked during the
// last trace, letting unreferenced interned strings be collected.
func (t *Table) removeWhite() {
	for i := range t.entries {
		e := &t.entries[i]
		if s, ok := e.key.objOfType(ObjTypeString); ok && !s.isMarked() {
			t.Delete(e.key)
		}
	}
}

// Len reports the number of live (non-tombstone) entries.
func (t *Table) Len() int {
	n := 0
	for _, e := range t.entries {
		if !e.key.IsEmpty() {
			n++
		}
	}
	return n
}
