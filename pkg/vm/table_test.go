package vm

import "testing"

func TestTableSetGetDelete(t *testing.T) {
	table := NewTable()
	key := ObjectValue(NewVM().InternString([]byte("foo")))

	if _, found, _ := table.Get(key); found {
		t.Fatalf("empty table should not find any key")
	}

	isNew, err := table.Set(key, NumberValue(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !isNew {
		t.Errorf("first Set of a key should report isNew=true")
	}

	v, found, _ := table.Get(key)
	if !found || v.AsNumber() != 1 {
		t.Fatalf("Get after Set = (%v, %v), want (1, true)", v, found)
	}

	isNew, _ = table.Set(key, NumberValue(2))
	if isNew {
		t.Errorf("overwriting an existing key should report isNew=false")
	}
	v, _, _ = table.Get(key)
	if v.AsNumber() != 2 {
		t.Errorf("Get after overwrite = %v, want 2", v)
	}

	deleted, _ := table.Delete(key)
	if !deleted {
		t.Errorf("Delete of a present key should report true")
	}
	if _, found, _ := table.Get(key); found {
		t.Errorf("Get after Delete should not find the key")
	}
}

func TestTableRejectsUnhashableKey(t *testing.T) {
	vm := NewVM()
	table := NewTable()
	list := ObjectValue(vm.newList(nil))

	if _, _, err := table.Get(list); err != ErrUnhashable {
		t.Errorf("Get with a list key: err = %v, want ErrUnhashable", err)
	}
	if _, err := table.Set(list, Nil); err != ErrUnhashable {
		t.Errorf("Set with a list key: err = %v, want ErrUnhashable", err)
	}
}

func TestTableGrowsAndSurvivesProbing(t *testing.T) {
	vm := NewVM()
	table := NewTable()
	const n = 200
	for i := 0; i < n; i++ {
		key := ObjectValue(vm.InternString([]byte{byte(i), byte(i >> 8)}))
		if _, err := table.Set(key, NumberValue(float64(i))); err != nil {
			t.Fatalf("Set #%d: %v", i, err)
		}
	}
	if table.Len() != n {
		t.Fatalf("Len() = %d, want %d", table.Len(), n)
	}
	for i := 0; i < n; i++ {
		key := ObjectValue(vm.InternString([]byte{byte(i), byte(i >> 8)}))
		v, found, _ := table.Get(key)
		if !found || v.AsNumber() != float64(i) {
			t.Fatalf("Get(#%d) = (%v, %v), want (%d, true)", i, v, found, i)
		}
	}
}

func TestTableFindString(t *testing.T) {
	vm := NewVM()
	table := NewTable()
	s := vm.InternString([]byte("needle"))
	table.Set(ObjectValue(s), True)

	found := table.FindString([]byte("needle"), s.Hash)
	if found != s {
		t.Fatalf("FindString did not return the same interned *ObjString")
	}
	if table.FindString([]byte("haystack"), fnv1a([]byte("haystack"))) != nil {
		t.Errorf("FindString should return nil for content not present")
	}
}

func TestTableAddAll(t *testing.T) {
	vm := NewVM()
	src := NewTable()
	dst := NewTable()
	a := ObjectValue(vm.InternString([]byte("a")))
	b := ObjectValue(vm.InternString([]byte("b")))
	src.Set(a, NumberValue(1))
	src.Set(b, NumberValue(2))

	dst.AddAll(src)

	if v, found, _ := dst.Get(a); !found || v.AsNumber() != 1 {
		t.Errorf("AddAll did not copy key a correctly")
	}
	if v, found, _ := dst.Get(b); !found || v.AsNumber() != 2 {
		t.Errorf("AddAll did not copy key b correctly")
	}
}
