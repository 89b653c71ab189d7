package vm

import "testing"

// TestGCCollectionIdempotent runs two back-to-back collections with nothing
// new allocated in between; the second must neither shrink nor grow the
// live-byte count, since there is nothing new to reclaim.
func TestGCCollectionIdempotent(t *testing.T) {
	vm := NewVM()
	root := vm.InternString([]byte("kept alive"))
	vm.globals.Set(ObjectValue(root), True)

	vm.collectGarbage()
	after1, _ := vm.HeapStats()
	vm.collectGarbage()
	after2, _ := vm.HeapStats()

	if after1 != after2 {
		t.Errorf("two consecutive collections with no new garbage: %d bytes then %d bytes, want equal", after1, after2)
	}
}

// TestGCReclaimsUnreachableObjects allocates a list the stack and globals
// never reference, then collects; the list's byte cost must be reclaimed.
func TestGCReclaimsUnreachableObjects(t *testing.T) {
	vm := NewVM()
	before, _ := vm.HeapStats()
	vm.newList(make([]Value, 10))
	mid, _ := vm.HeapStats()
	if mid <= before {
		t.Fatalf("allocating a list should increase bytesAllocated")
	}

	vm.collectGarbage()
	after, _ := vm.HeapStats()
	if after != before {
		t.Errorf("collecting with no roots pointing at the list: allocated = %d, want back to %d", after, before)
	}
}

// TestGCReclaimsUnreferencedInternedString interns a string with no other
// root pointing at it; the intern table itself must not be a GC root, or
// the string (and every string ever interned) would live forever.
func TestGCReclaimsUnreferencedInternedString(t *testing.T) {
	vm := NewVM()
	s := vm.InternString([]byte("ephemeral"))
	hash := s.Hash

	vm.collectGarbage()

	if found := vm.strings.FindString([]byte("ephemeral"), hash); found != nil {
		t.Errorf("an interned string with no other root should be swept, but FindString still returns it")
	}
}

func TestGCTuningControlsThreshold(t *testing.T) {
	vm := NewVM()
	vm.SetGCTuning(4096, 3)
	_, next := vm.HeapStats()
	if next != 4096 {
		t.Fatalf("SetGCTuning should set nextGC to the new initial heap: got %d, want 4096", next)
	}

	vm.globals.Set(ObjectValue(vm.InternString([]byte("root"))), True)
	vm.collectGarbage()
	_, next = vm.HeapStats()
	if next < 4096 {
		t.Errorf("nextGC should never fall below the configured initial heap floor: got %d", next)
	}
}

func TestGCStressModeCollectsOnEveryAllocation(t *testing.T) {
	vm := NewVM()
	vm.SetGCStressMode(true)
	collections := 0
	vm.OnGC(func(before, after uint64) { collections++ })

	vm.newList(nil)
	vm.newList(nil)
	vm.newList(nil)

	if collections != 3 {
		t.Errorf("stress mode should collect on every allocation: got %d collections, want 3", collections)
	}
}
