package registry

import (
	"testing"

	wasmtypes "github.com/wippyai/wasm-types"
	"github.com/wippyai/wasm-types/types"
)

func TestSlabAllocContiguous(t *testing.T) {
	var s slab
	got := s.allocRange(3)
	want := []wasmtypes.SharedTypeIndex{0, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("allocRange(3) = %v, want %v", got, want)
		}
	}
	if s.live != 3 {
		t.Fatalf("live = %d, want 3", s.live)
	}
}

func TestSlabSingletonReusesFreedSlot(t *testing.T) {
	var s slab
	s.allocRange(1)
	kept := s.allocRange(1)[0]
	s.freeSlot(0)

	if got := s.allocRange(1)[0]; got != 0 {
		t.Fatalf("singleton alloc = %d, want freed slot 0", got)
	}
	if kept != 1 {
		t.Fatalf("kept slot = %d, want 1", kept)
	}
}

func TestSlabGroupSkipsFreeList(t *testing.T) {
	var s slab
	s.allocRange(1)
	s.allocRange(1)
	s.freeSlot(0)

	// A multi-member group needs adjacent slots, so the lone free slot
	// cannot serve it.
	got := s.allocRange(2)
	if got[0] != 2 || got[1] != 3 {
		t.Fatalf("allocRange(2) = %v, want [2 3]", got)
	}
}

func TestSlabGetAfterFree(t *testing.T) {
	var s slab
	idx := s.allocRange(1)[0]
	def := fnDef(types.I32)
	s.set(idx, &def)

	if got, ok := s.get(idx); !ok || got != &def {
		t.Fatal("get missed a live slot")
	}

	s.freeSlot(idx)
	if _, ok := s.get(idx); ok {
		t.Fatal("get returned a freed slot")
	}
	if _, ok := s.get(99); ok {
		t.Fatal("get returned an out-of-range slot")
	}
	if s.live != 0 {
		t.Fatalf("live = %d, want 0", s.live)
	}
}

func TestSlabDoubleFreePanics(t *testing.T) {
	var s slab
	idx := s.allocRange(1)[0]
	s.freeSlot(idx)

	defer func() {
		if recover() == nil {
			t.Error("double free did not panic")
		}
	}()
	s.freeSlot(idx)
}
