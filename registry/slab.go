package registry

import (
	"fmt"

	"fortio.org/safecast"

	wasmtypes "github.com/wippyai/wasm-types"
	"github.com/wippyai/wasm-types/types"
)

// slab is dense storage mapping engine indices to registered definitions.
// Freed slots go on a free list; singleton allocations reuse it, group
// allocations take a fresh contiguous run so member indices stay adjacent.
type slab struct {
	slots []slabSlot
	free  []wasmtypes.SharedTypeIndex
	live  int
}

type slabSlot struct {
	def   *types.Definition
	valid bool
}

// allocRange assigns n slots and returns their indices in order.
// Runs of more than one slot are always contiguous.
func (s *slab) allocRange(n int) []wasmtypes.SharedTypeIndex {
	if n == 1 && len(s.free) > 0 {
		idx := s.free[len(s.free)-1]
		s.free = s.free[:len(s.free)-1]
		s.slots[idx] = slabSlot{valid: true}
		s.live++
		return []wasmtypes.SharedTypeIndex{idx}
	}

	start, err := safecast.Conv[uint32](len(s.slots))
	if err != nil {
		panic(fmt.Errorf("slab length overflow: %w", err))
	}
	out := make([]wasmtypes.SharedTypeIndex, n)
	for i := 0; i < n; i++ {
		out[i] = wasmtypes.SharedTypeIndex(start + uint32(i))
		s.slots = append(s.slots, slabSlot{valid: true})
	}
	s.live += n
	return out
}

// set stores the definition for an allocated slot.
func (s *slab) set(idx wasmtypes.SharedTypeIndex, def *types.Definition) {
	slot := &s.slots[idx]
	if !slot.valid {
		panic(fmt.Sprintf("slab slot %d is not allocated", idx))
	}
	slot.def = def
}

// get returns the definition at idx, if the slot is live.
func (s *slab) get(idx wasmtypes.SharedTypeIndex) (*types.Definition, bool) {
	if int(idx) >= len(s.slots) {
		return nil, false
	}
	slot := s.slots[idx]
	if !slot.valid {
		return nil, false
	}
	return slot.def, true
}

// freeSlot releases a live slot for reuse.
func (s *slab) freeSlot(idx wasmtypes.SharedTypeIndex) {
	slot := &s.slots[idx]
	if !slot.valid {
		panic(fmt.Sprintf("double free of slab slot %d", idx))
	}
	slot.valid = false
	slot.def = nil
	s.free = append(s.free, idx)
	s.live--
}
