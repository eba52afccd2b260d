package registry

import (
	"sync/atomic"

	wasmtypes "github.com/wippyai/wasm-types"
)

// ModuleTypeSet owns every recursion group registered for one module and
// translates between the module's local indices and engine indices. Closing
// the set releases the whole batch.
type ModuleTypeSet struct {
	reg      *Registry
	entries  []*recGroupEntry
	toShared []wasmtypes.SharedTypeIndex
	toLocal  map[wasmtypes.SharedTypeIndex]wasmtypes.ModuleTypeIndex
	released atomic.Bool
}

// SharedIndex returns the engine index assigned to a module-local index.
func (s *ModuleTypeSet) SharedIndex(i wasmtypes.ModuleTypeIndex) (wasmtypes.SharedTypeIndex, bool) {
	if int(i) >= len(s.toShared) {
		return 0, false
	}
	return s.toShared[i], true
}

// LocalIndex returns the module-local index registered at an engine index.
// When a module registers the same group twice, the first occurrence wins.
func (s *ModuleTypeSet) LocalIndex(i wasmtypes.SharedTypeIndex) (wasmtypes.ModuleTypeIndex, bool) {
	local, ok := s.toLocal[i]
	return local, ok
}

// Len returns the number of types the module registered.
func (s *ModuleTypeSet) Len() int {
	return len(s.toShared)
}

// GroupLen returns the number of recursion groups the module registered.
func (s *ModuleTypeSet) GroupLen() int {
	return len(s.entries)
}

// Close releases the set's hold on every group it registered. The whole
// batch is decref'd under a single write-lock acquisition; groups whose
// count reaches zero are then unregistered, cascading to anything only
// they referenced. Close is idempotent.
func (s *ModuleTypeSet) Close() {
	if s.released.Swap(true) {
		return
	}

	r := s.reg
	r.mu.Lock()
	defer r.mu.Unlock()

	var dead []*recGroupEntry
	for _, e := range s.entries {
		if e.decref("module type set released") {
			dead = append(dead, e)
		}
	}
	for _, e := range dead {
		r.core.unregisterEntry(e)
	}
}
