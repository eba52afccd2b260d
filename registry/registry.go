package registry

import (
	"sync"

	wasmtypes "github.com/wippyai/wasm-types"
	"github.com/wippyai/wasm-types/types"
)

// Registry is the engine-wide type registry. It is safe for concurrent use;
// registration and unregistration take the write side of one reader-writer
// lock, lookups take the read side.
//
// A Registry belongs to exactly one engine context and is torn down with
// it. Indices from different registries are not interchangeable.
type Registry struct {
	mu   sync.RWMutex
	core registryCore
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{core: newRegistryCore()}
}

// RegisterModuleTypes registers a module's type section, given as its
// recursion groups in declaration order. Later groups may reference earlier
// ones by module-local index; references between groups must be acyclic.
//
// The returned set owns every registered group and must be closed when the
// module no longer needs its types.
func (r *Registry) RegisterModuleTypes(groups []types.RecGroup) *ModuleTypeSet {
	r.mu.Lock()
	entries, resolved := r.core.registerModuleTypes(groups)
	r.mu.Unlock()

	toLocal := make(map[wasmtypes.SharedTypeIndex]wasmtypes.ModuleTypeIndex, len(resolved))
	for i, shared := range resolved {
		if _, ok := toLocal[shared]; !ok {
			toLocal[shared] = wasmtypes.ModuleTypeIndex(i)
		}
	}
	return &ModuleTypeSet{
		reg:      r,
		entries:  entries,
		toShared: resolved,
		toLocal:  toLocal,
	}
}

// Borrow returns the definition registered at idx, or false if nothing is
// currently registered there. Borrow does not extend the type's lifetime:
// unless the caller independently owns a handle or set covering idx, the
// definition may become unavailable the moment Borrow returns.
func (r *Registry) Borrow(idx wasmtypes.SharedTypeIndex) (*types.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.core.slab.get(idx)
}

// RootHandle upgrades a bare engine index into an owning handle. The incref
// happens while the read lock from the lookup is still held; releasing the
// lock first would let a concurrent drop fully remove the entry in between.
func (r *Registry) RootHandle(idx wasmtypes.SharedTypeIndex) (*TypeHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.core.owners[idx]
	if !ok {
		return nil, false
	}
	def, ok := r.core.slab.get(idx)
	if !ok {
		panic("engine index has an owner but no slab slot")
	}
	entry.incref("rooted handle")
	return &TypeHandle{reg: r, entry: entry, def: def, index: idx}, true
}

// Len returns the number of live registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.core.slab.live
}

// GroupCount returns the number of registered recursion groups.
func (r *Registry) GroupCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.core.conses)
}

// Empty reports whether the registry holds no types, no groups and no
// index mappings. After every owner is released it returns to empty.
func (r *Registry) Empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.core.empty()
}
