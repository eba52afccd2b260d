package registry

import (
	"sync/atomic"

	wasmtypes "github.com/wippyai/wasm-types"
	"github.com/wippyai/wasm-types/types"
)

// TypeHandle owns one registered type. It roots the type's whole recursion
// group: while any handle to any member is alive, every member stays
// registered. Handles share the group's single refcount, so cloning and
// dropping are cheap and lock-free until a drop crosses zero.
type TypeHandle struct {
	reg      *Registry
	entry    *recGroupEntry
	def      *types.Definition
	index    wasmtypes.SharedTypeIndex
	released atomic.Bool
}

// NewTypeHandle registers def as a singleton recursion group and returns an
// owning handle. Host-defined types enter the registry this way. Any
// references in def must already be engine indices backed by live
// registrations; module-local references are a caller bug.
func NewTypeHandle(r *Registry, def types.Definition) *TypeHandle {
	r.mu.Lock()
	entry := r.core.registerRecGroup(nil, []types.Definition{def})
	stored, ok := r.core.slab.get(entry.indices[0])
	r.mu.Unlock()
	if !ok {
		panic("registered singleton group has no slab slot")
	}
	return &TypeHandle{reg: r, entry: entry, def: stored, index: entry.indices[0]}
}

// Index returns the handle's engine index. It stays resolvable for the
// handle's lifetime.
func (h *TypeHandle) Index() wasmtypes.SharedTypeIndex {
	return h.index
}

// Definition returns the registered, runtime-canonicalized definition.
func (h *TypeHandle) Definition() *types.Definition {
	return h.def
}

// Clone returns a new owning handle to the same type without touching the
// registry lock.
func (h *TypeHandle) Clone() *TypeHandle {
	h.entry.incref("handle cloned")
	return &TypeHandle{reg: h.reg, entry: h.entry, def: h.def, index: h.index}
}

// Close releases the handle. Only the release that takes the group's
// refcount to zero enters the write lock, where the zero is re-validated
// before the group is actually removed. Close is idempotent.
func (h *TypeHandle) Close() {
	if h.released.Swap(true) {
		return
	}
	if h.entry.decref("handle released") {
		h.reg.mu.Lock()
		h.reg.core.unregisterEntry(h.entry)
		h.reg.mu.Unlock()
	}
}
