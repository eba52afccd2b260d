package registry

import (
	"fmt"

	"go.uber.org/zap"

	wasmtypes "github.com/wippyai/wasm-types"
	"github.com/wippyai/wasm-types/types"
)

// registryCore is the mutable heart of the registry: the hash-consing map,
// the slab of live definitions, and the reverse map from engine index to
// owning group. Every method requires the owning Registry's write lock;
// nothing here locks.
type registryCore struct {
	conses map[string]*recGroupEntry
	slab   slab
	owners map[wasmtypes.SharedTypeIndex]*recGroupEntry
}

func newRegistryCore() registryCore {
	return registryCore{
		conses: make(map[string]*recGroupEntry),
		owners: make(map[wasmtypes.SharedTypeIndex]*recGroupEntry),
	}
}

// registerRecGroup registers one recursion group whose module-local indices
// start at len(resolved); resolved assigns every earlier index its engine
// index. The returned entry's refcount already includes the caller's hold.
//
// Structurally identical groups collapse to one entry: the group is first
// canonicalized into an assignment-independent key (cross-group references
// resolved, intra-group references made group-relative) and looked up in
// the consing map. Only a miss allocates slab slots and builds the runtime
// form, in which intra-group references become the concrete indices just
// assigned. The two canonical forms are distinct on purpose: the key must
// not depend on slot assignment, runtime consumers need resolved indices.
func (c *registryCore) registerRecGroup(resolved []wasmtypes.SharedTypeIndex, defs []types.Definition) *recGroupEntry {
	start := wasmtypes.ModuleTypeIndex(len(resolved))
	group := types.Range{Start: start, End: start + wasmtypes.ModuleTypeIndex(len(defs))}
	resolve := func(i wasmtypes.ModuleTypeIndex) wasmtypes.SharedTypeIndex {
		if int(i) >= len(resolved) {
			panic(fmt.Sprintf("type %d referenced before registration", i))
		}
		return resolved[i]
	}

	hashDefs := make([]types.Definition, len(defs))
	for i := range defs {
		hashDefs[i] = defs[i].Clone()
		hashDefs[i].CanonicalizeForHashConsing(group, resolve)
	}
	key := types.Key(hashDefs)

	if e, ok := c.conses[key]; ok {
		// A concurrent drop may have taken this entry to zero without
		// removing it yet; increfing here resurrects it. An entry still in
		// the map can never carry the unregistered flag, because the flag
		// is set in the same critical section that removes it.
		if e.unregistered.Load() {
			panic("hash-consed onto an unregistered recursion group")
		}
		e.incref("hash consed")
		return e
	}

	// New content. Each cross-group edge pins its target for as long as
	// this group stays registered; counting the edges here is the only
	// bookkeeping, teardown walks the same canonical form in reverse.
	edgeCount := 0
	for i := range hashDefs {
		hashDefs[i].Trace(func(r *types.Ref) {
			if r.Kind != types.RefShared {
				return
			}
			target, ok := c.owners[r.Shared()]
			if !ok {
				panic(fmt.Sprintf("cross-group reference to unregistered type %d", r.Index))
			}
			target.incref("new recursion group edge")
			edgeCount++
		})
	}

	indices := c.slab.allocRange(len(defs))
	for i := range defs {
		def := defs[i].Clone()
		def.CanonicalizeForRuntimeUsage(func(m wasmtypes.ModuleTypeIndex) wasmtypes.SharedTypeIndex {
			if group.Contains(m) {
				return indices[m-start]
			}
			return resolve(m)
		})
		c.slab.set(indices[i], &def)
	}

	e := &recGroupEntry{key: key, hashDefs: hashDefs, indices: indices}
	e.refs.Store(1)
	c.conses[key] = e
	for _, idx := range indices {
		c.owners[idx] = e
	}

	Logger().Debug("registered recursion group",
		zap.Int64("index", e.logIndex()),
		zap.Int("types", len(indices)),
		zap.Int("edges", edgeCount))
	return e
}

// registerModuleTypes registers every recursion group of a module's type
// section in declaration order, threading the growing module-local to
// engine index assignment so later groups can reference earlier ones.
// It returns the entries in group order and the complete assignment.
func (c *registryCore) registerModuleTypes(groups []types.RecGroup) ([]*recGroupEntry, []wasmtypes.SharedTypeIndex) {
	entries := make([]*recGroupEntry, 0, len(groups))
	var resolved []wasmtypes.SharedTypeIndex
	for _, g := range groups {
		e := c.registerRecGroup(resolved, g.Types)
		entries = append(entries, e)
		resolved = append(resolved, e.indices...)
	}
	return entries, resolved
}

// unregisterEntry removes entry and, transitively, everything only it was
// keeping alive. The caller holds the write lock and has observed entry's
// refcount reach zero; that observation is stale by construction and gets
// re-validated here before any state is touched.
func (c *registryCore) unregisterEntry(entry *recGroupEntry) {
	// Between the zero crossing that triggered this call and taking the
	// lock, another thread may have hash-consed onto the entry and
	// resurrected it. Back off; its removal belongs to whoever observes
	// the next zero crossing.
	if entry.refs.Load() != 0 {
		if entry.unregistered.Load() {
			panic("resurrected recursion group was already unregistered")
		}
		return
	}

	// The same zero crossing can reach here twice: an entry resurrected
	// and re-dropped queues a second removal for state the first already
	// tore down.
	if entry.unregistered.Load() {
		return
	}
	entry.unregistered.Store(true)

	// Dropping a group's edges can take other groups to zero, and those
	// chains run as long as a module's type section. An explicit worklist
	// bounds teardown by heap instead of stack depth.
	work := []*recGroupEntry{entry}
	for len(work) > 0 {
		e := work[len(work)-1]
		work = work[:len(work)-1]

		e.edges(func(target wasmtypes.SharedTypeIndex) {
			owner := c.owners[target]
			if owner.decref("dropped recursion group edge") {
				if owner.unregistered.Load() {
					panic("edge target was already unregistered")
				}
				owner.unregistered.Store(true)
				work = append(work, owner)
			}
		})

		for _, idx := range e.indices {
			c.slab.freeSlot(idx)
			delete(c.owners, idx)
		}
		delete(c.conses, e.key)

		Logger().Debug("unregistered recursion group",
			zap.Int64("index", e.logIndex()),
			zap.Int("types", len(e.indices)))
	}
}

func (c *registryCore) empty() bool {
	return len(c.conses) == 0 && len(c.owners) == 0 && c.slab.live == 0
}
