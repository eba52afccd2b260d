package registry

import (
	"sync/atomic"

	"go.uber.org/zap"

	wasmtypes "github.com/wippyai/wasm-types"
	"github.com/wippyai/wasm-types/types"
)

// recGroupEntry is the registry's identity for one registered recursion
// group. Identity is structural: two entries with equal keys are the same
// group, which is what makes deduplication a map lookup.
type recGroupEntry struct {
	// key is the canonical byte encoding of the group's hash-consing form.
	key string

	// hashDefs is the hash-consing canonical form itself. Cross-group edges
	// are traced from it, both when a new group pins its targets and when
	// teardown unpins them.
	hashDefs []types.Definition

	// indices are the group's slab slots, in member order.
	indices []wasmtypes.SharedTypeIndex

	// refs counts live owners: module sets holding the group, handles
	// rooted on it, and one per incoming cross-group edge.
	refs atomic.Int64

	// unregistered flips exactly once, under the registry write lock, when
	// some caller claims responsibility for removing the entry.
	unregistered atomic.Bool
}

func (e *recGroupEntry) incref(reason string) {
	n := e.refs.Add(1)
	Logger().Debug("incref recursion group",
		zap.Int64("index", e.logIndex()),
		zap.Int64("refs", n),
		zap.String("reason", reason))
}

// decref returns true when the count reaches exactly zero. The result is
// advisory: it obligates the caller to re-enter the write lock and call
// unregisterEntry, which re-validates before removing anything.
func (e *recGroupEntry) decref(reason string) bool {
	n := e.refs.Add(-1)
	if n < 0 {
		panic("recursion group refcount went negative")
	}
	Logger().Debug("decref recursion group",
		zap.Int64("index", e.logIndex()),
		zap.Int64("refs", n),
		zap.String("reason", reason))
	return n == 0
}

// edges calls visit once per cross-group reference in the entry's key form,
// in trace order. References within the group are group-relative in this
// form and are skipped.
func (e *recGroupEntry) edges(visit func(wasmtypes.SharedTypeIndex)) {
	for i := range e.hashDefs {
		e.hashDefs[i].Trace(func(r *types.Ref) {
			if r.Kind == types.RefShared {
				visit(r.Shared())
			}
		})
	}
}

func (e *recGroupEntry) logIndex() int64 {
	if len(e.indices) == 0 {
		return -1
	}
	return int64(e.indices[0])
}
