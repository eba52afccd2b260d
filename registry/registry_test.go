package registry

import (
	"testing"

	wasmtypes "github.com/wippyai/wasm-types"
	"github.com/wippyai/wasm-types/types"
)

func fnDef(params ...types.ValType) types.Definition {
	return types.Definition{Final: true, Comp: types.FuncComp(types.FuncType{Params: params})}
}

func refStructDef(target types.Ref) types.Definition {
	return types.Definition{Final: true, Comp: types.StructComp(types.StructType{
		Fields: []types.FieldType{{
			Storage: types.StorageType{Val: types.RefVal(types.RefType{
				Nullable: true,
				Heap:     types.ConcreteHeap(target),
			})},
		}},
	})}
}

func singleton(d types.Definition) []types.RecGroup {
	return []types.RecGroup{{Types: []types.Definition{d}}}
}

func TestRegisterModuleTypes(t *testing.T) {
	r := NewRegistry()
	set := r.RegisterModuleTypes([]types.RecGroup{
		{Types: []types.Definition{fnDef(types.I32)}},
		{Types: []types.Definition{fnDef(types.I64), fnDef(types.F32)}},
	})

	if set.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", set.Len())
	}
	if set.GroupLen() != 2 {
		t.Fatalf("GroupLen() = %d, want 2", set.GroupLen())
	}
	if r.Len() != 3 || r.GroupCount() != 2 {
		t.Fatalf("registry has %d types in %d groups, want 3 in 2", r.Len(), r.GroupCount())
	}

	for local := wasmtypes.ModuleTypeIndex(0); local < 3; local++ {
		shared, ok := set.SharedIndex(local)
		if !ok {
			t.Fatalf("SharedIndex(%d) missing", local)
		}
		if _, ok := r.Borrow(shared); !ok {
			t.Fatalf("Borrow(%d) missing", shared)
		}
		back, ok := set.LocalIndex(shared)
		if !ok || back != local {
			t.Fatalf("LocalIndex(%d) = %d, %v, want %d", shared, back, ok, local)
		}
	}

	if _, ok := set.SharedIndex(3); ok {
		t.Error("SharedIndex past the module's types should miss")
	}

	set.Close()
	if !r.Empty() {
		t.Error("registry not empty after closing the only set")
	}
}

func TestGroupIndicesAreContiguous(t *testing.T) {
	r := NewRegistry()
	set := r.RegisterModuleTypes([]types.RecGroup{
		{Types: []types.Definition{fnDef(), fnDef(types.I32), fnDef(types.I64)}},
	})
	defer set.Close()

	first, _ := set.SharedIndex(0)
	for local := wasmtypes.ModuleTypeIndex(1); local < 3; local++ {
		shared, _ := set.SharedIndex(local)
		if shared != first+wasmtypes.SharedTypeIndex(local) {
			t.Fatalf("member %d at %d, want %d", local, shared, first+wasmtypes.SharedTypeIndex(local))
		}
	}
}

func TestDedup(t *testing.T) {
	r := NewRegistry()
	group := []types.RecGroup{{Types: []types.Definition{fnDef(types.I32), fnDef(types.I64)}}}

	set1 := r.RegisterModuleTypes(group)
	set2 := r.RegisterModuleTypes(group)

	if set1.entries[0] != set2.entries[0] {
		t.Fatal("identical groups did not hash-cons to one entry")
	}
	if got := set1.entries[0].refs.Load(); got != 2 {
		t.Fatalf("shared entry refs = %d, want 2", got)
	}

	s1, _ := set1.SharedIndex(0)
	s2, _ := set2.SharedIndex(0)
	if s1 != s2 {
		t.Fatalf("identical groups got different indices: %d vs %d", s1, s2)
	}
	if r.Len() != 2 {
		t.Fatalf("second registration allocated slots: Len() = %d, want 2", r.Len())
	}

	set1.Close()
	if _, ok := r.Borrow(s1); !ok {
		t.Fatal("entry gone while second set still owns it")
	}
	set2.Close()
	if !r.Empty() {
		t.Error("registry not empty after both sets closed")
	}
}

func TestHandleLifecycle(t *testing.T) {
	r := NewRegistry()

	h := NewTypeHandle(r, fnDef(types.I32))
	idx := h.Index()
	if idx != 0 {
		t.Fatalf("first index = %d, want 0", idx)
	}
	if got := h.entry.refs.Load(); got != 1 {
		t.Fatalf("refs = %d, want 1", got)
	}

	c := h.Clone()
	if got := h.entry.refs.Load(); got != 2 {
		t.Fatalf("refs after clone = %d, want 2", got)
	}

	h.Close()
	if got := c.entry.refs.Load(); got != 1 {
		t.Fatalf("refs after first drop = %d, want 1", got)
	}
	if _, ok := r.Borrow(idx); !ok {
		t.Fatal("Borrow failed while a clone is alive")
	}

	c.Close()
	if _, ok := r.Borrow(idx); ok {
		t.Fatal("Borrow succeeded after the last handle dropped")
	}
	if !r.Empty() {
		t.Error("registry not empty after last handle dropped")
	}
}

func TestHandleCloseIdempotent(t *testing.T) {
	r := NewRegistry()
	h := NewTypeHandle(r, fnDef())
	c := h.Clone()
	h.Close()
	h.Close()
	if got := c.entry.refs.Load(); got != 1 {
		t.Fatalf("double close dropped the count twice: refs = %d, want 1", got)
	}
	c.Close()
	if !r.Empty() {
		t.Error("registry not empty")
	}
}

func TestHandleDedupsWithModuleTypes(t *testing.T) {
	r := NewRegistry()
	set := r.RegisterModuleTypes(singleton(fnDef(types.F64)))
	h := NewTypeHandle(r, fnDef(types.F64))

	shared, _ := set.SharedIndex(0)
	if h.Index() != shared {
		t.Fatalf("host handle index %d, module index %d", h.Index(), shared)
	}
	if got := h.entry.refs.Load(); got != 2 {
		t.Fatalf("refs = %d, want 2", got)
	}

	set.Close()
	h.Close()
	if !r.Empty() {
		t.Error("registry not empty")
	}
}

func TestRootHandle(t *testing.T) {
	r := NewRegistry()
	set := r.RegisterModuleTypes(singleton(fnDef(types.I32)))
	idx, _ := set.SharedIndex(0)

	h, ok := r.RootHandle(idx)
	if !ok {
		t.Fatal("RootHandle missed a live index")
	}
	if got := h.entry.refs.Load(); got != 2 {
		t.Fatalf("refs = %d, want 2", got)
	}

	set.Close()
	if _, ok := r.Borrow(idx); !ok {
		t.Fatal("rooted handle did not keep the type alive")
	}
	h.Close()

	if _, ok := r.RootHandle(idx); ok {
		t.Fatal("RootHandle succeeded on a dead index")
	}
	if !r.Empty() {
		t.Error("registry not empty")
	}
}

func TestCrossGroupEdgeCountsAsOwner(t *testing.T) {
	r := NewRegistry()
	// Group 1 references group 0's only member by module-local index.
	set := r.RegisterModuleTypes([]types.RecGroup{
		{Types: []types.Definition{fnDef(types.I32)}},
		{Types: []types.Definition{refStructDef(types.ModuleRef(0))}},
	})
	defer set.Close()

	if got := set.entries[0].refs.Load(); got != 2 {
		t.Fatalf("referenced entry refs = %d, want 2 (set hold + edge)", got)
	}
	if got := set.entries[1].refs.Load(); got != 1 {
		t.Fatalf("referencing entry refs = %d, want 1", got)
	}

	// The runtime form of the reference must be the concrete engine index.
	refIdx, _ := set.SharedIndex(1)
	def, _ := r.Borrow(refIdx)
	target, _ := set.SharedIndex(0)
	var got types.Ref
	def.Trace(func(ref *types.Ref) { got = *ref })
	if got != types.SharedRef(target) {
		t.Fatalf("runtime ref = %v, want shared:%d", got, target)
	}
}

func TestTransitiveTeardown(t *testing.T) {
	r := NewRegistry()

	base := r.RegisterModuleTypes(singleton(fnDef(types.I64)))
	baseIdx, _ := base.SharedIndex(0)

	dep := r.RegisterModuleTypes(singleton(refStructDef(types.SharedRef(baseIdx))))

	// The edge keeps the base group alive after its own set is gone.
	base.Close()
	if _, ok := r.Borrow(baseIdx); !ok {
		t.Fatal("cross-group edge did not keep its target alive")
	}

	dep.Close()
	if _, ok := r.Borrow(baseIdx); ok {
		t.Fatal("target survived its last incoming edge")
	}
	if !r.Empty() {
		t.Error("registry not empty after transitive teardown")
	}
}

func TestNoDanglingReuse(t *testing.T) {
	r := NewRegistry()
	set := r.RegisterModuleTypes(singleton(fnDef(types.I32)))
	idx, _ := set.SharedIndex(0)
	h, _ := r.RootHandle(idx)
	set.Close()

	other := r.RegisterModuleTypes(singleton(fnDef(types.I64)))
	otherIdx, _ := other.SharedIndex(0)
	if otherIdx == idx {
		t.Fatalf("slot %d reused while a handle is alive", idx)
	}
	if def, ok := r.Borrow(idx); !ok || def.Comp.Func.Params[0] != types.I32 {
		t.Fatal("held type clobbered by an unrelated registration")
	}

	h.Close()
	other.Close()
	if !r.Empty() {
		t.Error("registry not empty")
	}
}

func TestUnregisterAbortsOnResurrection(t *testing.T) {
	r := NewRegistry()
	h := NewTypeHandle(r, fnDef())
	e := h.entry

	// Simulate the race: the last drop observes zero, but before its
	// removal gets the write lock a registration hash-conses onto the
	// entry and resurrects it.
	if !e.decref("test drop") {
		t.Fatal("expected zero crossing")
	}
	e.incref("test resurrection")

	r.mu.Lock()
	r.core.unregisterEntry(e)
	r.mu.Unlock()

	if _, ok := r.Borrow(h.Index()); !ok {
		t.Fatal("aborted removal still tore the entry down")
	}
	if e.unregistered.Load() {
		t.Fatal("aborted removal flagged the entry")
	}

	h.Close()
	if !r.Empty() {
		t.Error("registry not empty")
	}
}

func TestUnregisterAbortsWhenAlreadyRemoved(t *testing.T) {
	r := NewRegistry()
	h := NewTypeHandle(r, fnDef())
	e := h.entry
	h.Close()

	if !e.unregistered.Load() {
		t.Fatal("close did not remove the entry")
	}

	// A second report of the same zero crossing must find the flag set
	// and touch nothing.
	r.mu.Lock()
	r.core.unregisterEntry(e)
	r.mu.Unlock()

	if !r.Empty() {
		t.Error("registry not empty")
	}
}

func TestLongChainTeardown(t *testing.T) {
	if testing.Short() {
		t.Skip("long chain teardown in -short mode")
	}

	const chain = 100_000

	r := NewRegistry()
	last := r.RegisterModuleTypes(singleton(fnDef()))
	prev, _ := last.SharedIndex(0)

	// Each group references the previous one, and only the newest set is
	// held: every older group stays alive solely through its successor's
	// edge. Closing the final set must tear down the whole chain without
	// exhausting the stack.
	for i := 1; i < chain; i++ {
		next := r.RegisterModuleTypes(singleton(refStructDef(types.SharedRef(prev))))
		prev, _ = next.SharedIndex(0)
		last.Close()
		last = next
	}

	if r.Len() != chain {
		t.Fatalf("Len() = %d, want %d", r.Len(), chain)
	}

	last.Close()
	if !r.Empty() {
		t.Error("registry not empty after chain teardown")
	}
}

func TestEmptyGroupRegisters(t *testing.T) {
	r := NewRegistry()
	set := r.RegisterModuleTypes([]types.RecGroup{{}})
	if set.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", set.Len())
	}
	if set.GroupLen() != 1 {
		t.Fatalf("GroupLen() = %d, want 1", set.GroupLen())
	}
	set.Close()
	if !r.Empty() {
		t.Error("registry not empty")
	}
}
