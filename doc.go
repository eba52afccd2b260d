// Package wasmtypes provides a shared, engine-wide type registry for
// WebAssembly runtimes.
//
// A WebAssembly engine that hosts many independently loaded modules needs one
// canonical identity for every type definition so that signature checks and
// GC metadata can compare small integers instead of whole type trees. This
// library hash-conses recursion groups of type definitions into engine-wide
// indices, reuses those indices whenever an identical group is registered
// again, and reclaims a group (and anything only it was keeping alive) when
// the last owner lets go.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	wasmtypes/       Root package with the shared index types
//	├── types/       Concrete type model: func/struct/array composites,
//	│                subtypes, recursion groups, reference rewriting
//	├── registry/    Hash-consing registry, owning handles, lifetimes
//	├── wasm/        Binary type-section decoder (GC proposal forms)
//	├── engine/      Embedding context owning a registry and a wazero runtime
//	└── errors/      Structured error types
//
// # Quick Start
//
// Load a module and keep its types alive:
//
//	eng, err := engine.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	mod, err := eng.LoadModule(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mod.Close(ctx)
//
//	idx, _ := mod.Types().SharedIndex(0)
//	def, _ := eng.Types().Borrow(idx)
//
// # Lifetimes
//
// Shared type indices stay resolvable for exactly as long as some owner keeps
// their recursion group registered: a registry.ModuleTypeSet returned from
// module registration, or a registry.TypeHandle for a single type. Dropping
// the last owner unregisters the group and transitively releases every group
// it alone referenced. A bare SharedTypeIndex carries no lifetime of its own.
//
// # Thread Safety
//
// Registry, ModuleTypeSet and TypeHandle are safe for concurrent use. Handle
// clone and drop stay off the registry lock unless a group's reference count
// crosses zero.
package wasmtypes
