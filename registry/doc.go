// Package registry canonicalizes recursion groups of WebAssembly type
// definitions into engine-wide indices and manages their lifetimes.
//
// Registering a group that is structurally identical to one already present
// reuses the existing indices instead of allocating new ones. Groups stay
// registered for as long as some owner holds them: a ModuleTypeSet covering
// a module's whole type section, or a TypeHandle for a single type. Cross
// references between groups keep their targets alive transitively; dropping
// the last owner of a group tears down everything only that group was
// pinning.
//
// One reader-writer lock guards the registry's shared structures. Per-group
// reference counts are atomic so that handle clone and drop stay off the
// lock entirely unless a count crosses zero.
package registry
