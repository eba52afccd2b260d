// Package types defines the concrete WebAssembly type model the registry
// operates on: function, struct and array composites, subtype declarations,
// and recursion groups, with references that can be rewritten between
// module-local, group-relative and engine-wide forms.
package types
