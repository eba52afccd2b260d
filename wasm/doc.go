// Package wasm decodes the type section of WebAssembly binary modules into
// recursion groups of type definitions, including the GC proposal forms:
// rec groups, subtyping, struct and array composites, packed storage types
// and reference types with explicit heap types.
package wasm
