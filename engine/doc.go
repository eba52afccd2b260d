// Package engine provides the embedding context that owns a type registry
// and a wazero runtime. Loading a module compiles it and registers its type
// section in one step; the returned Module keeps both alive until closed.
//
// The registry is owned by the Engine value, never process-global, so
// independent engines keep fully independent index spaces.
package engine
