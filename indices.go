package wasmtypes

// ModuleTypeIndex identifies a type within one module's type section. It is
// meaningful only for the batch it was submitted with and never escapes the
// registration that consumed it.
type ModuleTypeIndex uint32

// SharedTypeIndex identifies a registered type engine-wide. It stays
// resolvable only while some owner keeps the type's recursion group alive;
// collaborators that hold one long-term must also hold a TypeHandle or
// ModuleTypeSet covering it.
type SharedTypeIndex uint32
