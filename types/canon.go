package types

import (
	"encoding/binary"
	"fmt"

	wasmtypes "github.com/wippyai/wasm-types"
)

// Range is a half-open run of module-local type indices covering one
// recursion group.
type Range struct {
	Start wasmtypes.ModuleTypeIndex
	End   wasmtypes.ModuleTypeIndex
}

// Len returns the number of indices in the range.
func (r Range) Len() int {
	return int(r.End - r.Start)
}

// Contains reports whether i falls inside the range.
func (r Range) Contains(i wasmtypes.ModuleTypeIndex) bool {
	return i >= r.Start && i < r.End
}

// Resolver translates a module-local index into its assigned engine index.
// Implementations must panic on indices they have no assignment for; an
// unresolvable reference is a caller bug, not a recoverable condition.
type Resolver func(wasmtypes.ModuleTypeIndex) wasmtypes.SharedTypeIndex

// Trace visits every type reference in d in a deterministic order:
// supertypes first, then the composite's references in declaration order.
// The visitor receives a pointer so rewriting passes can edit in place.
func (d *Definition) Trace(visit func(*Ref)) {
	for i := range d.Supers {
		visit(&d.Supers[i])
	}
	d.Comp.trace(visit)
}

func (c *CompType) trace(visit func(*Ref)) {
	switch c.Kind {
	case CompFunc:
		for i := range c.Func.Params {
			c.Func.Params[i].trace(visit)
		}
		for i := range c.Func.Results {
			c.Func.Results[i].trace(visit)
		}
	case CompStruct:
		for i := range c.Struct.Fields {
			c.Struct.Fields[i].Storage.trace(visit)
		}
	case CompArray:
		c.Array.Element.Storage.trace(visit)
	}
}

func (v *ValType) trace(visit func(*Ref)) {
	if v.Kind == ValRef && v.Ref.Heap.Concrete {
		visit(&v.Ref.Heap.Ref)
	}
}

func (s *StorageType) trace(visit func(*Ref)) {
	if s.Packed == PackedNone {
		s.Val.trace(visit)
	}
}

// Clone returns a deep copy of the definition. Canonicalization rewrites
// references in place, so the registry clones before transforming.
func (d Definition) Clone() Definition {
	out := d
	if d.Supers != nil {
		out.Supers = append([]Ref(nil), d.Supers...)
	}
	out.Comp = d.Comp.clone()
	return out
}

func (c CompType) clone() CompType {
	out := c
	switch c.Kind {
	case CompFunc:
		ft := FuncType{}
		if c.Func.Params != nil {
			ft.Params = append([]ValType(nil), c.Func.Params...)
		}
		if c.Func.Results != nil {
			ft.Results = append([]ValType(nil), c.Func.Results...)
		}
		out.Func = &ft
	case CompStruct:
		st := StructType{}
		if c.Struct.Fields != nil {
			st.Fields = append([]FieldType(nil), c.Struct.Fields...)
		}
		out.Struct = &st
	case CompArray:
		at := *c.Array
		out.Array = &at
	}
	return out
}

// CanonicalizeForHashConsing rewrites d's references into the
// assignment-independent form used as a hash-consing key. Module-local
// references inside group become group-relative offsets; references below
// group.Start resolve through resolve to engine indices; engine references
// pass through untouched. Two structurally identical groups produce equal
// canonical forms regardless of which slab slots either was assigned.
//
// A module-local reference at or past group.End is a forward reference out
// of the group, which the format forbids; it panics.
func (d *Definition) CanonicalizeForHashConsing(group Range, resolve Resolver) {
	d.Trace(func(r *Ref) {
		switch r.Kind {
		case RefShared:
			// Already canonical.
		case RefMod:
			i := wasmtypes.ModuleTypeIndex(r.Index)
			switch {
			case group.Contains(i):
				*r = RelRef(uint32(i - group.Start))
			case i < group.Start:
				*r = SharedRef(resolve(i))
			default:
				panic(fmt.Sprintf("reference to type %d escapes recursion group [%d, %d)",
					i, group.Start, group.End))
			}
		default:
			panic(fmt.Sprintf("reference %v already canonicalized for hash consing", *r))
		}
	})
}

// CanonicalizeForRuntimeUsage rewrites every module-local reference to its
// concrete engine index. Unlike the hash-consing form, resolve must cover
// the definition's own group: the registry calls this only after assigning
// the group's slab slots. Engine references pass through untouched.
func (d *Definition) CanonicalizeForRuntimeUsage(resolve Resolver) {
	d.Trace(func(r *Ref) {
		switch r.Kind {
		case RefShared:
			// Already canonical.
		case RefMod:
			*r = SharedRef(resolve(wasmtypes.ModuleTypeIndex(r.Index)))
		default:
			panic(fmt.Sprintf("reference %v is not in runtime-usable form", *r))
		}
	})
}

// Key returns a deterministic byte encoding of a recursion group that has
// been canonicalized for hash consing. Equal groups yield equal keys, so the
// registry can hash-cons with a plain map lookup. Encountering a
// module-local reference means the group was not canonicalized; it panics.
func Key(defs []Definition) string {
	b := make([]byte, 0, 64)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(defs)))
	for i := range defs {
		b = defs[i].appendKey(b)
	}
	return string(b)
}

func (d *Definition) appendKey(b []byte) []byte {
	if d.Final {
		b = append(b, 1)
	} else {
		b = append(b, 0)
	}
	b = binary.LittleEndian.AppendUint32(b, uint32(len(d.Supers)))
	for _, s := range d.Supers {
		b = s.appendKey(b)
	}
	return d.Comp.appendKey(b)
}

func (c *CompType) appendKey(b []byte) []byte {
	b = append(b, byte(c.Kind))
	switch c.Kind {
	case CompFunc:
		b = binary.LittleEndian.AppendUint32(b, uint32(len(c.Func.Params)))
		for i := range c.Func.Params {
			b = c.Func.Params[i].appendKey(b)
		}
		b = binary.LittleEndian.AppendUint32(b, uint32(len(c.Func.Results)))
		for i := range c.Func.Results {
			b = c.Func.Results[i].appendKey(b)
		}
	case CompStruct:
		b = binary.LittleEndian.AppendUint32(b, uint32(len(c.Struct.Fields)))
		for i := range c.Struct.Fields {
			b = c.Struct.Fields[i].appendKey(b)
		}
	case CompArray:
		b = c.Array.Element.appendKey(b)
	}
	return b
}

func (f *FieldType) appendKey(b []byte) []byte {
	if f.Mutable {
		b = append(b, 1)
	} else {
		b = append(b, 0)
	}
	b = append(b, byte(f.Storage.Packed))
	if f.Storage.Packed == PackedNone {
		b = f.Storage.Val.appendKey(b)
	}
	return b
}

func (v *ValType) appendKey(b []byte) []byte {
	b = append(b, byte(v.Kind))
	if v.Kind != ValRef {
		return b
	}
	if v.Ref.Nullable {
		b = append(b, 1)
	} else {
		b = append(b, 0)
	}
	if v.Ref.Heap.Concrete {
		b = append(b, 1)
		return v.Ref.Heap.Ref.appendKey(b)
	}
	b = append(b, 0)
	return binary.LittleEndian.AppendUint64(b, uint64(v.Ref.Heap.Abstract))
}

func (r Ref) appendKey(b []byte) []byte {
	if r.Kind == RefMod {
		panic(fmt.Sprintf("reference %v in hash-consing key was not canonicalized", r))
	}
	b = append(b, byte(r.Kind))
	return binary.LittleEndian.AppendUint32(b, r.Index)
}
