package types

import (
	"fmt"
	"strings"

	wasmtypes "github.com/wippyai/wasm-types"
)

// RefKind distinguishes the three forms a type reference can take.
type RefKind uint8

const (
	// RefMod is a module-local type index, the form produced by decoding a
	// type section. It never survives registration.
	RefMod RefKind = iota
	// RefShared is a resolved engine-wide index.
	RefShared
	// RefRel is an offset into the enclosing recursion group. It appears
	// only inside hash-consing keys.
	RefRel
)

// Ref is a reference to another type definition.
type Ref struct {
	Kind  RefKind
	Index uint32
}

// ModuleRef returns a module-local reference.
func ModuleRef(i wasmtypes.ModuleTypeIndex) Ref {
	return Ref{Kind: RefMod, Index: uint32(i)}
}

// SharedRef returns an engine-wide reference.
func SharedRef(i wasmtypes.SharedTypeIndex) Ref {
	return Ref{Kind: RefShared, Index: uint32(i)}
}

// RelRef returns a group-relative reference.
func RelRef(offset uint32) Ref {
	return Ref{Kind: RefRel, Index: offset}
}

// Shared returns the engine-wide index this reference resolves to.
// It panics if the reference has not been canonicalized for runtime usage.
func (r Ref) Shared() wasmtypes.SharedTypeIndex {
	if r.Kind != RefShared {
		panic(fmt.Sprintf("type reference %v is not an engine index", r))
	}
	return wasmtypes.SharedTypeIndex(r.Index)
}

func (r Ref) String() string {
	switch r.Kind {
	case RefMod:
		return fmt.Sprintf("module:%d", r.Index)
	case RefShared:
		return fmt.Sprintf("shared:%d", r.Index)
	case RefRel:
		return fmt.Sprintf("rec:%d", r.Index)
	default:
		return fmt.Sprintf("invalid:%d", r.Index)
	}
}

// Abstract heap types, in the binary format's sign-extended s33 encoding.
const (
	HeapNoFunc   int64 = -13 // 0x73
	HeapNoExtern int64 = -14 // 0x72
	HeapNone     int64 = -15 // 0x71
	HeapFunc     int64 = -16 // 0x70
	HeapExtern   int64 = -17 // 0x6F
	HeapAny      int64 = -18 // 0x6E
	HeapEq       int64 = -19 // 0x6D
	HeapI31      int64 = -20 // 0x6C
	HeapStruct   int64 = -21 // 0x6B
	HeapArray    int64 = -22 // 0x6A
)

// HeapType is either an abstract heap type or a concrete type reference.
type HeapType struct {
	Abstract int64 // meaningful when !Concrete
	Concrete bool
	Ref      Ref // meaningful when Concrete
}

// AbstractHeap returns an abstract heap type (HeapFunc, HeapExtern, ...).
func AbstractHeap(encoding int64) HeapType {
	return HeapType{Abstract: encoding}
}

// ConcreteHeap returns a heap type referencing another type definition.
func ConcreteHeap(r Ref) HeapType {
	return HeapType{Concrete: true, Ref: r}
}

func (h HeapType) String() string {
	if h.Concrete {
		return h.Ref.String()
	}
	switch h.Abstract {
	case HeapNoFunc:
		return "nofunc"
	case HeapNoExtern:
		return "noextern"
	case HeapNone:
		return "none"
	case HeapFunc:
		return "func"
	case HeapExtern:
		return "extern"
	case HeapAny:
		return "any"
	case HeapEq:
		return "eq"
	case HeapI31:
		return "i31"
	case HeapStruct:
		return "struct"
	case HeapArray:
		return "array"
	default:
		return fmt.Sprintf("heap(%d)", h.Abstract)
	}
}

// RefType is a reference value type with nullability and a heap type.
type RefType struct {
	Nullable bool
	Heap     HeapType
}

func (r RefType) String() string {
	if r.Nullable {
		return fmt.Sprintf("(ref null %s)", r.Heap)
	}
	return fmt.Sprintf("(ref %s)", r.Heap)
}

// ValKind enumerates value type shapes.
type ValKind uint8

const (
	ValI32 ValKind = iota
	ValI64
	ValF32
	ValF64
	ValV128
	ValRef
)

// ValType is a WebAssembly value type.
type ValType struct {
	Kind ValKind
	Ref  RefType // meaningful when Kind == ValRef
}

// Numeric value type shorthands.
var (
	I32  = ValType{Kind: ValI32}
	I64  = ValType{Kind: ValI64}
	F32  = ValType{Kind: ValF32}
	F64  = ValType{Kind: ValF64}
	V128 = ValType{Kind: ValV128}
)

// RefVal returns a reference value type.
func RefVal(r RefType) ValType {
	return ValType{Kind: ValRef, Ref: r}
}

func (v ValType) String() string {
	switch v.Kind {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValV128:
		return "v128"
	case ValRef:
		return v.Ref.String()
	default:
		return fmt.Sprintf("valtype(%d)", v.Kind)
	}
}

// PackedType marks struct/array storage narrower than a value type.
type PackedType uint8

const (
	PackedNone PackedType = iota
	PackedI8
	PackedI16
)

// StorageType is a type storable in a struct field or array element.
type StorageType struct {
	Packed PackedType
	Val    ValType // meaningful when Packed == PackedNone
}

func (s StorageType) String() string {
	switch s.Packed {
	case PackedI8:
		return "i8"
	case PackedI16:
		return "i16"
	default:
		return s.Val.String()
	}
}

// FieldType is a struct field or array element with mutability.
type FieldType struct {
	Storage StorageType
	Mutable bool
}

func (f FieldType) String() string {
	if f.Mutable {
		return fmt.Sprintf("(mut %s)", f.Storage)
	}
	return f.Storage.String()
}

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// StructType is a GC struct definition.
type StructType struct {
	Fields []FieldType
}

// ArrayType is a GC array definition.
type ArrayType struct {
	Element FieldType
}

// CompKind enumerates composite type shapes.
type CompKind uint8

const (
	CompFunc CompKind = iota
	CompStruct
	CompArray
)

// CompType is a composite type: exactly one of Func, Struct, Array is set,
// selected by Kind.
type CompType struct {
	Kind   CompKind
	Func   *FuncType
	Struct *StructType
	Array  *ArrayType
}

// FuncComp wraps a function signature as a composite type.
func FuncComp(ft FuncType) CompType {
	return CompType{Kind: CompFunc, Func: &ft}
}

// StructComp wraps a struct definition as a composite type.
func StructComp(st StructType) CompType {
	return CompType{Kind: CompStruct, Struct: &st}
}

// ArrayComp wraps an array definition as a composite type.
func ArrayComp(at ArrayType) CompType {
	return CompType{Kind: CompArray, Array: &at}
}

// Definition is one type in a recursion group: a composite type plus subtype
// declarations (finality and supertype references).
type Definition struct {
	Final  bool
	Supers []Ref
	Comp   CompType
}

// RecGroup is the unit of registration: an ordered run of definitions that
// may reference each other, including cyclically.
type RecGroup struct {
	Types []Definition
}

func (d Definition) String() string {
	var b strings.Builder
	if len(d.Supers) > 0 || !d.Final {
		b.WriteString("(sub")
		if d.Final {
			b.WriteString(" final")
		}
		for _, s := range d.Supers {
			b.WriteString(" ")
			b.WriteString(s.String())
		}
		b.WriteString(" ")
		b.WriteString(d.Comp.String())
		b.WriteString(")")
		return b.String()
	}
	return d.Comp.String()
}

func (c CompType) String() string {
	switch c.Kind {
	case CompFunc:
		var b strings.Builder
		b.WriteString("(func")
		for _, p := range c.Func.Params {
			fmt.Fprintf(&b, " (param %s)", p)
		}
		for _, r := range c.Func.Results {
			fmt.Fprintf(&b, " (result %s)", r)
		}
		b.WriteString(")")
		return b.String()
	case CompStruct:
		var b strings.Builder
		b.WriteString("(struct")
		for _, f := range c.Struct.Fields {
			fmt.Fprintf(&b, " (field %s)", f)
		}
		b.WriteString(")")
		return b.String()
	case CompArray:
		return fmt.Sprintf("(array %s)", c.Array.Element)
	default:
		return fmt.Sprintf("comptype(%d)", c.Kind)
	}
}
