package wasm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	wasmtypes "github.com/wippyai/wasm-types"
	"github.com/wippyai/wasm-types/types"
	"github.com/wippyai/wasm-types/wasm/internal/binary"
)

// Parsing errors returned by DecodeModuleTypes.
var (
	ErrInvalidMagic   = errors.New("invalid wasm magic number")
	ErrInvalidVersion = errors.New("invalid wasm version")
)

// DecodeModuleTypes parses a WebAssembly binary module and returns its type
// section as recursion groups, in declaration order. Every reference in the
// result is module-local; registration resolves them. A module without a
// type section yields no groups.
//
// This is the untrusted-input boundary: malformed bytes come back as errors
// here and never reach the registry.
func DecodeModuleTypes(data []byte) ([]types.RecGroup, error) {
	r := binary.NewReader(bytes.NewReader(data))

	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if magic != Magic {
		return nil, ErrInvalidMagic
	}

	version, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if version != Version {
		return nil, ErrInvalidVersion
	}

	for {
		sectionID, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, r.WrapError("section header", err)
		}
		size, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("section size", err)
		}

		if sectionID != SectionType {
			if err := r.Skip(int(size)); err != nil {
				return nil, r.WrapError("section body", err)
			}
			continue
		}

		start := r.Position()
		groups, err := decodeTypeSection(r)
		if err != nil {
			return nil, err
		}
		if got := r.Position() - start; got != int(size) {
			return nil, fmt.Errorf("type section size mismatch: declared %d bytes, read %d", size, got)
		}
		return groups, nil
	}
}

// DecodeTypeSection parses the contents of a type section (without the
// section id and size header) into recursion groups.
func DecodeTypeSection(payload []byte) ([]types.RecGroup, error) {
	r := binary.NewReader(bytes.NewReader(payload))
	groups, err := decodeTypeSection(r)
	if err != nil {
		return nil, err
	}
	if r.Position() != len(payload) {
		return nil, fmt.Errorf("trailing bytes after type section: %d of %d read", r.Position(), len(payload))
	}
	return groups, nil
}

func decodeTypeSection(r *binary.Reader) ([]types.RecGroup, error) {
	count, err := r.ReadU32()
	if err != nil {
		return nil, r.WrapError("type count", err)
	}

	groups := make([]types.RecGroup, 0, count)
	for i := uint32(0); i < count; i++ {
		form, err := r.ReadByte()
		if err != nil {
			return nil, r.WrapError(fmt.Sprintf("type %d form", i), err)
		}

		// Each section entry is one recursion group: an explicit rec block,
		// or a single type counting as a group of one.
		if form == RecTypeByte {
			n, err := r.ReadU32()
			if err != nil {
				return nil, r.WrapError("rec group size", err)
			}
			g := types.RecGroup{Types: make([]types.Definition, n)}
			for j := uint32(0); j < n; j++ {
				sub, err := readSubType(r)
				if err != nil {
					return nil, err
				}
				g.Types[j] = sub
			}
			groups = append(groups, g)
			continue
		}

		sub, err := readSubTypeWithPrefix(r, form)
		if err != nil {
			return nil, err
		}
		groups = append(groups, types.RecGroup{Types: []types.Definition{sub}})
	}
	return groups, nil
}

func readSubType(r *binary.Reader) (types.Definition, error) {
	form, err := r.ReadByte()
	if err != nil {
		return types.Definition{}, r.WrapError("subtype form", err)
	}
	return readSubTypeWithPrefix(r, form)
}

func readSubTypeWithPrefix(r *binary.Reader, form byte) (types.Definition, error) {
	var def types.Definition

	switch form {
	case SubTypeByte, SubFinalByte: // sub with supertypes
		def.Final = form == SubFinalByte
		parentCount, err := r.ReadU32()
		if err != nil {
			return types.Definition{}, r.WrapError("supertype count", err)
		}
		def.Supers = make([]types.Ref, parentCount)
		for i := uint32(0); i < parentCount; i++ {
			parent, err := r.ReadU32()
			if err != nil {
				return types.Definition{}, r.WrapError("supertype index", err)
			}
			def.Supers[i] = types.ModuleRef(wasmtypes.ModuleTypeIndex(parent))
		}
		kind, err := r.ReadByte()
		if err != nil {
			return types.Definition{}, r.WrapError("composite form", err)
		}
		comp, err := readCompType(r, kind)
		if err != nil {
			return types.Definition{}, err
		}
		def.Comp = comp

	case FuncTypeByte, StructTypeByte, ArrayTypeByte: // shorthand, final, no supers
		def.Final = true
		comp, err := readCompType(r, form)
		if err != nil {
			return types.Definition{}, err
		}
		def.Comp = comp

	default:
		return types.Definition{}, fmt.Errorf("invalid subtype form 0x%02x", form)
	}

	return def, nil
}

func readCompType(r *binary.Reader, kind byte) (types.CompType, error) {
	switch kind {
	case FuncTypeByte:
		ft, err := readFuncType(r)
		if err != nil {
			return types.CompType{}, err
		}
		return types.FuncComp(ft), nil

	case StructTypeByte:
		st, err := readStructType(r)
		if err != nil {
			return types.CompType{}, err
		}
		return types.StructComp(st), nil

	case ArrayTypeByte:
		elem, err := readFieldType(r)
		if err != nil {
			return types.CompType{}, err
		}
		return types.ArrayComp(types.ArrayType{Element: elem}), nil

	default:
		return types.CompType{}, fmt.Errorf("invalid composite type 0x%02x", kind)
	}
}

func readFuncType(r *binary.Reader) (types.FuncType, error) {
	params, err := readValTypes(r)
	if err != nil {
		return types.FuncType{}, err
	}
	results, err := readValTypes(r)
	if err != nil {
		return types.FuncType{}, err
	}
	return types.FuncType{Params: params, Results: results}, nil
}

func readValTypes(r *binary.Reader) ([]types.ValType, error) {
	count, err := r.ReadU32()
	if err != nil {
		return nil, r.WrapError("value type count", err)
	}
	out := make([]types.ValType, count)
	for i := uint32(0); i < count; i++ {
		vt, err := readValType(r)
		if err != nil {
			return nil, err
		}
		out[i] = vt
	}
	return out, nil
}

func readValType(r *binary.Reader) (types.ValType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return types.ValType{}, r.WrapError("value type", err)
	}

	switch b {
	case ValI32Byte:
		return types.I32, nil
	case ValI64Byte:
		return types.I64, nil
	case ValF32Byte:
		return types.F32, nil
	case ValF64Byte:
		return types.F64, nil
	case ValV128Byte:
		return types.V128, nil
	case RefNullByte, RefByte:
		rt, err := readRefType(r, b == RefNullByte)
		if err != nil {
			return types.ValType{}, err
		}
		return types.RefVal(rt), nil
	}

	// Abstract heap shorthand: a nullable reference in one byte.
	if b >= HeapShorthandMin && b <= HeapShorthandMax {
		return types.RefVal(types.RefType{
			Nullable: true,
			Heap:     types.AbstractHeap(int64(b) - 0x80),
		}), nil
	}

	return types.ValType{}, fmt.Errorf("invalid value type 0x%02x", b)
}

func readRefType(r *binary.Reader, nullable bool) (types.RefType, error) {
	ht, err := r.ReadS33()
	if err != nil {
		return types.RefType{}, r.WrapError("heap type", err)
	}
	if ht < 0 {
		return types.RefType{Nullable: nullable, Heap: types.AbstractHeap(ht)}, nil
	}
	if ht > math.MaxUint32 {
		return types.RefType{}, fmt.Errorf("type index %d out of range", ht)
	}
	return types.RefType{
		Nullable: nullable,
		Heap:     types.ConcreteHeap(types.ModuleRef(wasmtypes.ModuleTypeIndex(ht))),
	}, nil
}

func readStructType(r *binary.Reader) (types.StructType, error) {
	fieldCount, err := r.ReadU32()
	if err != nil {
		return types.StructType{}, r.WrapError("field count", err)
	}
	fields := make([]types.FieldType, fieldCount)
	for i := uint32(0); i < fieldCount; i++ {
		ft, err := readFieldType(r)
		if err != nil {
			return types.StructType{}, err
		}
		fields[i] = ft
	}
	return types.StructType{Fields: fields}, nil
}

func readFieldType(r *binary.Reader) (types.FieldType, error) {
	st, err := readStorageType(r)
	if err != nil {
		return types.FieldType{}, err
	}
	mutByte, err := r.ReadByte()
	if err != nil {
		return types.FieldType{}, r.WrapError("mutability", err)
	}
	return types.FieldType{Storage: st, Mutable: mutByte != 0}, nil
}

func readStorageType(r *binary.Reader) (types.StorageType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return types.StorageType{}, r.WrapError("storage type", err)
	}

	switch b {
	case PackedI8Byte:
		return types.StorageType{Packed: types.PackedI8}, nil
	case PackedI16Byte:
		return types.StorageType{Packed: types.PackedI16}, nil
	case RefNullByte, RefByte:
		rt, err := readRefType(r, b == RefNullByte)
		if err != nil {
			return types.StorageType{}, err
		}
		return types.StorageType{Val: types.RefVal(rt)}, nil
	}

	switch b {
	case ValI32Byte:
		return types.StorageType{Val: types.I32}, nil
	case ValI64Byte:
		return types.StorageType{Val: types.I64}, nil
	case ValF32Byte:
		return types.StorageType{Val: types.F32}, nil
	case ValF64Byte:
		return types.StorageType{Val: types.F64}, nil
	case ValV128Byte:
		return types.StorageType{Val: types.V128}, nil
	}

	if b >= HeapShorthandMin && b <= HeapShorthandMax {
		return types.StorageType{Val: types.RefVal(types.RefType{
			Nullable: true,
			Heap:     types.AbstractHeap(int64(b) - 0x80),
		})}, nil
	}

	return types.StorageType{}, fmt.Errorf("invalid storage type 0x%02x", b)
}
