package wasm

const (
	// Magic is the WebAssembly binary magic number ("\0asm" in little-endian).
	Magic uint32 = 0x6D736100

	// Version is the supported WebAssembly binary format version.
	Version uint32 = 0x01
)

// Section IDs.
const (
	SectionCustom byte = 0
	SectionType   byte = 1
)

// Value type bytes.
const (
	ValI32Byte  byte = 0x7F
	ValI64Byte  byte = 0x7E
	ValF32Byte  byte = 0x7D
	ValF64Byte  byte = 0x7C
	ValV128Byte byte = 0x7B

	// RefNullByte and RefByte prefix a reference type with an explicit
	// s33 heap type.
	RefNullByte byte = 0x63
	RefByte     byte = 0x64
)

// Abstract heap type shorthand bytes double as nullable reference value
// types. Sign-extending the low 7 bits yields the s33 encoding.
const (
	HeapShorthandMin byte = 0x6A // arrayref
	HeapShorthandMax byte = 0x73 // nullfuncref
)

// Type definition form bytes.
const (
	FuncTypeByte   byte = 0x60 // func
	StructTypeByte byte = 0x5F // struct (GC)
	ArrayTypeByte  byte = 0x5E // array (GC)
	RecTypeByte    byte = 0x4E // rec (GC recursive types)
	SubTypeByte    byte = 0x50 // sub (GC subtyping)
	SubFinalByte   byte = 0x4F // sub final (GC subtyping, no further subtypes)
)

// Packed storage type bytes.
const (
	PackedI8Byte  byte = 0x78 // i8
	PackedI16Byte byte = 0x77 // i16
)
