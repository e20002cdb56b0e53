package wasm

// Module header.
const (
	Magic   uint32 = 0x6D736100 // "\0asm"
	Version uint32 = 0x01
)

// Section IDs in the order they must appear.
const (
	SectionType     byte = 1
	SectionFunction byte = 3
	SectionMemory   byte = 5
	SectionGlobal   byte = 6
	SectionExport   byte = 7
	SectionCode     byte = 10
	SectionData     byte = 11
)

// Export kinds.
const (
	KindFunc   byte = 0
	KindMemory byte = 2
)

// Value types.
const (
	ValI32 ValType = 0x7F
	ValI64 ValType = 0x7E
)

// BlockTypeVoid is the empty block type (0x40 as signed LEB128).
const BlockTypeVoid int32 = -64

// Control flow
const (
	OpIf     byte = 0x04
	OpElse   byte = 0x05
	OpEnd    byte = 0x0B
	OpReturn byte = 0x0F
)

// Locals and globals
const (
	OpLocalGet  byte = 0x20
	OpLocalSet  byte = 0x21
	OpLocalTee  byte = 0x22
	OpGlobalGet byte = 0x23
	OpGlobalSet byte = 0x24
)

// Memory
const (
	OpI32Load    byte = 0x28
	OpI64Load    byte = 0x29
	OpI32Store   byte = 0x36
	OpI64Store   byte = 0x37
	OpMemorySize byte = 0x3F
	OpMemoryGrow byte = 0x40
)

// Numeric
const (
	OpI32Const byte = 0x41
	OpI32Eqz   byte = 0x45
	OpI32Eq    byte = 0x46
	OpI32GtU   byte = 0x4B
	OpI32Add   byte = 0x6A
	OpI32Sub   byte = 0x6B
	OpI32Shl   byte = 0x74
	OpI64Add   byte = 0x7C
)

const (
	LimitsHasMax     byte   = 0x01
	MemoryMaxPages32 uint64 = 65536 // 4GiB of 64KiB pages
	FuncTypeByte     byte   = 0x60
)
