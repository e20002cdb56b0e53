package wasm

import "bytes"

// Instruction is one opcode with its immediate. Imm is nil for
// instructions that take none.
type Instruction struct {
	Imm    interface{}
	Opcode byte
}

// BlockImm is the block type of if.
type BlockImm struct {
	Type int32
}

// LocalImm indexes a local for local.get, local.set and local.tee.
type LocalImm struct {
	LocalIdx uint32
}

// GlobalImm indexes a global for global.get and global.set.
type GlobalImm struct {
	GlobalIdx uint32
}

// MemoryImm is the memarg of a load or store on memory 0.
// Align is log2 of the access alignment.
type MemoryImm struct {
	Offset uint64
	Align  uint32
}

// MemoryIdxImm selects the memory for memory.size and memory.grow.
type MemoryIdxImm struct {
	MemIdx uint32
}

// I32Imm is the operand of i32.const.
type I32Imm struct {
	Value int32
}

// EncodeInstructionTo appends one instruction to buf.
func EncodeInstructionTo(buf *bytes.Buffer, instr *Instruction) {
	buf.WriteByte(instr.Opcode)

	switch instr.Opcode {
	case OpIf:
		WriteLEB128s(buf, instr.Imm.(BlockImm).Type)

	case OpLocalGet, OpLocalSet, OpLocalTee:
		WriteLEB128u(buf, instr.Imm.(LocalImm).LocalIdx)

	case OpGlobalGet, OpGlobalSet:
		WriteLEB128u(buf, instr.Imm.(GlobalImm).GlobalIdx)

	case OpI32Load, OpI64Load, OpI32Store, OpI64Store:
		imm := instr.Imm.(MemoryImm)
		WriteLEB128u(buf, imm.Align)
		WriteLEB128u64(buf, imm.Offset)

	case OpMemorySize, OpMemoryGrow:
		WriteLEB128u(buf, instr.Imm.(MemoryIdxImm).MemIdx)

	case OpI32Const:
		WriteLEB128s(buf, instr.Imm.(I32Imm).Value)
	}
}

// EncodeInstructions encodes a function body or constant expression.
func EncodeInstructions(instrs []Instruction) []byte {
	var buf bytes.Buffer
	buf.Grow(len(instrs) * 3)
	for i := range instrs {
		EncodeInstructionTo(&buf, &instrs[i])
	}
	return buf.Bytes()
}
