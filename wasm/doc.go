// Package wasm provides a minimal WebAssembly binary encoder.
//
// It covers what is needed to emit a self-contained core module: function
// types, a linear memory, mutable globals, exports, function bodies and
// active data segments. There is no decoder; modules produced here are
// compiled by wazero, which performs full validation.
//
// # Encoding
//
//	m := &wasm.Module{}
//	idx := m.AddFunc(wasm.FuncType{
//	    Params:  []wasm.ValType{wasm.ValI64, wasm.ValI64},
//	    Results: []wasm.ValType{wasm.ValI64},
//	}, wasm.FuncBody{Code: wasm.EncodeInstructions([]wasm.Instruction{
//	    {Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
//	    {Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 1}},
//	    {Opcode: wasm.OpI64Add},
//	    {Opcode: wasm.OpEnd},
//	})})
//	m.Exports = append(m.Exports, wasm.Export{Name: "add", Kind: wasm.KindFunc, Idx: idx})
//	bin := m.Encode()
//
// # Validation
//
// Validate checks structural consistency before encoding:
//   - Type indices are in bounds
//   - Export indices refer to existing functions and memories
//   - Export names are unique
//   - Code and function sections agree
//   - Memory limits are valid
//   - Globals are i32 with an i32.const initializer
//   - Data segments have a memory and a terminated offset
package wasm
