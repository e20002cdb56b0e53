package wasm_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/ffi-greeter/wasm"
)

func addModule() *wasm.Module {
	m := &wasm.Module{}
	m.AddFunc(wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValI64, wasm.ValI64},
		Results: []wasm.ValType{wasm.ValI64},
	}, wasm.FuncBody{Code: wasm.EncodeInstructions([]wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 1}},
		{Opcode: wasm.OpI64Add},
		{Opcode: wasm.OpEnd},
	})})
	m.Exports = append(m.Exports, wasm.Export{Name: "add", Kind: wasm.KindFunc, Idx: 0})
	return m
}

func TestEncodeEmptyModule(t *testing.T) {
	m := &wasm.Module{}
	data := m.Encode()

	if len(data) != 8 {
		t.Errorf("expected 8 bytes for empty module, got %d", len(data))
	}
	if !bytes.Equal(data[:4], []byte{0x00, 0x61, 0x73, 0x6D}) {
		t.Error("invalid magic number")
	}
	if !bytes.Equal(data[4:8], []byte{0x01, 0x00, 0x00, 0x00}) {
		t.Error("invalid version")
	}
}

func TestEncodeFunctionModule(t *testing.T) {
	data := addModule().Encode()

	want := []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		// type: (i64, i64) -> i64
		0x01, 0x07, 0x01, 0x60, 0x02, 0x7e, 0x7e, 0x01, 0x7e,
		// function
		0x03, 0x02, 0x01, 0x00,
		// export "add"
		0x07, 0x07, 0x01, 0x03, 'a', 'd', 'd', 0x00, 0x00,
		// code
		0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x7c, 0x0b,
	}
	if !bytes.Equal(data, want) {
		t.Errorf("encoded module mismatch\n got: %x\nwant: %x", data, want)
	}
}

func TestEncodeMemoryGlobalData(t *testing.T) {
	maxPages := uint64(16)
	m := &wasm.Module{
		Memories: []wasm.MemoryType{{Limits: wasm.Limits{Min: 1, Max: &maxPages}}},
		Globals: []wasm.Global{{
			Type: wasm.GlobalType{ValType: wasm.ValI32, Mutable: true},
			Init: wasm.ConstI32(64),
		}},
		Data: []wasm.DataSegment{{Offset: wasm.ConstI32(16), Init: []byte("hi")}},
	}
	data := m.Encode()

	sections := [][]byte{
		{0x05, 0x04, 0x01, 0x01, 0x01, 0x10},
		{0x06, 0x07, 0x01, 0x7f, 0x01, 0x41, 0xc0, 0x00, 0x0b},
		{0x0b, 0x08, 0x01, 0x00, 0x41, 0x10, 0x0b, 0x02, 'h', 'i'},
	}
	want := append([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, bytes.Join(sections, nil)...)
	if !bytes.Equal(data, want) {
		t.Errorf("encoded module mismatch\n got: %x\nwant: %x", data, want)
	}
}

func TestEncodedModuleRuns(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	mod, err := rt.Instantiate(ctx, addModule().Encode())
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	results, err := mod.ExportedFunction("add").Call(ctx, 42, 58)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if results[0] != 100 {
		t.Errorf("add(42, 58) = %d, want 100", results[0])
	}
}
