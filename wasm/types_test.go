package wasm_test

import (
	"testing"

	"github.com/wippyai/ffi-greeter/wasm"
)

func TestAddTypeDeduplicates(t *testing.T) {
	m := &wasm.Module{}
	a := m.AddType(wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}})
	b := m.AddType(wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}})
	c := m.AddType(wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}})

	if a != 0 || b != 1 || c != 0 {
		t.Errorf("indices = %d, %d, %d; want 0, 1, 0", a, b, c)
	}
	if len(m.Types) != 2 {
		t.Errorf("len(Types) = %d, want 2", len(m.Types))
	}
}

func TestAddFunc(t *testing.T) {
	m := &wasm.Module{}
	ft := wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}}
	f0 := m.AddFunc(ft, wasm.FuncBody{Code: []byte{wasm.OpEnd}})
	f1 := m.AddFunc(ft, wasm.FuncBody{Code: []byte{wasm.OpEnd}})

	if f0 != 0 || f1 != 1 {
		t.Errorf("func indices = %d, %d", f0, f1)
	}
	if len(m.Types) != 1 {
		t.Errorf("len(Types) = %d, want 1", len(m.Types))
	}
	if m.Funcs[0] != 0 || m.Funcs[1] != 0 {
		t.Errorf("Funcs = %v, want both on type 0", m.Funcs)
	}
	if len(m.Code) != 2 {
		t.Errorf("len(Code) = %d, want 2", len(m.Code))
	}
}

func TestValTypeString(t *testing.T) {
	tests := map[wasm.ValType]string{
		wasm.ValI32:        "i32",
		wasm.ValI64:        "i64",
		wasm.ValType(0x7d): "unknown",
	}
	for v, want := range tests {
		if got := v.String(); got != want {
			t.Errorf("ValType(%#x).String() = %q, want %q", byte(v), got, want)
		}
	}
}
