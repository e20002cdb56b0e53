package guest

import (
	"slices"
	"strings"
	"sync"

	greeter "github.com/wippyai/ffi-greeter"
	"github.com/wippyai/ffi-greeter/errors"
	"github.com/wippyai/ffi-greeter/wasm"
)

// ExportLiveStrings reports how many greetings are currently allocated.
const ExportLiveStrings = "live_strings"

// ExportMemory is the name of the exported linear memory.
const ExportMemory = "memory"

// DefaultMaxPages caps linear memory growth of the bundled module.
const DefaultMaxPages = 16

// MaxGreetingLen is the longest greeting that fits the first page.
const MaxGreetingLen = 4095

const (
	templateAddr = 16

	globalBump = 0
	globalFree = 1
	globalLive = 2
)

// Config controls module generation.
type Config struct {
	// Greeting returned by hello_world_ffi. Empty means greeter.Greeting.
	Greeting string

	// Omit lists symbols left out of the export section.
	Omit []string

	// MaxPages is the memory maximum in 64KiB pages. Zero means DefaultMaxPages.
	MaxPages uint32
}

// Layout describes where the module places its data.
type Layout struct {
	Template uint32 // address of the NUL-terminated greeting
	Slot     uint32 // bytes per allocated string
	HeapBase uint32 // first slot address
}

// LayoutFor computes the memory layout for a greeting.
func LayoutFor(greeting string) Layout {
	slot := alignUp(uint32(len(greeting))+1, 8)
	return Layout{
		Template: templateAddr,
		Slot:     slot,
		HeapBase: alignUp(templateAddr+slot, 64),
	}
}

// Build encodes the guest module.
func Build(cfg Config) ([]byte, error) {
	m, err := build(cfg)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, "guest module failed validation")
	}
	return m.Encode(), nil
}

var defaultModule = sync.OnceValues(func() ([]byte, error) {
	return Build(Config{})
})

// Module returns the default guest module. It is built once per process.
func Module() ([]byte, error) {
	return defaultModule()
}

func build(cfg Config) (*wasm.Module, error) {
	greeting := cfg.Greeting
	if greeting == "" {
		greeting = greeter.Greeting
	}
	if len(greeting) > MaxGreetingLen {
		return nil, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
			Value(len(greeting)).
			Detail("greeting is %d bytes, limit %d", len(greeting), MaxGreetingLen).
			Build()
	}
	if strings.IndexByte(greeting, 0) >= 0 {
		return nil, errors.InvalidInput(errors.PhaseEncode, "greeting contains a NUL byte")
	}

	maxPages := cfg.MaxPages
	if maxPages == 0 {
		maxPages = DefaultMaxPages
	}
	// memory.size << 16 must stay within i32
	if maxPages >= 1<<16 {
		return nil, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
			Value(maxPages).
			Detail("max pages %d must be below 65536", maxPages).
			Build()
	}

	layout := LayoutFor(greeting)
	m := &wasm.Module{}

	limit := uint64(maxPages)
	m.Memories = append(m.Memories, wasm.MemoryType{Limits: wasm.Limits{Min: 1, Max: &limit}})

	m.AddGlobal(wasm.Global{
		Type: wasm.GlobalType{ValType: wasm.ValI32, Mutable: true},
		Init: wasm.ConstI32(int32(layout.HeapBase)),
	})
	m.AddGlobal(wasm.Global{
		Type: wasm.GlobalType{ValType: wasm.ValI32, Mutable: true},
		Init: wasm.ConstI32(0),
	})
	m.AddGlobal(wasm.Global{
		Type: wasm.GlobalType{ValType: wasm.ValI32, Mutable: true},
		Init: wasm.ConstI32(0),
	})

	addIdx := m.AddFunc(wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValI64, wasm.ValI64},
		Results: []wasm.ValType{wasm.ValI64},
	}, wasm.FuncBody{Code: addBody()})

	helloIdx := m.AddFunc(wasm.FuncType{
		Results: []wasm.ValType{wasm.ValI32},
	}, wasm.FuncBody{
		Locals: []wasm.LocalEntry{{Count: 1, ValType: wasm.ValI32}},
		Code:   helloBody(layout),
	})

	freeIdx := m.AddFunc(wasm.FuncType{
		Params: []wasm.ValType{wasm.ValI32},
	}, wasm.FuncBody{Code: freeBody()})

	liveIdx := m.AddFunc(wasm.FuncType{
		Results: []wasm.ValType{wasm.ValI32},
	}, wasm.FuncBody{Code: liveBody()})

	exports := []wasm.Export{
		{Name: ExportMemory, Kind: wasm.KindMemory, Idx: 0},
		{Name: greeter.SymbolAdd, Kind: wasm.KindFunc, Idx: addIdx},
		{Name: greeter.SymbolHelloWorld, Kind: wasm.KindFunc, Idx: helloIdx},
		{Name: greeter.SymbolFreeString, Kind: wasm.KindFunc, Idx: freeIdx},
		{Name: ExportLiveStrings, Kind: wasm.KindFunc, Idx: liveIdx},
	}
	for _, exp := range exports {
		if !slices.Contains(cfg.Omit, exp.Name) {
			m.Exports = append(m.Exports, exp)
		}
	}

	m.Data = append(m.Data, wasm.DataSegment{
		Offset: wasm.ConstI32(int32(layout.Template)),
		Init:   append([]byte(greeting), 0),
	})

	return m, nil
}

func addBody() []byte {
	return wasm.EncodeInstructions([]wasm.Instruction{
		localGet(0),
		localGet(1),
		{Opcode: wasm.OpI64Add},
		{Opcode: wasm.OpEnd},
	})
}

// helloBody allocates a slot and copies the template into it.
// Local 0 holds the slot address.
func helloBody(l Layout) []byte {
	code := []wasm.Instruction{
		// reuse a released slot when one exists
		globalGet(globalFree),
		{Opcode: wasm.OpLocalTee, Imm: wasm.LocalImm{LocalIdx: 0}},
		{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		localGet(0),
		{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Align: 2}},
		globalSet(globalFree),
		{Opcode: wasm.OpElse},
		globalGet(globalBump),
		localSet(0),

		// grow by one page when the slot would cross the end of memory
		localGet(0),
		i32Const(int32(l.Slot)),
		{Opcode: wasm.OpI32Add},
		{Opcode: wasm.OpMemorySize, Imm: wasm.MemoryIdxImm{}},
		i32Const(16),
		{Opcode: wasm.OpI32Shl},
		{Opcode: wasm.OpI32GtU},
		{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		i32Const(1),
		{Opcode: wasm.OpMemoryGrow, Imm: wasm.MemoryIdxImm{}},
		i32Const(-1),
		{Opcode: wasm.OpI32Eq},
		{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		i32Const(0),
		{Opcode: wasm.OpReturn},
		{Opcode: wasm.OpEnd},
		{Opcode: wasm.OpEnd},

		localGet(0),
		i32Const(int32(l.Slot)),
		{Opcode: wasm.OpI32Add},
		globalSet(globalBump),
		{Opcode: wasm.OpEnd},
	}

	for off := uint32(0); off < l.Slot; off += 8 {
		code = append(code,
			localGet(0),
			i32Const(0),
			wasm.Instruction{Opcode: wasm.OpI64Load, Imm: wasm.MemoryImm{Align: 3, Offset: uint64(l.Template + off)}},
			wasm.Instruction{Opcode: wasm.OpI64Store, Imm: wasm.MemoryImm{Align: 3, Offset: uint64(off)}},
		)
	}

	code = append(code,
		globalGet(globalLive),
		i32Const(1),
		wasm.Instruction{Opcode: wasm.OpI32Add},
		globalSet(globalLive),
		localGet(0),
		wasm.Instruction{Opcode: wasm.OpEnd},
	)
	return wasm.EncodeInstructions(code)
}

func freeBody() []byte {
	return wasm.EncodeInstructions([]wasm.Instruction{
		localGet(0),
		{Opcode: wasm.OpI32Eqz},
		{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		{Opcode: wasm.OpReturn},
		{Opcode: wasm.OpEnd},

		localGet(0),
		globalGet(globalFree),
		{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Align: 2}},
		localGet(0),
		globalSet(globalFree),

		globalGet(globalLive),
		i32Const(1),
		{Opcode: wasm.OpI32Sub},
		globalSet(globalLive),
		{Opcode: wasm.OpEnd},
	})
}

func liveBody() []byte {
	return wasm.EncodeInstructions([]wasm.Instruction{
		globalGet(globalLive),
		{Opcode: wasm.OpEnd},
	})
}

func localGet(idx uint32) wasm.Instruction {
	return wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: idx}}
}

func localSet(idx uint32) wasm.Instruction {
	return wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: idx}}
}

func globalGet(idx uint32) wasm.Instruction {
	return wasm.Instruction{Opcode: wasm.OpGlobalGet, Imm: wasm.GlobalImm{GlobalIdx: idx}}
}

func globalSet(idx uint32) wasm.Instruction {
	return wasm.Instruction{Opcode: wasm.OpGlobalSet, Imm: wasm.GlobalImm{GlobalIdx: idx}}
}

func i32Const(v int32) wasm.Instruction {
	return wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: v}}
}

func alignUp(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}
