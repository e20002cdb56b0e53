package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	greeter "github.com/wippyai/ffi-greeter"
	"github.com/wippyai/ffi-greeter/errors"
	"github.com/wippyai/ffi-greeter/guest"
	"github.com/wippyai/ffi-greeter/wasm"
)

func loadGuest(t *testing.T, cfg guest.Config, engCfg *Config) *WazeroInstance {
	t.Helper()
	ctx := context.Background()

	bin, err := guest.Build(cfg)
	require.NoError(t, err)

	inst, err := LoadWazero(ctx, "test", bin, engCfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = inst.Close(ctx) })
	return inst
}

func TestNewWazeroEngineWithConfig(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		cfg  *Config
		name string
	}{
		{nil, "nil config"},
		{&Config{}, "default config"},
		{&Config{MemoryLimitPages: 4}, "256KB limit"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine, err := NewWazeroEngineWithConfig(ctx, tc.cfg)
			require.NoError(t, err)
			defer engine.Close(ctx)
			assert.NotNil(t, engine.runtime)
		})
	}
}

func TestWazeroInstance_Add(t *testing.T) {
	ctx := context.Background()
	inst := loadGuest(t, guest.Config{}, nil)

	got, err := inst.Add(ctx, 42, 58)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got)

	got, err = inst.Add(ctx, -9223372036854775808, -1)
	require.NoError(t, err)
	assert.Equal(t, int64(9223372036854775807), got)
}

func TestWazeroInstance_HelloWorldRoundTrip(t *testing.T) {
	ctx := context.Background()
	inst := loadGuest(t, guest.Config{}, nil)

	p, err := inst.HelloWorld(ctx)
	require.NoError(t, err)
	require.False(t, p.IsNull())

	data, err := inst.ReadCString(ctx, p, 0)
	require.NoError(t, err)
	assert.Equal(t, greeter.Greeting, string(data))

	live, err := inst.LiveStrings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, live)

	require.NoError(t, inst.FreeString(ctx, p))
	live, err = inst.LiveStrings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, live)
}

func TestWazeroInstance_ReadCStringCopies(t *testing.T) {
	ctx := context.Background()
	inst := loadGuest(t, guest.Config{}, nil)

	p, err := inst.HelloWorld(ctx)
	require.NoError(t, err)
	data, err := inst.ReadCString(ctx, p, 0)
	require.NoError(t, err)

	// the freed slot's first word is overwritten by the free list link
	require.NoError(t, inst.FreeString(ctx, p))
	q, err := inst.HelloWorld(ctx)
	require.NoError(t, err)
	require.NoError(t, inst.FreeString(ctx, q))

	assert.Equal(t, greeter.Greeting, string(data))
}

func TestWazeroInstance_ReadCStringErrors(t *testing.T) {
	ctx := context.Background()
	inst := loadGuest(t, guest.Config{}, nil)

	_, err := inst.ReadCString(ctx, 0, 0)
	assert.Equal(t, errors.KindNullPointer, errors.KindOf(err))

	_, err = inst.ReadCString(ctx, greeter.Pointer(inst.MemorySize()), 0)
	assert.Equal(t, errors.KindOutOfBounds, errors.KindOf(err))

	p, err := inst.HelloWorld(ctx)
	require.NoError(t, err)
	defer inst.FreeString(ctx, p)

	_, err = inst.ReadCString(ctx, p, 4)
	assert.Equal(t, errors.KindUnterminated, errors.KindOf(err))

	_, err = inst.ReadCString(ctx, greeter.Pointer(inst.MemorySize()-2), 0)
	assert.NoError(t, err, "zeroed memory reads as an empty string")
}

func TestWazeroInstance_NoGrowthOverRepeatedCalls(t *testing.T) {
	ctx := context.Background()
	inst := loadGuest(t, guest.Config{}, nil)
	size := inst.MemorySize()

	for i := 0; i < 1000; i++ {
		p, err := inst.HelloWorld(ctx)
		require.NoError(t, err)
		_, err = inst.ReadCString(ctx, p, 0)
		require.NoError(t, err)
		require.NoError(t, inst.FreeString(ctx, p))
	}

	live, err := inst.LiveStrings(ctx)
	require.NoError(t, err)
	assert.Zero(t, live)
	assert.Equal(t, size, inst.MemorySize())
}

func TestWazeroInstance_NullOnExhaustion(t *testing.T) {
	ctx := context.Background()
	inst := loadGuest(t, guest.Config{MaxPages: 1}, nil)

	var held []greeter.Pointer
	for {
		p, err := inst.HelloWorld(ctx)
		require.NoError(t, err)
		if p.IsNull() {
			break
		}
		held = append(held, p)
		require.Less(t, len(held), 10000, "allocator never ran out")
	}
	assert.NotEmpty(t, held)

	for _, p := range held {
		require.NoError(t, inst.FreeString(ctx, p))
	}
	live, err := inst.LiveStrings(ctx)
	require.NoError(t, err)
	assert.Zero(t, live)
}

func TestWazeroInstance_MemoryLimit(t *testing.T) {
	ctx := context.Background()
	inst := loadGuest(t, guest.Config{MaxPages: 2}, &Config{MemoryLimitPages: 2})

	for i := 0; i < 10000; i++ {
		p, err := inst.HelloWorld(ctx)
		require.NoError(t, err)
		if p.IsNull() {
			assert.Equal(t, uint32(2*65536), inst.MemorySize())
			return
		}
	}
	t.Fatal("memory limit was not enforced")
}

func TestWazeroInstance_FreeRejectsWidePointer(t *testing.T) {
	ctx := context.Background()
	inst := loadGuest(t, guest.Config{}, nil)

	err := inst.FreeString(ctx, greeter.Pointer(1<<40))
	assert.Equal(t, errors.KindOutOfBounds, errors.KindOf(err))
}

func TestWazeroInstance_Close(t *testing.T) {
	ctx := context.Background()
	bin, err := guest.Module()
	require.NoError(t, err)

	inst, err := LoadWazero(ctx, "closing", bin, nil)
	require.NoError(t, err)
	require.NoError(t, inst.Close(ctx))
	require.NoError(t, inst.Close(ctx), "second close is a no-op")

	_, err = inst.Add(ctx, 1, 2)
	assert.Equal(t, errors.KindNotInitialized, errors.KindOf(err))
	_, err = inst.HelloWorld(ctx)
	assert.Equal(t, errors.KindNotInitialized, errors.KindOf(err))
	assert.Equal(t, errors.KindNotInitialized, errors.KindOf(inst.FreeString(ctx, 64)))
	assert.Zero(t, inst.MemorySize())
}

func TestLoadModule_MissingSymbols(t *testing.T) {
	ctx := context.Background()
	bin, err := guest.Build(guest.Config{Omit: []string{greeter.SymbolFreeString, greeter.SymbolAdd, guest.ExportMemory}})
	require.NoError(t, err)

	_, err = LoadWazero(ctx, "partial", bin, nil)
	require.Error(t, err)

	var missing *errors.MissingSymbolsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "partial", missing.Library)
	assert.ElementsMatch(t, []string{greeter.SymbolAdd, greeter.SymbolFreeString, ExportMemory}, missing.Symbols)
	assert.True(t, errors.IsFatal(err))
}

func TestLoadModule_SignatureMismatch(t *testing.T) {
	ctx := context.Background()

	m := &wasm.Module{}
	m.Memories = append(m.Memories, wasm.MemoryType{Limits: wasm.Limits{Min: 1}})
	i32 := []wasm.ValType{wasm.ValI32}
	end := wasm.FuncBody{Code: wasm.EncodeInstructions([]wasm.Instruction{
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
		{Opcode: wasm.OpEnd},
	})}
	// add_ffi declared with i32 operands
	addIdx := m.AddFunc(wasm.FuncType{Params: []wasm.ValType{wasm.ValI32, wasm.ValI32}, Results: i32}, end)
	helloIdx := m.AddFunc(wasm.FuncType{Results: i32}, end)
	freeIdx := m.AddFunc(wasm.FuncType{Params: i32}, wasm.FuncBody{Code: []byte{wasm.OpEnd}})
	m.Exports = []wasm.Export{
		{Name: ExportMemory, Kind: wasm.KindMemory, Idx: 0},
		{Name: greeter.SymbolAdd, Kind: wasm.KindFunc, Idx: addIdx},
		{Name: greeter.SymbolHelloWorld, Kind: wasm.KindFunc, Idx: helloIdx},
		{Name: greeter.SymbolFreeString, Kind: wasm.KindFunc, Idx: freeIdx},
	}
	require.NoError(t, m.Validate())

	_, err := LoadWazero(ctx, "mismatch", m.Encode(), nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindSignatureMismatch, errors.KindOf(err))
	assert.Contains(t, err.Error(), "(i64,i64)->(i64)")
	assert.Contains(t, err.Error(), "(i32,i32)->(i32)")
}

func TestLoadModule_InvalidBinary(t *testing.T) {
	_, err := LoadWazero(context.Background(), "garbage", []byte("not wasm"), nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindInvalidData, errors.KindOf(err))
	assert.True(t, errors.IsFatal(err))
}

func TestLiveStrings_NotExported(t *testing.T) {
	ctx := context.Background()
	inst := loadGuest(t, guest.Config{Omit: []string{guest.ExportLiveStrings}}, nil)

	_, err := inst.LiveStrings(ctx)
	assert.Equal(t, errors.KindUnsupported, errors.KindOf(err))
}

func TestSetLogger(t *testing.T) {
	assert.NotNil(t, Logger())
	SetLogger(nil)
	assert.NotNil(t, Logger())
}
