package engine

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	greeter "github.com/wippyai/ffi-greeter"
	"github.com/wippyai/ffi-greeter/errors"
)

// Optional guest exports.
const (
	ExportMemory      = "memory"
	ExportLiveStrings = "live_strings"
)

// coreSignature is the expected core type of an exported function.
type coreSignature struct {
	params  []api.ValueType
	results []api.ValueType
}

var expectedSignatures = map[string]coreSignature{
	greeter.SymbolAdd: {
		params:  []api.ValueType{api.ValueTypeI64, api.ValueTypeI64},
		results: []api.ValueType{api.ValueTypeI64},
	},
	greeter.SymbolHelloWorld: {
		results: []api.ValueType{api.ValueTypeI32},
	},
	greeter.SymbolFreeString: {
		params: []api.ValueType{api.ValueTypeI32},
	},
}

var liveStringsSignature = coreSignature{results: []api.ValueType{api.ValueTypeI32}}

func (s coreSignature) String() string {
	return formatSignature(s.params, s.results)
}

func (s coreSignature) matches(def api.FunctionDefinition) bool {
	return slices.Equal(s.params, def.ParamTypes()) && slices.Equal(s.results, def.ResultTypes())
}

func formatSignature(params, results []api.ValueType) string {
	names := func(types []api.ValueType) string {
		parts := make([]string, len(types))
		for i, t := range types {
			parts[i] = api.ValueTypeName(t)
		}
		return strings.Join(parts, ",")
	}
	return "(" + names(params) + ")->(" + names(results) + ")"
}

// WazeroEngine owns a wazero runtime.
type WazeroEngine struct {
	runtime wazero.Runtime
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means the module's own maximum.
	MemoryLimitPages uint32
}

// NewWazeroEngine creates a new wazero-based engine
func NewWazeroEngine(ctx context.Context) (*WazeroEngine, error) {
	return NewWazeroEngineWithConfig(ctx, nil)
}

// NewWazeroEngineWithConfig creates a new engine with custom configuration
func NewWazeroEngineWithConfig(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()

	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	return &WazeroEngine{runtime: runtime}, nil
}

// InstanceConfig holds configuration for module instantiation
type InstanceConfig struct {
	Name string
}

// LoadModule compiles wasmBytes and verifies its exports.
// A missing symbol or memory yields a MissingSymbolsError listing all of them.
func (e *WazeroEngine) LoadModule(ctx context.Context, name string, wasmBytes []byte) (*WazeroModule, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Load(fmt.Sprintf("compile %s", name), err)
	}

	if err := checkExports(name, compiled); err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}

	return &WazeroModule{
		engine:   e,
		compiled: compiled,
		name:     name,
	}, nil
}

func checkExports(name string, compiled wazero.CompiledModule) error {
	funcs := compiled.ExportedFunctions()

	var missing []string
	for _, sym := range greeter.Symbols() {
		def, ok := funcs[sym]
		if !ok {
			missing = append(missing, sym)
			continue
		}
		want := expectedSignatures[sym]
		if !want.matches(def) {
			return errors.SignatureMismatch(sym, want.String(), formatSignature(def.ParamTypes(), def.ResultTypes()))
		}
	}
	if _, ok := compiled.ExportedMemories()[ExportMemory]; !ok {
		missing = append(missing, ExportMemory)
	}
	if len(missing) > 0 {
		return errors.NewMissingSymbolsError(name, missing)
	}
	return nil
}

func (e *WazeroEngine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// WazeroModule is a compiled library module
type WazeroModule struct {
	engine   *WazeroEngine
	compiled wazero.CompiledModule
	name     string
}

// Instantiate creates an instance with default configuration.
func (m *WazeroModule) Instantiate(ctx context.Context) (*WazeroInstance, error) {
	return m.InstantiateWithConfig(ctx, nil)
}

// InstantiateWithConfig runs the module's start section and resolves the symbols.
func (m *WazeroModule) InstantiateWithConfig(ctx context.Context, cfg *InstanceConfig) (*WazeroInstance, error) {
	modCfg := wazero.NewModuleConfig()
	if cfg != nil && cfg.Name != "" {
		modCfg = modCfg.WithName(cfg.Name)
	} else {
		// anonymous so several instances can share one runtime
		modCfg = modCfg.WithName("")
	}

	mod, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, modCfg)
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	inst := &WazeroInstance{
		module:  mod,
		name:    m.name,
		addFn:   mod.ExportedFunction(greeter.SymbolAdd),
		helloFn: mod.ExportedFunction(greeter.SymbolHelloWorld),
		freeFn:  mod.ExportedFunction(greeter.SymbolFreeString),
		memory:  &WazeroMemory{mem: mod.Memory()},
	}
	if def, ok := m.compiled.ExportedFunctions()[ExportLiveStrings]; ok && liveStringsSignature.matches(def) {
		inst.liveFn = mod.ExportedFunction(ExportLiveStrings)
	}

	Logger().Debug("instantiated wasm library",
		zap.String("name", m.name),
		zap.Uint32("memory_bytes", inst.memory.Size()),
		zap.Bool("live_strings", inst.liveFn != nil))

	return inst, nil
}

// Close releases the compiled module.
func (m *WazeroModule) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// LoadWazero compiles and instantiates a library in a dedicated runtime.
// Closing the returned instance closes the runtime.
func LoadWazero(ctx context.Context, name string, wasmBytes []byte, cfg *Config) (*WazeroInstance, error) {
	eng, err := NewWazeroEngineWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	mod, err := eng.LoadModule(ctx, name, wasmBytes)
	if err != nil {
		_ = eng.Close(ctx)
		return nil, err
	}

	inst, err := mod.Instantiate(ctx)
	if err != nil {
		_ = eng.Close(ctx)
		return nil, err
	}
	inst.owner = eng
	return inst, nil
}

// WazeroInstance is a running library. It implements greeter.Library.
type WazeroInstance struct {
	module  api.Module
	owner   *WazeroEngine
	addFn   api.Function
	helloFn api.Function
	freeFn  api.Function
	liveFn  api.Function
	memory  *WazeroMemory
	name    string
	mu      sync.Mutex
	closed  bool
}

var _ greeter.Library = (*WazeroInstance)(nil)

// Name returns the name the module was loaded under.
func (i *WazeroInstance) Name() string {
	return i.name
}

func (i *WazeroInstance) Add(ctx context.Context, a, b int64) (int64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return 0, errors.NotInitialized(errors.PhaseCall, "library "+i.name)
	}
	results, err := i.addFn.Call(ctx, api.EncodeI64(a), api.EncodeI64(b))
	if err != nil {
		return 0, errors.Invocation(greeter.SymbolAdd, err)
	}
	return int64(results[0]), nil
}

func (i *WazeroInstance) HelloWorld(ctx context.Context) (greeter.Pointer, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return 0, errors.NotInitialized(errors.PhaseCall, "library "+i.name)
	}
	results, err := i.helloFn.Call(ctx)
	if err != nil {
		return 0, errors.Invocation(greeter.SymbolHelloWorld, err)
	}
	return greeter.Pointer(api.DecodeU32(results[0])), nil
}

// ReadCString copies the string at p out of guest memory.
func (i *WazeroInstance) ReadCString(_ context.Context, p greeter.Pointer, limit int) ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return nil, errors.NotInitialized(errors.PhaseDecode, "library "+i.name)
	}
	if p.IsNull() {
		return nil, errors.NullPointer(errors.PhaseDecode, greeter.SymbolHelloWorld)
	}
	if limit <= 0 {
		limit = greeter.DefaultMaxStringLen
	}

	size := uint64(i.memory.Size())
	addr := uint64(p)
	if addr >= size {
		return nil, errors.OutOfBounds(errors.PhaseDecode, greeter.SymbolHelloWorld, addr, size)
	}

	n := min(uint64(limit), size-addr)
	view, err := i.memory.Read(uint32(addr), uint32(n))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindOutOfBounds, err, "read guest memory")
	}

	end := bytes.IndexByte(view, 0)
	if end < 0 {
		if n < uint64(limit) {
			return nil, errors.OutOfBounds(errors.PhaseDecode, greeter.SymbolHelloWorld, addr+n, size)
		}
		return nil, errors.Unterminated(greeter.SymbolHelloWorld, limit)
	}
	// view aliases guest memory
	return bytes.Clone(view[:end]), nil
}

func (i *WazeroInstance) FreeString(ctx context.Context, p greeter.Pointer) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return errors.NotInitialized(errors.PhaseRelease, "library "+i.name)
	}
	if uint64(p) > math.MaxUint32 {
		return errors.OutOfBounds(errors.PhaseRelease, greeter.SymbolFreeString, uint64(p), uint64(i.memory.Size()))
	}
	if _, err := i.freeFn.Call(ctx, api.EncodeU32(uint32(p))); err != nil {
		return errors.Invocation(greeter.SymbolFreeString, err)
	}
	return nil
}

// LiveStrings reports how many greetings the guest has allocated and not
// yet seen released.
func (i *WazeroInstance) LiveStrings(ctx context.Context) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return 0, errors.NotInitialized(errors.PhaseCall, "library "+i.name)
	}
	if i.liveFn == nil {
		return 0, errors.Unsupported(errors.PhaseCall, ExportLiveStrings+" is not exported")
	}
	results, err := i.liveFn.Call(ctx)
	if err != nil {
		return 0, errors.Invocation(ExportLiveStrings, err)
	}
	return int(int32(api.DecodeU32(results[0]))), nil
}

// MemorySize returns the current size of guest memory in bytes.
func (i *WazeroInstance) MemorySize() uint32 {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return 0
	}
	return i.memory.Size()
}

func (i *WazeroInstance) Close(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return nil
	}
	i.closed = true

	var firstErr error
	if err := i.module.Close(ctx); err != nil {
		firstErr = err
	}
	if i.owner != nil {
		if err := i.owner.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		i.owner = nil
	}
	// Clear references to help GC
	i.addFn = nil
	i.helloFn = nil
	i.freeFn = nil
	i.liveFn = nil
	i.memory = nil
	return firstErr
}

// WazeroMemory wraps the guest's exported memory.
type WazeroMemory struct {
	mem api.Memory
}

// Read returns a view of guest memory. The slice aliases the memory and
// is invalidated by growth.
func (m *WazeroMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (m *WazeroMemory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}
