package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bytecodealliance.org/wit"

	greeter "github.com/wippyai/ffi-greeter"
	"github.com/wippyai/ffi-greeter/binding"
	"github.com/wippyai/ffi-greeter/config"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvLibrary, "")
	t.Setenv(config.EnvDisableBundled, "false")
	t.Setenv(config.EnvSearchPath, filepath.Join(t.TempDir(), "missing.so"))
}

func TestRun_Default(t *testing.T) {
	isolateEnv(t)
	var out bytes.Buffer

	err := run(context.Background(), options{a: 42, b: 58, repeat: 1000}, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Library: bundled (wazero)")
	assert.Contains(t, out.String(), "Add: 42 + 58 = 100")
	assert.Contains(t, out.String(), `Received: "Hello, world!"`)
	assert.Contains(t, out.String(), "Repeated 1000 calls, live buffers: 0")
}

func TestRun_List(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), options{list: true}, &out))

	assert.Contains(t, out.String(), "add_ffi(a: s64, b: s64) -> s64")
	assert.Contains(t, out.String(), "hello_world_ffi() -> string")
	assert.Contains(t, out.String(), "free_rust_string(ptr: u64)")
}

func TestRun_Schema(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), options{schema: true}, &out))
	assert.Contains(t, out.String(), "max_string_len")
}

func TestRun_MissingLibrary(t *testing.T) {
	isolateEnv(t)
	var out bytes.Buffer

	err := run(context.Background(), options{libPath: filepath.Join(t.TempDir(), "nope.so")}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load library")
	assert.Empty(t, out.String(), "nothing is called before the library resolves")
}

func TestRun_BadLogLevel(t *testing.T) {
	isolateEnv(t)
	err := run(context.Background(), options{logLevel: "chatty"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}

func TestConvertArg(t *testing.T) {
	v, err := convertArg(" -7 ", wit.S64{})
	require.NoError(t, err)
	assert.Equal(t, int64(-7), v)

	v, err = convertArg("7", wit.U64{})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)

	_, err = convertArg("seven", wit.S64{})
	assert.Error(t, err)
}

func TestInvoke(t *testing.T) {
	isolateEnv(t)
	ctx := context.Background()
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	b, err := binding.Open(ctx, cfg)
	require.NoError(t, err)
	defer b.Close(ctx)

	got, err := invoke(ctx, b, greeter.SymbolAdd, []any{int64(40), int64(2)})
	require.NoError(t, err)
	assert.Equal(t, "42", got)

	got, err = invoke(ctx, b, greeter.SymbolHelloWorld, nil)
	require.NoError(t, err)
	assert.Equal(t, `"Hello, world!"`, got)

	_, err = invoke(ctx, b, greeter.SymbolFreeString, []any{uint64(1)})
	assert.Error(t, err)
}

func TestInteractiveModel(t *testing.T) {
	isolateEnv(t)
	ctx := context.Background()
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	b, err := binding.Open(ctx, cfg)
	require.NoError(t, err)
	defer b.Close(ctx)

	m := newInteractiveModel(b)
	require.Len(t, m.funcs, 2, "free_rust_string is not offered")
	assert.Contains(t, m.View(), "add_ffi")

	// select hello_world_ffi, which takes no input
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.Equal(t, stateShowResult, m.state)
	require.NoError(t, m.err)
	assert.Equal(t, `"Hello, world!"`, m.result)
}
