// Package greeter defines the contract between a Go caller and a library that
// manages its own memory behind a C-style foreign-function boundary.
//
// The library exports exactly three symbols:
//
//	add_ffi(a: int64, b: int64) -> int64   pure, wraps on overflow
//	hello_world_ffi() -> pointer           allocates "Hello, world!\x00"
//	free_rust_string(pointer)              releases a hello_world_ffi result
//
// The greeting buffer belongs to the library until hello_world_ffi returns.
// From then on the caller owns it and must hand the exact pointer back to
// free_rust_string once, after it has finished reading. A null pointer is a
// no-op for free_rust_string; anything else that was not returned by
// hello_world_ffi is undefined behavior.
//
// # Architecture Overview
//
//	greeter/        Root package with the symbol names, Pointer and Library
//	├── binding/    Caller binding: library resolution, scoped acquisition
//	├── engine/     Library backends: wazero (wasm) and purego (dlopen)
//	├── guest/      The bundled library as a synthesized wasm module
//	├── wasm/       Core WASM binary encoder used by guest
//	├── config/     Configuration from defaults, YAML and environment
//	├── errors/     Structured error types
//	├── cmd/        greeter CLI and the c-shared libgreeting library
//	├── internal/   Test helper that builds libgreeting
//	└── examples/   Runnable usage examples
//
// # Quick Start
//
//	ctx := context.Background()
//	cfg, err := config.FromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	b, err := binding.Open(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close(ctx)
//
//	sum, _ := b.Add(ctx, 42, 58)     // 100
//	msg, _ := b.HelloWorld(ctx)      // "Hello, world!"
//
// # Thread Safety
//
// A Binding is safe for concurrent use once opened. Each greeting buffer is
// owned by the single call that allocated it and never shared.
package greeter
