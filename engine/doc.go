// Package engine loads a greeting library and resolves its symbols.
//
// Two backends implement greeter.Library:
//
//	WazeroInstance - a WebAssembly build of the library running in wazero
//	NativeLibrary  - a shared object (.so/.dylib) opened with purego
//
// # Wazero Flow
//
//  1. NewWazeroEngineWithConfig creates a runtime with a memory cap
//  2. WazeroEngine.LoadModule compiles the binary and checks that every
//     symbol is exported with the expected core signature
//  3. WazeroModule.Instantiate runs the module and returns a WazeroInstance
//
// LoadWazero performs all three steps and hands ownership of the runtime to
// the returned instance.
//
// Core signatures expected of a WebAssembly library:
//
//	add_ffi           (i64, i64) -> i64
//	hello_world_ffi   () -> i32
//	free_rust_string  (i32) -> ()
//	memory            exported linear memory
//
// # Native Flow
//
// LoadNative opens the library with RTLD_NOW|RTLD_LOCAL, looks up every
// symbol before binding any, and closes the handle again on failure. Native
// libraries are only supported where purego provides Dlopen.
//
// # Strings
//
// ReadCString copies the bytes before the terminator into Go memory. It never
// frees; releasing the pointer is the caller's job.
//
// # Thread Safety
//
// WazeroInstance serializes calls with a mutex. NativeLibrary calls run
// concurrently but never overlap Close.
package engine
