// Package guest builds the bundled greeting library as a WebAssembly module.
//
// The module exports the same three symbols as the native library and follows
// the same ownership contract. Strings live in fixed-size slots carved from
// linear memory; released slots go onto a free list and are reused before the
// heap is bumped, so a caller that frees every greeting keeps memory constant.
//
// Memory layout:
//
//	0      16           16+slot      heapBase
//	| zero | template\0 | padding    | slot | slot | ...
//
// Exports:
//
//	memory
//	add_ffi(i64, i64) -> i64
//	hello_world_ffi() -> i32
//	free_rust_string(i32)
//	live_strings() -> i32
package guest
