//go:build cgo

package main

/*
#include <stdint.h>
#include <stdlib.h>

// Plain malloc: C.malloc from cgo aborts instead of returning NULL.
static char* greeting_alloc(size_t n) {
	return (char*)malloc(n);
}
*/
import "C"

import "unsafe"

//export add_ffi
func add_ffi(a, b C.int64_t) C.int64_t {
	return C.int64_t(add(int64(a), int64(b)))
}

//export hello_world_ffi
func hello_world_ffi() *C.char {
	src := greetingBytes()
	p := C.greeting_alloc(C.size_t(len(src)))
	if p == nil {
		return nil
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(p)), len(src)), src)
	live.Add(1)
	return p
}

//export free_rust_string
func free_rust_string(p *C.char) {
	if p == nil {
		return
	}
	C.free(unsafe.Pointer(p))
	live.Add(-1)
}

//export live_strings
func live_strings() C.int32_t {
	return C.int32_t(live.Load())
}
