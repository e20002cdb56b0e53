// Command libgreeting is the native greeting library.
//
// Build it as a shared object and point the binding at it:
//
//	go build -buildmode=c-shared -o build/libgreeting.so ./cmd/libgreeting
//
// The exported symbols are add_ffi, hello_world_ffi and free_rust_string,
// plus live_strings for leak checks. Strings come from the C heap, so any
// C-ABI caller can release them.
package main

import (
	"sync/atomic"

	greeter "github.com/wippyai/ffi-greeter"
)

// live counts greetings handed out and not yet freed.
var live atomic.Int32

// add is add_ffi: two's complement, wrapping on overflow.
func add(a, b int64) int64 {
	return a + b
}

// greetingBytes returns a fresh NUL-terminated copy of the greeting.
func greetingBytes() []byte {
	buf := make([]byte, len(greeter.Greeting)+1)
	copy(buf, greeter.Greeting)
	return buf
}

func main() {
	// required by -buildmode=c-shared
}
