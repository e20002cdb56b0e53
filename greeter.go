package greeter

import (
	"context"

	"go.bytecodealliance.org/wit"
)

// Exported symbol names of the library.
const (
	SymbolAdd        = "add_ffi"
	SymbolHelloWorld = "hello_world_ffi"
	SymbolFreeString = "free_rust_string"
)

// Greeting is the literal every hello_world_ffi implementation returns.
const Greeting = "Hello, world!"

// DefaultMaxStringLen bounds how far a NUL terminator is searched for.
const DefaultMaxStringLen = 4096

// Symbols returns the exported names in bind order.
func Symbols() []string {
	return []string{SymbolAdd, SymbolHelloWorld, SymbolFreeString}
}

// Pointer is an address inside the library's allocator. Zero is null.
type Pointer uint64

// IsNull reports whether p is the null pointer.
func (p Pointer) IsNull() bool {
	return p == 0
}

// Library is one loaded library with all three symbols resolved.
// Implementations translate each method into exactly one foreign call,
// except ReadCString which only reads library memory.
type Library interface {
	// Add calls add_ffi.
	Add(ctx context.Context, a, b int64) (int64, error)

	// HelloWorld calls hello_world_ffi and returns the raw pointer.
	// Ownership of a non-null result passes to the caller.
	HelloWorld(ctx context.Context) (Pointer, error)

	// ReadCString copies the bytes before the NUL terminator at p,
	// scanning at most limit bytes.
	ReadCString(ctx context.Context, p Pointer, limit int) ([]byte, error)

	// FreeString calls free_rust_string.
	FreeString(ctx context.Context, p Pointer) error

	// Close unloads the library. Outstanding pointers become invalid.
	Close(ctx context.Context) error
}

// Param is a named parameter of an exported symbol.
type Param struct {
	Type wit.Type
	Name string
}

// Signature describes an exported symbol with WIT types.
type Signature struct {
	Result wit.Type // nil for no result
	Name   string
	Params []Param
}

// Signatures describes the three exported symbols.
// hello_world_ffi is described by what the caller observes: a string.
func Signatures() []Signature {
	return []Signature{
		{
			Name:   SymbolAdd,
			Params: []Param{{Name: "a", Type: wit.S64{}}, {Name: "b", Type: wit.S64{}}},
			Result: wit.S64{},
		},
		{
			Name:   SymbolHelloWorld,
			Result: wit.String{},
		},
		{
			Name:   SymbolFreeString,
			Params: []Param{{Name: "ptr", Type: wit.U64{}}},
		},
	}
}
