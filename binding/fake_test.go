package binding

import (
	"context"

	greeter "github.com/wippyai/ffi-greeter"
)

// fakeLibrary hands out a single pointer and records every call.
type fakeLibrary struct {
	data      []byte
	helloErr  error
	readErr   error
	freeErr   error
	addErr    error
	readPanic any
	ptr       greeter.Pointer
	hellos    int
	reads     int
	frees     []greeter.Pointer
	closed    bool
}

func newFake() *fakeLibrary {
	return &fakeLibrary{ptr: 0x1000, data: []byte(greeter.Greeting)}
}

func (f *fakeLibrary) Add(_ context.Context, a, b int64) (int64, error) {
	if f.addErr != nil {
		return 0, f.addErr
	}
	return a + b, nil
}

func (f *fakeLibrary) HelloWorld(context.Context) (greeter.Pointer, error) {
	f.hellos++
	if f.helloErr != nil {
		return 0, f.helloErr
	}
	return f.ptr, nil
}

func (f *fakeLibrary) ReadCString(_ context.Context, _ greeter.Pointer, _ int) ([]byte, error) {
	f.reads++
	if f.readPanic != nil {
		panic(f.readPanic)
	}
	if f.readErr != nil {
		return nil, f.readErr
	}
	return append([]byte(nil), f.data...), nil
}

func (f *fakeLibrary) FreeString(_ context.Context, p greeter.Pointer) error {
	f.frees = append(f.frees, p)
	return f.freeErr
}

func (f *fakeLibrary) Close(context.Context) error {
	f.closed = true
	return nil
}
