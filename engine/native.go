//go:build darwin || freebsd || linux

package engine

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"go.uber.org/zap"

	greeter "github.com/wippyai/ffi-greeter"
	"github.com/wippyai/ffi-greeter/errors"
)

// NativeLibrary is a shared object opened with dlopen. It implements greeter.Library.
type NativeLibrary struct {
	addFn   func(int64, int64) int64
	helloFn func() uintptr
	freeFn  func(uintptr)
	liveFn  func() int32 // nil unless live_strings is exported
	path    string
	handle  uintptr
	mu      sync.RWMutex
}

var _ greeter.Library = (*NativeLibrary)(nil)

// LoadNative opens the shared library at path and binds all symbols.
// Every symbol is looked up before any is bound; the handle is closed
// again if one is missing.
func LoadNative(path string) (*NativeLibrary, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, errors.Load(fmt.Sprintf("dlopen %s", path), err)
	}

	addrs := make(map[string]uintptr, 3)
	var missing []string
	for _, sym := range greeter.Symbols() {
		addr, err := purego.Dlsym(handle, sym)
		if err != nil || addr == 0 {
			missing = append(missing, sym)
			continue
		}
		addrs[sym] = addr
	}
	if len(missing) > 0 {
		if cerr := purego.Dlclose(handle); cerr != nil {
			Logger().Warn("dlclose after failed bind", zap.String("path", path), zap.Error(cerr))
		}
		return nil, errors.NewMissingSymbolsError(path, missing)
	}

	lib := &NativeLibrary{path: path, handle: handle}
	purego.RegisterFunc(&lib.addFn, addrs[greeter.SymbolAdd])
	purego.RegisterFunc(&lib.helloFn, addrs[greeter.SymbolHelloWorld])
	purego.RegisterFunc(&lib.freeFn, addrs[greeter.SymbolFreeString])
	if addr, err := purego.Dlsym(handle, ExportLiveStrings); err == nil && addr != 0 {
		purego.RegisterFunc(&lib.liveFn, addr)
	}

	Logger().Debug("opened native library", zap.String("path", path), zap.Bool("live_strings", lib.liveFn != nil))
	return lib, nil
}

// Path returns the file the library was opened from.
func (l *NativeLibrary) Path() string {
	return l.path
}

func (l *NativeLibrary) Add(_ context.Context, a, b int64) (sum int64, err error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.handle == 0 {
		return 0, errors.NotInitialized(errors.PhaseCall, "library "+l.path)
	}
	defer recoverInvocation(greeter.SymbolAdd, &err)
	return l.addFn(a, b), nil
}

func (l *NativeLibrary) HelloWorld(_ context.Context) (p greeter.Pointer, err error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.handle == 0 {
		return 0, errors.NotInitialized(errors.PhaseCall, "library "+l.path)
	}
	defer recoverInvocation(greeter.SymbolHelloWorld, &err)
	return greeter.Pointer(l.helloFn()), nil
}

// ReadCString scans native memory at p one byte at a time so the read
// never passes the terminator.
func (l *NativeLibrary) ReadCString(_ context.Context, p greeter.Pointer, limit int) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.handle == 0 {
		return nil, errors.NotInitialized(errors.PhaseDecode, "library "+l.path)
	}
	if p.IsNull() {
		return nil, errors.NullPointer(errors.PhaseDecode, greeter.SymbolHelloWorld)
	}
	if limit <= 0 {
		limit = greeter.DefaultMaxStringLen
	}

	// same conversion purego uses for C strings; the address is not Go memory
	addr := uintptr(p)
	base := *(*unsafe.Pointer)(unsafe.Pointer(&addr))
	for n := 0; n < limit; n++ {
		if *(*byte)(unsafe.Add(base, n)) == 0 {
			out := make([]byte, n)
			copy(out, unsafe.Slice((*byte)(base), n))
			return out, nil
		}
	}
	return nil, errors.Unterminated(greeter.SymbolHelloWorld, limit)
}

func (l *NativeLibrary) FreeString(_ context.Context, p greeter.Pointer) (err error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.handle == 0 {
		return errors.NotInitialized(errors.PhaseRelease, "library "+l.path)
	}
	defer recoverInvocation(greeter.SymbolFreeString, &err)
	l.freeFn(uintptr(p))
	return nil
}

// LiveStrings calls live_strings when the library exports it.
func (l *NativeLibrary) LiveStrings(_ context.Context) (n int, err error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.handle == 0 {
		return 0, errors.NotInitialized(errors.PhaseCall, "library "+l.path)
	}
	if l.liveFn == nil {
		return 0, errors.Unsupported(errors.PhaseCall, l.path+" does not export "+ExportLiveStrings)
	}
	defer recoverInvocation(ExportLiveStrings, &err)
	return int(l.liveFn()), nil
}

// Close unloads the library. Pointers it returned become invalid.
func (l *NativeLibrary) Close(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handle == 0 {
		return nil
	}
	handle := l.handle
	l.handle = 0
	l.addFn, l.helloFn, l.freeFn, l.liveFn = nil, nil, nil, nil
	if err := purego.Dlclose(handle); err != nil {
		return errors.Load(fmt.Sprintf("dlclose %s", l.path), err)
	}
	return nil
}

// recoverInvocation turns a panic raised while crossing into the library
// into an invocation error.
func recoverInvocation(symbol string, err *error) {
	if r := recover(); r != nil {
		cause, ok := r.(error)
		if !ok {
			cause = fmt.Errorf("%v", r)
		}
		*err = errors.Invocation(symbol, cause)
	}
}
