package binding

import (
	"context"

	"go.uber.org/zap"

	greeter "github.com/wippyai/ffi-greeter"
	"github.com/wippyai/ffi-greeter/errors"
)

// Binding calls one resolved library. It is safe for concurrent use when
// the library is.
type Binding struct {
	lib    greeter.Library
	source Source
	maxLen int
}

// New wraps an already loaded library. maxLen bounds string decoding;
// zero means greeter.DefaultMaxStringLen.
func New(lib greeter.Library, source Source, maxLen int) *Binding {
	if maxLen <= 0 {
		maxLen = greeter.DefaultMaxStringLen
	}
	return &Binding{lib: lib, source: source, maxLen: maxLen}
}

// Add returns a + b as computed by add_ffi.
func (b *Binding) Add(ctx context.Context, x, y int64) (int64, error) {
	sum, err := b.lib.Add(ctx, x, y)
	if err != nil {
		return 0, wrapCall(greeter.SymbolAdd, err)
	}
	return sum, nil
}

// HelloWorld returns a Go copy of the library's greeting. The library
// buffer is released before HelloWorld returns, whatever the outcome.
func (b *Binding) HelloWorld(ctx context.Context) (msg string, err error) {
	owned, err := Acquire(ctx, b.lib)
	if err != nil {
		return "", err
	}
	defer func() {
		if rerr := owned.Release(ctx); rerr != nil {
			if err == nil {
				msg, err = "", rerr
				return
			}
			Logger().Warn("release after failed decode",
				zap.Uint64("ptr", uint64(owned.Pointer())),
				zap.Error(rerr))
		}
	}()

	return owned.String(ctx, b.maxLen)
}

// LiveStrings reports buffers allocated and not yet released, for
// libraries that can tell.
func (b *Binding) LiveStrings(ctx context.Context) (int, error) {
	counter, ok := b.lib.(interface {
		LiveStrings(context.Context) (int, error)
	})
	if !ok {
		return 0, errors.Unsupported(errors.PhaseCall, "library does not report live strings")
	}
	return counter.LiveStrings(ctx)
}

// Library returns the underlying library.
func (b *Binding) Library() greeter.Library {
	return b.lib
}

// Source describes where the library was loaded from.
func (b *Binding) Source() Source {
	return b.source
}

// MaxStringLen returns the decoding bound.
func (b *Binding) MaxStringLen() int {
	return b.maxLen
}

// Close unloads the library.
func (b *Binding) Close(ctx context.Context) error {
	return b.lib.Close(ctx)
}
