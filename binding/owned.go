package binding

import (
	"context"
	stderrors "errors"
	"unicode/utf8"

	greeter "github.com/wippyai/ffi-greeter"
	"github.com/wippyai/ffi-greeter/errors"
)

// OwnedString is one greeting buffer owned by the caller.
// It is not safe for concurrent use.
type OwnedString struct {
	lib      greeter.Library
	ptr      greeter.Pointer
	released bool
}

// Acquire calls hello_world_ffi and takes ownership of the result.
// A null result is an error; nothing is owned in that case.
func Acquire(ctx context.Context, lib greeter.Library) (*OwnedString, error) {
	p, err := lib.HelloWorld(ctx)
	if err != nil {
		return nil, wrapCall(greeter.SymbolHelloWorld, err)
	}
	if p.IsNull() {
		return nil, errors.NullResult(greeter.SymbolHelloWorld)
	}
	return &OwnedString{lib: lib, ptr: p}, nil
}

// Pointer returns the owned address. It stays valid until Release.
func (s *OwnedString) Pointer() greeter.Pointer {
	return s.ptr
}

// Released reports whether the buffer has been given back.
func (s *OwnedString) Released() bool {
	return s.released
}

// Bytes copies the buffer contents up to the terminator.
func (s *OwnedString) Bytes(ctx context.Context, limit int) ([]byte, error) {
	if s.released {
		return nil, errors.Released(errors.PhaseDecode, greeter.SymbolHelloWorld)
	}
	data, err := s.lib.ReadCString(ctx, s.ptr, limit)
	if err != nil {
		return nil, wrapPhase(errors.PhaseDecode, greeter.SymbolHelloWorld, err)
	}
	return data, nil
}

// String copies the buffer contents and checks they are valid UTF-8.
func (s *OwnedString) String(ctx context.Context, limit int) (string, error) {
	data, err := s.Bytes(ctx, limit)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errors.InvalidUTF8(greeter.SymbolHelloWorld, data)
	}
	return string(data), nil
}

// Release gives the buffer back with free_rust_string. Only the first call
// reaches the library, even if it fails.
func (s *OwnedString) Release(ctx context.Context) error {
	if s.released {
		return nil
	}
	s.released = true
	if err := s.lib.FreeString(ctx, s.ptr); err != nil {
		return wrapPhase(errors.PhaseRelease, greeter.SymbolFreeString, err)
	}
	return nil
}

// wrapCall attaches symbol context to an error that does not carry it yet.
func wrapCall(symbol string, err error) error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return err
	}
	return errors.Invocation(symbol, err)
}

func wrapPhase(phase errors.Phase, symbol string, err error) error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return err
	}
	return errors.New(phase, errors.KindInvocation).Symbol(symbol).Cause(err).Build()
}
