//go:build !(darwin || freebsd || linux)

package engine

import (
	"runtime"

	greeter "github.com/wippyai/ffi-greeter"
	"github.com/wippyai/ffi-greeter/errors"
)

// NativeLibrary is unavailable on this platform.
type NativeLibrary struct {
	greeter.Library
}

// LoadNative always fails: dlopen is not available on this platform.
func LoadNative(path string) (*NativeLibrary, error) {
	return nil, errors.New(errors.PhaseLoad, errors.KindUnsupported).
		Detail("native libraries are not supported on %s", runtime.GOOS).
		Value(path).
		Build()
}

// Path returns the empty string.
func (l *NativeLibrary) Path() string {
	return ""
}
