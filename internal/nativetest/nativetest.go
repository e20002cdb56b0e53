// Package nativetest builds the c-shared greeting library for tests.
package nativetest

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// Package is the import path of the native library's main package.
const Package = "github.com/wippyai/ffi-greeter/cmd/libgreeting"

// Build compiles Package with -buildmode=c-shared into a temporary
// directory and returns the library path. The test is skipped when cgo is
// disabled or no C compiler is installed; any other build failure fails it.
//
// A process should load the result at most once: a Go shared library
// starts its own runtime and is never unloaded.
func Build(t testing.TB) string {
	t.Helper()

	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go command not found")
	}
	if goEnv(t, goBin, "CGO_ENABLED") != "1" {
		t.Skip("cgo is disabled")
	}
	cc := strings.Fields(goEnv(t, goBin, "CC"))
	if len(cc) == 0 {
		t.Skip("no C compiler configured")
	}
	if _, err := exec.LookPath(cc[0]); err != nil {
		t.Skipf("C compiler %q not found", cc[0])
	}

	out := filepath.Join(t.TempDir(), "libgreeting"+ext())
	cmd := exec.Command(goBin, "build", "-buildmode=c-shared", "-o", out, Package)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	if msg, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build %s: %v\n%s", Package, err, msg)
	}
	return out
}

func goEnv(t testing.TB, goBin, key string) string {
	t.Helper()
	out, err := exec.Command(goBin, "env", key).Output()
	if err != nil {
		t.Fatalf("go env %s: %v", key, err)
	}
	return strings.TrimSpace(string(out))
}

func ext() string {
	if runtime.GOOS == "darwin" {
		return ".dylib"
	}
	return ".so"
}
