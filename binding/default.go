package binding

import (
	"context"
	"sync"

	"github.com/wippyai/ffi-greeter/config"
)

var defaultBinding = sync.OnceValues(openDefault)

func openDefault() (*Binding, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	return Open(context.Background(), cfg)
}

// Default returns the process-wide binding, opening it on first use from
// config.FromEnv. The binding and any error are kept for the life of the
// process; a failed open is not retried.
func Default() (*Binding, error) {
	return defaultBinding()
}

// Add calls add_ffi through the default binding.
func Add(ctx context.Context, a, b int64) (int64, error) {
	bd, err := Default()
	if err != nil {
		return 0, err
	}
	return bd.Add(ctx, a, b)
}

// HelloWorld calls hello_world_ffi through the default binding.
func HelloWorld(ctx context.Context) (string, error) {
	bd, err := Default()
	if err != nil {
		return "", err
	}
	return bd.HelloWorld(ctx)
}
