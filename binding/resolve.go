package binding

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	greeter "github.com/wippyai/ffi-greeter"
	"github.com/wippyai/ffi-greeter/config"
	"github.com/wippyai/ffi-greeter/engine"
	"github.com/wippyai/ffi-greeter/errors"
	"github.com/wippyai/ffi-greeter/guest"
)

// Origin is the resolution step that produced a library.
type Origin string

const (
	OriginOverride Origin = "override"
	OriginSearch   Origin = "search"
	OriginBundled  Origin = "bundled"
)

// Backend is the mechanism used to load a library.
type Backend string

const (
	BackendWazero Backend = "wazero"
	BackendNative Backend = "native"
)

// Source records where a library came from.
type Source struct {
	Origin  Origin
	Backend Backend
	Path    string // empty for the bundled library
}

func (s Source) String() string {
	if s.Path == "" {
		return string(s.Origin) + " (" + string(s.Backend) + ")"
	}
	return string(s.Origin) + " " + s.Path + " (" + string(s.Backend) + ")"
}

// Open resolves and loads the library described by cfg.
// Apart from config validation, every error it returns satisfies errors.IsFatal.
func Open(ctx context.Context, cfg config.Config) (*Binding, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := Logger()

	if cfg.LibraryPath != "" {
		if _, err := os.Stat(cfg.LibraryPath); err != nil {
			return nil, errors.New(errors.PhaseLoad, errors.KindNotFound).
				Value(cfg.LibraryPath).
				Cause(err).
				Detail("library override %s", cfg.LibraryPath).
				Build()
		}
		return openFile(ctx, OriginOverride, cfg.LibraryPath, cfg)
	}

	var attempts []errors.Attempt
	for _, path := range cfg.SearchPaths {
		info, err := os.Stat(path)
		if err != nil {
			if !stderrors.Is(err, fs.ErrNotExist) {
				log.Warn("skipping library candidate", zap.String("path", path), zap.Error(err))
			}
			attempts = append(attempts, errors.Attempt{
				Source: string(OriginSearch),
				Path:   path,
				Err:    errors.New(errors.PhaseLoad, errors.KindNotFound).Cause(err).Detail("stat").Build(),
			})
			continue
		}
		if info.IsDir() {
			attempts = append(attempts, errors.Attempt{
				Source: string(OriginSearch),
				Path:   path,
				Err:    errors.InvalidInput(errors.PhaseLoad, "is a directory"),
			})
			continue
		}
		return openFile(ctx, OriginSearch, path, cfg)
	}

	if cfg.DisableBundled {
		attempts = append(attempts, errors.Attempt{
			Source: string(OriginBundled),
			Err:    errors.Unsupported(errors.PhaseLoad, "bundled library disabled"),
		})
		return nil, errors.NewSearchError(attempts)
	}

	log.Debug("no library on disk, using bundled", zap.Int("attempts", len(attempts)))
	return openBundled(ctx, cfg)
}

func openFile(ctx context.Context, origin Origin, path string, cfg config.Config) (*Binding, error) {
	log := Logger().With(zap.String("origin", string(origin)), zap.String("path", path))

	if strings.EqualFold(filepath.Ext(path), ".wasm") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Load("read "+path, err)
		}
		inst, err := engine.LoadWazero(ctx, path, data, &engine.Config{MemoryLimitPages: cfg.MemoryLimitPages})
		if err != nil {
			return nil, err
		}
		log.Info("loaded library", zap.String("backend", string(BackendWazero)))
		return New(inst, Source{Origin: origin, Backend: BackendWazero, Path: path}, cfg.MaxStringLen), nil
	}

	lib, err := engine.LoadNative(path)
	if err != nil {
		return nil, err
	}
	log.Info("loaded library", zap.String("backend", string(BackendNative)))
	return New(lib, Source{Origin: origin, Backend: BackendNative, Path: path}, cfg.MaxStringLen), nil
}

func openBundled(ctx context.Context, cfg config.Config) (*Binding, error) {
	var (
		bin []byte
		err error
	)
	if cfg.MemoryLimitPages > 0 {
		bin, err = guest.Build(guest.Config{Greeting: greeter.Greeting, MaxPages: cfg.MemoryLimitPages})
	} else {
		bin, err = guest.Module()
	}
	if err != nil {
		return nil, errors.Load("build bundled library", err)
	}

	inst, err := engine.LoadWazero(ctx, "bundled", bin, &engine.Config{MemoryLimitPages: cfg.MemoryLimitPages})
	if err != nil {
		return nil, err
	}
	Logger().Info("loaded library", zap.String("origin", string(OriginBundled)), zap.String("backend", string(BackendWazero)))
	return New(inst, Source{Origin: OriginBundled, Backend: BackendWazero}, cfg.MaxStringLen), nil
}
