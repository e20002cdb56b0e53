// Package config resolves how the greeting library is located and called.
//
// Settings are layered: Default, then an optional YAML file, then the
// GREETER_* environment variables.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	greeter "github.com/wippyai/ffi-greeter"
	"github.com/wippyai/ffi-greeter/errors"
)

// Environment variables read by ApplyEnv and FromEnv.
const (
	EnvLibrary        = "GREETER_LIBRARY"
	EnvSearchPath     = "GREETER_SEARCH_PATH"
	EnvDisableBundled = "GREETER_DISABLE_BUNDLED"
	EnvMaxStringLen   = "GREETER_MAX_STRING_LEN"
	EnvLogLevel       = "GREETER_LOG_LEVEL"
	EnvConfig         = "GREETER_CONFIG"
)

// Config controls library resolution and string decoding.
type Config struct {
	// LibraryPath overrides the search. When set, the file must exist.
	LibraryPath string `yaml:"library_path,omitempty" json:"library_path,omitempty" jsonschema:"description=Explicit library file. Files ending in .wasm load through wazero and others through dlopen"`

	// SearchPaths are tried in order after LibraryPath. Missing files are skipped.
	SearchPaths []string `yaml:"search_paths,omitempty" json:"search_paths,omitempty" validate:"dive,required" jsonschema:"description=Conventional build output locations tried in order"`

	// DisableBundled turns off the built-in WebAssembly fallback.
	DisableBundled bool `yaml:"disable_bundled,omitempty" json:"disable_bundled,omitempty" jsonschema:"description=Fail instead of using the bundled library"`

	// MaxStringLen bounds the terminator scan of returned strings.
	MaxStringLen int `yaml:"max_string_len" json:"max_string_len" validate:"min=1,max=1048576" jsonschema:"minimum=1,maximum=1048576,default=4096"`

	// MemoryLimitPages caps WebAssembly library memory in 64KiB pages. 0 keeps the module's maximum.
	MemoryLimitPages uint32 `yaml:"memory_limit_pages,omitempty" json:"memory_limit_pages,omitempty" validate:"max=65535" jsonschema:"maximum=65535"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=warn"`
}

var validate = validator.New()

// LibraryExt is the platform's shared library extension.
func LibraryExt() string {
	switch runtime.GOOS {
	case "darwin":
		return ".dylib"
	case "windows":
		return ".dll"
	default:
		return ".so"
	}
}

// DefaultSearchPaths lists the conventional build outputs, relative to the
// working directory.
func DefaultSearchPaths() []string {
	ext := LibraryExt()
	return []string{
		filepath.Join("build", "libgreeting"+ext),
		filepath.Join("target", "release", "libnative"+ext),
		filepath.Join("build", "greeting.wasm"),
	}
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		SearchPaths:  DefaultSearchPaths(),
		MaxStringLen: greeter.DefaultMaxStringLen,
		LogLevel:     "warn",
	}
}

// Load overlays the YAML file at path onto the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.New(errors.PhaseConfig, errors.KindNotFound).
			Cause(err).
			Detail("read config %s", path).
			Build()
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.New(errors.PhaseConfig, errors.KindInvalidData).
			Cause(err).
			Detail("parse config %s", path).
			Build()
	}
	return cfg, nil
}

// ApplyEnv overlays GREETER_* variables that are set.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLibrary); ok {
		c.LibraryPath = v
	}
	if v, ok := lookup(EnvSearchPath); ok {
		c.SearchPaths = splitList(v)
	}
	if v, ok := lookup(EnvDisableBundled); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError(EnvDisableBundled, v, err)
		}
		c.DisableBundled = b
	}
	if v, ok := lookup(EnvMaxStringLen); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError(EnvMaxStringLen, v, err)
		}
		c.MaxStringLen = n
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.LogLevel = strings.ToLower(v)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range filepath.SplitList(v) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envError(name, value string, cause error) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Value(value).
		Cause(cause).
		Detail("%s=%q", name, value).
		Build()
}

// FromEnv builds the process configuration: defaults, then the file named
// by GREETER_CONFIG if set, then the environment.
func FromEnv() (Config, error) {
	cfg := Default()
	if path := os.Getenv(EnvConfig); path != "" {
		loaded, err := Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "config validation failed")
	}
	return nil
}

// Schema returns the JSON schema of Config.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
		FieldNameTag:   "yaml",
	}
	schema := reflector.Reflect(&Config{})

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, "marshal config schema")
	}
	return out, nil
}

// NewLogger builds a console logger at the given level.
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log level")
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.DisableStacktrace = true
	return zcfg.Build()
}
