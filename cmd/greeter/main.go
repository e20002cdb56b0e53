package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	greeter "github.com/wippyai/ffi-greeter"
	"github.com/wippyai/ffi-greeter/binding"
	"github.com/wippyai/ffi-greeter/config"
	"github.com/wippyai/ffi-greeter/engine"
)

type options struct {
	libPath     string
	configPath  string
	logLevel    string
	a, b        int64
	repeat      int
	list        bool
	schema      bool
	interactive bool
}

func main() {
	var opts options
	flag.StringVar(&opts.libPath, "lib", "", "Library to load (.so, .dylib or .wasm); overrides the search")
	flag.StringVar(&opts.configPath, "config", "", "YAML config file (default $"+config.EnvConfig+")")
	flag.StringVar(&opts.logLevel, "log", "", "Log level: debug, info, warn, error")
	flag.Int64Var(&opts.a, "a", 42, "First add_ffi operand")
	flag.Int64Var(&opts.b, "b", 58, "Second add_ffi operand")
	flag.IntVar(&opts.repeat, "n", 0, "Call hello_world_ffi N times and report live buffers")
	flag.BoolVar(&opts.list, "list", false, "List library symbols and exit")
	flag.BoolVar(&opts.schema, "schema", false, "Print the config JSON schema and exit")
	flag.BoolVar(&opts.interactive, "i", false, "Interactive mode with TUI")
	flag.Parse()

	if opts.interactive && !(term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))) {
		fmt.Fprintln(os.Stderr, "Error: -i needs an interactive terminal")
		os.Exit(1)
	}

	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(opts options) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.Load(opts.configPath)
		if err != nil {
			return cfg, err
		}
		if err := cfg.ApplyEnv(); err != nil {
			return cfg, err
		}
	} else {
		cfg, err = config.FromEnv()
		if err != nil {
			return cfg, err
		}
	}

	if opts.libPath != "" {
		cfg.LibraryPath = opts.libPath
	}
	if opts.logLevel != "" {
		cfg.LogLevel = strings.ToLower(opts.logLevel)
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, opts options, out io.Writer) error {
	if opts.schema {
		schema, err := config.Schema()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(schema))
		return err
	}

	if opts.list {
		printSignatures(out)
		return nil
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()
	engine.SetLogger(log.Named("engine"))
	binding.SetLogger(log.Named("binding"))

	b, err := binding.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("load library: %w", err)
	}
	defer b.Close(ctx)

	if opts.interactive {
		return runInteractive(b)
	}

	fmt.Fprintf(out, "Library: %s\n", b.Source())

	sum, err := b.Add(ctx, opts.a, opts.b)
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	fmt.Fprintf(out, "Add: %d + %d = %d\n", opts.a, opts.b, sum)

	msg, err := b.HelloWorld(ctx)
	if err != nil {
		return fmt.Errorf("hello world: %w", err)
	}
	fmt.Fprintf(out, "Received: %q\n", msg)

	if opts.repeat > 0 {
		for i := 0; i < opts.repeat; i++ {
			if _, err := b.HelloWorld(ctx); err != nil {
				return fmt.Errorf("hello world call %d: %w", i+1, err)
			}
		}
		live, err := b.LiveStrings(ctx)
		if err != nil {
			fmt.Fprintf(out, "Repeated %d calls (live buffers not reported by this library)\n", opts.repeat)
			return nil
		}
		fmt.Fprintf(out, "Repeated %d calls, live buffers: %d\n", opts.repeat, live)
	}
	return nil
}

func printSignatures(out io.Writer) {
	fmt.Fprintln(out, "Exported functions:")
	for _, sig := range greeter.Signatures() {
		fmt.Fprintf(out, "  %s\n", formatSignature(sig))
	}
}

func formatSignature(sig greeter.Signature) string {
	var params []string
	for _, p := range sig.Params {
		params = append(params, p.Name+": "+witTypeStr(p.Type))
	}
	result := ""
	if sig.Result != nil {
		result = " -> " + witTypeStr(sig.Result)
	}
	return sig.Name + "(" + strings.Join(params, ", ") + ")" + result
}
