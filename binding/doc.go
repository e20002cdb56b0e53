// Package binding is the caller side of the greeting library.
//
// # Quick Start
//
//	ctx := context.Background()
//	cfg, err := config.FromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	b, err := binding.Open(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err) // library missing or incomplete
//	}
//	defer b.Close(ctx)
//
//	sum, _ := b.Add(ctx, 42, 58)    // 100
//	msg, _ := b.HelloWorld(ctx)     // "Hello, world!"
//
// Package-level Add and HelloWorld use a process-wide binding opened on
// first use from the environment. A failed first open is cached and
// returned to every later caller.
//
// # Resolution
//
// Open tries, in order:
//
//	override  config.LibraryPath; must exist when set
//	search    config.SearchPaths; missing files are skipped
//	bundled   the built-in WebAssembly library, unless disabled
//
// The first file that exists is loaded; if it fails to load or lacks a
// symbol, Open fails instead of moving on. Files ending in .wasm run in
// wazero, anything else is opened with dlopen.
//
// # Ownership
//
// hello_world_ffi hands the caller a buffer it must release exactly once.
// OwnedString tracks that obligation: Acquire takes ownership, Release
// gives the buffer back and is idempotent, and reads after Release fail
// without touching library memory. HelloWorld defers Release, so the buffer
// is returned on success, on decode failure and on panic.
package binding
