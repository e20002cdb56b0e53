// Package errors provides structured error types for the ffi-greeter library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the symbol involved, a detail message and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCall, errors.KindInvocation).
//		Symbol("hello_world_ffi").
//		Cause(trap).
//		Detail("guest trapped").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NullResult("hello_world_ffi")
//	err := errors.Invocation("add_ffi", cause)
//
// Load and bind failures are fatal: they indicate a missing or mismatched
// library and are never retried. IsFatal reports them.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
