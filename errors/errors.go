package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad    Phase = "load"    // locating and opening a library
	PhaseBind    Phase = "bind"    // resolving exported symbols
	PhaseCall    Phase = "call"    // invoking a symbol
	PhaseDecode  Phase = "decode"  // library memory to Go
	PhaseRelease Phase = "release" // handing a buffer back
	PhaseConfig  Phase = "config"  // configuration
	PhaseEncode  Phase = "encode"  // building a guest module
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindMissingSymbol     Kind = "missing_symbol"
	KindSignatureMismatch Kind = "signature_mismatch"
	KindNullPointer       Kind = "null_pointer"
	KindInvocation        Kind = "invocation"
	KindInvalidUTF8       Kind = "invalid_utf8"
	KindUnterminated      Kind = "unterminated"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindReleased          Kind = "released"
	KindUnsupported       Kind = "unsupported"
	KindInvalidInput      Kind = "invalid_input"
	KindInstantiation     Kind = "instantiation"
	KindNotInitialized    Kind = "not_initialized"
	KindInvalidData       Kind = "invalid_data"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Symbol string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Symbol != "" {
		b.WriteString(" at ")
		b.WriteString(e.Symbol)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Symbol sets the exported symbol involved
func (b *Builder) Symbol(name string) *Builder {
	b.err.Symbol = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsFatal reports whether err is an initialization failure: a library that
// could not be found, loaded or bound. These indicate a deployment defect
// and must not be retried.
func IsFatal(err error) bool {
	var search *SearchError
	if errors.As(err, &search) {
		return true
	}
	var missing *MissingSymbolsError
	if errors.As(err, &missing) {
		return true
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Phase == PhaseLoad || e.Phase == PhaseBind
	}
	return false
}

// Convenience constructors for common error patterns

// NullResult creates the error for an allocating call that returned null
func NullResult(symbol string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindNullPointer,
		Symbol: symbol,
		Detail: "received null pointer",
	}
}

// NullPointer creates the error for an operation attempted on a null pointer
func NullPointer(phase Phase, symbol string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNullPointer,
		Symbol: symbol,
		Detail: "null pointer",
	}
}

// Invocation wraps a lower-level failure of a foreign call
func Invocation(symbol string, cause error) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindInvocation,
		Symbol: symbol,
		Detail: "error calling " + symbol,
		Cause:  cause,
	}
}

// Unterminated creates the error for a string with no NUL within limit bytes
func Unterminated(symbol string, limit int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindUnterminated,
		Symbol: symbol,
		Detail: fmt.Sprintf("no NUL terminator within %d bytes", limit),
		Value:  limit,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(symbol string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindInvalidUTF8,
		Symbol: symbol,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// OutOfBounds creates an out of bounds error for an address in library memory
func OutOfBounds(phase Phase, symbol string, addr uint64, size uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Symbol: symbol,
		Detail: fmt.Sprintf("address %#x out of bounds (memory size %d)", addr, size),
		Value:  addr,
	}
}

// Released creates the error for use of a buffer after it was released
func Released(phase Phase, symbol string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindReleased,
		Symbol: symbol,
		Detail: "buffer already released",
	}
}

// SignatureMismatch creates a bind error for a symbol with the wrong signature
func SignatureMismatch(symbol, want, got string) *Error {
	return &Error{
		Phase:  PhaseBind,
		Kind:   KindSignatureMismatch,
		Symbol: symbol,
		Detail: fmt.Sprintf("want %s, got %s", want, got),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotInitialized creates a not-initialized error for a closed or missing library
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Load creates a library loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingSymbolsError is returned when a library lacks one or more of the
// exported symbols the binding requires
type MissingSymbolsError struct {
	Library string
	Symbols []string
}

// NewMissingSymbolsError creates an error for the given library and symbol names
func NewMissingSymbolsError(library string, symbols []string) *MissingSymbolsError {
	return &MissingSymbolsError{
		Library: library,
		Symbols: append([]string(nil), symbols...),
	}
}

func (e *MissingSymbolsError) Error() string {
	if len(e.Symbols) == 0 {
		return "[bind] missing_symbol: no symbols specified"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[bind] missing_symbol: %s lacks %d symbol(s):", e.Library, len(e.Symbols))
	for _, s := range e.Symbols {
		b.WriteString("\n    - ")
		b.WriteString(s)
	}
	return b.String()
}

// Is reports whether target matches this error type
func (e *MissingSymbolsError) Is(target error) bool {
	_, ok := target.(*MissingSymbolsError)
	return ok
}

// Attempt records one library location that was tried and why it was rejected.
type Attempt struct {
	Err    error
	Source string // override, search, bundled
	Path   string
}

// SearchError is returned when no candidate location yields a library.
type SearchError struct {
	Attempts []Attempt
}

// NewSearchError creates a search failure from the attempts made in order
func NewSearchError(attempts []Attempt) *SearchError {
	return &SearchError{Attempts: append([]Attempt(nil), attempts...)}
}

func (e *SearchError) Error() string {
	if len(e.Attempts) == 0 {
		return "[load] not_found: no library locations configured"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[load] not_found: native library not found after %d attempt(s):", len(e.Attempts))
	for _, a := range e.Attempts {
		b.WriteString("\n  ")
		b.WriteString(a.Source)
		if a.Path != "" {
			b.WriteString(" ")
			b.WriteString(a.Path)
		}
		if a.Err != nil {
			b.WriteString(": ")
			b.WriteString(a.Err.Error())
		}
	}
	return b.String()
}

// Unwrap returns the per-attempt errors
func (e *SearchError) Unwrap() []error {
	var errs []error
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// Is reports whether target matches this error type
func (e *SearchError) Is(target error) bool {
	_, ok := target.(*SearchError)
	return ok
}
