package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseTypecheck Phase = "typecheck" // codec vs type descriptor
	PhaseLower     Phase = "lower"     // Go to canonical ABI
	PhaseLift      Phase = "lift"      // canonical ABI to Go
	PhaseCall      Phase = "call"      // cross-boundary invocation
	PhaseConfig    Phase = "config"    // configuration and input loading
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch        Kind = "type_mismatch"
	KindOutOfBounds         Kind = "out_of_bounds"
	KindMisaligned          Kind = "misaligned"
	KindInvalidData         Kind = "invalid_data"
	KindInvalidUTF8         Kind = "invalid_utf8"
	KindInvalidUTF16        Kind = "invalid_utf16"
	KindInvalidChar         Kind = "invalid_char"
	KindInvalidDiscriminant Kind = "invalid_discriminant"
	KindOverflow            Kind = "overflow"
	KindAllocation          Kind = "allocation"
	KindUnsupported         Kind = "unsupported"
	KindArity               Kind = "arity"
	KindTrap                Kind = "trap"
	KindNotFound            Kind = "not_found"
)

// Error is the structured error type used by the marshaling layer
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	GoType  string
	WitType string
	Detail  string
	Path    []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	typed := e.GoType != "" || e.WitType != ""
	if typed {
		b.WriteString(": ")
		switch {
		case e.GoType != "" && e.WitType != "":
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", WIT type ")
			b.WriteString(e.WitType)
		case e.GoType != "":
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		default:
			b.WriteString("WIT type ")
			b.WriteString(e.WitType)
		}
	}

	if e.Detail != "" {
		if typed {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
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

// Has reports whether err or anything it wraps is an *Error of the given
// phase and kind.
func Has(err error, phase Phase, kind Kind) bool {
	return stderrors.Is(err, &Error{Phase: phase, Kind: kind})
}

// At returns a copy of e with name prepended to its path. Composite codecs
// use it to report which field or case a nested failure came from.
func At(err error, name string) error {
	e, ok := err.(*Error)
	if !ok {
		return err
	}
	cp := *e
	cp.Path = append([]string{name}, e.Path...)
	return &cp
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

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// WitType sets the WIT type name
func (b *Builder) WitType(t string) *Builder {
	b.err.WitType = t
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

// TypeMismatch creates a type mismatch error
func TypeMismatch(goType, witType string) *Error {
	return &Error{
		Phase:   PhaseTypecheck,
		Kind:    KindTypeMismatch,
		GoType:  goType,
		WitType: witType,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// InvalidUTF16 creates an invalid UTF-16 error for an unpaired surrogate
func InvalidUTF16(phase Phase, unit uint16, index int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF16,
		Detail: fmt.Sprintf("unpaired surrogate 0x%04x at code unit %d", unit, index),
		Value:  unit,
	}
}

// InvalidChar creates an error for a value that is not a Unicode scalar
func InvalidChar(phase Phase, v uint32) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindInvalidChar,
		WitType: "char",
		Detail:  fmt.Sprintf("0x%x is not a unicode scalar value", v),
		Value:   v,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
		Cause:  cause,
	}
}

// InvalidDiscriminant creates an invalid discriminant error for variants/enums
func InvalidDiscriminant(phase Phase, disc uint32, cases int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidDiscriminant,
		Detail: fmt.Sprintf("discriminant %d out of range (%d cases)", disc, cases),
		Value:  disc,
	}
}

// Misaligned creates an alignment error for a pointer read from a guest
func Misaligned(phase Phase, ptr, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMisaligned,
		Detail: fmt.Sprintf("pointer %d is not aligned to %d", ptr, align),
		Value:  ptr,
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

// OutOfBounds creates an out of bounds error for a byte range
func OutOfBounds(phase Phase, ptr, length, size uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("range [%d, %d+%d) exceeds memory size %d", ptr, ptr, length, size),
		Value:  ptr,
	}
}

// IndexOutOfBounds creates an out of bounds error for an element index
func IndexOutOfBounds(phase Phase, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, value any, targetType string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindOverflow,
		WitType: targetType,
		Detail:  fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:   value,
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

// Arity creates an error for a flat buffer of the wrong length
func Arity(phase Phase, got, want int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindArity,
		Detail: fmt.Sprintf("got %d flat values, want %d", got, want),
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

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
