package diag

import (
	"errors"
	"fmt"

	"quill/internal/source"
)

// CompileError is the error value the resolver and the compilers propagate.
// The first error wins; there is no partial-collection mode inside one
// function body.
type CompileError struct {
	Code Code
	Msg  string
	Span source.Span
}

func (e *CompileError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("[%s]: %s", e.Code.ID(), e.Msg)
}

// Errorf builds a CompileError with a formatted message.
func Errorf(code Code, span source.Span, format string, args ...any) *CompileError {
	return &CompileError{Code: code, Msg: fmt.Sprintf(format, args...), Span: span}
}

// CodeOf extracts the diagnostic code from err, or UnknownCode.
func CodeOf(err error) Code {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return UnknownCode
}

// Diagnostic converts the error into a Bag-ready record.
func (e *CompileError) Diagnostic() Diagnostic {
	return Diagnostic{
		Severity: SevError,
		Code:     e.Code,
		Message:  e.Msg,
		Primary:  e.Span,
	}
}
