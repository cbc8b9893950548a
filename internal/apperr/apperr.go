// Package apperr defines the error taxonomy shared by the agents, the event
// log and the transport layers. Every error that leaves an agent boundary is
// normalized to *Error so callers can switch on Kind.
package apperr

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
)

// Kind classifies an error.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindPersistence     Kind = "persistence"
	KindModelInvocation Kind = "model_invocation"
	KindFallbackFailed  Kind = "fallback_failed"
	KindUploadExhausted Kind = "upload_exhausted"
	KindUnknown         Kind = "unknown"
)

// Error is the normalized error shape.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Stack   string
	Cause   error
}

// Error returns a formatted error string.
func (e *Error) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind && (t.Message == "" || t.Message == e.Message)
	}
	return false
}

// WithDetails returns a copy of the error with additional details merged in.
func (e *Error) WithDetails(details map[string]any) *Error {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	for k, v := range details {
		cp.Details[k] = v
	}
	return &cp
}

// Kinded is implemented by error types outside this package that belong to
// the taxonomy.
type Kinded interface {
	error
	Kind() Kind
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Validation reports malformed input caught before any side effect.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// NotFound reports that a referenced entity is absent.
func NotFound(entity, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s %q not found", entity, id),
		Details: map[string]any{"entity": entity, "id": id},
	}
}

// Persistence reports a failed write to or read from the data store.
func Persistence(op string, cause error) *Error {
	return &Error{
		Kind:    KindPersistence,
		Message: fmt.Sprintf("%s failed", op),
		Details: map[string]any{"operation": op},
		Cause:   cause,
	}
}

// ModelInvocation reports a generation call failure that was not retried.
func ModelInvocation(modelName string, cause error) *Error {
	return &Error{
		Kind:    KindModelInvocation,
		Message: fmt.Sprintf("model %s invocation failed", modelName),
		Details: map[string]any{"model": modelName},
		Cause:   cause,
	}
}

// KindOf returns the taxonomy kind of err, or KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	var k Kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return KindValidation
	}
	return KindUnknown
}

// Is reports whether err belongs to kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Normalize converts any error into *Error. Errors already normalized are
// returned unchanged; everything else keeps its message, gains a stack trace
// and stays reachable through Unwrap.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) && ae == err {
		if ae.Stack == "" {
			cp := *ae
			cp.Stack = string(debug.Stack())
			return &cp
		}
		return ae
	}
	return &Error{
		Kind:    KindOf(err),
		Message: err.Error(),
		Stack:   string(debug.Stack()),
		Cause:   err,
	}
}
