// Package llm is the narrow interface the agents use to call a language
// model. Adapters tag every failure with an ErrorKind so callers decide
// retryability with a switch rather than by matching message text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Request is a single-turn generation request.
type Request struct {
	// Task names what the prompt asks for ("script", "render_plan"); the
	// offline provider keys its canned output on it.
	Task        string
	Model       string
	System      string
	Prompt      string
	MaxTokens   int64
	Temperature *float64
}

// WithoutTemperature returns a copy of r with the temperature unset.
func (r Request) WithoutTemperature() Request {
	r.Temperature = nil
	return r
}

// Response is the text a model returned.
type Response struct {
	Model string
	Text  string
}

// Provider invokes a model.
type Provider interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// ErrorKind tags a provider failure.
type ErrorKind string

const (
	KindTimeout              ErrorKind = "timeout"
	KindInvalidCredentials   ErrorKind = "invalid_credentials"
	KindMalformedOutput      ErrorKind = "malformed_output"
	KindUnsupportedParameter ErrorKind = "unsupported_parameter"
	KindProvider             ErrorKind = "provider"
)

// Retryable reports whether a second model could plausibly succeed where
// the first failed.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindTimeout, KindUnsupportedParameter, KindMalformedOutput:
		return true
	}
	return false
}

// Error is a tagged provider failure.
type Error struct {
	Kind  ErrorKind
	Model string
	Err   error
}

func (e *Error) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("%s (%s): %v", e.Model, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError tags err with kind.
func NewError(kind ErrorKind, model string, err error) *Error {
	return &Error{Kind: kind, Model: model, Err: err}
}

// KindOf returns the tag carried by err. Untagged deadline errors count as
// timeouts; anything else untagged is a provider error.
func KindOf(err error) ErrorKind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindProvider
}

// ClassifyHTTP maps an HTTP status and error text from a provider API to a
// kind. Adapters call it with whatever their SDK exposes.
func ClassifyHTTP(status int, message string) ErrorKind {
	lower := strings.ToLower(message)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindInvalidCredentials
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status == http.StatusBadRequest && (strings.Contains(lower, "unsupported") || strings.Contains(lower, "not supported")):
		return KindUnsupportedParameter
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out"):
		return KindTimeout
	}
	return KindProvider
}
