package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Add appends a field error.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// ValidateEvent checks an Event before it is appended. Category and severity
// may be empty (they are inferred later) but must be known values when set.
func ValidateEvent(e *Event) error {
	var ve ValidationError

	if strings.TrimSpace(e.EventType) == "" {
		ve.Add("event_type", "is required")
	} else if len(e.EventType) > 200 {
		ve.Add("event_type", "must be 200 characters or fewer")
	}

	if e.Category != "" && !e.Category.IsValid() {
		ve.Add("event_category", fmt.Sprintf("invalid value %q", e.Category))
	}
	if e.Severity != "" && !e.Severity.IsValid() {
		ve.Add("severity", fmt.Sprintf("invalid value %q", e.Severity))
	}

	if len(e.Payload) > 0 && !json.Valid(e.Payload) {
		ve.Add("payload", "contains invalid JSON")
	}
	if len(e.Metadata) > 0 && !json.Valid(e.Metadata) {
		ve.Add("metadata", "contains invalid JSON")
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateScript checks a generated Script before it is persisted.
func ValidateScript(s *Script) error {
	var ve ValidationError
	if strings.TrimSpace(s.Title) == "" {
		ve.Add("title", "is required")
	}
	if strings.TrimSpace(s.Hook) == "" {
		ve.Add("hook", "is required")
	}
	if strings.TrimSpace(s.Body) == "" {
		ve.Add("body", "is required")
	}
	if ve.HasErrors() {
		return &ve
	}
	return nil
}
