package model

import (
	"encoding/json"
	"time"
)

// Category groups events by the part of the system that emitted them.
type Category string

const (
	CategoryWorkflow    Category = "workflow"
	CategoryAgent       Category = "agent"
	CategorySystem      Category = "system"
	CategoryIntegration Category = "integration"
)

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// IsValid checks whether the category is a known value.
func (c Category) IsValid() bool {
	switch c {
	case CategoryWorkflow, CategoryAgent, CategorySystem, CategoryIntegration:
		return true
	}
	return false
}

// Severity is the log level attached to an event.
type Severity string

const (
	SeverityDebug    Severity = "debug"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// IsValid checks whether the severity is a known value.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityDebug, SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}

// Event is an immutable record of a lifecycle transition or domain occurrence.
// WorkflowID and CorrelationID are empty when the event is not part of a
// grouped run.
type Event struct {
	ID            string          `json:"id"`
	EventType     string          `json:"event_type"`
	Category      Category        `json:"event_category"`
	Severity      Severity        `json:"severity"`
	AgentName     string          `json:"agent_name,omitempty"`
	WorkflowID    string          `json:"workflow_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Message       string          `json:"message,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	c := *e
	if e.Payload != nil {
		c.Payload = append(json.RawMessage(nil), e.Payload...)
	}
	if e.Metadata != nil {
		c.Metadata = append(json.RawMessage(nil), e.Metadata...)
	}
	return &c
}
