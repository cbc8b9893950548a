// Package events fans appended log events out to NATS so external consumers
// and `ace watch` can follow the log live. Delivery is best effort; the event
// log in the store remains the source of truth.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
)

// SubjectPrefix is prepended to every event type to form its NATS subject.
const SubjectPrefix = "ace.events"

// SubjectAll matches every event subject.
const SubjectAll = SubjectPrefix + ".>"

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subject returns the NATS subject an event of the given type is published
// on. Characters NATS reserves for wildcards and separators are replaced so
// a hostile event type cannot widen a subscription, and empty tokens are
// dropped so the subject stays valid.
func Subject(eventType string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, eventType)
	tokens := strings.FieldsFunc(cleaned, func(r rune) bool { return r == '.' })
	if len(tokens) == 0 {
		return SubjectPrefix + ".unknown"
	}
	return SubjectPrefix + "." + strings.Join(tokens, ".")
}

// PublishEvent publishes e on its type's subject.
func PublishEvent(ctx context.Context, p Publisher, e *model.Event) error {
	return p.Publish(ctx, Subject(e.EventType), e)
}

// Decode parses a payload received from a subscription.
func Decode(data []byte) (*model.Event, error) {
	var e model.Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decoding event: %w", err)
	}
	return &e, nil
}
