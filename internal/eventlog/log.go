// Package eventlog is the append-only log of lifecycle and domain events.
// Appends persist through the store and then fan out to the event bus;
// queries read straight from the store.
package eventlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/apperr"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/events"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/store"
)

// scanPageSize is the page size Scan uses when walking the log.
const scanPageSize = 500

// Page is one page of query results. Total counts every event matching the
// filter before pagination.
type Page struct {
	Events []*model.Event `json:"events"`
	Total  int            `json:"total"`
}

// Log appends and queries events.
type Log struct {
	store     store.Store
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures a Log.
type Option func(*Log)

// WithPublisher fans appended events out through p.
func WithPublisher(p events.Publisher) Option {
	return func(l *Log) { l.publisher = p }
}

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithIDFunc overrides event id generation.
func WithIDFunc(fn func() string) Option {
	return func(l *Log) { l.newID = fn }
}

// New returns a Log over st.
func New(st store.Store, opts ...Option) *Log {
	l := &Log{
		store:     st,
		publisher: &events.NoopPublisher{},
		logger:    slog.Default(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Now returns the log's current time in UTC.
func (l *Log) Now() time.Time {
	return l.now().UTC()
}

// Append validates e, fills in inferred fields, persists it and publishes it.
// The id and created_at always come from the log; values set by the caller
// are discarded. The returned event is the stored record; e itself is not
// modified.
func (l *Log) Append(ctx context.Context, e *model.Event) (*model.Event, error) {
	if e == nil {
		return nil, apperr.Validation("event is required")
	}
	stored := e.Clone()
	stored.EventType = strings.TrimSpace(stored.EventType)
	if err := model.ValidateEvent(stored); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}
	applyDefaults(stored)
	stored.ID = l.newID()
	stored.CreatedAt = l.now().UTC()

	if err := l.store.CreateEvent(ctx, stored); err != nil {
		return nil, apperr.Persistence("append event", err)
	}

	if err := events.PublishEvent(ctx, l.publisher, stored); err != nil {
		l.logger.Warn("failed to publish event", "event_type", stored.EventType, "id", stored.ID, "error", err)
	}
	return stored, nil
}

// Query returns one page of events matching filter, newest first unless the
// filter asks for ascending order.
func (l *Log) Query(ctx context.Context, filter model.EventFilter) (*Page, error) {
	if filter.Severity != "" && !filter.Severity.IsValid() {
		return nil, apperr.Validation(fmt.Sprintf("invalid severity %q", filter.Severity))
	}
	if filter.Category != "" && !filter.Category.IsValid() {
		return nil, apperr.Validation(fmt.Sprintf("invalid event_category %q", filter.Category))
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, apperr.Validation("limit and offset must be non-negative")
	}
	evts, total, err := l.store.ListEvents(ctx, filter)
	if err != nil {
		return nil, apperr.Persistence("query events", err)
	}
	if evts == nil {
		evts = []*model.Event{}
	}
	return &Page{Events: evts, Total: total}, nil
}

// Get returns a single event.
func (l *Log) Get(ctx context.Context, id string) (*model.Event, error) {
	e, err := l.store.GetEvent(ctx, id)
	if err != nil {
		return nil, translate(err, "get event", id)
	}
	return e, nil
}

// Update rewrites an existing event. It is an administrative operation; the
// agents never call it.
func (l *Log) Update(ctx context.Context, e *model.Event) error {
	if err := model.ValidateEvent(e); err != nil {
		return apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}
	applyDefaults(e)
	if err := l.store.UpdateEvent(ctx, e); err != nil {
		return translate(err, "update event", e.ID)
	}
	return nil
}

// Delete removes an event. Administrative, like Update.
func (l *Log) Delete(ctx context.Context, id string) error {
	if err := l.store.DeleteEvent(ctx, id); err != nil {
		return translate(err, "delete event", id)
	}
	return nil
}

// ListByCorrelation returns events sharing a correlation id, oldest first.
func (l *Log) ListByCorrelation(ctx context.Context, correlationID, excludeID string, limit int) ([]*model.Event, error) {
	if correlationID == "" {
		return []*model.Event{}, nil
	}
	page, err := l.Query(ctx, model.EventFilter{
		CorrelationID: correlationID,
		ExcludeID:     excludeID,
		Order:         model.OrderAsc,
		Limit:         limit,
	})
	if err != nil {
		return nil, err
	}
	return page.Events, nil
}

// ListByWorkflow returns events sharing a workflow id, oldest first.
func (l *Log) ListByWorkflow(ctx context.Context, workflowID, excludeID string, limit int) ([]*model.Event, error) {
	if workflowID == "" {
		return []*model.Event{}, nil
	}
	page, err := l.Query(ctx, model.EventFilter{
		WorkflowID: workflowID,
		ExcludeID:  excludeID,
		Order:      model.OrderAsc,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	return page.Events, nil
}

// Related returns the events grouped with e, excluding e itself. The
// correlation id wins over the workflow id when both are set.
func (l *Log) Related(ctx context.Context, e *model.Event, limit int) ([]*model.Event, error) {
	switch {
	case e.CorrelationID != "":
		return l.ListByCorrelation(ctx, e.CorrelationID, e.ID, limit)
	case e.WorkflowID != "":
		return l.ListByWorkflow(ctx, e.WorkflowID, e.ID, limit)
	default:
		return []*model.Event{}, nil
	}
}

// Scan calls fn for every event matching filter, fetching pages of
// scanPageSize. Limit and Offset on the filter are ignored. Returning an
// error from fn stops the walk.
func (l *Log) Scan(ctx context.Context, filter model.EventFilter, fn func(*model.Event) error) error {
	filter.Limit = scanPageSize
	filter.Offset = 0
	for {
		page, err := l.Query(ctx, filter)
		if err != nil {
			return err
		}
		for _, e := range page.Events {
			if err := fn(e); err != nil {
				return err
			}
		}
		if len(page.Events) < scanPageSize {
			return nil
		}
		filter.Offset += len(page.Events)
	}
}

// PruneBefore deletes events older than cutoff and returns how many went.
func (l *Log) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := l.store.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		return 0, apperr.Persistence("prune events", err)
	}
	return n, nil
}

func translate(err error, op, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("event", id)
	}
	return apperr.Persistence(op, err)
}
