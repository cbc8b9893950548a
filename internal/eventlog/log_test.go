package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/apperr"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/store"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/store/memory"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type failingStore struct {
	store.Store
	err error
}

func (s *failingStore) CreateEvent(context.Context, *model.Event) error { return s.err }
func (s *failingStore) ListEvents(context.Context, model.EventFilter) ([]*model.Event, int, error) {
	return nil, 0, s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLog(st store.Store, opts ...Option) *Log {
	var n int
	clock := t0
	base := []Option{
		WithLogger(quietLogger()),
		WithIDFunc(func() string { n++; return fmt.Sprintf("ev-%03d", n) }),
		WithClock(func() time.Time { clock = clock.Add(time.Second); return clock }),
	}
	return New(st, append(base, opts...)...)
}

func TestAppend_AssignsDefaults(t *testing.T) {
	pub := &recordingPublisher{}
	log := newTestLog(memory.New(), WithPublisher(pub))

	in := &model.Event{EventType: "system.retry", Payload: json.RawMessage(`{"attempt":1}`)}
	got, err := log.Append(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "ev-001", got.ID)
	assert.Equal(t, t0.Add(time.Second), got.CreatedAt)
	assert.Equal(t, model.CategorySystem, got.Category)
	assert.Equal(t, model.SeverityInfo, got.Severity)
	assert.Equal(t, "System retry", got.Message)
	assert.Empty(t, in.ID, "input must not be mutated")
	assert.Equal(t, []string{"ace.events.system.retry"}, pub.topics)

	stored, err := log.Get(context.Background(), got.ID)
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func TestAppend_KeepsCallerClassification(t *testing.T) {
	log := newTestLog(memory.New())
	got, err := log.Append(context.Background(), &model.Event{
		EventType: "agent.error", Category: model.CategoryWorkflow,
		Severity:  model.SeverityCritical, Message: "boom",
	})
	require.NoError(t, err)
	assert.Equal(t, model.CategoryWorkflow, got.Category)
	assert.Equal(t, model.SeverityCritical, got.Severity)
	assert.Equal(t, "boom", got.Message)
}

func TestAppend_LogAssignsIDAndTime(t *testing.T) {
	log := newTestLog(memory.New())
	ctx := context.Background()
	future := t0.Add(24 * time.Hour)

	first, err := log.Append(ctx, &model.Event{ID: "dup", EventType: "workflow.success", CreatedAt: future})
	require.NoError(t, err)
	assert.Equal(t, "ev-001", first.ID)
	assert.Equal(t, t0.Add(time.Second), first.CreatedAt)
	assert.Equal(t, time.UTC, first.CreatedAt.Location())

	second, err := log.Append(ctx, &model.Event{ID: "dup", EventType: "workflow.error"})
	require.NoError(t, err, "a repeated caller id must not collide")
	assert.Equal(t, "ev-002", second.ID)
	assert.True(t, second.CreatedAt.After(first.CreatedAt))

	page, err := log.Query(ctx, model.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ev-002", "ev-001"}, idsOf(page.Events))
}

func TestAppend_RejectsEmptyType(t *testing.T) {
	st := memory.New()
	pub := &recordingPublisher{}
	log := newTestLog(st, WithPublisher(pub))

	for _, eventType := range []string{"", "   "} {
		_, err := log.Append(context.Background(), &model.Event{EventType: eventType})
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	}
	_, err := log.Append(context.Background(), nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	page, err := log.Query(context.Background(), model.EventFilter{})
	require.NoError(t, err)
	assert.Zero(t, page.Total, "nothing persisted")
	assert.Empty(t, pub.topics, "nothing published")
}

func TestAppend_RejectsUnknownSeverity(t *testing.T) {
	log := newTestLog(memory.New())
	_, err := log.Append(context.Background(), &model.Event{EventType: "agent.start", Severity: "loud"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestAppend_StoreFailureIsPersistenceError(t *testing.T) {
	log := newTestLog(&failingStore{Store: memory.New(), err: errors.New("connection reset")})
	_, err := log.Append(context.Background(), &model.Event{EventType: "agent.start"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPersistence))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestAppend_PublishFailureIsSwallowed(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats down")}
	log := newTestLog(memory.New(), WithPublisher(pub))
	got, err := log.Append(context.Background(), &model.Event{EventType: "agent.start"})
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
}

func TestQuery_TotalBeforePagination(t *testing.T) {
	log := newTestLog(memory.New())
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		_, err := log.Append(ctx, &model.Event{EventType: "agent.start", AgentName: "editor"})
		require.NoError(t, err)
	}
	_, err := log.Append(ctx, &model.Event{EventType: "agent.start", AgentName: "publisher"})
	require.NoError(t, err)

	page, err := log.Query(ctx, model.EventFilter{AgentName: "editor", Limit: 3, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page.Events, 3)
	assert.Equal(t, 7, page.Total)
	assert.Equal(t, "ev-005", page.Events[0].ID, "newest first")
}

func TestQuery_Validation(t *testing.T) {
	log := newTestLog(memory.New())
	for _, f := range []model.EventFilter{
		{Severity: "loud"},
		{Category: "misc"},
		{Limit: -1},
	} {
		_, err := log.Query(context.Background(), f)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "%+v", f)
	}
}

func TestQuery_EmptyIsNonNil(t *testing.T) {
	log := newTestLog(memory.New())
	page, err := log.Query(context.Background(), model.EventFilter{})
	require.NoError(t, err)
	assert.NotNil(t, page.Events)
}

func TestQuery_StoreFailure(t *testing.T) {
	log := newTestLog(&failingStore{Store: memory.New(), err: errors.New("timeout")})
	_, err := log.Query(context.Background(), model.EventFilter{})
	assert.True(t, apperr.Is(err, apperr.KindPersistence))
}

func TestRelated_PrefersCorrelation(t *testing.T) {
	log := newTestLog(memory.New())
	ctx := context.Background()
	mustAppend := func(e *model.Event) *model.Event {
		got, err := log.Append(ctx, e)
		require.NoError(t, err)
		return got
	}

	a := mustAppend(&model.Event{EventType: "agent.start", WorkflowID: "wf", CorrelationID: "c"})
	b := mustAppend(&model.Event{EventType: "agent.success", CorrelationID: "c"})
	mustAppend(&model.Event{EventType: "workflow.start", WorkflowID: "wf"})
	c := mustAppend(&model.Event{EventType: "agent.error", CorrelationID: "c"})

	related, err := log.Related(ctx, a, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, c.ID}, idsOf(related), "oldest first, self excluded, correlation wins")

	byWorkflow, err := log.Related(ctx, &model.Event{ID: "x", WorkflowID: "wf"}, 10)
	require.NoError(t, err)
	assert.Len(t, byWorkflow, 2)

	none, err := log.Related(ctx, &model.Event{ID: "y"}, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListByWorkflow_Limit(t *testing.T) {
	log := newTestLog(memory.New())
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := log.Append(ctx, &model.Event{EventType: "agent.start", WorkflowID: "wf"})
		require.NoError(t, err)
	}
	got, err := log.ListByWorkflow(ctx, "wf", "ev-001", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"ev-002", "ev-003"}, idsOf(got))

	empty, err := log.ListByWorkflow(ctx, "", "", 2)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetUpdateDelete(t *testing.T) {
	log := newTestLog(memory.New())
	ctx := context.Background()

	_, err := log.Get(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	e, err := log.Append(ctx, &model.Event{EventType: "agent.start"})
	require.NoError(t, err)

	e.Message = "annotated"
	require.NoError(t, log.Update(ctx, e))
	got, err := log.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "annotated", got.Message)

	assert.True(t, apperr.Is(log.Update(ctx, &model.Event{ID: e.ID}), apperr.KindValidation))
	assert.True(t, apperr.Is(log.Update(ctx, &model.Event{ID: "missing", EventType: "x"}), apperr.KindNotFound))

	require.NoError(t, log.Delete(ctx, e.ID))
	assert.True(t, apperr.Is(log.Delete(ctx, e.ID), apperr.KindNotFound))
}

func TestScan_WalksAllPages(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	for i := 0; i < scanPageSize+3; i++ {
		require.NoError(t, st.CreateEvent(ctx, &model.Event{
			ID: fmt.Sprintf("e%04d", i), EventType: "agent.start", CreatedAt: t0.Add(time.Duration(i) * time.Second),
		}))
	}
	log := newTestLog(st)

	var seen int
	require.NoError(t, log.Scan(ctx, model.EventFilter{Limit: 1}, func(*model.Event) error {
		seen++
		return nil
	}))
	assert.Equal(t, scanPageSize+3, seen)

	stop := errors.New("stop")
	err := log.Scan(ctx, model.EventFilter{}, func(*model.Event) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestPruneBefore(t *testing.T) {
	log := newTestLog(memory.New())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := log.Append(ctx, &model.Event{EventType: "agent.start"})
		require.NoError(t, err)
	}
	n, err := log.PruneBefore(ctx, t0.Add(2*time.Second+time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func idsOf(events []*model.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}
