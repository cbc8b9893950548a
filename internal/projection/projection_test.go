package projection

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/eventlog"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/store/memory"
)

var t0 = time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)

// logClock is what the test log stamps on the next append.
var logClock = t0

func newLog(t *testing.T) *eventlog.Log {
	t.Helper()
	logClock = t0
	return eventlog.New(memory.New(),
		eventlog.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		eventlog.WithClock(func() time.Time { return logClock }),
	)
}

func appendAt(t *testing.T, l *eventlog.Log, at time.Time, e model.Event) {
	t.Helper()
	logClock = at
	defer func() { logClock = t0 }()
	_, err := l.Append(context.Background(), &e)
	require.NoError(t, err)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		eventType string
		status    Status
		decisive  bool
	}{
		{"workflow.start", StatusRunning, true},
		{"video.render.started", StatusRunning, true},
		{"agent.success", StatusIdle, true},
		{"publish.partial", StatusIdle, true},
		{"job.completed", StatusIdle, true},
		{"agent.error", StatusError, true},
		{"integration.error.start", StatusError, true},
		{"validation_error", StatusError, true},
		{"system.retry", StatusIdle, false},
		{"system.fallback", StatusIdle, false},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			s, d := Classify(tt.eventType)
			assert.Equal(t, tt.status, s)
			assert.Equal(t, tt.decisive, d)
		})
	}
	assert.True(t, IsStart("workflow.start"))
	assert.False(t, IsStart("workflow.error.start"))
	assert.True(t, IsEnd("workflow.error"))
	assert.True(t, IsEnd("workflow.success"))
	assert.False(t, IsEnd("workflow.start"))
	assert.False(t, IsEnd("system.retry"))
}

func TestWorkflowStatus_ErrorAfterStart(t *testing.T) {
	l := newLog(t)
	appendAt(t, l, t0, model.Event{EventType: "workflow.start", WorkflowID: "W1"})
	appendAt(t, l, t0.Add(time.Minute), model.Event{EventType: "workflow.error", WorkflowID: "W1"})

	row, err := New(l, Options{}).WorkflowStatus(context.Background(), "W1")
	require.NoError(t, err)
	assert.Equal(t, StatusError, row.Status)
	assert.Equal(t, "workflow.error", row.LastEventType)
	assert.Equal(t, t0.Add(time.Minute), *row.LastEventTime)
}

func TestWorkflowStatus_Transitions(t *testing.T) {
	l := newLog(t)
	p := New(l, Options{})
	ctx := context.Background()

	row, err := p.WorkflowStatus(ctx, "W2")
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, row.Status)
	assert.Nil(t, row.LastEventTime)

	appendAt(t, l, t0, model.Event{EventType: "workflow.start", WorkflowID: "W2"})
	row, _ = p.WorkflowStatus(ctx, "W2")
	assert.Equal(t, StatusRunning, row.Status)

	appendAt(t, l, t0.Add(time.Second), model.Event{EventType: "system.retry", WorkflowID: "W2"})
	row, _ = p.WorkflowStatus(ctx, "W2")
	assert.Equal(t, StatusRunning, row.Status, "neutral events are skipped")
	assert.Equal(t, "system.retry", row.LastEventType)

	appendAt(t, l, t0.Add(2*time.Second), model.Event{EventType: "workflow.success", WorkflowID: "W2"})
	row, _ = p.WorkflowStatus(ctx, "W2")
	assert.Equal(t, StatusIdle, row.Status, "terminal events end the run")
}

func TestAgentStatus_MostRecentErrorWinsRegardlessOfCategory(t *testing.T) {
	l := newLog(t)
	appendAt(t, l, t0, model.Event{EventType: "agent.start", AgentName: "editor"})
	appendAt(t, l, t0.Add(time.Second), model.Event{EventType: "integration.storage.error", AgentName: "editor", Category: model.CategoryIntegration})

	row, err := New(l, Options{}).AgentStatus(context.Background(), "editor")
	require.NoError(t, err)
	assert.Equal(t, StatusError, row.Status)
}

func TestAgentStatus_WindowLimitsReplay(t *testing.T) {
	l := newLog(t)
	appendAt(t, l, t0, model.Event{EventType: "agent.start", AgentName: "editor"})
	for i := 1; i <= 5; i++ {
		appendAt(t, l, t0.Add(time.Duration(i)*time.Second), model.Event{EventType: "system.retry", AgentName: "editor"})
	}

	row, _ := New(l, Options{Window: 3}).AgentStatus(context.Background(), "editor")
	assert.Equal(t, StatusIdle, row.Status, "start fell outside the window")

	row, _ = New(l, Options{}).AgentStatus(context.Background(), "editor")
	assert.Equal(t, StatusRunning, row.Status)
}

func TestStaleAfter(t *testing.T) {
	l := newLog(t)
	appendAt(t, l, t0.Add(-2*time.Hour), model.Event{EventType: "workflow.start", WorkflowID: "W3"})
	ctx := context.Background()

	row, _ := New(l, Options{}).WorkflowStatus(ctx, "W3")
	assert.Equal(t, StatusRunning, row.Status)

	row, _ = New(l, Options{StaleAfter: time.Hour, Now: func() time.Time { return t0 }}).WorkflowStatus(ctx, "W3")
	assert.Equal(t, StatusIdle, row.Status)
	assert.Equal(t, "workflow.start", row.LastEventType)
}

func TestAgentStatuses(t *testing.T) {
	l := newLog(t)
	appendAt(t, l, t0, model.Event{EventType: "agent.start", AgentName: "scriptwriter"})
	appendAt(t, l, t0, model.Event{EventType: "agent.error", AgentName: "publisher"})

	rows, err := New(l, Options{Agents: []string{"scriptwriter", "editor", "publisher"}}).AgentStatuses(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	got := make([]string, len(rows))
	for i, r := range rows {
		got[i] = fmt.Sprintf("%s=%s", r.EntityID, r.Status)
	}
	assert.Equal(t, []string{"scriptwriter=running", "editor=idle", "publisher=error"}, got)
}
