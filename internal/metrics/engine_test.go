package metrics

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/apperr"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/eventlog"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/projection"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/store/memory"
)

var now = time.Date(2024, 6, 7, 15, 30, 0, 0, time.UTC)

type fixture struct {
	store  *memory.Store
	log    *eventlog.Log
	engine *Engine
	// at, when set, is the time the log stamps on appended events.
	at time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memory.New()}
	clock := func() time.Time { return now }
	f.log = eventlog.New(f.store,
		eventlog.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		eventlog.WithClock(func() time.Time {
			if !f.at.IsZero() {
				return f.at
			}
			return now
		}),
	)
	proj := projection.New(f.log, projection.Options{Agents: []string{"scriptwriter", "editor", "publisher"}})
	f.engine = NewEngine(f.log, f.store, proj, WithClock(clock))
	return f
}

func (f *fixture) post(t *testing.T, id, experiment, platform string) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.store.GetExperiment(ctx, experiment); err != nil {
		require.NoError(t, f.store.CreateExperiment(ctx, &model.Experiment{ID: experiment, AssetID: "a", Platform: platform, Status: "published"}))
	}
	require.NoError(t, f.store.CreatePublishedPost(ctx, &model.PublishedPost{
		ID: id, ExperimentID: experiment, Platform: platform, ExternalPostID: "x-" + id, Status: "published", PublishedAt: now,
	}))
}

func (f *fixture) perf(t *testing.T, m *model.PerformanceMetric) {
	t.Helper()
	require.NoError(t, f.store.CreatePerformanceMetric(context.Background(), m))
}

func (f *fixture) event(t *testing.T, at time.Time, e model.Event) {
	t.Helper()
	f.at = at
	defer func() { f.at = time.Time{} }()
	_, err := f.log.Append(context.Background(), &e)
	require.NoError(t, err)
}

func TestEngine_Metrics(t *testing.T) {
	f := newFixture(t)
	f.post(t, "p1", "e1", "tiktok")
	f.post(t, "p2", "e2", "youtube")
	start := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)
	f.perf(t, metric("p1", start.Add(3*time.Hour), 100, 10, 5, 2))
	f.perf(t, &model.PerformanceMetric{PostID: "p2", Platform: "youtube", Views: 200, Likes: 1, RecordedAt: start.Add(51 * time.Hour)})
	// previous period
	f.perf(t, metric("p1", start.Add(-30*time.Hour), 100, 1, 0, 0))

	r, err := f.engine.Metrics(context.Background(), Range{Start: start, End: start.AddDate(0, 0, 3)}, Day, Filters{})
	require.NoError(t, err)

	require.Len(t, r.Buckets, 3)
	assert.Equal(t, int64(100), r.Buckets[0].Views)
	assert.Equal(t, int64(17), r.Buckets[0].Engagement)
	assert.Zero(t, r.Buckets[1].Views)
	assert.Equal(t, int64(200), r.Buckets[2].Views)

	assert.Equal(t, int64(300), r.Totals.Views)
	assert.Equal(t, int64(100), r.Previous.Views)
	assert.Equal(t, 200.0, r.ViewsChange)
	assert.Equal(t, TrendUp, r.ViewsTrend)
	assert.Equal(t, TrendUp, r.EngagementTrend)

	require.NotNil(t, r.TopPost)
	assert.Equal(t, "p1", r.TopPost.PostID)
	assert.Equal(t, "e1", r.TopPost.ExperimentID)
	assert.InDelta(t, (73.0+62.0)/2, r.AverageScore, 1e-9)
	require.Len(t, r.TopExperiments, 2)
	assert.Equal(t, "e1", r.TopExperiments[0].ExperimentID)
}

func TestEngine_MetricsFilters(t *testing.T) {
	f := newFixture(t)
	f.post(t, "p1", "e1", "tiktok")
	f.post(t, "p2", "e2", "youtube")
	start := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)
	f.perf(t, metric("p1", start, 100, 0, 0, 0))
	f.perf(t, &model.PerformanceMetric{PostID: "p2", Platform: "youtube", Views: 50, RecordedAt: start})
	rng := Range{Start: start, End: start.Add(24 * time.Hour)}
	ctx := context.Background()

	r, err := f.engine.Metrics(ctx, rng, Hour, Filters{Platform: "youtube"})
	require.NoError(t, err)
	assert.Len(t, r.Buckets, 24)
	assert.Equal(t, int64(50), r.Totals.Views)

	r, err = f.engine.Metrics(ctx, rng, Day, Filters{ExperimentIDs: []string{"e1"}})
	require.NoError(t, err)
	assert.Equal(t, int64(100), r.Totals.Views)

	r, err = f.engine.Metrics(ctx, rng, Day, Filters{ExperimentIDs: []string{"nope"}})
	require.NoError(t, err)
	assert.Zero(t, r.Totals.Views, "an experiment filter with no posts matches nothing")
	assert.Nil(t, r.TopPost)
	assert.Empty(t, r.TopExperiments)
}

func TestEngine_MetricsValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)

	_, err := f.engine.Metrics(ctx, Range{Start: start, End: start}, Day, Filters{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.engine.Metrics(ctx, Range{Start: start, End: start.Add(time.Hour)}, Granularity("month"), Filters{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.engine.Metrics(ctx, Range{Start: start, End: start.AddDate(5, 0, 0)}, Hour, Filters{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestEngine_SystemHealth(t *testing.T) {
	critical := model.Event{EventType: "system.storage.outage", Severity: model.SeverityCritical}
	tests := []struct {
		name     string
		critical int
		wfError  bool
		want     Health
	}{
		{"five critical", 5, false, Down},
		{"two critical", 2, false, Degraded},
		{"workflow error", 0, true, Degraded},
		{"quiet", 0, false, Healthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			for i := 0; i < tt.critical; i++ {
				f.event(t, now.Add(-time.Duration(i+1)*time.Minute), critical)
			}
			if tt.wfError {
				f.event(t, now.Add(-10*time.Minute), model.Event{EventType: "workflow.error", WorkflowID: "w1"})
			}
			// outside the window
			for i := 0; i < 10; i++ {
				f.event(t, now.Add(-2*time.Hour), critical)
			}
			f.event(t, now.Add(-3*time.Hour), model.Event{EventType: "workflow.error", WorkflowID: "old"})

			h, err := f.engine.SystemHealth(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.Status)
			assert.Equal(t, tt.critical, h.CriticalEvents)
		})
	}
}

func TestEngine_ActiveWorkflowCount(t *testing.T) {
	f := newFixture(t)
	f.event(t, now.Add(-time.Hour), model.Event{EventType: "workflow.start", WorkflowID: "w1"})
	f.event(t, now.Add(-2*time.Hour), model.Event{EventType: "workflow.start", WorkflowID: "w2"})
	f.event(t, now.Add(-time.Hour), model.Event{EventType: "workflow.success", WorkflowID: "w2"})
	f.event(t, now.Add(-48*time.Hour), model.Event{EventType: "workflow.start", WorkflowID: "ancient"})

	n, err := f.engine.ActiveWorkflowCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEngine_Dashboard(t *testing.T) {
	f := newFixture(t)
	f.post(t, "p1", "e1", "tiktok")
	f.perf(t, metric("p1", now.Add(-time.Hour), 10, 1, 0, 0))
	f.event(t, now.Add(-time.Minute), model.Event{EventType: "agent.start", AgentName: "editor"})
	f.event(t, now.Add(-time.Minute), model.Event{EventType: "workflow.start", WorkflowID: "w1"})

	d, err := f.engine.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now, d.GeneratedAt)
	assert.Equal(t, Healthy, d.Health.Status)
	assert.Equal(t, 1, d.ActiveWorkflows)
	require.Len(t, d.Agents, 3)
	assert.Equal(t, projection.StatusRunning, d.Agents[1].Status)
	require.Len(t, d.Metrics.Buckets, DashboardDays)
	assert.Equal(t, time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC), d.Metrics.Buckets[6].Start)
	assert.Equal(t, int64(10), d.Metrics.Buckets[6].Views)
}
