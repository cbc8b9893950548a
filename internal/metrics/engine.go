// Package metrics aggregates performance records and the event log into
// time buckets, trends, rankings and a system health summary. Everything
// is recomputed per call.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/apperr"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/eventlog"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/projection"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/store"
)

// MaxBuckets bounds the number of buckets one query may produce.
const MaxBuckets = 5000

// DashboardDays is the span of the dashboard's metrics section.
const DashboardDays = 7

// Range is a half-open time interval [Start, End).
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Previous returns the range of equal length that ends where r starts.
func (r Range) Previous() Range {
	return Range{Start: r.Start.Add(-r.End.Sub(r.Start)), End: r.Start}
}

// Filters narrows the performance records a report covers.
type Filters struct {
	Platform      string   `json:"platform,omitempty"`
	PostIDs       []string `json:"post_ids,omitempty"`
	ExperimentIDs []string `json:"experiment_ids,omitempty"`
}

// Report is the result of Engine.Metrics.
type Report struct {
	Range            Range             `json:"range"`
	Granularity      Granularity       `json:"granularity"`
	Buckets          []Bucket          `json:"buckets"`
	Totals           Totals            `json:"totals"`
	Previous         Totals            `json:"previous"`
	ViewsChange      float64           `json:"views_change_pct"`
	EngagementChange float64           `json:"engagement_change_pct"`
	ViewsTrend       Trend             `json:"views_trend"`
	EngagementTrend  Trend             `json:"engagement_trend"`
	AverageScore     float64           `json:"average_score"`
	TopPost          *PostScore        `json:"top_post,omitempty"`
	TopExperiments   []ExperimentScore `json:"top_experiments"`
}

// Dashboard is the overview served to operators.
type Dashboard struct {
	GeneratedAt     time.Time         `json:"generated_at"`
	Health          *HealthReport     `json:"health"`
	ActiveWorkflows int               `json:"active_workflows"`
	Agents          []*projection.Row `json:"agents"`
	Metrics         *Report           `json:"metrics"`
}

// Engine computes reports from the store and the event log.
type Engine struct {
	log       *eventlog.Log
	store     store.Store
	projector *projection.Projector
	now       func() time.Time
	threshold float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithTrendThreshold overrides DefaultTrendThreshold.
func WithTrendThreshold(th float64) Option {
	return func(e *Engine) { e.threshold = th }
}

// NewEngine returns an Engine. projector may be nil, in which case the
// dashboard carries no agent rows.
func NewEngine(log *eventlog.Log, st store.Store, projector *projection.Projector, opts ...Option) *Engine {
	e := &Engine{
		log:       log,
		store:     st,
		projector: projector,
		now:       log.Now,
		threshold: DefaultTrendThreshold,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Metrics aggregates performance records in rng into buckets of g and
// compares the totals against the preceding range of equal length.
func (e *Engine) Metrics(ctx context.Context, rng Range, g Granularity, f Filters) (*Report, error) {
	if g == "" {
		g = Day
	}
	if _, err := ParseGranularity(string(g)); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if !rng.End.After(rng.Start) {
		return nil, apperr.Validation("range end must be after range start")
	}
	rng = Range{Start: rng.Start.UTC(), End: rng.End.UTC()}
	if n := CountBuckets(rng.Start, rng.End, g); n > MaxBuckets {
		return nil, apperr.Validation(fmt.Sprintf("range produces %d %s buckets, limit is %d", n, g, MaxBuckets))
	}

	postIDs, matched, err := e.resolvePosts(ctx, f)
	if err != nil {
		return nil, err
	}
	current, err := e.records(ctx, rng, f.Platform, postIDs, matched)
	if err != nil {
		return nil, err
	}
	previous, err := e.records(ctx, rng.Previous(), f.Platform, postIDs, matched)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Range:          rng,
		Granularity:    g,
		Buckets:        Buckets(rng.Start, rng.End, g),
		Totals:         Sum(current),
		Previous:       Sum(previous),
		TopExperiments: []ExperimentScore{},
	}
	Accumulate(r.Buckets, g, current)
	r.ViewsChange = PercentChange(float64(r.Totals.Views), float64(r.Previous.Views))
	r.EngagementChange = PercentChange(float64(r.Totals.Engagement), float64(r.Previous.Engagement))
	r.ViewsTrend = ClassifyTrend(float64(r.Totals.Views), float64(r.Previous.Views), e.threshold)
	r.EngagementTrend = ClassifyTrend(float64(r.Totals.Engagement), float64(r.Previous.Engagement), e.threshold)

	if len(current) == 0 {
		return r, nil
	}
	posts, err := e.store.ListPublishedPosts(ctx, model.PostFilter{IDs: distinctPostIDs(current)})
	if err != nil {
		return nil, apperr.Persistence("list published posts", err)
	}
	scored := ScorePosts(current, posts)
	var sum float64
	for _, p := range scored {
		sum += p.Score
	}
	r.AverageScore = sum / float64(len(scored))
	top := scored[0]
	r.TopPost = &top
	r.TopExperiments = TopExperiments(scored, TopExperimentsLimit)
	return r, nil
}

// resolvePosts turns the post and experiment filters into a post id set.
// matched is false when the filters can match no post at all.
func (e *Engine) resolvePosts(ctx context.Context, f Filters) (ids []string, matched bool, err error) {
	if len(f.ExperimentIDs) == 0 {
		return f.PostIDs, true, nil
	}
	posts, err := e.store.ListPublishedPosts(ctx, model.PostFilter{ExperimentIDs: f.ExperimentIDs, IDs: f.PostIDs})
	if err != nil {
		return nil, false, apperr.Persistence("list published posts", err)
	}
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids, len(ids) > 0, nil
}

func (e *Engine) records(ctx context.Context, rng Range, platform string, postIDs []string, matched bool) ([]*model.PerformanceMetric, error) {
	if !matched {
		return nil, nil
	}
	recs, err := e.store.ListPerformanceMetrics(ctx, model.PerformanceFilter{
		PostIDs:  postIDs,
		Platform: platform,
		Since:    &rng.Start,
		Until:    &rng.End,
	})
	if err != nil {
		return nil, apperr.Persistence("list performance metrics", err)
	}
	return recs, nil
}

func distinctPostIDs(records []*model.PerformanceMetric) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range records {
		if !seen[m.PostID] {
			seen[m.PostID] = true
			ids = append(ids, m.PostID)
		}
	}
	return ids
}

// SystemHealth classifies the last HealthWindow of events.
func (e *Engine) SystemHealth(ctx context.Context) (*HealthReport, error) {
	since := e.now().UTC().Add(-HealthWindow)
	evts, err := e.collect(ctx, since)
	if err != nil {
		return nil, err
	}
	critical, wfErrors := HealthSignals(evts)
	return &HealthReport{
		Status:         ClassifyHealth(critical, wfErrors),
		CriticalEvents: critical,
		WorkflowErrors: wfErrors,
		Since:          since,
	}, nil
}

// ActiveWorkflowCount counts workflows started in the last
// ActiveWorkflowWindow that have not ended.
func (e *Engine) ActiveWorkflowCount(ctx context.Context) (int, error) {
	evts, err := e.collect(ctx, e.now().UTC().Add(-ActiveWorkflowWindow))
	if err != nil {
		return 0, err
	}
	return len(ActiveWorkflows(evts)), nil
}

func (e *Engine) collect(ctx context.Context, since time.Time) ([]*model.Event, error) {
	var evts []*model.Event
	err := e.log.Scan(ctx, model.EventFilter{Since: &since, Order: model.OrderAsc}, func(ev *model.Event) error {
		evts = append(evts, ev)
		return nil
	})
	return evts, err
}

// Dashboard gathers health, active workflows, agent statuses and the last
// DashboardDays of daily metrics.
func (e *Engine) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := e.now().UTC()
	health, err := e.SystemHealth(ctx)
	if err != nil {
		return nil, err
	}
	active, err := e.ActiveWorkflowCount(ctx)
	if err != nil {
		return nil, err
	}
	agents := []*projection.Row{}
	if e.projector != nil {
		if agents, err = e.projector.AgentStatuses(ctx); err != nil {
			return nil, err
		}
	}
	end := Day.Next(Day.Truncate(now))
	report, err := e.Metrics(ctx, Range{Start: end.AddDate(0, 0, -DashboardDays), End: end}, Day, Filters{})
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		GeneratedAt:     now,
		Health:          health,
		ActiveWorkflows: active,
		Agents:          agents,
		Metrics:         report,
	}, nil
}
