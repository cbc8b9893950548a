// Package memory implements store.Store in process memory. It backs
// `ace --memory` and the agent, projection and metrics tests.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/store"
)

// Store is a mutex-guarded in-memory store. Records are copied on the way in
// and out so callers cannot mutate stored state.
type Store struct {
	mu          sync.RWMutex
	events      []*model.Event
	products    map[string]*model.Product
	patterns    map[string]*model.CreativePattern
	trends      []*model.TrendSnapshot
	scripts     map[string]*model.Script
	notes       []*model.AgentNote
	assets      map[string]*model.VideoAsset
	experiments map[string]*model.Experiment
	posts       []*model.PublishedPost
	performance []*model.PerformanceMetric
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		products:    make(map[string]*model.Product),
		patterns:    make(map[string]*model.CreativePattern),
		scripts:     make(map[string]*model.Script),
		assets:      make(map[string]*model.VideoAsset),
		experiments: make(map[string]*model.Experiment),
	}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, sql.ErrNoRows)
}

func (s *Store) CreateEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.events {
		if existing.ID == e.ID {
			return fmt.Errorf("event %s already exists", e.ID)
		}
	}
	s.events = append(s.events, e.Clone())
	return nil
}

func (s *Store) GetEvent(_ context.Context, id string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.events {
		if e.ID == id {
			return e.Clone(), nil
		}
	}
	return nil, notFound("event", id)
}

func (s *Store) ListEvents(_ context.Context, filter model.EventFilter) ([]*model.Event, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*model.Event
	for _, e := range s.events {
		if matchEvent(e, filter) {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if filter.Ascending() {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if filter.Ascending() {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})

	total := len(matched)
	matched = paginate(matched, filter.Limit, filter.Offset)
	out := make([]*model.Event, len(matched))
	for i, e := range matched {
		out[i] = e.Clone()
	}
	return out, total, nil
}

func matchEvent(e *model.Event, f model.EventFilter) bool {
	switch {
	case f.Severity != "" && e.Severity != f.Severity:
		return false
	case f.AgentName != "" && e.AgentName != f.AgentName:
		return false
	case f.EventType != "" && e.EventType != f.EventType:
		return false
	case f.Category != "" && e.Category != f.Category:
		return false
	case f.WorkflowID != "" && e.WorkflowID != f.WorkflowID:
		return false
	case f.CorrelationID != "" && e.CorrelationID != f.CorrelationID:
		return false
	case f.ExcludeID != "" && e.ID == f.ExcludeID:
		return false
	case f.Since != nil && e.CreatedAt.Before(*f.Since):
		return false
	case f.Until != nil && !e.CreatedAt.Before(*f.Until):
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.Message), needle) &&
			!strings.Contains(strings.ToLower(string(e.Metadata)), needle) {
			return false
		}
	}
	return true
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (s *Store) UpdateEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.events {
		if existing.ID == e.ID {
			updated := e.Clone()
			updated.CreatedAt = existing.CreatedAt
			s.events[i] = updated
			return nil
		}
	}
	return notFound("event", e.ID)
}

func (s *Store) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.events {
		if e.ID == id {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return nil
		}
	}
	return notFound("event", id)
}

func (s *Store) DeleteEventsBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.events[:0]
	var n int64
	for _, e := range s.events {
		if e.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return n, nil
}

func (s *Store) CreateProduct(_ context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	cp.Features = append([]string(nil), p.Features...)
	s.products[p.ID] = &cp
	return nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, notFound("product", id)
	}
	cp := *p
	cp.Features = append([]string(nil), p.Features...)
	return &cp, nil
}

func (s *Store) CreateCreativePattern(_ context.Context, p *model.CreativePattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.patterns[p.ID] = &cp
	return nil
}

func (s *Store) GetCreativePattern(_ context.Context, id string) (*model.CreativePattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patterns[id]
	if !ok {
		return nil, notFound("creative pattern", id)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) CreateTrendSnapshot(_ context.Context, t *model.TrendSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.trends = append(s.trends, &cp)
	return nil
}

func (s *Store) ListTrendSnapshots(_ context.Context, category string, limit int) ([]*model.TrendSnapshot, error) {
	if limit <= 0 {
		limit = 10
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.TrendSnapshot
	for _, t := range s.trends {
		if t.Category == category {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CapturedAt.Equal(out[j].CapturedAt) {
			return out[i].CapturedAt.After(out[j].CapturedAt)
		}
		return out[i].Popularity > out[j].Popularity
	})
	return paginate(out, limit, 0), nil
}

func (s *Store) CreateScript(_ context.Context, sc *model.Script) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[sc.ProductID]; !ok {
		return fmt.Errorf("insert script: product %s does not exist", sc.ProductID)
	}
	cp := *sc
	cp.Outline = append([]string(nil), sc.Outline...)
	s.scripts[sc.ID] = &cp
	return nil
}

func (s *Store) GetScript(_ context.Context, id string) (*model.Script, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scripts[id]
	if !ok {
		return nil, notFound("script", id)
	}
	cp := *sc
	cp.Outline = append([]string(nil), sc.Outline...)
	return &cp, nil
}

func (s *Store) CreateAgentNote(_ context.Context, n *model.AgentNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	cp.RelatedIDs = append([]string(nil), n.RelatedIDs...)
	s.notes = append(s.notes, &cp)
	return nil
}

// AgentNotes returns every stored note; the Store interface has no reader
// because nothing in the pipeline consumes notes.
func (s *Store) AgentNotes() []*model.AgentNote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.AgentNote, len(s.notes))
	for i, n := range s.notes {
		cp := *n
		out[i] = &cp
	}
	return out
}

func (s *Store) CreateVideoAsset(_ context.Context, a *model.VideoAsset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scripts[a.ScriptID]; !ok {
		return fmt.Errorf("insert video asset: script %s does not exist", a.ScriptID)
	}
	cp := *a
	cp.StyleTags = append([]string(nil), a.StyleTags...)
	s.assets[a.ID] = &cp
	return nil
}

func (s *Store) GetVideoAsset(_ context.Context, id string) (*model.VideoAsset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[id]
	if !ok {
		return nil, notFound("video asset", id)
	}
	cp := *a
	cp.StyleTags = append([]string(nil), a.StyleTags...)
	return &cp, nil
}

func (s *Store) CreateExperiment(_ context.Context, e *model.Experiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.experiments[e.ID] = &cp
	return nil
}

func (s *Store) GetExperiment(_ context.Context, id string) (*model.Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.experiments[id]
	if !ok {
		return nil, notFound("experiment", id)
	}
	cp := *e
	return &cp, nil
}

func (s *Store) CreatePublishedPost(_ context.Context, p *model.PublishedPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.experiments[p.ExperimentID]; !ok {
		return fmt.Errorf("insert published post: experiment %s does not exist", p.ExperimentID)
	}
	cp := *p
	s.posts = append(s.posts, &cp)
	return nil
}

func (s *Store) ListPublishedPosts(_ context.Context, filter model.PostFilter) ([]*model.PublishedPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := toSet(filter.IDs)
	experiments := toSet(filter.ExperimentIDs)
	var out []*model.PublishedPost
	for _, p := range s.posts {
		if ids != nil && !ids[p.ID] {
			continue
		}
		if experiments != nil && !experiments[p.ExperimentID] {
			continue
		}
		if filter.Platform != "" && p.Platform != filter.Platform {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PublishedAt.Before(out[j].PublishedAt) })
	return out, nil
}

func (s *Store) CreatePerformanceMetric(_ context.Context, m *model.PerformanceMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.performance = append(s.performance, &cp)
	return nil
}

func (s *Store) ListPerformanceMetrics(_ context.Context, filter model.PerformanceFilter) ([]*model.PerformanceMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	posts := toSet(filter.PostIDs)
	var out []*model.PerformanceMetric
	for _, m := range s.performance {
		if posts != nil && !posts[m.PostID] {
			continue
		}
		if filter.Platform != "" && m.Platform != filter.Platform {
			continue
		}
		if filter.Since != nil && m.RecordedAt.Before(*filter.Since) {
			continue
		}
		if filter.Until != nil && !m.RecordedAt.Before(*filter.Until) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func toSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
