package store

import (
	"context"
	"time"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
)

// Store defines the persistence interface for the event log and the content
// records the agents read and write. Lookups of a missing row return an error
// wrapping sql.ErrNoRows; callers translate that into a not-found error.
type Store interface {
	// Events
	CreateEvent(ctx context.Context, event *model.Event) error
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context, filter model.EventFilter) ([]*model.Event, int, error) // returns events, total count, error
	UpdateEvent(ctx context.Context, event *model.Event) error
	DeleteEvent(ctx context.Context, id string) error
	DeleteEventsBefore(ctx context.Context, before time.Time) (int64, error)

	// Products and creative inputs
	CreateProduct(ctx context.Context, p *model.Product) error
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	CreateCreativePattern(ctx context.Context, p *model.CreativePattern) error
	GetCreativePattern(ctx context.Context, id string) (*model.CreativePattern, error)
	CreateTrendSnapshot(ctx context.Context, t *model.TrendSnapshot) error
	ListTrendSnapshots(ctx context.Context, category string, limit int) ([]*model.TrendSnapshot, error)

	// Scripts and notes
	CreateScript(ctx context.Context, s *model.Script) error
	GetScript(ctx context.Context, id string) (*model.Script, error)
	CreateAgentNote(ctx context.Context, n *model.AgentNote) error

	// Assets
	CreateVideoAsset(ctx context.Context, a *model.VideoAsset) error
	GetVideoAsset(ctx context.Context, id string) (*model.VideoAsset, error)

	// Experiments and posts
	CreateExperiment(ctx context.Context, e *model.Experiment) error
	GetExperiment(ctx context.Context, id string) (*model.Experiment, error)
	CreatePublishedPost(ctx context.Context, p *model.PublishedPost) error
	ListPublishedPosts(ctx context.Context, filter model.PostFilter) ([]*model.PublishedPost, error)

	// Performance
	CreatePerformanceMetric(ctx context.Context, m *model.PerformanceMetric) error
	ListPerformanceMetrics(ctx context.Context, filter model.PerformanceFilter) ([]*model.PerformanceMetric, error)

	// Lifecycle
	Close() error
}
