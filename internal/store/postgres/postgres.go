// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultOptions returns the pool settings used when none are configured.
func DefaultOptions() Options {
	return Options{MaxOpenConns: 25, MaxIdleConns: 5, ConnMaxLifetime: 5 * time.Minute}
}

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string, opts Options) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateEvent(ctx context.Context, e *model.Event) error {
	return queryCreateEvent(ctx, s.db, e)
}

func (s *PostgresStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return queryGetEvent(ctx, s.db, id)
}

func (s *PostgresStore) ListEvents(ctx context.Context, filter model.EventFilter) ([]*model.Event, int, error) {
	return queryListEvents(ctx, s.db, filter)
}

func (s *PostgresStore) UpdateEvent(ctx context.Context, e *model.Event) error {
	return queryUpdateEvent(ctx, s.db, e)
}

func (s *PostgresStore) DeleteEvent(ctx context.Context, id string) error {
	return queryDeleteEvent(ctx, s.db, id)
}

func (s *PostgresStore) DeleteEventsBefore(ctx context.Context, before time.Time) (int64, error) {
	return queryDeleteEventsBefore(ctx, s.db, before)
}

func (s *PostgresStore) CreateProduct(ctx context.Context, p *model.Product) error {
	return queryCreateProduct(ctx, s.db, p)
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return queryGetProduct(ctx, s.db, id)
}

func (s *PostgresStore) CreateCreativePattern(ctx context.Context, p *model.CreativePattern) error {
	return queryCreateCreativePattern(ctx, s.db, p)
}

func (s *PostgresStore) GetCreativePattern(ctx context.Context, id string) (*model.CreativePattern, error) {
	return queryGetCreativePattern(ctx, s.db, id)
}

func (s *PostgresStore) CreateTrendSnapshot(ctx context.Context, t *model.TrendSnapshot) error {
	return queryCreateTrendSnapshot(ctx, s.db, t)
}

func (s *PostgresStore) ListTrendSnapshots(ctx context.Context, category string, limit int) ([]*model.TrendSnapshot, error) {
	return queryListTrendSnapshots(ctx, s.db, category, limit)
}

func (s *PostgresStore) CreateScript(ctx context.Context, sc *model.Script) error {
	return queryCreateScript(ctx, s.db, sc)
}

func (s *PostgresStore) GetScript(ctx context.Context, id string) (*model.Script, error) {
	return queryGetScript(ctx, s.db, id)
}

func (s *PostgresStore) CreateAgentNote(ctx context.Context, n *model.AgentNote) error {
	return queryCreateAgentNote(ctx, s.db, n)
}

func (s *PostgresStore) CreateVideoAsset(ctx context.Context, a *model.VideoAsset) error {
	return queryCreateVideoAsset(ctx, s.db, a)
}

func (s *PostgresStore) GetVideoAsset(ctx context.Context, id string) (*model.VideoAsset, error) {
	return queryGetVideoAsset(ctx, s.db, id)
}

func (s *PostgresStore) CreateExperiment(ctx context.Context, e *model.Experiment) error {
	return queryCreateExperiment(ctx, s.db, e)
}

func (s *PostgresStore) GetExperiment(ctx context.Context, id string) (*model.Experiment, error) {
	return queryGetExperiment(ctx, s.db, id)
}

func (s *PostgresStore) CreatePublishedPost(ctx context.Context, p *model.PublishedPost) error {
	return queryCreatePublishedPost(ctx, s.db, p)
}

func (s *PostgresStore) ListPublishedPosts(ctx context.Context, filter model.PostFilter) ([]*model.PublishedPost, error) {
	return queryListPublishedPosts(ctx, s.db, filter)
}

func (s *PostgresStore) CreatePerformanceMetric(ctx context.Context, m *model.PerformanceMetric) error {
	return queryCreatePerformanceMetric(ctx, s.db, m)
}

func (s *PostgresStore) ListPerformanceMetrics(ctx context.Context, filter model.PerformanceFilter) ([]*model.PerformanceMetric, error) {
	return queryListPerformanceMetrics(ctx, s.db, filter)
}
