package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
)

// eventColumns is the column list used for SELECT statements on the system_events table.
const eventColumns = `id, event_type, event_category, severity, agent_name, workflow_id,
	correlation_id, message, payload, metadata, created_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// whereBuilder accumulates positional predicates for dynamic list queries.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) next(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) add(format string, v any) {
	w.clauses = append(w.clauses, fmt.Sprintf(format, w.next(v)))
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func queryCreateEvent(ctx context.Context, db executor, e *model.Event) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO system_events (
			id, event_type, event_category, severity, agent_name, workflow_id,
			correlation_id, message, payload, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID,
		e.EventType,
		string(e.Category),
		string(e.Severity),
		nullString(e.AgentName),
		nullString(e.WorkflowID),
		nullString(e.CorrelationID),
		e.Message,
		jsonbBytes(e.Payload),
		jsonbBytes(e.Metadata),
		e.CreatedAt,
	)
	return err
}

func queryGetEvent(ctx context.Context, db executor, id string) (*model.Event, error) {
	row := db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM system_events WHERE id = $1`, id)
	return scanEvent(row)
}

func queryListEvents(ctx context.Context, db executor, filter model.EventFilter) ([]*model.Event, int, error) {
	var w whereBuilder

	if filter.Severity != "" {
		w.add("severity = %s", string(filter.Severity))
	}
	if filter.AgentName != "" {
		w.add("agent_name = %s", filter.AgentName)
	}
	if filter.EventType != "" {
		w.add("event_type = %s", filter.EventType)
	}
	if filter.Category != "" {
		w.add("event_category = %s", string(filter.Category))
	}
	if filter.WorkflowID != "" {
		w.add("workflow_id = %s", filter.WorkflowID)
	}
	if filter.CorrelationID != "" {
		w.add("correlation_id = %s", filter.CorrelationID)
	}
	if filter.ExcludeID != "" {
		w.add("id <> %s", filter.ExcludeID)
	}
	if filter.Since != nil {
		w.add("created_at >= %s", *filter.Since)
	}
	if filter.Until != nil {
		w.add("created_at < %s", *filter.Until)
	}
	if filter.Search != "" {
		p := w.next(filter.Search)
		w.clauses = append(w.clauses,
			fmt.Sprintf("(message ILIKE '%%' || %s || '%%' OR COALESCE(metadata::text, '') ILIKE '%%' || %s || '%%')", p, p))
	}

	order := "created_at DESC, id DESC"
	if filter.Ascending() {
		order = "created_at ASC, id ASC"
	}

	// Single query with COUNT(*) OVER() to get total and rows atomically.
	dataQuery := "SELECT COUNT(*) OVER() AS total_count, " + eventColumns + " FROM system_events" + w.sql() + " ORDER BY " + order
	if filter.Limit > 0 {
		dataQuery += " LIMIT " + w.next(filter.Limit)
	}
	if filter.Offset > 0 {
		dataQuery += " OFFSET " + w.next(filter.Offset)
	}

	rows, err := db.QueryContext(ctx, dataQuery, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	var total int
	for rows.Next() {
		e, t, err := scanEventWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan events: %w", err)
		}
		total = t
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan events: %w", err)
	}

	// A page past the end has no rows to carry the window total.
	if len(events) == 0 && filter.Offset > 0 {
		countQuery := "SELECT COUNT(*) FROM system_events" + w.sql()
		n := len(w.args)
		if filter.Limit > 0 {
			n--
		}
		n--
		if err := db.QueryRowContext(ctx, countQuery, w.args[:n]...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count events: %w", err)
		}
	}

	return events, total, nil
}

func queryUpdateEvent(ctx context.Context, db executor, e *model.Event) error {
	res, err := db.ExecContext(ctx, `
		UPDATE system_events SET
			event_type = $2,
			event_category = $3,
			severity = $4,
			agent_name = $5,
			workflow_id = $6,
			correlation_id = $7,
			message = $8,
			payload = $9,
			metadata = $10
		WHERE id = $1`,
		e.ID,
		e.EventType,
		string(e.Category),
		string(e.Severity),
		nullString(e.AgentName),
		nullString(e.WorkflowID),
		nullString(e.CorrelationID),
		e.Message,
		jsonbBytes(e.Payload),
		jsonbBytes(e.Metadata),
	)
	return requireAffected(res, err)
}

func queryDeleteEvent(ctx context.Context, db executor, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM system_events WHERE id = $1`, id)
	return requireAffected(res, err)
}

func queryDeleteEventsBefore(ctx context.Context, db executor, before time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM system_events WHERE created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func queryCreateProduct(ctx context.Context, db executor, p *model.Product) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, category, price, audience, features, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Name, nullString(p.Description), nullString(p.Category), p.Price,
		nullString(p.Audience), textArray(p.Features), p.CreatedAt,
	)
	return err
}

func queryGetProduct(ctx context.Context, db executor, id string) (*model.Product, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, name, description, category, price, audience, features, created_at
		FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func queryCreateCreativePattern(ctx context.Context, db executor, p *model.CreativePattern) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO creative_patterns (id, name, hook_style, structure, tone, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Name, nullString(p.HookStyle), nullString(p.Structure), nullString(p.Tone),
		nullString(p.Notes), p.CreatedAt,
	)
	return err
}

func queryGetCreativePattern(ctx context.Context, db executor, id string) (*model.CreativePattern, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, name, hook_style, structure, tone, notes, created_at
		FROM creative_patterns WHERE id = $1`, id)
	return scanCreativePattern(row)
}

func queryCreateTrendSnapshot(ctx context.Context, db executor, t *model.TrendSnapshot) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO trend_snapshots (id, category, keyword, popularity, captured_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.Category, t.Keyword, t.Popularity, t.CapturedAt,
	)
	return err
}

func queryListTrendSnapshots(ctx context.Context, db executor, category string, limit int) ([]*model.TrendSnapshot, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, category, keyword, popularity, captured_at
		FROM trend_snapshots
		WHERE category = $1
		ORDER BY captured_at DESC, popularity DESC
		LIMIT $2`, category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(rows, scanTrendSnapshot)
}

func queryCreateScript(ctx context.Context, db executor, s *model.Script) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO scripts (id, product_id, pattern_id, title, hook, body, cta, outline, tone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.ProductID, nullString(s.PatternID), s.Title, s.Hook, s.Body,
		nullString(s.CTA), textArray(s.Outline), nullString(s.Tone), s.CreatedAt,
	)
	return err
}

func queryGetScript(ctx context.Context, db executor, id string) (*model.Script, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, product_id, pattern_id, title, hook, body, cta, outline, tone, created_at
		FROM scripts WHERE id = $1`, id)
	return scanScript(row)
}

func queryCreateAgentNote(ctx context.Context, db executor, n *model.AgentNote) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO agent_notes (id, agent_name, topic, content, importance, related_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.AgentName, n.Topic, n.Content, n.Importance, textArray(n.RelatedIDs), n.CreatedAt,
	)
	return err
}

func queryCreateVideoAsset(ctx context.Context, db executor, a *model.VideoAsset) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO video_assets (
			id, script_id, storage_url, storage_key, thumbnail_url,
			duration_seconds, style_tags, beats, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.ScriptID, a.StorageURL, a.StorageKey, nullString(a.ThumbnailURL),
		a.DurationSeconds, textArray(a.StyleTags), jsonbBytes(a.Beats), a.CreatedAt,
	)
	return err
}

func queryGetVideoAsset(ctx context.Context, db executor, id string) (*model.VideoAsset, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, script_id, storage_url, storage_key, thumbnail_url,
			duration_seconds, style_tags, beats, created_at
		FROM video_assets WHERE id = $1`, id)
	return scanVideoAsset(row)
}

func queryCreateExperiment(ctx context.Context, db executor, e *model.Experiment) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO experiments (id, asset_id, script_id, platform, variation, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.AssetID, nullString(e.ScriptID), e.Platform, nullString(e.Variation), e.Status, e.CreatedAt,
	)
	return err
}

func queryGetExperiment(ctx context.Context, db executor, id string) (*model.Experiment, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, asset_id, script_id, platform, variation, status, created_at
		FROM experiments WHERE id = $1`, id)
	return scanExperiment(row)
}

func queryCreatePublishedPost(ctx context.Context, db executor, p *model.PublishedPost) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO published_posts (id, experiment_id, platform, external_post_id, url, status, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.ExperimentID, p.Platform, p.ExternalPostID, p.URL, p.Status, p.PublishedAt,
	)
	return err
}

func queryListPublishedPosts(ctx context.Context, db executor, filter model.PostFilter) ([]*model.PublishedPost, error) {
	var w whereBuilder
	if len(filter.IDs) > 0 {
		w.add("id = ANY(%s)", pq.Array(filter.IDs))
	}
	if len(filter.ExperimentIDs) > 0 {
		w.add("experiment_id = ANY(%s)", pq.Array(filter.ExperimentIDs))
	}
	if filter.Platform != "" {
		w.add("platform = %s", filter.Platform)
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, experiment_id, platform, external_post_id, url, status, published_at
		FROM published_posts`+w.sql()+` ORDER BY published_at ASC`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list published posts: %w", err)
	}
	defer rows.Close()
	return scanAll(rows, scanPublishedPost)
}

func queryCreatePerformanceMetric(ctx context.Context, db executor, m *model.PerformanceMetric) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO performance_metrics (id, post_id, platform, views, likes, comments, shares, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.PostID, m.Platform, m.Views, m.Likes, m.Comments, m.Shares, m.RecordedAt,
	)
	return err
}

func queryListPerformanceMetrics(ctx context.Context, db executor, filter model.PerformanceFilter) ([]*model.PerformanceMetric, error) {
	var w whereBuilder
	if len(filter.PostIDs) > 0 {
		w.add("post_id = ANY(%s)", pq.Array(filter.PostIDs))
	}
	if filter.Platform != "" {
		w.add("platform = %s", filter.Platform)
	}
	if filter.Since != nil {
		w.add("recorded_at >= %s", *filter.Since)
	}
	if filter.Until != nil {
		w.add("recorded_at < %s", *filter.Until)
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, post_id, platform, views, likes, comments, shares, recorded_at
		FROM performance_metrics`+w.sql()+` ORDER BY recorded_at ASC`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list performance metrics: %w", err)
	}
	defer rows.Close()
	return scanAll(rows, scanPerformanceMetric)
}

// requireAffected turns a zero-row UPDATE or DELETE into sql.ErrNoRows.
func requireAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
