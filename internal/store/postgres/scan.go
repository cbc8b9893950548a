package postgres

import (
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// eventDest holds the nullable scan targets for one system_events row.
type eventDest struct {
	e           model.Event
	agentName   sql.NullString
	workflowID  sql.NullString
	correlation sql.NullString
	payload     []byte
	metadata    []byte
}

func (d *eventDest) targets() []any {
	return []any{
		&d.e.ID,
		&d.e.EventType,
		&d.e.Category,
		&d.e.Severity,
		&d.agentName,
		&d.workflowID,
		&d.correlation,
		&d.e.Message,
		&d.payload,
		&d.metadata,
		&d.e.CreatedAt,
	}
}

func (d *eventDest) event() *model.Event {
	d.e.AgentName = d.agentName.String
	d.e.WorkflowID = d.workflowID.String
	d.e.CorrelationID = d.correlation.String
	if len(d.payload) > 0 {
		d.e.Payload = json.RawMessage(d.payload)
	}
	if len(d.metadata) > 0 {
		d.e.Metadata = json.RawMessage(d.metadata)
	}
	d.e.CreatedAt = d.e.CreatedAt.UTC()
	return &d.e
}

// scanEvent scans a single row into a model.Event.
// The row must contain columns in the order defined by eventColumns.
func scanEvent(row scannable) (*model.Event, error) {
	var d eventDest
	if err := row.Scan(d.targets()...); err != nil {
		return nil, err
	}
	return d.event(), nil
}

// scanEventWithTotal scans a row that has a leading total_count column
// followed by the standard event columns.
func scanEventWithTotal(row scannable) (*model.Event, int, error) {
	var d eventDest
	var total int
	if err := row.Scan(append([]any{&total}, d.targets()...)...); err != nil {
		return nil, 0, err
	}
	return d.event(), total, nil
}

func scanProduct(row scannable) (*model.Product, error) {
	var p model.Product
	var description, category, audience sql.NullString
	err := row.Scan(&p.ID, &p.Name, &description, &category, &p.Price, &audience,
		pq.Array(&p.Features), &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	p.Category = category.String
	p.Audience = audience.String
	return &p, nil
}

func scanCreativePattern(row scannable) (*model.CreativePattern, error) {
	var p model.CreativePattern
	var hookStyle, structure, tone, notes sql.NullString
	err := row.Scan(&p.ID, &p.Name, &hookStyle, &structure, &tone, &notes, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.HookStyle = hookStyle.String
	p.Structure = structure.String
	p.Tone = tone.String
	p.Notes = notes.String
	return &p, nil
}

func scanTrendSnapshot(row scannable) (*model.TrendSnapshot, error) {
	var t model.TrendSnapshot
	if err := row.Scan(&t.ID, &t.Category, &t.Keyword, &t.Popularity, &t.CapturedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanScript(row scannable) (*model.Script, error) {
	var s model.Script
	var patternID, cta, tone sql.NullString
	err := row.Scan(&s.ID, &s.ProductID, &patternID, &s.Title, &s.Hook, &s.Body, &cta,
		pq.Array(&s.Outline), &tone, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.PatternID = patternID.String
	s.CTA = cta.String
	s.Tone = tone.String
	return &s, nil
}

func scanVideoAsset(row scannable) (*model.VideoAsset, error) {
	var a model.VideoAsset
	var thumbnail sql.NullString
	var beats []byte
	err := row.Scan(&a.ID, &a.ScriptID, &a.StorageURL, &a.StorageKey, &thumbnail,
		&a.DurationSeconds, pq.Array(&a.StyleTags), &beats, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.ThumbnailURL = thumbnail.String
	if len(beats) > 0 {
		a.Beats = json.RawMessage(beats)
	}
	return &a, nil
}

func scanExperiment(row scannable) (*model.Experiment, error) {
	var e model.Experiment
	var scriptID, variation sql.NullString
	err := row.Scan(&e.ID, &e.AssetID, &scriptID, &e.Platform, &variation, &e.Status, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.ScriptID = scriptID.String
	e.Variation = variation.String
	return &e, nil
}

func scanPublishedPost(row scannable) (*model.PublishedPost, error) {
	var p model.PublishedPost
	err := row.Scan(&p.ID, &p.ExperimentID, &p.Platform, &p.ExternalPostID, &p.URL, &p.Status, &p.PublishedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPerformanceMetric(row scannable) (*model.PerformanceMetric, error) {
	var m model.PerformanceMetric
	err := row.Scan(&m.ID, &m.PostID, &m.Platform, &m.Views, &m.Likes, &m.Comments, &m.Shares, &m.RecordedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// scanAll drains rows through scan.
func scanAll[T any](rows *sql.Rows, scan func(scannable) (*T, error)) ([]*T, error) {
	var out []*T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// jsonbBytes converts json.RawMessage to a []byte suitable for JSONB columns.
func jsonbBytes(m json.RawMessage) []byte {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}

// textArray converts a string slice to a TEXT[] value; nil becomes '{}'.
func textArray(s []string) pq.StringArray {
	if s == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(s)
}
