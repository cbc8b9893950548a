package model

import (
	"encoding/json"
	"time"
)

// Product is an item the pipeline produces content for.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Price       float64   `json:"price,omitempty"`
	Audience    string    `json:"audience,omitempty"`
	Features    []string  `json:"features,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreativePattern is a reusable storytelling template for scripts.
type CreativePattern struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	HookStyle string    `json:"hook_style,omitempty"`
	Structure string    `json:"structure,omitempty"`
	Tone      string    `json:"tone,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TrendSnapshot records the popularity of a keyword in a category at a point in time.
type TrendSnapshot struct {
	ID         string    `json:"id"`
	Category   string    `json:"category"`
	Keyword    string    `json:"keyword"`
	Popularity float64   `json:"popularity"`
	CapturedAt time.Time `json:"captured_at"`
}

// Script is a generated short-form video script.
type Script struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	PatternID string    `json:"pattern_id"`
	Title     string    `json:"title"`
	Hook      string    `json:"hook"`
	Body      string    `json:"body"`
	CTA       string    `json:"cta,omitempty"`
	Outline   []string  `json:"outline,omitempty"`
	Tone      string    `json:"tone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AgentNote is an audit record an agent leaves behind describing what it used.
type AgentNote struct {
	ID         string    `json:"id"`
	AgentName  string    `json:"agent_name"`
	Topic      string    `json:"topic"`
	Content    string    `json:"content"`
	Importance float64   `json:"importance"`
	RelatedIDs []string  `json:"related_ids,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// VideoAsset is a rendered video stored in object storage.
type VideoAsset struct {
	ID              string          `json:"id"`
	ScriptID        string          `json:"script_id"`
	StorageURL      string          `json:"storage_url"`
	StorageKey      string          `json:"storage_key"`
	ThumbnailURL    string          `json:"thumbnail_url,omitempty"`
	DurationSeconds float64         `json:"duration_seconds"`
	StyleTags       []string        `json:"style_tags,omitempty"`
	Beats           json.RawMessage `json:"beats,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Experiment is one asset variation published to one platform.
type Experiment struct {
	ID        string    `json:"id"`
	AssetID   string    `json:"asset_id"`
	ScriptID  string    `json:"script_id,omitempty"`
	Platform  string    `json:"platform"`
	Variation string    `json:"variation,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// PublishedPost is the platform-side record of a published experiment.
type PublishedPost struct {
	ID             string    `json:"id"`
	ExperimentID   string    `json:"experiment_id"`
	Platform       string    `json:"platform"`
	ExternalPostID string    `json:"external_post_id"`
	URL            string    `json:"url"`
	Status         string    `json:"status"`
	PublishedAt    time.Time `json:"published_at"`
}

// PerformanceMetric is a point-in-time snapshot of a post's engagement.
type PerformanceMetric struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	Platform   string    `json:"platform"`
	Views      int64     `json:"views"`
	Likes      int64     `json:"likes"`
	Comments   int64     `json:"comments"`
	Shares     int64     `json:"shares"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Engagement returns likes + comments + shares.
func (m *PerformanceMetric) Engagement() int64 {
	return m.Likes + m.Comments + m.Shares
}
