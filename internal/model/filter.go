package model

import "time"

// SortOrder selects created_at ordering for event queries.
type SortOrder string

const (
	OrderDesc SortOrder = "desc"
	OrderAsc  SortOrder = "asc"
)

// EventFilter holds criteria for querying the event log. Every field is
// optional; zero values do not constrain the result.
type EventFilter struct {
	Severity      Severity   `json:"severity,omitempty"`
	AgentName     string     `json:"agent_name,omitempty"`
	EventType     string     `json:"event_type,omitempty"`
	Category      Category   `json:"event_category,omitempty"`
	WorkflowID    string     `json:"workflow_id,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	ExcludeID     string     `json:"exclude_id,omitempty"`
	Since         *time.Time `json:"since,omitempty"`  // inclusive
	Until         *time.Time `json:"until,omitempty"`  // exclusive
	Search        string     `json:"search,omitempty"` // message or serialized metadata
	Order         SortOrder  `json:"order,omitempty"`  // default desc
	Limit         int        `json:"limit,omitempty"`
	Offset        int        `json:"offset,omitempty"`
}

// Ascending reports whether results should be ordered oldest-first.
func (f EventFilter) Ascending() bool {
	return f.Order == OrderAsc
}

// PerformanceFilter holds criteria for querying performance metrics.
type PerformanceFilter struct {
	PostIDs  []string   `json:"post_ids,omitempty"`
	Platform string     `json:"platform,omitempty"`
	Since    *time.Time `json:"since,omitempty"` // inclusive
	Until    *time.Time `json:"until,omitempty"` // exclusive
}

// PostFilter holds criteria for querying published posts.
type PostFilter struct {
	IDs           []string `json:"ids,omitempty"`
	ExperimentIDs []string `json:"experiment_ids,omitempty"`
	Platform      string   `json:"platform,omitempty"`
}
