package metrics

import (
	"sort"
	"strings"
	"time"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/projection"
)

// Health is the coarse state of the whole system.
type Health string

const (
	Healthy  Health = "healthy"
	Degraded Health = "degraded"
	Down     Health = "down"
)

// DownThreshold is the number of critical events in the health window that
// marks the system down.
const DownThreshold = 5

// Windows the health and active-workflow checks look back over.
const (
	HealthWindow         = time.Hour
	ActiveWorkflowWindow = 24 * time.Hour
)

// HealthReport explains a health classification.
type HealthReport struct {
	Status         Health    `json:"status"`
	CriticalEvents int       `json:"critical_events"`
	WorkflowErrors int       `json:"workflow_errors"`
	Since          time.Time `json:"since"`
}

// ClassifyHealth returns down at DownThreshold or more critical events,
// degraded for fewer critical events or any workflow error, else healthy.
func ClassifyHealth(critical, workflowErrors int) Health {
	switch {
	case critical >= DownThreshold:
		return Down
	case critical > 0 || workflowErrors > 0:
		return Degraded
	default:
		return Healthy
	}
}

// HealthSignals counts critical events and workflow-scoped error events.
func HealthSignals(events []*model.Event) (critical, workflowErrors int) {
	for _, e := range events {
		if e.Severity == model.SeverityCritical {
			critical++
		}
		scoped := e.WorkflowID != "" || e.Category == model.CategoryWorkflow
		if scoped && strings.Contains(e.EventType, "error") {
			workflowErrors++
		}
	}
	return critical, workflowErrors
}

// ActiveWorkflows returns, sorted, the workflow ids that have a workflow
// start event and no workflow end event among events.
func ActiveWorkflows(events []*model.Event) []string {
	started := make(map[string]bool)
	ended := make(map[string]bool)
	for _, e := range events {
		if e.WorkflowID == "" || e.Category != model.CategoryWorkflow {
			continue
		}
		switch {
		case projection.IsStart(e.EventType):
			started[e.WorkflowID] = true
		case projection.IsEnd(e.EventType):
			ended[e.WorkflowID] = true
		}
	}
	var ids []string
	for id := range started {
		if !ended[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
