// Package projection derives the current status of agents and workflows by
// replaying their most recent events. Nothing here is stored; every call
// reads the log.
package projection

import (
	"context"
	"strings"
	"time"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/eventlog"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
)

// DefaultWindow is how many recent events a status lookup inspects.
const DefaultWindow = 20

// Status is the derived state of an entity.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusError   Status = "error"
)

// Row is the derived status of one agent or workflow.
type Row struct {
	EntityID      string     `json:"entity_id"`
	Status        Status     `json:"status"`
	LastEventType string     `json:"last_event_type,omitempty"`
	LastEventTime *time.Time `json:"last_event_time,omitempty"`
}

var startSuffixes = []string{".start", ".started", ".begin"}

var terminalSuffixes = []string{".success", ".complete", ".completed", ".end", ".done", ".partial"}

// Classify maps an event type to the status it implies. decisive is false
// for events that say nothing about run state, such as system.retry; those
// are skipped when replaying.
func Classify(eventType string) (status Status, decisive bool) {
	switch {
	case strings.Contains(eventType, "error"):
		return StatusError, true
	case hasAnySuffix(eventType, startSuffixes):
		return StatusRunning, true
	case hasAnySuffix(eventType, terminalSuffixes):
		return StatusIdle, true
	default:
		return StatusIdle, false
	}
}

// IsStart reports whether eventType marks the start of a run.
func IsStart(eventType string) bool {
	return !strings.Contains(eventType, "error") && hasAnySuffix(eventType, startSuffixes)
}

// IsEnd reports whether eventType ends a run, successfully or not.
func IsEnd(eventType string) bool {
	s, decisive := Classify(eventType)
	return decisive && s != StatusRunning
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

// Options configures a Projector.
type Options struct {
	// Window is the number of recent events inspected. Defaults to DefaultWindow.
	Window int
	// StaleAfter turns a running status idle once its start event is older
	// than this. Zero keeps a dangling start running forever.
	StaleAfter time.Duration
	// Agents lists the agent names AgentStatuses reports on.
	Agents []string
	// Now overrides the clock used for StaleAfter.
	Now func() time.Time
}

// Projector computes status rows from the event log.
type Projector struct {
	log  *eventlog.Log
	opts Options
}

// New returns a Projector over log.
func New(log *eventlog.Log, opts Options) *Projector {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Now == nil {
		opts.Now = log.Now
	}
	return &Projector{log: log, opts: opts}
}

// AgentStatus returns the status of the named agent.
func (p *Projector) AgentStatus(ctx context.Context, name string) (*Row, error) {
	return p.status(ctx, name, model.EventFilter{AgentName: name})
}

// WorkflowStatus returns the status of one workflow run.
func (p *Projector) WorkflowStatus(ctx context.Context, workflowID string) (*Row, error) {
	return p.status(ctx, workflowID, model.EventFilter{WorkflowID: workflowID})
}

// AgentStatuses returns a row for every configured agent, in configured order.
func (p *Projector) AgentStatuses(ctx context.Context) ([]*Row, error) {
	rows := make([]*Row, 0, len(p.opts.Agents))
	for _, name := range p.opts.Agents {
		row, err := p.AgentStatus(ctx, name)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (p *Projector) status(ctx context.Context, entityID string, filter model.EventFilter) (*Row, error) {
	filter.Order = model.OrderDesc
	filter.Limit = p.opts.Window
	page, err := p.log.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	return Derive(entityID, page.Events, p.opts.StaleAfter, p.opts.Now()), nil
}

// Derive computes a Row from events ordered newest first. The first
// decisive event wins; with none the entity is idle. LastEventType and
// LastEventTime describe the newest event regardless of whether it was
// decisive.
func Derive(entityID string, newestFirst []*model.Event, staleAfter time.Duration, now time.Time) *Row {
	row := &Row{EntityID: entityID, Status: StatusIdle}
	if len(newestFirst) == 0 {
		return row
	}
	last := newestFirst[0]
	ts := last.CreatedAt
	row.LastEventType = last.EventType
	row.LastEventTime = &ts

	for _, e := range newestFirst {
		s, decisive := Classify(e.EventType)
		if !decisive {
			continue
		}
		if s == StatusRunning && staleAfter > 0 && now.Sub(e.CreatedAt) > staleAfter {
			s = StatusIdle
		}
		row.Status = s
		break
	}
	return row
}
