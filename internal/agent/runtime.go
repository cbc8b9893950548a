// Package agent runs the pipeline's agents under a supervising lifecycle:
// every invocation is bracketed by agent.start and agent.success/agent.error
// events, errors leave normalized, and the run context that stamps events
// lives only in the call's context.Context.
package agent

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/apperr"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/eventlog"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
)

// Agent is a named unit of work that can be invoked with a loosely typed
// input, as received from the HTTP and CLI surfaces.
type Agent interface {
	Name() string
	Execute(ctx context.Context, input map[string]any) (any, error)
}

// Handler is the business method a Runtime supervises.
type Handler func(ctx context.Context, input map[string]any) (any, error)

// RunContext groups the events of one invocation.
type RunContext struct {
	WorkflowID    string `json:"workflow_id,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

type runContextKey struct{}

// WithRunContext returns a child context carrying rc.
func WithRunContext(ctx context.Context, rc RunContext) context.Context {
	return context.WithValue(ctx, runContextKey{}, rc)
}

// RunContextFrom returns the run context attached to ctx, or the zero value.
func RunContextFrom(ctx context.Context) RunContext {
	rc, _ := ctx.Value(runContextKey{}).(RunContext)
	return rc
}

// ExtractRunContext reads workflow and correlation ids from an invocation
// input. Both snake_case and camelCase keys are accepted; values that are not
// strings are ignored.
func ExtractRunContext(input map[string]any) RunContext {
	return RunContext{
		WorkflowID:    stringField(input, "workflow_id", "workflowId"),
		CorrelationID: stringField(input, "correlation_id", "correlationId"),
	}
}

func stringField(input map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := input[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// Runtime supervises invocations for one agent name. It holds no per-call
// state, so one Runtime may serve concurrent calls.
type Runtime struct {
	name           string
	log            *eventlog.Log
	logger         *slog.Logger
	loggingEnabled bool
}

// NewRuntime returns a Runtime that stamps events with name.
func NewRuntime(name string, log *eventlog.Log, logger *slog.Logger, loggingEnabled bool) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{name: name, log: log, logger: logger, loggingEnabled: loggingEnabled}
}

// Name returns the agent name events are stamped with.
func (r *Runtime) Name() string { return r.name }

// LoggingEnabled reports whether LogEvent writes to the event log.
func (r *Runtime) LoggingEnabled() bool { return r.loggingEnabled }

// Execute runs handler under the lifecycle. The run context extracted from
// input is attached to the context handed to handler and to every event the
// call emits; it is gone once Execute returns.
func (r *Runtime) Execute(ctx context.Context, input map[string]any, handler Handler) (any, error) {
	ctx = WithRunContext(ctx, ExtractRunContext(input))

	r.emit(ctx, "agent.start", map[string]any{"input": input})

	out, err := handler(ctx, input)
	if err != nil {
		nerr := apperr.Normalize(err)
		r.emit(ctx, "agent.error", map[string]any{
			"input": input,
			"error": nerr.Message,
			"kind":  nerr.Kind,
		})
		return nil, nerr
	}

	r.emit(ctx, "agent.success", map[string]any{"input": input, "output": out})
	return out, nil
}

// HandleError normalizes err, records an agent.error.context event tagged
// with label and returns the normalized error. A failure to record the event
// is logged and otherwise ignored.
func (r *Runtime) HandleError(ctx context.Context, label string, err error) error {
	nerr := apperr.Normalize(err)
	if nerr == nil {
		return nil
	}
	payload := map[string]any{
		"context": label,
		"error":   nerr.Message,
		"kind":    nerr.Kind,
	}
	if len(nerr.Details) > 0 {
		payload["details"] = nerr.Details
	}
	r.emit(ctx, "agent.error.context", payload)
	return nerr
}

// EventOption adjusts an event before LogEvent appends it.
type EventOption func(*model.Event)

// WithSeverity overrides the inferred severity.
func WithSeverity(s model.Severity) EventOption {
	return func(e *model.Event) { e.Severity = s }
}

// WithCategory overrides the inferred category.
func WithCategory(c model.Category) EventOption {
	return func(e *model.Event) { e.Category = c }
}

// WithMessage overrides the humanized default message.
func WithMessage(msg string) EventOption {
	return func(e *model.Event) { e.Message = msg }
}

// WithMetadata attaches diagnostic metadata. Values that do not marshal are
// dropped.
func WithMetadata(md map[string]any) EventOption {
	return func(e *model.Event) {
		if data, err := json.Marshal(md); err == nil {
			e.Metadata = data
		}
	}
}

// LogEvent appends an event stamped with the agent name and the run context
// in ctx. When logging is disabled it does nothing and returns nil, nil.
func (r *Runtime) LogEvent(ctx context.Context, eventType string, payload any, opts ...EventOption) (*model.Event, error) {
	if !r.loggingEnabled {
		return nil, nil
	}
	rc := RunContextFrom(ctx)
	e := &model.Event{
		EventType:     eventType,
		AgentName:     r.name,
		WorkflowID:    rc.WorkflowID,
		CorrelationID: rc.CorrelationID,
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, "event payload is not serializable", err)
		}
		e.Payload = data
	}
	for _, o := range opts {
		o(e)
	}
	return r.log.Append(ctx, e)
}

// emit is LogEvent for lifecycle and progress events, whose failures must
// never mask the outcome of the call.
func (r *Runtime) emit(ctx context.Context, eventType string, payload any, opts ...EventOption) {
	if _, err := r.LogEvent(ctx, eventType, payload, opts...); err != nil {
		r.logger.Warn("failed to log event", "agent", r.name, "event_type", eventType, "error", err)
	}
}
