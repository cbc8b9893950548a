package agent

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/apperr"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/eventlog"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/llm"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/render"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/resilience"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/storage"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/store"
)

// Models selects the generation models and their budgets.
type Models struct {
	Primary           string
	Fallback          string
	MaxTokens         int64
	FallbackMaxTokens int64
	Temperature       *float64
}

// Deps are the collaborators shared by every agent.
type Deps struct {
	Store    store.Store
	Log      *eventlog.Log
	Provider llm.Provider
	Storage  storage.Backend
	// Renderer produces media bytes. Nil uses the placeholder encoder.
	Renderer render.Renderer
	Logger   *slog.Logger
	Models   Models
	// DisableEventLogging turns LogEvent into a no-op for every agent.
	DisableEventLogging bool
	// UploadRetry overrides the editor's upload retry policy. Zero fields
	// keep the defaults of 3 attempts from a 500ms base delay.
	UploadRetry resilience.RetryOptions
	// NewID generates record ids. Defaults to uuid.NewString.
	NewID func() string
}

func (d Deps) runtime(name string) *Runtime {
	return NewRuntime(name, d.Log, d.Logger, !d.DisableEventLogging)
}

func (d Deps) newID() string {
	if d.NewID != nil {
		return d.NewID()
	}
	return uuid.NewString()
}

// chain builds the fallback chain for one agent. Every fallback is
// recorded as a system.fallback warning.
func (d Deps) chain(rt *Runtime) resilience.Chain {
	return resilience.Chain{
		Provider:          d.Provider,
		Primary:           d.Models.Primary,
		Fallback:          d.Models.Fallback,
		FallbackMaxTokens: d.Models.FallbackMaxTokens,
		OnFallback: func(ctx context.Context, kind llm.ErrorKind, err error) {
			rt.emit(ctx, "system.fallback", map[string]any{
				"primary_model":  d.Models.Primary,
				"fallback_model": d.Models.Fallback,
				"reason":         kind,
				"error":          err.Error(),
			}, WithSeverity(model.SeverityWarning))
		},
	}
}

// decodeInput copies a loosely typed input into v. camelCase keys are
// folded to snake_case first; when both spellings are present the
// snake_case value wins.
func decodeInput(input map[string]any, v any) error {
	norm := make(map[string]any, len(input))
	for k, val := range input {
		sk := snakeCase(k)
		if sk != k {
			if _, ok := input[sk]; ok {
				continue
			}
		}
		norm[sk] = val
	}
	data, err := json.Marshal(norm)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "input is not serializable", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid input: "+err.Error(), err)
	}
	return nil
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// lookupErr maps a store read failure to NotFound or Persistence.
func lookupErr(entity, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(entity, id)
	}
	return apperr.Persistence("load "+entity, err)
}
