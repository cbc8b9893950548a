package eventlog

import (
	"strings"
	"unicode"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
)

// InferCategory derives the category from the event type's prefix.
func InferCategory(eventType string) model.Category {
	switch {
	case strings.HasPrefix(eventType, "workflow."):
		return model.CategoryWorkflow
	case strings.HasPrefix(eventType, "integration."):
		return model.CategoryIntegration
	case strings.HasPrefix(eventType, "system."):
		return model.CategorySystem
	default:
		return model.CategoryAgent
	}
}

// InferSeverity derives the severity from the event type's wording.
func InferSeverity(eventType string) model.Severity {
	switch {
	case strings.Contains(eventType, "error"):
		return model.SeverityError
	case strings.Contains(eventType, "warning"):
		return model.SeverityWarning
	default:
		return model.SeverityInfo
	}
}

// Humanize turns "script.generate.success" into "Script generate success".
func Humanize(eventType string) string {
	words := strings.FieldsFunc(eventType, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	if len(words) == 0 {
		return ""
	}
	s := strings.Join(words, " ")
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// applyDefaults fills category, severity and message when the caller left
// them empty.
func applyDefaults(e *model.Event) {
	if e.Category == "" {
		e.Category = InferCategory(e.EventType)
	}
	if e.Severity == "" {
		e.Severity = InferSeverity(e.EventType)
	}
	if e.Message == "" {
		e.Message = Humanize(e.EventType)
	}
}
