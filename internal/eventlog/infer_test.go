package eventlog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
)

func TestInferCategory(t *testing.T) {
	for eventType, want := range map[string]model.Category{
		"workflow.start":          model.CategoryWorkflow,
		"integration.tiktok.sync": model.CategoryIntegration,
		"system.retry":            model.CategorySystem,
		"agent.start":             model.CategoryAgent,
		"video.render.success":    model.CategoryAgent,
		"workflowish.start":       model.CategoryAgent,
	} {
		assert.Equal(t, want, InferCategory(eventType), eventType)
	}
}

func TestInferSeverity(t *testing.T) {
	for eventType, want := range map[string]model.Severity{
		"video.render.error":      model.SeverityError,
		"agent.error.context":     model.SeverityError,
		"publish.warning":         model.SeverityWarning,
		"error.with.warning.also": model.SeverityError,
		"agent.success":           model.SeverityInfo,
	} {
		assert.Equal(t, want, InferSeverity(eventType), eventType)
	}
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "Script generate success", Humanize("script.generate.success"))
	assert.Equal(t, "Agent error context", Humanize("agent.error_context"))
	assert.Equal(t, "", Humanize("..."))
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	e := &model.Event{EventType: "system.retry", Category: model.CategoryAgent, Severity: model.SeverityCritical, Message: "custom"}
	applyDefaults(e)
	assert.Equal(t, model.CategoryAgent, e.Category)
	assert.Equal(t, model.SeverityCritical, e.Severity)
	assert.Equal(t, "custom", e.Message)
}
