package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/apperr"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/llm"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/storage"
)

func TestPipeline_EndToEndOffline(t *testing.T) {
	h := newHarness(t, llm.Offline{})
	h.seed(t)
	local, err := storage.NewLocal(t.TempDir(), "https://media.example.com")
	require.NoError(t, err)
	h.deps.Storage = local
	s := NewSuite(h.deps)

	res, err := s.Pipeline.Run(context.Background(), PipelineInput{
		ProductID:  "prod-1",
		PatternID:  "pat-1",
		Platforms:  []string{"tiktok", "instagram"},
		WorkflowID: "wf-e2e",
	})
	require.NoError(t, err)
	assert.Equal(t, "wf-e2e", res.WorkflowID)
	require.NotNil(t, res.Script)
	require.NotNil(t, res.Asset)
	require.NotNil(t, res.Publish)
	assert.Contains(t, res.Script.Title, "Trail Mug")
	assert.Equal(t, res.Script.ID, res.Asset.ScriptID)
	assert.Contains(t, res.Asset.StorageURL, "https://media.example.com/videos/")
	assert.Equal(t, 2, res.Publish.Published)

	evts := h.events(t)
	assert.Equal(t, "workflow.start", evts[0].EventType)
	assert.Equal(t, "workflow.success", evts[len(evts)-1].EventType)
	correlation := evts[0].CorrelationID
	assert.NotEmpty(t, correlation)
	for _, e := range evts {
		assert.Equal(t, "wf-e2e", e.WorkflowID, e.EventType)
		assert.Equal(t, correlation, e.CorrelationID, e.EventType)
	}
	byAgent := map[string]int{}
	for _, e := range evts {
		byAgent[e.AgentName]++
	}
	assert.Equal(t, 2, byAgent[PipelineName])
	assert.Positive(t, byAgent[ScriptAgentName])
	assert.Positive(t, byAgent[EditorAgentName])
	assert.Positive(t, byAgent[PublishAgentName])
}

func TestPipeline_StageFailureEmitsWorkflowError(t *testing.T) {
	h := newHarness(t, llm.Offline{})
	h.seed(t)
	s := NewSuite(h.deps)

	out, err := s.Pipeline.Execute(context.Background(), map[string]any{
		"productId": "ghost",
		"patternId": "pat-1",
		"platforms": []string{"youtube"},
	})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	res := out.(*PipelineResult)
	assert.NotEmpty(t, res.WorkflowID)
	assert.Nil(t, res.Script)

	evts := h.events(t)
	last := evts[len(evts)-1]
	assert.Equal(t, "workflow.error", last.EventType)
	assert.Equal(t, model.CategoryWorkflow, last.Category)
	assert.Equal(t, model.SeverityError, last.Severity)
	assert.Equal(t, "script", payloadOf(t, last)["stage"])
	assert.Equal(t, res.WorkflowID, last.WorkflowID)
}

func TestPipeline_ValidatesUpFront(t *testing.T) {
	h := newHarness(t, llm.Offline{})
	s := NewSuite(h.deps)

	_, err := s.Pipeline.Run(context.Background(), PipelineInput{ProductID: "p", PatternID: "q", Platforms: []string{"friendster"}})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Empty(t, h.events(t))
}

func TestSuite_Registry(t *testing.T) {
	s := NewSuite(newHarness(t, llm.Offline{}).deps)
	assert.Equal(t, []string{EditorAgentName, PublishAgentName, ScriptAgentName}, s.Registry.Names())
	a, ok := s.Registry.Get(ScriptAgentName)
	require.True(t, ok)
	assert.Same(t, s.Script, a)
	_, ok = s.Registry.Get("nobody")
	assert.False(t, ok)
}
