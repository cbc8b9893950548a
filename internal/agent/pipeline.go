package agent

import (
	"context"
	"fmt"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/apperr"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
)

// PipelineName is the agent name stamped on workflow events.
const PipelineName = "pipeline"

// PipelineInput starts one script, render and publish run.
type PipelineInput struct {
	ProductID     string   `json:"product_id"`
	PatternID     string   `json:"pattern_id"`
	Platforms     []string `json:"platforms"`
	Variation     string   `json:"variation,omitempty"`
	Style         string   `json:"style,omitempty"`
	FailFast      bool     `json:"fail_fast,omitempty"`
	WorkflowID    string   `json:"workflow_id,omitempty"`
	CorrelationID string   `json:"correlation_id,omitempty"`
}

// PipelineResult is everything one run produced.
type PipelineResult struct {
	WorkflowID string            `json:"workflow_id"`
	Script     *model.Script     `json:"script,omitempty"`
	Asset      *model.VideoAsset `json:"asset,omitempty"`
	Publish    *PublishResult    `json:"publish,omitempty"`
}

// Pipeline chains the three agents under one workflow id.
type Pipeline struct {
	rt      *Runtime
	deps    Deps
	script  Agent
	editor  Agent
	publish Agent
}

// NewPipeline returns a Pipeline over the given agents.
func NewPipeline(deps Deps, script, editor, publish Agent) *Pipeline {
	return &Pipeline{
		rt:      deps.runtime(PipelineName),
		deps:    deps,
		script:  script,
		editor:  editor,
		publish: publish,
	}
}

// Run executes every stage in order. Each stage runs through its agent's
// Execute so it emits its own lifecycle events; the pipeline adds
// workflow.start and workflow.success or workflow.error around them. On
// failure the stages that completed are returned alongside the error.
func (p *Pipeline) Run(ctx context.Context, in PipelineInput) (*PipelineResult, error) {
	if in.ProductID == "" || in.PatternID == "" {
		return nil, apperr.Validation("product_id and pattern_id are required")
	}
	if _, err := NormalizePlatforms(in.Platforms); err != nil {
		return nil, err
	}
	if in.WorkflowID == "" {
		in.WorkflowID = p.deps.newID()
	}
	if in.CorrelationID == "" {
		in.CorrelationID = p.deps.newID()
	}
	ctx = WithRunContext(ctx, RunContext{WorkflowID: in.WorkflowID, CorrelationID: in.CorrelationID})
	runIDs := map[string]any{"workflow_id": in.WorkflowID, "correlation_id": in.CorrelationID}
	stageInput := func(fields map[string]any) map[string]any {
		for k, v := range runIDs {
			fields[k] = v
		}
		return fields
	}

	p.rt.emit(ctx, "workflow.start", map[string]any{
		"product_id": in.ProductID,
		"pattern_id": in.PatternID,
		"platforms":  in.Platforms,
	})

	res := &PipelineResult{WorkflowID: in.WorkflowID}
	fail := func(stage string, err error) (*PipelineResult, error) {
		nerr := apperr.Normalize(err)
		p.rt.emit(ctx, "workflow.error", map[string]any{
			"stage": stage,
			"error": nerr.Message,
			"kind":  nerr.Kind,
		})
		return res, nerr
	}

	out, err := p.script.Execute(ctx, stageInput(map[string]any{
		"product_id": in.ProductID,
		"pattern_id": in.PatternID,
	}))
	if err != nil {
		return fail("script", err)
	}
	script, ok := out.(*model.Script)
	if !ok {
		return fail("script", fmt.Errorf("script stage returned %T", out))
	}
	res.Script = script

	out, err = p.editor.Execute(ctx, stageInput(map[string]any{
		"script_id": script.ID,
		"style":     in.Style,
	}))
	if err != nil {
		return fail("render", err)
	}
	asset, ok := out.(*model.VideoAsset)
	if !ok {
		return fail("render", fmt.Errorf("render stage returned %T", out))
	}
	res.Asset = asset

	out, err = p.publish.Execute(ctx, stageInput(map[string]any{
		"asset_id":  asset.ID,
		"script_id": script.ID,
		"variation": in.Variation,
		"platforms": in.Platforms,
		"fail_fast": in.FailFast,
	}))
	if err != nil {
		return fail("publish", err)
	}
	pub, ok := out.(*PublishResult)
	if !ok {
		return fail("publish", fmt.Errorf("publish stage returned %T", out))
	}
	res.Publish = pub

	p.rt.emit(ctx, "workflow.success", map[string]any{
		"script_id": script.ID,
		"asset_id":  asset.ID,
		"published": pub.Published,
		"failed":    pub.Failed,
	})
	return res, nil
}

// Name implements Agent.
func (p *Pipeline) Name() string { return PipelineName }

// Execute implements Agent so the pipeline can be driven from the same
// surfaces as a single agent.
func (p *Pipeline) Execute(ctx context.Context, input map[string]any) (any, error) {
	var in PipelineInput
	if err := decodeInput(input, &in); err != nil {
		return nil, err
	}
	return p.Run(ctx, in)
}
