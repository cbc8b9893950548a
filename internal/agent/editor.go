package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/apperr"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/idgen"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/llm"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/render"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/resilience"
)

// EditorAgentName is the agent name stamped on render and upload events.
const EditorAgentName = "editor"

const (
	uploadAttempts  = 3
	uploadBaseDelay = 500 * time.Millisecond
	renderMaxTokens = 800
)

const renderSystemPrompt = `You plan short-form product videos.
Answer with a single JSON object with the keys duration_seconds, thumbnail_url, style, tone and beats
(an array of objects with at, text and visual).`

// EditorInput is the input of the render agent.
type EditorInput struct {
	ScriptID string `json:"script_id"`
	Style    string `json:"style,omitempty"`
}

// EditorAgent renders a script into a video asset and uploads it.
type EditorAgent struct {
	rt       *Runtime
	deps     Deps
	chain    resilience.Chain
	renderer render.Renderer
	retry    resilience.RetryOptions
}

// NewEditorAgent returns an EditorAgent.
func NewEditorAgent(deps Deps) *EditorAgent {
	rt := deps.runtime(EditorAgentName)
	a := &EditorAgent{
		rt:       rt,
		deps:     deps,
		chain:    deps.chain(rt),
		renderer: deps.Renderer,
		retry:    deps.UploadRetry,
	}
	if a.renderer == nil {
		a.renderer = render.Encoder{}
	}
	if a.retry.MaxAttempts == 0 {
		a.retry.MaxAttempts = uploadAttempts
	}
	if a.retry.BaseDelay == 0 {
		a.retry.BaseDelay = uploadBaseDelay
	}
	return a
}

// Name implements Agent.
func (a *EditorAgent) Name() string { return EditorAgentName }

// Runtime exposes the agent's lifecycle runtime.
func (a *EditorAgent) Runtime() *Runtime { return a.rt }

// Execute implements Agent. The output is the persisted *model.VideoAsset.
func (a *EditorAgent) Execute(ctx context.Context, input map[string]any) (any, error) {
	return a.rt.Execute(ctx, input, func(ctx context.Context, input map[string]any) (any, error) {
		var in EditorInput
		if err := decodeInput(input, &in); err != nil {
			return nil, err
		}
		return a.Render(ctx, in)
	})
}

// Render plans, renders, uploads and records a video for a script.
func (a *EditorAgent) Render(ctx context.Context, in EditorInput) (*model.VideoAsset, error) {
	in.ScriptID = strings.TrimSpace(in.ScriptID)
	if in.ScriptID == "" {
		return nil, apperr.Validation("script_id is required")
	}

	a.rt.emit(ctx, "video.render.start", map[string]any{"script_id": in.ScriptID})
	script, plan, media, err := a.render(ctx, in)
	if err != nil {
		a.rt.emit(ctx, "video.render.error", map[string]any{"script_id": in.ScriptID, "error": err.Error()})
		return nil, a.rt.HandleError(ctx, "video.render", err)
	}
	a.rt.emit(ctx, "video.render.success", map[string]any{
		"script_id":        in.ScriptID,
		"duration_seconds": plan.DurationSeconds,
		"bytes":            len(media),
	})

	// Keys always live under the script's directory; a planned path only
	// names the file.
	var key string
	if plan.StoragePath != "" {
		key = path.Join("videos", script.ID, path.Base(plan.StoragePath))
	} else if key, err = idgen.ObjectKey("videos/"+script.ID, ".mp4"); err != nil {
		return nil, a.rt.HandleError(ctx, "video.assets", err)
	}
	a.rt.emit(ctx, "video.assets.start", map[string]any{"script_id": script.ID, "storage_key": key})
	asset, err := a.upload(ctx, script, plan, media, key)
	if err != nil {
		a.rt.emit(ctx, "video.assets.error", map[string]any{
			"script_id":   script.ID,
			"storage_key": key,
			"error":       err.Error(),
		})
		return nil, a.rt.HandleError(ctx, "video.assets", err)
	}
	a.rt.emit(ctx, "video.assets.success", map[string]any{
		"script_id":   script.ID,
		"asset_id":    asset.ID,
		"storage_url": asset.StorageURL,
	})
	return asset, nil
}

func (a *EditorAgent) render(ctx context.Context, in EditorInput) (*model.Script, *render.Plan, []byte, error) {
	script, err := a.deps.Store.GetScript(ctx, in.ScriptID)
	if err != nil {
		return nil, nil, nil, lookupErr("script", in.ScriptID, err)
	}

	prompt, err := json.Marshal(map[string]any{
		"script": map[string]any{
			"title":   script.Title,
			"hook":    script.Hook,
			"body":    script.Body,
			"cta":     script.CTA,
			"outline": script.Outline,
			"tone":    script.Tone,
		},
		"style": in.Style,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode render prompt: %w", err)
	}
	maxTokens := a.deps.Models.MaxTokens
	if maxTokens <= 0 {
		maxTokens = renderMaxTokens
	}
	req := llm.Request{
		Task:        "render_plan",
		System:      renderSystemPrompt,
		Prompt:      string(prompt),
		MaxTokens:   maxTokens,
		Temperature: a.deps.Models.Temperature,
	}
	plan, _, err := resilience.Invoke(ctx, a.chain, req, parseRenderPlan)
	if err != nil {
		return nil, nil, nil, err
	}
	if plan.Style == "" {
		plan.Style = in.Style
	}

	media, err := a.renderer.Render(ctx, *plan)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("render video: %w", err)
	}
	return script, plan, media, nil
}

func (a *EditorAgent) upload(ctx context.Context, script *model.Script, plan *render.Plan, media []byte, key string) (*model.VideoAsset, error) {
	opts := a.retry
	opts.OnRetry = func(ctx context.Context, attempt int, err error) {
		a.rt.emit(ctx, "system.retry", map[string]any{
			"operation":    "upload",
			"storage_key":  key,
			"attempt":      attempt,
			"max_attempts": opts.MaxAttempts,
			"error":        err.Error(),
		}, WithSeverity(model.SeverityWarning))
	}
	url, err := resilience.Retry(ctx, func(ctx context.Context) (string, error) {
		return a.deps.Storage.Upload(ctx, media, key, render.ContentType)
	}, opts)
	if err != nil {
		return nil, err
	}

	beats, err := json.Marshal(plan.Beats)
	if err != nil {
		return nil, fmt.Errorf("encode beats: %w", err)
	}
	asset := &model.VideoAsset{
		ID:              a.deps.newID(),
		ScriptID:        script.ID,
		StorageURL:      url,
		StorageKey:      key,
		ThumbnailURL:    plan.ThumbnailURL,
		DurationSeconds: plan.DurationSeconds,
		StyleTags:       StyleTags(plan, script),
		Beats:           beats,
		CreatedAt:       a.deps.Log.Now(),
	}
	if err := a.deps.Store.CreateVideoAsset(ctx, asset); err != nil {
		return nil, apperr.Persistence("create video asset", err)
	}
	return asset, nil
}

func parseRenderPlan(modelName, text string) (*render.Plan, error) {
	var p render.Plan
	if err := llm.DecodeJSON(modelName, text, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, llm.NewError(llm.KindMalformedOutput, modelName, err)
	}
	return &p, nil
}

// StyleTags derives lowercase, de-duplicated tags from a plan's style and
// tone, the script's tone and a length class.
func StyleTags(plan *render.Plan, script *model.Script) []string {
	var tags []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		tags = append(tags, s)
	}
	add(plan.Style)
	add(plan.Tone)
	if script != nil {
		add(script.Tone)
	}
	switch {
	case plan.DurationSeconds <= 15:
		add("short")
	case plan.DurationSeconds <= 60:
		add("medium")
	default:
		add("long")
	}
	return tags
}
