package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/apperr"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/llm"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/resilience"
)

// ScriptAgentName is the agent name stamped on script generation events.
const ScriptAgentName = "scriptwriter"

const (
	defaultTrendLimit = 10
	scriptMaxTokens   = 1200
)

const scriptSystemPrompt = `You write short-form video scripts for product marketing.
Answer with a single JSON object with the keys title, hook, body, cta, outline (array of strings) and tone.`

// ScriptInput is the input of the script generation agent.
type ScriptInput struct {
	ProductID string `json:"product_id"`
	PatternID string `json:"pattern_id"`
}

// ScriptAgent drafts a script for a product following a creative pattern.
type ScriptAgent struct {
	rt         *Runtime
	deps       Deps
	chain      resilience.Chain
	trendLimit int
}

// NewScriptAgent returns a ScriptAgent.
func NewScriptAgent(deps Deps) *ScriptAgent {
	rt := deps.runtime(ScriptAgentName)
	return &ScriptAgent{
		rt:         rt,
		deps:       deps,
		chain:      deps.chain(rt),
		trendLimit: defaultTrendLimit,
	}
}

// Name implements Agent.
func (a *ScriptAgent) Name() string { return ScriptAgentName }

// Runtime exposes the agent's lifecycle runtime.
func (a *ScriptAgent) Runtime() *Runtime { return a.rt }

// Execute implements Agent. The output is the persisted *model.Script.
func (a *ScriptAgent) Execute(ctx context.Context, input map[string]any) (any, error) {
	return a.rt.Execute(ctx, input, func(ctx context.Context, input map[string]any) (any, error) {
		var in ScriptInput
		if err := decodeInput(input, &in); err != nil {
			return nil, err
		}
		return a.Generate(ctx, in)
	})
}

type scriptDraft struct {
	Title   string   `json:"title"`
	Hook    string   `json:"hook"`
	Body    string   `json:"body"`
	CTA     string   `json:"cta"`
	Outline []string `json:"outline"`
	Tone    string   `json:"tone"`
}

// Generate runs the script generation steps. It is normally reached through
// Execute, which supplies the lifecycle events.
func (a *ScriptAgent) Generate(ctx context.Context, in ScriptInput) (*model.Script, error) {
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.PatternID = strings.TrimSpace(in.PatternID)
	if in.ProductID == "" || in.PatternID == "" {
		return nil, apperr.Validation("product_id and pattern_id are required")
	}

	ids := map[string]any{"product_id": in.ProductID, "pattern_id": in.PatternID}
	a.rt.emit(ctx, "script.generate.start", ids)

	script, err := a.generate(ctx, in)
	if err != nil {
		payload := map[string]any{"product_id": in.ProductID, "pattern_id": in.PatternID, "error": err.Error()}
		a.rt.emit(ctx, "script.generate.error", payload)
		return nil, a.rt.HandleError(ctx, "script.generate", err)
	}

	a.rt.emit(ctx, "script.generate.success", map[string]any{
		"product_id": in.ProductID,
		"pattern_id": in.PatternID,
		"script_id":  script.ID,
		"title":      script.Title,
	})
	return script, nil
}

func (a *ScriptAgent) generate(ctx context.Context, in ScriptInput) (*model.Script, error) {
	product, err := a.deps.Store.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, lookupErr("product", in.ProductID, err)
	}
	pattern, err := a.deps.Store.GetCreativePattern(ctx, in.PatternID)
	if err != nil {
		return nil, lookupErr("creative pattern", in.PatternID, err)
	}

	var trends []*model.TrendSnapshot
	if product.Category != "" {
		trends, err = a.deps.Store.ListTrendSnapshots(ctx, product.Category, a.trendLimit)
		if err != nil {
			return nil, apperr.Persistence("load trend snapshots", err)
		}
	}

	prompt, err := scriptPrompt(product, pattern, trends)
	if err != nil {
		return nil, err
	}
	req := llm.Request{
		Task:        "script",
		System:      scriptSystemPrompt,
		Prompt:      prompt,
		MaxTokens:   a.maxTokens(),
		Temperature: a.deps.Models.Temperature,
	}
	draft, modelUsed, err := resilience.Invoke(ctx, a.chain, req, parseScriptDraft)
	if err != nil {
		return nil, err
	}

	script := &model.Script{
		ID:        a.deps.newID(),
		ProductID: product.ID,
		PatternID: pattern.ID,
		Title:     draft.Title,
		Hook:      draft.Hook,
		Body:      draft.Body,
		CTA:       draft.CTA,
		Outline:   draft.Outline,
		Tone:      firstNonEmpty(draft.Tone, pattern.Tone),
		CreatedAt: a.deps.Log.Now(),
	}
	if err := a.deps.Store.CreateScript(ctx, script); err != nil {
		return nil, apperr.Persistence("create script", err)
	}

	note := &model.AgentNote{
		ID:         a.deps.newID(),
		AgentName:  ScriptAgentName,
		Topic:      "script_inputs",
		Content:    noteContent(product, pattern, trends, modelUsed),
		Importance: 0.5,
		RelatedIDs: []string{script.ID, product.ID, pattern.ID},
		CreatedAt:  a.deps.Log.Now(),
	}
	if err := a.deps.Store.CreateAgentNote(ctx, note); err != nil {
		return nil, apperr.Persistence("create agent note", err)
	}
	return script, nil
}

func (a *ScriptAgent) maxTokens() int64 {
	if a.deps.Models.MaxTokens > 0 {
		return a.deps.Models.MaxTokens
	}
	return scriptMaxTokens
}

func scriptPrompt(p *model.Product, pat *model.CreativePattern, trends []*model.TrendSnapshot) (string, error) {
	type trend struct {
		Keyword    string  `json:"keyword"`
		Popularity float64 `json:"popularity"`
	}
	ts := make([]trend, 0, len(trends))
	for _, t := range trends {
		ts = append(ts, trend{Keyword: t.Keyword, Popularity: t.Popularity})
	}
	payload := map[string]any{
		"product": map[string]any{
			"name":        p.Name,
			"description": p.Description,
			"category":    p.Category,
			"price":       p.Price,
			"audience":    p.Audience,
			"features":    p.Features,
		},
		"pattern": map[string]any{
			"name":       pat.Name,
			"hook_style": pat.HookStyle,
			"structure":  pat.Structure,
			"tone":       pat.Tone,
			"notes":      pat.Notes,
		},
		"trends": ts,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode script prompt: %w", err)
	}
	return string(data), nil
}

func parseScriptDraft(modelName, text string) (*scriptDraft, error) {
	var d scriptDraft
	if err := llm.DecodeJSON(modelName, text, &d); err != nil {
		return nil, err
	}
	if err := model.ValidateScript(&model.Script{Title: d.Title, Hook: d.Hook, Body: d.Body}); err != nil {
		return nil, llm.NewError(llm.KindMalformedOutput, modelName, err)
	}
	return &d, nil
}

func noteContent(p *model.Product, pat *model.CreativePattern, trends []*model.TrendSnapshot, modelUsed string) string {
	keywords := make([]string, 0, len(trends))
	for _, t := range trends {
		keywords = append(keywords, t.Keyword)
	}
	trendText := "none"
	if len(keywords) > 0 {
		trendText = strings.Join(keywords, ", ")
	}
	return fmt.Sprintf("Script for %q using pattern %q. Trends: %s. Model: %s.", p.Name, pat.Name, trendText, modelUsed)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
