package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Offline answers from templates without any network call. It backs local
// runs (`ace --memory` with no API key) so the whole pipeline can be driven
// end to end.
type Offline struct{}

// Invoke returns a canned JSON document for req.Task, filled in from the
// JSON prompt where possible.
func (Offline) Invoke(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewError(KindTimeout, req.Model, err)
	}
	var prompt map[string]any
	_ = json.Unmarshal([]byte(req.Prompt), &prompt)

	var out any
	switch req.Task {
	case "script":
		name := lookupString(prompt, "product", "name")
		if name == "" {
			name = "this product"
		}
		tone := lookupString(prompt, "pattern", "tone")
		if tone == "" {
			tone = "upbeat"
		}
		out = map[string]any{
			"title":   fmt.Sprintf("Why everyone is talking about %s", name),
			"hook":    fmt.Sprintf("Stop scrolling: %s fixes the thing you hate most.", name),
			"body":    fmt.Sprintf("Here is %s in action. Three seconds to set up, zero regrets.", name),
			"cta":     "Tap the link to grab yours.",
			"outline": []string{"hook", "problem", "demo", "cta"},
			"tone":    tone,
		}
	case "render_plan":
		title := lookupString(prompt, "script", "title")
		out = map[string]any{
			"duration_seconds": 15,
			"style":            "fast-cut",
			"tone":             lookupString(prompt, "script", "tone"),
			"beats": []map[string]any{
				{"at": 0, "text": lookupString(prompt, "script", "hook")},
				{"at": 5, "text": title},
				{"at": 12, "text": lookupString(prompt, "script", "cta")},
			},
		}
	default:
		return nil, NewError(KindUnsupportedParameter, req.Model, fmt.Errorf("offline provider has no template for task %q", req.Task))
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, NewError(KindProvider, req.Model, err)
	}
	return &Response{Model: req.Model, Text: string(data)}, nil
}

func lookupString(m map[string]any, path ...string) string {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = obj[key]
	}
	s, _ := cur.(string)
	return strings.TrimSpace(s)
}
