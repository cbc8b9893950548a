package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// DecodeJSON extracts the JSON object in text and unmarshals it into v.
// Models often wrap JSON in a markdown fence or a sentence of preamble; both
// are tolerated. Failures are tagged KindMalformedOutput.
func DecodeJSON(model, text string, v any) error {
	body := strings.TrimSpace(text)
	if i := strings.Index(body, "```"); i >= 0 {
		body = body[i+3:]
		body = strings.TrimPrefix(body, "json")
		if j := strings.Index(body, "```"); j >= 0 {
			body = body[:j]
		}
	}
	start := strings.IndexByte(body, '{')
	end := strings.LastIndexByte(body, '}')
	if start < 0 || end < start {
		return NewError(KindMalformedOutput, model, errors.New("no JSON object in model output"))
	}
	if err := json.Unmarshal([]byte(body[start:end+1]), v); err != nil {
		return NewError(KindMalformedOutput, model, err)
	}
	return nil
}
