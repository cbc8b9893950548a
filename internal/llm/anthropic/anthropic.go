// Package anthropic adapts the Anthropic messages API to llm.Provider.
package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/llm"
)

// defaultMaxTokens is sent when the request leaves MaxTokens unset; the
// messages API requires it.
const defaultMaxTokens = 1024

// Options configures the client.
type Options struct {
	APIKey     string
	BaseURL    string
	MaxRetries int
}

// Provider calls the messages API.
type Provider struct {
	client *anthropic.Client
}

var _ llm.Provider = (*Provider)(nil)

// New builds a Provider. An empty APIKey falls back to ANTHROPIC_API_KEY.
func New(optFns ...func(o *Options)) *Provider {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	clientOpts = append(clientOpts, option.WithMaxRetries(opts.MaxRetries))
	client := anthropic.NewClient(clientOpts...)
	return NewFromClient(&client)
}

// NewFromClient wraps an existing client.
func NewFromClient(client *anthropic.Client) *Provider {
	return &Provider{client: client}
}

// Invoke sends one user turn and concatenates the text blocks of the reply.
func (p *Provider) Invoke(ctx context.Context, req llm.Request) (*llm.Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classify(req.Model, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}
	if text.Len() == 0 {
		return nil, llm.NewError(llm.KindMalformedOutput, req.Model, errors.New("response has no text content"))
	}
	return &llm.Response{Model: string(resp.Model), Text: text.String()}, nil
}

func classify(model string, err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return llm.NewError(llm.ClassifyHTTP(apiErr.StatusCode, apiErr.Error()), model, err)
	}
	return llm.NewError(llm.KindOf(err), model, err)
}
