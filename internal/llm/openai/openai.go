// Package openai adapts the OpenAI chat completions API to llm.Provider.
package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/llm"
)

// Options configures the client.
type Options struct {
	APIKey     string
	BaseURL    string
	MaxRetries int
}

// Provider calls chat completions.
type Provider struct {
	client *openai.Client
}

var _ llm.Provider = (*Provider)(nil)

// New builds a Provider. An empty APIKey falls back to OPENAI_API_KEY.
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
	client := openai.NewClient(clientOpts...)
	return NewFromClient(&client)
}

// NewFromClient wraps an existing client.
func NewFromClient(client *openai.Client) *Provider {
	return &Provider{client: client}
}

// Invoke sends one system + user turn and returns the first choice.
func (p *Provider) Invoke(ctx context.Context, req llm.Request) (*llm.Response, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    req.Model,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(req.MaxTokens)
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classify(req.Model, err)
	}
	if len(resp.Choices) == 0 {
		return nil, llm.NewError(llm.KindMalformedOutput, req.Model, errors.New("response has no choices"))
	}
	return &llm.Response{Model: resp.Model, Text: resp.Choices[0].Message.Content}, nil
}

func classify(model string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return llm.NewError(llm.ClassifyHTTP(apiErr.StatusCode, apiErr.Error()), model, err)
	}
	return llm.NewError(llm.KindOf(err), model, err)
}
