package resilience

import (
	"context"
	"errors"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/apperr"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/llm"
)

// Chain invokes a primary model and, for retryable failures, exactly one
// fallback model with a reduced token budget.
type Chain struct {
	Provider llm.Provider
	Primary  string
	Fallback string
	// FallbackMaxTokens caps the fallback request. Zero halves the primary
	// request's budget.
	FallbackMaxTokens int64
	// OnFallback runs before the fallback call.
	OnFallback func(ctx context.Context, kind llm.ErrorKind, primaryErr error)
}

// Invoke sends req to the primary model and hands the text to parse. A parse
// failure counts as malformed output. The returned string is the model that
// produced the accepted answer.
func Invoke[T any](ctx context.Context, c Chain, req llm.Request, parse func(model, text string) (T, error)) (T, string, error) {
	var zero T

	primaryReq := req
	primaryReq.Model = c.Primary
	v, err := attempt(ctx, c.Provider, primaryReq, parse)
	if err == nil {
		return v, c.Primary, nil
	}

	kind := llm.KindOf(err)
	if !kind.Retryable() || c.Fallback == "" || c.Fallback == c.Primary {
		return zero, "", apperr.ModelInvocation(c.Primary, err)
	}

	if c.OnFallback != nil {
		c.OnFallback(ctx, kind, err)
	}

	fallbackReq := primaryReq
	fallbackReq.Model = c.Fallback
	fallbackReq.MaxTokens = c.fallbackBudget(req.MaxTokens)
	if kind == llm.KindUnsupportedParameter {
		fallbackReq = fallbackReq.WithoutTemperature()
	}

	v, ferr := attempt(ctx, c.Provider, fallbackReq, parse)
	if ferr != nil {
		return zero, "", &FallbackFailedError{
			PrimaryModel:    c.Primary,
			FallbackModel:   c.Fallback,
			PrimaryMessage:  err.Error(),
			FallbackMessage: ferr.Error(),
			Fallback:        ferr,
		}
	}
	return v, c.Fallback, nil
}

func (c Chain) fallbackBudget(primary int64) int64 {
	if c.FallbackMaxTokens > 0 {
		return c.FallbackMaxTokens
	}
	if primary > 1 {
		return primary / 2
	}
	return primary
}

func attempt[T any](ctx context.Context, p llm.Provider, req llm.Request, parse func(model, text string) (T, error)) (T, error) {
	var zero T
	resp, err := p.Invoke(ctx, req)
	if err != nil {
		return zero, err
	}
	v, err := parse(req.Model, resp.Text)
	if err != nil {
		var le *llm.Error
		if !errors.As(err, &le) {
			err = llm.NewError(llm.KindMalformedOutput, req.Model, err)
		}
		return zero, err
	}
	return v, nil
}
