package llm

import (
	"context"
	"fmt"
	"sync"
)

// Step is one canned reply from a Scripted provider.
type Step struct {
	Text string
	Err  error
}

// Scripted replays canned steps per model and records every request. Tests
// use it to drive the fallback chain deterministically.
type Scripted struct {
	mu    sync.Mutex
	steps map[string][]Step
	calls []Request
}

// NewScripted returns an empty Scripted provider.
func NewScripted() *Scripted {
	return &Scripted{steps: make(map[string][]Step)}
}

// On queues steps for model.
func (s *Scripted) On(model string, steps ...Step) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps[model] = append(s.steps[model], steps...)
	return s
}

// Invoke pops the next step queued for req.Model.
func (s *Scripted) Invoke(ctx context.Context, req Request) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	if err := ctx.Err(); err != nil {
		return nil, NewError(KindTimeout, req.Model, err)
	}
	queue := s.steps[req.Model]
	if len(queue) == 0 {
		return nil, NewError(KindProvider, req.Model, fmt.Errorf("no scripted response left"))
	}
	step := queue[0]
	s.steps[req.Model] = queue[1:]
	if step.Err != nil {
		return nil, step.Err
	}
	return &Response{Model: req.Model, Text: step.Text}, nil
}

// Calls returns a copy of the requests seen so far.
func (s *Scripted) Calls() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.calls...)
}
