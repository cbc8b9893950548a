package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/eventlog"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/llm"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/resilience"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/store"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/store/memory"
)

var t0 = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

const (
	primaryModel  = "primary"
	fallbackModel = "fallback"
)

type harness struct {
	store   *memory.Store
	log     *eventlog.Log
	backend *fakeBackend
	deps    Deps
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newHarness wires agents over an in-memory store with a ticking clock and
// sequential ids so event order is deterministic.
func newHarness(t *testing.T, provider llm.Provider) *harness {
	t.Helper()
	st := memory.New()
	return newHarnessWithStore(t, st, st, provider)
}

func newHarnessWithStore(t *testing.T, mem *memory.Store, st store.Store, provider llm.Provider) *harness {
	t.Helper()
	var mu sync.Mutex
	clock := t0
	n := 0
	log := eventlog.New(st,
		eventlog.WithLogger(quietLogger()),
		eventlog.WithClock(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Second)
			return clock
		}),
	)
	backend := &fakeBackend{}
	return &harness{
		store:   mem,
		log:     log,
		backend: backend,
		deps: Deps{
			Store:    st,
			Log:      log,
			Provider: provider,
			Storage:  backend,
			Logger:   quietLogger(),
			Models:   Models{Primary: primaryModel, Fallback: fallbackModel},
			UploadRetry: resilience.RetryOptions{
				Sleep: func(context.Context, time.Duration) error { return nil },
			},
			NewID: func() string {
				mu.Lock()
				defer mu.Unlock()
				n++
				return fmt.Sprintf("id-%03d", n)
			},
		},
	}
}

func (h *harness) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.store.CreateProduct(ctx, &model.Product{
		ID: "prod-1", Name: "Trail Mug", Category: "outdoor", Features: []string{"insulated"}, CreatedAt: t0,
	}))
	require.NoError(t, h.store.CreateCreativePattern(ctx, &model.CreativePattern{
		ID: "pat-1", Name: "Problem/Solution", HookStyle: "question", Tone: "playful", CreatedAt: t0,
	}))
	require.NoError(t, h.store.CreateTrendSnapshot(ctx, &model.TrendSnapshot{
		ID: "tr-1", Category: "outdoor", Keyword: "camp coffee", Popularity: 0.9, CapturedAt: t0,
	}))
}

func (h *harness) seedScript(t *testing.T) {
	t.Helper()
	h.seed(t)
	require.NoError(t, h.store.CreateScript(context.Background(), &model.Script{
		ID:    "scr-1", ProductID: "prod-1", PatternID: "pat-1",
		Title: "Mug life", Hook: "Cold coffee?", Body: "Not anymore.", CTA: "Buy now", Tone: "playful", CreatedAt: t0,
	}))
}

func (h *harness) seedAsset(t *testing.T) {
	t.Helper()
	h.seedScript(t)
	require.NoError(t, h.store.CreateVideoAsset(context.Background(), &model.VideoAsset{
		ID:              "asset-1", ScriptID: "scr-1", StorageURL: "https://cdn/x.mp4", StorageKey: "videos/x.mp4",
		DurationSeconds: 15, CreatedAt: t0,
	}))
}

// events returns every logged event oldest first.
func (h *harness) events(t *testing.T) []*model.Event {
	t.Helper()
	page, err := h.log.Query(context.Background(), model.EventFilter{Order: model.OrderAsc})
	require.NoError(t, err)
	return page.Events
}

func eventTypes(evts []*model.Event) []string {
	out := make([]string, len(evts))
	for i, e := range evts {
		out[i] = e.EventType
	}
	return out
}

func findEvent(evts []*model.Event, eventType string) *model.Event {
	for _, e := range evts {
		if e.EventType == eventType {
			return e
		}
	}
	return nil
}

func payloadOf(t *testing.T, e *model.Event) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(e.Payload, &m))
	return m
}

// fakeBackend fails the first failures uploads.
type fakeBackend struct {
	mu       sync.Mutex
	failures int
	calls    int
	keys     []string
	data     map[string][]byte
}

func (b *fakeBackend) Upload(_ context.Context, data []byte, key, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.calls <= b.failures {
		return "", fmt.Errorf("503 slow down (attempt %d)", b.calls)
	}
	if b.data == nil {
		b.data = make(map[string][]byte)
	}
	b.keys = append(b.keys, key)
	b.data[key] = data
	return "https://cdn.example.com/" + key, nil
}

const scriptJSON = `{"title":"Mug life","hook":"Cold coffee again?","body":"Trail Mug keeps it hot.","cta":"Shop now","outline":["hook","demo","cta"],"tone":"playful"}`

const planJSON = `{"duration_seconds":20,"thumbnail_url":"https://cdn/thumb.jpg","style":"Fast-Cut","tone":"Playful","beats":[{"at":0,"text":"Cold coffee?"},{"at":12,"text":"Shop now"}]}`
