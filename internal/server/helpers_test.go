package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/agent"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/eventlog"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/llm"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/metrics"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/projection"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/resilience"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/storage"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/store/memory"
)

var t0 = time.Date(2024, 6, 7, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	store  *memory.Store
	log    *eventlog.Log
	server *Server
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv wires a Server over an in-memory store, the offline provider
// and local storage. The clock advances one second per reading.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := memory.New()
	var mu sync.Mutex
	clock := t0
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	log := eventlog.New(st, eventlog.WithLogger(quietLogger()), eventlog.WithClock(now))
	local, err := storage.NewLocal(t.TempDir(), "https://media.example.com")
	require.NoError(t, err)

	suite := agent.NewSuite(agent.Deps{
		Store:    st,
		Log:      log,
		Provider: llm.Offline{},
		Storage:  local,
		Logger:   quietLogger(),
		Models:   agent.Models{Primary: "offline"},
		UploadRetry: resilience.RetryOptions{
			Sleep: func(context.Context, time.Duration) error { return nil },
		},
	})
	proj := projection.New(log, projection.Options{Agents: suite.Registry.Names()})
	engine := metrics.NewEngine(log, st, proj, metrics.WithClock(now))
	return &testEnv{store: st, log: log, server: New(log, suite, proj, engine, quietLogger())}
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.store.CreateProduct(ctx, &model.Product{
		ID: "prod-1", Name: "Trail Mug", Category: "outdoor", CreatedAt: t0,
	}))
	require.NoError(t, e.store.CreateCreativePattern(ctx, &model.CreativePattern{
		ID: "pat-1", Name: "Problem/Solution", HookStyle: "question", Tone: "playful", CreatedAt: t0,
	}))
}

func (e *testEnv) append(t *testing.T, ev model.Event) *model.Event {
	t.Helper()
	stored, err := e.log.Append(context.Background(), &ev)
	require.NoError(t, err)
	return stored
}

// do sends a request through the full handler and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	e.server.NewHTTPHandler("").ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d; body: %s", want, rec.Code, rec.Body.String())
	}
}
