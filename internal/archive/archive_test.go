package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/eventlog"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/storage"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/store/memory"
)

var now = time.Date(2024, 6, 7, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// logClock is what the test log stamps on the next append.
var logClock = now

func newLog(t *testing.T) *eventlog.Log {
	t.Helper()
	logClock = now
	return eventlog.New(memory.New(), eventlog.WithLogger(quietLogger()), eventlog.WithClock(func() time.Time { return logClock }))
}

func seed(t *testing.T, l *eventlog.Log, ages ...time.Duration) {
	t.Helper()
	defer func() { logClock = now }()
	for i, age := range ages {
		logClock = now.Add(-age)
		_, err := l.Append(context.Background(), &model.Event{
			EventType: "agent.start",
			AgentName: "editor",
			Message:   strings.Repeat("x", i+1),
		})
		require.NoError(t, err)
	}
}

func TestExportJSONL_RoundTrip(t *testing.T) {
	l := newLog(t)
	seed(t, l, 3*time.Hour, time.Hour, 2*time.Hour)

	var buf bytes.Buffer
	n, err := ExportJSONL(context.Background(), l, &buf, Window{}, now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	h, evts, err := ReadJSONL(&buf)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, h.Version)
	assert.Equal(t, 3, h.EventCount)
	assert.Equal(t, now, h.Timestamp)
	require.Len(t, evts, 3)
	for i := 1; i < len(evts); i++ {
		assert.True(t, evts[i-1].CreatedAt.Before(evts[i].CreatedAt), "oldest first")
	}
}

func TestExportJSONL_Empty(t *testing.T) {
	var buf bytes.Buffer
	n, err := ExportJSONL(context.Background(), newLog(t), &buf, Window{}, now)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestReadJSONL_Errors(t *testing.T) {
	_, _, err := ReadJSONL(strings.NewReader(""))
	assert.Error(t, err)
	_, _, err = ReadJSONL(strings.NewReader(`{"type":"event","data":{}}` + "\n"))
	assert.Error(t, err)
}

func TestCompressRoundTrip(t *testing.T) {
	in := bytes.Repeat([]byte(`{"type":"event"}`+"\n"), 200)
	c := Compress(in)
	assert.Less(t, len(c), len(in))
	out, err := Decompress(c)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = Decompress([]byte("not zstd"))
	assert.Error(t, err)
}

func TestArchiver_RunUploadsAndPrunes(t *testing.T) {
	l := newLog(t)
	seed(t, l, 72*time.Hour, 30*time.Hour, time.Hour)
	dir := t.TempDir()
	backend, err := storage.NewLocal(dir, "")
	require.NoError(t, err)

	a := New(l, backend, Options{Retention: 48 * time.Hour, Logger: quietLogger()})
	res, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "archive/events/events-20240607T120000Z.jsonl.zst", res.Key)
	assert.Equal(t, 3, res.Events)
	assert.Equal(t, int64(1), res.Pruned)

	raw, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(res.Key)))
	require.NoError(t, err)
	plain, err := Decompress(raw)
	require.NoError(t, err)
	_, evts, err := ReadJSONL(bytes.NewReader(plain))
	require.NoError(t, err)
	assert.Len(t, evts, 3)

	page, err := l.Query(context.Background(), model.EventFilter{Order: model.OrderAsc})
	require.NoError(t, err)
	require.Len(t, page.Events, 3, "two kept plus the archive record")
	last := page.Events[len(page.Events)-1]
	assert.Equal(t, "system.archive.complete", last.EventType)
	assert.Equal(t, model.CategorySystem, last.Category)
}

type failingBackend struct{}

func (failingBackend) Upload(context.Context, []byte, string, string) (string, error) {
	return "", errors.New("bucket unreachable")
}

func TestArchiver_UploadFailureKeepsEvents(t *testing.T) {
	l := newLog(t)
	seed(t, l, 72*time.Hour)

	_, err := New(l, failingBackend{}, Options{Retention: time.Hour, Logger: quietLogger()}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unreachable")

	page, err := l.Query(context.Background(), model.EventFilter{Order: model.OrderAsc})
	require.NoError(t, err)
	require.Len(t, page.Events, 2)
	assert.Equal(t, "system.archive.error", page.Events[1].EventType)
	assert.Equal(t, model.SeverityError, page.Events[1].Severity)
}

type countingRunner struct {
	runs atomic.Int64
}

func (r *countingRunner) Run(context.Context) (*Result, error) {
	r.runs.Add(1)
	return &Result{Key: "k"}, nil
}

func TestSchedulerStartStop(t *testing.T) {
	r := &countingRunner{}
	sched := NewScheduler(r, 50*time.Millisecond, quietLogger())
	sched.Start()

	// Wait for at least the initial run + one tick.
	time.Sleep(120 * time.Millisecond)
	sched.Stop()

	if runs := r.runs.Load(); runs < 2 {
		t.Fatalf("expected at least 2 runs, got %d", runs)
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	sched := NewScheduler(&countingRunner{}, time.Minute, quietLogger())
	// Stop without Start should not panic.
	sched.Stop()
}
