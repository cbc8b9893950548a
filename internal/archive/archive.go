// Package archive exports the event log to object storage as compressed
// JSONL and optionally prunes events past their retention.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/eventlog"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/storage"
)

// ContentType is the media type of uploaded archives.
const ContentType = "application/zstd"

// DefaultPrefix is the storage key prefix archives are written under.
const DefaultPrefix = "archive/events"

// Options configures an Archiver.
type Options struct {
	// Prefix is prepended to every archive key.
	Prefix string
	// Retention prunes events older than now-Retention after a successful
	// upload. Zero keeps everything.
	Retention time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

// Result describes one archive run.
type Result struct {
	Key    string `json:"key"`
	URL    string `json:"url"`
	Events int    `json:"events"`
	Bytes  int    `json:"bytes"`
	Pruned int64  `json:"pruned"`
}

// Archiver uploads snapshots of the event log.
type Archiver struct {
	log     *eventlog.Log
	backend storage.Backend
	opts    Options
}

// New returns an Archiver writing to backend.
func New(log *eventlog.Log, backend storage.Backend, opts Options) *Archiver {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = log.Now
	}
	return &Archiver{log: log, backend: backend, opts: opts}
}

// Key returns the object key for a snapshot taken at t.
func (a *Archiver) Key(t time.Time) string {
	return strings.TrimRight(a.opts.Prefix, "/") + "/events-" + t.UTC().Format("20060102T150405Z") + ".jsonl.zst"
}

// Run exports every event created before now, uploads the compressed
// archive, prunes past retention and records the outcome in the log.
// Pruning only ever removes events the uploaded archive contains.
func (a *Archiver) Run(ctx context.Context) (*Result, error) {
	now := a.opts.Now().UTC()
	res, err := a.run(ctx, now)
	if err != nil {
		a.record(ctx, "system.archive.error", model.SeverityError, map[string]any{"error": err.Error()})
		return nil, err
	}
	a.record(ctx, "system.archive.complete", model.SeverityInfo, res)
	return res, nil
}

func (a *Archiver) run(ctx context.Context, now time.Time) (*Result, error) {
	var buf bytes.Buffer
	n, err := ExportJSONL(ctx, a.log, &buf, Window{Until: &now}, now)
	if err != nil {
		return nil, err
	}
	data := Compress(buf.Bytes())
	key := a.Key(now)
	url, err := a.backend.Upload(ctx, data, key, ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload archive: %w", err)
	}
	res := &Result{Key: key, URL: url, Events: n, Bytes: len(data)}

	if a.opts.Retention > 0 {
		pruned, err := a.log.PruneBefore(ctx, now.Add(-a.opts.Retention))
		if err != nil {
			return nil, err
		}
		res.Pruned = pruned
	}
	return res, nil
}

func (a *Archiver) record(ctx context.Context, eventType string, sev model.Severity, payload any) {
	e := &model.Event{EventType: eventType, Severity: sev, AgentName: "archiver"}
	if data, err := json.Marshal(payload); err == nil {
		e.Payload = data
	}
	if _, err := a.log.Append(ctx, e); err != nil {
		a.opts.Logger.Warn("failed to record archive outcome", "event_type", eventType, "error", err)
	}
}
