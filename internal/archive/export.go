package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/eventlog"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
)

// FormatVersion is written into every archive header.
const FormatVersion = "1"

// Header is the first JSONL record of an archive.
type Header struct {
	Version    string     `json:"version"`
	Type       string     `json:"type"`
	Timestamp  time.Time  `json:"timestamp"`
	EventCount int        `json:"event_count"`
	Since      *time.Time `json:"since,omitempty"`
	Until      *time.Time `json:"until,omitempty"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Window limits an export to events created in [Since, Until).
type Window struct {
	Since *time.Time
	Until *time.Time
}

// ExportJSONL writes a header line and then every event in window, oldest
// first, one JSON object per line. It returns the number of events written.
func ExportJSONL(ctx context.Context, log *eventlog.Log, w io.Writer, window Window, now time.Time) (int, error) {
	var evts []*model.Event
	filter := model.EventFilter{Since: window.Since, Until: window.Until, Order: model.OrderAsc}
	if err := log.Scan(ctx, filter, func(e *model.Event) error {
		evts = append(evts, e)
		return nil
	}); err != nil {
		return 0, fmt.Errorf("scan events: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(Header{
		Version:    FormatVersion,
		Type:       "header",
		Timestamp:  now.UTC(),
		EventCount: len(evts),
		Since:      window.Since,
		Until:      window.Until,
	}); err != nil {
		return 0, fmt.Errorf("encode header: %w", err)
	}

	for _, e := range evts {
		data, err := json.Marshal(e)
		if err != nil {
			return 0, fmt.Errorf("encode event %s: %w", e.ID, err)
		}
		if err := enc.Encode(record{Type: "event", Data: data}); err != nil {
			return 0, fmt.Errorf("encode event %s: %w", e.ID, err)
		}
	}
	return len(evts), nil
}

// ReadJSONL parses an archive written by ExportJSONL.
func ReadJSONL(r io.Reader) (*Header, []*model.Event, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var h *Header
	var evts []*model.Event
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		if h == nil {
			h = &Header{}
			if err := json.Unmarshal(sc.Bytes(), h); err != nil {
				return nil, nil, fmt.Errorf("line %d: decode header: %w", line, err)
			}
			if h.Type != "header" {
				return nil, nil, fmt.Errorf("line %d: expected header, got %q", line, h.Type)
			}
			continue
		}
		var rec record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		if rec.Type != "event" {
			continue
		}
		var e model.Event
		if err := json.Unmarshal(rec.Data, &e); err != nil {
			return nil, nil, fmt.Errorf("line %d: decode event: %w", line, err)
		}
		evts = append(evts, &e)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	if h == nil {
		return nil, nil, errors.New("archive is empty")
	}
	return h, evts, nil
}
