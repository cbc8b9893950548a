// Package render turns a render plan into media bytes. The only encoder
// shipped writes a placeholder container; real encoders plug in through
// Renderer.
package render

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ContentType is the media type of rendered output.
const ContentType = "video/mp4"

// MaxDurationSeconds bounds a short-form video.
const MaxDurationSeconds = 180

// Beat is one timed caption or shot in the plan.
type Beat struct {
	At     float64 `json:"at"`
	Text   string  `json:"text"`
	Visual string  `json:"visual,omitempty"`
}

// Plan describes the video to render.
type Plan struct {
	StoragePath     string  `json:"storage_path,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	ThumbnailURL    string  `json:"thumbnail_url,omitempty"`
	Style           string  `json:"style,omitempty"`
	Tone            string  `json:"tone,omitempty"`
	Beats           []Beat  `json:"beats,omitempty"`
}

// Validate checks the plan is renderable.
func (p *Plan) Validate() error {
	if p.DurationSeconds <= 0 || p.DurationSeconds > MaxDurationSeconds {
		return fmt.Errorf("duration_seconds must be in (0, %d], got %v", MaxDurationSeconds, p.DurationSeconds)
	}
	if err := validStoragePath(p.StoragePath); err != nil {
		return err
	}
	for i, b := range p.Beats {
		if b.At < 0 || b.At > p.DurationSeconds {
			return fmt.Errorf("beat %d at %vs is outside the video", i, b.At)
		}
	}
	return nil
}

// validStoragePath accepts an empty path or a relative slash-separated path
// with no empty, "." or ".." segments.
func validStoragePath(p string) error {
	if p == "" {
		return nil
	}
	if strings.HasPrefix(p, "/") || strings.ContainsAny(p, "\\\x00") {
		return fmt.Errorf("storage_path %q must be a relative slash-separated path", p)
	}
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".", "..":
			return fmt.Errorf("storage_path %q has an invalid segment", p)
		}
	}
	return nil
}

// Renderer produces media bytes for a plan.
type Renderer interface {
	Render(ctx context.Context, plan Plan) ([]byte, error)
}

// Encoder writes a placeholder MP4: an ftyp box followed by a free box that
// carries the plan as JSON. Players reject it, but it has the right shape
// for storage and downstream bookkeeping.
type Encoder struct{}

var _ Renderer = Encoder{}

// Render implements Renderer.
func (e Encoder) Render(ctx context.Context, plan Plan) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.RenderPlaceholder(plan)
}

// RenderPlaceholder encodes plan into placeholder bytes.
func (Encoder) RenderPlaceholder(plan Plan) ([]byte, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("encode plan: %w", err)
	}
	var buf bytes.Buffer
	writeBox(&buf, "ftyp", append([]byte("isom\x00\x00\x02\x00"), []byte("isomiso2mp41")...))
	writeBox(&buf, "free", payload)
	return buf.Bytes(), nil
}

func writeBox(buf *bytes.Buffer, kind string, body []byte) {
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(8+len(body)))
	buf.Write(size[:])
	buf.WriteString(kind)
	buf.Write(body)
}

// DecodePlaceholder recovers the plan from placeholder bytes.
func DecodePlaceholder(data []byte) (*Plan, error) {
	for len(data) >= 8 {
		size := int(binary.BigEndian.Uint32(data[:4]))
		if size < 8 || size > len(data) {
			return nil, errors.New("corrupt box header")
		}
		if string(data[4:8]) == "free" {
			var p Plan
			if err := json.Unmarshal(data[8:size], &p); err != nil {
				return nil, fmt.Errorf("decode plan: %w", err)
			}
			return &p, nil
		}
		data = data[size:]
	}
	return nil, errors.New("no plan box")
}
