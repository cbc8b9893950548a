package metrics

import (
	"fmt"
	"time"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
)

// Granularity is the width of a metric bucket.
type Granularity string

const (
	Hour Granularity = "hour"
	Day  Granularity = "day"
	Week Granularity = "week"
)

// ParseGranularity parses hour, day or week. Empty means day.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case "":
		return Day, nil
	case Hour, Day, Week:
		return g, nil
	default:
		return "", fmt.Errorf("invalid granularity %q (want hour, day or week)", s)
	}
}

// Truncate returns the start of the bucket containing t, in UTC. Weeks
// start on Monday.
func (g Granularity) Truncate(t time.Time) time.Time {
	t = t.UTC()
	switch g {
	case Hour:
		return t.Truncate(time.Hour)
	case Week:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// Next returns the start of the bucket after the one starting at start.
func (g Granularity) Next(start time.Time) time.Time {
	switch g {
	case Hour:
		return start.Add(time.Hour)
	case Week:
		return start.AddDate(0, 0, 7)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// Bucket is the activity inside one time slot.
type Bucket struct {
	Start      time.Time `json:"bucket_start"`
	Views      int64     `json:"views"`
	Engagement int64     `json:"engagement"`
}

// Buckets returns a zero-valued bucket for every slot overlapping
// [start, end).
func Buckets(start, end time.Time, g Granularity) []Bucket {
	var out []Bucket
	for b := g.Truncate(start); b.Before(end); b = g.Next(b) {
		out = append(out, Bucket{Start: b})
	}
	return out
}

// CountBuckets returns len(Buckets(start, end, g)) without allocating.
func CountBuckets(start, end time.Time, g Granularity) int {
	n := 0
	for b := g.Truncate(start); b.Before(end); b = g.Next(b) {
		n++
	}
	return n
}

// Accumulate adds each metric's views and engagement to the bucket holding
// its RecordedAt. Metrics outside every bucket are ignored.
func Accumulate(buckets []Bucket, g Granularity, records []*model.PerformanceMetric) {
	index := make(map[int64]int, len(buckets))
	for i, b := range buckets {
		index[b.Start.Unix()] = i
	}
	for _, m := range records {
		i, ok := index[g.Truncate(m.RecordedAt).Unix()]
		if !ok {
			continue
		}
		buckets[i].Views += m.Views
		buckets[i].Engagement += m.Engagement()
	}
}
