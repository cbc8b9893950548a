package metrics

// Trend is the direction of a metric between two periods.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// DefaultTrendThreshold is the relative change that counts as movement.
const DefaultTrendThreshold = 0.1

// PercentChange returns (current-previous)/previous*100, or 0 when
// previous is 0.
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) * 100 / previous
}

// ClassifyTrend reports up when current grew by at least threshold
// relative to previous, down when it shrank by at least threshold, and
// stable otherwise. With no previous activity any current activity is up.
func ClassifyTrend(current, previous, threshold float64) Trend {
	if previous == 0 {
		if current > 0 {
			return TrendUp
		}
		return TrendStable
	}
	change := (current - previous) / previous
	switch {
	case change >= threshold:
		return TrendUp
	case change <= -threshold:
		return TrendDown
	default:
		return TrendStable
	}
}
