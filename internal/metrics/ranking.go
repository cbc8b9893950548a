package metrics

import "sort"

// TopExperimentsLimit is how many experiments a ranking returns.
const TopExperimentsLimit = 5

// ExperimentScore is an experiment's average post score.
type ExperimentScore struct {
	ExperimentID string  `json:"experiment_id"`
	AverageScore float64 `json:"average_score"`
	Posts        int     `json:"posts"`
	Views        int64   `json:"views"`
	Engagement   int64   `json:"engagement"`
}

// TopExperiments groups scored posts by experiment, averages their scores
// and returns the best limit experiments, highest first. Posts with no
// experiment are skipped.
func TopExperiments(posts []PostScore, limit int) []ExperimentScore {
	type acc struct {
		sum float64
		ExperimentScore
	}
	groups := make(map[string]*acc)
	for _, p := range posts {
		if p.ExperimentID == "" {
			continue
		}
		a, ok := groups[p.ExperimentID]
		if !ok {
			a = &acc{ExperimentScore: ExperimentScore{ExperimentID: p.ExperimentID}}
			groups[p.ExperimentID] = a
		}
		a.sum += p.Score
		a.Posts++
		a.Views += p.Totals.Views
		a.Engagement += p.Totals.Engagement
	}
	out := make([]ExperimentScore, 0, len(groups))
	for _, a := range groups {
		a.AverageScore = a.sum / float64(a.Posts)
		out = append(out, a.ExperimentScore)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AverageScore != out[j].AverageScore {
			return out[i].AverageScore > out[j].AverageScore
		}
		return out[i].ExperimentID < out[j].ExperimentID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
