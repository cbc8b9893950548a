package metrics

import (
	"sort"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
)

// Score is the weighted performance score used for every ranking.
func Score(views, likes, comments, shares int64) float64 {
	return float64(views)*0.3 + float64(likes)*2 + float64(comments)*3 + float64(shares)*4
}

// Totals sums performance counters.
type Totals struct {
	Views      int64 `json:"views"`
	Likes      int64 `json:"likes"`
	Comments   int64 `json:"comments"`
	Shares     int64 `json:"shares"`
	Engagement int64 `json:"engagement"`
}

// Add folds one metric record into t.
func (t *Totals) Add(m *model.PerformanceMetric) {
	t.Views += m.Views
	t.Likes += m.Likes
	t.Comments += m.Comments
	t.Shares += m.Shares
	t.Engagement += m.Engagement()
}

// Score returns the weighted score of the totals.
func (t Totals) Score() float64 {
	return Score(t.Views, t.Likes, t.Comments, t.Shares)
}

// Sum totals a set of records.
func Sum(records []*model.PerformanceMetric) Totals {
	var t Totals
	for _, m := range records {
		t.Add(m)
	}
	return t
}

// PostScore is one post's totals and score.
type PostScore struct {
	PostID       string  `json:"post_id"`
	ExperimentID string  `json:"experiment_id,omitempty"`
	Platform     string  `json:"platform,omitempty"`
	Totals       Totals  `json:"totals"`
	Score        float64 `json:"score"`
}

// ScorePosts totals records per post. Posts are looked up in posts for
// their experiment; records for unknown posts still get a row. The result
// is sorted by score descending, then post id.
func ScorePosts(records []*model.PerformanceMetric, posts []*model.PublishedPost) []PostScore {
	byID := make(map[string]*model.PublishedPost, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	totals := make(map[string]*Totals)
	platforms := make(map[string]string)
	for _, m := range records {
		t, ok := totals[m.PostID]
		if !ok {
			t = &Totals{}
			totals[m.PostID] = t
			platforms[m.PostID] = m.Platform
		}
		t.Add(m)
	}
	out := make([]PostScore, 0, len(totals))
	for id, t := range totals {
		ps := PostScore{PostID: id, Platform: platforms[id], Totals: *t, Score: t.Score()}
		if p, ok := byID[id]; ok {
			ps.ExperimentID = p.ExperimentID
			ps.Platform = p.Platform
		}
		out = append(out, ps)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PostID < out[j].PostID
	})
	return out
}
