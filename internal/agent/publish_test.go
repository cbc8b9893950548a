package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/apperr"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/store/memory"
)

// postFailingStore rejects published posts for the listed platforms.
type postFailingStore struct {
	*memory.Store
	failPlatforms map[string]bool
	attempted     []string
}

func (s *postFailingStore) CreatePublishedPost(ctx context.Context, p *model.PublishedPost) error {
	s.attempted = append(s.attempted, p.Platform)
	if s.failPlatforms[p.Platform] {
		return errors.New("connection reset by peer")
	}
	return s.Store.CreatePublishedPost(ctx, p)
}

func newFailingPublishHarness(t *testing.T, fail ...string) (*harness, *postFailingStore) {
	t.Helper()
	mem := memory.New()
	fs := &postFailingStore{Store: mem, failPlatforms: make(map[string]bool)}
	for _, p := range fail {
		fs.failPlatforms[p] = true
	}
	h := newHarnessWithStore(t, mem, fs, nil)
	h.seedAsset(t)
	return h, fs
}

func TestPublishAgent_Success(t *testing.T) {
	h := newHarness(t, nil)
	h.seedAsset(t)

	out, err := NewPublishAgent(h.deps).Execute(context.Background(), map[string]any{
		"assetId":   "asset-1",
		"platforms": []string{"TikTok", "youtube", "tiktok"},
		"variation": "A",
	})
	require.NoError(t, err)
	res := out.(*PublishResult)
	assert.Equal(t, 2, res.Published)
	assert.Zero(t, res.Failed)
	assert.Equal(t, "scr-1", res.ScriptID)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "tiktok", res.Results[0].Platform)
	assert.Equal(t, "youtube", res.Results[1].Platform)
	for _, r := range res.Results {
		assert.Equal(t, StatusPublished, r.Status)
		assert.True(t, strings.HasPrefix(r.ExternalPostID, r.Platform+"_"))
		assert.Contains(t, r.URL, r.ExternalPostID)
		assert.NotEmpty(t, r.ExperimentID)
		assert.False(t, r.PublishedAt.IsZero())
	}

	posts, err := h.store.ListPublishedPosts(context.Background(), model.PostFilter{})
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	exp, err := h.store.GetExperiment(context.Background(), res.Results[0].ExperimentID)
	require.NoError(t, err)
	assert.Equal(t, "A", exp.Variation)
	assert.Equal(t, "scr-1", exp.ScriptID)

	assert.Equal(t, []string{"agent.start", "publish.start", "publish.success", "agent.success"}, eventTypes(h.events(t)))
}

func TestPublishAgent_RejectsUnknownPlatformBeforeSideEffects(t *testing.T) {
	h := newHarness(t, nil)
	h.seedAsset(t)

	_, err := NewPublishAgent(h.deps).Execute(context.Background(), map[string]any{
		"asset_id":  "asset-1",
		"platforms": []string{"tiktok", "myspace"},
	})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Contains(t, ae.Message, "myspace")

	posts, _ := h.store.ListPublishedPosts(context.Background(), model.PostFilter{})
	assert.Empty(t, posts)
	assert.Equal(t, []string{"agent.start", "agent.error"}, eventTypes(h.events(t)))
}

func TestPublishAgent_RequiresPlatforms(t *testing.T) {
	h := newHarness(t, nil)
	_, err := NewPublishAgent(h.deps).Execute(context.Background(), map[string]any{"asset_id": "asset-1"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestPublishAgent_AssetNotFound(t *testing.T) {
	h := newHarness(t, nil)
	_, err := NewPublishAgent(h.deps).Execute(context.Background(), map[string]any{
		"asset_id":  "ghost",
		"platforms": []string{"tiktok"},
	})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.NotNil(t, findEvent(h.events(t), "publish.error"))
}

func TestPublishAgent_PartialFailureKeepsCompletedWork(t *testing.T) {
	h, fs := newFailingPublishHarness(t, "instagram")

	out, err := NewPublishAgent(h.deps).Execute(context.Background(), map[string]any{
		"asset_id":  "asset-1",
		"platforms": []string{"tiktok", "instagram", "youtube"},
	})
	require.NoError(t, err)
	res := out.(*PublishResult)
	assert.True(t, res.Partial())
	assert.Equal(t, 2, res.Published)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"tiktok", "instagram", "youtube"}, fs.attempted)

	failed := res.Results[1]
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Contains(t, failed.Error, "connection reset")
	assert.Empty(t, failed.PostID)

	posts, _ := h.store.ListPublishedPosts(context.Background(), model.PostFilter{})
	assert.Len(t, posts, 2)

	evts := h.events(t)
	assert.Equal(t, []string{"agent.start", "publish.start", "publish.partial", "agent.success"}, eventTypes(evts))
	partial := findEvent(evts, "publish.partial")
	assert.Equal(t, model.SeverityWarning, partial.Severity)
	assert.Equal(t, float64(1), payloadOf(t, partial)["failed"])
}

func TestPublishAgent_FailFastStopsAtFirstFailure(t *testing.T) {
	h, fs := newFailingPublishHarness(t, "instagram")

	_, err := NewPublishAgent(h.deps).Execute(context.Background(), map[string]any{
		"asset_id":  "asset-1",
		"platforms": []string{"tiktok", "instagram", "youtube"},
		"fail_fast": true,
	})
	assert.True(t, apperr.Is(err, apperr.KindPersistence))
	assert.Equal(t, []string{"tiktok", "instagram"}, fs.attempted)

	evts := h.events(t)
	assert.Equal(t, []string{
		"agent.start", "publish.start", "publish.error", "agent.error.context", "agent.error",
	}, eventTypes(evts))
	results := payloadOf(t, findEvent(evts, "publish.error"))["results"].([]any)
	assert.Len(t, results, 2)
}

func TestPublishAgent_AllFailedIsPersistenceError(t *testing.T) {
	h, _ := newFailingPublishHarness(t, "tiktok", "youtube")

	_, err := NewPublishAgent(h.deps).Execute(context.Background(), map[string]any{
		"asset_id":  "asset-1",
		"platforms": []string{"tiktok", "youtube"},
	})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindPersistence, ae.Kind)
	assert.Contains(t, ae.Error(), "all 2 platforms failed")
	assert.NotNil(t, ae.Details["results"])
}

func TestNormalizePlatforms(t *testing.T) {
	got, err := NormalizePlatforms([]string{" YouTube", "instagram", "youtube"})
	require.NoError(t, err)
	assert.Equal(t, []string{"youtube", "instagram"}, got)

	_, err = NormalizePlatforms(nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
