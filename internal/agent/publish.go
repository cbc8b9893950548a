package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/apperr"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/idgen"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
)

// PublishAgentName is the agent name stamped on publish events.
const PublishAgentName = "publisher"

// Supported platforms.
const (
	PlatformTikTok    = "tiktok"
	PlatformInstagram = "instagram"
	PlatformYouTube   = "youtube"
)

// Per-platform result statuses.
const (
	StatusPublished = "published"
	StatusFailed    = "failed"
)

var platformURLs = map[string]string{
	PlatformTikTok:    "https://www.tiktok.com/@ace/video/%s",
	PlatformInstagram: "https://www.instagram.com/reel/%s/",
	PlatformYouTube:   "https://youtube.com/shorts/%s",
}

// PublishInput is the input of the publish agent.
type PublishInput struct {
	AssetID   string   `json:"asset_id"`
	ScriptID  string   `json:"script_id,omitempty"`
	Variation string   `json:"variation,omitempty"`
	Platforms []string `json:"platforms"`
	// FailFast aborts on the first platform that cannot be recorded instead
	// of reporting it in the batch.
	FailFast bool `json:"fail_fast,omitempty"`
}

// PlatformResult is the outcome for one platform.
type PlatformResult struct {
	Platform       string    `json:"platform"`
	Status         string    `json:"status"`
	ExperimentID   string    `json:"experiment_id,omitempty"`
	PostID         string    `json:"post_id,omitempty"`
	ExternalPostID string    `json:"external_post_id,omitempty"`
	URL            string    `json:"url,omitempty"`
	PublishedAt    time.Time `json:"published_at"`
	Error          string    `json:"error,omitempty"`
}

// PublishResult reports every platform of one publish call.
type PublishResult struct {
	AssetID   string           `json:"asset_id"`
	ScriptID  string           `json:"script_id,omitempty"`
	Results   []PlatformResult `json:"results"`
	Published int              `json:"published"`
	Failed    int              `json:"failed"`
}

// Partial reports whether some but not all platforms failed.
func (r *PublishResult) Partial() bool {
	return r.Failed > 0 && r.Published > 0
}

// PublishAgent publishes an asset to platforms and records one experiment
// and post per platform.
type PublishAgent struct {
	rt   *Runtime
	deps Deps
}

// NewPublishAgent returns a PublishAgent.
func NewPublishAgent(deps Deps) *PublishAgent {
	return &PublishAgent{rt: deps.runtime(PublishAgentName), deps: deps}
}

// Name implements Agent.
func (a *PublishAgent) Name() string { return PublishAgentName }

// Runtime exposes the agent's lifecycle runtime.
func (a *PublishAgent) Runtime() *Runtime { return a.rt }

// Execute implements Agent. The output is a *PublishResult.
func (a *PublishAgent) Execute(ctx context.Context, input map[string]any) (any, error) {
	return a.rt.Execute(ctx, input, func(ctx context.Context, input map[string]any) (any, error) {
		var in PublishInput
		if err := decodeInput(input, &in); err != nil {
			return nil, err
		}
		return a.Publish(ctx, in)
	})
}

// NormalizePlatforms lowercases and de-duplicates platforms and rejects
// unknown ones.
func NormalizePlatforms(platforms []string) ([]string, error) {
	if len(platforms) == 0 {
		return nil, apperr.Validation("at least one platform is required")
	}
	var out []string
	seen := make(map[string]bool)
	for _, p := range platforms {
		p = strings.ToLower(strings.TrimSpace(p))
		if _, ok := platformURLs[p]; !ok {
			return nil, apperr.Validation(fmt.Sprintf("unsupported platform %q", p)).
				WithDetails(map[string]any{"platform": p})
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

// Publish validates the request, simulates the platform calls and records
// the results one platform at a time.
func (a *PublishAgent) Publish(ctx context.Context, in PublishInput) (*PublishResult, error) {
	in.AssetID = strings.TrimSpace(in.AssetID)
	if in.AssetID == "" {
		return nil, apperr.Validation("asset_id is required")
	}
	platforms, err := NormalizePlatforms(in.Platforms)
	if err != nil {
		return nil, err
	}

	a.rt.emit(ctx, "publish.start", map[string]any{"asset_id": in.AssetID, "platforms": platforms})

	fail := func(err error, res *PublishResult) error {
		payload := map[string]any{"asset_id": in.AssetID, "platforms": platforms, "error": err.Error()}
		if res != nil {
			payload["results"] = res.Results
		}
		a.rt.emit(ctx, "publish.error", payload)
		return a.rt.HandleError(ctx, "publish", err)
	}

	asset, err := a.deps.Store.GetVideoAsset(ctx, in.AssetID)
	if err != nil {
		return nil, fail(lookupErr("video asset", in.AssetID, err), nil)
	}
	scriptID := firstNonEmpty(in.ScriptID, asset.ScriptID)

	res := &PublishResult{AssetID: asset.ID, ScriptID: scriptID}
	for _, platform := range platforms {
		pr, err := a.simulate(platform)
		if err == nil {
			err = a.record(ctx, asset, scriptID, in.Variation, &pr)
		}
		if err != nil {
			pr.Status = StatusFailed
			pr.Error = err.Error()
			res.Results = append(res.Results, pr)
			res.Failed++
			if in.FailFast {
				return nil, fail(apperr.Persistence("publish to "+platform, err), res)
			}
			continue
		}
		res.Results = append(res.Results, pr)
		res.Published++
	}

	switch {
	case res.Published == 0:
		return nil, fail(apperr.Persistence("publish", fmt.Errorf("all %d platforms failed", res.Failed)).
			WithDetails(map[string]any{"results": res.Results}), res)
	case res.Partial():
		a.rt.emit(ctx, "publish.partial", map[string]any{
			"asset_id":  asset.ID,
			"published": res.Published,
			"failed":    res.Failed,
			"results":   res.Results,
		}, WithSeverity(model.SeverityWarning))
	default:
		a.rt.emit(ctx, "publish.success", map[string]any{"asset_id": asset.ID, "results": res.Results})
	}
	return res, nil
}

// simulate stands in for the platform API call.
func (a *PublishAgent) simulate(platform string) (PlatformResult, error) {
	pr := PlatformResult{Platform: platform, PublishedAt: a.deps.Log.Now()}
	external, err := idgen.GenerateWithPrefix(platform + "_")
	if err != nil {
		return pr, err
	}
	pr.Status = StatusPublished
	pr.ExternalPostID = external
	pr.URL = fmt.Sprintf(platformURLs[platform], external)
	return pr, nil
}

func (a *PublishAgent) record(ctx context.Context, asset *model.VideoAsset, scriptID, variation string, pr *PlatformResult) error {
	exp := &model.Experiment{
		ID:        a.deps.newID(),
		AssetID:   asset.ID,
		ScriptID:  scriptID,
		Platform:  pr.Platform,
		Variation: variation,
		Status:    StatusPublished,
		CreatedAt: a.deps.Log.Now(),
	}
	if err := a.deps.Store.CreateExperiment(ctx, exp); err != nil {
		return fmt.Errorf("create experiment: %w", err)
	}
	pr.ExperimentID = exp.ID

	post := &model.PublishedPost{
		ID:             a.deps.newID(),
		ExperimentID:   exp.ID,
		Platform:       pr.Platform,
		ExternalPostID: pr.ExternalPostID,
		URL:            pr.URL,
		Status:         pr.Status,
		PublishedAt:    pr.PublishedAt,
	}
	if err := a.deps.Store.CreatePublishedPost(ctx, post); err != nil {
		return fmt.Errorf("create published post: %w", err)
	}
	pr.PostID = post.ID
	return nil
}
