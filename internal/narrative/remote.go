package narrative

import (
	"context"
	"time"

	"MarketSim/internal/domain/models"
	"MarketSim/internal/domain/service"
	xhttp "MarketSim/pkg/http"
	"MarketSim/pkg/logger"
)

const SourceRemote = "remote"

// RemoteExplainer asks the explanation service for a story and falls back
// to a local explainer when the service fails.
type RemoteExplainer struct {
	client   *xhttp.Client
	fallback service.Explainer
	log      *logger.Logger
}

func NewRemoteExplainer(baseURL string, timeout time.Duration, fallback service.Explainer, log *logger.Logger) *RemoteExplainer {
	return &RemoteExplainer{
		client:   xhttp.NewClient(xhttp.WithBaseURL(baseURL), xhttp.WithTimeout(timeout)),
		fallback: fallback,
		log:      log.Component("narrative"),
	}
}

func (r *RemoteExplainer) Explain(ctx context.Context, in *models.StoryContext) (*models.Story, error) {
	var resp models.ExplanationResponse
	err := r.client.Do(ctx, xhttp.MethodPost, "/explain", in, &resp)
	if err == nil && resp.Story.Title != "" {
		story := resp.Story
		story.Source = SourceRemote
		return &story, nil
	}

	r.log.Warn("explanation service unavailable, using local stories", logger.Error(err))
	return r.fallback.Explain(ctx, in)
}
