package service

import (
	"context"

	"MarketSim/internal/domain/models"
)

// RemoteSimulator runs a multi-day forecast on the model backend.
type RemoteSimulator interface {
	Simulate(ctx context.Context, req *models.SimulateRequest) (*models.SimulateResponse, error)
	Health(ctx context.Context) (*models.BackendHealth, error)
}

// Explainer turns a simulated day into a plain-language story.
type Explainer interface {
	Explain(ctx context.Context, in *models.StoryContext) (*models.Story, error)
}
