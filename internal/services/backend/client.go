package backend

import (
	"context"
	"net/http"
	"strings"

	"MarketSim/internal/domain/models"
	"MarketSim/pkg/config"
	xhttp "MarketSim/pkg/http"
)

// Client talks to the model backend's /simulate and /health endpoints.
type Client struct {
	base *HTTPServiceBase
}

func New(cfg *config.Config) *Client {
	return &Client{
		base: newHTTPServiceBase(strings.TrimRight(cfg.Backend.URL, "/"), cfg.Backend.Timeout, cfg.Backend.MaxRetries),
	}
}

// Configured reports whether a backend URL is set.
func (c *Client) Configured() bool {
	return c.base.configured()
}

func (c *Client) Simulate(ctx context.Context, req *models.SimulateRequest) (*models.SimulateResponse, error) {
	var out models.SimulateResponse
	if err := c.base.Do(ctx, xhttp.MethodPost, "/simulate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Health(ctx context.Context) (*models.BackendHealth, error) {
	var out models.BackendHealth
	if err := c.base.Do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
