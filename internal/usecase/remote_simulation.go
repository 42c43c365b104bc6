package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"MarketSim/internal/domain/models"
	"MarketSim/internal/domain/repository"
	"MarketSim/internal/domain/service"
	"MarketSim/internal/service/ratelimit"
	"MarketSim/pkg/cache"
	xhttp "MarketSim/pkg/http"
	"MarketSim/pkg/logger"
)

var (
	ErrRateLimited     = errors.New("rate limit exceeded")
	ErrBackendRejected = errors.New("backend rejected request")
)

// ControlsError lists the controls that failed validation.
type ControlsError struct {
	Violations []models.ControlViolation
}

func (e *ControlsError) Error() string {
	if len(e.Violations) == 0 {
		return "invalid controls"
	}
	v := e.Violations[0]
	return fmt.Sprintf("invalid controls: %s %s (%d total)", v.Control, v.Message, len(e.Violations))
}

const (
	SourceBackend = "backend"
	SourceCache   = "cache"
	SourceLocal   = "local"

	simulateKeyPrefix = "simulate"
)

// RemoteSimulation forwards multi-day forecasts to the model backend, caches
// the answers and falls back to the synthetic generator when the backend is
// unreachable.
type RemoteSimulation struct {
	backend  service.RemoteSimulator
	fallback service.RemoteSimulator
	cache    cache.Service
	ttl      time.Duration
	lockWait time.Duration
	limiter  *ratelimit.Limiter
	metrics  repository.Metrics
	log      *logger.Logger
}

type RemoteOption func(*RemoteSimulation)

// WithBackend sets the model backend. Without one every request is served
// by the fallback.
func WithBackend(b service.RemoteSimulator) RemoteOption {
	return func(r *RemoteSimulation) { r.backend = b }
}

func WithCache(c cache.Service, ttl time.Duration) RemoteOption {
	return func(r *RemoteSimulation) {
		r.cache = c
		r.ttl = ttl
	}
}

// WithLockWait bounds how long a request waits while another caller
// computes the same forecast.
func WithLockWait(d time.Duration) RemoteOption {
	return func(r *RemoteSimulation) {
		if d > 0 {
			r.lockWait = d
		}
	}
}

func WithLimiter(l *ratelimit.Limiter) RemoteOption {
	return func(r *RemoteSimulation) { r.limiter = l }
}

func NewRemoteSimulation(fallback service.RemoteSimulator, metrics repository.Metrics, log *logger.Logger, opts ...RemoteOption) *RemoteSimulation {
	r := &RemoteSimulation{
		fallback: fallback,
		metrics:  metrics,
		log:      log.Component("remote_simulation"),
		ttl:      10 * time.Minute,
		lockWait: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Simulate validates req, applies defaults and answers from the cache, the
// backend or the fallback, in that order.
func (r *RemoteSimulation) Simulate(ctx context.Context, clientKey string, req *models.SimulateRequest) (*models.SimulateResponse, error) {
	applyRequestDefaults(req)
	if v := validateRequestControls(req); len(v) > 0 {
		return nil, &ControlsError{Violations: v}
	}
	if r.limiter != nil && !r.limiter.Allow(clientKey) {
		r.metrics.RecordRemote("rate_limited")
		return nil, ErrRateLimited
	}

	start := time.Now()
	defer func() { r.metrics.RecordLatency("remote_simulate", time.Since(start)) }()

	if r.cache == nil {
		return r.load(ctx, req)
	}

	hash, err := cache.HashJSON(req)
	if err != nil {
		return nil, err
	}
	key := cache.GenerateKey(simulateKeyPrefix, hash)
	resp, hit, err := cache.GetOrLoadOnce(ctx, r.cache, key, r.ttl, r.lockWait, func(ctx context.Context) (*models.SimulateResponse, error) {
		return r.load(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	if hit {
		r.metrics.RecordRemote("cache_hit")
		resp.Source = SourceCache
	}
	return resp, nil
}

func (r *RemoteSimulation) load(ctx context.Context, req *models.SimulateRequest) (*models.SimulateResponse, error) {
	if r.backend != nil {
		resp, err := r.backend.Simulate(ctx, req)
		if err == nil {
			r.metrics.RecordRemote("backend")
			resp.Source = SourceBackend
			return resp, nil
		}

		var se *xhttp.StatusError
		if errors.As(err, &se) && !se.Temporary() {
			r.metrics.RecordRemote("rejected")
			return nil, fmt.Errorf("%w: %s", ErrBackendRejected, se.Body)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.log.Warn("backend unavailable, using synthetic generator",
			logger.String("ticker", req.CompanyMeta.Ticker),
			logger.Error(err),
		)
	}

	resp, err := r.fallback.Simulate(ctx, req)
	if err != nil {
		r.metrics.RecordRemote("error")
		return nil, fmt.Errorf("synthetic simulate: %w", err)
	}
	r.metrics.RecordRemote("fallback")
	resp.Source = SourceLocal
	return resp, nil
}

// ValidateControls reports the allowed controls and any violations in req.
func (r *RemoteSimulation) ValidateControls(req *models.ValidateControlsRequest) models.ValidateControlsResponse {
	v := ValidateControls(req.Controls, req.Horizon)
	return models.ValidateControlsResponse{
		Status:          "success",
		Valid:           len(v) == 0,
		AllowedControls: AllowedControls(),
		Violations:      v,
	}
}

// BackendHealth reports the model backend's health, or the fallback's when
// no backend is configured or it does not answer.
func (r *RemoteSimulation) BackendHealth(ctx context.Context) (*models.BackendHealth, error) {
	if r.backend != nil {
		h, err := r.backend.Health(ctx)
		if err == nil {
			return h, nil
		}
		r.log.Debug("backend health failed", logger.Error(err))
	}
	return r.fallback.Health(ctx)
}

// validateRequestControls checks controls and event overrides.
func validateRequestControls(req *models.SimulateRequest) []models.ControlViolation {
	out := ValidateControls(req.Controls, req.Horizon)
	for _, ev := range req.Events {
		if msg := checkValue(ev.Field, ev.Value); msg != "" {
			out = append(out, models.ControlViolation{
				Control: ev.Field,
				Message: fmt.Sprintf("event on %s: %s", ev.Date, msg),
			})
		}
	}
	return out
}
