package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	xhttp "MarketSim/pkg/http"
)

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	checks  map[string]HealthCheck
	started time.Time
	timeout time.Duration
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, started: time.Now(), timeout: 2 * time.Second}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/health", h.Health)
}

type healthReport struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	report := healthReport{Status: "ok", Uptime: time.Since(h.started).Truncate(time.Second).String()}
	status := http.StatusOK
	for _, name := range names {
		if report.Checks == nil {
			report.Checks = make(map[string]string, len(names))
		}
		if err := h.checks[name](ctx); err != nil {
			report.Checks[name] = err.Error()
			report.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		report.Checks[name] = "ok"
	}
	return xhttp.DataResponse(c, status, report)
}
