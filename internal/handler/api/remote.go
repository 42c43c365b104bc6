package api

import (
	"github.com/labstack/echo/v4"

	"MarketSim/internal/domain/models"
	"MarketSim/internal/usecase"
	xhttp "MarketSim/pkg/http"
	xlogger "MarketSim/pkg/logger"
)

// RemoteHandler serves multi-day forecasts from the model backend or its
// synthetic fallback.
type RemoteHandler struct {
	logger  *xlogger.Logger
	remote  *usecase.RemoteSimulation
	session *usecase.Session
}

func NewRemoteHandler(logger *xlogger.Logger, remote *usecase.RemoteSimulation, session *usecase.Session) *RemoteHandler {
	return &RemoteHandler{logger: logger.Component("api"), remote: remote, session: session}
}

func (h *RemoteHandler) RegisterRoutes(e *echo.Echo) {
	v1 := e.Group("/api/v1")
	v1.POST("/simulate", h.Simulate)
	v1.POST("/validate_controls", h.ValidateControls)
	v1.GET("/controls", h.AllowedControls)
	v1.GET("/backend/health", h.BackendHealth)
	v1.POST("/simulation/forecast", h.Forecast)
}

func (h *RemoteHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= 500 {
		h.logger.Error(op+" failed", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *RemoteHandler) Simulate(c echo.Context) error {
	req := &models.SimulateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	resp, err := h.remote.Simulate(c.Request().Context(), xhttp.ClientKey(c), req)
	if err != nil {
		return h.fail(c, "simulate", err)
	}
	return xhttp.SuccessResponse(c, resp)
}

// Forecast projects the running session forward through the remote path.
func (h *RemoteHandler) Forecast(c echo.Context) error {
	fr := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, fr); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	req, err := h.session.ForecastRequest(*fr)
	if err != nil {
		return h.fail(c, "forecast", err)
	}
	resp, err := h.remote.Simulate(c.Request().Context(), xhttp.ClientKey(c), req)
	if err != nil {
		return h.fail(c, "forecast", err)
	}
	return xhttp.SuccessResponse(c, resp)
}

func (h *RemoteHandler) ValidateControls(c echo.Context) error {
	req := &models.ValidateControlsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.remote.ValidateControls(req))
}

func (h *RemoteHandler) AllowedControls(c echo.Context) error {
	return xhttp.SuccessResponse(c, usecase.AllowedControls())
}

func (h *RemoteHandler) BackendHealth(c echo.Context) error {
	health, err := h.remote.BackendHealth(c.Request().Context())
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("backend unavailable").WithError(err))
	}
	return xhttp.SuccessResponse(c, health)
}
