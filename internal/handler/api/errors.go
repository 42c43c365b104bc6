package api

import (
	"errors"

	"MarketSim/internal/usecase"
	xhttp "MarketSim/pkg/http"
)

// toAppError maps usecase errors onto HTTP errors.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var ctrlErr *usecase.ControlsError
	switch {
	case errors.As(err, &ctrlErr):
		return xhttp.BadRequestError("invalid controls").WithField("controls").
			WithParam("violations", ctrlErr.Violations).WithError(err)
	case errors.Is(err, usecase.ErrNotInitialized):
		return xhttp.ConflictError("simulation not initialized").WithError(err)
	case errors.Is(err, usecase.ErrUnknownSizeTier):
		return xhttp.BadRequestError(err.Error()).WithField("size_tier")
	case errors.Is(err, usecase.ErrUnknownLabel):
		return xhttp.BadRequestError(err.Error()).WithField("conditions")
	case errors.Is(err, usecase.ErrUnknownEvent):
		return xhttp.BadRequestError(err.Error()).WithField("subtype")
	case errors.Is(err, usecase.ErrHorizonMismatch):
		return xhttp.BadRequestError(err.Error()).WithField("controls")
	case errors.Is(err, usecase.ErrRateLimited):
		return xhttp.TooManyRequestsError("too many simulation requests")
	case errors.Is(err, usecase.ErrBackendRejected):
		return xhttp.BadRequestError(err.Error())
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
