package api

import (
	"github.com/labstack/echo/v4"

	domrepo "MarketSim/internal/domain/repository"
	"MarketSim/internal/usecase"
	xhttp "MarketSim/pkg/http"
	xlogger "MarketSim/pkg/logger"
)

// ArchiveHandler reads archived candles back from ClickHouse.
type ArchiveHandler struct {
	logger  *xlogger.Logger
	archive domrepo.CandleArchive
	session *usecase.Session
}

func NewArchiveHandler(logger *xlogger.Logger, archive domrepo.CandleArchive, session *usecase.Session) *ArchiveHandler {
	return &ArchiveHandler{logger: logger.Component("api"), archive: archive, session: session}
}

type archiveQuery struct {
	RunID string `query:"run_id" json:"run_id"`
	Limit int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=5000"`
}

func (h *ArchiveHandler) RegisterRoutes(e *echo.Echo) {
	if h.archive == nil {
		return
	}
	e.GET("/api/v1/simulation/archive", h.Query)
}

// Query returns archived candles of run_id, defaulting to the current run.
func (h *ArchiveHandler) Query(c echo.Context) error {
	q := &archiveQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if q.RunID == "" {
		q.RunID = h.session.Status().RunID
	}
	if q.RunID == "" {
		return xhttp.AppErrorResponse(c, toAppError(usecase.ErrNotInitialized))
	}
	evs, err := h.archive.Query(c.Request().Context(), q.RunID, q.Limit)
	if err != nil {
		h.logger.Error("archive query failed", xlogger.String("run_id", q.RunID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("archive unavailable").WithError(err))
	}
	return xhttp.SuccessResponse(c, evs)
}
