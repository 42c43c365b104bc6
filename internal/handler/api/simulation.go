package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"MarketSim/internal/domain/models"
	"MarketSim/internal/domain/service"
	"MarketSim/internal/usecase"
	xhttp "MarketSim/pkg/http"
	xlogger "MarketSim/pkg/logger"
)

// SimulationHandler exposes the interactive engine session.
type SimulationHandler struct {
	logger    *xlogger.Logger
	session   *usecase.Session
	explainer service.Explainer
}

func NewSimulationHandler(logger *xlogger.Logger, session *usecase.Session, explainer service.Explainer) *SimulationHandler {
	return &SimulationHandler{logger: logger.Component("api"), session: session, explainer: explainer}
}

func (h *SimulationHandler) RegisterRoutes(e *echo.Echo) {
	v1 := e.Group("/api/v1")
	v1.GET("/sectors", h.Sectors)
	v1.GET("/catalog", h.Catalog)

	g := v1.Group("/simulation")
	g.POST("/initialize", h.Initialize)
	g.POST("/reset", h.Reset)
	g.PATCH("/conditions", h.UpdateConditions)
	g.PUT("/sector", h.UpdateSector)
	g.POST("/events", h.AddEvent)
	g.DELETE("/events", h.ClearEvents)
	g.POST("/events/trigger", h.TriggerEvent)
	g.POST("/candles", h.NextCandle)
	g.POST("/intraday", h.Intraday)
	g.GET("/state", h.State)
	g.GET("/history", h.History)
	g.GET("/price", h.Price)
	g.GET("/duration", h.Duration)
	g.GET("/breakdown", h.Breakdown)
	g.GET("/summary", h.Summary)
	g.GET("/story", h.Story)
	g.POST("/auto/start", h.StartAuto)
	g.POST("/auto/stop", h.StopAuto)
}

func (h *SimulationHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= 500 {
		h.logger.Error(op+" failed", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *SimulationHandler) Sectors(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.session.Sectors())
}

func (h *SimulationHandler) Catalog(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.session.Catalog())
}

func (h *SimulationHandler) Initialize(c echo.Context) error {
	req := &models.InitializeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.session.Initialize(req.Profile(), req.Seed)
	if err != nil {
		return h.fail(c, "initialize", err)
	}
	return xhttp.CreatedResponse(c, st)
}

func (h *SimulationHandler) Reset(c echo.Context) error {
	req := &models.ResetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.session.Reset(req.Profile())
	if err != nil {
		return h.fail(c, "reset", err)
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *SimulationHandler) UpdateConditions(c echo.Context) error {
	req := &models.ConditionsUpdate{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	conds, err := h.session.UpdateConditions(*req)
	if err != nil {
		return h.fail(c, "update conditions", err)
	}
	return xhttp.SuccessResponse(c, conds)
}

func (h *SimulationHandler) UpdateSector(c echo.Context) error {
	req := &models.SectorRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.session.UpdateSector(req.Sector)
	if err != nil {
		return h.fail(c, "update sector", err)
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *SimulationHandler) AddEvent(c echo.Context) error {
	req := &models.EventRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	events, err := h.session.AddEvent(req.Event())
	if err != nil {
		return h.fail(c, "add event", err)
	}
	return xhttp.CreatedResponse(c, events)
}

func (h *SimulationHandler) ClearEvents(c echo.Context) error {
	h.session.ClearEvents()
	return xhttp.NoContentResponse(c)
}

func (h *SimulationHandler) TriggerEvent(c echo.Context) error {
	req := &models.EventRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	bar, err := h.session.TriggerEvent(c.Request().Context(), req.Event())
	if err != nil {
		return h.fail(c, "trigger event", err)
	}
	return xhttp.CreatedResponse(c, bar)
}

func (h *SimulationHandler) NextCandle(c echo.Context) error {
	bar, err := h.session.NextCandle(c.Request().Context())
	if err != nil {
		return h.fail(c, "next candle", err)
	}
	return xhttp.CreatedResponse(c, bar)
}

func (h *SimulationHandler) Intraday(c echo.Context) error {
	req := &models.IntradayRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	bars, err := h.session.Intraday(c.Request().Context(), req.Minutes)
	if err != nil {
		return h.fail(c, "intraday", err)
	}
	return xhttp.CreatedResponse(c, bars)
}

func (h *SimulationHandler) State(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.session.Status())
}

func (h *SimulationHandler) History(c echo.Context) error {
	q := &models.HistoryQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.session.History(q.Limit))
}

func (h *SimulationHandler) Price(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.session.Price())
}

func (h *SimulationHandler) Duration(c echo.Context) error {
	d, err := h.session.Duration()
	if err != nil {
		return h.fail(c, "duration", err)
	}
	return xhttp.SuccessResponse(c, d)
}

func (h *SimulationHandler) Breakdown(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.session.Breakdown())
}

func (h *SimulationHandler) Summary(c echo.Context) error {
	s, err := h.session.Summary()
	if err != nil {
		return h.fail(c, "summary", err)
	}
	return xhttp.SuccessResponse(c, s)
}

func (h *SimulationHandler) Story(c echo.Context) error {
	in, err := h.session.StoryContext()
	if err != nil {
		return h.fail(c, "story", err)
	}
	story, err := h.explainer.Explain(c.Request().Context(), &in)
	if err != nil {
		return h.fail(c, "story", err)
	}
	return xhttp.SuccessResponse(c, story)
}

func (h *SimulationHandler) StartAuto(c echo.Context) error {
	// the driver outlives the request
	if err := h.session.StartAuto(context.WithoutCancel(c.Request().Context())); err != nil {
		return h.fail(c, "start auto", err)
	}
	return xhttp.SuccessResponse(c, h.session.Status())
}

func (h *SimulationHandler) StopAuto(c echo.Context) error {
	h.session.StopAuto()
	return xhttp.SuccessResponse(c, h.session.Status())
}
