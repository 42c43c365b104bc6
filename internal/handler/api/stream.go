package api

import (
	"github.com/labstack/echo/v4"

	"MarketSim/internal/service/stream"
)

// StreamHandler mounts the websocket candle stream.
type StreamHandler struct {
	hub *stream.Hub
}

func NewStreamHandler(hub *stream.Hub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

func (h *StreamHandler) RegisterRoutes(e *echo.Echo) {
	if h.hub == nil {
		return
	}
	e.GET("/api/v1/stream", echo.WrapHandler(h.hub))
}
