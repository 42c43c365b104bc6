package http

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// ClientKey identifies the caller for per-client limits: the X-Client-ID
// header when present, the real IP otherwise.
func ClientKey(c echo.Context) string {
	if id := strings.TrimSpace(c.Request().Header.Get("X-Client-ID")); id != "" {
		return id
	}
	return c.RealIP()
}
