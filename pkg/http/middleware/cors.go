package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSConfig holds CORS configuration. An origin entry may end in ":*" to
// allow any port on that host, which covers local dev servers.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       int // seconds a preflight may be cached
}

type originMatcher struct {
	any      bool
	exact    map[string]struct{}
	anyPorts []string // "scheme://host:" prefixes
}

func newOriginMatcher(origins []string) originMatcher {
	m := originMatcher{exact: make(map[string]struct{}, len(origins))}
	if len(origins) == 0 {
		m.any = true
	}
	for _, o := range origins {
		switch {
		case o == "*":
			m.any = true
		case strings.HasSuffix(o, ":*"):
			m.anyPorts = append(m.anyPorts, strings.TrimSuffix(o, "*"))
		default:
			m.exact[o] = struct{}{}
		}
	}
	return m
}

func (m originMatcher) allows(origin string) bool {
	if m.any {
		return true
	}
	if _, ok := m.exact[origin]; ok {
		return true
	}
	for _, prefix := range m.anyPorts {
		if port, ok := strings.CutPrefix(origin, prefix); ok {
			if _, err := strconv.Atoi(port); err == nil {
				return true
			}
		}
	}
	return false
}

// OriginPolicy returns the allowlist check CORS applies. The websocket
// upgrader uses it so both surfaces share one policy.
func OriginPolicy(origins []string) func(origin string) bool {
	return newOriginMatcher(origins).allows
}

// CORS returns CORS middleware. Requests from disallowed origins pass
// through without CORS headers and the browser blocks them.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	m := newOriginMatcher(cfg.AllowOrigins)
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(cfg.MaxAge)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Add(echo.HeaderVary, echo.HeaderOrigin)

			origin := c.Request().Header.Get(echo.HeaderOrigin)
			if origin == "" || !m.allows(origin) {
				return next(c)
			}

			if m.any && len(m.exact) == 0 && len(m.anyPorts) == 0 {
				h.Set(echo.HeaderAccessControlAllowOrigin, "*")
			} else {
				h.Set(echo.HeaderAccessControlAllowOrigin, origin)
			}

			if c.Request().Method != http.MethodOptions {
				return next(c)
			}

			// preflight
			if methods != "" {
				h.Set(echo.HeaderAccessControlAllowMethods, methods)
			}
			if headers != "" {
				h.Set(echo.HeaderAccessControlAllowHeaders, headers)
			}
			if maxAge != "" {
				h.Set(echo.HeaderAccessControlMaxAge, maxAge)
			}
			return c.NoContent(http.StatusNoContent)
		}
	}
}
