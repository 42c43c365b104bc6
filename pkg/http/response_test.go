package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Sector string  `json:"sector" validate:"required"`
	Size   string  `json:"size_tier" default:"mid-cap" validate:"oneof=small-cap mid-cap large-cap"`
	Impact float64 `json:"impact" validate:"gte=0,lte=5"`
}

func newContext(method, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestReadAndValidateRequest(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		c, _ := newContext(http.MethodPost, `{"sector":"it"}`)
		var req sampleRequest
		errs := ReadAndValidateRequest(c, &req)
		assert.Nil(t, errs)
		assert.Equal(t, "mid-cap", req.Size)
	})

	t.Run("field names follow json tags", func(t *testing.T) {
		c, _ := newContext(http.MethodPost, `{"size_tier":"mega-cap","impact":9}`)
		var req sampleRequest
		errs := ReadAndValidateRequest(c, &req)
		require.Len(t, errs, 3)

		byField := map[string]ValidationError{}
		for _, e := range errs {
			byField[e.Field] = e
		}
		assert.Equal(t, "ERR_REQUIRED", byField["sector"].Code)
		assert.Equal(t, "ERR_ONEOF", byField["size_tier"].Code)
		assert.Equal(t, []string{"small-cap", "mid-cap", "large-cap"}, byField["size_tier"].Params["options"])
		assert.Equal(t, "impact must be less than or equal to 5", byField["impact"].Message)
	})

	t.Run("malformed body", func(t *testing.T) {
		c, _ := newContext(http.MethodPost, `{"sector":`)
		var req sampleRequest
		errs := ReadAndValidateRequest(c, &req)
		require.Len(t, errs, 1)
		assert.Equal(t, "ERR_BAD_BODY", errs[0].Code)
	})
}

func TestAppErrorResponse(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"conflict", ConflictError("simulation not initialized"), http.StatusConflict},
		{"wrapped", fmt.Errorf("handler: %w", UnavailableError("backend down")), http.StatusServiceUnavailable},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "")
			require.NoError(t, AppErrorResponse(c, tt.err))
			assert.Equal(t, tt.status, rec.Code)

			var body APIResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body.Status)
			assert.Equal(t, tt.status, StatusOf(tt.err))
		})
	}
}

func TestClientKey(t *testing.T) {
	c, _ := newContext(http.MethodGet, "")
	c.Request().Header.Set("X-Client-ID", " desk-7 ")
	assert.Equal(t, "desk-7", ClientKey(c))

	c, _ = newContext(http.MethodGet, "")
	c.Request().RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, "10.1.2.3", ClientKey(c))
}
