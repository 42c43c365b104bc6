package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simulate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["sector"]})
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL+"/"), WithUserAgent("test-agent"))
	var out map[string]string
	require.NoError(t, c.Do(context.Background(), MethodPost, "/simulate", map[string]string{"sector": "it"}, &out))
	assert.Equal(t, "it", out["echo"])
	assert.Equal(t, srv.URL, c.BaseURL())
}

func TestClientDoWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Content-Type"))
		assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, NewClient(WithBaseURL(srv.URL)).Do(context.Background(), MethodGet, "/health", nil, nil))
}

func TestClientStatusError(t *testing.T) {
	cases := []struct {
		code      int
		temporary bool
	}{
		{http.StatusBadRequest, false},
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tc.code)
		}))

		err := NewClient(WithBaseURL(srv.URL)).Do(context.Background(), MethodGet, "/", nil, nil)
		srv.Close()

		var se *StatusError
		require.True(t, errors.As(err, &se), "status %d", tc.code)
		assert.Equal(t, tc.code, se.Code)
		assert.Equal(t, "nope", se.Body)
		assert.Equal(t, tc.temporary, se.Temporary())
	}
}
