package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketSim/internal/domain/models"
	"MarketSim/internal/engine"
	"MarketSim/internal/narrative"
	"MarketSim/internal/usecase"
	xhttp "MarketSim/pkg/http"
	"MarketSim/pkg/logger"
	"MarketSim/pkg/metrics"
)

var testNow = time.Date(2026, time.October, 16, 15, 30, 0, 0, time.UTC)

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type testAPI struct {
	e       *echo.Echo
	session *usecase.Session
}

func newTestAPI(t *testing.T, checks map[string]HealthCheck) *testAPI {
	t.Helper()
	clock := func() time.Time { return testNow }
	session := usecase.NewSession(metrics.NewNop(), logger.Nop(),
		usecase.WithEngineOptions(engine.WithClock(clock), engine.WithSeed(7)),
		usecase.WithSessionClock(clock),
	)
	t.Cleanup(func() { _ = session.Close() })
	remote := usecase.NewRemoteSimulation(usecase.NewSyntheticSimulator(), metrics.NewNop(), logger.Nop())

	e := echo.New()
	xhttp.Handlers{
		NewHealthHandler(checks),
		NewSimulationHandler(logger.Nop(), session, narrative.NewGenerator(engine.NewSource(3))),
		NewRemoteHandler(logger.Nop(), remote, session),
		NewArchiveHandler(logger.Nop(), nil, session),
		NewStreamHandler(nil),
	}.RegisterRoutes(e)
	return &testAPI{e: e, session: session}
}

func (a *testAPI) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (a *testAPI) initialize(t *testing.T) {
	t.Helper()
	rec, _ := a.do(t, http.MethodPost, "/api/v1/simulation/initialize", `{"size_tier":"large-cap","sector":"it"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestInitializeAndAdvance(t *testing.T) {
	a := newTestAPI(t, nil)

	rec, env := a.do(t, http.MethodPost, "/api/v1/simulation/initialize", `{"size_tier":"large-cap","sector":"it"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var st models.SessionStatus
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.True(t, st.Initialized)
	assert.NotEmpty(t, st.RunID)
	assert.Len(t, st.State.HistoricalData, 30)

	rec, env = a.do(t, http.MethodPost, "/api/v1/simulation/candles", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var bar models.CandlestickData
	require.NoError(t, json.Unmarshal(env.Data, &bar))
	assert.GreaterOrEqual(t, bar.High, bar.Low)

	rec, env = a.do(t, http.MethodGet, "/api/v1/simulation/history?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var bars []models.CandlestickData
	require.NoError(t, json.Unmarshal(env.Data, &bars))
	require.Len(t, bars, 5)
	assert.Equal(t, bar, bars[4])
}

func TestInitializeDefaultsSizeTier(t *testing.T) {
	a := newTestAPI(t, nil)
	rec, env := a.do(t, http.MethodPost, "/api/v1/simulation/initialize", `{"sector":"energy"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var st models.SessionStatus
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, models.MidCap, st.State.CompanyProfile.Size)
}

func TestInitializeValidation(t *testing.T) {
	a := newTestAPI(t, nil)
	rec, _ := a.do(t, http.MethodPost, "/api/v1/simulation/initialize", `{"size_tier":"giant","sector":"it"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = a.do(t, http.MethodPost, "/api/v1/simulation/initialize", `{"size_tier":"mid-cap"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotInitializedIsConflict(t *testing.T) {
	a := newTestAPI(t, nil)
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/simulation/candles"},
		{http.MethodGet, "/api/v1/simulation/duration"},
		{http.MethodGet, "/api/v1/simulation/summary"},
		{http.MethodGet, "/api/v1/simulation/story"},
		{http.MethodPost, "/api/v1/simulation/auto/start"},
	} {
		rec, _ := a.do(t, tc.method, tc.path, "")
		assert.Equal(t, http.StatusConflict, rec.Code, tc.path)
	}
}

func TestConditionsAndEvents(t *testing.T) {
	a := newTestAPI(t, nil)
	a.initialize(t)

	rec, env := a.do(t, http.MethodPatch, "/api/v1/simulation/conditions", `{"sentiment":"strongly-bullish"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var conds models.MarketConditions
	require.NoError(t, json.Unmarshal(env.Data, &conds))
	assert.Equal(t, "strongly-bullish", conds.Sentiment)
	assert.Equal(t, "neutral", conds.Flows)

	rec, _ = a.do(t, http.MethodPatch, "/api/v1/simulation/conditions", `{"sentiment":"euphoric"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = a.do(t, http.MethodPost, "/api/v1/simulation/events", `{"type":"earnings","subtype":"sig-beat","impact":1.2}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = a.do(t, http.MethodPost, "/api/v1/simulation/events", `{"type":"earnings","subtype":"blowout"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = a.do(t, http.MethodPost, "/api/v1/simulation/events", `{"type":"weather","subtype":"storm"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Len(t, a.session.Status().State.ActiveEvents, 1)
	rec, _ = a.do(t, http.MethodDelete, "/api/v1/simulation/events", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, a.session.Status().State.ActiveEvents)
}

func TestTriggerEventAppliesOnce(t *testing.T) {
	a := newTestAPI(t, nil)
	a.initialize(t)

	rec, _ := a.do(t, http.MethodPost, "/api/v1/simulation/events/trigger", `{"type":"shock","subtype":"geopolitical"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, a.session.Status().State.ActiveEvents)
	assert.Equal(t, 2, a.session.Status().State.CurrentDay)
}

func TestResetKeepsOrReplacesCompany(t *testing.T) {
	a := newTestAPI(t, nil)
	a.initialize(t)

	rec, env := a.do(t, http.MethodPost, "/api/v1/simulation/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st models.SessionStatus
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, models.LargeCap, st.State.CompanyProfile.Size)

	rec, _ = a.do(t, http.MethodPost, "/api/v1/simulation/reset", `{"sector":"energy"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = a.do(t, http.MethodPost, "/api/v1/simulation/reset", `{"size_tier":"small-cap","sector":"energy"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, "energy", st.State.CompanyProfile.Sector)
}

func TestIntradayAndViews(t *testing.T) {
	a := newTestAPI(t, nil)
	a.initialize(t)

	rec, env := a.do(t, http.MethodPost, "/api/v1/simulation/intraday", `{"minutes":15}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var bars []models.CandlestickData
	require.NoError(t, json.Unmarshal(env.Data, &bars))
	require.Len(t, bars, 15)
	assert.Equal(t, "2026-10-16T09:30:00Z", bars[0].Time)

	rec, _ = a.do(t, http.MethodPost, "/api/v1/simulation/intraday", `{"minutes":1000}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, path := range []string{"price", "duration", "breakdown", "summary", "state"} {
		rec, _ := a.do(t, http.MethodGet, "/api/v1/simulation/"+path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestStory(t *testing.T) {
	a := newTestAPI(t, nil)
	a.initialize(t)

	rec, env := a.do(t, http.MethodGet, "/api/v1/simulation/story", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var story models.Story
	require.NoError(t, json.Unmarshal(env.Data, &story))
	assert.NotEmpty(t, story.Title)
	assert.Equal(t, narrative.SourceLocal, story.Source)
}

func TestAutoAdvance(t *testing.T) {
	a := newTestAPI(t, nil)
	a.initialize(t)

	rec, env := a.do(t, http.MethodPost, "/api/v1/simulation/auto/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st models.SessionStatus
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.True(t, st.AutoAdvance)

	rec, env = a.do(t, http.MethodPost, "/api/v1/simulation/auto/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.False(t, st.AutoAdvance)
}

func TestSectorsAndCatalog(t *testing.T) {
	a := newTestAPI(t, nil)

	rec, env := a.do(t, http.MethodGet, "/api/v1/sectors", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sectors []string
	require.NoError(t, json.Unmarshal(env.Data, &sectors))
	assert.Contains(t, sectors, "it")

	rec, _ = a.do(t, http.MethodGet, "/api/v1/catalog", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

const simulateBody = `{
	"company_meta": {"company_name":"Tata Consultancy Services","ticker":"TCS","sector":"it","market_cap_bucket":"large_cap","company_size":"large"},
	"last_close": 100,
	"start_date": "2025-01-03",
	"horizon": 5,
	"seed": 1
}`

func TestSimulateFallback(t *testing.T) {
	a := newTestAPI(t, nil)

	rec, env := a.do(t, http.MethodPost, "/api/v1/simulate", simulateBody)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.SimulateResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, models.ModelStatusSynthetic, resp.SimulationInfo.ModelStatus)
	assert.Len(t, resp.OHLCData, 5)
}

func TestSimulateRejectsBadInput(t *testing.T) {
	a := newTestAPI(t, nil)

	rec, _ := a.do(t, http.MethodPost, "/api/v1/simulate", `{"last_close": 100}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := strings.Replace(simulateBody, `"seed": 1`, `"seed": 1, "controls": {"fii_flows": 99999}`, 1)
	rec, _ = a.do(t, http.MethodPost, "/api/v1/simulate", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForecast(t *testing.T) {
	a := newTestAPI(t, nil)

	rec, _ := a.do(t, http.MethodPost, "/api/v1/simulation/forecast", `{}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	a.initialize(t)
	rec, env := a.do(t, http.MethodPost, "/api/v1/simulation/forecast", `{"horizon":10,"seed":4}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.SimulateResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Len(t, resp.OHLCData, 10)
}

func TestValidateControlsEndpoint(t *testing.T) {
	a := newTestAPI(t, nil)

	rec, env := a.do(t, http.MethodPost, "/api/v1/validate_controls", `{"controls":{"overall_market_sentiment":2}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.ValidateControlsResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.False(t, resp.Valid)
	require.Len(t, resp.Violations, 1)

	rec, _ = a.do(t, http.MethodGet, "/api/v1/controls", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = a.do(t, http.MethodGet, "/api/v1/backend/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var health models.BackendHealth
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.False(t, health.ModelLoaded)
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t, nil)
	rec, _ := a.do(t, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	a = newTestAPI(t, map[string]HealthCheck{
		"redis":      func(context.Context) error { return nil },
		"clickhouse": func(context.Context) error { return errors.New("connection refused") },
	})
	rec, env := a.do(t, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var report healthReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, "degraded", report.Status)
	assert.Equal(t, "ok", report.Checks["redis"])
}

func TestArchiveRouteNeedsArchive(t *testing.T) {
	a := newTestAPI(t, nil)
	rec, _ := a.do(t, http.MethodGet, "/api/v1/simulation/archive", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
