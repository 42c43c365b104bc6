package usecase

import (
	"strings"
	"time"

	"MarketSim/internal/domain/models"
	"MarketSim/pkg/util"
)

// Numeric control values for each market condition label.
var (
	sentimentControl = map[string]float64{
		"strongly-bullish": 0.8, "bullish": 0.4, "neutral": 0, "bearish": -0.4, "strongly-bearish": -0.8,
	}
	globalCuesControl = map[string]float64{
		"strongly-positive": 0.8, "positive": 0.4, "neutral": 0, "negative": -0.4, "strongly-negative": -0.8,
	}
	flowsControl = map[string]float64{
		"strong-inflows": 1500, "moderate-inflows": 500, "neutral": 0, "moderate-outflows": -500, "strong-outflows": -1500,
	}
	inrUSDControl = map[string]float64{
		"rupee-appreciating": -0.02, "stable": 0, "rupee-depreciating": 0.02,
	}
	crudeOilControl = map[string]float64{
		"sharply-up": 0.08, "up": 0.03, "stable": 0, "down": -0.03, "sharply-down": -0.08,
	}
	analystControl = map[string]float64{
		"strong-buy": 2, "buy": 1, "hold": 0, "sell": -1, "strong-sell": -2,
	}
)

// BuildForecastRequest turns the session state into a remote simulate
// request. Conditions hold for the whole horizon; queued events land on the
// first forecast day.
func BuildForecastRequest(st models.SimulationState, fr models.ForecastRequest, now time.Time) *models.SimulateRequest {
	size := st.CompanyProfile.Size
	sector := st.CompanyProfile.Sector

	start := now
	if n := len(st.HistoricalData); n > 0 {
		if d, ok := util.ParseDate(st.HistoricalData[n-1].Time); ok {
			start = d
		}
	}
	lastClose := st.CurrentPrice

	c := st.MarketConditions
	req := &models.SimulateRequest{
		CompanyMeta: models.CompanyMeta{
			CompanyName:     "Simulated " + strings.ReplaceAll(sector, "-", " ") + " company",
			Ticker:          "SIM-" + strings.ToUpper(sector),
			Sector:          sector,
			MarketCapBucket: size.Bucket(),
			CompanySize:     string(size),
		},
		LastClose: &lastClose,
		StartDate: util.FormatDate(start),
		Horizon:   fr.Horizon,
		Mode:      fr.Mode,
		Seed:      fr.Seed,
		Controls: map[string]interface{}{
			CtrlSentiment:  sentimentControl[c.Sentiment],
			CtrlFIIFlows:   flowsControl[c.Flows],
			CtrlGlobalCues: globalCuesControl[c.GlobalCues],
			CtrlINRUSD:     inrUSDControl[c.ExchangeRate],
			CtrlCrudeOil:   crudeOilControl[c.CrudeOil],
		},
	}

	days := util.BusinessDaysAfter(start, 1)
	if len(days) == 0 {
		return req
	}
	first := util.FormatDate(days[0])
	for _, ev := range st.ActiveEvents {
		if ce, ok := eventControl(ev); ok {
			ce.Date = first
			req.Events = append(req.Events, ce)
		}
	}
	return req
}

func eventControl(ev models.CompanyEvent) (models.ControlEvent, bool) {
	switch ev.Type {
	case models.EventEarnings:
		return models.ControlEvent{Field: CtrlEarnings, Value: 1.0}, true
	case models.EventAnalyst:
		v, ok := analystControl[ev.Subtype]
		return models.ControlEvent{Field: CtrlAnalyst, Value: v}, ok
	case models.EventNews:
		return models.ControlEvent{Field: CtrlNews, Value: NormalizeCategorical(CtrlNews, ev.Subtype)}, true
	case models.EventInsider:
		return models.ControlEvent{Field: CtrlInsider, Value: NormalizeCategorical(CtrlInsider, ev.Subtype)}, true
	case models.EventShock:
		return models.ControlEvent{Field: CtrlShock, Value: NormalizeCategorical(CtrlShock, ev.Subtype)}, true
	}
	return models.ControlEvent{}, false
}

// ForecastRequest builds a remote simulate request from the running session.
func (s *Session) ForecastRequest(fr models.ForecastRequest) (*models.SimulateRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.eng.Initialized() {
		return nil, ErrNotInitialized
	}
	return BuildForecastRequest(s.eng.State(), fr, s.now()), nil
}
