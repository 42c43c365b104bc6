package usecase

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"MarketSim/internal/domain/models"
	"MarketSim/pkg/util"
)

// Per-unit contributions of the feature panel to the synthetic daily log return.
const (
	earningsWeight  = 0.05
	analystWeight   = 0.03
	newsImpact      = 0.025
	insiderImpact   = 0.02
	sentimentWeight = 0.02
	sentimentPivot  = 0.5
	wickScale       = 0.3

	featureSynthetic = "synthetic_generation"
)

var shockImpacts = map[string]float64{
	"financial_crisis":  -0.05,
	"geopolitical":      -0.04,
	"pandemic":          -0.06,
	"commodity_spike":   -0.03,
	"policy_rate_shock": -0.02,
}

var baseVolatility = map[string]float64{
	"large_cap": 0.010,
	"mid_cap":   0.015,
	"small_cap": 0.020,
}

// BaseVolatility returns the daily volatility used for a market-cap bucket.
func BaseVolatility(bucket string) float64 {
	if v, ok := baseVolatility[bucket]; ok {
		return v
	}
	return 0.015
}

// featurePanel holds one value per control per business day.
type featurePanel struct {
	dates       []time.Time
	numeric     map[string][]float64
	categorical map[string][]string
}

func buildPanel(req *models.SimulateRequest) (*featurePanel, error) {
	start, ok := util.ParseDate(req.StartDate)
	if !ok {
		return nil, fmt.Errorf("invalid start_date '%s'", req.StartDate)
	}
	n := req.Horizon
	if n < MinHorizon || n > MaxHorizon {
		return nil, fmt.Errorf("horizon %d outside %d..%d", n, MinHorizon, MaxHorizon)
	}
	p := &featurePanel{
		dates:       util.BusinessDaysAfter(start, n),
		numeric:     make(map[string][]float64, len(numericControls)),
		categorical: make(map[string][]string, len(categoricalControls)),
	}

	for _, c := range numericControls {
		vals, err := ExpandNumeric(c.name, req.Controls[c.name], n)
		if err != nil {
			return nil, err
		}
		p.numeric[c.name] = vals
	}
	for name := range categoricalControls {
		vals, err := ExpandCategorical(name, req.Controls[name], n)
		if err != nil {
			return nil, err
		}
		p.categorical[name] = vals
	}

	for _, ev := range req.Events {
		if err := p.apply(ev); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// apply overrides one field on the event's date. Dates outside the horizon
// are ignored.
func (p *featurePanel) apply(ev models.ControlEvent) error {
	d, ok := util.ParseDate(ev.Date)
	if !ok {
		return fmt.Errorf("event date '%s' is invalid", ev.Date)
	}
	idx := -1
	for i, day := range p.dates {
		if day.Equal(d) {
			idx = i
			break
		}
	}

	if vals, ok := p.numeric[ev.Field]; ok {
		f, ok := util.ToFloat(ev.Value)
		if !ok {
			return fmt.Errorf("event field '%s' needs a number", ev.Field)
		}
		if idx >= 0 {
			vals[idx] = f
		}
		return nil
	}
	if vals, ok := p.categorical[ev.Field]; ok {
		s, ok := ev.Value.(string)
		if !ok {
			return fmt.Errorf("event field '%s' needs a string", ev.Field)
		}
		if idx >= 0 {
			vals[idx] = NormalizeCategorical(ev.Field, s)
		}
		return nil
	}
	return fmt.Errorf("event field '%s' is not a control", ev.Field)
}

// SyntheticSimulator answers /simulate locally when no model backend is
// reachable. Returns follow the control panel, OHLC bars follow the returns.
type SyntheticSimulator struct {
	seed func() int64
}

func NewSyntheticSimulator() *SyntheticSimulator {
	return &SyntheticSimulator{seed: func() int64 { return time.Now().UnixNano() }}
}

func (s *SyntheticSimulator) Health(ctx context.Context) (*models.BackendHealth, error) {
	return &models.BackendHealth{
		Status:      "healthy",
		ModelLoaded: false,
		Timestamp:   time.Now().Format(time.RFC3339),
	}, nil
}

func (s *SyntheticSimulator) Simulate(ctx context.Context, req *models.SimulateRequest) (*models.SimulateResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	applyRequestDefaults(req)

	panel, err := buildPanel(req)
	if err != nil {
		return nil, err
	}

	baseVol := *req.BaseVol
	seeded := req.Seed != nil
	seed := s.seed()
	if seeded {
		seed = *req.Seed
	}
	rnd := rand.New(rand.NewSource(seed))
	returns := syntheticReturns(panel, baseVol, rnd)
	if seeded {
		rnd = rand.New(rand.NewSource(seed))
	}
	bars := ohlcFromReturns(*req.LastClose, returns, panel.dates, baseVol, rnd)

	meta := req.CompanyMeta
	return &models.SimulateResponse{
		Status: "success",
		SimulationInfo: models.SimulationInfo{
			CompanyName:      meta.CompanyName,
			Ticker:           meta.Ticker,
			Sector:           meta.Sector,
			MarketCapBucket:  meta.MarketCapBucket,
			Mode:             req.Mode,
			Horizon:          req.Horizon,
			StartDate:        req.StartDate,
			EndDate:          util.FormatDate(panel.dates[len(panel.dates)-1]),
			FeaturesUsed:     []string{featureSynthetic},
			NumEventsApplied: len(req.Events),
			ModelStatus:      models.ModelStatusSynthetic,
		},
		OHLCData:            bars,
		PredictedLogReturns: returns,
		FeaturePanelShape:   models.PanelShape{Rows: len(panel.dates), Columns: 1},
	}, nil
}

// applyRequestDefaults fills horizon, mode and base volatility.
func applyRequestDefaults(req *models.SimulateRequest) {
	if req.Horizon == 0 {
		req.Horizon = 88
	}
	if req.Mode == "" {
		req.Mode = models.ModeTrajectory
	}
	if req.BaseVol == nil {
		v := BaseVolatility(req.CompanyMeta.MarketCapBucket)
		req.BaseVol = &v
	}
}

func syntheticReturns(p *featurePanel, baseVol float64, rnd *rand.Rand) []float64 {
	n := len(p.dates)
	out := make([]float64, n)
	for i := range out {
		out[i] = rnd.NormFloat64() * baseVol
	}

	for i := range out {
		r := p.numeric[CtrlEarnings][i]*earningsWeight + p.numeric[CtrlAnalyst][i]*analystWeight
		r += shockImpacts[p.categorical[CtrlShock][i]]

		switch p.categorical[CtrlNews][i] {
		case none:
		case "positive":
			r += newsImpact
		default:
			r -= newsImpact
		}
		switch p.categorical[CtrlInsider][i] {
		case none:
		case "buy":
			r += insiderImpact
		default:
			r -= insiderImpact
		}

		r += (p.numeric[CtrlSentiment][i] - sentimentPivot) * sentimentWeight
		out[i] += r
	}
	return out
}

// ohlcFromReturns opens each bar at the previous close and adds exponential
// wicks scaled by the body size and a random intraday volatility.
func ohlcFromReturns(lastClose float64, returns []float64, dates []time.Time, baseVol float64, rnd *rand.Rand) []models.OHLCBar {
	out := make([]models.OHLCBar, 0, len(returns))
	cur := lastClose
	for i, r := range returns {
		open := cur
		close := open * math.Exp(r)

		iv := baseVol * (0.5 + rnd.Float64())
		body := math.Abs(close - open)
		highExtra := rnd.ExpFloat64() * body * wickScale * iv
		lowExtra := rnd.ExpFloat64() * body * wickScale * iv

		high := math.Max(math.Max(open, close)+highExtra, math.Max(open, close))
		low := math.Min(math.Min(open, close)-lowExtra, math.Min(open, close))

		out = append(out, models.OHLCBar{
			Date:  util.FormatDate(dates[i]),
			Open:  util.Round2(open),
			High:  util.Round2(high),
			Low:   util.Round2(low),
			Close: util.Round2(close),
		})
		cur = close
	}
	return out
}
