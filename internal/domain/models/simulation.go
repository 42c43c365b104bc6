package models

import "time"

// SizeTier is the market-capitalization bucket of the simulated company.
type SizeTier string

const (
	SmallCap SizeTier = "small-cap"
	MidCap   SizeTier = "mid-cap"
	LargeCap SizeTier = "large-cap"
)

// BasePrice returns the reference price for the tier. Unknown tiers price as mid-cap.
func (t SizeTier) BasePrice() float64 {
	switch t {
	case SmallCap:
		return 124.36
	case LargeCap:
		return 179.52
	default:
		return 154.80
	}
}

// Multiplier is the size contribution to the composed impact factor.
func (t SizeTier) Multiplier() float64 {
	switch t {
	case SmallCap:
		return 1.2
	case LargeCap:
		return 0.8
	default:
		return 1.0
	}
}

// Bucket maps the tier onto the remote backend's market_cap_bucket naming.
func (t SizeTier) Bucket() string {
	switch t {
	case SmallCap:
		return "small_cap"
	case LargeCap:
		return "large_cap"
	default:
		return "mid_cap"
	}
}

// Profile is what a caller supplies to start or reset a simulation.
type Profile struct {
	Size   SizeTier `json:"size"`
	Sector string   `json:"sector"`
}

// CompanyProfile is the active profile including the size value drawn at creation.
type CompanyProfile struct {
	Profile
	SizeValue int `json:"company_size_value"`
}

// MarketConditions holds one label per market dimension.
type MarketConditions struct {
	Sentiment    string `json:"sentiment"`
	Flows        string `json:"flows"`
	GlobalCues   string `json:"global_cues"`
	ExchangeRate string `json:"exchange_rate"`
	CrudeOil     string `json:"crude_oil"`
}

// NeutralConditions returns the conditions a fresh simulation starts with.
func NeutralConditions() MarketConditions {
	return MarketConditions{
		Sentiment:    "neutral",
		Flows:        "neutral",
		GlobalCues:   "neutral",
		ExchangeRate: "stable",
		CrudeOil:     "stable",
	}
}

// ConditionsUpdate is a partial MarketConditions; nil fields are left untouched.
type ConditionsUpdate struct {
	Sentiment    *string `json:"sentiment,omitempty"`
	Flows        *string `json:"flows,omitempty"`
	GlobalCues   *string `json:"global_cues,omitempty"`
	ExchangeRate *string `json:"exchange_rate,omitempty"`
	CrudeOil     *string `json:"crude_oil,omitempty"`
}

// Merge applies the non-nil fields of u on top of c.
func (c MarketConditions) Merge(u ConditionsUpdate) MarketConditions {
	if u.Sentiment != nil {
		c.Sentiment = *u.Sentiment
	}
	if u.Flows != nil {
		c.Flows = *u.Flows
	}
	if u.GlobalCues != nil {
		c.GlobalCues = *u.GlobalCues
	}
	if u.ExchangeRate != nil {
		c.ExchangeRate = *u.ExchangeRate
	}
	if u.CrudeOil != nil {
		c.CrudeOil = *u.CrudeOil
	}
	return c
}

type EventType string

const (
	EventEarnings EventType = "earnings"
	EventAnalyst  EventType = "analyst"
	EventNews     EventType = "news"
	EventInsider  EventType = "insider"
	EventShock    EventType = "shock"
)

// CompanyEvent is a one-off event queued for the next candles.
type CompanyEvent struct {
	Type    EventType `json:"type"`
	Subtype string    `json:"subtype"`
	Impact  float64   `json:"impact"`
}

// CandlestickData is one OHLCV bar. Time is YYYY-MM-DD for daily bars and
// RFC3339 for intraday bars.
type CandlestickData struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// SimulationState is a snapshot of the engine's state.
type SimulationState struct {
	CurrentPrice     float64           `json:"current_price"`
	CurrentDay       int               `json:"current_day"`
	StartTime        time.Time         `json:"start_time"`
	HistoricalData   []CandlestickData `json:"historical_data"`
	CompanyProfile   CompanyProfile    `json:"company_profile"`
	MarketConditions MarketConditions  `json:"market_conditions"`
	ActiveEvents     []CompanyEvent    `json:"active_events"`
	BasePrice        float64           `json:"base_price"`
}

// Clone returns a copy that shares no slices with s.
func (s SimulationState) Clone() SimulationState {
	out := s
	out.HistoricalData = append([]CandlestickData(nil), s.HistoricalData...)
	out.ActiveEvents = append([]CompanyEvent(nil), s.ActiveEvents...)
	return out
}

type PriceChange struct {
	Absolute   float64 `json:"absolute"`
	Percentage float64 `json:"percentage"`
}

// SimulationDuration is the wall-clock time elapsed since the simulation started.
type SimulationDuration struct {
	Days      int    `json:"days"`
	Hours     int    `json:"hours"`
	Minutes   int    `json:"minutes"`
	StartDate string `json:"start_date"`
}

type ImpactEntry struct {
	Value      string  `json:"value"`
	Multiplier float64 `json:"multiplier"`
}

type DimensionImpacts struct {
	Sentiment ImpactEntry `json:"sentiment"`
	Flows     ImpactEntry `json:"flows"`
	Global    ImpactEntry `json:"global"`
	Currency  ImpactEntry `json:"currency"`
	Oil       ImpactEntry `json:"oil"`
}

// ImpactBreakdown is a diagnostic view of how the impact factor is composed.
type ImpactBreakdown struct {
	Conditions      MarketConditions `json:"conditions"`
	Sector          string           `json:"sector"`
	Impacts         DimensionImpacts `json:"impacts"`
	SizeMultiplier  float64          `json:"size_multiplier"`
	EventMultiplier float64          `json:"event_multiplier"`
	TotalImpact     float64          `json:"total_impact"`
}
