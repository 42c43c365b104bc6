package models

// StoryType classifies a day's move for the narrative layer.
type StoryType string

const (
	StoryStrongBullish StoryType = "strongBullish"
	StoryStrongBearish StoryType = "strongBearish"
	StoryNeutral       StoryType = "neutral"
)

// StoryContext is what the narrative layer needs from a simulation. Its JSON
// shape is the request body of the remote explainer.
type StoryContext struct {
	MarketConditions MarketConditions `json:"market_conditions"`
	Sector           string           `json:"sector"`
	CompanySize      string           `json:"company_size"`
	PriceChange      PriceChange      `json:"price_change"`
	CurrentDay       int              `json:"current_day"`
	ActiveEvents     []CompanyEvent   `json:"active_events"`
	// Closes feeds pattern detection; it is not sent to the explainer.
	Closes []float64 `json:"-"`
}

type Story struct {
	Title           string    `json:"title"`
	Explanation     string    `json:"explanation"`
	KeyPoints       []string  `json:"key_points"`
	Analogy         string    `json:"analogy"`
	Prediction      string    `json:"prediction"`
	ConfidenceScore float64   `json:"confidence_score,omitempty"`
	MarketMood      string    `json:"market_mood,omitempty"`
	SectorContext   string    `json:"sector_context,omitempty"`
	Type            StoryType `json:"story_type,omitempty"`
	Pattern         string    `json:"market_pattern,omitempty"`
	Source          string    `json:"source,omitempty"`
}

// ExplanationResponse is the remote explainer's reply.
type ExplanationResponse struct {
	Story    Story `json:"story"`
	Metadata struct {
		ProcessingTimeMs float64 `json:"processing_time_ms"`
		ModelVersion     string  `json:"model_version"`
		ExplanationType  string  `json:"explanation_type"`
	} `json:"metadata"`
	Timestamp string `json:"timestamp"`
}

// HistoryStats summarises the retained bars.
type HistoryStats struct {
	Bars             int     `json:"bars"`
	FirstClose       float64 `json:"first_close"`
	LastClose        float64 `json:"last_close"`
	TotalReturnPct   float64 `json:"total_return_pct"`
	MeanLogReturn    float64 `json:"mean_log_return"`
	RealizedVolPct   float64 `json:"realized_vol_pct"`
	AnnualizedVolPct float64 `json:"annualized_vol_pct"`
	MaxDrawdownPct   float64 `json:"max_drawdown_pct"`
	HighestHigh      float64 `json:"highest_high"`
	LowestLow        float64 `json:"lowest_low"`
	AverageVolume    float64 `json:"average_volume"`
	UpDays           int     `json:"up_days"`
	DownDays         int     `json:"down_days"`
	Pattern          string  `json:"market_pattern"`
}

// SimulationSummary answers GET /simulation/summary.
type SimulationSummary struct {
	Profile     CompanyProfile     `json:"company_profile"`
	CurrentDay  int                `json:"current_day"`
	Price       float64            `json:"current_price"`
	BasePrice   float64            `json:"base_price"`
	Change      PriceChange        `json:"price_change"`
	Duration    SimulationDuration `json:"duration"`
	Stats       HistoryStats       `json:"stats"`
	TotalImpact float64            `json:"total_impact"`
}
