package models

// Remote simulation: the JSON shape of the backend /simulate endpoint.

const (
	ModeHold       = "hold"
	ModeTrajectory = "trajectory"

	ModelStatusML        = "ml_model"
	ModelStatusSynthetic = "synthetic_fallback"
)

type CompanyMeta struct {
	CompanyID       string `json:"company_id,omitempty"`
	CompanyName     string `json:"company_name" validate:"required"`
	Ticker          string `json:"ticker" validate:"required"`
	Sector          string `json:"sector" validate:"required"`
	MarketCapBucket string `json:"market_cap_bucket" validate:"required,oneof=large_cap mid_cap small_cap"`
	CompanySize     string `json:"company_size" validate:"required"`
}

// ID falls back to the ticker when no company id is given.
func (m CompanyMeta) ID() string {
	if m.CompanyID != "" {
		return m.CompanyID
	}
	return m.Ticker
}

// ControlEvent overrides one control field on one date of the horizon.
type ControlEvent struct {
	Date  string      `json:"date" validate:"required,datetime=2006-01-02"`
	Field string      `json:"field" validate:"required"`
	Value interface{} `json:"value"`
}

// SimulateRequest is the body of POST /simulate. Controls hold either a
// scalar (repeated over the horizon) or an array with one value per day.
type SimulateRequest struct {
	CompanyMeta CompanyMeta            `json:"company_meta" validate:"required"`
	LastClose   *float64               `json:"last_close" validate:"required,gt=0"`
	StartDate   string                 `json:"start_date" validate:"required,datetime=2006-01-02"`
	Horizon     int                    `json:"horizon" default:"88" validate:"gte=1,lte=365"`
	Mode        string                 `json:"mode" default:"trajectory" validate:"oneof=hold trajectory"`
	Controls    map[string]interface{} `json:"controls,omitempty"`
	Events      []ControlEvent         `json:"events,omitempty" validate:"dive"`
	BaseVol     *float64               `json:"base_vol,omitempty" validate:"omitempty,gt=0,lte=1"`
	Seed        *int64                 `json:"seed,omitempty"`
}

type OHLCBar struct {
	Date  string  `json:"date"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

type SimulationInfo struct {
	CompanyName      string   `json:"company_name"`
	Ticker           string   `json:"ticker"`
	Sector           string   `json:"sector"`
	MarketCapBucket  string   `json:"market_cap_bucket"`
	Mode             string   `json:"mode"`
	Horizon          int      `json:"horizon"`
	StartDate        string   `json:"start_date"`
	EndDate          string   `json:"end_date"`
	FeaturesUsed     []string `json:"features_used"`
	NumEventsApplied int      `json:"num_events_applied"`
	ModelStatus      string   `json:"model_status"`
}

type PanelShape struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

type SimulateResponse struct {
	Status              string         `json:"status"`
	SimulationInfo      SimulationInfo `json:"simulation_info"`
	OHLCData            []OHLCBar      `json:"ohlc_data"`
	PredictedLogReturns []float64      `json:"predicted_log_returns"`
	FeaturePanelShape   PanelShape     `json:"feature_panel_shape"`
	// Source is "backend", "cache" or "local"; it is not part of the backend shape.
	Source string `json:"source,omitempty"`
}

type NumericRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type AllowedControls struct {
	Numeric     map[string]NumericRange `json:"numeric"`
	Categorical map[string][]string     `json:"categorical"`
	Horizon     NumericRange            `json:"horizon"`
	Modes       []string                `json:"modes"`
}

// ControlViolation names one control that is out of range or unknown.
type ControlViolation struct {
	Control string `json:"control"`
	Message string `json:"message"`
}

type ValidateControlsRequest struct {
	Controls map[string]interface{} `json:"controls,omitempty"`
	Horizon  int                    `json:"horizon,omitempty"`
}

type ValidateControlsResponse struct {
	Status          string             `json:"status"`
	Valid           bool               `json:"valid"`
	AllowedControls AllowedControls    `json:"allowed_controls"`
	Violations      []ControlViolation `json:"violations,omitempty"`
}

type BackendHealth struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Timestamp   string `json:"timestamp"`
}
