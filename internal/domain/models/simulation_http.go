package models

// Requests for the simulation HTTP endpoints.

type InitializeRequest struct {
	SizeTier string `json:"size_tier" default:"mid-cap" validate:"oneof=small-cap mid-cap large-cap"`
	Sector   string `json:"sector" validate:"required"`
	// Seed makes the new run reproducible; zero keeps the current source.
	Seed int64 `json:"seed"`
}

// Profile converts the request into an engine profile.
func (r InitializeRequest) Profile() Profile {
	return Profile{Size: SizeTier(r.SizeTier), Sector: r.Sector}
}

// ResetRequest optionally replaces the company. Both fields must be set to
// replace it; an empty body keeps the current company.
type ResetRequest struct {
	SizeTier string `json:"size_tier" validate:"required_with=Sector,omitempty,oneof=small-cap mid-cap large-cap"`
	Sector   string `json:"sector" validate:"required_with=SizeTier"`
}

// Profile returns nil when the request keeps the current company.
func (r ResetRequest) Profile() *Profile {
	if r.SizeTier == "" && r.Sector == "" {
		return nil
	}
	return &Profile{Size: SizeTier(r.SizeTier), Sector: r.Sector}
}

type SectorRequest struct {
	Sector string `json:"sector" validate:"required"`
}

type EventRequest struct {
	Type    string  `json:"type" validate:"required,oneof=earnings analyst news insider shock"`
	Subtype string  `json:"subtype" validate:"required"`
	Impact  float64 `json:"impact" validate:"gte=0"`
}

func (r EventRequest) Event() CompanyEvent {
	return CompanyEvent{Type: EventType(r.Type), Subtype: r.Subtype, Impact: r.Impact}
}

type IntradayRequest struct {
	Minutes int `json:"minutes" default:"60" validate:"gte=1,lte=390"`
}

type ForecastRequest struct {
	Horizon int    `json:"horizon" default:"30" validate:"gte=1,lte=365"`
	Mode    string `json:"mode" default:"hold" validate:"oneof=hold trajectory"`
	Seed    *int64 `json:"seed,omitempty"`
}

// HistoryQuery limits GET /simulation/history to the most recent bars.
type HistoryQuery struct {
	Limit int `query:"limit" json:"limit" validate:"gte=0,lte=1000"`
}

// PriceSnapshot answers GET /simulation/price.
type PriceSnapshot struct {
	CurrentPrice float64     `json:"current_price"`
	CurrentDay   int         `json:"current_day"`
	BasePrice    float64     `json:"base_price"`
	Change       PriceChange `json:"price_change"`
}

// SessionStatus answers GET /simulation/state alongside the engine snapshot.
type SessionStatus struct {
	RunID       string          `json:"run_id"`
	Initialized bool            `json:"initialized"`
	AutoAdvance bool            `json:"auto_advance"`
	State       SimulationState `json:"state"`
}

// ControlCommand drives the session from the control topic.
type ControlCommand struct {
	Command    string            `json:"command"`
	Profile    *Profile          `json:"profile,omitempty"`
	Seed       int64             `json:"seed,omitempty"`
	Sector     string            `json:"sector,omitempty"`
	Conditions *ConditionsUpdate `json:"conditions,omitempty"`
	Event      *CompanyEvent     `json:"event,omitempty"`
	Minutes    int               `json:"minutes,omitempty"`
}
