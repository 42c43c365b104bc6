package engine

import (
	"math"
	"time"

	"MarketSim/internal/domain/models"
)

const (
	DefaultRetention = 50
	DefaultSeedBars  = 30

	dateLayout      = "2006-01-02"
	startDateLayout = "Jan 2, 2006"

	minSizeValue = 10
	maxSizeValue = 98
)

// DefaultProfile is used when a reset arrives before any initialization.
var DefaultProfile = models.Profile{Size: models.MidCap, Sector: "it"}

// Engine is a single-session price simulator. It owns its state exclusively
// and is not safe for concurrent use.
type Engine struct {
	state       models.SimulationState
	model       SectorModel
	initialized bool

	rnd       Source
	now       func() time.Time
	retention int
	seedBars  int
	fallback  models.Profile
}

type Option func(*Engine)

// WithSource sets the random source used for every draw.
func WithSource(src Source) Option {
	return func(e *Engine) {
		if src != nil {
			e.rnd = src
		}
	}
}

// WithSeed makes the engine reproducible.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.rnd = NewSource(seed) }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRetention bounds the historical buffer.
func WithRetention(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.retention = n
		}
	}
}

// WithDefaultProfile replaces DefaultProfile for resets before initialization.
func WithDefaultProfile(p models.Profile) Option {
	return func(e *Engine) {
		if p.Size != "" && p.Sector != "" {
			e.fallback = p
		}
	}
}

func WithSeedBars(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.seedBars = n
		}
	}
}

// New returns an uninitialized engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		now:       time.Now,
		retention: DefaultRetention,
		seedBars:  DefaultSeedBars,
		model:     defaultModel,
		fallback:  DefaultProfile,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rnd == nil {
		e.rnd = NewSource(0)
	}
	if e.seedBars > e.retention {
		e.seedBars = e.retention
	}
	e.state.MarketConditions = models.NeutralConditions()
	return e
}

// Initialize starts a simulation for profile: base price from the size tier,
// a fresh size value, the sector model and a seeded history window.
func (e *Engine) Initialize(p models.Profile) {
	e.applyProfile(p)
	e.state.MarketConditions = models.NeutralConditions()
	e.restart()
	e.initialized = true
}

// Reset restarts the simulation. A nil profile keeps the current company.
// Market conditions survive a reset; events do not.
func (e *Engine) Reset(p *models.Profile) {
	if p == nil && !e.initialized {
		fb := e.fallback
		p = &fb
	}
	if p != nil {
		e.applyProfile(*p)
	}
	e.restart()
	e.initialized = true
}

func (e *Engine) applyProfile(p models.Profile) {
	e.state.CompanyProfile = models.CompanyProfile{
		Profile:   p,
		SizeValue: e.drawSizeValue(),
	}
	e.state.BasePrice = p.Size.BasePrice()
	e.model, _ = LookupSector(p.Sector)
}

func (e *Engine) restart() {
	e.state.CurrentDay = 1
	e.state.StartTime = e.now()
	e.state.HistoricalData = nil
	e.state.ActiveEvents = nil
	e.state.CurrentPrice = e.state.BasePrice
	e.seedHistory()
}

func (e *Engine) drawSizeValue() int {
	return int(math.Floor(e.rnd.Float64()*float64(maxSizeValue-minSizeValue+1))) + minSizeValue
}

// Initialized reports whether Initialize has run.
func (e *Engine) Initialized() bool {
	return e.initialized
}

// UpdateSector swaps the sector model without touching price or history.
func (e *Engine) UpdateSector(sector string) {
	e.state.CompanyProfile.Sector = sector
	e.model, _ = LookupSector(sector)
}

// Model returns the sector model currently driving the simulation.
func (e *Engine) Model() SectorModel {
	return e.model
}

// UpdateMarketConditions merges u into the current conditions. Labels are
// not validated here.
func (e *Engine) UpdateMarketConditions(u models.ConditionsUpdate) {
	e.state.MarketConditions = e.state.MarketConditions.Merge(u)
}

// AddEvent queues ev. Queued events apply to every candle until ClearEvents.
func (e *Engine) AddEvent(ev models.CompanyEvent) {
	e.state.ActiveEvents = append(e.state.ActiveEvents, ev)
}

func (e *Engine) ClearEvents() {
	e.state.ActiveEvents = nil
}

// State returns a deep copy of the engine state.
func (e *Engine) State() models.SimulationState {
	return e.state.Clone()
}

// HistoricalData returns a copy of the retained bars, oldest first.
func (e *Engine) HistoricalData() []models.CandlestickData {
	return append([]models.CandlestickData(nil), e.state.HistoricalData...)
}

func (e *Engine) CurrentPrice() float64 {
	return e.state.CurrentPrice
}

func (e *Engine) CurrentDay() int {
	return e.state.CurrentDay
}

// PriceChange measures the current price against the close of the most
// recent bar, or against the base price when there is no history.
func (e *Engine) PriceChange() models.PriceChange {
	ref := e.state.BasePrice
	if n := len(e.state.HistoricalData); n > 0 {
		ref = e.state.HistoricalData[n-1].Close
	}
	if ref == 0 {
		return models.PriceChange{}
	}
	abs := e.state.CurrentPrice - ref
	return models.PriceChange{
		Absolute:   round2(abs),
		Percentage: round2(abs / ref * 100),
	}
}

// SimulationDuration is the wall-clock time since the simulation started.
func (e *Engine) SimulationDuration() models.SimulationDuration {
	elapsed := e.now().Sub(e.state.StartTime)
	if elapsed < 0 {
		elapsed = 0
	}
	total := int(elapsed / time.Minute)
	return models.SimulationDuration{
		Days:      total / (24 * 60),
		Hours:     (total % (24 * 60)) / 60,
		Minutes:   total % 60,
		StartDate: e.state.StartTime.Format(startDateLayout),
	}
}

func (e *Engine) appendBar(bar models.CandlestickData) {
	e.state.HistoricalData = append(e.state.HistoricalData, bar)
	if over := len(e.state.HistoricalData) - e.retention; over > 0 {
		kept := make([]models.CandlestickData, e.retention)
		copy(kept, e.state.HistoricalData[over:])
		e.state.HistoricalData = kept
	}
}
