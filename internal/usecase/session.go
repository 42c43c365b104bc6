package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"MarketSim/internal/domain/models"
	"MarketSim/internal/domain/repository"
	"MarketSim/internal/engine"
	"MarketSim/internal/services/features"
	"MarketSim/pkg/logger"
	"MarketSim/pkg/util"
)

var (
	ErrNotInitialized  = errors.New("simulation not initialized")
	ErrUnknownSizeTier = errors.New("unknown size tier")
	ErrUnknownLabel    = errors.New("unknown market condition label")
	ErrUnknownEvent    = errors.New("unknown event")
)

// Session owns the process's single engine. The engine is not synchronized,
// so every call goes through the session mutex. Generated candles are handed
// to the sink after the lock is released.
type Session struct {
	mu          sync.Mutex
	eng         *engine.Engine
	engOpts     []engine.Option
	runID       string
	clearEvents bool

	sink    repository.CandleSink
	metrics repository.Metrics
	log     *logger.Logger
	now     func() time.Time

	autoMu   sync.Mutex
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

type SessionOption func(*Session)

// WithEngineOptions are applied to every engine the session creates.
func WithEngineOptions(opts ...engine.Option) SessionOption {
	return func(s *Session) { s.engOpts = append(s.engOpts, opts...) }
}

// WithSink receives every generated candle.
func WithSink(sink repository.CandleSink) SessionOption {
	return func(s *Session) { s.sink = sink }
}

// WithClearEventsAfterCandle drops queued events once a candle used them.
func WithClearEventsAfterCandle(on bool) SessionOption {
	return func(s *Session) { s.clearEvents = on }
}

func WithAutoAdvanceInterval(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSession(metrics repository.Metrics, log *logger.Logger, opts ...SessionOption) *Session {
	s := &Session{
		metrics:  metrics,
		log:      log.Component("session"),
		now:      time.Now,
		interval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.eng = engine.New(s.engOpts...)
	return s
}

func validSize(t models.SizeTier) bool {
	switch t {
	case models.SmallCap, models.MidCap, models.LargeCap:
		return true
	}
	return false
}

// Initialize starts a new run. A non-zero seed replaces the random source.
func (s *Session) Initialize(p models.Profile, seed int64) (models.SessionStatus, error) {
	if !validSize(p.Size) {
		return models.SessionStatus{}, fmt.Errorf("%w: '%s'", ErrUnknownSizeTier, p.Size)
	}
	s.warnUnknownSector(p.Sector)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seed != 0 {
		s.eng = engine.New(append(append([]engine.Option(nil), s.engOpts...), engine.WithSeed(seed))...)
	}
	s.eng.Initialize(p)
	s.runID = uuid.NewString()
	s.log.Info("simulation initialized",
		logger.String("run_id", s.runID),
		logger.String("size", string(p.Size)),
		logger.String("sector", p.Sector),
		logger.Float64("base_price", s.eng.State().BasePrice),
	)
	return s.statusLocked(), nil
}

// Reset restarts the run, optionally with a new company.
func (s *Session) Reset(p *models.Profile) (models.SessionStatus, error) {
	if p != nil {
		if !validSize(p.Size) {
			return models.SessionStatus{}, fmt.Errorf("%w: '%s'", ErrUnknownSizeTier, p.Size)
		}
		s.warnUnknownSector(p.Sector)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.eng.Reset(p)
	s.runID = uuid.NewString()
	s.log.Info("simulation reset", logger.String("run_id", s.runID))
	return s.statusLocked(), nil
}

func (s *Session) warnUnknownSector(sector string) {
	if _, ok := engine.LookupSector(sector); !ok {
		s.log.Warn("unknown sector, using default model", logger.String("sector", sector))
	}
}

// UpdateSector swaps the sector model of the running simulation.
func (s *Session) UpdateSector(sector string) (models.SessionStatus, error) {
	s.warnUnknownSector(sector)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.eng.Initialized() {
		return models.SessionStatus{}, ErrNotInitialized
	}
	s.eng.UpdateSector(sector)
	return s.statusLocked(), nil
}

// UpdateConditions merges u after checking every label it sets.
func (s *Session) UpdateConditions(u models.ConditionsUpdate) (models.MarketConditions, error) {
	if err := ValidateConditions(u); err != nil {
		return models.MarketConditions{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eng.UpdateMarketConditions(u)
	return s.eng.State().MarketConditions, nil
}

// ValidateConditions rejects labels no sector table knows.
func ValidateConditions(u models.ConditionsUpdate) error {
	labels := engine.Labels()
	check := func(dim string, v *string) error {
		if v == nil {
			return nil
		}
		for _, l := range labels[dim] {
			if l == *v {
				return nil
			}
		}
		return fmt.Errorf("%w: %s '%s'", ErrUnknownLabel, dim, *v)
	}
	for _, f := range []struct {
		dim string
		v   *string
	}{
		{"sentiment", u.Sentiment},
		{"flows", u.Flows},
		{"global_cues", u.GlobalCues},
		{"exchange_rate", u.ExchangeRate},
		{"crude_oil", u.CrudeOil},
	} {
		if err := check(f.dim, f.v); err != nil {
			return err
		}
	}
	return nil
}

// ValidateEvent rejects event types and subtypes without a multiplier.
func ValidateEvent(ev models.CompanyEvent) error {
	subtypes, ok := engine.EventSubtypes()[ev.Type]
	if !ok {
		return fmt.Errorf("%w: type '%s'", ErrUnknownEvent, ev.Type)
	}
	for _, st := range subtypes {
		if st == ev.Subtype {
			return nil
		}
	}
	return fmt.Errorf("%w: %s subtype '%s'", ErrUnknownEvent, ev.Type, ev.Subtype)
}

// AddEvent queues ev for the following candles.
func (s *Session) AddEvent(ev models.CompanyEvent) ([]models.CompanyEvent, error) {
	if err := ValidateEvent(ev); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eng.AddEvent(ev)
	return s.eng.State().ActiveEvents, nil
}

func (s *Session) ClearEvents() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eng.ClearEvents()
}

// NextCandle advances the simulation by one day.
func (s *Session) NextCandle(ctx context.Context) (models.CandlestickData, error) {
	return s.advance(ctx, nil)
}

// TriggerEvent applies ev to exactly one candle: it is queued, the candle is
// generated and the queue is cleared.
func (s *Session) TriggerEvent(ctx context.Context, ev models.CompanyEvent) (models.CandlestickData, error) {
	if err := ValidateEvent(ev); err != nil {
		return models.CandlestickData{}, err
	}
	return s.advance(ctx, &ev)
}

func (s *Session) advance(ctx context.Context, once *models.CompanyEvent) (models.CandlestickData, error) {
	start := time.Now()
	s.mu.Lock()
	if !s.eng.Initialized() {
		s.mu.Unlock()
		return models.CandlestickData{}, ErrNotInitialized
	}
	if once != nil {
		s.eng.AddEvent(*once)
	}
	impact := s.eng.ComputeImpact()
	events := len(s.eng.State().ActiveEvents)
	bar := s.eng.SimulateNextCandle()
	if once != nil || s.clearEvents {
		s.eng.ClearEvents()
	}
	ev := s.eventLocked(models.KindDaily, bar, impact, events)
	s.mu.Unlock()

	s.metrics.RecordCandle(ev.Sector, string(ev.Kind), bar.Close, impact)
	s.metrics.RecordLatency("next_candle", time.Since(start))
	s.emit(ctx, ev)
	return bar, nil
}

// Intraday replaces the current price with a minute-by-minute path.
func (s *Session) Intraday(ctx context.Context, minutes int) ([]models.CandlestickData, error) {
	s.mu.Lock()
	if !s.eng.Initialized() {
		s.mu.Unlock()
		return nil, ErrNotInitialized
	}
	impact := s.eng.ComputeImpact()
	events := len(s.eng.State().ActiveEvents)
	bars := s.eng.SimulateIntradayMovement(minutes)
	evs := make([]*models.CandleEvent, 0, len(bars))
	for _, b := range bars {
		evs = append(evs, s.eventLocked(models.KindIntraday, b, impact, events))
	}
	s.mu.Unlock()

	for _, ev := range evs {
		s.emit(ctx, ev)
	}
	if n := len(bars); n > 0 {
		s.metrics.RecordCandle(evs[0].Sector, string(models.KindIntraday), bars[n-1].Close, impact)
	}
	return bars, nil
}

func (s *Session) eventLocked(kind models.CandleKind, bar models.CandlestickData, impact float64, events int) *models.CandleEvent {
	st := s.eng.State()
	return &models.CandleEvent{
		RunID:       s.runID,
		Kind:        kind,
		Day:         st.CurrentDay,
		Sector:      s.eng.Model().Name,
		SizeTier:    st.CompanyProfile.Size,
		Impact:      impact,
		Events:      events,
		Candle:      bar,
		GeneratedAt: s.now(),
	}
}

func (s *Session) emit(ctx context.Context, ev *models.CandleEvent) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Write(ctx, ev); err != nil {
		s.metrics.RecordSinkError(s.sink.Name())
		s.log.Warn("candle sink failed",
			logger.String("sink", s.sink.Name()),
			logger.Int("day", ev.Day),
			logger.Error(err),
		)
	}
}

// Status returns the run id and a snapshot of the engine.
func (s *Session) Status() models.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Session) statusLocked() models.SessionStatus {
	return models.SessionStatus{
		RunID:       s.runID,
		Initialized: s.eng.Initialized(),
		AutoAdvance: s.AutoAdvancing(),
		State:       s.eng.State(),
	}
}

// History returns the retained bars, or only the last limit bars when
// limit is positive.
func (s *Session) History(limit int) []models.CandlestickData {
	s.mu.Lock()
	bars := s.eng.HistoricalData()
	s.mu.Unlock()
	if limit > 0 {
		bars = bars[len(bars)-util.ClampInt(limit, 0, len(bars)):]
	}
	return bars
}

func (s *Session) Price() models.PriceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.eng.State()
	return models.PriceSnapshot{
		CurrentPrice: st.CurrentPrice,
		CurrentDay:   st.CurrentDay,
		BasePrice:    st.BasePrice,
		Change:       s.eng.PriceChange(),
	}
}

func (s *Session) Duration() (models.SimulationDuration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.eng.Initialized() {
		return models.SimulationDuration{}, ErrNotInitialized
	}
	return s.eng.SimulationDuration(), nil
}

func (s *Session) Breakdown() models.ImpactBreakdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.MarketImpactBreakdown()
}

// Summary combines the price view with statistics over the retained bars.
func (s *Session) Summary() (models.SimulationSummary, error) {
	s.mu.Lock()
	if !s.eng.Initialized() {
		s.mu.Unlock()
		return models.SimulationSummary{}, ErrNotInitialized
	}
	st := s.eng.State()
	out := models.SimulationSummary{
		Profile:     st.CompanyProfile,
		CurrentDay:  st.CurrentDay,
		Price:       st.CurrentPrice,
		BasePrice:   st.BasePrice,
		Change:      s.eng.PriceChange(),
		Duration:    s.eng.SimulationDuration(),
		TotalImpact: s.eng.ComputeImpact(),
	}
	s.mu.Unlock()

	out.Stats = features.Compute(st.HistoricalData)
	return out, nil
}

// StoryContext is the narrative view of the current day.
func (s *Session) StoryContext() (models.StoryContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.eng.Initialized() {
		return models.StoryContext{}, ErrNotInitialized
	}
	st := s.eng.State()
	closes := make([]float64, len(st.HistoricalData))
	for i, b := range st.HistoricalData {
		closes[i] = b.Close
	}
	return models.StoryContext{
		MarketConditions: st.MarketConditions,
		Sector:           st.CompanyProfile.Sector,
		CompanySize:      string(st.CompanyProfile.Size),
		PriceChange:      s.eng.PriceChange(),
		CurrentDay:       st.CurrentDay,
		ActiveEvents:     st.ActiveEvents,
		Closes:           closes,
	}, nil
}

// Sectors lists the sectors with a dedicated model.
func (s *Session) Sectors() []string {
	return engine.Sectors()
}

// Catalog lists the recognised condition labels and event subtypes.
func (s *Session) Catalog() map[string]interface{} {
	events := make(map[string][]string)
	types := make([]string, 0)
	for t, st := range engine.EventSubtypes() {
		events[string(t)] = st
		types = append(types, string(t))
	}
	sort.Strings(types)
	return map[string]interface{}{
		"sectors":     engine.Sectors(),
		"size_tiers":  []string{string(models.SmallCap), string(models.MidCap), string(models.LargeCap)},
		"conditions":  engine.Labels(),
		"event_types": types,
		"events":      events,
	}
}

// StartAuto advances the simulation every interval until StopAuto or ctx
// is done. Starting twice is a no-op.
func (s *Session) StartAuto(ctx context.Context) error {
	s.mu.Lock()
	ok := s.eng.Initialized()
	s.mu.Unlock()
	if !ok {
		return ErrNotInitialized
	}

	s.autoMu.Lock()
	defer s.autoMu.Unlock()
	if s.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.metrics.SetAutoAdvance(true)
	s.log.Info("auto-advance started", logger.Duration("interval", s.interval))

	go s.autoLoop(ctx, s.done)
	return nil
}

func (s *Session) autoLoop(ctx context.Context, done chan struct{}) {
	defer func() {
		s.autoMu.Lock()
		if s.done == done {
			s.cancel, s.done = nil, nil
			s.metrics.SetAutoAdvance(false)
		}
		s.autoMu.Unlock()
		close(done)
	}()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.NextCandle(ctx); err != nil {
				s.metrics.RecordError("auto_advance")
				s.log.Warn("auto-advance candle failed", logger.Error(err))
			}
		}
	}
}

// StopAuto stops the auto-advance loop and waits for it to exit.
func (s *Session) StopAuto() {
	s.autoMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.autoMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.metrics.SetAutoAdvance(false)
	s.log.Info("auto-advance stopped")
}

func (s *Session) AutoAdvancing() bool {
	s.autoMu.Lock()
	defer s.autoMu.Unlock()
	return s.cancel != nil
}

// Close stops auto-advance.
func (s *Session) Close() error {
	s.StopAuto()
	return nil
}
