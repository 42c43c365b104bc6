package engine

import (
	"time"

	"MarketSim/internal/domain/models"
)

// stubSource cycles through a fixed list of draws.
type stubSource struct {
	vals []float64
	i    int
}

func (s *stubSource) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

func constSource(v float64) *stubSource {
	return &stubSource{vals: []float64{v}}
}

var testNow = time.Date(2026, time.October, 17, 14, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func strPtr(s string) *string { return &s }

func newTestEngine(seed int64, p models.Profile) *Engine {
	e := New(WithSeed(seed), WithClock(fixedClock))
	e.Initialize(p)
	return e
}
