package usecase

import (
	"context"
	"sync"
	"time"

	"MarketSim/internal/domain/models"
	"MarketSim/internal/engine"
	"MarketSim/pkg/logger"
	"MarketSim/pkg/metrics"
)

var testNow = time.Date(2026, time.October, 16, 15, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type captureSink struct {
	mu  sync.Mutex
	evs []*models.CandleEvent
	err error
}

func (s *captureSink) Name() string { return "capture" }

func (s *captureSink) Write(_ context.Context, ev *models.CandleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evs = append(s.evs, ev)
	return s.err
}

func (s *captureSink) events() []*models.CandleEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.CandleEvent(nil), s.evs...)
}

func newTestSession(opts ...SessionOption) *Session {
	base := []SessionOption{
		WithEngineOptions(engine.WithClock(fixedClock), engine.WithSeed(7)),
		WithSessionClock(fixedClock),
	}
	return NewSession(metrics.NewNop(), logger.Nop(), append(base, opts...)...)
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func int64Ptr(i int64) *int64 { return &i }
