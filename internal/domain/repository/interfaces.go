package repository

import (
	"context"
	"time"

	"MarketSim/internal/domain/models"
)

// CandleSink receives every generated candle. Sinks are write-only.
type CandleSink interface {
	Name() string
	Write(ctx context.Context, ev *models.CandleEvent) error
}

type CandlePublisher interface {
	Publish(ctx context.Context, ev *models.CandleEvent) error
	PublishBatch(ctx context.Context, evs []*models.CandleEvent) error
	Close() error
}

type CandleArchive interface {
	Init(ctx context.Context) error // ensure table
	Store(ctx context.Context, ev *models.CandleEvent) error
	StoreBatch(ctx context.Context, evs []*models.CandleEvent) error
	Query(ctx context.Context, runID string, limit int) ([]*models.CandleEvent, error)
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordCandle(sector, kind string, close, impact float64)
	RecordError(kind string)
	RecordSinkError(sink string)
	RecordRemote(outcome string)
	SetAutoAdvance(running bool)
	RecordLatency(op string, d time.Duration)
}
