package models

import "time"

// CandleKind distinguishes daily bars from intraday minute bars.
type CandleKind string

const (
	KindDaily    CandleKind = "daily"
	KindIntraday CandleKind = "intraday"
)

// CandleEvent is a generated bar as exported to the stream, Kafka and the
// archive. Sinks never feed it back into the engine.
type CandleEvent struct {
	RunID       string          `json:"run_id"`
	Kind        CandleKind      `json:"kind"`
	Day         int             `json:"day"`
	Sector      string          `json:"sector"`
	SizeTier    SizeTier        `json:"size_tier"`
	Impact      float64         `json:"impact"`
	Events      int             `json:"active_events"`
	Candle      CandlestickData `json:"candle"`
	GeneratedAt time.Time       `json:"generated_at"`
}
