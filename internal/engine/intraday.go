package engine

import (
	"math"
	"time"

	"MarketSim/internal/domain/models"
)

const (
	intradayTrendShare = 0.8
	intradayPull       = 0.02
	intradayMaxDrop    = 0.99
	intradayMinVolume  = 20_000
	intradayVolumeSpan = 30_000
)

// SimulateIntradayMovement produces one bar per minute from the 09:30 open,
// drifting towards a target set by the current impact factor. The current
// price ends at the last minute's close; day and history are unchanged.
func (e *Engine) SimulateIntradayMovement(minutes int) []models.CandlestickData {
	if minutes <= 0 {
		return nil
	}
	start := e.state.CurrentPrice
	impact := e.ComputeImpact()
	baseVol := e.model.BaseVolatility / 100
	target := start + start*baseVol*(impact-1)*intradayTrendShare

	now := e.now()
	open930 := time.Date(now.Year(), now.Month(), now.Day(), 9, 30, 0, 0, now.Location())

	bars := make([]models.CandlestickData, 0, minutes)
	cur := start
	for i := 0; i < minutes; i++ {
		trend := (target - cur) * intradayPull
		noise := cur * (baseVol / 100) * (e.rnd.Float64() - 0.5) * 0.1
		change := trend + noise
		next := math.Max(cur+change, cur*intradayMaxDrop)

		high := math.Max(cur, next) + math.Abs(change)*e.rnd.Float64()
		low := math.Min(cur, next) - math.Abs(change)*e.rnd.Float64()
		volume := int64(math.Floor(intradayMinVolume + e.rnd.Float64()*intradayVolumeSpan))

		stamp := open930.Add(time.Duration(i) * time.Minute).Format(time.RFC3339)
		bars = append(bars, roundBar(stamp, cur, high, low, next, volume))
		cur = next
	}
	e.state.CurrentPrice = round2(cur)
	return bars
}
