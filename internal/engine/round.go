package engine

import (
	"MarketSim/internal/domain/models"
	"MarketSim/pkg/util"
)

func round2(v float64) float64 {
	return util.Round2(v)
}

func roundBar(t string, open, high, low, close float64, volume int64) models.CandlestickData {
	return models.CandlestickData{
		Time:   t,
		Open:   round2(open),
		High:   round2(high),
		Low:    round2(low),
		Close:  round2(close),
		Volume: volume,
	}
}
