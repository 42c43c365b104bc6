package engine

import (
	"math"

	"MarketSim/internal/domain/models"
)

const (
	maxTrendWeight = 0.8
	boostAbove     = 1.05
	penaltyBelow   = 0.95
	boostShare     = 0.3
	maxBarDrop     = 0.75
	// lowFloor keeps the low positive when an extreme upside bar widens the wick.
	lowFloor = 0.01

	candleBaseVolume  = 1_200_000
	eventVolumeFactor = 1.5

	seedMaxDrop    = 0.85
	seedBaseVolume = 1_000_000
)

// uniform returns a draw in [-1, 1).
func (e *Engine) uniform() float64 {
	return (e.rnd.Float64() - 0.5) * 2
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// relativeMove is |change/price|, zero for a zero price.
func relativeMove(change, price float64) float64 {
	if price == 0 {
		return 0
	}
	return math.Abs(change / price)
}

// SimulateNextCandle generates the next daily bar from the composed impact
// factor, advances the day counter and appends the bar to history.
func (e *Engine) SimulateNextCandle() models.CandlestickData {
	impact := e.ComputeImpact()
	baseVol := e.model.BaseVolatility / 100
	price := e.state.CurrentPrice

	trendStrength := math.Abs(impact-1) * 2
	trendDirection := sign(impact - 1)
	randomComponent := e.uniform()

	trendWeight := math.Min(maxTrendWeight, trendStrength)
	randomWeight := 1 - trendWeight
	combined := trendDirection*trendStrength*trendWeight + randomComponent*baseVol*randomWeight

	priceChange := price * combined
	open := price
	close := open + priceChange

	if impact > boostAbove || impact < penaltyBelow {
		close *= 1 + (impact-1)*boostShare
	}
	// No upside clamp: only the downside is bounded.
	close = math.Max(close, open*maxBarDrop)

	intradayVol := math.Abs(close-open)*0.8 + price*baseVol*0.3
	high := math.Max(open, close) + intradayVol*e.rnd.Float64()*0.7
	low := math.Min(open, close) - intradayVol*e.rnd.Float64()*0.7
	low = math.Max(low, math.Min(open, close)*lowFloor)

	eventFactor := 1.0
	if len(e.state.ActiveEvents) > 0 {
		eventFactor = eventVolumeFactor
	}
	volumeMultiplier := 1 + relativeMove(priceChange, price)*5 + math.Abs(impact-1)*3
	volume := int64(math.Floor(candleBaseVolume * volumeMultiplier * eventFactor * (0.6 + e.rnd.Float64()*0.8)))

	bar := roundBar(e.now().UTC().Format(dateLayout), open, high, low, close, volume)

	e.state.CurrentPrice = bar.Close
	e.state.CurrentDay++
	e.appendBar(bar)
	return bar
}

// seedHistory fills the window with a plain random walk ending today.
func (e *Engine) seedHistory() {
	vol := e.model.BaseVolatility / 100
	price := e.state.BasePrice
	today := e.now().UTC()

	for i := e.seedBars - 1; i >= 0; i-- {
		change := price * vol * e.uniform()
		open := price
		close := math.Max(open+change, open*seedMaxDrop)

		span := math.Abs(close-open) + price*vol*0.5
		high := math.Max(open, close) + span*e.rnd.Float64()
		low := math.Min(open, close) - span*e.rnd.Float64()

		volume := int64(math.Floor(seedBaseVolume * (1 + relativeMove(change, price)*3) * (0.7 + e.rnd.Float64()*0.6)))

		bar := roundBar(today.AddDate(0, 0, -i).Format(dateLayout), open, high, low, close, volume)
		e.appendBar(bar)
		price = bar.Close
	}
	e.state.CurrentPrice = price
}
