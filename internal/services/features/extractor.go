package features

import (
	"math"

	"MarketSim/internal/domain/models"
	"MarketSim/pkg/util"
)

// TradingDaysPerYear annualizes daily volatility.
const TradingDaysPerYear = 252

const (
	PatternUp           = "upward-trend"
	PatternDown         = "downward-trend"
	PatternSideways     = "sideways"
	PatternInsufficient = "insufficient-data"
)

// Closes extracts the close of every bar.
func Closes(bars []models.CandlestickData) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// ComputeLogReturns computes r_t = ln(C_t / C_{t-1}). Non-positive prices
// yield a zero return. Returns nil for fewer than two closes.
func ComputeLogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility is the sample standard deviation of the last window
// returns. A non-positive window uses every return.
func RealizedVolatility(logReturns []float64, window int) float64 {
	if window <= 0 || window > len(logReturns) {
		window = len(logReturns)
	}
	if window < 2 {
		return 0
	}
	rs := logReturns[len(logReturns)-window:]
	sum, flat := 0.0, true
	for _, r := range rs {
		sum += r
		flat = flat && r == rs[0]
	}
	if flat {
		return 0
	}
	mean := sum / float64(window)
	ss := 0.0
	for _, r := range rs {
		d := r - mean
		ss += d * d
	}
	variance := ss / float64(window-1)
	return math.Sqrt(variance)
}

// MaxDrawdown is the largest peak-to-trough fall as a fraction of the peak.
func MaxDrawdown(closes []float64) float64 {
	peak, worst := 0.0, 0.0
	for _, c := range closes {
		if c > peak {
			peak = c
		}
		if peak > 0 {
			if dd := (peak - c) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// DetectPattern looks at the last three closes: two rises make an upward
// trend, two non-rises a downward one.
func DetectPattern(closes []float64) string {
	if len(closes) < 3 {
		return PatternInsufficient
	}
	recent := closes[len(closes)-3:]
	up, down := 0, 0
	for i := 1; i < len(recent); i++ {
		if recent[i] > recent[i-1] {
			up++
		} else {
			down++
		}
	}
	switch {
	case up >= 2:
		return PatternUp
	case down >= 2:
		return PatternDown
	default:
		return PatternSideways
	}
}

// Compute summarises bars, oldest first.
func Compute(bars []models.CandlestickData) models.HistoryStats {
	out := models.HistoryStats{Bars: len(bars), Pattern: PatternInsufficient}
	if len(bars) == 0 {
		return out
	}

	closes := Closes(bars)
	returns := ComputeLogReturns(closes)

	out.FirstClose = closes[0]
	out.LastClose = closes[len(closes)-1]
	if out.FirstClose > 0 {
		out.TotalReturnPct = util.Round2((out.LastClose - out.FirstClose) / out.FirstClose * 100)
	}

	if len(returns) > 0 {
		sum := 0.0
		for _, r := range returns {
			sum += r
			switch {
			case r > 0:
				out.UpDays++
			case r < 0:
				out.DownDays++
			}
		}
		out.MeanLogReturn = sum / float64(len(returns))
	}

	vol := RealizedVolatility(returns, 0)
	out.RealizedVolPct = util.Round2(vol * 100)
	out.AnnualizedVolPct = util.Round2(vol * math.Sqrt(TradingDaysPerYear) * 100)
	out.MaxDrawdownPct = util.Round2(MaxDrawdown(closes) * 100)

	out.HighestHigh = bars[0].High
	out.LowestLow = bars[0].Low
	var volume int64
	for _, b := range bars {
		out.HighestHigh = math.Max(out.HighestHigh, b.High)
		out.LowestLow = math.Min(out.LowestLow, b.Low)
		volume += b.Volume
	}
	out.AverageVolume = util.Round2(float64(volume) / float64(len(bars)))
	out.Pattern = DetectPattern(closes)
	return out
}
