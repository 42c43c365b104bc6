package engine

import (
	"sort"

	"MarketSim/internal/domain/models"
)

// Multipliers maps a categorical label to its impact multiplier.
type Multipliers map[string]float64

// SectorModel is the static impact table for one industry sector.
type SectorModel struct {
	Name           string
	BaseVolatility float64 // percent per day
	Sentiment      Multipliers
	Flows          Multipliers
	GlobalCues     Multipliers
	Currency       Multipliers
	Oil            Multipliers
	Events         map[models.EventType]Multipliers
}

// DefaultSectorName is reported for profiles whose sector has no model.
const DefaultSectorName = "default"

var sectorModels = map[string]SectorModel{
	"financial-services": {
		BaseVolatility: 2.8,
		Sentiment:      fivePoint(sentimentKeys, 2.2, 1.6, 0.6, 0.3),
		Flows:          fivePoint(flowsKeys, 2.0, 1.4, 0.7, 0.4),
		GlobalCues:     fivePoint(globalKeys, 1.4, 1.2, 0.8, 0.6),
		Currency:       currency(1.1, 0.95),
		Oil:            fivePoint(oilKeys, 0.92, 0.96, 1.04, 1.08),
		Events: events(
			[4]float64{1.12, 1.05, 0.94, 0.86},
			[4]float64{1.08, 1.04, 0.96, 0.91},
			[4]float64{1.07, 1.04, 0.93, 0.88},
			[2]float64{1.06, 0.94},
			[3]float64{0.75, 0.82, 0.78},
		),
	},
	"it": {
		BaseVolatility: 3.2,
		Sentiment:      fivePoint(sentimentKeys, 2.5, 1.8, 0.5, 0.2),
		Flows:          fivePoint(flowsKeys, 2.2, 1.5, 0.6, 0.3),
		GlobalCues:     fivePoint(globalKeys, 1.6, 1.3, 0.7, 0.5),
		Currency:       currency(0.88, 1.15),
		Oil:            fivePoint(oilKeys, 0.94, 0.97, 1.03, 1.06),
		Events: events(
			[4]float64{1.20, 1.10, 0.90, 0.78},
			[4]float64{1.15, 1.08, 0.92, 0.80},
			[4]float64{1.15, 1.12, 0.85, 0.88},
			[2]float64{1.12, 0.88},
			[3]float64{0.60, 0.80, 1.15},
		),
	},
	"healthcare": {
		BaseVolatility: 2.5,
		Sentiment:      fivePoint(sentimentKeys, 1.6, 1.25, 0.8, 0.6),
		Flows:          fivePoint(flowsKeys, 1.4, 1.15, 0.85, 0.7),
		GlobalCues:     fivePoint(globalKeys, 1.3, 1.15, 0.85, 0.7),
		Currency:       currency(0.92, 1.08),
		Oil:            fivePoint(oilKeys, 0.96, 0.98, 1.02, 1.04),
		Events: events(
			[4]float64{1.10, 1.04, 0.96, 0.88},
			[4]float64{1.09, 1.04, 0.96, 0.90},
			[4]float64{1.06, 1.12, 0.94, 0.85},
			[2]float64{1.05, 0.95},
			[3]float64{0.80, 0.88, 1.25},
		),
	},
	"consumer-discretionary": {
		BaseVolatility: 3.0,
		Sentiment:      fivePoint(sentimentKeys, 1.9, 1.35, 0.65, 0.4),
		Flows:          fivePoint(flowsKeys, 1.5, 1.2, 0.8, 0.6),
		GlobalCues:     fivePoint(globalKeys, 1.4, 1.2, 0.8, 0.6),
		Currency:       currency(1.05, 0.92),
		Oil:            fivePoint(oilKeys, 0.85, 0.92, 1.08, 1.15),
		Events: events(
			[4]float64{1.13, 1.06, 0.93, 0.84},
			[4]float64{1.10, 1.05, 0.94, 0.87},
			[4]float64{1.08, 1.06, 0.92, 0.90},
			[2]float64{1.07, 0.93},
			[3]float64{0.65, 0.75, 0.70},
		),
	},
	"consumer-staples": {
		BaseVolatility: 1.8,
		Sentiment:      fivePoint(sentimentKeys, 1.3, 1.15, 0.85, 0.7),
		Flows:          fivePoint(flowsKeys, 1.2, 1.1, 0.9, 0.8),
		GlobalCues:     fivePoint(globalKeys, 1.15, 1.08, 0.92, 0.85),
		Currency:       currency(1.03, 0.95),
		Oil:            fivePoint(oilKeys, 0.90, 0.95, 1.05, 1.10),
		Events: events(
			[4]float64{1.08, 1.03, 0.97, 0.92},
			[4]float64{1.06, 1.03, 0.97, 0.93},
			[4]float64{1.04, 1.05, 0.96, 0.93},
			[2]float64{1.04, 0.96},
			[3]float64{0.90, 0.95, 1.10},
		),
	},
	"energy": {
		BaseVolatility: 4.2,
		Sentiment:      fivePoint(sentimentKeys, 2.3, 1.5, 0.5, 0.2),
		Flows:          fivePoint(flowsKeys, 1.9, 1.4, 0.6, 0.3),
		GlobalCues:     fivePoint(globalKeys, 1.5, 1.25, 0.75, 0.5),
		Currency:       currency(0.85, 1.20),
		Oil:            fivePoint(oilKeys, 1.35, 1.15, 0.80, 0.55),
		Events: events(
			[4]float64{1.18, 1.08, 0.90, 0.78},
			[4]float64{1.15, 1.08, 0.90, 0.80},
			[4]float64{1.12, 1.06, 0.88, 0.82},
			[2]float64{1.10, 0.90},
			[3]float64{0.60, 1.25, 0.70},
		),
	},
}

var defaultModel = SectorModel{
	Name:           DefaultSectorName,
	BaseVolatility: 2.5,
	Sentiment:      fivePoint(sentimentKeys, 1.7, 1.3, 0.7, 0.4),
	Flows:          fivePoint(flowsKeys, 1.5, 1.2, 0.8, 0.6),
	GlobalCues:     fivePoint(globalKeys, 1.4, 1.2, 0.8, 0.6),
	Currency:       currency(1.0, 1.0),
	Oil:            fivePoint(oilKeys, 0.95, 0.98, 1.02, 1.05),
	Events: events(
		[4]float64{1.12, 1.05, 0.94, 0.86},
		[4]float64{1.08, 1.04, 0.96, 0.91},
		[4]float64{1.07, 1.04, 0.93, 0.88},
		[2]float64{1.06, 0.94},
		[3]float64{0.75, 0.82, 0.78},
	),
}

func init() {
	for name, m := range sectorModels {
		m.Name = name
		sectorModels[name] = m
	}
}

// Label sets per dimension, ordered from most positive to most negative with
// the neutral label in the middle.
var (
	sentimentKeys = [5]string{"strongly-bullish", "bullish", "neutral", "bearish", "strongly-bearish"}
	flowsKeys     = [5]string{"strong-inflows", "moderate-inflows", "neutral", "moderate-outflows", "strong-outflows"}
	globalKeys    = [5]string{"strongly-positive", "positive", "neutral", "negative", "strongly-negative"}
	oilKeys       = [5]string{"sharply-up", "up", "stable", "down", "sharply-down"}
	currencyKeys  = [3]string{"rupee-appreciating", "stable", "rupee-depreciating"}

	earningsKeys = [5]string{"sig-beat", "slight-beat", "meets", "slight-miss", "sig-miss"}
	analystKeys  = [5]string{"strong-buy", "buy", "hold", "sell", "strong-sell"}
	newsKeys     = [4]string{"contract-win", "product-launch", "ceo-resigns", "regulatory-fine"}
	insiderKeys  = [2]string{"promoter-buying", "promoter-selling"}
	shockKeys    = [3]string{"financial-crisis", "geopolitical", "pandemic"}
)

// fivePoint builds a 5-point table whose middle entry is neutral (1.0).
func fivePoint(keys [5]string, v0, v1, v3, v4 float64) Multipliers {
	return Multipliers{keys[0]: v0, keys[1]: v1, keys[2]: 1.0, keys[3]: v3, keys[4]: v4}
}

func currency(appreciating, depreciating float64) Multipliers {
	return Multipliers{currencyKeys[0]: appreciating, currencyKeys[1]: 1.0, currencyKeys[2]: depreciating}
}

// events builds the per-type event table. earnings and analyst carry a
// neutral middle entry ("meets", "hold") that is not passed in.
func events(earnings, analyst, news [4]float64, insider [2]float64, shock [3]float64) map[models.EventType]Multipliers {
	out := map[models.EventType]Multipliers{
		models.EventEarnings: fivePoint(earningsKeys, earnings[0], earnings[1], earnings[2], earnings[3]),
		models.EventAnalyst:  fivePoint(analystKeys, analyst[0], analyst[1], analyst[2], analyst[3]),
		models.EventNews:     {},
		models.EventInsider:  {},
		models.EventShock:    {},
	}
	for i, k := range newsKeys {
		out[models.EventNews][k] = news[i]
	}
	for i, k := range insiderKeys {
		out[models.EventInsider][k] = insider[i]
	}
	for i, k := range shockKeys {
		out[models.EventShock][k] = shock[i]
	}
	return out
}

// LookupSector returns the model for name. Unknown sectors get the default
// model and ok=false.
func LookupSector(name string) (SectorModel, bool) {
	if m, ok := sectorModels[name]; ok {
		return m, true
	}
	return defaultModel, false
}

// Sectors lists the sectors that have a dedicated model, sorted.
func Sectors() []string {
	out := make([]string, 0, len(sectorModels))
	for name := range sectorModels {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Labels returns the recognised labels for each market dimension.
func Labels() map[string][]string {
	return map[string][]string{
		"sentiment":     list(sentimentKeys[:]),
		"flows":         list(flowsKeys[:]),
		"global_cues":   list(globalKeys[:]),
		"exchange_rate": list(currencyKeys[:]),
		"crude_oil":     list(oilKeys[:]),
	}
}

// EventSubtypes returns the recognised subtypes per event type.
func EventSubtypes() map[models.EventType][]string {
	return map[models.EventType][]string{
		models.EventEarnings: list(earningsKeys[:]),
		models.EventAnalyst:  list(analystKeys[:]),
		models.EventNews:     list(newsKeys[:]),
		models.EventInsider:  list(insiderKeys[:]),
		models.EventShock:    list(shockKeys[:]),
	}
}

func list(keys []string) []string {
	return append([]string(nil), keys...)
}
