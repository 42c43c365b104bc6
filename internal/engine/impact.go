package engine

import "MarketSim/internal/domain/models"

// lookupOr returns table[key], or def when the key has no entry.
func lookupOr[K comparable](table map[K]float64, key K, def float64) float64 {
	if v, ok := table[key]; ok {
		return v
	}
	return def
}

func eventMultiplier(model SectorModel, events []models.CompanyEvent) float64 {
	m := 1.0
	for _, ev := range events {
		m *= lookupOr(model.Events[ev.Type], ev.Subtype, 1.0)
	}
	return m
}

func dimensionImpacts(model SectorModel, c models.MarketConditions) models.DimensionImpacts {
	return models.DimensionImpacts{
		Sentiment: models.ImpactEntry{Value: c.Sentiment, Multiplier: lookupOr(model.Sentiment, c.Sentiment, 1.0)},
		Flows:     models.ImpactEntry{Value: c.Flows, Multiplier: lookupOr(model.Flows, c.Flows, 1.0)},
		Global:    models.ImpactEntry{Value: c.GlobalCues, Multiplier: lookupOr(model.GlobalCues, c.GlobalCues, 1.0)},
		Currency:  models.ImpactEntry{Value: c.ExchangeRate, Multiplier: lookupOr(model.Currency, c.ExchangeRate, 1.0)},
		Oil:       models.ImpactEntry{Value: c.CrudeOil, Multiplier: lookupOr(model.Oil, c.CrudeOil, 1.0)},
	}
}

// ComposeImpact multiplies the five market dimensions, the size tier and every
// queued event into one factor. Labels without a table entry count as 1.0.
func ComposeImpact(model SectorModel, c models.MarketConditions, size models.SizeTier, events []models.CompanyEvent) float64 {
	d := dimensionImpacts(model, c)
	impact := 1.0
	impact *= d.Sentiment.Multiplier
	impact *= d.Flows.Multiplier
	impact *= d.Global.Multiplier
	impact *= d.Currency.Multiplier
	impact *= d.Oil.Multiplier
	impact *= size.Multiplier()
	for _, ev := range events {
		impact *= lookupOr(model.Events[ev.Type], ev.Subtype, 1.0)
	}
	return impact
}

// ComputeImpact composes the impact factor for the engine's current state.
func (e *Engine) ComputeImpact() float64 {
	return ComposeImpact(e.model, e.state.MarketConditions, e.state.CompanyProfile.Size, e.state.ActiveEvents)
}

// MarketImpactBreakdown reports every multiplier that feeds ComputeImpact.
func (e *Engine) MarketImpactBreakdown() models.ImpactBreakdown {
	return models.ImpactBreakdown{
		Conditions:      e.state.MarketConditions,
		Sector:          e.state.CompanyProfile.Sector,
		Impacts:         dimensionImpacts(e.model, e.state.MarketConditions),
		SizeMultiplier:  e.state.CompanyProfile.Size.Multiplier(),
		EventMultiplier: eventMultiplier(e.model, e.state.ActiveEvents),
		TotalImpact:     e.ComputeImpact(),
	}
}
