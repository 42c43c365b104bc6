package narrative

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"MarketSim/internal/domain/models"
	"MarketSim/internal/engine"
	"MarketSim/internal/services/features"
)

const (
	strongMovePct = 2
	bigMovePct    = 5

	localConfidence = 0.6
	SourceLocal     = "local"
)

// Generator builds stories from fixed templates. Template choice uses the
// injected source so stories are reproducible under a seed.
type Generator struct {
	mu  sync.Mutex
	rnd engine.Source
}

func NewGenerator(src engine.Source) *Generator {
	if src == nil {
		src = engine.NewSource(0)
	}
	return &Generator{rnd: src}
}

// Classify maps a percentage move onto a story type.
func Classify(pct float64) models.StoryType {
	switch {
	case math.Abs(pct) > strongMovePct && pct > 0:
		return models.StoryStrongBullish
	case math.Abs(pct) > strongMovePct:
		return models.StoryStrongBearish
	default:
		return models.StoryNeutral
	}
}

func (g *Generator) pick(items []string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return items[int(g.rnd.Float64()*float64(len(items)))%len(items)]
}

// Explain never fails; it satisfies the same interface as the remote explainer.
func (g *Generator) Explain(_ context.Context, in *models.StoryContext) (*models.Story, error) {
	return g.Generate(in), nil
}

func (g *Generator) Generate(in *models.StoryContext) *models.Story {
	kind := Classify(in.PriceChange.Percentage)
	tpl := templates[kind]
	sector, known := sectorAnalogies[in.Sector]
	if !known {
		sector = defaultAnalogy
	}

	var b strings.Builder
	b.WriteString(g.pick(tpl.explanations))
	fmt.Fprintf(&b, "\n\nOur company is in the %s business - %s.", sector.simple, sector.analogy)
	if m := marketExplanation(in.MarketConditions); m != "" {
		b.WriteString("\n\n")
		b.WriteString(m)
	}
	if ev := eventsExplanation(in.Sector, in.ActiveEvents); ev != "" {
		b.WriteString("\n\n")
		b.WriteString(ev)
	}

	return &models.Story{
		Title:           g.pick(tpl.titles),
		Explanation:     b.String(),
		KeyPoints:       keyPoints(in, sector, known),
		Analogy:         tpl.analogy,
		Prediction:      tpl.prediction,
		ConfidenceScore: localConfidence,
		MarketMood:      tpl.mood,
		SectorContext:   fmt.Sprintf("This company works in %s industry.", strings.Replace(in.Sector, "-", " ", 1)),
		Type:            kind,
		Pattern:         features.DetectPattern(in.Closes),
		Source:          SourceLocal,
	}
}

func marketExplanation(c models.MarketConditions) string {
	var parts []string
	switch c.Sentiment {
	case "strongly-bullish", "bullish":
		parts = append(parts, "People are feeling really good about buying stocks right now, like kids excited about going to an amusement park!")
	case "strongly-bearish", "bearish":
		parts = append(parts, "People are being more careful with their money, like saving allowance instead of spending it on toys.")
	}
	switch c.GlobalCues {
	case "positive":
		parts = append(parts, "Good news from around the world is making investors happy.")
	case "negative":
		parts = append(parts, "Some worrying news from other countries is making people more careful.")
	}
	return strings.Join(parts, " ")
}

func eventsExplanation(sector string, events []models.CompanyEvent) string {
	var parts []string
	for _, ev := range events {
		texts, ok := eventExplanations[ev.Type]
		if !ok {
			continue
		}
		if isPositive(sector, ev) {
			parts = append(parts, texts[0])
		} else {
			parts = append(parts, texts[1])
		}
	}
	return strings.Join(parts, " ")
}

// isPositive reads the event's own impact when set, otherwise the sector
// multiplier for its subtype.
func isPositive(sector string, ev models.CompanyEvent) bool {
	if ev.Impact != 0 {
		return ev.Impact > 1
	}
	model, _ := engine.LookupSector(sector)
	return model.Events[ev.Type][ev.Subtype] > 1
}

func keyPoints(in *models.StoryContext, sector sectorAnalogy, known bool) []string {
	pct := math.Abs(in.PriceChange.Percentage)
	var size string
	switch {
	case pct > bigMovePct:
		size = "that's a pretty big change!"
	case pct > strongMovePct:
		size = "a noticeable change."
	default:
		size = "a small, normal change."
	}
	points := []string{fmt.Sprintf("Stock moved %.1f%% - %s", pct, size)}

	if n := len(in.ActiveEvents); n > 0 {
		points = append(points, fmt.Sprintf("%d special event(s) happened today.", n))
	}
	if known {
		points = append(points, fmt.Sprintf("This company works with %s.", sector.simple))
	}
	return points
}
