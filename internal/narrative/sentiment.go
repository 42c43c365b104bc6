package narrative

import "strings"

var (
	positiveWords = map[string]struct{}{
		"good": {}, "great": {}, "excellent": {}, "up": {}, "high": {},
		"strong": {}, "bullish": {}, "gain": {}, "profit": {}, "growth": {},
	}
	negativeWords = map[string]struct{}{
		"bad": {}, "poor": {}, "down": {}, "low": {}, "weak": {},
		"bearish": {}, "loss": {}, "decline": {}, "drop": {}, "fall": {},
	}
)

// AnalyzeSentiment counts positive and negative words in text and returns
// "positive", "negative" or "neutral".
func AnalyzeSentiment(text string) string {
	pos, neg := 0, 0
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}
	switch {
	case pos > neg:
		return "positive"
	case neg > pos:
		return "negative"
	default:
		return "neutral"
	}
}
