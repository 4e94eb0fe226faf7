package scoring

import (
	"math"

	"plugscan/internal/analysis"
	"plugscan/internal/config"
)

// PPL classification bands over the paid-placement probability.
const (
	ClassOrganic = "organic"
	ClassLow     = "low"
	ClassMedium  = "medium"
	ClassHigh    = "high"
)

// Attractiveness maps the three extraction sub-scores onto the 0..100
// integer scale used for record ranking.
func Attractiveness(sub analysis.SubScores, cfg config.Scoring) int {
	weighted := cfg.SentimentWeight*sub.Sentiment +
		cfg.EndorsementWeight*sub.Endorsement +
		cfg.SourceTrustWeight*sub.SourceTrust
	score := int(math.Round(100 * weighted))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// PPLProbability blends the three placement signals into one probability.
func PPLProbability(explicit, implicit, contextual float64, cfg config.Scoring) float64 {
	probability := cfg.ExplicitWeight*explicit +
		cfg.ImplicitWeight*implicit +
		cfg.ContextualWeight*contextual
	if probability < 0 {
		return 0
	}
	if probability > 1 {
		return 1
	}
	return probability
}

// ClassifyPPL buckets a probability into its class band.
func ClassifyPPL(probability float64) string {
	switch {
	case probability < 0.2:
		return ClassOrganic
	case probability < 0.5:
		return ClassLow
	case probability < 0.8:
		return ClassMedium
	default:
		return ClassHigh
	}
}
