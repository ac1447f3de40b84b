package engine

import (
	"math"

	"github.com/avalia-edu/diagnostic-service/internal/models"
)

// TierEntry pairs an assessment code with the tier a student earned on
// it.
type TierEntry struct {
	AssessmentCode string
	Tier           models.PerformanceTier
}

// FinalTier combines per-assessment tiers into one weighted final tier.
// This is deliberately a tier-of-tiers scheme: assessments are
// calibrated to different difficulty levels, so their raw percentages
// are not numerically comparable, only their classifications are.
//
// Absent and unrated entries are skipped entirely; they contribute to
// neither the numerator nor the weight sum. A student absent from some
// assessments is still classified on the rest, and only total absence
// yields an unrated result.
func FinalTier(cfg Config, entries []TierEntry) models.FinalClassification {
	final := models.FinalClassification{Tier: models.TierUnrated}

	var weightedSum, weightSum float64
	for _, e := range entries {
		points, rated := cfg.TierPoints[e.Tier]
		if !rated {
			continue
		}
		weight := cfg.weightFor(e.AssessmentCode)
		weightedSum += points * weight
		weightSum += weight
		final.Rated++
	}

	if weightSum == 0 {
		return final
	}

	mean := math.Round(weightedSum/weightSum*100) / 100
	final.WeightedMean = float64Ptr(mean)
	switch {
	case mean <= cfg.FinalACeiling:
		final.Tier = models.TierA
	case mean <= cfg.FinalBCeiling:
		final.Tier = models.TierB
	default:
		final.Tier = models.TierC
	}
	return final
}

// weightFor resolves an assessment code to its weight via the leading
// D<n> token, defaulting for unknown tokens so hand-entered or
// partially migrated codes degrade gracefully instead of failing.
func (c Config) weightFor(code string) float64 {
	if w, ok := c.WeightByToken[models.WeightToken(code)]; ok {
		return w
	}
	return c.DefaultWeight
}
