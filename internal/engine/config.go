package engine

import (
	"github.com/avalia-edu/diagnostic-service/internal/models"
)

// Config gathers every fixed table the engine consults: the
// competency-question mapping, tier thresholds, assessment weights and
// alert rule cutoffs. Callers pass it explicitly so a future curriculum
// can swap values per grade without code changes. Instances are treated
// as immutable; share one Config across goroutines freely.
type Config struct {
	// CompetencyByQuestion maps question numbers to competency tags.
	// Questions mapped to CompetencySelfReport (and unmapped numbers)
	// never enter numeric aggregation.
	CompetencyByQuestion map[int]models.Competency

	// DiagnosticDenominator is the fixed question count a diagnostic
	// percentage divides by, even when some questions carry no recorded
	// response. Competency percentages instead divide by answered
	// questions only; the asymmetry is deliberate and kept visible here.
	DiagnosticDenominator int

	// Diagnostic tier ceilings, inclusive: pct <= TierACeiling is A,
	// pct <= TierBCeiling is B, above is C.
	TierACeiling float64
	TierBCeiling float64

	// WeightByToken maps the leading D<n> token of an assessment code
	// to its weight in the final classification. Unknown tokens fall
	// back to DefaultWeight.
	WeightByToken map[string]float64
	DefaultWeight float64

	// TierPoints maps rated tiers to the points averaged by the final
	// classifier. Tiers missing from the map (absent, unrated) are
	// skipped entirely rather than counted as zero.
	TierPoints map[models.PerformanceTier]float64

	// Final classification ceilings, inclusive: mean <= FinalACeiling
	// is A, mean <= FinalBCeiling is B, above is C.
	FinalACeiling float64
	FinalBCeiling float64

	// Heat-map floors, inclusive on the higher bucket: pct >= GreenFloor
	// is green, pct >= YellowFloor is yellow, below is red.
	GreenFloor  float64
	YellowFloor float64

	// Alert rule cutoffs.
	CriticalBelow       float64 // latest percentage strictly below -> critical
	GroupASkewAbove     float64 // ratio of tier-A among rated, strictly above -> alert
	DeclineDeltaAbove   float64 // percentage-point drop, strictly above -> alert
	WeakCompetencyBelow float64 // class-wide competency pct strictly below -> alert
	MinAssessments      int     // fewer administered -> insufficient data
}

// DefaultConfig returns the standard curriculum tables: questions 1-10
// paired two per competency, items 11-12 self-report, weights D1=3,
// D2=2, D3=1.
func DefaultConfig() Config {
	return Config{
		CompetencyByQuestion: map[int]models.Competency{
			1: models.CompetencyReading, 2: models.CompetencyReading,
			3: models.CompetencyFluency, 4: models.CompetencyFluency,
			5: models.CompetencyReasoning, 6: models.CompetencyReasoning,
			7: models.CompetencyApplication, 8: models.CompetencyApplication,
			9: models.CompetencyJustification, 10: models.CompetencyJustification,
			11: models.CompetencySelfReport, 12: models.CompetencySelfReport,
		},
		DiagnosticDenominator: 10,
		TierACeiling:          40,
		TierBCeiling:          70,
		WeightByToken: map[string]float64{
			"D1": 3,
			"D2": 2,
			"D3": 1,
		},
		DefaultWeight: 1,
		TierPoints: map[models.PerformanceTier]float64{
			models.TierA: 1,
			models.TierB: 2,
			models.TierC: 3,
		},
		FinalACeiling:       1.5,
		FinalBCeiling:       2.5,
		GreenFloor:          70,
		YellowFloor:         40,
		CriticalBelow:       25,
		GroupASkewAbove:     0.40,
		DeclineDeltaAbove:   10,
		WeakCompetencyBelow: 40,
		MinAssessments:      3,
	}
}

// isScored reports whether a question number participates in numeric
// aggregation.
func (c Config) isScored(questionNumber int) bool {
	comp, ok := c.CompetencyByQuestion[questionNumber]
	return ok && comp != models.CompetencySelfReport
}

// credit returns the score contribution of a response status:
// correct=1, partial=0.5, everything else 0.
func credit(status models.ResponseStatus) float64 {
	switch status {
	case models.StatusCorrect:
		return 1
	case models.StatusPartial:
		return 0.5
	default:
		return 0
	}
}

func float64Ptr(v float64) *float64 {
	return &v
}
