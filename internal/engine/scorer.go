package engine

import (
	"github.com/avalia-edu/diagnostic-service/internal/models"
)

// Score converts one student's responses to one assessment into a
// diagnostic result. All responses must belong to the same
// (student, assessment) pair; the pair is read off the first response.
//
// Rules:
//   - empty input -> unrated, nil percentage
//   - every scored response absent -> absent tier, nil percentage
//     (absence is reported, not scored)
//   - otherwise raw score = correct*1 + partial*0.5 over questions the
//     competency table marks as scored; the percentage always divides
//     by the fixed denominator, so unanswered questions count as wrong
//
// Malformed responses (self-report items, unknown question numbers)
// are ignored, never rejected.
func Score(cfg Config, responses []models.Response) models.DiagnosticResult {
	result := models.DiagnosticResult{Tier: models.TierUnrated}
	if len(responses) == 0 {
		return result
	}

	result.StudentID = responses[0].StudentID
	result.AssessmentID = responses[0].AssessmentID

	scored := 0
	answered := 0
	raw := 0.0
	for _, r := range responses {
		if !cfg.isScored(r.QuestionNumber) {
			continue
		}
		scored++
		if r.Status != models.StatusAbsent {
			answered++
			raw += credit(r.Status)
		}
	}

	if scored == 0 {
		return result
	}
	if answered == 0 {
		result.Tier = models.TierAbsent
		return result
	}

	pct := raw / float64(cfg.DiagnosticDenominator) * 100
	result.RawScore = raw
	result.Percentage = float64Ptr(pct)
	result.Tier = tierFor(cfg, pct)
	return result
}

// tierFor classifies a diagnostic percentage. Ceilings are inclusive on
// the lower tier: 40.0 is still A, 70.0 is still B.
func tierFor(cfg Config, pct float64) models.PerformanceTier {
	switch {
	case pct <= cfg.TierACeiling:
		return models.TierA
	case pct <= cfg.TierBCeiling:
		return models.TierB
	default:
		return models.TierC
	}
}
