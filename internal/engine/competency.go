package engine

import (
	"github.com/avalia-edu/diagnostic-service/internal/models"
)

// CompetencyPercentage computes the correctness of one competency over
// the given responses, counting only answered (non-absent) questions in
// the denominator. Returns nil when no question of that competency was
// answered: callers must keep nil ("not evaluated") distinct from 0
// ("answered and wrong").
//
// The input may be a single assessment's responses or a concatenation
// of several assessments' responses for the same student; the formula
// is identical, so both call sites share this one implementation.
func CompetencyPercentage(cfg Config, responses []models.Response, competency models.Competency) *float64 {
	raw, answered := TallyCompetency(cfg, responses, competency)
	if answered == 0 {
		return nil
	}
	return float64Ptr(raw / float64(answered) * 100)
}

// CompetencyBreakdown evaluates every scored competency over the given
// responses, in display order.
func CompetencyBreakdown(cfg Config, responses []models.Response) []models.CompetencyResult {
	results := make([]models.CompetencyResult, 0, len(models.ScoredCompetencies))
	for _, comp := range models.ScoredCompetencies {
		raw, answered := TallyCompetency(cfg, responses, comp)
		r := models.CompetencyResult{Competency: comp, Answered: answered}
		if answered > 0 {
			r.Percentage = float64Ptr(raw / float64(answered) * 100)
		}
		results = append(results, r)
	}
	return results
}

// TallyCompetency returns one competency's raw numerator and answered
// denominator over the given responses, for callers that accumulate
// class-wide sums instead of per-student percentages.
func TallyCompetency(cfg Config, responses []models.Response, competency models.Competency) (raw float64, answered int) {
	for _, r := range responses {
		if cfg.CompetencyByQuestion[r.QuestionNumber] != competency || !cfg.isScored(r.QuestionNumber) {
			continue
		}
		if r.Status == models.StatusAbsent {
			continue
		}
		answered++
		raw += credit(r.Status)
	}
	return raw, answered
}
