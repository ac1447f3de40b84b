package engine

import (
	"fmt"
	"sort"

	"github.com/avalia-edu/diagnostic-service/internal/models"
)

// StudentSnapshot is one student's standing inside a class aggregate:
// the percentage of their most recent diagnostic (nil when absent or
// unrated) and their weighted final classification.
type StudentSnapshot struct {
	StudentID        uint
	LatestPercentage *float64
	Final            models.FinalClassification
}

// AssessmentMean is the class-wide mean percentage of one assessment,
// nil when no student scored on it. Entries are ordered by position in
// the assessment sequence.
type AssessmentMean struct {
	Code     string
	Position int
	Mean     *float64
}

// CompetencyTally accumulates one competency's numerator and
// denominator across all students and all assessments of the class.
// Class-wide percentages divide these sums directly instead of
// averaging per-student averages.
type CompetencyTally struct {
	Competency        models.Competency
	CorrectEquivalent float64
	Answered          int
}

// ClassAggregate is the read-only snapshot the alert rules evaluate.
type ClassAggregate struct {
	Students           []StudentSnapshot
	AssessmentMeans    []AssessmentMean
	CompetencyTallies  []CompetencyTally
	AssessmentsApplied int
}

// GenerateAlerts runs the fixed rule battery against a class aggregate.
// Rules are independent and order-insensitive; each fires at most one
// alert (weak competency fires one per competency) and every alert is
// self-contained. The returned slice is sorted by severity for display.
func GenerateAlerts(cfg Config, agg ClassAggregate) []models.Alert {
	var alerts []models.Alert

	if a := ruleCriticalPerformance(cfg, agg); a != nil {
		alerts = append(alerts, *a)
	}
	if a := ruleGroupASkew(cfg, agg); a != nil {
		alerts = append(alerts, *a)
	}
	if a := rulePerformanceDecline(cfg, agg); a != nil {
		alerts = append(alerts, *a)
	}
	alerts = append(alerts, ruleWeakCompetencies(cfg, agg)...)
	if a := ruleInsufficientData(cfg, agg); a != nil {
		alerts = append(alerts, *a)
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.Rank() < alerts[j].Severity.Rank()
	})
	return alerts
}

// ruleCriticalPerformance counts students whose most recent diagnostic
// percentage sits below the critical cutoff.
func ruleCriticalPerformance(cfg Config, agg ClassAggregate) *models.Alert {
	count := 0
	for _, s := range agg.Students {
		if s.LatestPercentage != nil && *s.LatestPercentage < cfg.CriticalBelow {
			count++
		}
	}
	if count == 0 {
		return nil
	}
	return &models.Alert{
		Kind:          models.AlertCriticalPerformance,
		Category:      "desempenho",
		Severity:      models.SeverityCritical,
		Title:         "Desempenho crítico",
		Description:   fmt.Sprintf("%d aluno(s) com aproveitamento abaixo de %.0f%% no diagnóstico mais recente", count, cfg.CriticalBelow),
		AffectedCount: count,
		Suggestion:    "Organizar atendimento individual imediato para os alunos em situação crítica",
	}
}

// ruleGroupASkew fires when too large a share of rated students lands
// in the final tier A.
func ruleGroupASkew(cfg Config, agg ClassAggregate) *models.Alert {
	rated := 0
	groupA := 0
	for _, s := range agg.Students {
		if _, ok := cfg.TierPoints[s.Final.Tier]; !ok {
			continue
		}
		rated++
		if s.Final.Tier == models.TierA {
			groupA++
		}
	}
	if rated == 0 || float64(groupA)/float64(rated) <= cfg.GroupASkewAbove {
		return nil
	}
	return &models.Alert{
		Kind:          models.AlertGroupASkew,
		Category:      "classificacao",
		Severity:      models.SeverityWarning,
		Title:         "Concentração no grupo A",
		Description:   fmt.Sprintf("%d de %d alunos avaliados (%.0f%%) classificados no grupo A", groupA, rated, float64(groupA)/float64(rated)*100),
		AffectedCount: groupA,
		Suggestion:    "Replanejar as próximas semanas priorizando atividades de apoio intensivo",
	}
}

// rulePerformanceDecline compares the class means of the two most
// recent assessments by position.
func rulePerformanceDecline(cfg Config, agg ClassAggregate) *models.Alert {
	// Keep only assessments with a computable mean, in sequence order.
	rated := make([]AssessmentMean, 0, len(agg.AssessmentMeans))
	for _, m := range agg.AssessmentMeans {
		if m.Mean != nil {
			rated = append(rated, m)
		}
	}
	if len(rated) < 2 {
		return nil
	}
	sort.SliceStable(rated, func(i, j int) bool { return rated[i].Position < rated[j].Position })

	previous := rated[len(rated)-2]
	latest := rated[len(rated)-1]
	delta := *previous.Mean - *latest.Mean
	if delta <= cfg.DeclineDeltaAbove {
		return nil
	}
	return &models.Alert{
		Kind:          models.AlertPerformanceDecline,
		Category:      "tendencia",
		Severity:      models.SeverityWarning,
		Title:         "Queda de desempenho",
		Description:   fmt.Sprintf("Média da turma caiu %.1f pontos percentuais de %s para %s", delta, previous.Code, latest.Code),
		AffectedCount: len(agg.Students),
		Suggestion:    "Retomar os conteúdos do último diagnóstico antes de avançar na sequência",
	}
}

// ruleWeakCompetencies emits one alert per competency whose class-wide
// percentage falls below the cutoff. The percentage divides the summed
// numerator by the summed denominator; competencies nobody answered are
// skipped rather than reported as 0%.
func ruleWeakCompetencies(cfg Config, agg ClassAggregate) []models.Alert {
	var alerts []models.Alert
	for _, tally := range agg.CompetencyTallies {
		if tally.Answered == 0 {
			continue
		}
		pct := tally.CorrectEquivalent / float64(tally.Answered) * 100
		if pct >= cfg.WeakCompetencyBelow {
			continue
		}
		alerts = append(alerts, models.Alert{
			Kind:          models.AlertWeakCompetency,
			Category:      string(tally.Competency),
			Severity:      models.SeverityInfo,
			Title:         fmt.Sprintf("Fragilidade em %s", tally.Competency.DisplayName()),
			Description:   fmt.Sprintf("Aproveitamento de %.0f%% da turma em %s, abaixo de %.0f%%", pct, tally.Competency.DisplayName(), cfg.WeakCompetencyBelow),
			AffectedCount: tally.Answered,
			Suggestion:    fmt.Sprintf("Incluir atividades dirigidas de %s no plano de aula", tally.Competency.DisplayName()),
		})
	}
	return alerts
}

// ruleInsufficientData recommends completing the sequence while fewer
// than the minimum number of assessments have been administered.
func ruleInsufficientData(cfg Config, agg ClassAggregate) *models.Alert {
	if agg.AssessmentsApplied >= cfg.MinAssessments {
		return nil
	}
	return &models.Alert{
		Kind:          models.AlertInsufficientData,
		Category:      "cobertura",
		Severity:      models.SeverityInfo,
		Title:         "Dados insuficientes",
		Description:   fmt.Sprintf("Apenas %d de %d diagnósticos aplicados para a turma", agg.AssessmentsApplied, cfg.MinAssessments),
		AffectedCount: agg.AssessmentsApplied,
		Suggestion:    "Concluir a sequência de diagnósticos para consolidar a classificação final",
	}
}
