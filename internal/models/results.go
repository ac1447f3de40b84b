package models

// Derived value objects produced by the scoring engine. None of these
// are persisted; every one is recomputed on demand from the current
// response set and handed to the rendering/reporting side as-is.

type PerformanceTier string

const (
	TierA PerformanceTier = "A" // needs intensive support
	TierB PerformanceTier = "B" // developing
	TierC PerformanceTier = "C" // consolidated

	// TierAbsent marks an assessment the student did not sit. It is
	// reported, never averaged.
	TierAbsent PerformanceTier = "F"

	// TierUnrated means no usable data at all.
	TierUnrated PerformanceTier = "unrated"
)

type Competency string

const (
	CompetencyReading       Competency = "L"
	CompetencyFluency       Competency = "F"
	CompetencyReasoning     Competency = "R"
	CompetencyApplication   Competency = "A"
	CompetencyJustification Competency = "J"

	// CompetencySelfReport tags the two self-assessment items (11-12).
	CompetencySelfReport Competency = "AV"
)

// ScoredCompetencies lists the five competencies that participate in
// numeric aggregation, in display order.
var ScoredCompetencies = []Competency{
	CompetencyReading,
	CompetencyFluency,
	CompetencyReasoning,
	CompetencyApplication,
	CompetencyJustification,
}

var competencyNames = map[Competency]string{
	CompetencyReading:       "Leitura",
	CompetencyFluency:       "Fluência",
	CompetencyReasoning:     "Raciocínio",
	CompetencyApplication:   "Aplicação",
	CompetencyJustification: "Justificativa",
	CompetencySelfReport:    "Autoavaliação",
}

func (c Competency) DisplayName() string {
	if name, ok := competencyNames[c]; ok {
		return name
	}
	return string(c)
}

// DiagnosticResult is the score of one (student, assessment) pair.
// Percentage is nil for absent or unrated results.
type DiagnosticResult struct {
	StudentID    uint            `json:"student_id"`
	AssessmentID uint            `json:"assessment_id"`
	RawScore     float64         `json:"raw_score"`
	Percentage   *float64        `json:"percentage"`
	Tier         PerformanceTier `json:"tier"`
}

// CompetencyResult is the correctness of one competency, over one
// assessment or aggregated across several. Percentage is nil when no
// question of that competency was answered.
type CompetencyResult struct {
	Competency Competency `json:"competency"`
	Answered   int        `json:"answered"`
	Percentage *float64   `json:"percentage"`
}

// FinalClassification is the weighted tier summarizing a student's
// performance across all assessments of their grade. WeightedMean is
// nil when every assessment was absent or unrated.
type FinalClassification struct {
	StudentID    uint            `json:"student_id"`
	Tier         PerformanceTier `json:"tier"`
	WeightedMean *float64        `json:"weighted_mean"`
	Rated        int             `json:"rated"`
}

type HeatBucket string

const (
	BucketGreen  HeatBucket = "green"  // consolidated
	BucketYellow HeatBucket = "yellow" // developing
	BucketRed    HeatBucket = "red"    // needs reinforcement
	BucketGray   HeatBucket = "gray"   // not evaluated / absent
)

type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityWarning  AlertSeverity = "atencao"
	SeverityInfo     AlertSeverity = "informacao"
)

// Rank orders severities for display: critical > atencao > informacao.
func (s AlertSeverity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

type AlertKind string

const (
	AlertCriticalPerformance AlertKind = "critical_performance"
	AlertGroupASkew          AlertKind = "group_a_skew"
	AlertPerformanceDecline  AlertKind = "performance_decline"
	AlertWeakCompetency      AlertKind = "weak_competency"
	AlertInsufficientData    AlertKind = "insufficient_data"
)

// Alert is a self-contained, rule-derived warning about class- or
// competency-level performance. Each alert carries its own affected
// count and remediation text; alerts are never merged or deduplicated.
type Alert struct {
	Kind          AlertKind     `json:"kind"`
	Category      string        `json:"category"`
	Severity      AlertSeverity `json:"severity"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	AffectedCount int           `json:"affected_count"`
	Suggestion    string        `json:"suggestion"`
}
