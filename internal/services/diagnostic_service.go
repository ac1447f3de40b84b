package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/avalia-edu/diagnostic-service/internal/cache"
	"github.com/avalia-edu/diagnostic-service/internal/engine"
	"github.com/avalia-edu/diagnostic-service/internal/models"
	"github.com/avalia-edu/diagnostic-service/internal/repositories"
	"github.com/avalia-edu/diagnostic-service/internal/utils"
)

// DiagnosticService computes scores, competency profiles and class
// views on demand. Nothing it returns is persisted; every call
// recomputes from the current response set.
type DiagnosticService interface {
	// GetStudentResult scores one (student, assessment) pair.
	GetStudentResult(ctx context.Context, studentID, assessmentID uint) (*StudentResult, error)

	// GetStudentCompetencyProfile aggregates one student's competency
	// percentages across every assessment they responded to.
	GetStudentCompetencyProfile(ctx context.Context, studentID uint) (*CompetencyProfile, error)

	// GetClassOverview builds the full students-by-assessments grid of a
	// class, with per-student final classifications.
	GetClassOverview(ctx context.Context, classID uint) (*ClassOverview, error)

	// GetClassHeatMap bucketizes the overview into heat-map cells.
	GetClassHeatMap(ctx context.Context, classID uint) (*ClassHeatMap, error)

	// GetFinalClassifications returns the weighted final tier of every
	// student in a class.
	GetFinalClassifications(ctx context.Context, classID uint) ([]models.FinalClassification, error)
}

type diagnosticService struct {
	repo   repositories.Repository
	engine engine.Config
	cache  cache.CacheService
	ttl    time.Duration
	logger utils.Logger
}

func NewDiagnosticService(repo repositories.Repository, cfg engine.Config, cacheService cache.CacheService, cacheTTL time.Duration, logger utils.Logger) DiagnosticService {
	return &diagnosticService{
		repo:   repo,
		engine: cfg,
		cache:  cacheService,
		ttl:    cacheTTL,
		logger: logger,
	}
}

// ===== DATA STRUCTURES =====

// StudentResult is one scored diagnostic with its competency breakdown.
type StudentResult struct {
	Student      *models.Student           `json:"student"`
	Assessment   *models.Assessment        `json:"assessment"`
	Result       models.DiagnosticResult   `json:"result"`
	Competencies []models.CompetencyResult `json:"competencies"`
}

// CompetencyProfile aggregates a student's competencies across the
// whole diagnostic sequence.
type CompetencyProfile struct {
	Student      *models.Student           `json:"student"`
	Competencies []models.CompetencyResult `json:"competencies"`
	GeneratedAt  time.Time                 `json:"generated_at"`
}

// OverviewCell is one (student, assessment) cell of the class grid.
type OverviewCell struct {
	AssessmentID   uint                   `json:"assessment_id"`
	AssessmentCode string                 `json:"assessment_code"`
	Percentage     *float64               `json:"percentage"`
	Tier           models.PerformanceTier `json:"tier"`
}

// OverviewRow is one student's row: their cells in assessment sequence
// order plus the weighted final classification.
type OverviewRow struct {
	StudentID   uint                       `json:"student_id"`
	StudentName string                     `json:"student_name"`
	Cells       []OverviewCell             `json:"cells"`
	Final       models.FinalClassification `json:"final"`
}

type ClassOverview struct {
	ClassID     uint                `json:"class_id"`
	ClassName   string              `json:"class_name"`
	GradeLevel  string              `json:"grade_level"`
	Assessments []models.Assessment `json:"assessments"`
	Rows        []OverviewRow       `json:"rows"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// HeatCell is one bucketized cell of the class heat map.
type HeatCell struct {
	AssessmentID   uint              `json:"assessment_id"`
	AssessmentCode string            `json:"assessment_code"`
	Percentage     *float64          `json:"percentage"`
	Bucket         models.HeatBucket `json:"bucket"`
}

type HeatRow struct {
	StudentID   uint       `json:"student_id"`
	StudentName string     `json:"student_name"`
	Cells       []HeatCell `json:"cells"`
}

type ClassHeatMap struct {
	ClassID     uint      `json:"class_id"`
	ClassName   string    `json:"class_name"`
	Rows        []HeatRow `json:"rows"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ===== STUDENT OPERATIONS =====

func (s *diagnosticService) GetStudentResult(ctx context.Context, studentID, assessmentID uint) (*StudentResult, error) {
	student, err := s.getStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	responses, err := s.repo.Response().GetByStudentAndAssessment(ctx, studentID, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get responses: %w", err)
	}

	result := engine.Score(s.engine, responses)
	result.StudentID = studentID
	result.AssessmentID = assessmentID

	return &StudentResult{
		Student:      student,
		Assessment:   assessment,
		Result:       result,
		Competencies: engine.CompetencyBreakdown(s.engine, responses),
	}, nil
}

func (s *diagnosticService) GetStudentCompetencyProfile(ctx context.Context, studentID uint) (*CompetencyProfile, error) {
	student, err := s.getStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	responses, err := s.repo.Response().GetByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get responses: %w", err)
	}

	// The per-competency formula is identical for one assessment and for
	// the whole term, so the concatenated response set feeds the same
	// breakdown.
	return &CompetencyProfile{
		Student:      student,
		Competencies: engine.CompetencyBreakdown(s.engine, responses),
		GeneratedAt:  time.Now(),
	}, nil
}

// ===== CLASS OPERATIONS =====

func (s *diagnosticService) GetClassOverview(ctx context.Context, classID uint) (*ClassOverview, error) {
	cacheKey := overviewCacheKey(classID)

	var cached ClassOverview
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		s.logger.DebugContext(ctx, "Class overview served from cache", "class_id", classID)
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		// Treat cache failures as misses; recomputation is the source of
		// truth.
		s.logger.WarnContext(ctx, "Class overview cache read failed", "class_id", classID, "error", err)
	}

	overview, err := s.buildOverview(ctx, classID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, overview, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "Class overview cache write failed", "class_id", classID, "error", err)
	}

	return overview, nil
}

func (s *diagnosticService) GetClassHeatMap(ctx context.Context, classID uint) (*ClassHeatMap, error) {
	overview, err := s.GetClassOverview(ctx, classID)
	if err != nil {
		return nil, err
	}

	heatMap := &ClassHeatMap{
		ClassID:     overview.ClassID,
		ClassName:   overview.ClassName,
		Rows:        make([]HeatRow, 0, len(overview.Rows)),
		GeneratedAt: time.Now(),
	}
	for _, row := range overview.Rows {
		heatRow := HeatRow{
			StudentID:   row.StudentID,
			StudentName: row.StudentName,
			Cells:       make([]HeatCell, 0, len(row.Cells)),
		}
		for _, cell := range row.Cells {
			heatRow.Cells = append(heatRow.Cells, HeatCell{
				AssessmentID:   cell.AssessmentID,
				AssessmentCode: cell.AssessmentCode,
				Percentage:     cell.Percentage,
				Bucket:         engine.Bucket(s.engine, cell.Percentage),
			})
		}
		heatMap.Rows = append(heatMap.Rows, heatRow)
	}
	return heatMap, nil
}

func (s *diagnosticService) GetFinalClassifications(ctx context.Context, classID uint) ([]models.FinalClassification, error) {
	overview, err := s.GetClassOverview(ctx, classID)
	if err != nil {
		return nil, err
	}

	finals := make([]models.FinalClassification, 0, len(overview.Rows))
	for _, row := range overview.Rows {
		finals = append(finals, row.Final)
	}
	return finals, nil
}

// ===== HELPER FUNCTIONS =====

func (s *diagnosticService) buildOverview(ctx context.Context, classID uint) (*ClassOverview, error) {
	class, err := s.repo.Student().GetClass(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("failed to get class: %w", err)
	}

	students, err := s.repo.Student().ListByClass(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	assessments, err := s.repo.Assessment().ListByGrade(ctx, class.GradeLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}

	responses, err := s.repo.Response().GetByClass(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to get class responses: %w", err)
	}
	byStudent := groupResponses(responses)

	overview := &ClassOverview{
		ClassID:     class.ID,
		ClassName:   class.Name,
		GradeLevel:  class.GradeLevel,
		Assessments: assessments,
		Rows:        make([]OverviewRow, 0, len(students)),
		GeneratedAt: time.Now(),
	}

	for _, student := range students {
		row := OverviewRow{
			StudentID:   student.ID,
			StudentName: student.Name,
			Cells:       make([]OverviewCell, 0, len(assessments)),
		}

		entries := make([]engine.TierEntry, 0, len(assessments))
		for _, assessment := range assessments {
			result := engine.Score(s.engine, byStudent[student.ID][assessment.ID])
			row.Cells = append(row.Cells, OverviewCell{
				AssessmentID:   assessment.ID,
				AssessmentCode: assessment.Code,
				Percentage:     result.Percentage,
				Tier:           result.Tier,
			})
			entries = append(entries, engine.TierEntry{
				AssessmentCode: assessment.Code,
				Tier:           result.Tier,
			})
		}

		row.Final = engine.FinalTier(s.engine, entries)
		row.Final.StudentID = student.ID
		overview.Rows = append(overview.Rows, row)
	}

	return overview, nil
}

func (s *diagnosticService) getStudent(ctx context.Context, studentID uint) (*models.Student, error) {
	student, err := s.repo.Student().GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return student, nil
}

// groupResponses indexes a class response set by student then
// assessment.
func groupResponses(responses []models.Response) map[uint]map[uint][]models.Response {
	grouped := make(map[uint]map[uint][]models.Response)
	for _, r := range responses {
		if grouped[r.StudentID] == nil {
			grouped[r.StudentID] = make(map[uint][]models.Response)
		}
		grouped[r.StudentID][r.AssessmentID] = append(grouped[r.StudentID][r.AssessmentID], r)
	}
	return grouped
}

func overviewCacheKey(classID uint) string {
	return fmt.Sprintf("diagnostic:overview:%d", classID)
}

// InvalidateClassCaches drops cached views for every class, used after
// imports change the underlying responses.
func InvalidateClassCaches(ctx context.Context, cacheService cache.CacheService, logger utils.Logger) {
	if err := cacheService.DeletePattern(ctx, "diagnostic:overview:*"); err != nil {
		logger.WarnContext(ctx, "Failed to invalidate overview caches", "error", err)
	}
}
