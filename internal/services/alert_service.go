package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/avalia-edu/diagnostic-service/internal/engine"
	"github.com/avalia-edu/diagnostic-service/internal/events"
	"github.com/avalia-edu/diagnostic-service/internal/models"
	"github.com/avalia-edu/diagnostic-service/internal/repositories"
	"github.com/avalia-edu/diagnostic-service/internal/utils"
)

// AlertService evaluates the alert rule battery for a class and
// publishes every generated alert as an event.
type AlertService interface {
	GetClassAlerts(ctx context.Context, classID uint) ([]models.Alert, error)
}

type alertService struct {
	repo      repositories.Repository
	engine    engine.Config
	publisher events.EventPublisher
	logger    utils.Logger
}

func NewAlertService(repo repositories.Repository, cfg engine.Config, publisher events.EventPublisher, logger utils.Logger) AlertService {
	return &alertService{
		repo:      repo,
		engine:    cfg,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *alertService) GetClassAlerts(ctx context.Context, classID uint) ([]models.Alert, error) {
	class, err := s.repo.Student().GetClass(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("failed to get class: %w", err)
	}

	aggregate, err := s.buildAggregate(ctx, class)
	if err != nil {
		return nil, err
	}

	alerts := engine.GenerateAlerts(s.engine, *aggregate)
	s.logger.InfoContext(ctx, "Generated class alerts",
		"class_id", classID,
		"alert_count", len(alerts))

	// Publishing is best effort; a broker outage must not hide the
	// alerts from the caller.
	for _, alert := range alerts {
		event := events.NewAlertRaisedEvent(class.ID, class.GradeLevel, alert)
		if err := s.publisher.PublishAlertEvent(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish alert event",
				"class_id", classID,
				"alert_kind", alert.Kind,
				"error", err)
		}
	}

	return alerts, nil
}

// buildAggregate assembles the read-only snapshot the rule engine
// evaluates: per-student snapshots, per-assessment class means,
// class-wide competency tallies and the applied-assessment count.
func (s *alertService) buildAggregate(ctx context.Context, class *models.SchoolClass) (*engine.ClassAggregate, error) {
	students, err := s.repo.Student().ListByClass(ctx, class.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	assessments, err := s.repo.Assessment().ListByGrade(ctx, class.GradeLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}

	responses, err := s.repo.Response().GetByClass(ctx, class.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get class responses: %w", err)
	}
	byStudent := groupResponses(responses)

	aggregate := &engine.ClassAggregate{
		Students:        make([]engine.StudentSnapshot, 0, len(students)),
		AssessmentMeans: make([]engine.AssessmentMean, 0, len(assessments)),
	}

	// meanAcc accumulates per-assessment percentage sums across students.
	type meanAcc struct {
		sum   float64
		count int
	}
	means := make(map[uint]*meanAcc, len(assessments))
	for _, a := range assessments {
		means[a.ID] = &meanAcc{}
	}

	tallies := make(map[models.Competency]*engine.CompetencyTally, len(models.ScoredCompetencies))
	for _, comp := range models.ScoredCompetencies {
		tallies[comp] = &engine.CompetencyTally{Competency: comp}
	}

	for _, student := range students {
		snapshot := engine.StudentSnapshot{StudentID: student.ID}
		entries := make([]engine.TierEntry, 0, len(assessments))

		// Assessments are ordered by position, so the last non-nil
		// percentage seen is the most recent one.
		for _, assessment := range assessments {
			studentResponses := byStudent[student.ID][assessment.ID]
			result := engine.Score(s.engine, studentResponses)
			entries = append(entries, engine.TierEntry{
				AssessmentCode: assessment.Code,
				Tier:           result.Tier,
			})
			if result.Percentage != nil {
				snapshot.LatestPercentage = result.Percentage
				acc := means[assessment.ID]
				acc.sum += *result.Percentage
				acc.count++
			}

			for _, comp := range models.ScoredCompetencies {
				raw, answered := engine.TallyCompetency(s.engine, studentResponses, comp)
				tallies[comp].CorrectEquivalent += raw
				tallies[comp].Answered += answered
			}
		}

		snapshot.Final = engine.FinalTier(s.engine, entries)
		snapshot.Final.StudentID = student.ID
		aggregate.Students = append(aggregate.Students, snapshot)
	}

	for _, assessment := range assessments {
		mean := engine.AssessmentMean{Code: assessment.Code, Position: assessment.Position}
		if acc := means[assessment.ID]; acc.count > 0 {
			value := acc.sum / float64(acc.count)
			mean.Mean = &value
		}
		aggregate.AssessmentMeans = append(aggregate.AssessmentMeans, mean)
	}

	for _, comp := range models.ScoredCompetencies {
		aggregate.CompetencyTallies = append(aggregate.CompetencyTallies, *tallies[comp])
	}

	aggregate.AssessmentsApplied, err = s.countApplied(ctx, class.ID, assessments)
	if err != nil {
		return nil, err
	}

	return aggregate, nil
}

// countApplied counts the assessments at least one student of the class
// has responses for.
func (s *alertService) countApplied(ctx context.Context, classID uint, assessments []models.Assessment) (int, error) {
	ids := make([]uint, 0, len(assessments))
	for _, a := range assessments {
		ids = append(ids, a.ID)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	counts, err := s.repo.Response().CountByAssessments(ctx, classID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to count class responses: %w", err)
	}

	applied := 0
	for _, count := range counts {
		if count > 0 {
			applied++
		}
	}
	return applied, nil
}
