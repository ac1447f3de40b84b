package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avalia-edu/diagnostic-service/internal/engine"
	"github.com/avalia-edu/diagnostic-service/internal/events"
	"github.com/avalia-edu/diagnostic-service/internal/models"
	"github.com/avalia-edu/diagnostic-service/internal/utils"
)

func newAlertService(repo *MockRepository, publisher events.EventPublisher) AlertService {
	return NewAlertService(repo, engine.DefaultConfig(), publisher, utils.NewDevelopmentLogger())
}

func findAlertKind(alerts []models.Alert, kind models.AlertKind) *models.Alert {
	for i := range alerts {
		if alerts[i].Kind == kind {
			return &alerts[i]
		}
	}
	return nil
}

func TestAlertService_GetClassAlerts_CriticalAndInsufficientData(t *testing.T) {
	repo := NewMockRepository()
	logger := utils.NewDevelopmentLogger()
	publisher := events.NewMockEventPublisher(utils.ToSlogLogger(logger))
	service := newAlertService(repo, publisher)
	ctx := context.Background()

	class := &models.SchoolClass{ID: 10, Name: "3A", GradeLevel: "3ano"}
	students := []models.Student{
		{ID: 1, Name: "Ana", ClassID: 10},
		{ID: 2, Name: "Bruno", ClassID: 10},
	}
	assessments := []models.Assessment{
		{ID: 100, Code: "D1", GradeLevel: "3ano", Position: 1},
	}

	// Ana scores 100%, Bruno scores 10%: one student below the 25%
	// critical cutoff, and only one of three diagnostics applied.
	var responses []models.Response
	responses = append(responses, allCorrect(1, 100)...)
	statuses := make([]models.ResponseStatus, 10)
	for i := range statuses {
		statuses[i] = models.StatusIncorrect
	}
	statuses[0] = models.StatusCorrect
	responses = append(responses, responsesFor(2, 100, statuses...)...)

	repo.StudentRepo.On("GetClass", ctx, uint(10)).Return(class, nil)
	repo.StudentRepo.On("ListByClass", ctx, uint(10)).Return(students, nil)
	repo.AssessmentRepo.On("ListByGrade", ctx, "3ano").Return(assessments, nil)
	repo.ResponseRepo.On("GetByClass", ctx, uint(10)).Return(responses, nil)
	repo.ResponseRepo.On("CountByAssessments", ctx, uint(10), []uint{100}).
		Return(map[uint]int64{100: 20}, nil)

	alerts, err := service.GetClassAlerts(ctx, 10)
	require.NoError(t, err)

	critical := findAlertKind(alerts, models.AlertCriticalPerformance)
	require.NotNil(t, critical)
	assert.Equal(t, models.SeverityCritical, critical.Severity)
	assert.Equal(t, 1, critical.AffectedCount)

	insufficient := findAlertKind(alerts, models.AlertInsufficientData)
	require.NotNil(t, insufficient)
	assert.Equal(t, models.SeverityInfo, insufficient.Severity)

	// Sorted by severity: critical first.
	assert.Equal(t, models.SeverityCritical, alerts[0].Severity)

	// Every alert was published as an event.
	published := publisher.GetPublishedEvents()
	assert.Len(t, published, len(alerts))
	for _, event := range published {
		assert.Equal(t, events.EventAlertRaised, event.Type)
	}
}

func TestAlertService_GetClassAlerts_DeclineBetweenAssessments(t *testing.T) {
	repo := NewMockRepository()
	logger := utils.NewDevelopmentLogger()
	publisher := events.NewMockEventPublisher(utils.ToSlogLogger(logger))
	service := newAlertService(repo, publisher)
	ctx := context.Background()

	class := &models.SchoolClass{ID: 20, Name: "4B", GradeLevel: "4ano"}
	students := []models.Student{{ID: 1, Name: "Carla", ClassID: 20}}
	assessments := []models.Assessment{
		{ID: 1, Code: "D1", GradeLevel: "4ano", Position: 1},
		{ID: 2, Code: "D2", GradeLevel: "4ano", Position: 2},
		{ID: 3, Code: "D3", GradeLevel: "4ano", Position: 3},
	}

	// Means: D1 100%, D2 90%, D3 70%. The 20 point drop from D2 to D3
	// exceeds the 10 point cutoff.
	var responses []models.Response
	responses = append(responses, allCorrect(1, 1)...)
	d2 := make([]models.ResponseStatus, 10)
	for i := range d2 {
		d2[i] = models.StatusCorrect
	}
	d2[9] = models.StatusIncorrect
	responses = append(responses, responsesFor(1, 2, d2...)...)
	d3 := make([]models.ResponseStatus, 10)
	for i := range d3 {
		d3[i] = models.StatusCorrect
	}
	d3[7] = models.StatusIncorrect
	d3[8] = models.StatusIncorrect
	d3[9] = models.StatusIncorrect
	responses = append(responses, responsesFor(1, 3, d3...)...)

	repo.StudentRepo.On("GetClass", ctx, uint(20)).Return(class, nil)
	repo.StudentRepo.On("ListByClass", ctx, uint(20)).Return(students, nil)
	repo.AssessmentRepo.On("ListByGrade", ctx, "4ano").Return(assessments, nil)
	repo.ResponseRepo.On("GetByClass", ctx, uint(20)).Return(responses, nil)
	repo.ResponseRepo.On("CountByAssessments", ctx, uint(20), []uint{1, 2, 3}).
		Return(map[uint]int64{1: 10, 2: 10, 3: 10}, nil)

	alerts, err := service.GetClassAlerts(ctx, 20)
	require.NoError(t, err)

	decline := findAlertKind(alerts, models.AlertPerformanceDecline)
	require.NotNil(t, decline)
	assert.Contains(t, decline.Description, "D2")
	assert.Contains(t, decline.Description, "D3")

	// All three diagnostics applied: no insufficient-data alert.
	assert.Nil(t, findAlertKind(alerts, models.AlertInsufficientData))
}

func TestAlertService_GetClassAlerts_QuietClass(t *testing.T) {
	repo := NewMockRepository()
	logger := utils.NewDevelopmentLogger()
	publisher := events.NewMockEventPublisher(utils.ToSlogLogger(logger))
	service := newAlertService(repo, publisher)
	ctx := context.Background()

	class := &models.SchoolClass{ID: 30, Name: "5C", GradeLevel: "5ano"}
	students := []models.Student{{ID: 1, Name: "Davi", ClassID: 30}}
	assessments := []models.Assessment{
		{ID: 1, Code: "D1", GradeLevel: "5ano", Position: 1},
		{ID: 2, Code: "D2", GradeLevel: "5ano", Position: 2},
		{ID: 3, Code: "D3", GradeLevel: "5ano", Position: 3},
	}

	var responses []models.Response
	responses = append(responses, allCorrect(1, 1)...)
	responses = append(responses, allCorrect(1, 2)...)
	responses = append(responses, allCorrect(1, 3)...)

	repo.StudentRepo.On("GetClass", ctx, uint(30)).Return(class, nil)
	repo.StudentRepo.On("ListByClass", ctx, uint(30)).Return(students, nil)
	repo.AssessmentRepo.On("ListByGrade", ctx, "5ano").Return(assessments, nil)
	repo.ResponseRepo.On("GetByClass", ctx, uint(30)).Return(responses, nil)
	repo.ResponseRepo.On("CountByAssessments", ctx, uint(30), []uint{1, 2, 3}).
		Return(map[uint]int64{1: 10, 2: 10, 3: 10}, nil)

	alerts, err := service.GetClassAlerts(ctx, 30)
	require.NoError(t, err)

	assert.Empty(t, alerts)
	assert.Empty(t, publisher.GetPublishedEvents())
}
