package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/avalia-edu/diagnostic-service/internal/events"
	"github.com/avalia-edu/diagnostic-service/internal/models"
	"github.com/avalia-edu/diagnostic-service/internal/utils"
)

func newImportService(repo *MockRepository, publisher events.EventPublisher) ImportService {
	return NewImportService(repo, publisher, newMemoryCache(), utils.NewDevelopmentLogger())
}

func newTestPublisher() *events.MockEventPublisher {
	return events.NewMockEventPublisher(utils.ToSlogLogger(utils.NewDevelopmentLogger()))
}

func TestImportService_ImportResponsesFromCSV(t *testing.T) {
	repo := NewMockRepository()
	publisher := newTestPublisher()
	service := newImportService(repo, publisher)
	ctx := context.Background()

	assessment := &models.Assessment{ID: 5, Code: "D1", GradeLevel: "3ano", Position: 1}
	repo.AssessmentRepo.On("GetByCode", ctx, "D1").Return(assessment, nil)
	repo.StudentRepo.On("GetByEnrollmentCode", ctx, "M001").Return(&models.Student{ID: 1, EnrollmentCode: "M001"}, nil)
	repo.StudentRepo.On("GetByEnrollmentCode", ctx, "M002").Return(&models.Student{ID: 2, EnrollmentCode: "M002"}, nil)

	var saved []models.Response
	repo.ResponseRepo.On("Upsert", ctx, mock.AnythingOfType("[]models.Response")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).([]models.Response)
		}).
		Return(nil)

	csvData := strings.Join([]string{
		"enrollment_code,q1,q2,q3",
		"M001,c,incorrect:calculation,p",
		"M002,C,b,",
	}, "\n")

	result, err := service.ImportResponsesFromCSV(ctx, strings.NewReader(csvData), "D1")
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalRows)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 0, result.ErrorCount)
	// M002 left q3 empty: 3 + 2 responses.
	assert.Equal(t, 5, result.ResponseCount)
	require.Len(t, saved, 5)

	assert.Equal(t, models.StatusCorrect, saved[0].Status)
	assert.Equal(t, models.StatusIncorrect, saved[1].Status)
	require.NotNil(t, saved[1].ErrorType)
	assert.Equal(t, models.ErrorCalculation, *saved[1].ErrorType)
	assert.Equal(t, models.StatusPartial, saved[2].Status)

	// One import event with the batch summary.
	published := publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventResponsesImported, published[0].Type)
	data, ok := published[0].Data.(events.ResponsesImportedEvent)
	require.True(t, ok)
	assert.Equal(t, uint(5), data.AssessmentID)
	assert.Equal(t, 5, data.ResponseCount)
	assert.Equal(t, 2, data.StudentCount)
	assert.Equal(t, "spreadsheet", data.SourceKind)
}

func TestImportService_ImportResponsesFromCSV_RowErrors(t *testing.T) {
	repo := NewMockRepository()
	publisher := newTestPublisher()
	service := newImportService(repo, publisher)
	ctx := context.Background()

	assessment := &models.Assessment{ID: 5, Code: "D1"}
	repo.AssessmentRepo.On("GetByCode", ctx, "D1").Return(assessment, nil)
	repo.StudentRepo.On("GetByEnrollmentCode", ctx, "M001").Return(&models.Student{ID: 1}, nil)
	repo.StudentRepo.On("GetByEnrollmentCode", ctx, "NOPE").
		Return((*models.Student)(nil), gorm.ErrRecordNotFound)
	repo.ResponseRepo.On("Upsert", ctx, mock.AnythingOfType("[]models.Response")).Return(nil)

	csvData := strings.Join([]string{
		"enrollment_code,q1,q2",
		"M001,c,banana",
		"NOPE,c,c",
		"M001,c,i",
	}, "\n")

	result, err := service.ImportResponsesFromCSV(ctx, strings.NewReader(csvData), "D1")
	require.NoError(t, err)

	// Bad status and unknown enrollment are row errors; the valid third
	// row still lands.
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 2, result.ErrorCount)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 2, result.Errors[0].Row)
	assert.Equal(t, "q2", result.Errors[0].Field)
	assert.Equal(t, 3, result.Errors[1].Row)
	assert.Equal(t, "enrollment_code", result.Errors[1].Field)
	assert.Equal(t, 2, result.ResponseCount)
}

func TestImportService_ImportResponsesFromCSV_UnknownAssessment(t *testing.T) {
	repo := NewMockRepository()
	service := newImportService(repo, newTestPublisher())
	ctx := context.Background()

	repo.AssessmentRepo.On("GetByCode", ctx, "D9").
		Return((*models.Assessment)(nil), gorm.ErrRecordNotFound)

	_, err := service.ImportResponsesFromCSV(ctx, strings.NewReader("enrollment_code,q1\nM001,c"), "D9")
	assert.ErrorIs(t, err, ErrUnknownAssessment)
}

func omrAssessment() *models.Assessment {
	return &models.Assessment{
		ID:        7,
		Code:      "D2",
		AnswerKey: datatypes.JSON([]byte(`{"1":"A","2":"B","3":"C"}`)),
	}
}

func TestImportService_ImportOMRResults(t *testing.T) {
	repo := NewMockRepository()
	publisher := newTestPublisher()
	service := newImportService(repo, publisher)
	ctx := context.Background()

	repo.AssessmentRepo.On("GetByCode", ctx, "D2").Return(omrAssessment(), nil)
	repo.StudentRepo.On("GetByEnrollmentCode", ctx, "M001").Return(&models.Student{ID: 1}, nil)
	repo.StudentRepo.On("GetByEnrollmentCode", ctx, "M002").Return(&models.Student{ID: 2}, nil)

	var saved []models.Response
	repo.ResponseRepo.On("Upsert", ctx, mock.AnythingOfType("[]models.Response")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).([]models.Response)
		}).
		Return(nil)

	payload := &OMRPayload{
		AssessmentReference: "D2",
		Sheets: []OMRSheet{
			{
				StudentReference: "M001",
				Answers:          map[string]string{"1": "a", "2": "D", "3": ""},
			},
			{
				StudentReference: "M002",
				Absent:           true,
			},
		},
	}

	result, err := service.ImportOMRResults(ctx, payload)
	require.NoError(t, err)

	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 0, result.ErrorCount)
	assert.Equal(t, 6, result.ResponseCount)

	byKey := make(map[[2]uint]map[int]models.Response)
	for _, r := range saved {
		key := [2]uint{r.StudentID, r.AssessmentID}
		if byKey[key] == nil {
			byKey[key] = make(map[int]models.Response)
		}
		byKey[key][r.QuestionNumber] = r
	}

	m001 := byKey[[2]uint{1, 7}]
	require.Len(t, m001, 3)
	// Letter comparison is case insensitive.
	assert.Equal(t, models.StatusCorrect, m001[1].Status)
	require.NotNil(t, m001[1].MarkedLetter)
	assert.Equal(t, "A", *m001[1].MarkedLetter)
	assert.Equal(t, models.StatusIncorrect, m001[2].Status)
	assert.Equal(t, models.StatusBlank, m001[3].Status)
	assert.Nil(t, m001[3].MarkedLetter)

	// Absent sheet records every keyed question as absent.
	m002 := byKey[[2]uint{2, 7}]
	require.Len(t, m002, 3)
	for _, r := range m002 {
		assert.Equal(t, models.StatusAbsent, r.Status)
	}
}

func TestImportService_ImportOMRResults_MissingAnswerKey(t *testing.T) {
	repo := NewMockRepository()
	service := newImportService(repo, newTestPublisher())
	ctx := context.Background()

	repo.AssessmentRepo.On("GetByCode", ctx, "D3").
		Return(&models.Assessment{ID: 8, Code: "D3"}, nil)

	_, err := service.ImportOMRResults(ctx, &OMRPayload{
		AssessmentReference: "D3",
		Sheets:              []OMRSheet{{StudentReference: "M001"}},
	})
	assert.ErrorIs(t, err, ErrAnswerKeyMissing)
}

func TestImportService_ImportOMRResults_UnknownStudentIsRowError(t *testing.T) {
	repo := NewMockRepository()
	publisher := newTestPublisher()
	service := newImportService(repo, publisher)
	ctx := context.Background()

	repo.AssessmentRepo.On("GetByCode", ctx, "D2").Return(omrAssessment(), nil)
	repo.StudentRepo.On("GetByEnrollmentCode", ctx, "GHOST").
		Return((*models.Student)(nil), gorm.ErrRecordNotFound)

	result, err := service.ImportOMRResults(ctx, &OMRPayload{
		AssessmentReference: "D2",
		Sheets:              []OMRSheet{{StudentReference: "GHOST"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, 0, result.ResponseCount)
	// Nothing stored, nothing published.
	repo.ResponseRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	assert.Empty(t, publisher.GetPublishedEvents())
}
