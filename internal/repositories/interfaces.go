package repositories

import (
	"context"

	"github.com/avalia-edu/diagnostic-service/internal/models"
)

// Repository is the aggregate access point handed to services.
type Repository interface {
	Response() ResponseRepository
	Assessment() AssessmentRepository
	Student() StudentRepository
}

type ResponseRepository interface {
	// GetByStudentAndAssessment returns the responses of one
	// (student, assessment) pair, ordered by question number.
	GetByStudentAndAssessment(ctx context.Context, studentID, assessmentID uint) ([]models.Response, error)

	// GetByStudent returns every response of one student across all
	// assessments, ordered by assessment then question number.
	GetByStudent(ctx context.Context, studentID uint) ([]models.Response, error)

	// GetByClass returns every response of every student in a class.
	GetByClass(ctx context.Context, classID uint) ([]models.Response, error)

	// Upsert inserts or replaces responses keyed by
	// (student, assessment, question).
	Upsert(ctx context.Context, responses []models.Response) error

	// CountByAssessments returns, per assessment ID, how many responses
	// students of the given class have recorded.
	CountByAssessments(ctx context.Context, classID uint, assessmentIDs []uint) (map[uint]int64, error)
}

type AssessmentRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Assessment, error)
	GetByCode(ctx context.Context, code string) (*models.Assessment, error)

	// ListByGrade returns the assessment sequence of a grade level,
	// ordered by position.
	ListByGrade(ctx context.Context, gradeLevel string) ([]models.Assessment, error)
}

type StudentRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Student, error)
	GetByEnrollmentCode(ctx context.Context, code string) (*models.Student, error)
	ListByClass(ctx context.Context, classID uint) ([]models.Student, error)
	GetClass(ctx context.Context, classID uint) (*models.SchoolClass, error)
}
