package postgres

import (
	"github.com/avalia-edu/diagnostic-service/internal/repositories"
	"gorm.io/gorm"
)

type postgresRepository struct {
	response   repositories.ResponseRepository
	assessment repositories.AssessmentRepository
	student    repositories.StudentRepository
}

// NewRepository bundles the PostgreSQL implementations behind the
// aggregate Repository interface.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &postgresRepository{
		response:   NewResponsePostgreSQL(db),
		assessment: NewAssessmentPostgreSQL(db),
		student:    NewStudentPostgreSQL(db),
	}
}

func (r *postgresRepository) Response() repositories.ResponseRepository {
	return r.response
}

func (r *postgresRepository) Assessment() repositories.AssessmentRepository {
	return r.assessment
}

func (r *postgresRepository) Student() repositories.StudentRepository {
	return r.student
}
