package postgres

import (
	"context"

	"github.com/avalia-edu/diagnostic-service/internal/models"
	"github.com/avalia-edu/diagnostic-service/internal/repositories"
	"gorm.io/gorm"
)

type StudentPostgreSQL struct {
	db *gorm.DB
}

func NewStudentPostgreSQL(db *gorm.DB) repositories.StudentRepository {
	return &StudentPostgreSQL{db: db}
}

func (s StudentPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Student, error) {
	var student models.Student
	if err := s.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return nil, err
	}

	return &student, nil
}

func (s StudentPostgreSQL) GetByEnrollmentCode(ctx context.Context, code string) (*models.Student, error) {
	var student models.Student
	if err := s.db.WithContext(ctx).
		Where("enrollment_code = ?", code).
		First(&student).Error; err != nil {
		return nil, err
	}

	return &student, nil
}

func (s StudentPostgreSQL) ListByClass(ctx context.Context, classID uint) ([]models.Student, error) {
	var students []models.Student
	if err := s.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Order("name").
		Find(&students).Error; err != nil {
		return nil, err
	}

	return students, nil
}

func (s StudentPostgreSQL) GetClass(ctx context.Context, classID uint) (*models.SchoolClass, error) {
	var class models.SchoolClass
	if err := s.db.WithContext(ctx).First(&class, classID).Error; err != nil {
		return nil, err
	}

	return &class, nil
}
