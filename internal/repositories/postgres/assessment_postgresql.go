package postgres

import (
	"context"

	"github.com/avalia-edu/diagnostic-service/internal/models"
	"github.com/avalia-edu/diagnostic-service/internal/repositories"
	"gorm.io/gorm"
)

type AssessmentPostgreSQL struct {
	db *gorm.DB
}

func NewAssessmentPostgreSQL(db *gorm.DB) repositories.AssessmentRepository {
	return &AssessmentPostgreSQL{db: db}
}

func (a AssessmentPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Assessment, error) {
	var assessment models.Assessment
	if err := a.db.WithContext(ctx).First(&assessment, id).Error; err != nil {
		return nil, err
	}

	return &assessment, nil
}

func (a AssessmentPostgreSQL) GetByCode(ctx context.Context, code string) (*models.Assessment, error) {
	var assessment models.Assessment
	if err := a.db.WithContext(ctx).
		Where("code = ?", code).
		First(&assessment).Error; err != nil {
		return nil, err
	}

	return &assessment, nil
}

func (a AssessmentPostgreSQL) ListByGrade(ctx context.Context, gradeLevel string) ([]models.Assessment, error) {
	var assessments []models.Assessment
	if err := a.db.WithContext(ctx).
		Where("grade_level = ?", gradeLevel).
		Order("position").
		Find(&assessments).Error; err != nil {
		return nil, err
	}

	return assessments, nil
}
