package postgres

import (
	"context"

	"github.com/avalia-edu/diagnostic-service/internal/models"
	"github.com/avalia-edu/diagnostic-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ResponsePostgreSQL struct {
	db *gorm.DB
}

func NewResponsePostgreSQL(db *gorm.DB) repositories.ResponseRepository {
	return &ResponsePostgreSQL{db: db}
}

func (r ResponsePostgreSQL) GetByStudentAndAssessment(ctx context.Context, studentID, assessmentID uint) ([]models.Response, error) {
	var responses []models.Response
	if err := r.db.WithContext(ctx).
		Where("student_id = ? AND assessment_id = ?", studentID, assessmentID).
		Order("question_number").
		Find(&responses).Error; err != nil {
		return nil, err
	}

	return responses, nil
}

func (r ResponsePostgreSQL) GetByStudent(ctx context.Context, studentID uint) ([]models.Response, error) {
	var responses []models.Response
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("assessment_id, question_number").
		Find(&responses).Error; err != nil {
		return nil, err
	}

	return responses, nil
}

func (r ResponsePostgreSQL) GetByClass(ctx context.Context, classID uint) ([]models.Response, error) {
	var responses []models.Response
	if err := r.db.WithContext(ctx).
		Joins("JOIN students ON students.id = responses.student_id").
		Where("students.class_id = ?", classID).
		Order("responses.student_id, responses.assessment_id, responses.question_number").
		Find(&responses).Error; err != nil {
		return nil, err
	}

	return responses, nil
}

func (r ResponsePostgreSQL) Upsert(ctx context.Context, responses []models.Response) error {
	if len(responses) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "student_id"},
				{Name: "assessment_id"},
				{Name: "question_number"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"status", "error_type", "marked_letter", "updated_at"}),
		}).
		Create(&responses).Error
}

func (r ResponsePostgreSQL) CountByAssessments(ctx context.Context, classID uint, assessmentIDs []uint) (map[uint]int64, error) {
	if len(assessmentIDs) == 0 {
		return map[uint]int64{}, nil
	}

	type row struct {
		AssessmentID uint
		Total        int64
	}

	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&models.Response{}).
		Select("responses.assessment_id, COUNT(*) AS total").
		Joins("JOIN students ON students.id = responses.student_id").
		Where("students.class_id = ? AND responses.assessment_id IN ?", classID, assessmentIDs).
		Group("responses.assessment_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.AssessmentID] = r.Total
	}
	return counts, nil
}
