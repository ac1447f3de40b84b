package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Assessment is one administered 10-question diagnostic instrument.
// Code follows the pattern D<n>, possibly suffixed (e.g. "D1-7"); the
// leading D<n> token determines the weight of the assessment in the
// final classification. Position orders assessments within a grade
// level and drives trend detection.
type Assessment struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	Code       string `json:"code" gorm:"not null;size:20;index" validate:"required,assessment_code"`
	Title      string `json:"title" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	GradeLevel string `json:"grade_level" gorm:"not null;size:20;index" validate:"required,max=20"`
	Position   int    `json:"position" gorm:"not null" validate:"required,min=1"`

	// AnswerKey maps question numbers to the expected letter, used when
	// grading OMR payloads into responses. map[string]string in JSON,
	// keyed by the question number ("1".."10").
	AnswerKey datatypes.JSON `json:"answer_key" gorm:"type:jsonb"`

	AppliedAt *time.Time `json:"applied_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// WeightToken extracts the leading D<n> token from an assessment code.
// "D1-7" -> "D1". Codes without a suffix are returned unchanged.
func WeightToken(code string) string {
	token, _, _ := strings.Cut(code, "-")
	return strings.TrimSpace(token)
}
