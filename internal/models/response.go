package models

import (
	"time"

	"gorm.io/gorm"
)

type ResponseStatus string

const (
	StatusCorrect   ResponseStatus = "correct"
	StatusPartial   ResponseStatus = "partial"
	StatusIncorrect ResponseStatus = "incorrect"
	StatusBlank     ResponseStatus = "blank"
	StatusAbsent    ResponseStatus = "absent"
)

// ErrorType is the pedagogical taxonomy recorded alongside incorrect
// answers. It is metadata only and never enters score computation.
type ErrorType string

const (
	ErrorReading     ErrorType = "reading"
	ErrorCalculation ErrorType = "calculation"
	ErrorConcept     ErrorType = "concept"
	ErrorStrategy    ErrorType = "strategy"
	ErrorLeftBlank   ErrorType = "left_blank"
)

// Response is one student's answer to one question of one assessment.
// Questions 1-10 are scored; 11-12 are self-assessment items kept for
// reporting and excluded from all numeric aggregation.
type Response struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	StudentID      uint           `json:"student_id" gorm:"not null;uniqueIndex:idx_response_key;index"`
	AssessmentID   uint           `json:"assessment_id" gorm:"not null;uniqueIndex:idx_response_key;index"`
	QuestionNumber int            `json:"question_number" gorm:"not null;uniqueIndex:idx_response_key" validate:"required,min=1,max=12"`
	Status         ResponseStatus `json:"status" gorm:"not null;size:12" validate:"required,response_status"`

	// ErrorType is meaningful only when Status is incorrect.
	ErrorType *ErrorType `json:"error_type,omitempty" gorm:"size:16" validate:"omitempty,error_type"`

	// MarkedLetter is the raw letter reported by the OMR service, kept
	// for auditing re-grades against a corrected answer key.
	MarkedLetter *string `json:"marked_letter,omitempty" gorm:"size:1"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Student    Student    `json:"-" gorm:"foreignKey:StudentID"`
	Assessment Assessment `json:"-" gorm:"foreignKey:AssessmentID"`
}

func (Response) TableName() string {
	return "responses"
}

// IsAbsent reports whether a response set represents an absent student.
// There is no stored absence flag: "every recorded response is absent"
// is the single source of truth, so a flag can never drift from the
// per-question data.
func IsAbsent(responses []Response) bool {
	if len(responses) == 0 {
		return false
	}
	for _, r := range responses {
		if r.Status != StatusAbsent {
			return false
		}
	}
	return true
}
