package models

import (
	"time"

	"gorm.io/gorm"
)

// SchoolClass groups the students that sit the same diagnostic sequence.
type SchoolClass struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	Name       string `json:"name" gorm:"not null;size:100" validate:"required,min=1,max=100"`
	GradeLevel string `json:"grade_level" gorm:"not null;size:20;index" validate:"required,max=20"`
	SchoolYear int    `json:"school_year" gorm:"not null;index" validate:"required,min=2000,max=2100"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Students []Student `json:"students,omitempty" gorm:"foreignKey:ClassID"`
}

type Student struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	Name    string `json:"name" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	ClassID uint   `json:"class_id" gorm:"not null;index"`

	// EnrollmentCode is the identifier printed on answer sheets; the OMR
	// service reports it back as student_reference.
	EnrollmentCode string `json:"enrollment_code" gorm:"size:40;uniqueIndex"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Class SchoolClass `json:"class,omitempty" gorm:"foreignKey:ClassID"`
}

func (SchoolClass) TableName() string {
	return "school_classes"
}

func (Student) TableName() string {
	return "students"
}
