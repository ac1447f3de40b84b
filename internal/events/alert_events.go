package events

import (
	"time"

	"github.com/avalia-edu/diagnostic-service/internal/models"
	"github.com/google/uuid"
)

// EventType distinguishes the events this service publishes.
type EventType string

const (
	// EventAlertRaised is published once per alert the rule engine
	// generates for a class.
	EventAlertRaised EventType = "diagnostic.alert_raised"

	// EventResponsesImported is published after a batch of responses
	// lands, so downstream consumers can refresh their views.
	EventResponsesImported EventType = "diagnostic.responses_imported"
)

// AlertEvent is the base envelope for all published events.
type AlertEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// AlertRaisedEvent carries one generated alert together with the class
// it concerns.
type AlertRaisedEvent struct {
	ClassID    uint                 `json:"class_id"`
	GradeLevel string               `json:"grade_level"`
	Alert      models.Alert         `json:"alert"`
	Severity   models.AlertSeverity `json:"severity"`
	RaisedAt   time.Time            `json:"raised_at"`
}

// ResponsesImportedEvent summarizes one ingestion batch.
type ResponsesImportedEvent struct {
	AssessmentID  uint      `json:"assessment_id"`
	ResponseCount int       `json:"response_count"`
	StudentCount  int       `json:"student_count"`
	ImportedAt    time.Time `json:"imported_at"`
	SourceKind    string    `json:"source_kind"` // spreadsheet or omr
}

func NewAlertRaisedEvent(classID uint, gradeLevel string, alert models.Alert) *AlertEvent {
	return &AlertEvent{
		ID:        uuid.NewString(),
		Type:      EventAlertRaised,
		Timestamp: time.Now(),
		Source:    "diagnostic-service",
		Version:   "1.0",
		Data: AlertRaisedEvent{
			ClassID:    classID,
			GradeLevel: gradeLevel,
			Alert:      alert,
			Severity:   alert.Severity,
			RaisedAt:   time.Now(),
		},
	}
}

func NewResponsesImportedEvent(assessmentID uint, responseCount, studentCount int, sourceKind string) *AlertEvent {
	return &AlertEvent{
		ID:        uuid.NewString(),
		Type:      EventResponsesImported,
		Timestamp: time.Now(),
		Source:    "diagnostic-service",
		Version:   "1.0",
		Data: ResponsesImportedEvent{
			AssessmentID:  assessmentID,
			ResponseCount: responseCount,
			StudentCount:  studentCount,
			ImportedAt:    time.Now(),
			SourceKind:    sourceKind,
		},
	}
}
