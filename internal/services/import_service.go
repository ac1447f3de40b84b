package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/avalia-edu/diagnostic-service/internal/cache"
	"github.com/avalia-edu/diagnostic-service/internal/events"
	"github.com/avalia-edu/diagnostic-service/internal/models"
	"github.com/avalia-edu/diagnostic-service/internal/repositories"
	"github.com/avalia-edu/diagnostic-service/internal/utils"
)

// ImportService ingests responses from hand-entered sheets (CSV or
// Excel) and from graded OMR payloads. Both paths end in the same
// upsert keyed by (student, assessment, question), so re-imports
// replace earlier rows instead of duplicating them.
type ImportService interface {
	// ImportResponsesFromFile parses a spreadsheet of per-student status
	// rows for one assessment, identified by its code. The format is
	// picked from the filename extension.
	ImportResponsesFromFile(ctx context.Context, file multipart.File, filename, assessmentCode string) (*ImportResult, error)

	ImportResponsesFromCSV(ctx context.Context, reader io.Reader, assessmentCode string) (*ImportResult, error)
	ImportResponsesFromExcel(ctx context.Context, reader io.Reader, assessmentCode string) (*ImportResult, error)

	// ImportOMRResults grades an OMR payload against the referenced
	// assessment's answer key and records the resulting responses.
	ImportOMRResults(ctx context.Context, payload *OMRPayload) (*ImportResult, error)
}

type importService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	cache     cache.CacheService
	logger    utils.Logger
}

func NewImportService(repo repositories.Repository, publisher events.EventPublisher, cacheService cache.CacheService, logger utils.Logger) ImportService {
	return &importService{
		repo:      repo,
		publisher: publisher,
		cache:     cacheService,
		logger:    logger,
	}
}

// ===== DATA STRUCTURES =====

type ImportResult struct {
	AssessmentID  uint       `json:"assessment_id"`
	TotalRows     int        `json:"total_rows"`
	ProcessedRows int        `json:"processed_rows"`
	SuccessCount  int        `json:"success_count"`
	ErrorCount    int        `json:"error_count"`
	ResponseCount int        `json:"response_count"`
	Errors        []RowError `json:"errors,omitempty"`
}

// RowError describes why one row of an import was rejected. Rejected
// rows never block the rest of the batch.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// OMRPayload is the result document the external OMR service posts
// back after scanning a stack of answer sheets.
type OMRPayload struct {
	AssessmentReference string     `json:"assessment_reference" validate:"required,assessment_code"`
	Sheets              []OMRSheet `json:"sheets" validate:"required,min=1,dive"`
}

// OMRSheet is one scanned answer sheet. Answers maps question numbers
// ("1".."12") to the marked letter; an empty string means the bubble
// row was left blank.
type OMRSheet struct {
	StudentReference string            `json:"student_reference" validate:"required"`
	Absent           bool              `json:"absent"`
	Answers          map[string]string `json:"answers"`
}

// ===== SPREADSHEET IMPORT =====

func (s *importService) ImportResponsesFromFile(ctx context.Context, file multipart.File, filename, assessmentCode string) (*ImportResult, error) {
	s.logger.InfoContext(ctx, "Starting response sheet import",
		"filename", filename,
		"assessment_code", assessmentCode)

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return s.ImportResponsesFromCSV(ctx, file, assessmentCode)
	case ".xlsx", ".xls":
		return s.ImportResponsesFromExcel(ctx, file, assessmentCode)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func (s *importService) ImportResponsesFromCSV(ctx context.Context, reader io.Reader, assessmentCode string) (*ImportResult, error) {
	rows, err := readCSVRows(reader)
	if err != nil {
		return nil, err
	}
	return s.importRows(ctx, rows, assessmentCode)
}

func (s *importService) ImportResponsesFromExcel(ctx context.Context, reader io.Reader, assessmentCode string) (*ImportResult, error) {
	rows, err := readExcelRows(reader)
	if err != nil {
		return nil, err
	}
	return s.importRows(ctx, rows, assessmentCode)
}

func (s *importService) importRows(ctx context.Context, rows [][]string, assessmentCode string) (*ImportResult, error) {
	assessment, err := s.getAssessmentByCode(ctx, assessmentCode)
	if err != nil {
		return nil, err
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: need a header row and at least one data row", ErrEmptyImport)
	}

	headerMap := make(map[string]int)
	for i, header := range rows[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}
	if _, ok := headerMap["enrollment_code"]; !ok {
		return nil, NewValidationError("headers", "missing required column: enrollment_code", nil)
	}

	result := &ImportResult{
		AssessmentID: assessment.ID,
		TotalRows:    len(rows) - 1,
	}

	var responses []models.Response
	students := make(map[uint]bool)

	for rowIndex, row := range rows[1:] {
		rowNumber := rowIndex + 2
		rowResponses, rowErrors := s.parseSheetRow(ctx, row, headerMap, rowNumber, assessment.ID)
		result.ProcessedRows++
		if len(rowErrors) > 0 {
			result.Errors = append(result.Errors, rowErrors...)
			result.ErrorCount++
			continue
		}
		result.SuccessCount++
		for _, r := range rowResponses {
			students[r.StudentID] = true
		}
		responses = append(responses, rowResponses...)
	}

	if err := s.saveResponses(ctx, assessment, responses, len(students), "spreadsheet"); err != nil {
		return nil, err
	}
	result.ResponseCount = len(responses)

	s.logger.InfoContext(ctx, "Response sheet import completed",
		"assessment_code", assessmentCode,
		"total_rows", result.TotalRows,
		"success_count", result.SuccessCount,
		"error_count", result.ErrorCount)

	return result, nil
}

// parseSheetRow converts one spreadsheet row into responses. Columns
// q1..q12 hold a status word or its short code; a cell like
// "incorrect:calculation" attaches the error taxonomy. Missing or empty
// question cells simply record no response.
func (s *importService) parseSheetRow(ctx context.Context, row []string, headerMap map[string]int, rowNumber int, assessmentID uint) ([]models.Response, []RowError) {
	code := cellValue(row, headerMap["enrollment_code"])
	if code == "" {
		return nil, []RowError{{Row: rowNumber, Field: "enrollment_code", Message: "enrollment code is empty"}}
	}

	student, err := s.repo.Student().GetByEnrollmentCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, []RowError{{Row: rowNumber, Field: "enrollment_code", Message: fmt.Sprintf("unknown enrollment code %q", code)}}
		}
		return nil, []RowError{{Row: rowNumber, Field: "enrollment_code", Message: err.Error()}}
	}

	var responses []models.Response
	var rowErrors []RowError

	for q := 1; q <= 12; q++ {
		col, ok := headerMap[fmt.Sprintf("q%d", q)]
		if !ok {
			continue
		}
		cell := cellValue(row, col)
		if cell == "" {
			continue
		}

		status, errorType, err := parseStatusCell(cell)
		if err != nil {
			rowErrors = append(rowErrors, RowError{
				Row:     rowNumber,
				Field:   fmt.Sprintf("q%d", q),
				Message: err.Error(),
			})
			continue
		}

		responses = append(responses, models.Response{
			StudentID:      student.ID,
			AssessmentID:   assessmentID,
			QuestionNumber: q,
			Status:         status,
			ErrorType:      errorType,
		})
	}

	if len(rowErrors) > 0 {
		return nil, rowErrors
	}
	return responses, nil
}

// statusShortCodes maps the single-letter codes teachers write on
// tabulation sheets to full statuses.
var statusShortCodes = map[string]models.ResponseStatus{
	"c": models.StatusCorrect,
	"p": models.StatusPartial,
	"i": models.StatusIncorrect,
	"x": models.StatusIncorrect,
	"b": models.StatusBlank,
	"a": models.StatusAbsent,
	"f": models.StatusAbsent,
}

var validErrorTypes = map[models.ErrorType]bool{
	models.ErrorReading:     true,
	models.ErrorCalculation: true,
	models.ErrorConcept:     true,
	models.ErrorStrategy:    true,
	models.ErrorLeftBlank:   true,
}

func parseStatusCell(cell string) (models.ResponseStatus, *models.ErrorType, error) {
	statusPart, errorPart, hasError := strings.Cut(strings.ToLower(strings.TrimSpace(cell)), ":")

	var status models.ResponseStatus
	if short, ok := statusShortCodes[statusPart]; ok {
		status = short
	} else {
		status = models.ResponseStatus(statusPart)
		switch status {
		case models.StatusCorrect, models.StatusPartial, models.StatusIncorrect, models.StatusBlank, models.StatusAbsent:
		default:
			return "", nil, fmt.Errorf("unknown status %q", statusPart)
		}
	}

	if !hasError {
		return status, nil, nil
	}
	if status != models.StatusIncorrect {
		return "", nil, fmt.Errorf("error type only applies to incorrect answers, got status %q", statusPart)
	}
	errorType := models.ErrorType(strings.TrimSpace(errorPart))
	if !validErrorTypes[errorType] {
		return "", nil, fmt.Errorf("unknown error type %q", errorPart)
	}
	return status, &errorType, nil
}

// ===== OMR IMPORT =====

func (s *importService) ImportOMRResults(ctx context.Context, payload *OMRPayload) (*ImportResult, error) {
	s.logger.InfoContext(ctx, "Starting OMR import",
		"assessment_reference", payload.AssessmentReference,
		"sheet_count", len(payload.Sheets))

	assessment, err := s.getAssessmentByCode(ctx, payload.AssessmentReference)
	if err != nil {
		return nil, err
	}

	answerKey, err := decodeAnswerKey(assessment)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		AssessmentID: assessment.ID,
		TotalRows:    len(payload.Sheets),
	}

	var responses []models.Response
	students := make(map[uint]bool)

	for i, sheet := range payload.Sheets {
		result.ProcessedRows++
		student, err := s.repo.Student().GetByEnrollmentCode(ctx, sheet.StudentReference)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result.Errors = append(result.Errors, RowError{
					Row:     i + 1,
					Field:   "student_reference",
					Message: fmt.Sprintf("unknown student reference %q", sheet.StudentReference),
				})
				result.ErrorCount++
				continue
			}
			return nil, fmt.Errorf("failed to resolve student reference: %w", err)
		}

		sheetResponses := gradeSheet(sheet, answerKey, student.ID, assessment.ID)
		students[student.ID] = true
		responses = append(responses, sheetResponses...)
		result.SuccessCount++
	}

	if err := s.saveResponses(ctx, assessment, responses, len(students), "omr"); err != nil {
		return nil, err
	}
	result.ResponseCount = len(responses)

	s.logger.InfoContext(ctx, "OMR import completed",
		"assessment_reference", payload.AssessmentReference,
		"success_count", result.SuccessCount,
		"error_count", result.ErrorCount)

	return result, nil
}

// gradeSheet turns one scanned sheet into responses: a marked letter
// matching the key is correct, a blank bubble row is blank, anything
// else is incorrect. An absent sheet records every keyed question as
// absent so the scorer can derive absence later.
func gradeSheet(sheet OMRSheet, answerKey map[int]string, studentID, assessmentID uint) []models.Response {
	var responses []models.Response
	for question, expected := range answerKey {
		response := models.Response{
			StudentID:      studentID,
			AssessmentID:   assessmentID,
			QuestionNumber: question,
		}

		if sheet.Absent {
			response.Status = models.StatusAbsent
			responses = append(responses, response)
			continue
		}

		marked := strings.ToUpper(strings.TrimSpace(sheet.Answers[strconv.Itoa(question)]))
		switch {
		case marked == "":
			response.Status = models.StatusBlank
		case marked == strings.ToUpper(expected):
			response.Status = models.StatusCorrect
			response.MarkedLetter = &marked
		default:
			response.Status = models.StatusIncorrect
			response.MarkedLetter = &marked
		}
		responses = append(responses, response)
	}
	return responses
}

func decodeAnswerKey(assessment *models.Assessment) (map[int]string, error) {
	if len(assessment.AnswerKey) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAnswerKeyMissing, assessment.Code)
	}

	var raw map[string]string
	if err := json.Unmarshal(assessment.AnswerKey, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode answer key for %s: %w", assessment.Code, err)
	}

	key := make(map[int]string, len(raw))
	for questionStr, letter := range raw {
		question, err := strconv.Atoi(questionStr)
		if err != nil {
			return nil, fmt.Errorf("answer key for %s has non-numeric question %q", assessment.Code, questionStr)
		}
		key[question] = letter
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAnswerKeyMissing, assessment.Code)
	}
	return key, nil
}

// ===== HELPER FUNCTIONS =====

func (s *importService) getAssessmentByCode(ctx context.Context, code string) (*models.Assessment, error) {
	assessment, err := s.repo.Assessment().GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAssessment, code)
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return assessment, nil
}

// saveResponses upserts the batch, invalidates cached class views and
// publishes the import event. Publishing and invalidation are best
// effort once the rows are stored.
func (s *importService) saveResponses(ctx context.Context, assessment *models.Assessment, responses []models.Response, studentCount int, sourceKind string) error {
	if len(responses) == 0 {
		return nil
	}

	if err := s.repo.Response().Upsert(ctx, responses); err != nil {
		return fmt.Errorf("failed to save responses: %w", err)
	}

	InvalidateClassCaches(ctx, s.cache, s.logger)

	event := events.NewResponsesImportedEvent(assessment.ID, len(responses), studentCount, sourceKind)
	if err := s.publisher.PublishAlertEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish import event",
			"assessment_id", assessment.ID,
			"error", err)
	}
	return nil
}

func readCSVRows(reader io.Reader) ([][]string, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return records, nil
}

func readExcelRows(reader io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewValidationError("file", "Excel file has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	return rows, nil
}

func cellValue(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}
