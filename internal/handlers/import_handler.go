package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avalia-edu/diagnostic-service/internal/services"
	"github.com/avalia-edu/diagnostic-service/internal/utils"
	"github.com/avalia-edu/diagnostic-service/internal/validator"
)

type ImportHandler struct {
	BaseHandler
	importService services.ImportService
	validator     *validator.Validator
}

func NewImportHandler(importService services.ImportService, v *validator.Validator, logger utils.Logger) *ImportHandler {
	return &ImportHandler{
		BaseHandler:   NewBaseHandler(logger),
		importService: importService,
		validator:     v,
	}
}

// ImportResponses ingests a response sheet for one assessment
// @Summary Import response sheet
// @Tags imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV or Excel response sheet"
// @Param assessment_code formData string true "Assessment code (e.g. D1)"
// @Success 200 {object} services.ImportResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /imports/responses [post]
func (h *ImportHandler) ImportResponses(c *gin.Context) {
	assessmentCode := c.PostForm("assessment_code")
	if assessmentCode == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "assessment_code is required",
		})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "file is required",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Importing response sheet",
		"assessment_code", assessmentCode,
		"filename", fileHeader.Filename,
		"size", fileHeader.Size)

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "failed to open uploaded file",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	result, err := h.importService.ImportResponsesFromFile(c.Request.Context(), file, fileHeader.Filename, assessmentCode)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ImportOMR grades an OMR payload against the stored answer key
// @Summary Import OMR results
// @Tags imports
// @Accept json
// @Produce json
// @Param payload body services.OMRPayload true "OMR result document"
// @Success 200 {object} services.ImportResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /imports/omr [post]
func (h *ImportHandler) ImportOMR(c *gin.Context) {
	var payload services.OMRPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.validator.Validate(&payload); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Importing OMR results",
		"assessment_reference", payload.AssessmentReference,
		"sheet_count", len(payload.Sheets))

	result, err := h.importService.ImportOMRResults(c.Request.Context(), &payload)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ImportHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var validationError *services.ValidationError
	if errors.As(err, &validationError) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: validationError.Message,
			Details: validationError,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrUnknownAssessment):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Assessment not found",
			Details: err.Error(),
		})
	case errors.Is(err, services.ErrAnswerKeyMissing):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Assessment has no answer key",
			Details: err.Error(),
		})
	case errors.Is(err, services.ErrUnsupportedFormat), errors.Is(err, services.ErrEmptyImport):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid import file",
			Details: err.Error(),
		})
	default:
		h.LogError(c, err, "Import service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
