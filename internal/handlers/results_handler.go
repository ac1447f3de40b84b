package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/avalia-edu/diagnostic-service/internal/services"
	"github.com/avalia-edu/diagnostic-service/internal/utils"
)

// ResultsHandler serves the computed diagnostic views: per-student
// results, competency profiles, class overviews, heat maps and final
// classifications.
type ResultsHandler struct {
	BaseHandler
	diagnosticService services.DiagnosticService
}

func NewResultsHandler(diagnosticService services.DiagnosticService, logger utils.Logger) *ResultsHandler {
	return &ResultsHandler{
		BaseHandler:       NewBaseHandler(logger),
		diagnosticService: diagnosticService,
	}
}

// GetStudentResult returns one scored (student, assessment) pair
// @Summary Get student diagnostic result
// @Tags results
// @Produce json
// @Param student_id path uint true "Student ID"
// @Param assessment_id path uint true "Assessment ID"
// @Success 200 {object} services.StudentResult
// @Failure 404 {object} ErrorResponse
// @Router /students/{student_id}/assessments/{assessment_id}/result [get]
func (h *ResultsHandler) GetStudentResult(c *gin.Context) {
	studentID := h.parseIDParam(c, "student_id")
	if studentID == 0 {
		return
	}
	assessmentID := h.parseIDParam(c, "assessment_id")
	if assessmentID == 0 {
		return
	}

	h.LogRequest(c, "Getting student result", "student_id", studentID, "assessment_id", assessmentID)

	result, err := h.diagnosticService.GetStudentResult(c.Request.Context(), studentID, assessmentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetStudentCompetencies returns a student's term-wide competency profile
// @Summary Get student competency profile
// @Tags results
// @Produce json
// @Param student_id path uint true "Student ID"
// @Success 200 {object} services.CompetencyProfile
// @Failure 404 {object} ErrorResponse
// @Router /students/{student_id}/competencies [get]
func (h *ResultsHandler) GetStudentCompetencies(c *gin.Context) {
	studentID := h.parseIDParam(c, "student_id")
	if studentID == 0 {
		return
	}

	h.LogRequest(c, "Getting student competency profile", "student_id", studentID)

	profile, err := h.diagnosticService.GetStudentCompetencyProfile(c.Request.Context(), studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// GetClassOverview returns the students-by-assessments grid of a class
// @Summary Get class overview
// @Tags results
// @Produce json
// @Param class_id path uint true "Class ID"
// @Success 200 {object} services.ClassOverview
// @Failure 404 {object} ErrorResponse
// @Router /classes/{class_id}/overview [get]
func (h *ResultsHandler) GetClassOverview(c *gin.Context) {
	classID := h.parseIDParam(c, "class_id")
	if classID == 0 {
		return
	}

	h.LogRequest(c, "Getting class overview", "class_id", classID)

	overview, err := h.diagnosticService.GetClassOverview(c.Request.Context(), classID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// GetClassHeatMap returns the bucketized class grid
// @Summary Get class heat map
// @Tags results
// @Produce json
// @Param class_id path uint true "Class ID"
// @Success 200 {object} services.ClassHeatMap
// @Failure 404 {object} ErrorResponse
// @Router /classes/{class_id}/heatmap [get]
func (h *ResultsHandler) GetClassHeatMap(c *gin.Context) {
	classID := h.parseIDParam(c, "class_id")
	if classID == 0 {
		return
	}

	h.LogRequest(c, "Getting class heat map", "class_id", classID)

	heatMap, err := h.diagnosticService.GetClassHeatMap(c.Request.Context(), classID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, heatMap)
}

// GetFinalClassifications returns the weighted final tiers of a class
// @Summary Get final classifications
// @Tags results
// @Produce json
// @Param class_id path uint true "Class ID"
// @Success 200 {array} models.FinalClassification
// @Failure 404 {object} ErrorResponse
// @Router /classes/{class_id}/classifications [get]
func (h *ResultsHandler) GetFinalClassifications(c *gin.Context) {
	classID := h.parseIDParam(c, "class_id")
	if classID == 0 {
		return
	}

	h.LogRequest(c, "Getting final classifications", "class_id", classID)

	finals, err := h.diagnosticService.GetFinalClassifications(c.Request.Context(), classID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, finals)
}

func (h *ResultsHandler) parseIDParam(c *gin.Context, param string) uint {
	idStr := c.Param(param)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: err.Error(),
		})
		return 0
	}
	return uint(id)
}

func (h *ResultsHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrStudentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Student not found",
		})
	case errors.Is(err, services.ErrAssessmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Assessment not found",
		})
	case errors.Is(err, services.ErrClassNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Class not found",
		})
	default:
		h.LogError(c, err, "Diagnostic service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
