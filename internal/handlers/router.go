package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avalia-edu/diagnostic-service/internal/services"
	"github.com/avalia-edu/diagnostic-service/internal/utils"
	"github.com/avalia-edu/diagnostic-service/internal/validator"
)

type HandlerManager struct {
	resultsHandler *ResultsHandler
	alertsHandler  *AlertsHandler
	importHandler  *ImportHandler
}

func NewHandlerManager(
	diagnosticService services.DiagnosticService,
	alertService services.AlertService,
	importService services.ImportService,
	v *validator.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		resultsHandler: NewResultsHandler(diagnosticService, logger),
		alertsHandler:  NewAlertsHandler(alertService, logger),
		importHandler:  NewImportHandler(importService, v, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "diagnostic-service",
		})
	})

	v1 := router.Group("/api/v1")
	{
		classes := v1.Group("/classes")
		{
			classes.GET("/:class_id/overview", hm.resultsHandler.GetClassOverview)
			classes.GET("/:class_id/heatmap", hm.resultsHandler.GetClassHeatMap)
			classes.GET("/:class_id/classifications", hm.resultsHandler.GetFinalClassifications)
			classes.GET("/:class_id/alerts", hm.alertsHandler.GetClassAlerts)
		}

		students := v1.Group("/students")
		{
			students.GET("/:student_id/assessments/:assessment_id/result", hm.resultsHandler.GetStudentResult)
			students.GET("/:student_id/competencies", hm.resultsHandler.GetStudentCompetencies)
		}

		imports := v1.Group("/imports")
		{
			imports.POST("/responses", hm.importHandler.ImportResponses)
			imports.POST("/omr", hm.importHandler.ImportOMR)
		}
	}
}
