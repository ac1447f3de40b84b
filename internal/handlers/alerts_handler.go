package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/avalia-edu/diagnostic-service/internal/services"
	"github.com/avalia-edu/diagnostic-service/internal/utils"
)

type AlertsHandler struct {
	BaseHandler
	alertService services.AlertService
}

func NewAlertsHandler(alertService services.AlertService, logger utils.Logger) *AlertsHandler {
	return &AlertsHandler{
		BaseHandler:  NewBaseHandler(logger),
		alertService: alertService,
	}
}

// GetClassAlerts runs the alert rules for a class
// @Summary Get class alerts
// @Tags alerts
// @Produce json
// @Param class_id path uint true "Class ID"
// @Success 200 {array} models.Alert
// @Failure 404 {object} ErrorResponse
// @Router /classes/{class_id}/alerts [get]
func (h *AlertsHandler) GetClassAlerts(c *gin.Context) {
	classID := h.parseIDParam(c, "class_id")
	if classID == 0 {
		return
	}

	h.LogRequest(c, "Getting class alerts", "class_id", classID)

	alerts, err := h.alertService.GetClassAlerts(c.Request.Context(), classID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, alerts)
}

func (h *AlertsHandler) parseIDParam(c *gin.Context, param string) uint {
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

func (h *AlertsHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrClassNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Class not found",
		})
	default:
		h.LogError(c, err, "Alert service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
