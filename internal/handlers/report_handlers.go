package handlers

import (
	"net/http"
	"strconv"

	"kitchen_backoffice/internal/services"
	"kitchen_backoffice/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ReportHandler serves inventory reports.
type ReportHandler struct {
	reportService services.ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(rs services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: rs}
}

// GetInventoryReport values stock on hand. ?low_stock=true keeps only items at or
// below their reorder threshold.
func (h *ReportHandler) GetInventoryReport(c *gin.Context) {
	lowStockOnly := false
	if v := c.Query("low_stock"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid low_stock value.", err.Error()))
			return
		}
		lowStockOnly = parsed
	}

	report, err := h.reportService.GetInventoryReport(c.Request.Context(), lowStockOnly)
	if err != nil {
		respondServiceError(c, err, "generate inventory report")
		return
	}
	c.JSON(http.StatusOK, report)
}
