package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"kitchen_backoffice/internal/services"
	"kitchen_backoffice/pkg/utils"

	"github.com/gin-gonic/gin"
)

// parsePagination reads page and page_size, defaulting to 1 and 10. It writes the
// error response itself and returns ok=false on bad input.
func parsePagination(c *gin.Context) (page, pageSize int, ok bool) {
	page, pageSize = 1, 10
	if pageStr := c.Query("page"); pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid page format.", "page must be a positive integer"))
			return 0, 0, false
		}
		page = p
	}
	if pageSizeStr := c.Query("page_size"); pageSizeStr != "" {
		ps, err := strconv.Atoi(pageSizeStr)
		if err != nil || ps <= 0 {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid page_size format.", "page_size must be a positive integer"))
			return 0, 0, false
		}
		pageSize = ps
	}
	return page, pageSize, true
}

// respondServiceError maps the shared service sentinels onto HTTP responses.
func respondServiceError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Input validation failed.", err.Error()))
	case errors.Is(err, services.ErrStockItemNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Stock item not found.", err.Error()))
	case errors.Is(err, services.ErrRecipeNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Recipe not found.", err.Error()))
	case errors.Is(err, services.ErrOrderNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found.", err.Error()))
	default:
		utils.RespondInternalError(c, err, "Failed to "+action+".")
	}
}
