package handlers

import (
	"net/http"

	"kitchen_backoffice/internal/models"
	"kitchen_backoffice/internal/services"

	"github.com/gin-gonic/gin"
)

// InventoryMovementHandler serves the movement log.
type InventoryMovementHandler struct {
	inventoryService services.InventoryService
}

// NewInventoryMovementHandler creates a new InventoryMovementHandler.
func NewInventoryMovementHandler(is services.InventoryService) *InventoryMovementHandler {
	return &InventoryMovementHandler{inventoryService: is}
}

// GetInventoryMovements lists movements, newest first, filtered by stock_item_id and movement_type.
func (h *InventoryMovementHandler) GetInventoryMovements(c *gin.Context) {
	page, pageSize, ok := parsePagination(c)
	if !ok {
		return
	}
	filters := models.MovementFilters{Page: page, PageSize: pageSize}
	if itemID := c.Query("stock_item_id"); itemID != "" {
		filters.StockItemID = &itemID
	}
	if movementType := c.Query("movement_type"); movementType != "" {
		filters.MovementType = &movementType
	}

	movements, totalCount, err := h.inventoryService.GetMovements(c.Request.Context(), filters)
	if err != nil {
		respondServiceError(c, err, "retrieve inventory movements")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": movements, "total": totalCount, "page": filters.Page, "page_size": filters.PageSize})
}
