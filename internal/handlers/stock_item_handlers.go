package handlers

import (
	"net/http"

	"kitchen_backoffice/internal/services"
	"kitchen_backoffice/pkg/utils"

	"github.com/gin-gonic/gin"
)

// StockItemHandler serves the inventory of stock items.
type StockItemHandler struct {
	inventoryService services.InventoryService
}

// NewStockItemHandler creates a new StockItemHandler.
func NewStockItemHandler(is services.InventoryService) *StockItemHandler {
	return &StockItemHandler{inventoryService: is}
}

// CreateStockItem adds a stock item to the inventory.
func (h *StockItemHandler) CreateStockItem(c *gin.Context) {
	var req services.CreateStockItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "CreateStockItem: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	item, err := h.inventoryService.CreateStockItem(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "create stock item")
		return
	}
	c.JSON(http.StatusCreated, item)
}

// GetStockItems lists stock items page by page.
func (h *StockItemHandler) GetStockItems(c *gin.Context) {
	page, pageSize, ok := parsePagination(c)
	if !ok {
		return
	}

	items, totalCount, err := h.inventoryService.GetStockItems(c.Request.Context(), page, pageSize)
	if err != nil {
		respondServiceError(c, err, "retrieve stock items")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "total": totalCount, "page": page, "page_size": pageSize})
}

// GetStockItemByID returns a single stock item.
func (h *StockItemHandler) GetStockItemByID(c *gin.Context) {
	item, err := h.inventoryService.GetStockItemByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "retrieve stock item")
		return
	}
	c.JSON(http.StatusOK, item)
}

// UpdateStockItem edits a stock item; the price per base unit is recomputed.
func (h *StockItemHandler) UpdateStockItem(c *gin.Context) {
	var req services.UpdateStockItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "UpdateStockItem: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	item, err := h.inventoryService.UpdateStockItem(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err, "update stock item")
		return
	}
	c.JSON(http.StatusOK, item)
}

// AdjustStock applies a signed manual adjustment or a restock.
func (h *StockItemHandler) AdjustStock(c *gin.Context) {
	var req services.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "AdjustStock: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	item, err := h.inventoryService.AdjustStock(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err, "adjust stock")
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteStockItem removes a stock item.
func (h *StockItemHandler) DeleteStockItem(c *gin.Context) {
	if err := h.inventoryService.DeleteStockItem(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, err, "delete stock item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stock item deleted successfully"})
}
