package handlers

import (
	"net/http"
	"time"

	"kitchen_backoffice/internal/models"
	"kitchen_backoffice/internal/services"
	"kitchen_backoffice/pkg/utils"

	"github.com/gin-gonic/gin"
)

// OrderHandler holds the order service.
type OrderHandler struct {
	orderService services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(os services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: os}
}

// CreateOrder cooks each line of a new order. Lines short on stock are stored
// uncooked with their shortages; the order status tells the caller the outcome.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "CreateOrder: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	createdOrder, err := h.orderService.CreateOrder(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "create order")
		return
	}
	c.JSON(http.StatusCreated, createdOrder)
}

// GetOrders handles fetching all orders with filters
func (h *OrderHandler) GetOrders(c *gin.Context) {
	page, pageSize, ok := parsePagination(c)
	if !ok {
		return
	}
	filters := models.OrderFilters{Page: page, PageSize: pageSize}

	if status := c.Query("status"); status != "" {
		switch status {
		case models.OrderStatusCompleted, models.OrderStatusPartial, models.OrderStatusRejected:
			filters.Status = &status
		default:
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid order status provided.", "status must be completed, partial or rejected"))
			return
		}
	}
	if date := c.Query("date"); date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid date format. Use YYYY-MM-DD.", err.Error()))
			return
		}
		filters.Date = &date
	}

	orders, totalCount, err := h.orderService.GetOrders(c.Request.Context(), filters)
	if err != nil {
		respondServiceError(c, err, "retrieve orders")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": orders, "total": totalCount, "page": page, "page_size": pageSize})
}

// GetOrderByID handles fetching a single order by its ID
func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	order, err := h.orderService.GetOrderByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "retrieve order")
		return
	}
	c.JSON(http.StatusOK, order)
}

// DeleteOrder removes an order ticket. Stock it consumed is not restored.
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	if err := h.orderService.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, err, "delete order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order deleted successfully"})
}
