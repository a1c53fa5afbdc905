package handlers

import (
	"net/http"

	"kitchen_backoffice/internal/services"

	"github.com/gin-gonic/gin"
)

// NotificationHandler serves the audit notification log.
type NotificationHandler struct {
	notificationService services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(ns services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: ns}
}

// GetNotifications lists notifications, newest first. ?tone=info|error filters.
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	page, pageSize, ok := parsePagination(c)
	if !ok {
		return
	}
	var tone *string
	if t := c.Query("tone"); t != "" {
		tone = &t
	}

	entries, totalCount, err := h.notificationService.GetNotifications(c.Request.Context(), tone, page, pageSize)
	if err != nil {
		respondServiceError(c, err, "retrieve notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries, "total": totalCount, "page": page, "page_size": pageSize})
}
