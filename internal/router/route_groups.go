package router

import (
	"kitchen_backoffice/internal/handlers"
	"kitchen_backoffice/internal/middleware"
	"kitchen_backoffice/internal/models"

	"github.com/gin-gonic/gin"
)

var (
	anyRole   = middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleStaff)
	adminOnly = middleware.RoleAuthMiddleware(models.RoleAdmin)
)

// SetupAuthRoutes sets up the authenticated authentication routes.
func SetupAuthRoutes(authRoutes *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	authRoutes.GET("/me", authHandler.GetCurrentUser)
	authRoutes.POST("/register", adminOnly, authHandler.RegisterUser)
}

// SetupStockItemRoutes sets up the stock item routes.
func SetupStockItemRoutes(authenticatedGroup *gin.RouterGroup, h *handlers.StockItemHandler) {
	stockItemRoutes := authenticatedGroup.Group("/stock-items")
	stockItemRoutes.Use(anyRole)
	{
		stockItemRoutes.POST("", h.CreateStockItem)
		stockItemRoutes.GET("", h.GetStockItems)
		stockItemRoutes.GET("/:id", h.GetStockItemByID)
		stockItemRoutes.PUT("/:id", h.UpdateStockItem)
		stockItemRoutes.POST("/:id/adjust", h.AdjustStock)
		stockItemRoutes.DELETE("/:id", adminOnly, h.DeleteStockItem)
	}
}

// SetupRecipeRoutes sets up the recipe routes.
func SetupRecipeRoutes(authenticatedGroup *gin.RouterGroup, h *handlers.RecipeHandler) {
	recipeRoutes := authenticatedGroup.Group("/recipes")
	recipeRoutes.Use(anyRole)
	{
		recipeRoutes.POST("", h.CreateRecipe)
		recipeRoutes.GET("", h.GetRecipes)
		recipeRoutes.GET("/:id", h.GetRecipeByID)
		recipeRoutes.PUT("/:id", h.UpdateRecipe)
		recipeRoutes.DELETE("/:id", adminOnly, h.DeleteRecipe)
		recipeRoutes.GET("/:id/cost", h.GetRecipeCost)
		recipeRoutes.POST("/:id/cook", h.CookRecipe)
	}
}

// SetupOrderRoutes sets up the order routes.
func SetupOrderRoutes(authenticatedGroup *gin.RouterGroup, orderHandler *handlers.OrderHandler) {
	orderRoutes := authenticatedGroup.Group("/orders")
	orderRoutes.Use(anyRole)
	{
		orderRoutes.POST("", orderHandler.CreateOrder)
		orderRoutes.GET("", orderHandler.GetOrders)
		orderRoutes.GET("/:id", orderHandler.GetOrderByID)
		orderRoutes.DELETE("/:id", adminOnly, orderHandler.DeleteOrder)
	}
}

// SetupInventoryMovementRoutes sets up the movement log routes.
func SetupInventoryMovementRoutes(authenticatedGroup *gin.RouterGroup, h *handlers.InventoryMovementHandler) {
	authenticatedGroup.GET("/inventory-movements", anyRole, h.GetInventoryMovements)
}

// SetupNotificationRoutes sets up the notification log routes.
func SetupNotificationRoutes(authenticatedGroup *gin.RouterGroup, h *handlers.NotificationHandler) {
	authenticatedGroup.GET("/notifications", anyRole, h.GetNotifications)
}

// SetupReportRoutes sets up the report routes.
func SetupReportRoutes(authenticatedGroup *gin.RouterGroup, h *handlers.ReportHandler) {
	reportRoutes := authenticatedGroup.Group("/reports")
	reportRoutes.Use(adminOnly)
	{
		reportRoutes.GET("/inventory", h.GetInventoryReport)
	}
}
