package router

import (
	"database/sql"

	"kitchen_backoffice/internal/handlers"
	"kitchen_backoffice/internal/middleware"
	"kitchen_backoffice/internal/repositories"
	"kitchen_backoffice/internal/services"
	"kitchen_backoffice/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Services bundles the application services the HTTP layer depends on.
type Services struct {
	Auth          services.AuthService
	Inventory     services.InventoryService
	Recipes       services.RecipeService
	Orders        services.OrderService
	Notifications services.NotificationService
	Reports       services.ReportService
}

// NewServices wires repositories and services on top of db.
func NewServices(db *sql.DB, dialect repositories.Dialect, tokens *utils.TokenManager) *Services {
	// Initialize Repositories
	authRepo := repositories.NewAuthRepository(db, dialect)
	itemRepo := repositories.NewStockItemRepository(db, dialect)
	movementRepo := repositories.NewInventoryMovementRepository(db, dialect)
	notificationRepo := repositories.NewNotificationRepository(db, dialect)
	recipeRepo := repositories.NewRecipeRepository(db, dialect)
	orderRepo := repositories.NewOrderRepository(db, dialect)

	// Initialize Services
	cookService := services.NewCookService(services.NewSQLCookStore(db, itemRepo, notificationRepo, movementRepo))

	return &Services{
		Auth:          services.NewAuthService(authRepo, db, tokens),
		Inventory:     services.NewInventoryService(itemRepo, movementRepo, notificationRepo, db),
		Recipes:       services.NewRecipeService(recipeRepo, itemRepo, cookService, db),
		Orders:        services.NewOrderService(orderRepo, recipeRepo, itemRepo, movementRepo, cookService, db),
		Notifications: services.NewNotificationService(notificationRepo),
		Reports:       services.NewReportService(itemRepo),
	}
}

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, svc *Services, tokens *utils.TokenManager) {
	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(svc.Auth)
	stockItemHandler := handlers.NewStockItemHandler(svc.Inventory)
	movementHandler := handlers.NewInventoryMovementHandler(svc.Inventory)
	recipeHandler := handlers.NewRecipeHandler(svc.Recipes)
	orderHandler := handlers.NewOrderHandler(svc.Orders)
	notificationHandler := handlers.NewNotificationHandler(svc.Notifications)
	reportHandler := handlers.NewReportHandler(svc.Reports)

	apiV1 := engine.Group("/api/v1")

	// Login is the only public route.
	apiV1.POST("/auth/login", authHandler.LoginUser)

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware(tokens))
	{
		SetupAuthRoutes(authenticated.Group("/auth"), authHandler)
		SetupStockItemRoutes(authenticated, stockItemHandler)
		SetupRecipeRoutes(authenticated, recipeHandler)
		SetupOrderRoutes(authenticated, orderHandler)
		SetupInventoryMovementRoutes(authenticated, movementHandler)
		SetupNotificationRoutes(authenticated, notificationHandler)
		SetupReportRoutes(authenticated, reportHandler)
	}
}
