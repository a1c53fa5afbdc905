package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"kitchen_backoffice/internal/costing"
	"kitchen_backoffice/internal/models"
	"kitchen_backoffice/internal/repositories"
	"kitchen_backoffice/internal/units"
	"kitchen_backoffice/pkg/utils"

	"github.com/google/uuid"
)

// --- Data Transfer Objects (DTOs) ---

// CreateOrderLineRequest is one recipe on a new order.
type CreateOrderLineRequest struct {
	RecipeID string  `json:"recipe_id" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required,gt=0"` // Servings
}

// CreateOrderRequest is used for creating a new order.
type CreateOrderRequest struct {
	Notes *string                  `json:"notes"`
	Lines []CreateOrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// --- OrderService Interface ---
type OrderService interface {
	// CreateOrder cooks every line and stores the order with the outcome of each line.
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error)
	GetOrders(ctx context.Context, filters models.OrderFilters) ([]models.Order, int, error)
	GetOrderByID(ctx context.Context, orderID string) (*models.Order, error)
	DeleteOrder(ctx context.Context, orderID string) error
}

// --- orderService Implementation ---
type orderService struct {
	orderRepo    repositories.OrderRepository
	recipeRepo   repositories.RecipeRepository
	itemRepo     repositories.StockItemRepository
	movementRepo repositories.InventoryMovementRepository
	cook         CookService
	db           *sql.DB // For single repo calls
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(
	or repositories.OrderRepository,
	rr repositories.RecipeRepository,
	ir repositories.StockItemRepository,
	mr repositories.InventoryMovementRepository,
	cook CookService,
	db *sql.DB,
) OrderService {
	return &orderService{
		orderRepo:    or,
		recipeRepo:   rr,
		itemRepo:     ir,
		movementRepo: mr,
		cook:         cook,
		db:           db,
	}
}

// --- Method Implementations ---

func (s *orderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error) {
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("%w: an order needs at least one line", ErrValidation)
	}

	// Resolve every recipe before cooking anything.
	recipes := make([]*models.Recipe, len(req.Lines))
	for i, lineReq := range req.Lines {
		if lineReq.Quantity <= 0 || !validFinite(lineReq.Quantity) {
			return nil, fmt.Errorf("%w: quantity for recipe %s must be positive", ErrValidation, lineReq.RecipeID)
		}
		recipe, err := s.recipeRepo.GetByID(ctx, s.db, strings.TrimSpace(lineReq.RecipeID))
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: recipe %s", ErrRecipeNotFound, lineReq.RecipeID)
			}
			return nil, fmt.Errorf("failed to fetch recipe %s: %w", lineReq.RecipeID, err)
		}
		recipes[i] = recipe
	}

	order := &models.Order{
		ID:        uuid.NewString(),
		Notes:     req.Notes,
		CreatedAt: time.Now().UTC(),
	}

	// Each line is cooked on its own: a short line does not block the others.
	cooked := 0
	for i, recipe := range recipes {
		result, err := s.cook.CookRecipeWithReference(ctx, recipe, req.Lines[i].Quantity, order.ID)
		if err != nil {
			utils.LogError(err, "Failed to cook order line", map[string]interface{}{"order_id": order.ID, "recipe_id": recipe.ID})
			return nil, s.abandonOrder(ctx, order.ID, fmt.Errorf("failed to cook %s: %w", recipe.Name, err))
		}
		line := models.OrderLine{
			RecipeID:   recipe.ID,
			RecipeName: recipe.Name,
			Quantity:   req.Lines[i].Quantity,
			Cooked:     result.OK,
			Shortages:  result.Shortages,
		}
		if result.OK {
			cooked++
		}
		order.Lines = append(order.Lines, line)
	}

	switch {
	case cooked == len(order.Lines):
		order.Status = models.OrderStatusCompleted
	case cooked == 0:
		order.Status = models.OrderStatusRejected
	default:
		order.Status = models.OrderStatusPartial
	}

	if err := s.saveOrder(ctx, order); err != nil {
		return nil, s.abandonOrder(ctx, order.ID, fmt.Errorf("failed to save order: %w", err))
	}
	utils.LogInfo("Order processed", map[string]interface{}{"order_id": order.ID, "status": order.Status, "lines": len(order.Lines)})
	return order, nil
}

func (s *orderService) saveOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return err
	}
	return tx.Commit()
}

// abandonOrder puts back the stock already cooked for an order that will not be
// stored, then returns cause. Every cook movement tagged with the order id gets a
// matching adjustment movement with the same reference.
func (s *orderService) abandonOrder(ctx context.Context, orderID string, cause error) error {
	if err := s.restoreStock(context.WithoutCancel(ctx), orderID); err != nil {
		utils.LogError(err, "Failed to restore stock of unsaved order", map[string]interface{}{"order_id": orderID})
		return errors.Join(cause, err)
	}
	return cause
}

func (s *orderService) restoreStock(ctx context.Context, orderID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	cooked, err := s.movementRepo.ListByReference(ctx, tx, orderID, MovementTypeCook)
	if err != nil {
		return fmt.Errorf("failed to load cook movements of order %s: %w", orderID, err)
	}

	reason := fmt.Sprintf("Order %s not saved, stock restored", orderID)
	for _, m := range cooked {
		item, err := s.itemRepo.GetByID(ctx, tx, m.StockItemID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				utils.LogWarn("Stock item of unsaved order no longer exists", map[string]interface{}{"order_id": orderID, "stock_item_id": m.StockItemID})
				continue
			}
			return fmt.Errorf("failed to load stock item %s: %w", m.StockItemID, err)
		}

		newQty := costing.Round3(item.Quantity - m.QuantityChanged)
		newCost := item.PricePerBaseUnit * units.ToBaseQuantity(newQty, item.Unit)
		if err := s.itemRepo.Update(ctx, tx, item.ID, models.StockItemUpdate{Quantity: &newQty, TotalCost: &newCost}); err != nil {
			return fmt.Errorf("failed to restore stock item %s: %w", item.ID, err)
		}
		if err := s.movementRepo.CreateMovement(ctx, tx, &models.InventoryMovement{
			StockItemID:     item.ID,
			MovementType:    MovementTypeAdjustment,
			QuantityChanged: costing.Round3(-m.QuantityChanged),
			Reason:          models.NewNullString(reason),
			ReferenceID:     models.NewNullString(orderID),
		}); err != nil {
			return fmt.Errorf("failed to record restore movement for %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit stock restore: %w", err)
	}
	if len(cooked) > 0 {
		utils.LogWarn("Stock restored for unsaved order", map[string]interface{}{"order_id": orderID, "movements": len(cooked)})
	}
	return nil
}

func (s *orderService) GetOrders(ctx context.Context, filters models.OrderFilters) ([]models.Order, int, error) {
	filters.Page, filters.PageSize = normalizePaging(filters.Page, filters.PageSize)
	orders, totalCount, err := s.orderRepo.GetOrders(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get orders: %w", err)
	}
	return orders, totalCount, nil
}

func (s *orderService) GetOrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order by ID: %w", err)
	}
	return order, nil
}

// DeleteOrder removes the ticket only; stock consumed by its lines stays consumed.
func (s *orderService) DeleteOrder(ctx context.Context, orderID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.orderRepo.DeleteOrder(ctx, tx, orderID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return tx.Commit()
}
