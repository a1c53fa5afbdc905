package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"kitchen_backoffice/internal/costing"
	"kitchen_backoffice/internal/models"
	"kitchen_backoffice/internal/repositories"
	"kitchen_backoffice/internal/units"
	"kitchen_backoffice/pkg/utils"

	"github.com/google/uuid"
)

const (
	MovementTypeAdjustment = "adjustment"
	MovementTypeRestock    = "restock"
)

// --- Stock item DTOs ---
type CreateStockItemRequest struct {
	Name             string   `json:"name" binding:"required"`
	Quantity         float64  `json:"quantity" binding:"gte=0"`
	Unit             string   `json:"unit" binding:"required"`
	TotalCost        float64  `json:"total_cost" binding:"gte=0"` // Cost of the whole batch
	ReorderThreshold *float64 `json:"reorder_threshold"`          // Base units
}

type UpdateStockItemRequest struct {
	Name             *string  `json:"name"`
	Quantity         *float64 `json:"quantity"`
	Unit             *string  `json:"unit"`
	TotalCost        *float64 `json:"total_cost"`
	ReorderThreshold *float64 `json:"reorder_threshold"`
	ClearThreshold   bool     `json:"clear_threshold"`
}

// AdjustStockRequest changes the quantity on hand by a signed amount in the item's unit.
// A restock may carry the cost of the delivered quantity.
type AdjustStockRequest struct {
	QuantityChange float64  `json:"quantity_change" binding:"required"`
	MovementType   string   `json:"movement_type"` // adjustment (default) or restock
	Reason         string   `json:"reason"`
	Cost           *float64 `json:"cost"`
}

// InventoryService manages stock items outside of cooking.
type InventoryService interface {
	CreateStockItem(ctx context.Context, req CreateStockItemRequest) (*models.StockItem, error)
	GetStockItemByID(ctx context.Context, id string) (*models.StockItem, error)
	GetStockItems(ctx context.Context, page, pageSize int) ([]models.StockItem, int, error)
	UpdateStockItem(ctx context.Context, id string, req UpdateStockItemRequest) (*models.StockItem, error)
	AdjustStock(ctx context.Context, id string, req AdjustStockRequest) (*models.StockItem, error)
	DeleteStockItem(ctx context.Context, id string) error
	GetMovements(ctx context.Context, filters models.MovementFilters) ([]models.InventoryMovement, int, error)
}

type inventoryService struct {
	itemRepo         repositories.StockItemRepository
	movementRepo     repositories.InventoryMovementRepository
	notificationRepo repositories.NotificationRepository
	db               *sql.DB
}

// NewInventoryService creates a new instance of InventoryService.
func NewInventoryService(
	ir repositories.StockItemRepository,
	mr repositories.InventoryMovementRepository,
	nr repositories.NotificationRepository,
	db *sql.DB,
) InventoryService {
	return &inventoryService{itemRepo: ir, movementRepo: mr, notificationRepo: nr, db: db}
}

func validFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s *inventoryService) validateUnit(unit string) (string, error) {
	normalized := units.Normalize(unit)
	if normalized == "" {
		return "", fmt.Errorf("%w: unit cannot be empty", ErrValidation)
	}
	if !units.Known(normalized) {
		utils.LogWarn("Stock item uses an unrecognized unit", map[string]interface{}{"unit": unit})
	}
	return normalized, nil
}

func (s *inventoryService) CreateStockItem(ctx context.Context, req CreateStockItemRequest) (*models.StockItem, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: stock item name cannot be empty", ErrValidation)
	}
	if !validFinite(req.Quantity, req.TotalCost) || req.Quantity < 0 || req.TotalCost < 0 {
		return nil, fmt.Errorf("%w: quantity and total cost must be non-negative numbers", ErrValidation)
	}
	if req.ReorderThreshold != nil && (*req.ReorderThreshold < 0 || !validFinite(*req.ReorderThreshold)) {
		return nil, fmt.Errorf("%w: reorder threshold must be non-negative", ErrValidation)
	}
	unit, err := s.validateUnit(req.Unit)
	if err != nil {
		return nil, err
	}

	item := &models.StockItem{
		ID:               uuid.NewString(),
		Name:             strings.TrimSpace(req.Name),
		Quantity:         costing.Round3(req.Quantity),
		Unit:             unit,
		TotalCost:        req.TotalCost,
		ReorderThreshold: req.ReorderThreshold,
	}
	item.PricePerBaseUnit = costing.PricePerBaseUnit(item.TotalCost, item.Quantity, item.Unit)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.itemRepo.Create(ctx, tx, item); err != nil {
		return nil, fmt.Errorf("failed to create stock item: %w", err)
	}
	if item.Quantity > 0 {
		movement := &models.InventoryMovement{
			StockItemID:     item.ID,
			MovementType:    MovementTypeRestock,
			QuantityChanged: item.Quantity,
			Reason:          models.NewNullString("Initial stock"),
		}
		if err := s.movementRepo.CreateMovement(ctx, tx, movement); err != nil {
			return nil, fmt.Errorf("failed to record initial stock movement: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	utils.LogInfo("Stock item created", map[string]interface{}{"stock_item_id": item.ID, "name": item.Name})
	return item, nil
}

func (s *inventoryService) GetStockItemByID(ctx context.Context, id string) (*models.StockItem, error) {
	item, err := s.itemRepo.GetByID(ctx, s.db, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrStockItemNotFound
		}
		return nil, fmt.Errorf("failed to get stock item by ID: %w", err)
	}
	return item, nil
}

func (s *inventoryService) GetStockItems(ctx context.Context, page, pageSize int) ([]models.StockItem, int, error) {
	page, pageSize = normalizePaging(page, pageSize)
	items, totalCount, err := s.itemRepo.List(ctx, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get stock items: %w", err)
	}
	return items, totalCount, nil
}

// UpdateStockItem edits an item. Price per base unit is recomputed whenever
// quantity, unit or total cost change; a quantity change is logged as an adjustment.
func (s *inventoryService) UpdateStockItem(ctx context.Context, id string, req UpdateStockItemRequest) (*models.StockItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := s.itemRepo.GetByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrStockItemNotFound
		}
		return nil, fmt.Errorf("failed to find stock item for update: %w", err)
	}

	fields := models.StockItemUpdate{ClearThreshold: req.ClearThreshold}
	previousQty := item.Quantity
	recompute := false

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, fmt.Errorf("%w: stock item name cannot be empty", ErrValidation)
		}
		name := strings.TrimSpace(*req.Name)
		item.Name = name
		fields.Name = &name
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 || !validFinite(*req.Quantity) {
			return nil, fmt.Errorf("%w: quantity must be non-negative", ErrValidation)
		}
		item.Quantity = costing.Round3(*req.Quantity)
		fields.Quantity = &item.Quantity
		recompute = true
	}
	if req.Unit != nil {
		unit, err := s.validateUnit(*req.Unit)
		if err != nil {
			return nil, err
		}
		item.Unit = unit
		fields.Unit = &item.Unit
		recompute = true
	}
	if req.TotalCost != nil {
		if *req.TotalCost < 0 || !validFinite(*req.TotalCost) {
			return nil, fmt.Errorf("%w: total cost must be non-negative", ErrValidation)
		}
		item.TotalCost = *req.TotalCost
		fields.TotalCost = &item.TotalCost
		recompute = true
	}
	if req.ClearThreshold {
		item.ReorderThreshold = nil
	} else if req.ReorderThreshold != nil {
		if *req.ReorderThreshold < 0 || !validFinite(*req.ReorderThreshold) {
			return nil, fmt.Errorf("%w: reorder threshold must be non-negative", ErrValidation)
		}
		item.ReorderThreshold = req.ReorderThreshold
		fields.ReorderThreshold = req.ReorderThreshold
	}
	if recompute {
		item.PricePerBaseUnit = costing.PricePerBaseUnit(item.TotalCost, item.Quantity, item.Unit)
		fields.PricePerBaseUnit = &item.PricePerBaseUnit
	}

	if err := s.itemRepo.Update(ctx, tx, id, fields); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrStockItemNotFound
		}
		return nil, fmt.Errorf("failed to update stock item: %w", err)
	}

	if delta := costing.Round3(item.Quantity - previousQty); delta != 0 {
		movement := &models.InventoryMovement{
			StockItemID:     id,
			MovementType:    MovementTypeAdjustment,
			QuantityChanged: delta,
			Reason:          models.NewNullString("Manual edit"),
		}
		if err := s.movementRepo.CreateMovement(ctx, tx, movement); err != nil {
			return nil, fmt.Errorf("failed to record adjustment movement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.GetStockItemByID(ctx, id)
}

// AdjustStock applies a signed quantity change. Adjustments keep the price per
// base unit; a restock with a cost adds that cost to the batch and re-derives it.
func (s *inventoryService) AdjustStock(ctx context.Context, id string, req AdjustStockRequest) (*models.StockItem, error) {
	movementType := req.MovementType
	if movementType == "" {
		movementType = MovementTypeAdjustment
	}
	if movementType != MovementTypeAdjustment && movementType != MovementTypeRestock {
		return nil, fmt.Errorf("%w: movement type must be '%s' or '%s'", ErrValidation, MovementTypeAdjustment, MovementTypeRestock)
	}
	if req.QuantityChange == 0 || !validFinite(req.QuantityChange) {
		return nil, fmt.Errorf("%w: quantity change must be a non-zero number", ErrValidation)
	}
	if movementType == MovementTypeRestock && req.QuantityChange < 0 {
		return nil, fmt.Errorf("%w: a restock must add stock", ErrValidation)
	}
	if req.Cost != nil && (*req.Cost < 0 || !validFinite(*req.Cost)) {
		return nil, fmt.Errorf("%w: cost must be non-negative", ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := s.itemRepo.GetByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrStockItemNotFound
		}
		return nil, fmt.Errorf("failed to find stock item for adjustment: %w", err)
	}

	newQty := costing.Round3(item.Quantity + req.QuantityChange)
	if newQty < 0 {
		return nil, fmt.Errorf("%w: adjustment would leave %s at %v %s", ErrValidation, item.Name, newQty, item.Unit)
	}

	fields := models.StockItemUpdate{Quantity: &newQty}
	if movementType == MovementTypeRestock && req.Cost != nil {
		total := item.TotalCost + *req.Cost
		ppu := costing.PricePerBaseUnit(total, newQty, item.Unit)
		fields.TotalCost, fields.PricePerBaseUnit = &total, &ppu
	} else {
		total := item.PricePerBaseUnit * units.ToBaseQuantity(newQty, item.Unit)
		fields.TotalCost = &total
	}

	if err := s.itemRepo.Update(ctx, tx, id, fields); err != nil {
		return nil, fmt.Errorf("failed to adjust stock item: %w", err)
	}

	reason := req.Reason
	if reason == "" {
		reason = "Manual " + movementType
	}
	movement := &models.InventoryMovement{
		StockItemID:     id,
		MovementType:    movementType,
		QuantityChanged: costing.Round3(newQty - item.Quantity),
		Reason:          models.NewNullString(reason),
	}
	if err := s.movementRepo.CreateMovement(ctx, tx, movement); err != nil {
		return nil, fmt.Errorf("failed to record %s movement: %w", movementType, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if req.QuantityChange < 0 && item.ReorderThreshold != nil &&
		costing.Round3(units.ToBaseQuantity(newQty, item.Unit)) <= *item.ReorderThreshold {
		entry := &models.Notification{
			Tone:     models.ToneError,
			Message:  lowStockMessage(*item, newQty),
			LoggedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if err := s.notificationRepo.Append(ctx, s.db, entry); err != nil {
			utils.LogError(err, "Failed to write low stock notification", map[string]interface{}{"stock_item_id": id})
		}
	}
	return s.GetStockItemByID(ctx, id)
}

func (s *inventoryService) DeleteStockItem(ctx context.Context, id string) error {
	if err := s.itemRepo.Delete(ctx, s.db, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrStockItemNotFound
		}
		return fmt.Errorf("failed to delete stock item: %w", err)
	}
	return nil
}

func (s *inventoryService) GetMovements(ctx context.Context, filters models.MovementFilters) ([]models.InventoryMovement, int, error) {
	filters.Page, filters.PageSize = normalizePaging(filters.Page, filters.PageSize)
	movements, totalCount, err := s.movementRepo.GetMovements(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get inventory movements: %w", err)
	}
	return movements, totalCount, nil
}
