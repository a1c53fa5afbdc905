package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"kitchen_backoffice/internal/models"

	"github.com/google/uuid"
)

// InventoryMovementRepository defines the interface for inventory movement-related database operations.
type InventoryMovementRepository interface {
	CreateMovement(ctx context.Context, executor SQLExecutor, movement *models.InventoryMovement) error
	GetMovements(ctx context.Context, filters models.MovementFilters) ([]models.InventoryMovement, int, error)
	// ListByReference returns the movements of movementType tagged with referenceID, oldest first.
	ListByReference(ctx context.Context, executor SQLExecutor, referenceID, movementType string) ([]models.InventoryMovement, error)
}

type inventoryMovementRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewInventoryMovementRepository creates a new instance of InventoryMovementRepository.
func NewInventoryMovementRepository(db *sql.DB, dialect Dialect) InventoryMovementRepository {
	return &inventoryMovementRepository{db: db, dialect: dialect}
}

func (r *inventoryMovementRepository) CreateMovement(ctx context.Context, executor SQLExecutor, movement *models.InventoryMovement) error {
	query := `INSERT INTO inventory_movements
	          (id, stock_item_id, movement_type, quantity_changed, reason, reference_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if movement.ID == "" {
		movement.ID = uuid.NewString()
	}
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now().UTC()
	}

	_, err := executor.ExecContext(ctx, r.dialect.Rebind(query),
		movement.ID, movement.StockItemID, movement.MovementType, movement.QuantityChanged,
		movement.Reason, movement.ReferenceID, movement.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: creating inventory movement: %v", ErrDatabaseError, err)
	}
	return nil
}

func (r *inventoryMovementRepository) GetMovements(ctx context.Context, filters models.MovementFilters) ([]models.InventoryMovement, int, error) {
	movements := []models.InventoryMovement{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT
	    im.id, im.stock_item_id, im.movement_type, im.quantity_changed,
	    im.reason, im.reference_id, im.created_at,
	    si.name AS item_name, si.unit AS item_unit,
	    COUNT(*) OVER() AS total_count
	  FROM inventory_movements im
	  LEFT JOIN stock_items si ON im.stock_item_id = si.id`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.StockItemID != nil && *filters.StockItemID != "" {
		conditions = append(conditions, fmt.Sprintf("im.stock_item_id = $%d", argCount))
		args = append(args, *filters.StockItemID)
		argCount++
	}
	if filters.MovementType != nil && *filters.MovementType != "" {
		conditions = append(conditions, fmt.Sprintf("im.movement_type = $%d", argCount))
		args = append(args, *filters.MovementType)
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY im.created_at DESC, im.id")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
	args = append(args, filters.PageSize, pageOffset(filters.Page, filters.PageSize))

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(queryBuilder.String()), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: getting inventory movements: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var movement models.InventoryMovement
		var reason, referenceID, itemName, itemUnit sql.NullString

		if err := rows.Scan(
			&movement.ID, &movement.StockItemID, &movement.MovementType, &movement.QuantityChanged,
			&reason, &referenceID, &movement.CreatedAt,
			&itemName, &itemUnit,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning inventory movement: %v", ErrDatabaseError, err)
		}

		if reason.Valid {
			movement.Reason = &reason.String
		}
		if referenceID.Valid {
			movement.ReferenceID = &referenceID.String
		}
		// The item may have been deleted since the movement was recorded.
		if itemName.Valid {
			movement.StockItem = &models.StockItem{ID: movement.StockItemID, Name: itemName.String, Unit: itemUnit.String}
		}

		movements = append(movements, movement)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating inventory movements: %v", ErrDatabaseError, err)
	}

	return movements, totalCount, nil
}

func (r *inventoryMovementRepository) ListByReference(ctx context.Context, executor SQLExecutor, referenceID, movementType string) ([]models.InventoryMovement, error) {
	query := `SELECT id, stock_item_id, movement_type, quantity_changed, reason, reference_id, created_at
	          FROM inventory_movements
	          WHERE reference_id = $1 AND movement_type = $2
	          ORDER BY created_at, id`
	rows, err := executor.QueryContext(ctx, r.dialect.Rebind(query), referenceID, movementType)
	if err != nil {
		return nil, fmt.Errorf("%w: listing movements for reference %s: %v", ErrDatabaseError, referenceID, err)
	}
	defer rows.Close()

	movements := []models.InventoryMovement{}
	for rows.Next() {
		var movement models.InventoryMovement
		var reason, refID sql.NullString
		if err := rows.Scan(&movement.ID, &movement.StockItemID, &movement.MovementType, &movement.QuantityChanged,
			&reason, &refID, &movement.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning inventory movement: %v", ErrDatabaseError, err)
		}
		if reason.Valid {
			movement.Reason = &reason.String
		}
		if refID.Valid {
			movement.ReferenceID = &refID.String
		}
		movements = append(movements, movement)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating inventory movements: %v", ErrDatabaseError, err)
	}
	return movements, nil
}
