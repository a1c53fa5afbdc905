package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"kitchen_backoffice/internal/models"
)

// StockItemRepository defines the interface for stock item database operations.
type StockItemRepository interface {
	Create(ctx context.Context, executor SQLExecutor, item *models.StockItem) error
	GetByID(ctx context.Context, executor SQLExecutor, id string) (*models.StockItem, error)
	// GetMany returns the items that exist among ids. Unknown ids are simply absent.
	GetMany(ctx context.Context, executor SQLExecutor, ids []string) ([]models.StockItem, error)
	List(ctx context.Context, page, pageSize int) ([]models.StockItem, int, error) // Returns items, total count, error
	ListAll(ctx context.Context) ([]models.StockItem, error)
	Update(ctx context.Context, executor SQLExecutor, id string, fields models.StockItemUpdate) error
	Delete(ctx context.Context, executor SQLExecutor, id string) error
}

type stockItemRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewStockItemRepository creates a new instance of StockItemRepository.
func NewStockItemRepository(db *sql.DB, dialect Dialect) StockItemRepository {
	return &stockItemRepository{db: db, dialect: dialect}
}

const stockItemColumns = `id, name, quantity, unit, total_cost, price_per_base_unit, reorder_threshold, created_at, updated_at`

func scanStockItem(row scanner, extra ...interface{}) (models.StockItem, error) {
	var item models.StockItem
	var threshold sql.NullFloat64
	dest := []interface{}{
		&item.ID, &item.Name, &item.Quantity, &item.Unit, &item.TotalCost,
		&item.PricePerBaseUnit, &threshold, &item.CreatedAt, &item.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return item, err
	}
	if threshold.Valid {
		val := threshold.Float64
		item.ReorderThreshold = &val
	}
	return item, nil
}

func (r *stockItemRepository) Create(ctx context.Context, executor SQLExecutor, item *models.StockItem) error {
	query := `INSERT INTO stock_items (` + stockItemColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	currentTime := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = currentTime
	}
	item.UpdatedAt = currentTime

	_, err := executor.ExecContext(ctx, r.dialect.Rebind(query),
		item.ID, item.Name, item.Quantity, item.Unit, item.TotalCost,
		item.PricePerBaseUnit, item.ReorderThreshold, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: stock item '%s': %v", ErrDuplicateKey, item.ID, err)
		}
		return fmt.Errorf("%w: creating stock item: %v", ErrDatabaseError, err)
	}
	return nil
}

func (r *stockItemRepository) GetByID(ctx context.Context, executor SQLExecutor, id string) (*models.StockItem, error) {
	if executor == nil {
		executor = r.db
	}
	query := `SELECT ` + stockItemColumns + ` FROM stock_items WHERE id = $1`
	item, err := scanStockItem(executor.QueryRowContext(ctx, r.dialect.Rebind(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting stock item by ID %s: %v", ErrDatabaseError, id, err)
	}
	return &item, nil
}

func (r *stockItemRepository) GetMany(ctx context.Context, executor SQLExecutor, ids []string) ([]models.StockItem, error) {
	items := []models.StockItem{}
	if len(ids) == 0 {
		return items, nil
	}
	if executor == nil {
		executor = r.db
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := `SELECT ` + stockItemColumns + ` FROM stock_items WHERE id IN (` + strings.Join(placeholders, ", ") + `)`

	rows, err := executor.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: getting stock items by IDs: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanStockItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning stock item: %v", ErrDatabaseError, err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating stock items: %v", ErrDatabaseError, err)
	}
	return items, nil
}

func (r *stockItemRepository) List(ctx context.Context, page, pageSize int) ([]models.StockItem, int, error) {
	items := []models.StockItem{}
	totalCount := 0
	query := `SELECT ` + stockItemColumns + `, COUNT(*) OVER() AS total_count
	          FROM stock_items
	          ORDER BY name
	          LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), pageSize, pageOffset(page, pageSize))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: listing stock items: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanStockItem(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning stock item: %v", ErrDatabaseError, err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating stock items: %v", ErrDatabaseError, err)
	}
	return items, totalCount, nil
}

func (r *stockItemRepository) ListAll(ctx context.Context) ([]models.StockItem, error) {
	items := []models.StockItem{}
	rows, err := r.db.QueryContext(ctx, `SELECT `+stockItemColumns+` FROM stock_items ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing all stock items: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanStockItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning stock item: %v", ErrDatabaseError, err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating stock items: %v", ErrDatabaseError, err)
	}
	return items, nil
}

// Update writes the non-nil fields of the update. updated_at is always refreshed.
func (r *stockItemRepository) Update(ctx context.Context, executor SQLExecutor, id string, fields models.StockItemUpdate) error {
	var sets []string
	var args []interface{}
	argCount := 1

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argCount))
		args = append(args, value)
		argCount++
	}
	if fields.Name != nil {
		add("name", *fields.Name)
	}
	if fields.Quantity != nil {
		add("quantity", *fields.Quantity)
	}
	if fields.Unit != nil {
		add("unit", *fields.Unit)
	}
	if fields.TotalCost != nil {
		add("total_cost", *fields.TotalCost)
	}
	if fields.PricePerBaseUnit != nil {
		add("price_per_base_unit", *fields.PricePerBaseUnit)
	}
	if fields.ClearThreshold {
		add("reorder_threshold", nil)
	} else if fields.ReorderThreshold != nil {
		add("reorder_threshold", *fields.ReorderThreshold)
	}
	add("updated_at", time.Now().UTC())

	query := fmt.Sprintf("UPDATE stock_items SET %s WHERE id = $%d", strings.Join(sets, ", "), argCount)
	args = append(args, id)

	result, err := executor.ExecContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("%w: updating stock item ID %s: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the item. Recipes keep their weak references, which then resolve as missing.
func (r *stockItemRepository) Delete(ctx context.Context, executor SQLExecutor, id string) error {
	result, err := executor.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM stock_items WHERE id = $1`), id)
	if err != nil {
		return fmt.Errorf("%w: deleting stock item ID %s: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
