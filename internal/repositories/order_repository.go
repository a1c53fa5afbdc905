package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"kitchen_backoffice/internal/models"

	"github.com/google/uuid"
)

// OrderRepository defines the interface for order-related database operations.
type OrderRepository interface {
	// CreateOrder inserts the order and its lines.
	CreateOrder(ctx context.Context, executor SQLExecutor, order *models.Order) error
	GetOrderByID(ctx context.Context, orderID string) (*models.Order, error)
	GetOrders(ctx context.Context, filters models.OrderFilters) ([]models.Order, int, error) // orders, total count, error
	DeleteOrder(ctx context.Context, executor SQLExecutor, orderID string) error
}

type orderRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewOrderRepository creates a new instance of OrderRepository.
func NewOrderRepository(db *sql.DB, dialect Dialect) OrderRepository {
	return &orderRepository{db: db, dialect: dialect}
}

func (r *orderRepository) CreateOrder(ctx context.Context, executor SQLExecutor, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO orders (id, status, notes, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := executor.ExecContext(ctx, r.dialect.Rebind(query), order.ID, order.Status, order.Notes, order.CreatedAt); err != nil {
		return fmt.Errorf("%w: creating order: %v", ErrDatabaseError, err)
	}

	lineQuery := r.dialect.Rebind(`INSERT INTO order_lines (id, order_id, recipe_id, recipe_name, quantity, cooked, shortages, position)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	for i := range order.Lines {
		line := &order.Lines[i]
		line.ID = uuid.NewString()
		line.OrderID = order.ID
		shortages := line.Shortages
		if shortages == nil {
			shortages = []models.ShortageEntry{}
		}
		encoded, err := json.Marshal(shortages)
		if err != nil {
			return fmt.Errorf("encoding shortages of order line for recipe %s: %w", line.RecipeID, err)
		}
		if _, err := executor.ExecContext(ctx, lineQuery, line.ID, line.OrderID, line.RecipeID, line.RecipeName, line.Quantity, line.Cooked, string(encoded), i); err != nil {
			return fmt.Errorf("%w: creating order line for recipe %s: %v", ErrDatabaseError, line.RecipeID, err)
		}
	}
	return nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	order := &models.Order{}
	var notes sql.NullString
	query := `SELECT id, status, notes, created_at FROM orders WHERE id = $1`
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), orderID).Scan(&order.ID, &order.Status, &notes, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting order by ID %s: %v", ErrDatabaseError, orderID, err)
	}
	if notes.Valid {
		order.Notes = &notes.String
	}

	lines, err := r.getLines(ctx, []string{orderID})
	if err != nil {
		return nil, err
	}
	order.Lines = lines[orderID]
	return order, nil
}

func (r *orderRepository) getLines(ctx context.Context, orderIDs []string) (map[string][]models.OrderLine, error) {
	result := make(map[string][]models.OrderLine, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}
	placeholders := make([]string, len(orderIDs))
	args := make([]interface{}, len(orderIDs))
	for i, id := range orderIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := `SELECT id, order_id, recipe_id, recipe_name, quantity, cooked, shortages
	          FROM order_lines
	          WHERE order_id IN (` + strings.Join(placeholders, ", ") + `)
	          ORDER BY order_id, position`

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying order lines: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var line models.OrderLine
		var shortages string
		if err := rows.Scan(&line.ID, &line.OrderID, &line.RecipeID, &line.RecipeName, &line.Quantity, &line.Cooked, &shortages); err != nil {
			return nil, fmt.Errorf("%w: scanning order line: %v", ErrDatabaseError, err)
		}
		if err := json.Unmarshal([]byte(shortages), &line.Shortages); err != nil {
			return nil, fmt.Errorf("%w: decoding shortages of order line %s: %v", ErrDatabaseError, line.ID, err)
		}
		if len(line.Shortages) == 0 {
			line.Shortages = nil
		}
		result[line.OrderID] = append(result[line.OrderID], line)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating order lines: %v", ErrDatabaseError, err)
	}
	return result, nil
}

func (r *orderRepository) GetOrders(ctx context.Context, filters models.OrderFilters) ([]models.Order, int, error) {
	orders := []models.Order{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT o.id, o.status, o.notes, o.created_at, COUNT(*) OVER() AS total_count FROM orders o`)

	var conditions []string
	var args []interface{}
	argCounter := 1

	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", argCounter))
		args = append(args, *filters.Status)
		argCounter++
	}
	if filters.Date != nil && *filters.Date != "" {
		parsedDate, err := time.Parse("2006-01-02", *filters.Date)
		if err == nil {
			startOfDay := time.Date(parsedDate.Year(), parsedDate.Month(), parsedDate.Day(), 0, 0, 0, 0, time.UTC)
			endOfDay := startOfDay.AddDate(0, 0, 1)
			conditions = append(conditions, fmt.Sprintf("o.created_at >= $%d AND o.created_at < $%d", argCounter, argCounter+1))
			args = append(args, startOfDay, endOfDay)
			argCounter += 2
		}
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY o.created_at DESC, o.id")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCounter, argCounter+1))
	args = append(args, filters.PageSize, pageOffset(filters.Page, filters.PageSize))

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(queryBuilder.String()), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying orders: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var o models.Order
		var notes sql.NullString
		if err := rows.Scan(&o.ID, &o.Status, &notes, &o.CreatedAt, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning order: %v", ErrDatabaseError, err)
		}
		if notes.Valid {
			o.Notes = &notes.String
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating order rows: %v", ErrDatabaseError, err)
	}
	rows.Close()

	lines, err := r.getLines(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}
	return orders, totalCount, nil
}

func (r *orderRepository) DeleteOrder(ctx context.Context, executor SQLExecutor, orderID string) error {
	if _, err := executor.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM order_lines WHERE order_id = $1`), orderID); err != nil {
		return fmt.Errorf("%w: deleting lines of order ID %s: %v", ErrDatabaseError, orderID, err)
	}
	result, err := executor.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM orders WHERE id = $1`), orderID)
	if err != nil {
		return fmt.Errorf("%w: deleting order ID %s: %v", ErrDatabaseError, orderID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
