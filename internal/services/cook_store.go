package services

import (
	"context"
	"database/sql"
	"fmt"

	"kitchen_backoffice/internal/models"
	"kitchen_backoffice/internal/repositories"
	"kitchen_backoffice/pkg/utils"
)

// sqlCookStore backs the engine with the SQL repositories.
type sqlCookStore struct {
	sqlCookTx
	db *sql.DB
}

// NewSQLCookStore creates the production CookStore on top of db.
func NewSQLCookStore(
	db *sql.DB,
	itemRepo repositories.StockItemRepository,
	notificationRepo repositories.NotificationRepository,
	movementRepo repositories.InventoryMovementRepository,
) CookStore {
	return &sqlCookStore{
		sqlCookTx: sqlCookTx{
			executor:         db,
			itemRepo:         itemRepo,
			notificationRepo: notificationRepo,
			movementRepo:     movementRepo,
		},
		db: db,
	}
}

func (s *sqlCookStore) WithinTx(ctx context.Context, fn func(tx CookTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to start database transaction: %v", repositories.ErrDatabaseError, err)
	}
	defer tx.Rollback() // Rollback if not committed

	bound := s.sqlCookTx
	bound.executor = tx
	bound.inTx = true
	if err := fn(&bound); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", repositories.ErrDatabaseError, err)
	}
	return nil
}

type sqlCookTx struct {
	executor         repositories.SQLExecutor
	inTx             bool
	itemRepo         repositories.StockItemRepository
	notificationRepo repositories.NotificationRepository
	movementRepo     repositories.InventoryMovementRepository
}

func (t *sqlCookTx) Inventory() InventoryAccessor    { return sqlInventory{t} }
func (t *sqlCookTx) Notifications() NotificationSink { return sqlNotifications{t} }
func (t *sqlCookTx) Movements() MovementRecorder     { return sqlMovements{t} }

type sqlInventory struct{ t *sqlCookTx }

func (a sqlInventory) GetMany(ctx context.Context, ids []string) ([]models.StockItem, error) {
	return a.t.itemRepo.GetMany(ctx, a.t.executor, ids)
}

func (a sqlInventory) Get(ctx context.Context, id string) (*models.StockItem, error) {
	return a.t.itemRepo.GetByID(ctx, a.t.executor, id)
}

func (a sqlInventory) Update(ctx context.Context, id string, fields models.StockItemUpdate) error {
	return a.t.itemRepo.Update(ctx, a.t.executor, id, fields)
}

type sqlNotifications struct{ t *sqlCookTx }

// Append inside a transaction runs under a savepoint so a failed insert does not
// poison the surrounding transaction.
func (n sqlNotifications) Append(ctx context.Context, entry models.Notification) error {
	if !n.t.inTx {
		return n.t.notificationRepo.Append(ctx, n.t.executor, &entry)
	}
	if _, err := n.t.executor.ExecContext(ctx, "SAVEPOINT notification"); err != nil {
		return fmt.Errorf("%w: creating savepoint: %v", repositories.ErrDatabaseError, err)
	}
	if err := n.t.notificationRepo.Append(ctx, n.t.executor, &entry); err != nil {
		if _, rbErr := n.t.executor.ExecContext(ctx, "ROLLBACK TO SAVEPOINT notification"); rbErr != nil {
			utils.LogError(rbErr, "Failed to roll back notification savepoint")
		}
		return err
	}
	if _, err := n.t.executor.ExecContext(ctx, "RELEASE SAVEPOINT notification"); err != nil {
		return fmt.Errorf("%w: releasing savepoint: %v", repositories.ErrDatabaseError, err)
	}
	return nil
}

type sqlMovements struct{ t *sqlCookTx }

func (m sqlMovements) Record(ctx context.Context, movement *models.InventoryMovement) error {
	return m.t.movementRepo.CreateMovement(ctx, m.t.executor, movement)
}
