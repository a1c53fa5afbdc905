package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"kitchen_backoffice/internal/models"

	"github.com/google/uuid"
)

// NotificationRepository is the append-only audit log.
type NotificationRepository interface {
	Append(ctx context.Context, executor SQLExecutor, entry *models.Notification) error
	List(ctx context.Context, tone *string, page, pageSize int) ([]models.Notification, int, error)
}

type notificationRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewNotificationRepository creates a new instance of NotificationRepository.
func NewNotificationRepository(db *sql.DB, dialect Dialect) NotificationRepository {
	return &notificationRepository{db: db, dialect: dialect}
}

func (r *notificationRepository) Append(ctx context.Context, executor SQLExecutor, entry *models.Notification) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	query := `INSERT INTO notifications (id, tone, message, logged_at) VALUES ($1, $2, $3, $4)`
	_, err := executor.ExecContext(ctx, r.dialect.Rebind(query), entry.ID, entry.Tone, entry.Message, entry.LoggedAt)
	if err != nil {
		return fmt.Errorf("%w: appending notification: %v", ErrDatabaseError, err)
	}
	return nil
}

func (r *notificationRepository) List(ctx context.Context, tone *string, page, pageSize int) ([]models.Notification, int, error) {
	entries := []models.Notification{}
	totalCount := 0

	query := `SELECT id, tone, message, logged_at, COUNT(*) OVER() AS total_count FROM notifications`
	var args []interface{}
	argCount := 1
	if tone != nil && *tone != "" {
		query += fmt.Sprintf(" WHERE tone = $%d", argCount)
		args = append(args, *tone)
		argCount++
	}
	query += fmt.Sprintf(" ORDER BY logged_at DESC, id LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, pageSize, pageOffset(page, pageSize))

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: listing notifications: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry models.Notification
		if err := rows.Scan(&entry.ID, &entry.Tone, &entry.Message, &entry.LoggedAt, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning notification: %v", ErrDatabaseError, err)
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating notifications: %v", ErrDatabaseError, err)
	}
	return entries, totalCount, nil
}
