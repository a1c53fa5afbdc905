package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"kitchen_backoffice/internal/models"
)

// AuthRepository defines the interface for authentication-related database operations.
type AuthRepository interface {
	CreateUser(ctx context.Context, executor SQLExecutor, user *models.User) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, error) // PasswordHash is populated
	FindUserByID(ctx context.Context, userID string) (*models.User, error)
	CountUsers(ctx context.Context) (int, error)
}

// authRepository implements the AuthRepository interface.
type authRepository struct {
	db      *sql.DB // The direct database connection pool
	dialect Dialect
}

// NewAuthRepository creates a new instance of AuthRepository.
func NewAuthRepository(db *sql.DB, dialect Dialect) AuthRepository {
	return &authRepository{db: db, dialect: dialect}
}

// CreateUser inserts a new user into the database.
// It expects an SQLExecutor which can be a *sql.DB or *sql.Tx.
// The user must carry ID, Username, PasswordHash and Role. CreatedAt defaults to now.
func (r *authRepository) CreateUser(ctx context.Context, executor SQLExecutor, user *models.User) error {
	query := `INSERT INTO users (id, username, password_hash, full_name, role, is_active, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := executor.ExecContext(ctx, r.dialect.Rebind(query),
		user.ID,
		user.Username,
		user.PasswordHash,
		user.FullName, // Can be nil
		user.Role,
		user.IsActive,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username '%s' is taken", ErrDuplicateKey, user.Username)
		}
		return fmt.Errorf("%w: creating user: %v", ErrDatabaseError, err)
	}
	return nil
}

func (r *authRepository) findUser(ctx context.Context, column string, value string) (*models.User, error) {
	user := &models.User{}
	var fullName sql.NullString
	query := `SELECT id, username, password_hash, full_name, role, is_active, created_at FROM users WHERE ` + column + ` = $1`

	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), value).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &fullName, &user.Role, &user.IsActive, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound // Use the common repository error
		}
		// Wrap other SQL errors
		return nil, fmt.Errorf("%w: finding user by %s %s: %v", ErrDatabaseError, column, value, err)
	}
	if fullName.Valid {
		user.FullName = &fullName.String
	}
	return user, nil
}

// FindUserByUsername retrieves a user by their username, password hash included.
func (r *authRepository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findUser(ctx, "username", username)
}

// FindUserByID retrieves a user by their ID.
func (r *authRepository) FindUserByID(ctx context.Context, userID string) (*models.User, error) {
	return r.findUser(ctx, "id", userID)
}

func (r *authRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: counting users: %v", ErrDatabaseError, err)
	}
	return count, nil
}
