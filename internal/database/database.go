package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"kitchen_backoffice/internal/config"
	"kitchen_backoffice/pkg/utils"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // Embedded SQLite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open connects to the configured database, verifies the connection and applies
// the embedded migrations.
func Open(cfg *config.Config) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)

	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err = sql.Open("postgres", cfg.PostgresDSN())
	case config.DriverSQLite:
		db, err = OpenSQLite(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	if err := RunMigrations(db, cfg.DBDriver); err != nil {
		db.Close()
		return nil, err
	}

	utils.LogInfo("Successfully connected to the database", map[string]interface{}{"driver": cfg.DBDriver})
	return db, nil
}

// OpenSQLite opens the embedded database file, creating its directory if needed.
func OpenSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
}

// RunMigrations applies database migrations using golang-migrate.
func RunMigrations(db *sql.DB, driver string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create iofs driver: %w", err)
	}

	var target database.Driver
	switch driver {
	case config.DriverPostgres:
		target, err = postgres.WithInstance(db, &postgres.Config{})
	case config.DriverSQLite:
		target, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driver, target)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	utils.LogInfo("Database migrations applied")
	return nil
}
