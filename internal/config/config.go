package config

import (
	"fmt"
	"strings"
	"time"

	"kitchen_backoffice/pkg/utils"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"

	devJWTSecret = "kitchen-dev-secret-change-me"
)

// Config holds the configuration for the application.
type Config struct {
	AppEnv   string
	BindAddr string
	Port     string

	DBDriver   string
	DBPath     string // sqlite3 only
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret string
	JWTTTL    time.Duration

	CORSAllowedOrigins []string

	LogLevel  string
	LogFormat string
}

// Load creates a new Config object from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:     utils.Getenv("APP_ENV", "development"),
		BindAddr:   utils.Getenv("BIND_ADDR", "127.0.0.1"),
		Port:       utils.Getenv("PORT", "8080"),
		DBDriver:   strings.ToLower(utils.Getenv("DB_DRIVER", DriverSQLite)),
		DBPath:     utils.Getenv("DB_PATH", "data/kitchen.db"),
		DBHost:     utils.Getenv("DB_HOST", "localhost"),
		DBPort:     utils.Getenv("DB_PORT", "5432"),
		DBUser:     utils.Getenv("DB_USER", "kitchen_user"),
		DBPassword: utils.Getenv("DB_PASSWORD", "kitchen_password"),
		DBName:     utils.Getenv("DB_NAME", "kitchen_db"),
		DBSSLMode:  utils.Getenv("DB_SSLMODE", "disable"),
		JWTSecret:  utils.Getenv("JWT_SECRET", ""),
		JWTTTL:     utils.GetenvDuration("JWT_TTL", 72*time.Hour),
		LogLevel:   utils.Getenv("LOG_LEVEL", "info"),
		LogFormat:  utils.Getenv("LOG_FORMAT", "console"),
	}

	origins := utils.Getenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	if cfg.DBDriver != DriverSQLite && cfg.DBDriver != DriverPostgres {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET environment variable not set")
		}
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

// IsDevelopment reports whether the app runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// ListenAddr is the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return c.BindAddr + ":" + c.Port
}

// PostgresDSN builds the lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}
