package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver for local development
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// ConnectionManager owns the database handle shared by every repository
type ConnectionManager struct {
	db     *sql.DB
	config ConnectionConfig
}

// ConnectionConfig holds database connection configuration
type ConnectionConfig struct {
	Driver      string
	URL         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// NewConnectionManager opens and pings the database
func NewConnectionManager(ctx context.Context, config ConnectionConfig) (*ConnectionManager, error) {
	if config.Driver == "" {
		config.Driver = DriverPostgres
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	db, err := sql.Open(config.Driver, config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", config.Driver, err)
	}

	if config.Driver == DriverSQLite {
		// every connection to an in-memory sqlite database is a new database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(config.MaxConns)
		db.SetMaxIdleConns(config.MinConns)
		db.SetConnMaxLifetime(config.MaxLifetime)
		db.SetConnMaxIdleTime(config.MaxIdleTime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", config.Driver, err)
	}

	return &ConnectionManager{db: db, config: config}, nil
}

// NewConnectionManagerFromDB wraps an already opened handle
func NewConnectionManagerFromDB(db *sql.DB) *ConnectionManager {
	return &ConnectionManager{db: db}
}

// DB returns the database handle
func (cm *ConnectionManager) DB() *sql.DB {
	return cm.db
}

// HealthCheck pings the database
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	if err := cm.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unhealthy: %w", err)
	}
	return nil
}

// Stats returns connection pool statistics
func (cm *ConnectionManager) Stats() sql.DBStats {
	return cm.db.Stats()
}

// Close closes the database handle
func (cm *ConnectionManager) Close() error {
	return cm.db.Close()
}
