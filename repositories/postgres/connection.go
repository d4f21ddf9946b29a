package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/glassline/admin-dashboard/config"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	dsn := cfg.DSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return WrapDB(db, logger), nil
}

// WrapDB wraps an existing pool
func WrapDB(db *sql.DB, logger *zap.Logger) *DB {
	return &DB{
		DB:     db,
		logger: logger,
	}
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// Stats returns database connection pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// Schema is the DDL for the dashboard tables. Statements are idempotent.
const Schema = `
	-- Page catalog
	CREATE TABLE IF NOT EXISTS pages (
		key VARCHAR(100) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		path VARCHAR(255) NOT NULL,
		group_name VARCHAR(100) NOT NULL DEFAULT '',
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Positions
	CREATE TABLE IF NOT EXISTS positions (
		id UUID PRIMARY KEY,
		name VARCHAR(100) NOT NULL UNIQUE,
		normalized_name VARCHAR(100) NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Position page grants. page_key is not a foreign key: stale keys are
	-- tolerated and dropped when permissions are resolved.
	CREATE TABLE IF NOT EXISTS position_pages (
		position_id UUID NOT NULL REFERENCES positions(id) ON DELETE CASCADE,
		page_key VARCHAR(100) NOT NULL,
		PRIMARY KEY (position_id, page_key)
	);

	-- Admin accounts. position is a soft reference to positions.name.
	CREATE TABLE IF NOT EXISTS admin_accounts (
		id UUID PRIMARY KEY,
		username VARCHAR(100) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(50) NOT NULL,
		position VARCHAR(100) NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT true,
		full_name VARCHAR(255) NOT NULL DEFAULT '',
		last_login TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Per-admin additive page grants
	CREATE TABLE IF NOT EXISTS admin_page_overrides (
		admin_id UUID PRIMARY KEY REFERENCES admin_accounts(id) ON DELETE CASCADE,
		page_keys TEXT[] NOT NULL DEFAULT '{}',
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Append-only activity log
	CREATE TABLE IF NOT EXISTS activity_logs (
		id UUID PRIMARY KEY,
		admin_id UUID,
		admin_name VARCHAR(255) NOT NULL DEFAULT '',
		action VARCHAR(20) NOT NULL,
		entity_type VARCHAR(100) NOT NULL,
		entity_id VARCHAR(255) NOT NULL DEFAULT '',
		details TEXT NOT NULL DEFAULT '',
		page VARCHAR(100) NOT NULL DEFAULT '',
		metadata JSONB,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Failed login attempts for throttling
	CREATE TABLE IF NOT EXISTS login_attempts (
		id BIGSERIAL PRIMARY KEY,
		scope_key VARCHAR(255) NOT NULL,
		attempted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_login_attempts_scope ON login_attempts(scope_key, attempted_at);
	CREATE INDEX IF NOT EXISTS idx_admin_accounts_position ON admin_accounts(position);
	CREATE INDEX IF NOT EXISTS idx_activity_logs_admin_id ON activity_logs(admin_id);
	CREATE INDEX IF NOT EXISTS idx_activity_logs_action ON activity_logs(action);
	CREATE INDEX IF NOT EXISTS idx_activity_logs_entity_type ON activity_logs(entity_type);
	CREATE INDEX IF NOT EXISTS idx_activity_logs_created_at ON activity_logs(created_at);
`

// InitSchema initializes the database schema
func (db *DB) InitSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized successfully")
	return nil
}
