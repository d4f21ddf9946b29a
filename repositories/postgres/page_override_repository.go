package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glassline/admin-dashboard/models"
	"github.com/glassline/admin-dashboard/repositories"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// PageOverrideRepository implements the repositories.PageOverrideRepository interface
type PageOverrideRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewPageOverrideRepository creates a new page override repository
func NewPageOverrideRepository(db *DB, logger *zap.Logger) repositories.PageOverrideRepository {
	return &PageOverrideRepository{
		db:     db,
		logger: logger,
	}
}

// GetByAdminID retrieves the override row for an admin
func (r *PageOverrideRepository) GetByAdminID(ctx context.Context, adminID uuid.UUID) (*models.AdminPageOverride, error) {
	query := `
		SELECT admin_id, page_keys, updated_at
		FROM admin_page_overrides
		WHERE admin_id = $1
	`

	executor := GetExecutor(ctx, r.db)
	override := &models.AdminPageOverride{}
	var keys pq.StringArray

	err := executor.QueryRowContext(ctx, query, adminID).Scan(
		&override.AdminID,
		&keys,
		&override.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("page override for admin %s: %w", adminID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get page override: %w", err)
	}

	override.PageKeys = models.NormalizePageKeys(keys)
	return override, nil
}

// SetPageKeys replaces the full override set of an admin
func (r *PageOverrideRepository) SetPageKeys(ctx context.Context, adminID uuid.UUID, pageKeys []string) error {
	query := `
		INSERT INTO admin_page_overrides (admin_id, page_keys, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (admin_id) DO UPDATE SET
			page_keys = EXCLUDED.page_keys,
			updated_at = EXCLUDED.updated_at
	`

	keys := models.NormalizePageKeys(pageKeys)

	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, query, adminID, pq.Array(keys), time.Now()); err != nil {
		return fmt.Errorf("failed to set page overrides: %w", err)
	}

	r.logger.Debug("page overrides replaced",
		zap.String("admin_id", adminID.String()),
		zap.Strings("page_keys", keys))
	return nil
}
