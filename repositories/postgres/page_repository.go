package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/glassline/admin-dashboard/models"
	"github.com/glassline/admin-dashboard/repositories"
	"go.uber.org/zap"
)

// PageRepository implements the repositories.PageRepository interface
type PageRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewPageRepository creates a new page repository
func NewPageRepository(db *DB, logger *zap.Logger) repositories.PageRepository {
	return &PageRepository{
		db:     db,
		logger: logger,
	}
}

// List retrieves all pages
func (r *PageRepository) List(ctx context.Context) ([]*models.Page, error) {
	query := `
		SELECT key, name, path, group_name, sort_order, created_at, updated_at
		FROM pages
		ORDER BY group_name, sort_order, key
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	pages := make([]*models.Page, 0)
	for rows.Next() {
		page := &models.Page{}
		if err := rows.Scan(
			&page.Key,
			&page.Name,
			&page.Path,
			&page.Group,
			&page.SortOrder,
			&page.CreatedAt,
			&page.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, page)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pages: %w", err)
	}

	return pages, nil
}

// GetByKey retrieves a page by key
func (r *PageRepository) GetByKey(ctx context.Context, key string) (*models.Page, error) {
	query := `
		SELECT key, name, path, group_name, sort_order, created_at, updated_at
		FROM pages
		WHERE key = $1
	`

	executor := GetExecutor(ctx, r.db)
	page := &models.Page{}

	err := executor.QueryRowContext(ctx, query, key).Scan(
		&page.Key,
		&page.Name,
		&page.Path,
		&page.Group,
		&page.SortOrder,
		&page.CreatedAt,
		&page.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("page %s: %w", key, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	return page, nil
}

// Upsert creates or updates a page by key
func (r *PageRepository) Upsert(ctx context.Context, page *models.Page) error {
	query := `
		INSERT INTO pages (key, name, path, group_name, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (key) DO UPDATE SET
			name = EXCLUDED.name,
			path = EXCLUDED.path,
			group_name = EXCLUDED.group_name,
			sort_order = EXCLUDED.sort_order,
			updated_at = EXCLUDED.updated_at
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		page.Key,
		page.Name,
		page.Path,
		page.Group,
		page.SortOrder,
		page.CreatedAt,
		page.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert page: %w", err)
	}

	r.logger.Debug("page upserted", zap.String("key", page.Key), zap.String("path", page.Path))
	return nil
}
