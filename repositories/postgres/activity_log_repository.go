package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/glassline/admin-dashboard/models"
	"github.com/glassline/admin-dashboard/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// ActivityLogRepository implements the repositories.ActivityLogRepository interface
type ActivityLogRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewActivityLogRepository creates a new activity log repository
func NewActivityLogRepository(db *DB, logger *zap.Logger) repositories.ActivityLogRepository {
	return &ActivityLogRepository{
		db:     db,
		logger: logger,
	}
}

// Insert appends a new activity log entry
func (r *ActivityLogRepository) Insert(ctx context.Context, entry *models.ActivityLog) error {
	query := `
		INSERT INTO activity_logs (
			id, admin_id, admin_name, action, entity_type, entity_id,
			details, page, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		entry.ID,
		entry.AdminID,
		entry.AdminName,
		string(entry.Action),
		entry.EntityType,
		entry.EntityID,
		entry.Details,
		entry.Page,
		entry.Metadata,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity log: %w", err)
	}

	return nil
}

// List retrieves entries newest first
func (r *ActivityLogRepository) List(ctx context.Context, filter repositories.ActivityLogFilter) ([]*models.ActivityLog, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if filter.AdminID != nil {
		args = append(args, *filter.AdminID)
		conditions = append(conditions, fmt.Sprintf("admin_id = $%d", len(args)))
	}
	if filter.Action != "" {
		args = append(args, string(filter.Action))
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		conditions = append(conditions, fmt.Sprintf("entity_type = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, admin_id, admin_name, action, entity_type, entity_id,
			details, page, metadata, created_at
		FROM activity_logs
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity logs: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.ActivityLog, 0)
	for rows.Next() {
		entry := &models.ActivityLog{}
		var adminID uuid.NullUUID
		var action string
		if err := rows.Scan(
			&entry.ID,
			&adminID,
			&entry.AdminName,
			&action,
			&entry.EntityType,
			&entry.EntityID,
			&entry.Details,
			&entry.Page,
			&entry.Metadata,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity log: %w", err)
		}
		if adminID.Valid {
			id := adminID.UUID
			entry.AdminID = &id
		}
		entry.Action = models.ActivityAction(action)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity logs: %w", err)
	}

	return entries, nil
}
