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

// positionSelect loads positions together with their aggregated page keys
const positionSelect = `
	SELECT p.id, p.name, p.description, p.created_at, p.updated_at,
		COALESCE(array_agg(pp.page_key ORDER BY pp.page_key) FILTER (WHERE pp.page_key IS NOT NULL), '{}')
	FROM positions p
	LEFT JOIN position_pages pp ON pp.position_id = p.id
`

// PositionRepository implements the repositories.PositionRepository interface
type PositionRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *DB, logger *zap.Logger) repositories.PositionRepository {
	return &PositionRepository{
		db:     db,
		logger: logger,
	}
}

// GetByName retrieves a position by its exact stored name
func (r *PositionRepository) GetByName(ctx context.Context, name string) (*models.Position, error) {
	query := positionSelect + `
		WHERE p.name = $1
		GROUP BY p.id
	`
	return r.getOne(ctx, query, name)
}

// GetByNormalizedName retrieves a position by normalized name
func (r *PositionRepository) GetByNormalizedName(ctx context.Context, normalized string) (*models.Position, error) {
	query := positionSelect + `
		WHERE p.normalized_name = $1
		GROUP BY p.id
	`
	return r.getOne(ctx, query, normalized)
}

func (r *PositionRepository) getOne(ctx context.Context, query string, arg string) (*models.Position, error) {
	executor := GetExecutor(ctx, r.db)
	position, err := scanPosition(executor.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("position %s: %w", arg, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return position, nil
}

// List retrieves all positions with their page keys
func (r *PositionRepository) List(ctx context.Context) ([]*models.Position, error) {
	query := positionSelect + `
		GROUP BY p.id
		ORDER BY p.name
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	positions := make([]*models.Position, 0)
	for rows.Next() {
		position, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, position)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}

// Create creates a new position
func (r *PositionRepository) Create(ctx context.Context, position *models.Position) error {
	query := `
		INSERT INTO positions (id, name, normalized_name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		position.ID,
		position.Name,
		position.NormalizedName(),
		position.Description,
		position.CreatedAt,
		position.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("position %s: %w", position.Name, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create position: %w", err)
	}

	r.logger.Debug("position created", zap.String("id", position.ID.String()), zap.String("name", position.Name))
	return nil
}

// Update updates the name and description of a position
func (r *PositionRepository) Update(ctx context.Context, position *models.Position) error {
	query := `
		UPDATE positions
		SET name = $2, normalized_name = $3, description = $4, updated_at = $5
		WHERE id = $1
	`

	position.UpdatedAt = time.Now()

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		position.ID,
		position.Name,
		position.NormalizedName(),
		position.Description,
		position.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("position %s: %w", position.Name, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to update position: %w", err)
	}

	if err := requireAffected(result, "position", position.ID.String()); err != nil {
		return err
	}

	r.logger.Debug("position updated", zap.String("id", position.ID.String()), zap.String("name", position.Name))
	return nil
}

// Delete deletes a position; position_pages rows cascade
func (r *PositionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM positions WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}

	if err := requireAffected(result, "position", id.String()); err != nil {
		return err
	}

	r.logger.Debug("position deleted", zap.String("id", id.String()))
	return nil
}

// SetPageKeys replaces the full page grant set of a position in one transaction
func (r *PositionRepository) SetPageKeys(ctx context.Context, positionID uuid.UUID, pageKeys []string) error {
	keys := models.NormalizePageKeys(pageKeys)

	return runInTx(ctx, r.db, r.logger, func(ctx context.Context) error {
		executor := GetExecutor(ctx, r.db)

		result, err := executor.ExecContext(ctx,
			`UPDATE positions SET updated_at = $2 WHERE id = $1`,
			positionID, time.Now())
		if err != nil {
			return fmt.Errorf("failed to touch position: %w", err)
		}
		if err := requireAffected(result, "position", positionID.String()); err != nil {
			return err
		}

		if _, err := executor.ExecContext(ctx,
			`DELETE FROM position_pages WHERE position_id = $1`,
			positionID); err != nil {
			return fmt.Errorf("failed to clear position pages: %w", err)
		}

		if len(keys) > 0 {
			if _, err := executor.ExecContext(ctx,
				`INSERT INTO position_pages (position_id, page_key) SELECT $1, unnest($2::text[])`,
				positionID, pq.Array(keys)); err != nil {
				return fmt.Errorf("failed to insert position pages: %w", err)
			}
		}

		r.logger.Debug("position pages replaced",
			zap.String("position_id", positionID.String()),
			zap.Strings("page_keys", keys))
		return nil
	})
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(row rowScanner) (*models.Position, error) {
	position := &models.Position{}
	var keys pq.StringArray
	if err := row.Scan(
		&position.ID,
		&position.Name,
		&position.Description,
		&position.CreatedAt,
		&position.UpdatedAt,
		&keys,
	); err != nil {
		return nil, err
	}
	position.PageKeys = []string(keys)
	if position.PageKeys == nil {
		position.PageKeys = []string{}
	}
	return position, nil
}

// requireAffected maps a zero-row mutation to ErrNotFound
func requireAffected(result sql.Result, entity, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, repositories.ErrNotFound)
	}
	return nil
}
