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
	"go.uber.org/zap"
)

const adminAccountColumns = `id, username, password_hash, role, position, is_active, full_name, last_login, created_at, updated_at`

// AdminAccountRepository implements the repositories.AdminAccountRepository interface
type AdminAccountRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAdminAccountRepository creates a new admin account repository
func NewAdminAccountRepository(db *DB, logger *zap.Logger) repositories.AdminAccountRepository {
	return &AdminAccountRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves an account by ID
func (r *AdminAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AdminAccount, error) {
	query := `SELECT ` + adminAccountColumns + ` FROM admin_accounts WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	account, err := scanAdminAccount(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("admin account %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get admin account: %w", err)
	}
	return account, nil
}

// GetByUsername retrieves an account by username
func (r *AdminAccountRepository) GetByUsername(ctx context.Context, username string) (*models.AdminAccount, error) {
	query := `SELECT ` + adminAccountColumns + ` FROM admin_accounts WHERE username = $1`

	executor := GetExecutor(ctx, r.db)
	account, err := scanAdminAccount(executor.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("admin account %s: %w", username, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get admin account: %w", err)
	}
	return account, nil
}

// List retrieves all accounts ordered by username
func (r *AdminAccountRepository) List(ctx context.Context) ([]*models.AdminAccount, error) {
	query := `SELECT ` + adminAccountColumns + ` FROM admin_accounts ORDER BY username`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*models.AdminAccount, 0)
	for rows.Next() {
		account, err := scanAdminAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan admin account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admin accounts: %w", err)
	}

	return accounts, nil
}

// Create creates a new account
func (r *AdminAccountRepository) Create(ctx context.Context, account *models.AdminAccount) error {
	query := `
		INSERT INTO admin_accounts (` + adminAccountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		account.ID,
		account.Username,
		account.PasswordHash,
		string(account.Role),
		account.Position,
		account.IsActive,
		account.FullName,
		account.LastLogin,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("admin account %s: %w", account.Username, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	r.logger.Debug("admin account created",
		zap.String("id", account.ID.String()),
		zap.String("username", account.Username))
	return nil
}

// Update updates every mutable field of an account
func (r *AdminAccountRepository) Update(ctx context.Context, account *models.AdminAccount) error {
	query := `
		UPDATE admin_accounts
		SET username = $2, password_hash = $3, role = $4, position = $5,
			is_active = $6, full_name = $7, updated_at = $8
		WHERE id = $1
	`

	account.UpdatedAt = time.Now()

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		account.ID,
		account.Username,
		account.PasswordHash,
		string(account.Role),
		account.Position,
		account.IsActive,
		account.FullName,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("admin account %s: %w", account.Username, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to update admin account: %w", err)
	}

	if err := requireAffected(result, "admin account", account.ID.String()); err != nil {
		return err
	}

	r.logger.Debug("admin account updated", zap.String("id", account.ID.String()))
	return nil
}

// UpdateLastLogin sets the last login timestamp to now
func (r *AdminAccountRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE admin_accounts SET last_login = $2 WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return requireAffected(result, "admin account", id.String())
}

func scanAdminAccount(row rowScanner) (*models.AdminAccount, error) {
	account := &models.AdminAccount{}
	var role string
	var lastLogin sql.NullTime
	if err := row.Scan(
		&account.ID,
		&account.Username,
		&account.PasswordHash,
		&role,
		&account.Position,
		&account.IsActive,
		&account.FullName,
		&lastLogin,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	account.Role = models.AdminRole(role)
	if lastLogin.Valid {
		t := lastLogin.Time
		account.LastLogin = &t
	}
	return account, nil
}
