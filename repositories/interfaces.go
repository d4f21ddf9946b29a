package repositories

import (
	"context"
	"errors"

	"github.com/glassline/admin-dashboard/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is wrapped by repositories when a row does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is wrapped by repositories on unique constraint violations
	ErrDuplicate = errors.New("duplicate record")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns a context carrying the transaction.
	// Repositories called with this context run inside the transaction.
	Context() context.Context
}

// PageRepository handles the page catalog
type PageRepository interface {
	// List retrieves all pages ordered by group, sort order and key
	List(ctx context.Context) ([]*models.Page, error)

	// GetByKey retrieves a page by key
	GetByKey(ctx context.Context, key string) (*models.Page, error)

	// Upsert creates or updates a page by key
	Upsert(ctx context.Context, page *models.Page) error
}

// PositionRepository handles positions and their page grants
type PositionRepository interface {
	// GetByName retrieves a position by its exact stored name, with page keys
	GetByName(ctx context.Context, name string) (*models.Position, error)

	// GetByNormalizedName retrieves a position by normalized name, with page keys
	GetByNormalizedName(ctx context.Context, normalized string) (*models.Position, error)

	// List retrieves all positions with their page keys
	List(ctx context.Context) ([]*models.Position, error)

	// Create creates a new position
	Create(ctx context.Context, position *models.Position) error

	// Update updates the name and description of a position
	Update(ctx context.Context, position *models.Position) error

	// Delete deletes a position; its page grants cascade
	Delete(ctx context.Context, id uuid.UUID) error

	// SetPageKeys replaces the full page grant set of a position
	SetPageKeys(ctx context.Context, positionID uuid.UUID, pageKeys []string) error
}

// AdminAccountRepository handles admin accounts
type AdminAccountRepository interface {
	// GetByID retrieves an account by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.AdminAccount, error)

	// GetByUsername retrieves an account by username
	GetByUsername(ctx context.Context, username string) (*models.AdminAccount, error)

	// List retrieves all accounts ordered by username
	List(ctx context.Context) ([]*models.AdminAccount, error)

	// Create creates a new account
	Create(ctx context.Context, account *models.AdminAccount) error

	// Update updates every mutable field of an account
	Update(ctx context.Context, account *models.AdminAccount) error

	// UpdateLastLogin sets the last login timestamp to now
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
}

// PageOverrideRepository handles per-admin override grants
type PageOverrideRepository interface {
	// GetByAdminID retrieves the override row for an admin
	GetByAdminID(ctx context.Context, adminID uuid.UUID) (*models.AdminPageOverride, error)

	// SetPageKeys replaces the full override set of an admin
	SetPageKeys(ctx context.Context, adminID uuid.UUID, pageKeys []string) error
}

// ActivityLogFilter narrows activity log listings
type ActivityLogFilter struct {
	AdminID    *uuid.UUID
	Action     models.ActivityAction
	EntityType string
	Limit      int
	Offset     int
}

// ActivityLogRepository handles the append-only activity log
type ActivityLogRepository interface {
	// Insert appends a new activity log entry
	Insert(ctx context.Context, entry *models.ActivityLog) error

	// List retrieves entries newest first
	List(ctx context.Context, filter ActivityLogFilter) ([]*models.ActivityLog, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Pages         PageRepository
	Positions     PositionRepository
	AdminAccounts AdminAccountRepository
	PageOverrides PageOverrideRepository
	ActivityLogs  ActivityLogRepository
}
