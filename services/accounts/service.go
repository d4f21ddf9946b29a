// Package accounts manages admin accounts: login, creation, profile and
// access changes, activation and password resets.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/glassline/admin-dashboard/models"
	"github.com/glassline/admin-dashboard/repositories"
	"github.com/glassline/admin-dashboard/services"
	"github.com/glassline/admin-dashboard/services/activity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MinPasswordLength is the shortest password accepted for new or reset passwords
const MinPasswordLength = 8

// MaxPasswordLength is the longest password bcrypt can hash, in bytes
const MaxPasswordLength = 72

// unknownAccountPassword is hashed once and compared against on unknown
// usernames so a login attempt costs one comparison either way.
const unknownAccountPassword = "glassline-unknown-account"

// EntityAccount is the activity log entity type for accounts
const EntityAccount = "admin_account"

// PasswordHasher hashes and compares passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// Authorizer checks the acting admin's grants
type Authorizer interface {
	Authorize(ctx context.Context, actor services.Actor, pageKey string) error
	RequireSuperadmin(ctx context.Context, actor services.Actor) error
}

// Invalidator drops cached permissions for an admin
type Invalidator interface {
	InvalidateAdmin(ctx context.Context, adminID uuid.UUID)
}

// ActivityRecorder accepts activity entries without blocking
type ActivityRecorder interface {
	Record(entry *models.ActivityLog)
}

// Service manages admin accounts
type Service struct {
	accounts    repositories.AdminAccountRepository
	hasher      PasswordHasher
	authorizer  Authorizer
	invalidator Invalidator
	activity    ActivityRecorder
	pageKey     string
	logger      *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates an account service. pageKey is the accounts page an
// actor must hold to read or edit profiles.
func NewService(
	accounts repositories.AdminAccountRepository,
	hasher PasswordHasher,
	authorizer Authorizer,
	invalidator Invalidator,
	recorder ActivityRecorder,
	pageKey string,
	logger *zap.Logger,
) *Service {
	return &Service{
		accounts:    accounts,
		hasher:      hasher,
		authorizer:  authorizer,
		invalidator: invalidator,
		activity:    recorder,
		pageKey:     pageKey,
		logger:      logger,
	}
}

// CreateInput holds the fields of a new account
type CreateInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,max=72"`
	Role     string `json:"role" validate:"required"`
	Position string `json:"position" validate:"max=100"`
	FullName string `json:"full_name" validate:"max=200"`
}

// Authenticate checks a username and password. Inactive accounts are
// rejected before the password is compared.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.AdminAccount, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, services.ErrInvalidCredentials
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.compareUnknown(password)
			s.logger.Info("Login failed", zap.String("username", username), zap.String("reason", "unknown_username"))
			return nil, services.ErrInvalidCredentials
		}
		return nil, services.ErrStoreUnavailable.Wrap(err)
	}

	if !account.IsActive {
		s.logger.Info("Login failed", zap.String("username", username), zap.String("reason", "inactive"))
		return nil, services.ErrAccountInactive
	}

	if err := s.hasher.Compare(account.PasswordHash, password); err != nil {
		s.logger.Info("Login failed", zap.String("username", username), zap.String("reason", "password"))
		return nil, services.ErrInvalidCredentials
	}

	if err := s.accounts.UpdateLastLogin(ctx, account.ID); err != nil {
		s.logger.Warn("Failed to update last login",
			zap.String("admin_id", account.ID.String()),
			zap.Error(err))
	}

	s.record(activity.Entry(actorOf(account), models.ActivityActionLogin, EntityAccount).
		Entity(account.ID.String()).
		Details(fmt.Sprintf("%s logged in", account.Username)))

	return account, nil
}

// compareUnknown spends a hash comparison on a login for a username that
// does not exist.
func (s *Service) compareUnknown(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(unknownAccountPassword)
		if err != nil {
			s.logger.Warn("Failed to prepare unknown account hash", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_ = s.hasher.Compare(s.dummyHash, password)
	}
}

// RecordLogout writes a logout activity entry
func (s *Service) RecordLogout(ctx context.Context, actor services.Actor) {
	s.record(activity.Entry(actor, models.ActivityActionLogout, EntityAccount).
		Entity(actor.ID.String()).
		Details(fmt.Sprintf("%s logged out", actor.Username)))
}

// List returns every account ordered by username
func (s *Service) List(ctx context.Context) ([]*models.AdminAccount, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, services.ErrStoreUnavailable.Wrap(err)
	}
	return accounts, nil
}

// Get returns one account
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.AdminAccount, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, services.WrapStore(err, services.ErrAdminNotFound, nil)
	}
	return account, nil
}

// Create creates an active account. Only superadmins may create accounts.
func (s *Service) Create(ctx context.Context, actor services.Actor, input CreateInput) (*models.AdminAccount, error) {
	if err := s.authorizer.RequireSuperadmin(ctx, actor); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, services.ErrInvalidInput.WithMessage("username is required")
	}
	role, err := parseRole(input.Role)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(input.Password); err != nil {
		return nil, err
	}

	_, err = s.accounts.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, services.ErrDuplicateUsername.WithMessage("username %q is already taken", username)
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, services.ErrStoreUnavailable.Wrap(err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, services.WrapInternal("failed to hash password", err)
	}

	account := models.NewAdminAccount(username, hash, role, input.Position, input.FullName)
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, services.WrapStore(err, nil, services.ErrDuplicateUsername)
	}

	s.logger.Info("Admin account created",
		zap.String("username", account.Username),
		zap.String("role", string(account.Role)),
		zap.String("position", account.Position),
		zap.String("actor", actor.Username))
	s.record(activity.Entry(actor, models.ActivityActionCreate, EntityAccount).
		Entity(account.ID.String()).
		Details(fmt.Sprintf("Created account %s", account.Username)).
		Meta("role", string(account.Role)).
		Meta("position", account.Position))

	return account, nil
}

// UpdateProfile changes an account's display name
func (s *Service) UpdateProfile(ctx context.Context, actor services.Actor, id uuid.UUID, fullName string) (*models.AdminAccount, error) {
	if err := s.authorizer.Authorize(ctx, actor, s.pageKey); err != nil {
		return nil, err
	}

	account, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := account.FullName
	account.FullName = strings.TrimSpace(fullName)

	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, services.WrapStore(err, services.ErrAdminNotFound, nil)
	}

	s.record(activity.Entry(actor, models.ActivityActionUpdate, EntityAccount).
		Entity(account.ID.String()).
		Details(fmt.Sprintf("Updated profile of %s", account.Username)).
		Change(before, account.FullName))

	return account, nil
}

// UpdateAccess changes an account's role and position. Superadmin only.
func (s *Service) UpdateAccess(ctx context.Context, actor services.Actor, id uuid.UUID, role, position string) (*models.AdminAccount, error) {
	if err := s.authorizer.RequireSuperadmin(ctx, actor); err != nil {
		return nil, err
	}

	parsed, err := parseRole(role)
	if err != nil {
		return nil, err
	}

	account, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := map[string]any{"role": string(account.Role), "position": account.Position}

	account.Role = parsed
	account.Position = strings.TrimSpace(position)
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, services.WrapStore(err, services.ErrAdminNotFound, nil)
	}

	s.invalidator.InvalidateAdmin(ctx, account.ID)

	s.logger.Info("Admin access changed",
		zap.String("username", account.Username),
		zap.String("role", string(account.Role)),
		zap.String("position", account.Position),
		zap.String("actor", actor.Username))
	s.record(activity.Entry(actor, models.ActivityActionUpdate, EntityAccount).
		Entity(account.ID.String()).
		Details(fmt.Sprintf("Changed access of %s", account.Username)).
		Change(before, map[string]any{"role": string(account.Role), "position": account.Position}))

	return account, nil
}

// SetActive activates or deactivates an account. Superadmin only; an admin
// cannot deactivate their own account.
func (s *Service) SetActive(ctx context.Context, actor services.Actor, id uuid.UUID, active bool) (*models.AdminAccount, error) {
	if err := s.authorizer.RequireSuperadmin(ctx, actor); err != nil {
		return nil, err
	}
	if !active && actor.ID == id {
		return nil, services.ErrSelfDeactivation
	}

	account, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.IsActive == active {
		return account, nil
	}

	account.IsActive = active
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, services.WrapStore(err, services.ErrAdminNotFound, nil)
	}

	s.invalidator.InvalidateAdmin(ctx, account.ID)

	verb := "Deactivated"
	if active {
		verb = "Activated"
	}
	s.logger.Info("Admin account "+strings.ToLower(verb),
		zap.String("username", account.Username),
		zap.String("actor", actor.Username))
	s.record(activity.Entry(actor, models.ActivityActionUpdate, EntityAccount).
		Entity(account.ID.String()).
		Details(fmt.Sprintf("%s account %s", verb, account.Username)).
		Change(!active, active))

	return account, nil
}

// ResetPassword sets a new password for an account. Superadmin only.
func (s *Service) ResetPassword(ctx context.Context, actor services.Actor, id uuid.UUID, password string) error {
	if err := s.authorizer.RequireSuperadmin(ctx, actor); err != nil {
		return err
	}
	if err := checkPassword(password); err != nil {
		return err
	}

	account, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return services.WrapInternal("failed to hash password", err)
	}
	account.PasswordHash = hash
	if err := s.accounts.Update(ctx, account); err != nil {
		return services.WrapStore(err, services.ErrAdminNotFound, nil)
	}

	s.record(activity.Entry(actor, models.ActivityActionUpdate, EntityAccount).
		Entity(account.ID.String()).
		Details(fmt.Sprintf("Reset password of %s", account.Username)))

	return nil
}

func checkPassword(password string) error {
	if len(password) < MinPasswordLength {
		return services.ErrWeakPassword
	}
	if len(password) > MaxPasswordLength {
		return services.ErrPasswordTooLong
	}
	return nil
}

// Bootstrap creates the first superadmin account unless the username is
// already taken. It reports whether an account was created.
func (s *Service) Bootstrap(ctx context.Context, username, password, position string) (bool, error) {
	_, err := s.accounts.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, repositories.ErrNotFound):
		return false, services.ErrStoreUnavailable.Wrap(err)
	}

	created, err := s.Create(ctx, services.SystemActor, CreateInput{
		Username: username,
		Password: password,
		Role:     string(models.RoleSuperadmin),
		Position: position,
		FullName: "Superadmin",
	})
	if err != nil {
		return false, err
	}
	return created != nil, nil
}

func (s *Service) record(b *activity.Builder) {
	if s.activity == nil {
		return
	}
	s.activity.Record(b.Page(s.pageKey).Build())
}

// parseRole normalizes a role name to one of the known roles
func parseRole(role string) (models.AdminRole, error) {
	r := models.AdminRole(models.NormalizeName(role))
	if !r.IsValid() {
		return "", services.ErrInvalidInput.WithMessage("unknown role %q", role)
	}
	return r, nil
}

func actorOf(account *models.AdminAccount) services.Actor {
	return services.Actor{ID: account.ID, Username: account.Username}
}
