package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glassline/admin-dashboard/models"
	"github.com/glassline/admin-dashboard/repositories"
	"github.com/glassline/admin-dashboard/services"
	"github.com/glassline/admin-dashboard/services/activity"
	"go.uber.org/zap"
)

// PositionService manages positions and their page grants
type PositionService struct {
	positions   repositories.PositionRepository
	pages       repositories.PageRepository
	txManager   repositories.TransactionManager
	resolver    *Resolver
	invalidator *Invalidator
	activity    ActivityRecorder
	pageKey     string
	logger      *zap.Logger
}

// NewPositionService creates a position service. pageKey is the page an
// actor must hold to mutate positions.
func NewPositionService(
	repos *repositories.Repositories,
	txManager repositories.TransactionManager,
	resolver *Resolver,
	invalidator *Invalidator,
	activity ActivityRecorder,
	pageKey string,
	logger *zap.Logger,
) *PositionService {
	return &PositionService{
		positions:   repos.Positions,
		pages:       repos.Pages,
		txManager:   txManager,
		resolver:    resolver,
		invalidator: invalidator,
		activity:    recorderOrNop(activity),
		pageKey:     pageKey,
		logger:      logger,
	}
}

// UpdatePositionInput holds optional position changes
type UpdatePositionInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// List returns all positions with their page keys
func (s *PositionService) List(ctx context.Context) ([]*models.Position, error) {
	positions, err := s.positions.List(ctx)
	if err != nil {
		return nil, services.ErrStoreUnavailable.Wrap(err)
	}
	return positions, nil
}

// Get returns a position by name
func (s *PositionService) Get(ctx context.Context, name string) (*models.Position, error) {
	return s.find(ctx, name)
}

// find looks a position up by its stored name, then by normalized name
func (s *PositionService) find(ctx context.Context, name string) (*models.Position, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, services.ErrPositionNotFound
	}

	position, err := s.positions.GetByName(ctx, name)
	if err == nil {
		return position, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, services.ErrStoreUnavailable.Wrap(err)
	}

	position, err = s.positions.GetByNormalizedName(ctx, models.NormalizeName(name))
	if err != nil {
		return nil, services.WrapStore(err, services.ErrPositionNotFound, nil)
	}
	return position, nil
}

// ensureNameFree returns ErrDuplicateName if another position normalizes to name
func (s *PositionService) ensureNameFree(ctx context.Context, name string) error {
	_, err := s.positions.GetByNormalizedName(ctx, models.NormalizeName(name))
	switch {
	case err == nil:
		return services.ErrDuplicateName.WithMessage("position %q already exists", name)
	case errors.Is(err, repositories.ErrNotFound):
		return nil
	default:
		return services.ErrStoreUnavailable.Wrap(err)
	}
}

// Create creates a position with an empty grant set
func (s *PositionService) Create(ctx context.Context, actor services.Actor, name, description string) (*models.Position, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, services.ErrInvalidInput.WithMessage("position name is required")
	}

	if err := s.resolver.Authorize(ctx, actor, s.pageKey); err != nil {
		return nil, err
	}

	if err := s.ensureNameFree(ctx, name); err != nil {
		return nil, err
	}

	position := models.NewPosition(name, description)
	if err := s.positions.Create(ctx, position); err != nil {
		return nil, services.WrapStore(err, nil, services.ErrDuplicateName)
	}

	s.logger.Info("Position created",
		zap.String("position", position.Name),
		zap.String("actor", actor.Username),
	)
	s.record(actor, models.ActivityActionCreate, position.Name,
		fmt.Sprintf("Created position %s", position.Name), nil)

	return position, nil
}

// SetPages replaces the full page grant set of a position
func (s *PositionService) SetPages(ctx context.Context, actor services.Actor, name string, pageKeys []string) (*models.Position, error) {
	if err := s.resolver.Authorize(ctx, actor, s.pageKey); err != nil {
		return nil, err
	}

	keys, err := validatePageKeys(ctx, s.pages, pageKeys)
	if err != nil {
		return nil, err
	}

	type change struct {
		before []string
		after  *models.Position
	}

	result, err := services.WithTransactionResult(ctx, s.txManager, func(ctx context.Context, tx repositories.Transaction) (change, error) {
		position, err := s.find(ctx, name)
		if err != nil {
			return change{}, err
		}
		before := position.PageKeys

		if err := s.positions.SetPageKeys(ctx, position.ID, keys); err != nil {
			return change{}, services.WrapStore(err, services.ErrPositionNotFound, nil)
		}
		position.PageKeys = keys
		return change{before: before, after: position}, nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidator.InvalidateAll(ctx)

	s.logger.Info("Position pages replaced",
		zap.String("position", result.after.Name),
		zap.Strings("page_keys", keys),
		zap.String("actor", actor.Username),
	)
	s.record(actor, models.ActivityActionUpdate, result.after.Name,
		fmt.Sprintf("Updated page access for position %s", result.after.Name),
		func(l *models.ActivityLog) { l.WithChange(result.before, keys) })

	return result.after, nil
}

// Update renames or re-describes a position. The superadmin position cannot
// be renamed and no position can be renamed to it.
func (s *PositionService) Update(ctx context.Context, actor services.Actor, name string, input UpdatePositionInput) (*models.Position, error) {
	var newName string
	if input.Name != nil {
		newName = strings.TrimSpace(*input.Name)
		if newName == "" {
			return nil, services.ErrInvalidInput.WithMessage("position name cannot be empty")
		}
		if models.IsSuperadminName(newName) && !models.IsSuperadminName(name) {
			return nil, services.ErrProtectedPosition
		}
	}

	if err := s.resolver.Authorize(ctx, actor, s.pageKey); err != nil {
		return nil, err
	}

	position, err := s.find(ctx, name)
	if err != nil {
		return nil, err
	}
	oldName := position.Name

	renamed := input.Name != nil && newName != position.Name
	if renamed {
		if position.IsSuperadmin() {
			return nil, services.ErrProtectedPosition
		}
		if models.NormalizeName(newName) != position.NormalizedName() {
			if err := s.ensureNameFree(ctx, newName); err != nil {
				return nil, err
			}
		}
		position.Name = newName
	}
	if input.Description != nil {
		position.Description = strings.TrimSpace(*input.Description)
	}

	if err := s.positions.Update(ctx, position); err != nil {
		return nil, services.WrapStore(err, services.ErrPositionNotFound, services.ErrDuplicateName)
	}

	if renamed {
		// Accounts keep the old name and now resolve to no position grants
		s.invalidator.InvalidateAll(ctx)
	}

	s.record(actor, models.ActivityActionUpdate, position.Name,
		fmt.Sprintf("Updated position %s", position.Name),
		func(l *models.ActivityLog) {
			if renamed {
				l.WithChange(oldName, position.Name)
			}
		})

	return position, nil
}

// Delete removes a position and its page grants. Accounts referencing it
// are left as they are.
func (s *PositionService) Delete(ctx context.Context, actor services.Actor, name string) error {
	if models.IsSuperadminName(name) {
		return services.ErrProtectedPosition
	}

	if err := s.resolver.Authorize(ctx, actor, s.pageKey); err != nil {
		return err
	}

	position, err := s.find(ctx, name)
	if err != nil {
		return err
	}
	if position.IsSuperadmin() {
		return services.ErrProtectedPosition
	}

	if err := s.positions.Delete(ctx, position.ID); err != nil {
		return services.WrapStore(err, services.ErrPositionNotFound, nil)
	}

	s.invalidator.InvalidateAll(ctx)

	s.logger.Info("Position deleted",
		zap.String("position", position.Name),
		zap.String("actor", actor.Username),
	)
	s.record(actor, models.ActivityActionDelete, position.Name,
		fmt.Sprintf("Deleted position %s", position.Name),
		func(l *models.ActivityLog) { l.WithMeta("page_keys", position.PageKeys) })

	return nil
}

// Seed creates a position with the given grants unless one with the same
// normalized name already exists. It reports whether a position was created.
func (s *PositionService) Seed(ctx context.Context, name, description string, pageKeys []string) (bool, error) {
	err := s.ensureNameFree(ctx, name)
	if services.IsConflictError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	keys, err := validatePageKeys(ctx, s.pages, pageKeys)
	if err != nil {
		return false, err
	}

	position := models.NewPosition(name, description)
	err = services.WithTransaction(ctx, s.txManager, func(ctx context.Context, tx repositories.Transaction) error {
		if err := s.positions.Create(ctx, position); err != nil {
			return services.WrapStore(err, nil, services.ErrDuplicateName)
		}
		if len(keys) == 0 {
			return nil
		}
		return s.positions.SetPageKeys(ctx, position.ID, keys)
	})
	if err != nil {
		return false, err
	}

	s.invalidator.InvalidateAll(ctx)
	return true, nil
}

func (s *PositionService) record(actor services.Actor, action models.ActivityAction, entityID, details string, decorate func(*models.ActivityLog)) {
	entry := activity.Entry(actor, action, EntityPosition).
		Entity(entityID).
		Details(details).
		Page(s.pageKey).
		Build()
	if decorate != nil {
		decorate(entry)
	}
	s.activity.Record(entry)
}
