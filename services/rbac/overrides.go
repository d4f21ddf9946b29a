package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/glassline/admin-dashboard/models"
	"github.com/glassline/admin-dashboard/repositories"
	"github.com/glassline/admin-dashboard/services"
	"github.com/glassline/admin-dashboard/services/activity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PageAccessSource explains where an admin's access to a page comes from
type PageAccessSource string

const (
	SourcePosition PageAccessSource = "position"
	SourceOverride PageAccessSource = "override"
	SourceBoth     PageAccessSource = "both"
	SourceNone     PageAccessSource = "none"
)

// PageAccess is one catalog page in the override view
type PageAccess struct {
	Page   *models.Page     `json:"page"`
	Source PageAccessSource `json:"source"`
	// Toggleable is false when the position already grants the page
	Toggleable bool `json:"toggleable"`
}

// OverrideView shows an admin's effective access page by page
type OverrideView struct {
	AdminID      uuid.UUID    `json:"adminId"`
	Username     string       `json:"username"`
	Position     string       `json:"position"`
	Wildcard     bool         `json:"wildcard"`
	PositionKeys []string     `json:"positionKeys"`
	OverrideKeys []string     `json:"overrideKeys"`
	Pages        []PageAccess `json:"pages"`
	// StaleKeys are granted keys that no longer exist in the catalog
	StaleKeys []string `json:"staleKeys,omitempty"`
}

// OverrideService manages per-admin additive page grants
type OverrideService struct {
	overrides   repositories.PageOverrideRepository
	accounts    repositories.AdminAccountRepository
	pages       repositories.PageRepository
	resolver    *Resolver
	invalidator *Invalidator
	activity    ActivityRecorder
	pageKey     string
	logger      *zap.Logger
}

// NewOverrideService creates an override service. pageKey is the page an
// actor must hold to change overrides.
func NewOverrideService(
	repos *repositories.Repositories,
	resolver *Resolver,
	invalidator *Invalidator,
	activity ActivityRecorder,
	pageKey string,
	logger *zap.Logger,
) *OverrideService {
	return &OverrideService{
		overrides:   repos.PageOverrides,
		accounts:    repos.AdminAccounts,
		pages:       repos.Pages,
		resolver:    resolver,
		invalidator: invalidator,
		activity:    recorderOrNop(activity),
		pageKey:     pageKey,
		logger:      logger,
	}
}

// Get returns the admin's override keys, empty when none are stored
func (s *OverrideService) Get(ctx context.Context, adminID uuid.UUID) ([]string, error) {
	override, err := s.overrides.GetByAdminID(ctx, adminID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return []string{}, nil
		}
		return nil, services.ErrStoreUnavailable.Wrap(err)
	}
	return models.NormalizePageKeys(override.PageKeys), nil
}

// Set replaces the admin's full override set
func (s *OverrideService) Set(ctx context.Context, actor services.Actor, adminID uuid.UUID, pageKeys []string) ([]string, error) {
	if err := s.resolver.Authorize(ctx, actor, s.pageKey); err != nil {
		return nil, err
	}

	target, err := s.accounts.GetByID(ctx, adminID)
	if err != nil {
		return nil, services.WrapStore(err, services.ErrAdminNotFound, nil)
	}

	keys, err := validatePageKeys(ctx, s.pages, pageKeys)
	if err != nil {
		return nil, err
	}

	before, err := s.Get(ctx, adminID)
	if err != nil {
		return nil, err
	}

	if err := s.overrides.SetPageKeys(ctx, adminID, keys); err != nil {
		return nil, services.ErrStoreUnavailable.Wrap(err)
	}

	s.invalidator.InvalidateAdmin(ctx, adminID)

	s.logger.Info("Page overrides replaced",
		zap.String("admin_id", adminID.String()),
		zap.Strings("page_keys", keys),
		zap.String("actor", actor.Username),
	)
	s.activity.Record(activity.Entry(actor, models.ActivityActionUpdate, EntityPageOverride).
		Entity(adminID.String()).
		Details(fmt.Sprintf("Updated page overrides for %s", target.Username)).
		Page(s.pageKey).
		Change(before, keys).
		Build())

	return keys, nil
}

// View lists every catalog page with the source of the admin's access to it
func (s *OverrideService) View(ctx context.Context, adminID uuid.UUID) (*OverrideView, error) {
	grant, err := s.resolver.EffectiveKeys(ctx, adminID)
	if err != nil {
		return nil, err
	}

	catalog, err := s.pages.List(ctx)
	if err != nil {
		return nil, services.ErrStoreUnavailable.Wrap(err)
	}

	view := &OverrideView{
		AdminID:      adminID,
		Username:     grant.Account.Username,
		Position:     grant.Account.Position,
		Wildcard:     grant.Wildcard,
		PositionKeys: grant.PositionKeys,
		OverrideKeys: grant.OverrideKeys,
		Pages:        make([]PageAccess, 0, len(catalog)),
	}

	fromPosition := toSet(grant.PositionKeys)
	fromOverride := toSet(grant.OverrideKeys)

	for _, page := range catalog {
		_, p := fromPosition[page.Key]
		_, o := fromOverride[page.Key]
		access := PageAccess{Page: page, Toggleable: !p && !grant.Wildcard}
		switch {
		case grant.Wildcard:
			access.Source = SourcePosition
		case p && o:
			access.Source = SourceBoth
		case p:
			access.Source = SourcePosition
		case o:
			access.Source = SourceOverride
		default:
			access.Source = SourceNone
		}
		view.Pages = append(view.Pages, access)
	}

	view.StaleKeys = models.NewPageIndex(catalog).Unknown(grant.Keys)
	return view, nil
}

func toSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}
