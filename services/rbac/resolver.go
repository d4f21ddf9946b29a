// Package rbac resolves what each admin may open in the dashboard and
// manages the data that decision is made from: the page catalog, positions
// and per-admin overrides.
package rbac

import (
	"context"
	"errors"

	"github.com/glassline/admin-dashboard/internal/observability"
	"github.com/glassline/admin-dashboard/models"
	"github.com/glassline/admin-dashboard/repositories"
	"github.com/glassline/admin-dashboard/services"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResolverConfig holds the dashboard routes the resolver always grants
type ResolverConfig struct {
	DashboardRoot    string
	UnauthorizedPath string
}

// EffectiveGrant is the key-level view of an admin's permissions
type EffectiveGrant struct {
	Account      *models.AdminAccount
	Wildcard     bool
	PositionKeys []string
	OverrideKeys []string
	Keys         []string
}

// Has reports whether the grant includes a page key
func (g *EffectiveGrant) Has(key string) bool {
	if g.Wildcard {
		return true
	}
	for _, k := range g.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Resolver computes effective permissions: position grants united with
// override grants, translated to paths through the page catalog.
type Resolver struct {
	accounts  repositories.AdminAccountRepository
	positions repositories.PositionRepository
	overrides repositories.PageOverrideRepository
	pages     repositories.PageRepository
	cfg       ResolverConfig
	cache     *PermissionCache
	logger    *zap.Logger
}

// NewResolver creates a new resolver. cache may be nil.
func NewResolver(repos *repositories.Repositories, cfg ResolverConfig, cache *PermissionCache, logger *zap.Logger) *Resolver {
	return &Resolver{
		accounts:  repos.AdminAccounts,
		positions: repos.Positions,
		overrides: repos.PageOverrides,
		pages:     repos.Pages,
		cfg:       cfg,
		cache:     cache,
		logger:    logger,
	}
}

// Config returns the resolver's route configuration
func (r *Resolver) Config() ResolverConfig {
	return r.cfg
}

// utilityPaths are granted to every admin who resolves at all
func (r *Resolver) utilityPaths() []string {
	return []string{r.cfg.DashboardRoot, r.cfg.UnauthorizedPath}
}

// FailClosed returns the minimal allow-list used when resolution fails
func (r *Resolver) FailClosed() AllowedPaths {
	return NewAllowedPaths(nil, r.utilityPaths())
}

// ResolveAllowedPaths returns the paths an admin may navigate to. It never
// returns an error: a missing admin or an unreachable store resolves to the
// utility paths only, and such results are not cached.
func (r *Resolver) ResolveAllowedPaths(ctx context.Context, adminID uuid.UUID) AllowedPaths {
	if cached, ok := r.cache.Get(adminID); ok {
		observability.PermissionResolutions.WithLabelValues(observability.OutcomeCacheHit).Inc()
		return cached
	}

	generation := r.cache.Generation()
	grant, err := r.EffectiveKeys(ctx, adminID)
	if err != nil {
		return r.failClosed(adminID, err)
	}

	if grant.Wildcard {
		allowed := WildcardPaths()
		r.cache.Set(adminID, allowed, generation)
		observability.PermissionResolutions.WithLabelValues(observability.OutcomeWildcard).Inc()
		return allowed
	}

	catalog, err := r.pages.List(ctx)
	if err != nil {
		return r.failClosed(adminID, services.ErrStoreUnavailable.Wrap(err))
	}
	index := models.NewPageIndex(catalog)

	paths := make([]string, 0, len(grant.Keys))
	for _, key := range grant.Keys {
		page, ok := index[key]
		if !ok {
			// Stale grants for pages no longer in the catalog grant nothing
			continue
		}
		paths = append(paths, page.Path)
	}

	allowed := NewAllowedPaths(paths, r.utilityPaths())
	r.cache.Set(adminID, allowed, generation)
	observability.PermissionResolutions.WithLabelValues(observability.OutcomeGranted).Inc()
	return allowed
}

func (r *Resolver) failClosed(adminID uuid.UUID, err error) AllowedPaths {
	r.logger.Warn("Permission resolution failed closed",
		zap.String("admin_id", adminID.String()),
		zap.Error(err),
	)
	observability.PermissionResolutions.WithLabelValues(observability.OutcomeFailClosed).Inc()
	return r.FailClosed()
}

// EffectiveKeys returns the admin's position keys, override keys and their
// union. Missing positions and overrides contribute nothing.
func (r *Resolver) EffectiveKeys(ctx context.Context, adminID uuid.UUID) (*EffectiveGrant, error) {
	account, err := r.accounts.GetByID(ctx, adminID)
	if err != nil {
		return nil, services.WrapStore(err, services.ErrAdminNotFound, nil)
	}

	grant := &EffectiveGrant{
		Account:      account,
		PositionKeys: []string{},
		OverrideKeys: []string{},
		Keys:         []string{},
	}
	if account.IsSuperadmin() {
		grant.Wildcard = true
		return grant, nil
	}

	if account.Position != "" {
		position, err := r.positions.GetByName(ctx, account.Position)
		switch {
		case err == nil:
			grant.PositionKeys = models.NormalizePageKeys(position.PageKeys)
		case errors.Is(err, repositories.ErrNotFound):
			// Orphaned position reference
		default:
			return nil, services.ErrStoreUnavailable.Wrap(err)
		}
	}

	override, err := r.overrides.GetByAdminID(ctx, adminID)
	switch {
	case err == nil:
		grant.OverrideKeys = models.NormalizePageKeys(override.PageKeys)
	case errors.Is(err, repositories.ErrNotFound):
	default:
		return nil, services.ErrStoreUnavailable.Wrap(err)
	}

	grant.Keys = models.UnionPageKeys(grant.PositionKeys, grant.OverrideKeys)
	return grant, nil
}

// HasPage reports whether the admin is granted a page key. Store failures
// are returned so callers can tell denial from unavailability.
func (r *Resolver) HasPage(ctx context.Context, adminID uuid.UUID, key string) (bool, error) {
	grant, err := r.EffectiveKeys(ctx, adminID)
	if err != nil {
		return false, err
	}
	return grant.Has(key), nil
}

// Authorize returns nil when the actor holds pageKey. It always reads
// fresh grants so a revocation applies to the very next write.
func (r *Resolver) Authorize(ctx context.Context, actor services.Actor, pageKey string) error {
	if actor.IsSystem() {
		return nil
	}
	ok, err := r.HasPage(ctx, actor.ID, pageKey)
	if err != nil {
		if services.IsNotFoundError(err) {
			return services.ErrUnauthorized.Wrap(err)
		}
		return err
	}
	if !ok {
		return services.ErrInsufficientPermissions.WithMessage("access to %q is required", pageKey)
	}
	return nil
}

// RequireSuperadmin returns nil when the actor has wildcard access
func (r *Resolver) RequireSuperadmin(ctx context.Context, actor services.Actor) error {
	if actor.IsSystem() {
		return nil
	}
	grant, err := r.EffectiveKeys(ctx, actor.ID)
	if err != nil {
		if services.IsNotFoundError(err) {
			return services.ErrUnauthorized.Wrap(err)
		}
		return err
	}
	if !grant.Wildcard {
		return services.ErrSuperadminRequired
	}
	return nil
}
