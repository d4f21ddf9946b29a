package rbac

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/glassline/admin-dashboard/models"
	"github.com/glassline/admin-dashboard/repositories"
	"github.com/glassline/admin-dashboard/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResolver_PositionOnly(t *testing.T) {
	f := newFixture(t)
	f.store.addPosition("Manager", "orders", "calendar")
	admin := f.store.addAccount("ana", models.RoleManager, "Manager")

	allowed := f.resolver.ResolveAllowedPaths(context.Background(), admin.ID)

	expected := append(pagePaths("orders", "calendar"), testRoot, testUnauthorized)
	assert.ElementsMatch(t, expected, allowed.List())
	assert.True(t, allowed.Allows("/dashboard/orders/123"))
	assert.False(t, allowed.Allows("/dashboard/faqs"))
}

func TestResolver_PositionUnionOverride(t *testing.T) {
	f := newFixture(t)
	f.store.addPosition("Manager", "orders", "calendar")
	admin := f.store.addAccount("ana", models.RoleManager, "Manager")
	f.store.setOverride(admin.ID, "faqs")

	allowed := f.resolver.ResolveAllowedPaths(context.Background(), admin.ID)

	expected := append(pagePaths("orders", "calendar", "faqs"), testRoot, testUnauthorized)
	assert.ElementsMatch(t, expected, allowed.List())
}

func TestResolver_OverlappingGrantsAppearOnce(t *testing.T) {
	f := newFixture(t)
	f.store.addPosition("Manager", "orders", "calendar")
	admin := f.store.addAccount("ana", models.RoleManager, "Manager")
	f.store.setOverride(admin.ID, "orders", "reports")

	grant, err := f.resolver.EffectiveKeys(context.Background(), admin.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"calendar", "orders"}, grant.PositionKeys)
	assert.Equal(t, []string{"orders", "reports"}, grant.OverrideKeys)
	assert.Equal(t, []string{"calendar", "orders", "reports"}, grant.Keys)
	assert.False(t, grant.Wildcard)
}

func TestResolver_SuperadminWildcard(t *testing.T) {
	tests := []struct {
		name     string
		role     models.AdminRole
		position string
	}{
		{"role mixed case", models.AdminRole("SuperAdmin"), "Employee"},
		{"role with space", models.AdminRole("Super Admin"), ""},
		{"position hyphenated", models.RoleEmployee, "super-admin"},
		{"position upper snake", models.RoleManager, "SUPER_ADMIN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.store.addPosition("Employee")
			admin := f.store.addAccount("boss", tt.role, tt.position)

			allowed := f.resolver.ResolveAllowedPaths(context.Background(), admin.ID)

			assert.True(t, allowed.IsWildcard())
			assert.Equal(t, []string{"*"}, allowed.List())
		})
	}
}

func TestResolver_UnknownAdminFailsClosed(t *testing.T) {
	f := newFixture(t)

	allowed := f.resolver.ResolveAllowedPaths(context.Background(), uuid.New())

	assert.Equal(t, []string{testRoot, testUnauthorized}, allowed.List())
	assert.False(t, allowed.IsWildcard())
}

func TestResolver_StoreFailureFailsClosed(t *testing.T) {
	f := newFixture(t)
	admin := f.store.addAccount("boss", models.RoleSuperadmin, "")
	f.store.fail(errors.New("connection refused"))

	allowed := f.resolver.ResolveAllowedPaths(context.Background(), admin.ID)

	assert.False(t, allowed.IsWildcard(), "store failure must never grant the wildcard")
	assert.Equal(t, []string{testRoot, testUnauthorized}, allowed.List())

	// Fail-closed results are not cached
	f.store.fail(nil)
	allowed = f.resolver.ResolveAllowedPaths(context.Background(), admin.ID)
	assert.True(t, allowed.IsWildcard())
}

func TestResolver_OrphanedPositionGrantsOverridesOnly(t *testing.T) {
	f := newFixture(t)
	admin := f.store.addAccount("ana", models.RoleManager, "Deleted Position")
	f.store.setOverride(admin.ID, "faqs")

	allowed := f.resolver.ResolveAllowedPaths(context.Background(), admin.ID)

	assert.ElementsMatch(t, []string{"/dashboard/faqs", testRoot, testUnauthorized}, allowed.List())
}

func TestResolver_PositionMatchesExactStoredName(t *testing.T) {
	f := newFixture(t)
	f.store.addPosition("Manager", "orders")
	admin := f.store.addAccount("ana", models.RoleManager, "manager")

	allowed := f.resolver.ResolveAllowedPaths(context.Background(), admin.ID)

	assert.Equal(t, []string{testRoot, testUnauthorized}, allowed.List())
}

func TestResolver_StaleKeysAreDropped(t *testing.T) {
	f := newFixture(t)
	f.store.addPosition("Manager", "orders", "retired-page")
	admin := f.store.addAccount("ana", models.RoleManager, "Manager")

	allowed := f.resolver.ResolveAllowedPaths(context.Background(), admin.ID)

	assert.ElementsMatch(t, []string{"/dashboard/orders", testRoot, testUnauthorized}, allowed.List())
}

func TestResolver_CachesSuccessfulResolutions(t *testing.T) {
	f := newFixture(t)
	f.store.addPosition("Manager", "orders")
	admin := f.store.addAccount("ana", models.RoleManager, "Manager")
	ctx := context.Background()

	first := f.resolver.ResolveAllowedPaths(ctx, admin.ID)
	callsAfterFirst, _ := f.store.counts()

	second := f.resolver.ResolveAllowedPaths(ctx, admin.ID)
	callsAfterSecond, _ := f.store.counts()

	assert.Equal(t, first.List(), second.List())
	assert.Equal(t, callsAfterFirst, callsAfterSecond)
	assert.Equal(t, uint64(1), f.cache.Stats().Hits)

	f.invalidator.InvalidateAdmin(ctx, admin.ID)
	f.resolver.ResolveAllowedPaths(ctx, admin.ID)
	callsAfterInvalidate, _ := f.store.counts()
	assert.Greater(t, callsAfterInvalidate, callsAfterSecond)
}

// blockingPages holds the first List call until release is closed
type blockingPages struct {
	repositories.PageRepository
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingPages) List(ctx context.Context) ([]*models.Page, error) {
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
	return b.PageRepository.List(ctx)
}

func TestResolver_RevocationDuringResolutionIsNotCached(t *testing.T) {
	f := newFixture(t)
	admin := f.store.addAccount("ana", models.RoleEmployee, "")
	f.store.setOverride(admin.ID, "reports")
	ctx := context.Background()

	repos := f.store.repositories()
	pages := &blockingPages{
		PageRepository: repos.Pages,
		entered:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	repos.Pages = pages
	slow := NewResolver(repos, ResolverConfig{
		DashboardRoot:    testRoot,
		UnauthorizedPath: testUnauthorized,
	}, f.cache, zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		slow.ResolveAllowedPaths(ctx, admin.ID)
	}()
	<-pages.entered

	_, err := f.overrides.Set(ctx, f.superadmin, admin.ID, []string{})
	require.NoError(t, err)

	close(pages.release)
	<-done

	allowed := f.resolver.ResolveAllowedPaths(ctx, admin.ID)
	assert.False(t, allowed.Allows(testRoot+"/reports"))
}

func TestResolver_HasPage(t *testing.T) {
	f := newFixture(t)
	f.store.addPosition("Manager", "orders")
	admin := f.store.addAccount("ana", models.RoleManager, "Manager")
	ctx := context.Background()

	ok, err := f.resolver.HasPage(ctx, admin.ID, "orders")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.resolver.HasPage(ctx, admin.ID, "positions")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.resolver.HasPage(ctx, f.superadmin.ID, "positions")
	require.NoError(t, err)
	assert.True(t, ok)

	f.store.fail(errors.New("timeout"))
	_, err = f.resolver.HasPage(ctx, admin.ID, "orders")
	requireDomainError(t, err, services.ErrStoreUnavailable)
}

func TestResolver_Authorize(t *testing.T) {
	f := newFixture(t)
	f.store.addPosition("Manager", "orders")
	admin := f.store.addAccount("ana", models.RoleManager, "Manager")
	ctx := context.Background()

	assert.NoError(t, f.resolver.Authorize(ctx, f.superadmin, "positions"))
	assert.NoError(t, f.resolver.Authorize(ctx, services.SystemActor, "positions"))
	requireDomainError(t, f.resolver.Authorize(ctx, actorFor(admin), "positions"), services.ErrInsufficientPermissions)
	requireDomainError(t, f.resolver.Authorize(ctx, services.Actor{ID: uuid.New()}, "orders"), services.ErrUnauthorized)

	requireDomainError(t, f.resolver.RequireSuperadmin(ctx, actorFor(admin)), services.ErrSuperadminRequired)
	assert.NoError(t, f.resolver.RequireSuperadmin(ctx, f.superadmin))
}
