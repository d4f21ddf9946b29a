package rbac

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/glassline/admin-dashboard/models"
	"github.com/glassline/admin-dashboard/repositories"
	"github.com/glassline/admin-dashboard/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStore is an in-memory backing store for the repository fakes
type memStore struct {
	mu        sync.Mutex
	pages     map[string]*models.Page
	positions map[uuid.UUID]*models.Position
	accounts  map[uuid.UUID]*models.AdminAccount
	overrides map[uuid.UUID][]string

	failWith error
	calls    int
	writes   int
}

func newMemStore() *memStore {
	return &memStore{
		pages:     make(map[string]*models.Page),
		positions: make(map[uuid.UUID]*models.Position),
		accounts:  make(map[uuid.UUID]*models.AdminAccount),
		overrides: make(map[uuid.UUID][]string),
	}
}

func (s *memStore) enter(write bool) error {
	s.calls++
	if write {
		s.writes++
	}
	return s.failWith
}

func (s *memStore) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *memStore) counts() (calls, writes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, s.writes
}

func (s *memStore) repositories() *repositories.Repositories {
	return &repositories.Repositories{
		Pages:         &memPages{s},
		Positions:     &memPositions{s},
		AdminAccounts: &memAccounts{s},
		PageOverrides: &memOverrides{s},
	}
}

func (s *memStore) addPages(pages ...*models.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pages {
		s.pages[p.Key] = p
	}
}

func (s *memStore) addPosition(name string, keys ...string) *models.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.NewPosition(name, "")
	p.PageKeys = models.NormalizePageKeys(keys)
	s.positions[p.ID] = p
	return p
}

func (s *memStore) addAccount(username string, role models.AdminRole, position string) *models.AdminAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := models.NewAdminAccount(username, "hash", role, position, "")
	s.accounts[a.ID] = a
	return a
}

func (s *memStore) setOverride(adminID uuid.UUID, keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[adminID] = models.NormalizePageKeys(keys)
}

func (s *memStore) positionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.positions)
}

func clonePosition(p *models.Position) *models.Position {
	c := *p
	c.PageKeys = append([]string{}, p.PageKeys...)
	return &c
}

type memPages struct{ s *memStore }

func (r *memPages) List(ctx context.Context) ([]*models.Page, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(false); err != nil {
		return nil, err
	}
	out := make([]*models.Page, 0, len(r.s.pages))
	for _, p := range r.s.pages {
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func (r *memPages) GetByKey(ctx context.Context, key string) (*models.Page, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(false); err != nil {
		return nil, err
	}
	p, ok := r.s.pages[key]
	if !ok {
		return nil, fmt.Errorf("page %s: %w", key, repositories.ErrNotFound)
	}
	c := *p
	return &c, nil
}

func (r *memPages) Upsert(ctx context.Context, page *models.Page) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(true); err != nil {
		return err
	}
	c := *page
	r.s.pages[page.Key] = &c
	return nil
}

type memPositions struct{ s *memStore }

func (r *memPositions) find(match func(*models.Position) bool) (*models.Position, error) {
	for _, p := range r.s.positions {
		if match(p) {
			return clonePosition(p), nil
		}
	}
	return nil, fmt.Errorf("position: %w", repositories.ErrNotFound)
}

func (r *memPositions) GetByName(ctx context.Context, name string) (*models.Position, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(false); err != nil {
		return nil, err
	}
	return r.find(func(p *models.Position) bool { return p.Name == name })
}

func (r *memPositions) GetByNormalizedName(ctx context.Context, normalized string) (*models.Position, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(false); err != nil {
		return nil, err
	}
	return r.find(func(p *models.Position) bool { return p.NormalizedName() == normalized })
}

func (r *memPositions) List(ctx context.Context) ([]*models.Position, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(false); err != nil {
		return nil, err
	}
	out := make([]*models.Position, 0, len(r.s.positions))
	for _, p := range r.s.positions {
		out = append(out, clonePosition(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memPositions) Create(ctx context.Context, position *models.Position) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(true); err != nil {
		return err
	}
	for _, p := range r.s.positions {
		if p.NormalizedName() == position.NormalizedName() {
			return fmt.Errorf("position %s: %w", position.Name, repositories.ErrDuplicate)
		}
	}
	r.s.positions[position.ID] = clonePosition(position)
	return nil
}

func (r *memPositions) Update(ctx context.Context, position *models.Position) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(true); err != nil {
		return err
	}
	existing, ok := r.s.positions[position.ID]
	if !ok {
		return fmt.Errorf("position %s: %w", position.ID, repositories.ErrNotFound)
	}
	existing.Name = position.Name
	existing.Description = position.Description
	existing.UpdatedAt = time.Now()
	return nil
}

func (r *memPositions) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(true); err != nil {
		return err
	}
	if _, ok := r.s.positions[id]; !ok {
		return fmt.Errorf("position %s: %w", id, repositories.ErrNotFound)
	}
	delete(r.s.positions, id)
	return nil
}

func (r *memPositions) SetPageKeys(ctx context.Context, positionID uuid.UUID, pageKeys []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(true); err != nil {
		return err
	}
	p, ok := r.s.positions[positionID]
	if !ok {
		return fmt.Errorf("position %s: %w", positionID, repositories.ErrNotFound)
	}
	p.PageKeys = models.NormalizePageKeys(pageKeys)
	return nil
}

type memAccounts struct{ s *memStore }

func (r *memAccounts) GetByID(ctx context.Context, id uuid.UUID) (*models.AdminAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(false); err != nil {
		return nil, err
	}
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("admin account %s: %w", id, repositories.ErrNotFound)
	}
	c := *a
	return &c, nil
}

func (r *memAccounts) GetByUsername(ctx context.Context, username string) (*models.AdminAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(false); err != nil {
		return nil, err
	}
	for _, a := range r.s.accounts {
		if a.Username == username {
			c := *a
			return &c, nil
		}
	}
	return nil, fmt.Errorf("admin account %s: %w", username, repositories.ErrNotFound)
}

func (r *memAccounts) List(ctx context.Context) ([]*models.AdminAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(false); err != nil {
		return nil, err
	}
	out := make([]*models.AdminAccount, 0, len(r.s.accounts))
	for _, a := range r.s.accounts {
		c := *a
		out = append(out, &c)
	}
	return out, nil
}

func (r *memAccounts) Create(ctx context.Context, account *models.AdminAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(true); err != nil {
		return err
	}
	c := *account
	r.s.accounts[account.ID] = &c
	return nil
}

func (r *memAccounts) Update(ctx context.Context, account *models.AdminAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(true); err != nil {
		return err
	}
	if _, ok := r.s.accounts[account.ID]; !ok {
		return fmt.Errorf("admin account %s: %w", account.ID, repositories.ErrNotFound)
	}
	c := *account
	r.s.accounts[account.ID] = &c
	return nil
}

func (r *memAccounts) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(true); err != nil {
		return err
	}
	a, ok := r.s.accounts[id]
	if !ok {
		return fmt.Errorf("admin account %s: %w", id, repositories.ErrNotFound)
	}
	now := time.Now()
	a.LastLogin = &now
	return nil
}

type memOverrides struct{ s *memStore }

func (r *memOverrides) GetByAdminID(ctx context.Context, adminID uuid.UUID) (*models.AdminPageOverride, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(false); err != nil {
		return nil, err
	}
	keys, ok := r.s.overrides[adminID]
	if !ok {
		return nil, fmt.Errorf("override %s: %w", adminID, repositories.ErrNotFound)
	}
	return models.NewAdminPageOverride(adminID, keys), nil
}

func (r *memOverrides) SetPageKeys(ctx context.Context, adminID uuid.UUID, pageKeys []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(true); err != nil {
		return err
	}
	r.s.overrides[adminID] = models.NormalizePageKeys(pageKeys)
	return nil
}

// memTxManager runs the function directly; the fakes have no rollback
type memTxManager struct{}

type memTx struct{ ctx context.Context }

func (t memTx) Commit() error { return nil }
func (t memTx) Rollback() error { return nil }
func (t memTx) Context() context.Context { return t.ctx }

func (memTxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return memTx{ctx: ctx}, nil
}

func (m memTxManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	return fn(ctx, memTx{ctx: ctx})
}

type recordedActivity struct {
	mu      sync.Mutex
	entries []*models.ActivityLog
}

func (r *recordedActivity) Record(entry *models.ActivityLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordedActivity) all() []*models.ActivityLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.ActivityLog{}, r.entries...)
}

const (
	testRoot         = "/dashboard"
	testUnauthorized = "/dashboard/unauthorized"
)

type fixture struct {
	store       *memStore
	cache       *PermissionCache
	resolver    *Resolver
	invalidator *Invalidator
	guard       *Guard
	positions   *PositionService
	overrides   *OverrideService
	pages       *PageService
	activity    *recordedActivity

	superadmin services.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := zap.NewNop()
	store := newMemStore()
	store.addPages(DefaultPages(testRoot)...)

	repos := store.repositories()
	cache := NewPermissionCache(100, time.Minute)
	resolver := NewResolver(repos, ResolverConfig{
		DashboardRoot:    testRoot,
		UnauthorizedPath: testUnauthorized,
	}, cache, logger)
	invalidator := NewInvalidator(cache, nil, logger)
	activity := &recordedActivity{}

	root := store.addAccount("root", models.RoleSuperadmin, "Superadmin")

	f := &fixture{
		store:       store,
		cache:       cache,
		resolver:    resolver,
		invalidator: invalidator,
		guard:       NewGuard(resolver),
		positions:   NewPositionService(repos, memTxManager{}, resolver, invalidator, activity, "positions", logger),
		overrides:   NewOverrideService(repos, resolver, invalidator, activity, "page-access", logger),
		pages:       NewPageService(repos, memTxManager{}, resolver, invalidator, activity, "positions", logger),
		activity:    activity,
		superadmin:  services.Actor{ID: root.ID, Username: root.Username},
	}
	return f
}

func actorFor(a *models.AdminAccount) services.Actor {
	return services.Actor{ID: a.ID, Username: a.Username}
}

func pagePaths(keys ...string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, testRoot+"/"+k)
	}
	return out
}

func requireDomainError(t *testing.T, err error, target *services.DomainError) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, target, "got %v", err)
}
