package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glassline/admin-dashboard/internal/realtime"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPermissionCache_GetSet(t *testing.T) {
	cache := NewPermissionCache(10, time.Minute)
	id := uuid.New()

	_, ok := cache.Get(id)
	assert.False(t, ok)

	cache.Set(id, WildcardPaths(), cache.Generation())
	got, ok := cache.Get(id)
	require.True(t, ok)
	assert.True(t, got.IsWildcard())

	stats := cache.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate)
	assert.Equal(t, 1, stats.Size)
}

func TestPermissionCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewPermissionCache(2, time.Minute)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	cache.Set(a, WildcardPaths(), cache.Generation())
	cache.Set(b, WildcardPaths(), cache.Generation())
	_, _ = cache.Get(a)
	cache.Set(c, WildcardPaths(), cache.Generation())

	_, okA := cache.Get(a)
	_, okB := cache.Get(b)
	_, okC := cache.Get(c)
	assert.True(t, okA)
	assert.False(t, okB)
	assert.True(t, okC)
}

func TestPermissionCache_Expiry(t *testing.T) {
	cache := NewPermissionCache(10, 20*time.Millisecond)
	id := uuid.New()
	cache.Set(id, WildcardPaths(), cache.Generation())
	cache.Set(uuid.New(), WildcardPaths(), cache.Generation())

	time.Sleep(40 * time.Millisecond)

	_, ok := cache.Get(id)
	assert.False(t, ok)
	assert.Equal(t, 1, cache.CleanupExpired())
	assert.Equal(t, 0, cache.Stats().Size)
}

func TestPermissionCache_SetAfterInvalidationIsDropped(t *testing.T) {
	cache := NewPermissionCache(10, time.Minute)
	id := uuid.New()

	generation := cache.Generation()
	cache.Invalidate(id)
	cache.Set(id, WildcardPaths(), generation)

	_, ok := cache.Get(id)
	assert.False(t, ok)

	generation = cache.Generation()
	cache.Clear()
	cache.Set(id, WildcardPaths(), generation)

	_, ok = cache.Get(id)
	assert.False(t, ok)

	cache.Set(id, WildcardPaths(), cache.Generation())
	_, ok = cache.Get(id)
	assert.True(t, ok)
}

func TestPermissionCache_ZeroTTLDisables(t *testing.T) {
	cache := NewPermissionCache(10, 0)
	id := uuid.New()

	cache.Set(id, WildcardPaths(), cache.Generation())
	_, ok := cache.Get(id)

	assert.False(t, cache.Enabled())
	assert.False(t, ok)
}

func TestPermissionCache_NilIsSafe(t *testing.T) {
	var cache *PermissionCache

	cache.Set(uuid.New(), WildcardPaths(), cache.Generation())
	_, ok := cache.Get(uuid.New())
	cache.Invalidate(uuid.New())
	cache.Clear()

	assert.False(t, ok)
}

type capturePublisher struct {
	channel string
	payload interface{}
}

func (p *capturePublisher) Publish(ctx context.Context, channel string, payload interface{}) error {
	p.channel = channel
	p.payload = payload
	return nil
}

func TestInvalidator_PublishesChanges(t *testing.T) {
	cache := NewPermissionCache(10, time.Minute)
	pub := &capturePublisher{}
	inv := NewInvalidator(cache, pub, zap.NewNop())
	id := uuid.New()
	cache.Set(id, WildcardPaths(), cache.Generation())

	inv.InvalidateAdmin(context.Background(), id)

	_, ok := cache.Get(id)
	assert.False(t, ok)
	assert.Equal(t, realtime.ChannelPermissions, pub.channel)
	msg, isMsg := pub.payload.(InvalidationMessage)
	require.True(t, isMsg)
	assert.Equal(t, ScopeAdmin, msg.Scope)
	assert.Equal(t, id, *msg.AdminID)
}

func TestInvalidator_AppliesRemoteMessages(t *testing.T) {
	hub := realtime.NewLocalHub()
	defer hub.Close()

	local := NewPermissionCache(10, time.Minute)
	remote := NewPermissionCache(10, time.Minute)
	listener := NewInvalidator(local, hub, zap.NewNop())
	announcer := NewInvalidator(remote, hub, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = listener.Listen(ctx, hub) }()
	require.Eventually(t, func() bool {
		return hub.Subscribers(realtime.ChannelPermissions) == 1
	}, time.Second, 5*time.Millisecond)

	kept, dropped := uuid.New(), uuid.New()
	local.Set(kept, WildcardPaths(), local.Generation())
	local.Set(dropped, WildcardPaths(), local.Generation())

	announcer.InvalidateAdmin(ctx, dropped)

	require.Eventually(t, func() bool {
		return local.Stats().Size == 1
	}, time.Second, 5*time.Millisecond)
	_, ok := local.Get(kept)
	assert.True(t, ok)

	announcer.InvalidateAll(ctx)
	require.Eventually(t, func() bool {
		return local.Stats().Size == 0
	}, time.Second, 5*time.Millisecond)
}

func TestInvalidator_IgnoresMalformedMessages(t *testing.T) {
	cache := NewPermissionCache(10, time.Minute)
	inv := NewInvalidator(cache, nil, zap.NewNop())
	cache.Set(uuid.New(), WildcardPaths(), cache.Generation())

	inv.apply([]byte("not json"))
	payload, err := json.Marshal(InvalidationMessage{Scope: "galaxy"})
	require.NoError(t, err)
	inv.apply(payload)
	payload, err = json.Marshal(InvalidationMessage{Scope: ScopeAdmin})
	require.NoError(t, err)
	inv.apply(payload)

	assert.Equal(t, 1, cache.Stats().Size)
}

// droppingSubscriber fails the first failures subscriptions, then delivers
// payload once and holds the subscription until ctx is done.
type droppingSubscriber struct {
	mu       sync.Mutex
	attempts int
	failures int
	payload  []byte
}

func (s *droppingSubscriber) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error {
	s.mu.Lock()
	s.attempts++
	attempt := s.attempts
	s.mu.Unlock()

	if attempt <= s.failures {
		return errors.New("connection reset")
	}
	handler(s.payload)
	<-ctx.Done()
	return ctx.Err()
}

func (s *droppingSubscriber) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func TestInvalidator_RunResubscribesAfterDrop(t *testing.T) {
	cache := NewPermissionCache(10, time.Minute)
	inv := NewInvalidator(cache, nil, zap.NewNop())

	stale, target := uuid.New(), uuid.New()
	cache.Set(stale, WildcardPaths(), cache.Generation())

	payload, err := json.Marshal(InvalidationMessage{Scope: ScopeAdmin, AdminID: &target})
	require.NoError(t, err)
	sub := &droppingSubscriber{failures: 2, payload: payload}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		inv.run(ctx, sub, time.Millisecond, 5*time.Millisecond)
	}()

	require.Eventually(t, func() bool { return sub.count() == 3 }, time.Second, time.Millisecond)
	_, ok := cache.Get(stale)
	assert.False(t, ok)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop after cancellation")
	}
	assert.Equal(t, 3, sub.count())
}
