package rbac

import (
	"context"
	"encoding/json"
	"time"

	"github.com/glassline/admin-dashboard/internal/observability"
	"github.com/glassline/admin-dashboard/internal/realtime"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Invalidation scopes
const (
	ScopeAdmin = "admin"
	ScopeAll   = "all"
)

// InvalidationMessage is published on the permissions channel after every
// grant change so other instances drop their cached allow-lists.
type InvalidationMessage struct {
	Scope   string     `json:"scope"`
	AdminID *uuid.UUID `json:"admin_id,omitempty"`
}

// Listener resubscribe backoff bounds
const (
	listenRetryMin = time.Second
	listenRetryMax = 30 * time.Second
)

// Invalidator drops cached allow-lists locally and announces the change
type Invalidator struct {
	cache     *PermissionCache
	publisher realtime.Publisher
	logger    *zap.Logger
}

// NewInvalidator creates an invalidator. publisher may be nil for a single instance.
func NewInvalidator(cache *PermissionCache, publisher realtime.Publisher, logger *zap.Logger) *Invalidator {
	return &Invalidator{
		cache:     cache,
		publisher: publisher,
		logger:    logger,
	}
}

// InvalidateAdmin drops one admin's cached allow-list
func (i *Invalidator) InvalidateAdmin(ctx context.Context, adminID uuid.UUID) {
	if i == nil {
		return
	}
	i.cache.Invalidate(adminID)
	observability.CacheInvalidations.WithLabelValues(ScopeAdmin, "local").Inc()
	i.publish(ctx, InvalidationMessage{Scope: ScopeAdmin, AdminID: &adminID})
}

// InvalidateAll drops every cached allow-list. Position and page catalog
// changes can affect any admin.
func (i *Invalidator) InvalidateAll(ctx context.Context) {
	if i == nil {
		return
	}
	i.cache.Clear()
	observability.CacheInvalidations.WithLabelValues(ScopeAll, "local").Inc()
	i.publish(ctx, InvalidationMessage{Scope: ScopeAll})
}

func (i *Invalidator) publish(ctx context.Context, msg InvalidationMessage) {
	if i.publisher == nil {
		return
	}
	if err := i.publisher.Publish(ctx, realtime.ChannelPermissions, msg); err != nil {
		i.logger.Warn("Failed to publish permission invalidation",
			zap.String("scope", msg.Scope),
			zap.Error(err),
		)
	}
}

// Listen applies invalidations published by other instances until ctx is done
func (i *Invalidator) Listen(ctx context.Context, sub realtime.Subscriber) error {
	return sub.Subscribe(ctx, realtime.ChannelPermissions, i.apply)
}

// Run keeps the listener subscribed until ctx is done, resubscribing with
// backoff whenever the subscription drops. The cache is cleared before each
// resubscribe because messages published in the gap are lost.
func (i *Invalidator) Run(ctx context.Context, sub realtime.Subscriber) {
	i.run(ctx, sub, listenRetryMin, listenRetryMax)
}

func (i *Invalidator) run(ctx context.Context, sub realtime.Subscriber, minDelay, maxDelay time.Duration) {
	delay := minDelay
	for {
		started := time.Now()
		err := i.Listen(ctx, sub)
		if ctx.Err() != nil {
			return
		}

		if time.Since(started) > maxDelay {
			delay = minDelay
		}
		i.cache.Clear()
		i.logger.Warn("Permission invalidation listener dropped, resubscribing",
			zap.Error(err),
			zap.Duration("retry_in", delay),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

func (i *Invalidator) apply(payload []byte) {
	var msg InvalidationMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		i.logger.Warn("Ignoring malformed permission invalidation", zap.Error(err))
		return
	}

	switch msg.Scope {
	case ScopeAdmin:
		if msg.AdminID == nil {
			return
		}
		i.cache.Invalidate(*msg.AdminID)
	case ScopeAll:
		i.cache.Clear()
	default:
		i.logger.Warn("Ignoring unknown invalidation scope", zap.String("scope", msg.Scope))
		return
	}
	observability.CacheInvalidations.WithLabelValues(msg.Scope, "remote").Inc()
}
