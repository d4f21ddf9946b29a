// Package realtime carries the dashboard's push channels: the activity feed
// and cross-instance permission cache invalidation.
package realtime

import (
	"context"
)

// Channel names
const (
	ChannelActivity    = "activity"
	ChannelPermissions = "permissions"
)

// Publisher publishes a JSON-encoded payload on a channel
type Publisher interface {
	Publish(ctx context.Context, channel string, payload interface{}) error
}

// Subscriber delivers raw payloads published on a channel to handler.
// Subscribe blocks until ctx is cancelled or the subscription fails.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error
}

// Hub is both ends of the realtime transport
type Hub interface {
	Publisher
	Subscriber
	Close() error
}
