package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glassline/admin-dashboard/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisHub publishes and subscribes through Redis pub/sub so every API
// instance sees the same activity feed and invalidations.
type RedisHub struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisClient creates a client and pings it with a short timeout
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewRedisHub wraps a connected client
func NewRedisHub(client *redis.Client, prefix string, logger *zap.Logger) *RedisHub {
	return &RedisHub{client: client, prefix: prefix, logger: logger}
}

func (h *RedisHub) channelName(channel string) string {
	if h.prefix == "" {
		return channel
	}
	return h.prefix + ":" + channel
}

// Publish JSON-encodes payload and publishes it
func (h *RedisHub) Publish(ctx context.Context, channel string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode realtime payload: %w", err)
	}
	if err := h.client.Publish(ctx, h.channelName(channel), data).Err(); err != nil {
		return fmt.Errorf("failed to publish on %s: %w", channel, err)
	}
	return nil
}

// Subscribe forwards messages to handler until ctx is done
func (h *RedisHub) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error {
	name := h.channelName(channel)
	sub := h.client.Subscribe(ctx, name)
	defer sub.Close()

	// Wait for the subscription confirmation so early publishes are not lost
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to subscribe to %s: %w", name, err)
	}

	h.logger.Debug("subscribed to realtime channel", zap.String("channel", name))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			handler([]byte(msg.Payload))
		}
	}
}

// Close closes the underlying client
func (h *RedisHub) Close() error {
	return h.client.Close()
}
