package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// LocalHub fans messages out to subscribers in the same process. It is used
// when no Redis address is configured.
type LocalHub struct {
	mu     sync.RWMutex
	subs   map[string]map[int]chan []byte
	nextID int
	closed bool
}

// NewLocalHub creates an in-process hub
func NewLocalHub() *LocalHub {
	return &LocalHub{subs: make(map[string]map[int]chan []byte)}
}

// Publish delivers payload to every current subscriber of channel.
// Slow subscribers miss messages rather than block the publisher.
func (h *LocalHub) Publish(ctx context.Context, channel string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode realtime payload: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return fmt.Errorf("realtime hub closed")
	}
	for _, ch := range h.subs[channel] {
		select {
		case ch <- data:
		default:
		}
	}
	return nil
}

// Subscribe registers handler on channel until ctx is done
func (h *LocalHub) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error {
	ch := make(chan []byte, 64)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return fmt.Errorf("realtime hub closed")
	}
	id := h.nextID
	h.nextID++
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[int]chan []byte)
	}
	h.subs[channel][id] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.subs[channel], id)
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case data := <-ch:
			handler(data)
		}
	}
}

// Subscribers reports the number of active subscribers on channel
func (h *LocalHub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channel])
}

// Close stops accepting publishes and subscriptions
func (h *LocalHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}
