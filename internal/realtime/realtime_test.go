package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/glassline/admin-dashboard/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalHub_PublishSubscribe(t *testing.T) {
	hub := NewLocalHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan []byte, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Subscribe(ctx, ChannelActivity, func(payload []byte) {
			received <- payload
		})
	}()

	require.Eventually(t, func() bool {
		return hub.Subscribers(ChannelActivity) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Publish(ctx, ChannelActivity, map[string]string{"action": "create"}))
	require.NoError(t, hub.Publish(ctx, ChannelPermissions, map[string]string{"scope": "all"}))

	select {
	case payload := <-received:
		assert.JSONEq(t, `{"action":"create"}`, string(payload))
	case <-time.After(time.Second):
		t.Fatal("expected a message on the activity channel")
	}

	cancel()
	<-done
	assert.Equal(t, 0, hub.Subscribers(ChannelActivity))
}

func TestLocalHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewLocalHub()
	assert.NoError(t, hub.Publish(context.Background(), ChannelActivity, "x"))
}

func TestLocalHub_Closed(t *testing.T) {
	hub := NewLocalHub()
	require.NoError(t, hub.Close())

	assert.Error(t, hub.Publish(context.Background(), ChannelActivity, "x"))
	assert.Error(t, hub.Subscribe(context.Background(), ChannelActivity, func([]byte) {}))
}

func TestLocalHub_RejectsUnencodablePayload(t *testing.T) {
	hub := NewLocalHub()
	err := hub.Publish(context.Background(), ChannelActivity, make(chan int))
	assert.Error(t, err)
}

func TestRedisHub_ChannelName(t *testing.T) {
	hub := &RedisHub{prefix: "admin-dashboard", logger: zap.NewNop()}
	assert.Equal(t, "admin-dashboard:activity", hub.channelName(ChannelActivity))

	hub.prefix = ""
	assert.Equal(t, "permissions", hub.channelName(ChannelPermissions))
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	client, err := NewRedisClient(config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
	assert.Nil(t, client)
}
