package feed

import (
	"context"
	"os"
	"testing"
	"time"

	"chatrelay/services/store"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping Redis test in short mode")
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		t.Skipf("Redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestRedisBridgeRelaysToHub(t *testing.T) {
	rdb := testRedis(t)

	h := NewHub()
	defer h.Close()

	c := NewClient(nil, "")
	registered(t, h, c)

	channel := "relay:test:" + c.ID
	bridge, err := NewRedisBridge(context.Background(), rdb, channel, h)
	require.NoError(t, err)
	defer bridge.Close()

	msg := store.Message{ID: "m1", From: "A", To: "B", Body: "via redis", Direction: store.Incoming}
	require.NoError(t, bridge.Publish(context.Background(), MessageEvent(msg)))

	ev := receive(t, c)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "via redis", ev.Message.Body)
	assert.Equal(t, "A", ev.Counterparty)
}
