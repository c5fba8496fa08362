package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"chatrelay/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Publisher accepts feed events.
type Publisher interface {
	Publish(ctx context.Context, ev *Event) error
}

// RedisBridge publishes events to a Redis channel and relays everything
// received on that channel into the local hub, so every replica's clients
// see every replica's messages.
type RedisBridge struct {
	rdb     *redis.Client
	channel string
	hub     *Hub

	pubsub *redis.PubSub
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRedisBridge subscribes to channel and starts relaying into hub.
func NewRedisBridge(ctx context.Context, rdb *redis.Client, channel string, hub *Hub) (*RedisBridge, error) {
	pubsub := rdb.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	b := &RedisBridge{
		rdb:     rdb,
		channel: channel,
		hub:     hub,
		pubsub:  pubsub,
		cancel:  cancel,
	}

	b.wg.Add(1)
	go b.relay(bgCtx)

	return b, nil
}

func (b *RedisBridge) Publish(ctx context.Context, ev *Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, payload).Err()
}

func (b *RedisBridge) relay(ctx context.Context) {
	defer b.wg.Done()

	ch := b.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.WithError(err).Warn("Dropping malformed feed event")
				continue
			}
			b.hub.Publish(ctx, &ev)
		}
	}
}

func (b *RedisBridge) Close() error {
	b.cancel()
	err := b.pubsub.Close()
	b.wg.Wait()
	return err
}
