package feed

import (
	"context"
	"time"

	"chatrelay/pkg/logger"
	"chatrelay/services/store"
)

const publishTimeout = 2 * time.Second

// Observer returns a store observer that publishes every stored message.
func Observer(pub Publisher) store.Observer {
	return func(m store.Message) {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := pub.Publish(ctx, MessageEvent(m)); err != nil {
			logger.WithError(err).WithField("message_id", m.ID).Warn("Failed to publish feed event")
		}
	}
}
