package handlers

import (
	"chatrelay/services/feed"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// HandleFeedUpgrade rejects plain HTTP requests to the feed endpoint.
func HandleFeedUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// HandleFeed streams stored messages to the client. ?counterparty= limits
// the stream to one conversation.
func HandleFeed(hub *feed.Hub) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		client := feed.NewClient(conn, conn.Query("counterparty"))
		client.Serve(hub)
	})
}
