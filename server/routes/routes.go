package routes

import (
	"chatrelay/config"
	"chatrelay/server/handlers"
	"chatrelay/services/archive"
	"chatrelay/services/assistant"
	"chatrelay/services/conversations"
	"chatrelay/services/feed"
	"chatrelay/services/relay"
	"chatrelay/services/store"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Dependencies are the services the HTTP boundary calls into. Hub, Feed,
// Redis and Archive are optional.
type Dependencies struct {
	Config        *config.Config
	Store         *store.Store
	Conversations *conversations.Service
	Relay         *relay.Service
	Assistant     *assistant.Orchestrator
	Hub           *feed.Hub
	Feed          feed.Publisher
	Redis         *redis.Client
	Archive       *archive.Archiver
}

func RegisterRoutes(app *fiber.App, deps Dependencies) {
	var archiveMetrics func() map[string]int64
	if deps.Archive != nil {
		archiveMetrics = deps.Archive.GetMetrics
	}

	health := handlers.NewHealthCheckHandler(deps.Store, deps.Assistant, deps.Redis, archiveMetrics)
	app.Get("/health", health.HandleHealthCheck())
	app.Get("/health/ready", health.HandleReadinessCheck())
	app.Get("/health/live", health.HandleLivenessCheck())

	v1 := app.Group("/api/v1")

	v1.Post("/webhook", handlers.HandleWebhook(deps.Relay))

	messages := v1.Group("/messages")
	messages.Get("/", handlers.HandleListMessages(deps.Conversations))
	messages.Delete("/", handlers.HandleClearMessages(deps.Relay, deps.Feed, deps.Config.ClearAllowed()))
	messages.Get("/previews", handlers.HandleListPreviews(deps.Conversations))
	messages.Post("/send", handlers.HandleSendMessage(deps.Relay))

	v1.Get("/chats/active", handlers.HandleActiveChats(deps.Conversations))
	v1.Post("/ai/suggest", handlers.HandleSuggest(deps.Relay))
	v1.Get("/debug/config", handlers.HandleDebugConfig(deps.Config))

	if deps.Hub != nil {
		app.Use("/ws/feed", handlers.HandleFeedUpgrade())
		app.Get("/ws/feed", handlers.HandleFeed(deps.Hub))
	}
}
