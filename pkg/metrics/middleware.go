package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HTTPMetricsMiddleware tracks HTTP request metrics
func HTTPMetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		method := c.Method()
		path := sanitizePath(c.Path())

		HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()

		return err
	}
}

// sanitizePath keeps label cardinality bounded
func sanitizePath(path string) string {
	path = strings.TrimSuffix(path, "/")

	switch path {
	case "/api/v1/webhook",
		"/api/v1/messages",
		"/api/v1/messages/send",
		"/api/v1/messages/previews",
		"/api/v1/chats/active",
		"/api/v1/ai/suggest",
		"/api/v1/debug/config",
		"/health", "/health/ready", "/health/live",
		"/metrics", "/ws/feed":
		return path
	case "":
		return "/"
	default:
		return "/other"
	}
}
