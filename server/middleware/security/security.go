package security

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

type Config struct {
	// ConnectSources extends the CSP connect-src directive, e.g. for a UI
	// served from another origin that opens the live feed.
	ConnectSources []string

	// Development skips Strict-Transport-Security so plain HTTP works locally.
	Development bool

	// Next skips the middleware when it returns true.
	Next func(c *fiber.Ctx) bool
}

var DefaultConfig = Config{
	ConnectSources: []string{"'self'"},
}

func configDefault(config ...Config) Config {
	if len(config) < 1 {
		return DefaultConfig
	}

	cfg := config[0]
	if len(cfg.ConnectSources) == 0 {
		cfg.ConnectSources = DefaultConfig.ConnectSources
	}
	return cfg
}

// New sets security headers suited to a JSON and websocket API.
func New(config ...Config) fiber.Handler {
	cfg := configDefault(config...)
	csp := buildCSP(cfg)

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		c.Set("Content-Security-Policy", csp)
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "no-referrer")
		c.Set("Cache-Control", "no-store")

		if !cfg.Development {
			c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		return c.Next()
	}
}

func buildCSP(cfg Config) string {
	directives := []string{
		"default-src 'none'",
		"connect-src " + strings.Join(cfg.ConnectSources, " "),
		"frame-ancestors 'none'",
		"base-uri 'none'",
		"form-action 'none'",
	}
	return strings.Join(directives, "; ")
}
