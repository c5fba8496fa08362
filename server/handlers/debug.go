package handlers

import (
	"chatrelay/config"

	"github.com/gofiber/fiber/v2"
)

func presence(v string) string {
	if v == "" {
		return "missing"
	}
	return "set"
}

// HandleDebugConfig reports which credentials are configured. Secrets are masked.
func HandleDebugConfig(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var recommendations []string
		if !cfg.CarrierConfigured() {
			recommendations = append(recommendations,
				"Set TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_PHONE_NUMBER to enable outbound sends")
		}
		if cfg.LLM.Provider == config.ProviderGemini && cfg.LLM.APIKey == "" {
			recommendations = append(recommendations,
				"Set GEMINI_API_KEY to enable generated replies; fallback replies are used until then")
		}
		if cfg.Carrier.ChannelPrefix != "" {
			recommendations = append(recommendations,
				"Addresses should look like "+cfg.Carrier.ChannelPrefix+"+1234567890")
		}

		return c.JSON(fiber.Map{
			"success": cfg.CarrierConfigured(),
			"config": fiber.Map{
				"accountSid":   config.MaskSecret(cfg.Carrier.AccountSID),
				"authToken":    presence(cfg.Carrier.AuthToken),
				"phoneNumber":  cfg.Carrier.FromAddress,
				"replyMode":    cfg.Carrier.ReplyMode,
				"llmProvider":  cfg.LLM.Provider,
				"llmModel":     cfg.LLM.Model,
				"llmApiKey":    presence(cfg.LLM.APIKey),
				"redisFeed":    cfg.Redis.Enabled,
				"kafkaTopic":   kafkaTopic(cfg),
				"clearEnabled": cfg.ClearAllowed(),
			},
			"recommendations": recommendations,
		})
	}
}

func kafkaTopic(cfg *config.Config) string {
	if !cfg.Kafka.Enabled {
		return ""
	}
	return cfg.Kafka.Topic
}
