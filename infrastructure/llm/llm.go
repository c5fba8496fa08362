package llm

import (
	"fmt"

	"chatrelay/config"
	"chatrelay/infrastructure/llm/gemini"
	"chatrelay/infrastructure/llm/ollama"
	"chatrelay/services/assistant"
)

// NewGenerator builds the generator for the configured provider. It returns a
// nil generator for ProviderNone and for gemini without an API key, which
// leaves the orchestrator serving fallbacks.
func NewGenerator(cfg config.LLMConfig) (assistant.Generator, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		if cfg.APIKey == "" {
			return nil, nil
		}
		c, err := gemini.New(gemini.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.ProviderOllama:
		c, err := ollama.New(ollama.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.ProviderNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
