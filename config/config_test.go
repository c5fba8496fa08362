package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("REPLY_MODE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, ReplyModeTwiML, cfg.Carrier.ReplyMode)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, 5, cfg.LLM.HistoryWindow)
	assert.Equal(t, 6, cfg.LLM.SuggestionWindow)
	assert.Equal(t, 1600, cfg.LLM.MaxReplyLength)
	assert.Equal(t, "whatsapp:", cfg.Carrier.ChannelPrefix)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoadOllamaDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("LLM_BASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "llama3.2", cfg.LLM.Model)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.BaseURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("LLM_TIMEOUT", "3s")
	t.Setenv("ENABLE_CLEAR", "true")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.LLM.Timeout)
	assert.True(t, cfg.ClearAllowed())
	assert.False(t, cfg.IsDevelopment())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 3000, Env: "development"},
			Carrier: CarrierConfig{ReplyMode: ReplyModeTwiML, Timeout: time.Second},
			LLM: LLMConfig{
				Provider:         ProviderNone,
				Timeout:          time.Second,
				HistoryWindow:    5,
				SuggestionWindow: 6,
				MaxReplyLength:   1600,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "Valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "Bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "Unknown reply mode",
			mutate:  func(c *Config) { c.Carrier.ReplyMode = "sms" },
			wantErr: "invalid reply mode",
		},
		{
			name:    "API mode without credentials",
			mutate:  func(c *Config) { c.Carrier.ReplyMode = ReplyModeAPI },
			wantErr: "reply mode api requires",
		},
		{
			name:    "Unknown provider",
			mutate:  func(c *Config) { c.LLM.Provider = "gpt" },
			wantErr: "invalid LLM provider",
		},
		{
			name:    "Negative window",
			mutate:  func(c *Config) { c.LLM.HistoryWindow = -1 },
			wantErr: "history window",
		},
		{
			name:    "Zero suggestion window",
			mutate:  func(c *Config) { c.LLM.SuggestionWindow = 0 },
			wantErr: "suggestion window",
		},
		{
			name: "Kafka without topic",
			mutate: func(c *Config) {
				c.Kafka = KafkaConfig{Enabled: true, Address: "localhost:9092", BatchSize: 10}
			},
			wantErr: "kafka topic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Port: -1},
		Carrier: CarrierConfig{ReplyMode: "x"},
		LLM:     LLMConfig{Provider: "x"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server port")
	assert.Contains(t, err.Error(), "invalid reply mode")
	assert.Contains(t, err.Error(), "invalid LLM provider")
	assert.Contains(t, err.Error(), "max reply length")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "(unset)", MaskSecret(""))
	assert.Equal(t, "***", MaskSecret("short"))
	assert.Equal(t, "AC12345678...", MaskSecret("AC1234567890abcdef"))
}
