package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Carrier CarrierConfig
	LLM     LLMConfig
	Breaker BreakerConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	EnableClear  bool // exposes DELETE /api/v1/messages outside development
}

type CarrierConfig struct {
	AccountSID    string
	AuthToken     string
	FromAddress   string
	APIBase       string
	Timeout       time.Duration
	ChannelPrefix string // e.g. "whatsapp:"
	ReplyMode     string // twiml, api or off
}

type LLMConfig struct {
	Provider         string // gemini, ollama or none
	APIKey           string
	Model            string
	BaseURL          string
	Timeout          time.Duration
	HistoryWindow    int
	SuggestionWindow int
	MaxReplyLength   int
	FallbackReply    string // overrides both built-in fallbacks when set
}

type BreakerConfig struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Username string
	Password string
	DB       int
	Channel  string
}

type KafkaConfig struct {
	Enabled       bool
	Address       string
	Topic         string
	BatchSize     int
	FlushInterval time.Duration
}

type LogConfig struct {
	File       string // "" or "stdout" logs to stdout
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

const (
	ReplyModeTwiML = "twiml"
	ReplyModeAPI   = "api"
	ReplyModeOff   = "off"

	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderNone   = "none"
)

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsInt("SERVER_PORT", 3000),
			Env:          getEnv("APP_ENV", "development"),
			ReadTimeout:  getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("WRITE_TIMEOUT", 60*time.Second),
			EnableClear:  getEnvAsBool("ENABLE_CLEAR", false),
		},
		Carrier: CarrierConfig{
			AccountSID:    getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:     getEnv("TWILIO_AUTH_TOKEN", ""),
			FromAddress:   getEnv("TWILIO_PHONE_NUMBER", ""),
			APIBase:       getEnv("TWILIO_API_BASE", "https://api.twilio.com"),
			Timeout:       getEnvAsDuration("CARRIER_TIMEOUT", 10*time.Second),
			ChannelPrefix: getEnv("CHANNEL_PREFIX", "whatsapp:"),
			ReplyMode:     strings.ToLower(getEnv("REPLY_MODE", ReplyModeTwiML)),
		},
		LLM: LLMConfig{
			Provider:         strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
			APIKey:           getEnv("GEMINI_API_KEY", ""),
			Model:            getEnv("LLM_MODEL", "gemini-1.5-flash"),
			BaseURL:          getEnv("LLM_BASE_URL", ""),
			Timeout:          getEnvAsDuration("LLM_TIMEOUT", 20*time.Second),
			HistoryWindow:    getEnvAsInt("LLM_HISTORY_WINDOW", 5),
			SuggestionWindow: getEnvAsInt("LLM_SUGGESTION_WINDOW", 6),
			MaxReplyLength:   getEnvAsInt("LLM_MAX_REPLY_LENGTH", 1600),
			FallbackReply:    getEnv("LLM_FALLBACK_REPLY", ""),
		},
		Breaker: BreakerConfig{
			MaxRequests: uint32(getEnvAsInt("BREAKER_MAX_REQUESTS", 5)),
			Interval:    getEnvAsDuration("BREAKER_INTERVAL", 60*time.Second),
			Timeout:     getEnvAsDuration("BREAKER_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Address:  getEnv("REDIS_ADDR", "localhost:6379"),
			Username: getEnv("REDIS_USERNAME", "default"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Channel:  getEnv("REDIS_FEED_CHANNEL", "relay:messages"),
		},
		Kafka: KafkaConfig{
			Enabled:       getEnvAsBool("KAFKA_ENABLED", false),
			Address:       getEnv("KAFKA_ADDR", "localhost:9092"),
			Topic:         getEnv("KAFKA_TOPIC", "relay-history"),
			BatchSize:     getEnvAsInt("KAFKA_BATCH_SIZE", 100),
			FlushInterval: getEnvAsDuration("KAFKA_FLUSH_INTERVAL", 100*time.Millisecond),
		},
		Log: LogConfig{
			File:       getEnv("LOG_FILE", "stdout"),
			Level:      getEnv("LOG_LEVEL", "info"),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 28),
		},
	}

	if cfg.LLM.Provider == ProviderOllama {
		if os.Getenv("LLM_MODEL") == "" {
			cfg.LLM.Model = "llama3.2"
		}
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = "http://localhost:11434"
		}
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	var errors []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid server port: %d (must be 1-65535)", c.Server.Port))
	}

	switch c.Carrier.ReplyMode {
	case ReplyModeTwiML, ReplyModeAPI, ReplyModeOff:
	default:
		errors = append(errors, fmt.Sprintf("invalid reply mode: %q (must be twiml, api or off)", c.Carrier.ReplyMode))
	}
	if c.Carrier.ReplyMode == ReplyModeAPI && !c.CarrierConfigured() {
		errors = append(errors, "reply mode api requires TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_PHONE_NUMBER")
	}
	if c.Carrier.Timeout <= 0 {
		errors = append(errors, "carrier timeout must be > 0")
	}

	switch c.LLM.Provider {
	case ProviderGemini, ProviderOllama, ProviderNone:
	default:
		errors = append(errors, fmt.Sprintf("invalid LLM provider: %q (must be gemini, ollama or none)", c.LLM.Provider))
	}
	if c.LLM.Timeout <= 0 {
		errors = append(errors, "LLM timeout must be > 0")
	}
	if c.LLM.HistoryWindow <= 0 {
		errors = append(errors, "LLM history window must be > 0")
	}
	if c.LLM.SuggestionWindow <= 0 {
		errors = append(errors, "LLM suggestion window must be > 0")
	}
	if c.LLM.MaxReplyLength <= 0 {
		errors = append(errors, "LLM max reply length must be > 0")
	}

	if c.Redis.Enabled && c.Redis.Address == "" {
		errors = append(errors, "redis address (REDIS_ADDR) is required when REDIS_ENABLED=true")
	}

	if c.Kafka.Enabled {
		if c.Kafka.Address == "" {
			errors = append(errors, "kafka address (KAFKA_ADDR) is required when KAFKA_ENABLED=true")
		}
		if c.Kafka.Topic == "" {
			errors = append(errors, "kafka topic (KAFKA_TOPIC) is required when KAFKA_ENABLED=true")
		}
		if c.Kafka.BatchSize <= 0 {
			errors = append(errors, "kafka batch size must be > 0")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// CarrierConfigured reports whether outbound sends can reach the carrier.
func (c *Config) CarrierConfigured() bool {
	return c.Carrier.AccountSID != "" && c.Carrier.AuthToken != "" && c.Carrier.FromAddress != ""
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// ClearAllowed reports whether the clear-messages endpoint is exposed.
func (c *Config) ClearAllowed() bool {
	return c.IsDevelopment() || c.Server.EnableClear
}

func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// PrintSummary logs a summary of the loaded configuration
func (c *Config) PrintSummary() {
	fmt.Println("Configuration Summary:")
	fmt.Printf("  Server: %s (env: %s)\n", c.ServerAddress(), c.Server.Env)
	fmt.Printf("  Carrier: account %s, from %s, reply mode %s\n",
		MaskSecret(c.Carrier.AccountSID), c.Carrier.FromAddress, c.Carrier.ReplyMode)
	fmt.Printf("  LLM: %s/%s (timeout %s, window %d)\n",
		c.LLM.Provider, c.LLM.Model, c.LLM.Timeout, c.LLM.HistoryWindow)
	if c.Redis.Enabled {
		fmt.Printf("  Redis feed: %s (DB: %d, channel: %s)\n", c.Redis.Address, c.Redis.DB, c.Redis.Channel)
	}
	if c.Kafka.Enabled {
		fmt.Printf("  Kafka archive: %s (Topic: %s)\n", c.Kafka.Address, c.Kafka.Topic)
	}
}

// MaskSecret keeps the first few characters of a credential.
func MaskSecret(s string) string {
	if s == "" {
		return "(unset)"
	}
	if len(s) <= 10 {
		return "***"
	}
	return s[:10] + "..."
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if val, err := strconv.Atoi(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := os.Getenv(key)
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	valStr := os.Getenv(key)
	if val, err := time.ParseDuration(valStr); err == nil {
		return val
	}
	return defaultVal
}
