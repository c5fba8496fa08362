package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatrelay/config"
	"chatrelay/infrastructure/carrier"
	"chatrelay/infrastructure/carrier/twilio"
	"chatrelay/infrastructure/llm"
	infraredis "chatrelay/infrastructure/redis"
	"chatrelay/pkg/breaker"
	"chatrelay/pkg/logger"
	"chatrelay/server"
	"chatrelay/server/routes"
	"chatrelay/services/archive"
	"chatrelay/services/assistant"
	"chatrelay/services/conversations"
	"chatrelay/services/feed"
	"chatrelay/services/relay"
	"chatrelay/services/store"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

func run() error {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log.Println("✓ Configuration loaded and validated")
	cfg.PrintSummary()

	appLog, err := logger.NewWithConfig(logger.Config{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   true,
		LocalTime:  true,
		Level:      logger.ParseLevel(cfg.Log.Level),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLog.Close()
	logger.SetDefault(appLog)

	msgStore := store.New(store.WithChannelPrefix(cfg.Carrier.ChannelPrefix))

	gen, err := llm.NewGenerator(cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize language model: %w", err)
	}
	if gen == nil {
		appLog.Warn("No language model configured, replies will use the fallback text")
	}

	orch := assistant.New(msgStore, gen, assistant.Config{
		Timeout:          cfg.LLM.Timeout,
		HistoryWindow:    cfg.LLM.HistoryWindow,
		SuggestionWindow: cfg.LLM.SuggestionWindow,
		MaxReplyLength:   cfg.LLM.MaxReplyLength,
		FallbackReply:    cfg.LLM.FallbackReply,
		Breaker: breaker.Config{
			Name:        "llm",
			MaxRequests: cfg.Breaker.MaxRequests,
			Interval:    cfg.Breaker.Interval,
			Timeout:     cfg.Breaker.Timeout,
		},
	})

	var gateway carrier.Gateway = carrier.Unconfigured{}
	if cfg.CarrierConfigured() {
		gateway = twilio.NewClient(twilio.Config{
			AccountSID: cfg.Carrier.AccountSID,
			AuthToken:  cfg.Carrier.AuthToken,
			APIBase:    cfg.Carrier.APIBase,
			Timeout:    cfg.Carrier.Timeout,
		})
		log.Println("✓ Carrier gateway configured")
	} else {
		appLog.Warn("Carrier credentials missing, outbound sends are disabled")
	}

	relaySvc := relay.NewService(msgStore, orch, gateway, relay.Config{
		ReplyMode:   cfg.Carrier.ReplyMode,
		FromAddress: cfg.Carrier.FromAddress,
	})

	hub := feed.NewHub()
	defer hub.Close()

	deps := routes.Dependencies{
		Config:        cfg,
		Store:         msgStore,
		Conversations: conversations.NewService(msgStore),
		Relay:         relaySvc,
		Assistant:     orch,
		Hub:           hub,
		Feed:          hub,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	if cfg.Redis.Enabled {
		rdb, err := infraredis.NewClient(cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to initialize Redis client: %w", err)
		}
		defer closeRedis(rdb)
		log.Println("✓ Connected to Redis")

		bridge, err := feed.NewRedisBridge(bgCtx, rdb, cfg.Redis.Channel, hub)
		if err != nil {
			return fmt.Errorf("failed to start feed bridge: %w", err)
		}
		defer bridge.Close()

		deps.Redis = rdb
		deps.Feed = bridge
	}
	msgStore.Subscribe(feed.Observer(deps.Feed))

	if cfg.Kafka.Enabled {
		arch, err := archive.NewKafka(cfg.Kafka.Address, archive.Config{
			Topic:         cfg.Kafka.Topic,
			BatchSize:     cfg.Kafka.BatchSize,
			FlushInterval: cfg.Kafka.FlushInterval,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize archive: %w", err)
		}
		defer arch.Close()
		msgStore.Subscribe(arch.Enqueue)
		deps.Archive = arch
		log.Println("✓ Initialized message archive")
	}

	srv, err := server.NewServer(deps, appLog)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		appLog.Info("Received signal: %v. Shutting down gracefully...", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	appLog.Info("Server shutdown complete")
	return nil
}

func closeRedis(rdb *redis.Client) {
	if err := rdb.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close Redis client")
	}
}
