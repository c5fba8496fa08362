package handlers

import (
	"context"
	"fmt"
	"time"

	infraredis "chatrelay/infrastructure/redis"
	"chatrelay/services/assistant"
	"chatrelay/services/store"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// HealthCheckHandler provides health and readiness checks. Redis and the
// archive metrics source are optional.
type HealthCheckHandler struct {
	store          *store.Store
	assistant      *assistant.Orchestrator
	rdb            *redis.Client
	archiveMetrics func() map[string]int64
}

func NewHealthCheckHandler(s *store.Store, a *assistant.Orchestrator, rdb *redis.Client, archiveMetrics func() map[string]int64) *HealthCheckHandler {
	return &HealthCheckHandler{
		store:          s,
		assistant:      a,
		rdb:            rdb,
		archiveMetrics: archiveMetrics,
	}
}

// HealthCheckResponse represents the health status
type HealthCheckResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    float64                `json:"uptime_seconds"`
	Checks    map[string]CheckStatus `json:"checks"`
}

// CheckStatus represents individual component status
type CheckStatus struct {
	Status      string  `json:"status"`
	Message     string  `json:"message,omitempty"`
	Latency     float64 `json:"latency_ms,omitempty"`
	LastChecked string  `json:"last_checked"`
}

const Version = "1.0.0"

const redisPingTimeout = 2 * time.Second

var startTime = time.Now()

func newResponse(status string) HealthCheckResponse {
	return HealthCheckResponse{
		Status:    status,
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   Version,
		Uptime:    time.Since(startTime).Seconds(),
		Checks:    make(map[string]CheckStatus),
	}
}

func (h *HealthCheckHandler) HandleHealthCheck() fiber.Handler {
	return func(c *fiber.Ctx) error {
		response := newResponse("healthy")
		response.Checks["server"] = CheckStatus{
			Status:      "up",
			Message:     "Server is running",
			LastChecked: time.Now().Format(time.RFC3339),
		}
		return c.JSON(response)
	}
}

// HandleReadinessCheck fails only when a required dependency is down. An open
// LLM breaker or archive failures degrade the status without failing it.
func (h *HealthCheckHandler) HandleReadinessCheck() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
		defer cancel()

		response := newResponse("ready")
		ready := true
		degraded := false

		response.Checks["store"] = h.checkStore()

		if h.assistant != nil {
			llm := h.checkAssistant()
			response.Checks["llm"] = llm
			degraded = degraded || llm.Status != "healthy"
		}

		if h.rdb != nil {
			rs := h.checkRedis(ctx)
			response.Checks["redis"] = rs
			switch rs.Status {
			case "unhealthy":
				ready = false
			case "degraded":
				degraded = true
			}
		}

		if h.archiveMetrics != nil {
			as := h.checkArchive()
			response.Checks["archive"] = as
			degraded = degraded || as.Status != "healthy"
		}

		if !ready {
			response.Status = "unavailable"
			return c.Status(fiber.StatusServiceUnavailable).JSON(response)
		}
		if degraded {
			response.Status = "degraded"
		}
		return c.JSON(response)
	}
}

func (h *HealthCheckHandler) HandleLivenessCheck() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendString("OK")
	}
}

func (h *HealthCheckHandler) checkStore() CheckStatus {
	stats := h.store.Stats()
	return CheckStatus{
		Status:      "healthy",
		Message:     fmt.Sprintf("In-memory store holds %d messages", stats.Messages),
		LastChecked: time.Now().Format(time.RFC3339),
	}
}

func (h *HealthCheckHandler) checkAssistant() CheckStatus {
	now := time.Now().Format(time.RFC3339)

	if !h.assistant.Configured() {
		return CheckStatus{Status: "degraded", Message: "No language model configured, serving fallback replies", LastChecked: now}
	}

	switch h.assistant.BreakerState() {
	case gobreaker.StateOpen:
		return CheckStatus{Status: "degraded", Message: "LLM circuit breaker open, serving fallback replies", LastChecked: now}
	case gobreaker.StateHalfOpen:
		return CheckStatus{Status: "degraded", Message: "LLM circuit breaker half-open", LastChecked: now}
	default:
		return CheckStatus{Status: "healthy", Message: "Language model reachable", LastChecked: now}
	}
}

func (h *HealthCheckHandler) checkRedis(ctx context.Context) CheckStatus {
	start := time.Now()
	err := infraredis.Healthy(ctx, h.rdb, redisPingTimeout)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return CheckStatus{
			Status:      "unhealthy",
			Message:     "Redis connection failed: " + err.Error(),
			Latency:     float64(latency),
			LastChecked: time.Now().Format(time.RFC3339),
		}
	}

	status := "healthy"
	message := "Redis is responding"
	if latency > 100 {
		status = "degraded"
		message = "Redis latency is high"
	}

	return CheckStatus{
		Status:      status,
		Message:     message,
		Latency:     float64(latency),
		LastChecked: time.Now().Format(time.RFC3339),
	}
}

func (h *HealthCheckHandler) checkArchive() CheckStatus {
	m := h.archiveMetrics()

	failureRate := float64(0)
	if total := m["sent"] + m["failed"]; total > 0 {
		failureRate = float64(m["failed"]) / float64(total) * 100
	}

	status := "healthy"
	message := "Archive is operational"
	switch {
	case failureRate > 20:
		status = "unhealthy"
		message = "Critical archive failure rate"
	case failureRate > 5 || m["dropped"] > 0:
		status = "degraded"
		message = "Archive is dropping or failing messages"
	}

	return CheckStatus{
		Status:      status,
		Message:     message,
		LastChecked: time.Now().Format(time.RFC3339),
	}
}
