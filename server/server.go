package server

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"chatrelay/apperrors"
	"chatrelay/config"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/metrics"
	"chatrelay/server/handlers"
	"chatrelay/server/middleware/security"
	"chatrelay/server/routes"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	App *fiber.App
	cfg *config.Config
	log *logger.Logger
}

func NewServer(deps routes.Dependencies, log *logger.Logger) (*Server, error) {
	cfg := deps.Config
	if cfg == nil {
		return nil, fmt.Errorf("server: config is required")
	}
	if log == nil {
		log = logger.GetDefault()
	}

	errorConfig := apperrors.HandlerConfig{
		Logger:             log,
		ShowInternalErrors: cfg.IsDevelopment(),
		OnError: func(c *fiber.Ctx, err *apperrors.AppError) {
			metrics.RecordError(string(err.Code), fmt.Sprintf("%d", err.StatusCode))
		},
	}

	app := fiber.New(fiber.Config{
		AppName:      "chatrelay",
		ServerHeader: "chatrelay",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: apperrors.Handler(errorConfig),
	})

	if err := metrics.RegisterCollectors(deps.Store.Stats, deps.Redis, archiveMetrics(deps)); err != nil {
		return nil, fmt.Errorf("failed to register collectors: %w", err)
	}

	metrics.SystemInfo.WithLabelValues(
		handlers.Version,
		runtime.Version(),
		time.Now().Format(time.RFC3339),
	).Set(1)

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMetricsMiddleware())
	app.Use(security.New(security.Config{
		Development: cfg.IsDevelopment(),
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/metrics"
		},
	}))

	setupLogging(app, log.Writer())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	routes.RegisterRoutes(app, deps)

	return &Server{App: app, cfg: cfg, log: log}, nil
}

func archiveMetrics(deps routes.Dependencies) func() map[string]int64 {
	if deps.Archive == nil {
		return nil
	}
	return deps.Archive.GetMetrics
}

func (s *Server) Start() error {
	addr := s.cfg.ServerAddress()
	s.log.Info("Starting server on %s", addr)
	return s.App.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down server...")
	return s.App.ShutdownWithContext(ctx)
}
