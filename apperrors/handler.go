package apperrors

import (
	"chatrelay/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// HandlerConfig configures the error handler
type HandlerConfig struct {
	// Logger for error logging
	Logger *logger.Logger

	// ShowInternalErrors shows internal error details in responses (dev only)
	ShowInternalErrors bool

	// OnError is called for each error (useful for metrics/monitoring)
	OnError func(c *fiber.Ctx, err *AppError)
}

// Handler creates a Fiber error handler
func Handler(config HandlerConfig) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		appErr := FromError(err)

		if config.Logger != nil {
			logError(config.Logger, c, appErr)
		}

		if config.OnError != nil {
			config.OnError(c, appErr)
		}

		return writeJSON(c, appErr, config.ShowInternalErrors)
	}
}

// writeJSON renders the error envelope. success=false mirrors the success envelope.
func writeJSON(c *fiber.Ctx, err *AppError, showInternal bool) error {
	body := fiber.Map{
		"code":    err.Code,
		"message": err.Message,
	}
	if len(err.Details) > 0 {
		body["details"] = err.Details
	}
	if showInternal && err.Internal != nil {
		body["internal"] = err.Internal.Error()
	}

	return c.Status(err.StatusCode).JSON(fiber.Map{
		"success": false,
		"error":   body,
	})
}

func logError(l *logger.Logger, c *fiber.Ctx, err *AppError) {
	fields := err.LogFields()
	fields["method"] = c.Method()
	fields["path"] = c.Path()
	if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
		l = l.WithRequestID(rid)
	}

	// Don't log expected errors at error level
	if err.StatusCode < 500 {
		l.WithFields(fields).Warn("%s", err.Message)
		return
	}

	fields["ip"] = c.IP()
	l.WithFields(fields).Error("%s", err.Message)
}
