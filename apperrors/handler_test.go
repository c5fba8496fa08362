package apperrors

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"chatrelay/infrastructure/carrier"
	"chatrelay/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, h fiber.Handler) (*fiber.App, *bytes.Buffer) {
	t.Helper()

	buf := &bytes.Buffer{}
	l, err := logger.NewWithConfig(logger.Config{Output: buf, Level: logger.DEBUG})
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: Handler(HandlerConfig{Logger: l})})
	app.Use(requestid.New(requestid.Config{
		Generator: func() string { return "req-123" },
	}))
	app.Get("/", h)
	return app, buf
}

func TestHandlerLogsRequestID(t *testing.T) {
	app, buf := newTestApp(t, func(c *fiber.Ctx) error {
		return NewValidationError("bad input")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, buf.String(), "WARN: bad input")
	assert.Contains(t, buf.String(), "request_id=req-123")
}

func TestHandlerLogsServerErrorsAtError(t *testing.T) {
	app, buf := newTestApp(t, func(c *fiber.Ctx) error {
		return errors.New("disk on fire")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code     string `json:"code"`
			Internal string `json:"internal"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.False(t, body.Success)
	assert.Equal(t, string(ErrCodeInternal), body.Error.Code)
	assert.Empty(t, body.Error.Internal)
	assert.Contains(t, buf.String(), "ERROR:")
	assert.Contains(t, buf.String(), "request_id=req-123")
}

func TestNewCarrierError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   ErrorCode
	}{
		{
			name:       "Not configured",
			err:        carrier.ErrNotConfigured,
			wantStatus: fiber.StatusServiceUnavailable,
			wantCode:   ErrCodeServiceUnavail,
		},
		{
			name:       "Auth failure",
			err:        &carrier.Error{Kind: carrier.KindAuth, StatusCode: 401},
			wantStatus: fiber.StatusBadGateway,
			wantCode:   ErrCodeMessageFailed,
		},
		{
			name:       "Invalid address",
			err:        &carrier.Error{Kind: carrier.KindInvalidAddress, StatusCode: 400},
			wantStatus: fiber.StatusBadRequest,
			wantCode:   ErrCodeMessageFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := NewCarrierError("send_outbound", "whatsapp:+15550001", tt.err)
			assert.Equal(t, tt.wantStatus, appErr.StatusCode)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.ErrorIs(t, appErr, tt.err)
		})
	}
}
