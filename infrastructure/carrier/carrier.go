package carrier

import (
	"context"
	"errors"
	"fmt"
)

// Gateway delivers outbound messages to the messaging carrier.
// Implementations do not retry.
type Gateway interface {
	Send(ctx context.Context, from, to, body string) (SendResult, error)
}

type SendResult struct {
	ProviderMessageID string
}

var ErrNotConfigured = errors.New("carrier credentials not configured")

// Unconfigured stands in for the carrier when credentials are missing.
type Unconfigured struct{}

func (Unconfigured) Send(context.Context, string, string, string) (SendResult, error) {
	return SendResult{}, ErrNotConfigured
}

type ErrorKind string

const (
	KindAuth           ErrorKind = "auth"
	KindInvalidAddress ErrorKind = "invalid_address"
	KindRateLimited    ErrorKind = "rate_limited"
	KindNetwork        ErrorKind = "network"
	KindProvider       ErrorKind = "provider"
)

// Error is a classified carrier failure.
type Error struct {
	Kind         ErrorKind
	StatusCode   int
	ProviderCode int
	Message      string
	Err          error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("carrier %s error (status %d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("carrier %s error: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a carrier failure, or "" for other errors.
func KindOf(err error) ErrorKind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	if errors.Is(err, ErrNotConfigured) {
		return "unconfigured"
	}
	return ""
}
