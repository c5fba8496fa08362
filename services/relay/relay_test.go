package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chatrelay/apperrors"
	"chatrelay/config"
	"chatrelay/infrastructure/carrier"
	"chatrelay/pkg/breaker"
	"chatrelay/services/assistant"
	"chatrelay/services/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	From, To, Body string
}

type fakeGateway struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
	// countAtSend records the store size seen when Send is called
	store       *store.Store
	countAtSend []int
}

func (g *fakeGateway) Send(ctx context.Context, from, to, body string) (carrier.SendResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.store != nil {
		g.countAtSend = append(g.countAtSend, g.store.Count())
	}
	if g.err != nil {
		return carrier.SendResult{}, g.err
	}
	g.sent = append(g.sent, sentMessage{From: from, To: to, Body: body})
	return carrier.SendResult{ProviderMessageID: "SM-fake"}, nil
}

func newService(t *testing.T, mode string, gen assistant.Generator, gw carrier.Gateway) (*Service, *store.Store) {
	t.Helper()
	s := store.New()
	orch := assistant.New(s, gen, assistant.Config{
		Timeout:          time.Second,
		HistoryWindow:    5,
		SuggestionWindow: 6,
		MaxReplyLength:   1600,
		Breaker:          breaker.Config{Name: "relay-test", MinRequests: 100},
	})
	return NewService(s, orch, gw, Config{ReplyMode: mode, FromAddress: "whatsapp:+15559999"}), s
}

func echo(text string) assistant.Generator {
	return assistant.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return text, nil
	})
}

func failing() assistant.Generator {
	return assistant.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("model down")
	})
}

var inbound = carrier.InboundEvent{
	MessageSID: "SM1",
	From:       "whatsapp:+15550001",
	To:         "whatsapp:+15559999",
	Body:       "hi",
}

func TestReceiveInboundTwiML(t *testing.T) {
	svc, s := newService(t, config.ReplyModeTwiML, echo("Hello! How can I help?"), nil)

	res, err := svc.ReceiveInbound(context.Background(), inbound)
	require.NoError(t, err)

	assert.Equal(t, DeliveryTwiML, res.Delivery)
	require.NotNil(t, res.Reply)
	assert.Equal(t, "Hello! How can I help?", res.Reply.Body)
	assert.Equal(t, inbound.To, res.Reply.From)
	assert.Equal(t, inbound.From, res.Reply.To)
	assert.False(t, res.Fallback)

	conv := s.ListByCounterparty(inbound.From)
	require.Len(t, conv, 2)
	assert.Equal(t, store.Incoming, conv[0].Direction)
	assert.Equal(t, store.Outgoing, conv[1].Direction)
}

func TestReceiveInboundIncludesInboundInContext(t *testing.T) {
	var prompt string
	gen := assistant.GeneratorFunc(func(ctx context.Context, p string) (string, error) {
		prompt = p
		return "ok", nil
	})
	svc, _ := newService(t, config.ReplyModeTwiML, gen, nil)

	_, err := svc.ReceiveInbound(context.Background(), inbound)
	require.NoError(t, err)

	assert.Contains(t, prompt, "Customer: hi")
}

func TestReceiveInboundFallback(t *testing.T) {
	svc, _ := newService(t, config.ReplyModeTwiML, failing(), nil)

	res, err := svc.ReceiveInbound(context.Background(), inbound)
	require.NoError(t, err)

	assert.True(t, res.Fallback)
	require.NotNil(t, res.Reply)
	assert.Equal(t, assistant.ContextualFallback, res.Reply.Body)
}

func TestReceiveInboundAPI(t *testing.T) {
	gw := &fakeGateway{}
	svc, s := newService(t, config.ReplyModeAPI, echo("Sure thing"), gw)
	gw.store = s

	res, err := svc.ReceiveInbound(context.Background(), inbound)
	require.NoError(t, err)

	assert.Equal(t, DeliveryAPI, res.Delivery)
	assert.Equal(t, "SM-fake", res.ProviderMessageID)
	require.Len(t, gw.sent, 1)
	assert.Equal(t, sentMessage{From: inbound.To, To: inbound.From, Body: "Sure thing"}, gw.sent[0])

	// only the inbound was stored when the gateway was called
	assert.Equal(t, []int{1}, gw.countAtSend)
	assert.Equal(t, 2, s.Count())
}

func TestReceiveInboundAPICarrierFailure(t *testing.T) {
	gw := &fakeGateway{err: &carrier.Error{Kind: carrier.KindNetwork, Err: errors.New("timeout")}}
	svc, s := newService(t, config.ReplyModeAPI, echo("Sure thing"), gw)

	res, err := svc.ReceiveInbound(context.Background(), inbound)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, fiber.StatusBadGateway, appErr.StatusCode)

	require.NotNil(t, res)
	assert.Nil(t, res.Reply)
	assert.Equal(t, 1, s.Count())
}

func TestReceiveInboundOff(t *testing.T) {
	called := false
	gen := assistant.GeneratorFunc(func(ctx context.Context, p string) (string, error) {
		called = true
		return "x", nil
	})
	svc, s := newService(t, config.ReplyModeOff, gen, nil)

	res, err := svc.ReceiveInbound(context.Background(), inbound)
	require.NoError(t, err)

	assert.Equal(t, DeliveryNone, res.Delivery)
	assert.Nil(t, res.Reply)
	assert.False(t, called)
	assert.Equal(t, 1, s.Count())
}

func TestReceiveInboundValidation(t *testing.T) {
	svc, s := newService(t, config.ReplyModeTwiML, echo("x"), nil)

	_, err := svc.ReceiveInbound(context.Background(), carrier.InboundEvent{Body: "hi"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrCodeValidationFailed, appErr.Code)
	assert.Equal(t, 0, s.Count())
}

func TestReceiveInboundMediaOnly(t *testing.T) {
	var prompt string
	gen := assistant.GeneratorFunc(func(ctx context.Context, p string) (string, error) {
		prompt = p
		return "Nice picture!", nil
	})
	svc, s := newService(t, config.ReplyModeTwiML, gen, nil)

	ev := inbound
	ev.Body = ""
	ev.MediaRefs = []carrier.MediaRef{{URL: "https://media.example/0", ContentType: "image/jpeg"}}

	_, err := svc.ReceiveInbound(context.Background(), ev)
	require.NoError(t, err)

	assert.Contains(t, prompt, "[1 media attachment(s)]")
	assert.Equal(t, "", s.ListAll()[0].Body)
}

func TestSendOutbound(t *testing.T) {
	gw := &fakeGateway{}
	svc, s := newService(t, config.ReplyModeTwiML, nil, gw)
	gw.store = s

	res, err := svc.SendOutbound(context.Background(), "whatsapp:+15550001", "Your order shipped")
	require.NoError(t, err)

	assert.Equal(t, "SM-fake", res.ProviderMessageID)
	assert.Equal(t, store.Outgoing, res.Message.Direction)
	assert.Equal(t, "whatsapp:+15559999", res.Message.From)
	assert.Equal(t, []int{0}, gw.countAtSend)
	assert.Equal(t, 1, s.Count())
}

func TestSendOutboundValidation(t *testing.T) {
	gw := &fakeGateway{}
	svc, s := newService(t, config.ReplyModeTwiML, nil, gw)

	for _, tc := range []struct{ to, body string }{{"", "hi"}, {"whatsapp:+1", ""}, {"  ", "  "}} {
		_, err := svc.SendOutbound(context.Background(), tc.to, tc.body)
		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, fiber.StatusBadRequest, appErr.StatusCode)
	}

	assert.Empty(t, gw.sent)
	assert.Equal(t, 0, s.Count())
}

func TestSendOutboundFailureStoresNothing(t *testing.T) {
	svc, s := newService(t, config.ReplyModeTwiML, nil, nil)

	_, err := svc.SendOutbound(context.Background(), "whatsapp:+15550001", "hello")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, fiber.StatusServiceUnavailable, appErr.StatusCode)
	assert.Equal(t, 0, s.Count())
}

func TestSuggest(t *testing.T) {
	svc, s := newService(t, config.ReplyModeTwiML, echo("Try restarting it."), nil)
	s.Append(store.Draft{From: "A", To: "B", Body: "it is broken", Direction: store.Incoming})

	reply, err := svc.Suggest(context.Background(), "it is broken", "A")
	require.NoError(t, err)

	assert.Equal(t, "Try restarting it.", reply.Text)
	assert.Equal(t, 1, reply.ContextSize)
	assert.Equal(t, 1, s.Count())
}

func TestSuggestValidation(t *testing.T) {
	svc, _ := newService(t, config.ReplyModeTwiML, echo("x"), nil)

	_, err := svc.Suggest(context.Background(), "", "A")
	assert.True(t, apperrors.IsAppError(err))

	_, err = svc.Suggest(context.Background(), "hi", "")
	assert.True(t, apperrors.IsAppError(err))
}

func TestClear(t *testing.T) {
	svc, s := newService(t, config.ReplyModeTwiML, echo("x"), nil)
	_, err := svc.ReceiveInbound(context.Background(), inbound)
	require.NoError(t, err)

	svc.Clear()
	svc.Clear()
	assert.Equal(t, 0, s.Count())
}
