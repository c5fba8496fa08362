package relay

import (
	"context"
	"fmt"
	"strings"

	"chatrelay/apperrors"
	"chatrelay/config"
	"chatrelay/infrastructure/carrier"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/metrics"
	"chatrelay/services/assistant"
	"chatrelay/services/store"
)

type Config struct {
	// ReplyMode is one of config.ReplyModeTwiML, ReplyModeAPI or ReplyModeOff.
	ReplyMode string
	// FromAddress is the business address used for user-initiated sends.
	FromAddress string
}

// Service runs the write paths: inbound messages, outbound sends and reply
// suggestions.
type Service struct {
	store     *store.Store
	assistant *assistant.Orchestrator
	gateway   carrier.Gateway
	cfg       Config
	log       *logger.Logger
}

func NewService(s *store.Store, a *assistant.Orchestrator, gw carrier.Gateway, cfg Config) *Service {
	if gw == nil {
		gw = carrier.Unconfigured{}
	}
	if cfg.ReplyMode == "" {
		cfg.ReplyMode = config.ReplyModeTwiML
	}
	return &Service{
		store:     s,
		assistant: a,
		gateway:   gw,
		cfg:       cfg,
		log:       logger.WithField("component", "relay"),
	}
}

const (
	DeliveryTwiML = "twiml"
	DeliveryAPI   = "api"
	DeliveryNone  = "none"
)

type InboundResult struct {
	Inbound store.Message
	// Reply is nil when no reply was stored.
	Reply             *store.Message
	Fallback          bool
	Delivery          string
	ProviderMessageID string
}

type OutboundResult struct {
	Message           store.Message
	ProviderMessageID string
}

// ReceiveInbound stores the inbound message, then produces and records a
// reply according to the reply mode. The inbound message stays stored even
// when the reply cannot be delivered.
func (s *Service) ReceiveInbound(ctx context.Context, ev carrier.InboundEvent) (*InboundResult, error) {
	if err := ev.Validate(); err != nil {
		if fields, ok := carrier.IsMissingFields(err); ok {
			return nil, apperrors.NewMissingFields(fields...).WithOperation("receive_inbound")
		}
		return nil, apperrors.NewBadRequest(err.Error())
	}

	inbound := s.store.Append(store.Draft{
		From:      ev.From,
		To:        ev.To,
		Body:      ev.Body,
		Direction: store.Incoming,
	})

	log := s.log.WithFields(map[string]any{
		"message_id":  inbound.ID,
		"from":        ev.From,
		"message_sid": ev.MessageSID,
		"media_count": len(ev.MediaRefs),
	})
	log.Info("Inbound message stored")

	result := &InboundResult{Inbound: inbound, Delivery: DeliveryNone}

	if s.cfg.ReplyMode == config.ReplyModeOff {
		metrics.IncrementInboundEvents(DeliveryNone)
		return result, nil
	}

	reply := s.assistant.GenerateReply(ctx, promptBody(ev), ev.From)
	result.Fallback = reply.Fallback

	switch s.cfg.ReplyMode {
	case config.ReplyModeAPI:
		res, err := s.gateway.Send(ctx, ev.To, ev.From, reply.Text)
		if err != nil {
			metrics.IncrementInboundEvents(DeliveryNone)
			log.WithError(err).Error("Failed to deliver auto-reply")
			return result, apperrors.NewCarrierError("auto_reply", ev.From, err)
		}
		result.Delivery = DeliveryAPI
		result.ProviderMessageID = res.ProviderMessageID
	default:
		result.Delivery = DeliveryTwiML
	}

	out := s.store.Append(store.Draft{
		From:      ev.To,
		To:        ev.From,
		Body:      reply.Text,
		Direction: store.Outgoing,
	})
	result.Reply = &out

	metrics.IncrementInboundEvents(result.Delivery)
	log.WithFields(map[string]any{
		"delivery": result.Delivery,
		"fallback": reply.Fallback,
	}).Info("Auto-reply recorded")

	return result, nil
}

// SendOutbound delivers a user-initiated message and stores it once the
// carrier has accepted it.
func (s *Service) SendOutbound(ctx context.Context, to, body string) (*OutboundResult, error) {
	to = strings.TrimSpace(to)
	if to == "" || strings.TrimSpace(body) == "" {
		return nil, apperrors.NewMissingFields("to", "message").WithOperation("send_outbound")
	}

	res, err := s.gateway.Send(ctx, s.cfg.FromAddress, to, body)
	if err != nil {
		s.log.WithError(err).WithField("to", to).Error("Failed to send message")
		return nil, apperrors.NewCarrierError("send_outbound", to, err)
	}

	msg := s.store.Append(store.Draft{
		From:      s.cfg.FromAddress,
		To:        to,
		Body:      body,
		Direction: store.Outgoing,
	})

	s.log.WithFields(map[string]any{
		"message_id":  msg.ID,
		"to":          to,
		"message_sid": res.ProviderMessageID,
	}).Info("Outbound message sent")

	return &OutboundResult{Message: msg, ProviderMessageID: res.ProviderMessageID}, nil
}

// Suggest drafts a reply for an operator. Nothing is stored or sent.
func (s *Service) Suggest(ctx context.Context, userMessage, counterparty string) (assistant.Reply, error) {
	if strings.TrimSpace(userMessage) == "" || strings.TrimSpace(counterparty) == "" {
		return assistant.Reply{}, apperrors.NewMissingFields("userMessage", "counterpartyAddress").WithOperation("suggest")
	}
	return s.assistant.Suggest(ctx, userMessage, counterparty), nil
}

// Clear empties the store.
func (s *Service) Clear() {
	s.store.Clear()
	s.log.Warn("All messages cleared")
}

func promptBody(ev carrier.InboundEvent) string {
	if ev.Body != "" || len(ev.MediaRefs) == 0 {
		return ev.Body
	}
	return fmt.Sprintf("[%d media attachment(s)]", len(ev.MediaRefs))
}
