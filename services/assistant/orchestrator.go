package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	"chatrelay/pkg/breaker"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/metrics"
	"chatrelay/services/store"

	"github.com/sony/gobreaker"
)

const (
	DefaultHistoryWindow    = 5
	DefaultSuggestionWindow = 6
	DefaultMaxReplyLength   = 1600
	DefaultTimeout          = 20 * time.Second
)

var (
	ErrNoGenerator = errors.New("no language model configured")
	ErrEmptyOutput = errors.New("language model returned empty output")
)

type Config struct {
	Timeout          time.Duration
	HistoryWindow    int
	SuggestionWindow int
	MaxReplyLength   int

	// FallbackReply replaces both built-in fallbacks when set.
	FallbackReply string

	Breaker breaker.Config
}

// Reply is the outcome of one generation attempt.
type Reply struct {
	Text        string
	Fallback    bool
	ContextSize int
}

// Orchestrator builds bounded-context prompts from the store and turns model
// output, or its absence, into a reply. It never returns an error.
type Orchestrator struct {
	store *store.Store
	gen   Generator
	cb    *gobreaker.CircuitBreaker
	cfg   Config
	log   *logger.Logger
}

// New wires an orchestrator. gen may be nil, in which case every reply is a fallback.
func New(s *store.Store, gen Generator, cfg Config) *Orchestrator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	if cfg.SuggestionWindow <= 0 {
		cfg.SuggestionWindow = DefaultSuggestionWindow
	}
	if cfg.MaxReplyLength <= 0 {
		cfg.MaxReplyLength = DefaultMaxReplyLength
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker.Name = "llm"
	}

	return &Orchestrator{
		store: s,
		gen:   gen,
		cb:    breaker.New(cfg.Breaker),
		cfg:   cfg,
		log:   logger.WithField("component", "assistant"),
	}
}

// GenerateReply produces the automatic reply to an inbound message using the
// history window. The caller appends the inbound message first, so the window
// includes it.
func (o *Orchestrator) GenerateReply(ctx context.Context, inboundBody, counterparty string) Reply {
	return o.generate(ctx, inboundBody, counterparty, o.cfg.HistoryWindow)
}

// Suggest produces a reply suggestion using the wider suggestion window.
func (o *Orchestrator) Suggest(ctx context.Context, userMessage, counterparty string) Reply {
	return o.generate(ctx, userMessage, counterparty, o.cfg.SuggestionWindow)
}

func (o *Orchestrator) generate(ctx context.Context, body, counterparty string, window int) Reply {
	history := Tail(o.store.ListByCounterparty(counterparty), window)
	prompt := BuildPrompt(counterparty, body, history)

	log := o.log.WithFields(map[string]any{
		"counterparty": counterparty,
		"context_size": len(history),
	})

	start := time.Now()
	raw, err := o.call(ctx, prompt)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		outcome := classify(err)
		metrics.RecordReplyGeneration(outcome, elapsed)
		metrics.IncrementFallbackReplies()
		log.WithError(err).WithField("outcome", outcome).Warn("Reply generation failed, using fallback")

		return Reply{
			Text:        o.fallback(len(history) > 0),
			Fallback:    true,
			ContextSize: len(history),
		}
	}

	text, truncated := Finalize(raw, o.cfg.MaxReplyLength)
	if truncated {
		metrics.IncrementRepliesTruncated()
		log.WithField("raw_length", len([]rune(raw))).Debug("Generated reply truncated")
	}
	metrics.RecordReplyGeneration("success", elapsed)

	return Reply{Text: text, ContextSize: len(history)}
}

type result struct {
	text string
	err  error
}

// call runs the generator through the breaker and stops waiting at the
// deadline even if the generator ignores ctx.
func (o *Orchestrator) call(ctx context.Context, prompt string) (string, error) {
	if o.gen == nil {
		return "", ErrNoGenerator
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		text, err := breaker.Execute(o.cb, func() (string, error) {
			text, err := o.gen.Generate(ctx, prompt)
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(text) == "" {
				return "", ErrEmptyOutput
			}
			return text, nil
		})
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (o *Orchestrator) fallback(hasHistory bool) string {
	if o.cfg.FallbackReply != "" {
		return o.cfg.FallbackReply
	}
	if hasHistory {
		return ContextualFallback
	}
	return StandaloneFallback
}

// BreakerState exposes the LLM breaker state for health checks.
func (o *Orchestrator) BreakerState() gobreaker.State {
	return o.cb.State()
}

// Configured reports whether a generator is wired.
func (o *Orchestrator) Configured() bool {
	return o.gen != nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrEmptyOutput):
		return "empty"
	case errors.Is(err, ErrNoGenerator):
		return "unconfigured"
	case breaker.IsRejected(err):
		return "rejected"
	default:
		return "error"
	}
}
