package assistant

import (
	"fmt"
	"strings"

	"chatrelay/services/store"
)

const (
	// ContextualFallback is served when generation fails for a conversation with history.
	ContextualFallback = "I understand your concern. Let me help you with that right away! Could you provide a bit more detail?"

	// StandaloneFallback is served when generation fails and there is no history.
	StandaloneFallback = "Thanks for your message! Our support team has received your inquiry and will assist you shortly. Is there anything specific I can help you with right now?"

	TruncationMarker = "..."
)

const systemFraming = "You are a helpful AI assistant for a WhatsApp Business service. You can answer any questions and provide support."

// RenderHistory writes one "Customer:" or "Support:" line per message, oldest first.
func RenderHistory(history []store.Message) string {
	lines := make([]string, 0, len(history))
	for _, m := range history {
		speaker := "Customer"
		if m.Direction == store.Outgoing {
			speaker = "Support"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, m.Body))
	}
	return strings.Join(lines, "\n")
}

// BuildPrompt composes the model prompt. An empty history yields the
// standalone support prompt.
func BuildPrompt(counterparty, latest string, history []store.Message) string {
	var b strings.Builder

	b.WriteString(systemFraming)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Customer phone: %s\n", counterparty)

	if len(history) == 0 {
		fmt.Fprintf(&b, "Customer message: \"%s\"\n\n", latest)
		b.WriteString("Instructions:\n")
		b.WriteString("- Answer ANY question directly and accurately (general knowledge, facts, support, etc.)\n")
		b.WriteString("- For general questions: Provide informative, accurate answers\n")
		b.WriteString("- For support questions: Offer helpful assistance\n")
		b.WriteString("- Keep responses short and concise (1-2 sentences max)\n")
		b.WriteString("- Be friendly and professional\n")
		b.WriteString("- If you don't know something, say so honestly\n\n")
		b.WriteString("Response:")
		return b.String()
	}

	b.WriteString("Conversation history:\n")
	b.WriteString(RenderHistory(history))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Latest customer message: \"%s\"\n\n", latest)
	b.WriteString("Instructions:\n")
	b.WriteString("- Answer ANY question directly and accurately (general knowledge, facts, help, etc.)\n")
	b.WriteString("- For support questions, offer assistance\n")
	b.WriteString("- For factual questions, provide accurate information\n")
	b.WriteString("- Keep responses short and conversational (1-2 sentences)\n")
	b.WriteString("- Be professional but friendly\n")
	b.WriteString("- If you don't know something, say so honestly\n\n")
	b.WriteString("Response:")
	return b.String()
}

// Tail returns the last n messages of msgs.
func Tail(msgs []store.Message, n int) []store.Message {
	if n <= 0 {
		return nil
	}
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}

// Finalize bounds raw model output. Output longer than max runes is cut to
// exactly max runes plus TruncationMarker; anything else is trimmed.
func Finalize(raw string, max int) (text string, truncated bool) {
	runes := []rune(raw)
	if max > 0 && len(runes) > max {
		return string(runes[:max]) + TruncationMarker, true
	}
	return strings.TrimSpace(raw), false
}
