package feed

import (
	"time"

	"chatrelay/services/store"
)

type EventType string

const (
	EventMessage EventType = "message"
	EventCleared EventType = "cleared"
	EventPing    EventType = "ping"
)

// Event is one frame pushed to live feed clients.
type Event struct {
	Type         EventType      `json:"type"`
	Counterparty string         `json:"counterparty,omitempty"`
	Message      *store.Message `json:"message,omitempty"`
	Timestamp    int64          `json:"timestamp"`
}

func MessageEvent(m store.Message) *Event {
	return &Event{
		Type:         EventMessage,
		Counterparty: m.Counterparty(),
		Message:      &m,
		Timestamp:    time.Now().Unix(),
	}
}

func ClearedEvent() *Event {
	return &Event{Type: EventCleared, Timestamp: time.Now().Unix()}
}
