package store

import "time"

// Direction tells whether a message came from the counterparty or was sent to it.
type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
)

// Message is an immutable record of one chat message.
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Body      string    `json:"body"`
	Direction Direction `json:"direction"`
	Timestamp time.Time `json:"timestamp"`
}

// Counterparty returns the external address this message belongs to.
func (m Message) Counterparty() string {
	if m.Direction == Outgoing {
		return m.To
	}
	return m.From
}

// Involves reports whether addr is either side of the message.
func (m Message) Involves(addr string) bool {
	return m.From == addr || m.To == addr
}

// Draft carries the caller-supplied fields of a message before it is stored.
type Draft struct {
	From      string
	To        string
	Body      string
	Direction Direction
}
