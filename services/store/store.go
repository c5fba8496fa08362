package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"chatrelay/pkg/metrics"

	"github.com/google/uuid"
)

const DefaultChannelPrefix = "whatsapp:"

// Observer is notified after every successful append.
type Observer func(Message)

type Option func(*Store)

// WithClock replaces time.Now as the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithChannelPrefix sets the address prefix tracked by ActiveChats.
func WithChannelPrefix(prefix string) Option {
	return func(s *Store) {
		s.channelPrefix = prefix
	}
}

// Store is the process-lifetime message collection. All methods are safe for
// concurrent use and return copies.
type Store struct {
	mu            sync.RWMutex
	messages      []Message
	activeChats   []string
	activeSeen    map[string]struct{}
	lastTimestamp time.Time

	now           func() time.Time
	channelPrefix string

	obsMu     sync.RWMutex
	observers []Observer
}

func New(opts ...Option) *Store {
	s := &Store{
		activeSeen:    make(map[string]struct{}),
		now:           time.Now,
		channelPrefix: DefaultChannelPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append stores a new message and returns the stored copy.
func (s *Store) Append(d Draft) Message {
	s.mu.Lock()
	ts := s.now().UTC()
	if ts.Before(s.lastTimestamp) {
		ts = s.lastTimestamp
	}
	s.lastTimestamp = ts

	msg := Message{
		ID:        uuid.NewString(),
		From:      d.From,
		To:        d.To,
		Body:      d.Body,
		Direction: d.Direction,
		Timestamp: ts,
	}
	s.messages = append(s.messages, msg)
	s.trackActive(msg.From)
	s.trackActive(msg.To)
	s.mu.Unlock()

	metrics.IncrementMessagesStored(string(msg.Direction))
	s.notify(msg)

	return msg
}

// caller holds s.mu
func (s *Store) trackActive(addr string) {
	if s.channelPrefix == "" || !strings.HasPrefix(addr, s.channelPrefix) {
		return
	}
	if _, ok := s.activeSeen[addr]; ok {
		return
	}
	s.activeSeen[addr] = struct{}{}
	s.activeChats = append(s.activeChats, addr)
}

// ListAll returns every message in ascending timestamp order.
func (s *Store) ListAll() []Message {
	s.mu.RLock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	s.mu.RUnlock()

	sortAscending(out)
	return out
}

// ListByCounterparty returns the messages sent from or to addr, oldest first.
func (s *Store) ListByCounterparty(addr string) []Message {
	s.mu.RLock()
	out := make([]Message, 0)
	for _, m := range s.messages {
		if m.Involves(addr) {
			out = append(out, m)
		}
	}
	s.mu.RUnlock()

	sortAscending(out)
	return out
}

// Clear drops all messages and active chats.
func (s *Store) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.activeChats = nil
	s.activeSeen = make(map[string]struct{})
	s.mu.Unlock()

	metrics.IncrementStoreClears()
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// ActiveChats lists channel-prefixed addresses in the order they were first seen.
func (s *Store) ActiveChats() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.activeChats))
	copy(out, s.activeChats)
	return out
}

// Stats summarizes the store for the metrics collector.
func (s *Store) Stats() metrics.StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counterparties := make(map[string]struct{})
	for _, m := range s.messages {
		counterparties[m.Counterparty()] = struct{}{}
	}
	return metrics.StoreStats{
		Messages:      len(s.messages),
		Conversations: len(counterparties),
		ActiveChats:   len(s.activeChats),
	}
}

// Subscribe registers fn to run after each append. Observers run on the
// appending goroutine, after the store lock is released, so a slow observer
// delays that Append call but not readers or other writers. Concurrent
// appends may reach observers in either order.
func (s *Store) Subscribe(fn Observer) {
	s.obsMu.Lock()
	s.observers = append(s.observers, fn)
	s.obsMu.Unlock()
}

func (s *Store) notify(msg Message) {
	s.obsMu.RLock()
	observers := s.observers
	s.obsMu.RUnlock()

	for _, fn := range observers {
		fn(msg)
	}
}

func sortAscending(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}
