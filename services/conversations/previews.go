package conversations

import (
	"sort"

	"chatrelay/services/store"
)

// ChatPreview summarizes one conversation for the chat list.
type ChatPreview struct {
	CounterpartyAddress string        `json:"counterpartyAddress"`
	LastMessage         store.Message `json:"lastMessage"`
	UnreadCount         int           `json:"unreadCount"`
	TotalMessages       int           `json:"totalMessages"`
}

// BuildPreviews groups msgs by counterparty and returns one preview per group,
// most recent conversation first.
//
// UnreadCount is the number of incoming messages; there is no read tracking.
// On equal timestamps the message later in msgs becomes LastMessage, and
// previews with equal last timestamps keep first-appearance order.
func BuildPreviews(msgs []store.Message) []ChatPreview {
	index := make(map[string]int)
	previews := make([]ChatPreview, 0)

	for _, m := range msgs {
		key := m.Counterparty()

		i, ok := index[key]
		if !ok {
			index[key] = len(previews)
			previews = append(previews, ChatPreview{
				CounterpartyAddress: key,
				LastMessage:         m,
			})
			i = len(previews) - 1
		}

		p := &previews[i]
		p.TotalMessages++
		if m.Direction == store.Incoming {
			p.UnreadCount++
		}
		if !m.Timestamp.Before(p.LastMessage.Timestamp) {
			p.LastMessage = m
		}
	}

	sort.SliceStable(previews, func(i, j int) bool {
		return previews[i].LastMessage.Timestamp.After(previews[j].LastMessage.Timestamp)
	})

	return previews
}
