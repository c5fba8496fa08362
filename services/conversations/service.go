package conversations

import "chatrelay/services/store"

// Service exposes read views over the store. Views are recomputed on every call.
type Service struct {
	store *store.Store
}

func NewService(s *store.Store) *Service {
	return &Service{store: s}
}

func (s *Service) Previews() []ChatPreview {
	return BuildPreviews(s.store.ListAll())
}

func (s *Service) Conversation(counterparty string) []store.Message {
	return s.store.ListByCounterparty(counterparty)
}

func (s *Service) All() []store.Message {
	return s.store.ListAll()
}

func (s *Service) ActiveChats() []string {
	return s.store.ActiveChats()
}
