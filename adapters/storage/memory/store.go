// Package memory holds conversations and personas in process memory. Used in
// dev mode and by tests; contents do not survive a restart.
package memory

import (
	"context"
	"sync"

	"github.com/companionkit/agentic/domain"
)

type ConversationStore struct {
	mu       sync.Mutex
	messages map[string][]domain.ConversationMessage
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		messages: make(map[string][]domain.ConversationMessage),
	}
}

func (s *ConversationStore) Append(_ context.Context, conversationID string, msg domain.ConversationMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	return nil
}

func (s *ConversationStore) Messages(_ context.Context, conversationID string) ([]domain.ConversationMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[conversationID]
	out := make([]domain.ConversationMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *ConversationStore) DeleteMessages(_ context.Context, conversationID string, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.messages[conversationID][:0]
	for _, msg := range s.messages[conversationID] {
		if msg.UserID != userID {
			kept = append(kept, msg)
		}
	}
	s.messages[conversationID] = kept
	return nil
}

type PersonaStore struct {
	mu       sync.RWMutex
	personas map[string]domain.PersonaProfile
}

func NewPersonaStore() *PersonaStore {
	return &PersonaStore{personas: make(map[string]domain.PersonaProfile)}
}

func (s *PersonaStore) GetPersona(_ context.Context, id string) (domain.PersonaProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.personas[id]
	if !ok {
		return domain.PersonaProfile{}, domain.ErrPersonaNotFound
	}
	return p, nil
}

func (s *PersonaStore) SavePersona(_ context.Context, p domain.PersonaProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.personas[p.ID] = p
	return nil
}

var (
	_ domain.ConversationStore = (*ConversationStore)(nil)
	_ domain.PersonaStore      = (*PersonaStore)(nil)
)
