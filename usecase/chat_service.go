package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/companionkit/agentic/domain"
	"github.com/companionkit/agentic/utils/log"
)

const (
	// ExchangeTopic carries one event per completed user/assistant exchange.
	ExchangeTopic = "conversation.exchanges"

	conversationRoute = "/conversation/"
)

// ChatService runs the conversation pipeline: quota gate, persona load,
// grounding retrieval, prompt assembly, completion, ordered persistence.
type ChatService struct {
	limiter   domain.RateLimiter
	hasher    domain.Hasher
	personas  domain.PersonaStore
	retriever domain.ContextRetriever
	llm       domain.CompletionClient
	store     domain.ConversationStore
	broker    domain.EventBroker
	now       func() time.Time

	mu    sync.Mutex
	convs map[string]*convLock
}

// convLock serializes exchanges for one conversation. refs counts the
// goroutines holding or waiting on it so the entry can be dropped from the
// map once the conversation goes idle.
type convLock struct {
	sync.Mutex
	refs int
}

func NewChatService(
	limiter domain.RateLimiter,
	hasher domain.Hasher,
	personas domain.PersonaStore,
	retriever domain.ContextRetriever,
	llm domain.CompletionClient,
	store domain.ConversationStore,
	broker domain.EventBroker,
) *ChatService {
	return &ChatService{
		limiter:   limiter,
		hasher:    hasher,
		personas:  personas,
		retriever: retriever,
		llm:       llm,
		store:     store,
		broker:    broker,
		now:       time.Now,
		convs:     make(map[string]*convLock),
	}
}

type ConverseInput struct {
	PersonaID string
	Caller    domain.CallerIdentity
	Prompt    string
}

// Converse runs one pipeline pass and returns the assistant's reply verbatim.
//
// Stage order is strict: nothing is persisted unless the model produced a
// reply, and the quota is checked before any external call. A failed append
// after a successful completion is logged and the reply is still returned;
// the caller never loses a generated answer to a persistence fault.
func (s *ChatService) Converse(ctx context.Context, in ConverseInput) (string, error) {
	logger := log.WithCtx(ctx).With(
		zap.String("persona_id", in.PersonaID),
		zap.String("user_id", in.Caller.UserID),
	)

	identifier := s.hasher.Hash([]byte(conversationRoute + in.PersonaID + "-" + in.Caller.UserID))
	allowed, retryAfter := s.limiter.Allow(identifier)
	if !allowed {
		logger.Warn("request rejected by quota", zap.Duration("retry_after", retryAfter))
		return "", &domain.QuotaExceededError{RetryAfter: retryAfter}
	}

	profile, err := s.personas.GetPersona(ctx, in.PersonaID)
	if err != nil {
		logger.Warn("persona lookup failed", zap.Error(err))
		return "", err
	}

	var contextText string
	if profile.DocumentHandle != "" {
		contextText, err = s.retriever.Retrieve(ctx, profile.DocumentHandle, in.Prompt)
		if err != nil {
			logger.Error("grounding retrieval failed", zap.Error(err))
			return "", err
		}
	}

	system, user := AssemblePrompt(profile, contextText, in.Prompt)

	reply, err := s.llm.Complete(ctx, []domain.ChatMessage{system, user})
	if err != nil {
		logger.Error("completion failed", zap.Error(err))
		return "", err
	}

	persisted := s.persistExchange(ctx, logger, in, reply)
	s.publishExchange(ctx, logger, in, reply, persisted)

	return reply, nil
}

// History returns the persisted messages of a persona's conversation in
// insertion order.
func (s *ChatService) History(ctx context.Context, personaID string) ([]domain.ConversationMessage, error) {
	if _, err := s.personas.GetPersona(ctx, personaID); err != nil {
		return nil, err
	}
	return s.store.Messages(ctx, personaID)
}

// Reset deletes the caller's messages from a persona's conversation. The
// persona itself is untouched.
func (s *ChatService) Reset(ctx context.Context, personaID string, caller domain.CallerIdentity) error {
	if _, err := s.personas.GetPersona(ctx, personaID); err != nil {
		return err
	}
	return s.store.DeleteMessages(ctx, personaID, caller.UserID)
}

// persistExchange appends the user message then the assistant message as two
// separate records. The per-conversation lock keeps pairs from two concurrent
// requests to the same conversation from interleaving; a crash between the
// two appends leaves an unpaired user message, which is accepted. Append
// failures are logged for operators and never revoke the reply.
func (s *ChatService) persistExchange(ctx context.Context, logger *zap.Logger, in ConverseInput, reply string) bool {
	lock := s.acquireConversation(in.PersonaID)
	defer s.releaseConversation(in.PersonaID, lock)

	userMsg := domain.ConversationMessage{
		ID:             uuid.NewString(),
		ConversationID: in.PersonaID,
		Role:           domain.UserRole,
		Content:        in.Prompt,
		UserID:         in.Caller.UserID,
		CreatedAt:      s.now(),
	}
	if err := s.store.Append(ctx, in.PersonaID, userMsg); err != nil {
		logger.Error("failed to persist user message", zap.Error(err))
		return false
	}

	assistantMsg := domain.ConversationMessage{
		ID:             uuid.NewString(),
		ConversationID: in.PersonaID,
		Role:           domain.AssistantRole,
		Content:        reply,
		UserID:         in.Caller.UserID,
		CreatedAt:      s.now(),
	}
	if err := s.store.Append(ctx, in.PersonaID, assistantMsg); err != nil {
		logger.Error("failed to persist assistant message", zap.Error(err))
		return false
	}

	return true
}

func (s *ChatService) publishExchange(ctx context.Context, logger *zap.Logger, in ConverseInput, reply string, persisted bool) {
	if s.broker == nil {
		return
	}

	event := domain.ExchangeEvent{
		ConversationID: in.PersonaID,
		PersonaID:      in.PersonaID,
		UserID:         in.Caller.UserID,
		Prompt:         in.Prompt,
		Reply:          reply,
		Persisted:      persisted,
		Timestamp:      s.now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("failed to marshal exchange event", zap.Error(err))
		return
	}
	if err := s.broker.Publish(ctx, ExchangeTopic, in.PersonaID, payload); err != nil {
		logger.Warn("failed to publish exchange event", zap.Error(err))
	}
}

// acquireConversation takes the per-conversation lock, creating the entry on
// first use. The ref count is bumped before blocking so releaseConversation
// knows whether anyone is still waiting.
func (s *ChatService) acquireConversation(conversationID string) *convLock {
	s.mu.Lock()
	lock, ok := s.convs[conversationID]
	if !ok {
		lock = &convLock{}
		s.convs[conversationID] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.Lock()
	return lock
}

// releaseConversation unlocks and evicts the entry once no goroutine holds or
// waits on it, keeping the map bounded by in-flight conversations.
func (s *ChatService) releaseConversation(conversationID string, lock *convLock) {
	lock.Unlock()

	s.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.convs, conversationID)
	}
	s.mu.Unlock()
}
