package websocket

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/companionkit/agentic/domain"
	"github.com/companionkit/agentic/usecase"
	"github.com/companionkit/agentic/utils/log"
)

// Server bridges the event broker to connected websocket clients: every
// completed exchange is broadcast as a JSON frame to every feed subscriber.
type Server struct {
	upgrader websocket.Upgrader
	broker   domain.EventBroker
	hub      *Hub
}

func NewServer(broker domain.EventBroker) *Server {
	server := &Server{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		broker:   broker,
		hub:      NewHub(),
	}

	go server.startExchangeListener()

	return server
}

func (s *Server) RunHub() {
	s.hub.Run()
}

func (s *Server) GetHub() *Hub {
	return s.hub
}

// startExchangeListener subscribes to the topic-wide exchange feed and
// rebroadcasts each event to the hub.
func (s *Server) startExchangeListener() {
	ctx := context.Background()

	eventChan, err := s.broker.Subscribe(ctx, usecase.ExchangeTopic, "")
	if err != nil {
		log.WithCtx(ctx).Error("failed to subscribe to exchange topic", zap.Error(err))
		return
	}

	log.WithCtx(ctx).Info("websocket feed listening for exchanges")

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				log.WithCtx(ctx).Info("exchange feed channel closed")
				return
			}

			var exchange domain.ExchangeEvent
			if err := json.Unmarshal(event.Payload, &exchange); err != nil {
				log.WithCtx(ctx).Error("failed to unmarshal exchange event", zap.Error(err))
				continue
			}

			frame, err := json.Marshal(map[string]interface{}{
				"type":            "exchange",
				"conversation_id": exchange.ConversationID,
				"persona_id":      exchange.PersonaID,
				"user_id":         exchange.UserID,
				"prompt":          exchange.Prompt,
				"reply":           exchange.Reply,
				"persisted":       exchange.Persisted,
				"timestamp":       exchange.Timestamp,
			})
			if err != nil {
				log.WithCtx(ctx).Error("failed to marshal feed frame", zap.Error(err))
				continue
			}

			s.hub.Broadcast(frame)

		case <-ctx.Done():
			log.WithCtx(ctx).Info("exchange listener stopped")
			return
		}
	}
}
