package websocket

import (
	"fmt"

	"github.com/companionkit/agentic/utils/log"
)

// Hub tracks connected feed clients and fans exchange events out to them.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub loop.
func (h *Hub) Run() {
	go h.run()
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			log.WithCtx(client.ctx).Debug("feed client registered")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
				log.WithCtx(client.ctx).Debug("feed client unregistered")
			}
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast sends a message to every connected client.
func (h *Hub) Broadcast(message []byte) {
	for client := range h.clients {
		if !client.IsClosed() {
			client.SendMessage(message)
		}
	}
}

// SendToUser sends a message to the first open client of a user.
func (h *Hub) SendToUser(userID string, message []byte) error {
	for client := range h.clients {
		if client.userID == userID && !client.IsClosed() {
			return client.SendMessage(message)
		}
	}
	return fmt.Errorf("no connected client for user %s", userID)
}

func (h *Hub) ClientCount() int {
	return len(h.clients)
}
