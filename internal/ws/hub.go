package ws

import (
	"context"
	"encoding/json"
	"sync"

	"diamond_tma/internal/events"
	"diamond_tma/internal/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Hub tracks live connections per telegram user and pushes session
// revocations to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[int64]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.TelegramID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.TelegramID] = set
	}
	set[c] = struct{}{}
	logger.Debug("ws client registered", "telegram_id", c.TelegramID, "connections", len(set))
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.TelegramID]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.TelegramID)
	}
}

// Connections returns the number of live connections for telegramID.
func (h *Hub) Connections(telegramID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[telegramID])
}

// NotifyRevoked tells every connection of the user that a session ended
// and closes the connections that were opened with that session.
// It returns the number of connections notified.
func (h *Hub) NotifyRevoked(e events.SessionRevoked) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[e.TelegramID]))
	for c := range h.clients[e.TelegramID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	notified := 0
	for _, c := range targets {
		current := c.SessionID == e.SessionID
		payload, _ := json.Marshal(Message{Type: MsgSessionRevoked, JTI: e.SessionID, Current: current})
		if c.enqueue(payload) {
			notified++
		}
		if current {
			c.closeSend()
		}
	}
	return notified
}

// Run consumes session.revoked events until ctx is done.
func (h *Hub) Run(ctx context.Context, sub message.Subscriber) error {
	msgs, err := sub.Subscribe(ctx, events.TopicSessionRevoked)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			e, err := events.DecodeRevoked(msg)
			if err != nil {
				logger.Warn("dropping malformed revocation event", "error", err, "message_id", msg.UUID)
				msg.Ack()
				continue
			}
			n := h.NotifyRevoked(e)
			logger.Debug("revocation pushed", "telegram_id", e.TelegramID, "jti", e.SessionID, "connections", n)
			msg.Ack()
		}
	}
}
