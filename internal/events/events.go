// Package events publishes authentication lifecycle events through watermill.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const (
	TopicLogin          = "auth.login"
	TopicSessionRevoked = "session.revoked"
)

// Login is published after a session token was issued.
type Login struct {
	TelegramID int64     `json:"telegram_id"`
	SessionID  string    `json:"jti"`
	Mock       bool      `json:"mock,omitempty"`
	At         time.Time `json:"at"`
}

// SessionRevoked is published after a session was signed out.
type SessionRevoked struct {
	TelegramID int64     `json:"telegram_id"`
	SessionID  string    `json:"jti"`
	At         time.Time `json:"at"`
}

// Publisher encodes events as JSON watermill messages.
type Publisher struct {
	publisher message.Publisher
}

func NewPublisher(publisher message.Publisher) *Publisher {
	return &Publisher{publisher: publisher}
}

func (p *Publisher) PublishLogin(ctx context.Context, e Login) error {
	return p.publish(ctx, TopicLogin, e)
}

func (p *Publisher) PublishRevoked(ctx context.Context, e SessionRevoked) error {
	return p.publish(ctx, TopicSessionRevoked, e)
}

func (p *Publisher) publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", topic, err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", topic, err)
	}
	return nil
}

// DecodeRevoked parses a message received from TopicSessionRevoked.
func DecodeRevoked(msg *message.Message) (SessionRevoked, error) {
	var e SessionRevoked
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return e, fmt.Errorf("decode %s event: %w", TopicSessionRevoked, err)
	}
	return e, nil
}

// Noop drops every event. Used when EVENTS_ENABLED=false.
type Noop struct{}

func (Noop) PublishLogin(context.Context, Login) error            { return nil }
func (Noop) PublishRevoked(context.Context, SessionRevoked) error { return nil }
