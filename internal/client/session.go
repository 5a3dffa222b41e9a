package client

import (
	"context"
	"sync"
	"time"

	"diamond_tma/internal/domain"
)

// LocalSession is the client-held copy of an issued session.
type LocalSession struct {
	User      domain.Identity `json:"user"`
	Token     string          `json:"token"`
	CreatedAt time.Time       `json:"created_at"`
	// ExpiresAt mirrors the token's exp claim.
	ExpiresAt time.Time `json:"expires_at"`
}

// Remaining returns how long the session may still be used after now.
// maxAge caps the lifetime counted from CreatedAt when positive.
func (s *LocalSession) Remaining(now time.Time, maxAge time.Duration) time.Duration {
	end := s.ExpiresAt
	if maxAge > 0 {
		if capped := s.CreatedAt.Add(maxAge); capped.Before(end) {
			end = capped
		}
	}
	return end.Sub(now)
}

// SessionStore persists the local session between manager instances.
type SessionStore interface {
	Load(ctx context.Context) (*LocalSession, error)
	Save(ctx context.Context, s *LocalSession) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	session *LocalSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns nil when nothing is stored.
func (m *MemoryStore) Load(_ context.Context) (*LocalSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil
	}
	cp := *m.session
	return &cp, nil
}

func (m *MemoryStore) Save(_ context.Context, s *LocalSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.session = &cp
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}
