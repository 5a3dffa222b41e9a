package repository

import (
	"context"
	"sync"
	"time"

	"diamond_tma/internal/domain"
)

// MemoryProfileRepository keeps profiles in process. Used in development
// when DATABASE_URL is unset, and in tests.
type MemoryProfileRepository struct {
	mu       sync.RWMutex
	profiles map[int64]domain.UserProfile
	now      func() time.Time
}

func NewMemoryProfileRepository() *MemoryProfileRepository {
	return &MemoryProfileRepository{
		profiles: make(map[int64]domain.UserProfile),
		now:      time.Now,
	}
}

func (r *MemoryProfileRepository) Upsert(_ context.Context, p *domain.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if existing, ok := r.profiles[p.TelegramID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	r.profiles[p.TelegramID] = *p
	return nil
}

func (r *MemoryProfileRepository) GetByTelegramID(_ context.Context, telegramID int64) (*domain.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[telegramID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return &p, nil
}

// Len returns the number of stored profiles.
func (r *MemoryProfileRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}
