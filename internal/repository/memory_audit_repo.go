package repository

import (
	"context"
	"sync"
	"time"

	"diamond_tma/internal/domain"
)

// MemoryAuditRepository is the audit sink used without a database.
type MemoryAuditRepository struct {
	mu     sync.Mutex
	logs   []domain.AuditLog
	nextID int64
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{}
}

func (r *MemoryAuditRepository) Create(_ context.Context, log *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	log.ID = r.nextID
	log.CreatedAt = time.Now()
	r.logs = append(r.logs, *log)
	return nil
}

func (r *MemoryAuditRepository) GetByTelegramID(_ context.Context, telegramID int64, limit int) ([]*domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.AuditLog
	for i := len(r.logs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.logs[i].TelegramID == telegramID {
			l := r.logs[i]
			out = append(out, &l)
		}
	}
	return out, nil
}

func (r *MemoryAuditRepository) GetByCategory(_ context.Context, category string, limit int) ([]*domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.AuditLog
	for i := len(r.logs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.logs[i].Category == category {
			l := r.logs[i]
			out = append(out, &l)
		}
	}
	return out, nil
}
