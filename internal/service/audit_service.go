package service

import (
	"context"

	"diamond_tma/internal/domain"
	"diamond_tma/internal/logger"
)

// AuditStore persists audit entries.
type AuditStore interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	GetByTelegramID(ctx context.Context, telegramID int64, limit int) ([]*domain.AuditLog, error)
}

// RequestMeta is the caller information recorded with audit entries.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// AuditService handles audit logging
type AuditService struct {
	repo AuditStore
}

// NewAuditService creates a new audit service
func NewAuditService(repo AuditStore) *AuditService {
	return &AuditService{repo: repo}
}

// LogWithRequest creates an audit log with request info (IP, User-Agent)
func (s *AuditService) LogWithRequest(ctx context.Context, telegramID int64, action, category string, meta RequestMeta, details map[string]interface{}) {
	entry := &domain.AuditLog{
		TelegramID: telegramID,
		Action:     action,
		Category:   category,
		Details:    details,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		logger.WithContext(ctx).Error("failed to create audit log", "error", err, "action", action, "telegram_id", telegramID)
	}
}

// LogLogin logs a successful login
func (s *AuditService) LogLogin(ctx context.Context, telegramID int64, sessionID string, mock bool, meta RequestMeta) {
	action := domain.AuditActionLogin
	if mock {
		action = domain.AuditActionLoginMock
	}
	s.LogWithRequest(ctx, telegramID, action, domain.AuditCategoryAuth, meta, map[string]interface{}{
		"jti": sessionID,
	})
}

// LogRejected logs a failed verification. telegramID is 0 when the
// payload never yielded a trusted identity.
func (s *AuditService) LogRejected(ctx context.Context, reason string, security domain.SecurityInfo, meta RequestMeta) {
	s.LogWithRequest(ctx, 0, domain.AuditActionLoginRejected, domain.AuditCategoryAuth, meta, map[string]interface{}{
		"reason":          reason,
		"signature_valid": security.SignatureValid,
		"timestamp_valid": security.TimestampValid,
		"age_seconds":     security.AgeSeconds,
	})
}

// LogLogout logs a session sign-out
func (s *AuditService) LogLogout(ctx context.Context, telegramID int64, sessionID string, meta RequestMeta) {
	s.LogWithRequest(ctx, telegramID, domain.AuditActionLogout, domain.AuditCategorySession, meta, map[string]interface{}{
		"jti": sessionID,
	})
}

// GetUserAuditLogs returns audit logs for a user
func (s *AuditService) GetUserAuditLogs(ctx context.Context, telegramID int64, limit int) ([]*domain.AuditLog, error) {
	return s.repo.GetByTelegramID(ctx, telegramID, limit)
}
