package domain

import "time"

// AuditLog represents an audit log entry for tracking authentication actions
type AuditLog struct {
	ID         int64                  `db:"id" json:"id"`
	TelegramID int64                  `db:"telegram_id" json:"telegram_id"`
	Action     string                 `db:"action" json:"action"`
	Category   string                 `db:"category" json:"category"`
	Details    map[string]interface{} `db:"details" json:"details"`
	IP         string                 `db:"ip" json:"ip,omitempty"`
	UserAgent  string                 `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt  time.Time              `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryAuth    = "auth"
	AuditCategorySession = "session"
)

// Audit actions
const (
	AuditActionLogin         = "login"
	AuditActionLoginMock     = "login_mock"
	AuditActionLoginRejected = "login_rejected"
	AuditActionLogout        = "logout"
)
