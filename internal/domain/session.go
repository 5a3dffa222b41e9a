package domain

import "time"

// SessionClaims is the decoded content of a session token.
type SessionClaims struct {
	ID         string
	TelegramID int64
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// Remaining returns how long the session stays valid after now.
func (c SessionClaims) Remaining(now time.Time) time.Duration {
	return c.ExpiresAt.Sub(now)
}

// SecurityInfo summarizes the checks run against one init data payload.
// Fields are filled as far as the pipeline got, so a failed response can
// still report e.g. timestamp validity next to a bad signature.
type SecurityInfo struct {
	TimestampValid  bool  `json:"timestamp_valid"`
	AgeSeconds      int64 `json:"age_seconds"`
	SignatureValid  bool  `json:"signature_valid"`
	ReplayProtected bool  `json:"replay_protected"`
}
