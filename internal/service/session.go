package service

import (
	"context"
	"time"

	"diamond_tma/internal/domain"
	"diamond_tma/internal/logger"
)

// ProfileStore persists user profiles keyed by telegram id.
type ProfileStore interface {
	Upsert(ctx context.Context, p *domain.UserProfile) error
	GetByTelegramID(ctx context.Context, telegramID int64) (*domain.UserProfile, error)
}

// Session is an issued token together with its decoded claims.
type Session struct {
	Token  string
	Claims domain.SessionClaims
}

// SessionIssuer is the only writer of user profiles and the only minter
// of session tokens.
type SessionIssuer struct {
	tokens   *TokenIssuer
	profiles ProfileStore
}

func NewSessionIssuer(tokens *TokenIssuer, profiles ProfileStore) *SessionIssuer {
	return &SessionIssuer{tokens: tokens, profiles: profiles}
}

// Issue mints a session for identity and upserts its profile. A failed
// upsert is logged and counted but does not fail the login.
func (s *SessionIssuer) Issue(ctx context.Context, identity domain.Identity, now time.Time) (Session, error) {
	token, claims, err := s.tokens.Mint(identity, now)
	if err != nil {
		return Session{}, err
	}

	if err := s.profiles.Upsert(ctx, domain.ProfileFromIdentity(identity, now)); err != nil {
		ProfileUpsertFailures.Inc()
		logger.WithContext(ctx).Error("failed to upsert profile",
			"error", err,
			"telegram_id", identity.TelegramID,
		)
	}

	return Session{Token: token, Claims: claims}, nil
}

// Profile returns the stored profile for telegramID.
func (s *SessionIssuer) Profile(ctx context.Context, telegramID int64) (*domain.UserProfile, error) {
	return s.profiles.GetByTelegramID(ctx, telegramID)
}

// Tokens exposes the issuer used to verify presented tokens.
func (s *SessionIssuer) Tokens() *TokenIssuer { return s.tokens }
