package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"diamond_tma/internal/domain"
	"diamond_tma/internal/events"
	"diamond_tma/internal/logger"
	"diamond_tma/internal/revocation"
	"diamond_tma/internal/telegram"
)

// EventPublisher receives auth lifecycle events.
type EventPublisher interface {
	PublishLogin(ctx context.Context, e events.Login) error
	PublishRevoked(ctx context.Context, e events.SessionRevoked) error
}

// MockConfig is the development-only posture that issues sessions for
// payloads whose signature or timestamp did not verify.
type MockConfig struct {
	Enabled  bool
	Identity domain.Identity
}

type AuthDeps struct {
	Validator *telegram.Validator
	Sessions  *SessionIssuer
	Revoked   revocation.Store
	Audit     *AuditService
	Events    EventPublisher
	Mock      MockConfig
}

// AuthService turns init data into sessions and manages their revocation.
type AuthService struct {
	validator *telegram.Validator
	sessions  *SessionIssuer
	revoked   revocation.Store
	audit     *AuditService
	events    EventPublisher
	mock      MockConfig
	now       func() time.Time
}

func NewAuthService(deps AuthDeps) *AuthService {
	if deps.Events == nil {
		deps.Events = events.Noop{}
	}
	if deps.Mock.Enabled {
		logger.Warn("auth mock mode enabled: unverified init data will be accepted",
			"mock_telegram_id", deps.Mock.Identity.TelegramID)
	}
	return &AuthService{
		validator: deps.Validator,
		sessions:  deps.Sessions,
		revoked:   deps.Revoked,
		audit:     deps.Audit,
		events:    deps.Events,
		mock:      deps.Mock,
		now:       time.Now,
	}
}

// LoginResult is the outcome of Authenticate. Security is set on failure too.
type LoginResult struct {
	Identity domain.Identity
	Session  Session
	Security domain.SecurityInfo
	Mock     bool
}

// Authenticate verifies raw init data and issues a session for its user.
func (s *AuthService) Authenticate(ctx context.Context, raw string, meta RequestMeta) (LoginResult, error) {
	start := time.Now()
	defer func() { AuthDuration.Observe(time.Since(start).Seconds()) }()

	log := logger.WithContext(ctx)
	now := s.now()

	res, err := s.validator.Validate(raw, now)
	out := LoginResult{Identity: res.Identity, Security: res.Security}

	if err != nil {
		if !s.mockAccepts(err) {
			reason := domain.ReasonOf(err)
			AuthVerifications.WithLabelValues(reason).Inc()
			log.Warn("init data rejected", "reason", reason, "ip", meta.IP)
			s.audit.LogRejected(ctx, reason, res.Security, meta)
			return out, err
		}
		out.Identity = s.mockIdentity(raw)
		out.Mock = true
		log.Warn("issuing mock session for unverified init data",
			"reason", domain.ReasonOf(err),
			"telegram_id", out.Identity.TelegramID,
		)
	}

	sess, err := s.sessions.Issue(ctx, out.Identity, now)
	if err != nil {
		AuthVerifications.WithLabelValues(domain.ReasonServerMisconfigured).Inc()
		log.Error("failed to issue session", "error", err, "telegram_id", out.Identity.TelegramID)
		return LoginResult{Security: res.Security}, fmt.Errorf("issue session: %w", domain.ErrServerMisconfigured)
	}
	out.Session = sess

	if out.Mock {
		AuthVerifications.WithLabelValues("mock").Inc()
	} else {
		AuthVerifications.WithLabelValues(domain.ReasonOK).Inc()
	}
	s.audit.LogLogin(ctx, out.Identity.TelegramID, sess.Claims.ID, out.Mock, meta)

	if err := s.events.PublishLogin(ctx, events.Login{
		TelegramID: out.Identity.TelegramID,
		SessionID:  sess.Claims.ID,
		Mock:       out.Mock,
		At:         now,
	}); err != nil {
		log.Error("failed to publish login event", "error", err)
	}

	log.Info("session issued", "telegram_id", out.Identity.TelegramID, "jti", sess.Claims.ID)
	return out, nil
}

func (s *AuthService) mockAccepts(err error) bool {
	if !s.mock.Enabled {
		return false
	}
	return errors.Is(err, domain.ErrSignatureInvalid) || errors.Is(err, domain.ErrTimestampExpired)
}

func (s *AuthService) mockIdentity(raw string) domain.Identity {
	if id, err := telegram.ExtractUser(raw); err == nil {
		return id
	}
	return s.mock.Identity
}

// VerifyToken parses a presented session token and rejects revoked ones.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (domain.SessionClaims, error) {
	claims, err := s.sessions.Tokens().Parse(token)
	if err != nil {
		return domain.SessionClaims{}, err
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return domain.SessionClaims{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return domain.SessionClaims{}, domain.ErrTokenRevoked
	}
	return claims, nil
}

// Logout revokes the session until its token would have expired.
func (s *AuthService) Logout(ctx context.Context, claims domain.SessionClaims, meta RequestMeta) error {
	now := s.now()
	if err := s.revoked.Revoke(ctx, claims.ID, claims.Remaining(now)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	s.audit.LogLogout(ctx, claims.TelegramID, claims.ID, meta)

	if err := s.events.PublishRevoked(ctx, events.SessionRevoked{
		TelegramID: claims.TelegramID,
		SessionID:  claims.ID,
		At:         now,
	}); err != nil {
		logger.WithContext(ctx).Error("failed to publish revocation event", "error", err)
	}
	return nil
}

// Profile returns the stored profile for telegramID.
func (s *AuthService) Profile(ctx context.Context, telegramID int64) (*domain.UserProfile, error) {
	return s.sessions.Profile(ctx, telegramID)
}

// MaxAge returns the init data freshness window in force.
func (s *AuthService) MaxAge() time.Duration { return s.validator.MaxAge() }
