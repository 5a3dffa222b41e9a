package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"diamond_tma/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultSessionTTL = 24 * time.Hour
	DefaultIssuer     = "diamond_tma"

	// SessionAudience scopes tokens to the mini app API.
	SessionAudience = "tma:session"
)

// SessionTokenClaims is the JWT payload of a session token.
type SessionTokenClaims struct {
	jwt.RegisteredClaims
	TelegramID int64 `json:"tid"`
}

// TokenIssuer mints and parses HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer refuses an empty secret and a secret equal to the bot
// token, so a leaked bot token can never be used to forge sessions.
func NewTokenIssuer(secret, botToken, issuer string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is not set: %w", domain.ErrServerMisconfigured)
	}
	if secret == botToken {
		return nil, fmt.Errorf("jwt secret must differ from the bot token: %w", domain.ErrServerMisconfigured)
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

// Mint signs a session token for identity valid from now for the issuer TTL.
func (t *TokenIssuer) Mint(identity domain.Identity, now time.Time) (string, domain.SessionClaims, error) {
	now = now.Truncate(time.Second)
	sc := domain.SessionClaims{
		ID:         uuid.NewString(),
		TelegramID: identity.TelegramID,
		IssuedAt:   now,
		ExpiresAt:  now.Add(t.ttl),
	}

	claims := SessionTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   strconv.FormatInt(identity.TelegramID, 10),
			Audience:  jwt.ClaimStrings{SessionAudience},
			ExpiresAt: jwt.NewNumericDate(sc.ExpiresAt),
			NotBefore: jwt.NewNumericDate(sc.IssuedAt),
			IssuedAt:  jwt.NewNumericDate(sc.IssuedAt),
			ID:        sc.ID,
		},
		TelegramID: identity.TelegramID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", domain.SessionClaims{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, sc, nil
}

// Parse verifies tokenString and returns its claims. Expired tokens yield
// domain.ErrTokenExpired; every other failure yields domain.ErrTokenInvalid.
func (t *TokenIssuer) Parse(tokenString string) (domain.SessionClaims, error) {
	var claims SessionTokenClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(SessionAudience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.SessionClaims{}, domain.ErrTokenExpired
		}
		return domain.SessionClaims{}, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	if claims.TelegramID <= 0 || claims.Subject != strconv.FormatInt(claims.TelegramID, 10) || claims.ID == "" {
		return domain.SessionClaims{}, fmt.Errorf("%w: subject mismatch", domain.ErrTokenInvalid)
	}

	sc := domain.SessionClaims{
		ID:         claims.ID,
		TelegramID: claims.TelegramID,
		ExpiresAt:  claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		sc.IssuedAt = claims.IssuedAt.Time
	}
	return sc, nil
}
