package service

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"diamond_tma/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBotToken  = "123456:TEST-bot-token"
	testJWTSecret = "jwt-secret-for-tests"
)

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	ti, err := NewTokenIssuer(testJWTSecret, testBotToken, "", 0)
	require.NoError(t, err)
	return ti
}

func TestNewTokenIssuer_RejectsBadSecrets(t *testing.T) {
	_, err := NewTokenIssuer("", testBotToken, "", 0)
	assert.ErrorIs(t, err, domain.ErrServerMisconfigured)

	_, err = NewTokenIssuer(testBotToken, testBotToken, "", 0)
	assert.ErrorIs(t, err, domain.ErrServerMisconfigured)
}

func TestTokenIssuer_MintAndParse(t *testing.T) {
	ti := newTestIssuer(t)
	now := time.Now()

	token, minted, err := ti.Mint(domain.Identity{TelegramID: 123, FirstName: "Ada"}, now)
	require.NoError(t, err)

	assert.Equal(t, int64(123), minted.TelegramID)
	assert.NotEmpty(t, minted.ID)
	assert.True(t, minted.ExpiresAt.After(minted.IssuedAt))
	assert.Equal(t, DefaultSessionTTL, minted.ExpiresAt.Sub(minted.IssuedAt))

	parsed, err := ti.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, minted.ID, parsed.ID)
	assert.Equal(t, minted.TelegramID, parsed.TelegramID)
	assert.True(t, minted.ExpiresAt.Equal(parsed.ExpiresAt))
	assert.True(t, minted.IssuedAt.Equal(parsed.IssuedAt))
}

func TestTokenIssuer_EachTokenHasOwnID(t *testing.T) {
	ti := newTestIssuer(t)
	_, a, err := ti.Mint(domain.Identity{TelegramID: 1}, time.Now())
	require.NoError(t, err)
	_, b, err := ti.Mint(domain.Identity{TelegramID: 1}, time.Now())
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestTokenIssuer_Expired(t *testing.T) {
	ti := newTestIssuer(t)
	token, _, err := ti.Mint(domain.Identity{TelegramID: 1}, time.Now().Add(-25*time.Hour))
	require.NoError(t, err)

	_, err = ti.Parse(token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestTokenIssuer_RejectsTamperedExpiry(t *testing.T) {
	ti := newTestIssuer(t)
	token, _, err := ti.Mint(domain.Identity{TelegramID: 1}, time.Now())
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	// push exp a year out and re-encode the payload, keeping the old signature
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	payload["exp"] = time.Now().Add(365 * 24 * time.Hour).Unix()
	raw, err = json.Marshal(payload)
	require.NoError(t, err)

	tampered := parts[0] + "." + base64.RawURLEncoding.EncodeToString(raw) + "." + parts[2]
	_, err = ti.Parse(tampered)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestTokenIssuer_RejectsForeignTokens(t *testing.T) {
	ti := newTestIssuer(t)

	other, err := NewTokenIssuer("some-other-secret", testBotToken, "", 0)
	require.NoError(t, err)
	foreign, _, err := other.Mint(domain.Identity{TelegramID: 1}, time.Now())
	require.NoError(t, err)
	_, err = ti.Parse(foreign)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid, "wrong secret")

	otherIss, err := NewTokenIssuer(testJWTSecret, testBotToken, "someone-else", 0)
	require.NoError(t, err)
	wrongIss, _, err := otherIss.Mint(domain.Identity{TelegramID: 1}, time.Now())
	require.NoError(t, err)
	_, err = ti.Parse(wrongIss)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid, "wrong issuer")

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "tid": 1}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ti.Parse(none)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid, "alg none")

	_, err = ti.Parse("not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestTokenIssuer_SubjectMustMatchTelegramID(t *testing.T) {
	ti := newTestIssuer(t)
	now := time.Now()
	claims := SessionTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    DefaultIssuer,
			Subject:   "99",
			Audience:  jwt.ClaimStrings{SessionAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        "id",
		},
		TelegramID: 1,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	_, err = ti.Parse(token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}
