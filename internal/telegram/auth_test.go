package telegram

import (
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"diamond_tma/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adaUser = `{"id":123,"first_name":"Ada"}`

func TestValidator_AcceptsFreshSignedPayload(t *testing.T) {
	now := time.Unix(1_700_000_100, 0)
	raw := buildInitData(t, testBotToken, now.Unix()-100, adaUser, map[string]string{"query_id": "AAH"})

	res, err := NewValidator(testBotToken, 5*time.Minute).Validate(raw, now)
	require.NoError(t, err)

	assert.Equal(t, int64(123), res.Identity.TelegramID)
	assert.Equal(t, "Ada", res.Identity.FirstName)
	assert.Equal(t, time.Unix(1_700_000_000, 0), res.AuthDate)
	assert.Equal(t, "AAH", res.Fields["query_id"])
	assert.NotContains(t, res.Fields, "hash")
	assert.Equal(t, domain.SecurityInfo{
		TimestampValid:  true,
		AgeSeconds:      100,
		SignatureValid:  true,
		ReplayProtected: true,
	}, res.Security)
}

func TestValidator_AcceptsLargeSignedPayload(t *testing.T) {
	now := time.Now()
	photo := "https://t.me/i/userpic/320/" + strings.Repeat("x", 5000) + ".svg"
	user := `{"id":123,"first_name":"Ada","photo_url":"` + photo + `"}`
	raw := buildInitData(t, testBotToken, now.Unix(), user, map[string]string{"query_id": "AAH"})
	require.Greater(t, len(raw), 5000)
	require.LessOrEqual(t, len(raw), MaxInitDataLength)

	res, err := NewValidator(testBotToken, 5*time.Minute).Validate(raw, now)
	require.NoError(t, err)

	assert.Equal(t, int64(123), res.Identity.TelegramID)
	assert.True(t, res.Security.SignatureValid)
}

func TestValidator_StalePayloadIsExpired(t *testing.T) {
	now := time.Now()
	raw := buildInitData(t, testBotToken, now.Unix()-3600, adaUser, nil)

	res, err := NewValidator(testBotToken, 5*time.Minute).Validate(raw, now)

	assert.ErrorIs(t, err, domain.ErrTimestampExpired)
	assert.True(t, res.Security.SignatureValid)
	assert.False(t, res.Security.TimestampValid)
	assert.False(t, res.Security.ReplayProtected)
	assert.Equal(t, int64(3600), res.Security.AgeSeconds)
}

func TestValidator_FutureDatedPayloadIsExpired(t *testing.T) {
	now := time.Now()
	raw := buildInitData(t, testBotToken, now.Unix()+60, adaUser, nil)

	_, err := NewValidator(testBotToken, 5*time.Minute).Validate(raw, now)

	assert.ErrorIs(t, err, domain.ErrTimestampExpired)
}

func TestValidator_SignatureFailureReportedBeforeFreshness(t *testing.T) {
	now := time.Now()
	raw := buildInitData(t, "another-bot", now.Unix()-3600, adaUser, nil)

	res, err := NewValidator(testBotToken, 5*time.Minute).Validate(raw, now)

	assert.ErrorIs(t, err, domain.ErrSignatureInvalid)
	assert.NotErrorIs(t, err, domain.ErrTimestampExpired)
	// timestamp verdict is still reported for diagnostics
	assert.False(t, res.Security.SignatureValid)
	assert.False(t, res.Security.TimestampValid)
	assert.Equal(t, int64(3600), res.Security.AgeSeconds)
	assert.Zero(t, res.Identity)
}

func TestValidator_SignatureFailureReportedBeforeUserErrors(t *testing.T) {
	now := time.Now()
	raw := buildInitData(t, "another-bot", now.Unix(), `{"first_name":"NoID"}`, nil)

	_, err := NewValidator(testBotToken, 0).Validate(raw, now)

	assert.ErrorIs(t, err, domain.ErrSignatureInvalid)
}

func TestValidator_MissingUserFieldsAfterValidSignature(t *testing.T) {
	now := time.Now()
	raw := buildInitData(t, testBotToken, now.Unix(), `{"first_name":"NoID"}`, nil)

	res, err := NewValidator(testBotToken, 0).Validate(raw, now)

	assert.ErrorIs(t, err, domain.ErrMissingUserFields)
	assert.True(t, res.Security.SignatureValid)
	assert.True(t, res.Security.TimestampValid)
}

func TestValidator_MalformedInputs(t *testing.T) {
	now := time.Now()
	noDate := Sign(url.Values{"user": {adaUser}}, testBotToken)
	badDate := Sign(url.Values{"user": {adaUser}, "auth_date": {"yesterday"}}, testBotToken)
	unsigned := url.Values{"user": {adaUser}, "auth_date": {strconv.FormatInt(now.Unix(), 10)}}.Encode()

	cases := map[string]string{
		"empty":             "",
		"oversized":         "user=" + strings.Repeat("a", MaxInitDataLength),
		"unparseable":       "%zz",
		"missing hash":      unsigned,
		"missing auth_date": noDate,
		"invalid auth_date": badDate,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewValidator(testBotToken, 0).Validate(raw, now)
			assert.ErrorIs(t, err, domain.ErrMalformedInput)
		})
	}
}

func TestValidator_MissingBotTokenIsMisconfiguration(t *testing.T) {
	raw := buildInitData(t, testBotToken, time.Now().Unix(), adaUser, nil)

	_, err := NewValidator("", 0).Validate(raw, time.Now())

	assert.ErrorIs(t, err, domain.ErrServerMisconfigured)
}

func TestNewValidator_DefaultsMaxAge(t *testing.T) {
	assert.Equal(t, DefaultInitDataMaxAge, NewValidator(testBotToken, 0).MaxAge())
	assert.Equal(t, time.Minute, NewValidator(testBotToken, time.Minute).MaxAge())
}
