package telegram

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"diamond_tma/internal/domain"
)

// MaxInitDataLength bounds the raw payload size accepted for verification.
// Clients put long photo URLs and start params in init data, so this sits
// well above what a typical launch sends.
const MaxInitDataLength = 16 << 10

const authDateField = "auth_date"

// Result is the outcome of validating one init data payload.
type Result struct {
	Identity domain.Identity
	AuthDate time.Time
	// Fields holds every signed field, hash excluded (query_id, chat_instance, ...).
	Fields   map[string]string
	Security domain.SecurityInfo
}

// Validator runs signature, freshness and user checks in that order and
// stops at the first failure.
type Validator struct {
	botToken string
	maxAge   time.Duration
}

// NewValidator creates a validator for init data signed for botToken.
// A maxAge <= 0 selects DefaultInitDataMaxAge.
func NewValidator(botToken string, maxAge time.Duration) *Validator {
	if maxAge <= 0 {
		maxAge = DefaultInitDataMaxAge
	}
	return &Validator{botToken: botToken, maxAge: maxAge}
}

// MaxAge returns the freshness window enforced by v.
func (v *Validator) MaxAge() time.Duration { return v.maxAge }

// Validate checks raw at time now. The returned Result carries SecurityInfo
// even on failure; Identity is only set when err is nil.
func (v *Validator) Validate(raw string, now time.Time) (Result, error) {
	var res Result
	if v.botToken == "" {
		return res, fmt.Errorf("bot token is not configured: %w", domain.ErrServerMisconfigured)
	}

	values, err := parseInitData(raw)
	if err != nil {
		return res, err
	}

	res.Security.SignatureValid = verifyValues(values, v.botToken)

	// freshness is computed before the signature verdict is acted on so a
	// rejected response can still report it; it is never trusted alone
	authDate, dateErr := parseAuthDate(values)
	if dateErr == nil {
		res.AuthDate = time.Unix(authDate, 0)
		res.Security.AgeSeconds = now.Unix() - authDate
		res.Security.TimestampValid = CheckFreshness(authDate, now, v.maxAge)
	}

	if !res.Security.SignatureValid {
		return res, domain.ErrSignatureInvalid
	}
	if dateErr != nil {
		return res, dateErr
	}
	if !res.Security.TimestampValid {
		return res, fmt.Errorf("auth_date is %ds old, max %s: %w",
			res.Security.AgeSeconds, v.maxAge, domain.ErrTimestampExpired)
	}
	res.Security.ReplayProtected = true

	identity, err := extractUser(values)
	if err != nil {
		return res, err
	}
	res.Identity = identity
	res.Fields = signedFields(values)
	return res, nil
}

func parseInitData(raw string) (url.Values, error) {
	if raw == "" {
		return nil, fmt.Errorf("init data is empty: %w", domain.ErrMalformedInput)
	}
	if len(raw) > MaxInitDataLength {
		return nil, fmt.Errorf("init data exceeds %d bytes: %w", MaxInitDataLength, domain.ErrMalformedInput)
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("parse init data: %w", domain.ErrMalformedInput)
	}
	if lastValue(values, hashField) == "" {
		return nil, fmt.Errorf("hash is missing: %w", domain.ErrMalformedInput)
	}
	return values, nil
}

func parseAuthDate(values url.Values) (int64, error) {
	s := lastValue(values, authDateField)
	if s == "" {
		return 0, fmt.Errorf("auth_date is missing: %w", domain.ErrMalformedInput)
	}
	authDate, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("auth_date is not a unix timestamp: %w", domain.ErrMalformedInput)
	}
	return authDate, nil
}

func signedFields(values url.Values) map[string]string {
	fields := make(map[string]string, len(values))
	for k := range values {
		if k == hashField {
			continue
		}
		fields[k] = lastValue(values, k)
	}
	return fields
}
