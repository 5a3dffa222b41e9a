package domain

import "errors"

// Verification failures. Deterministic: resubmitting the same init data
// yields the same outcome, so none of these are retried.
var (
	ErrMalformedInput    = errors.New("malformed init data")
	ErrSignatureInvalid  = errors.New("init data signature invalid")
	ErrTimestampExpired  = errors.New("init data timestamp expired")
	ErrMissingUserFields = errors.New("init data user is missing required fields")
)

// Environment and transport failures.
var (
	// ErrEnvironmentUnavailable means the host gave us no init data at all,
	// as opposed to init data that is present but invalid.
	ErrEnvironmentUnavailable = errors.New("telegram host environment unavailable")
	ErrNetworkOrTimeout       = errors.New("network error or timeout")
	ErrServerMisconfigured    = errors.New("server misconfigured")
	ErrThrottled              = errors.New("too many authentication attempts")
)

// Session token failures.
var (
	ErrTokenInvalid = errors.New("invalid session token")
	ErrTokenExpired = errors.New("session token expired")
	ErrTokenRevoked = errors.New("session token revoked")
)

// ErrProfileNotFound is returned by profile stores for unknown telegram ids.
var ErrProfileNotFound = errors.New("profile not found")

// Reason codes used in logs, metrics and audit details.
const (
	ReasonOK                     = "ok"
	ReasonMalformedInput         = "malformed_input"
	ReasonSignatureInvalid       = "signature_invalid"
	ReasonTimestampExpired       = "timestamp_expired"
	ReasonMissingUserFields      = "missing_user_fields"
	ReasonEnvironmentUnavailable = "environment_unavailable"
	ReasonNetworkOrTimeout       = "network_or_timeout"
	ReasonServerMisconfigured    = "server_misconfigured"
	ReasonThrottled              = "throttled"
	ReasonTokenInvalid           = "token_invalid"
	ReasonTokenExpired           = "token_expired"
	ReasonTokenRevoked           = "token_revoked"
	ReasonUnknown                = "unknown"
)

var reasons = []struct {
	err  error
	code string
}{
	{ErrMalformedInput, ReasonMalformedInput},
	{ErrSignatureInvalid, ReasonSignatureInvalid},
	{ErrTimestampExpired, ReasonTimestampExpired},
	{ErrMissingUserFields, ReasonMissingUserFields},
	{ErrEnvironmentUnavailable, ReasonEnvironmentUnavailable},
	{ErrNetworkOrTimeout, ReasonNetworkOrTimeout},
	{ErrServerMisconfigured, ReasonServerMisconfigured},
	{ErrThrottled, ReasonThrottled},
	{ErrTokenInvalid, ReasonTokenInvalid},
	{ErrTokenExpired, ReasonTokenExpired},
	{ErrTokenRevoked, ReasonTokenRevoked},
}

// ReasonOf maps an error to its stable reason code.
func ReasonOf(err error) string {
	if err == nil {
		return ReasonOK
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.code
		}
	}
	return ReasonUnknown
}

// IsRejection reports whether err is a deterministic verification rejection
// that must not be retried with the same input.
func IsRejection(err error) bool {
	return errors.Is(err, ErrMalformedInput) ||
		errors.Is(err, ErrSignatureInvalid) ||
		errors.Is(err, ErrTimestampExpired) ||
		errors.Is(err, ErrMissingUserFields)
}
