package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// webAppDataKey is the constant HMAC key Telegram uses to derive the
// per-bot secret for Mini App init data.
const webAppDataKey = "WebAppData"

const hashField = "hash"

// DataCheckString returns the canonical string Telegram signs: every field
// except hash, sorted by key, joined as key=value lines. When a key repeats
// the last value wins.
func DataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k, v := range values {
		if k == hashField || len(v) == 0 {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+lastValue(values, k))
	}
	return strings.Join(parts, "\n")
}

// Verify reports whether raw init data carries a valid signature for
// botToken. It fails closed on empty input, parse errors and a missing hash.
func Verify(raw, botToken string) bool {
	if raw == "" || botToken == "" {
		return false
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return false
	}
	return verifyValues(values, botToken)
}

// Sign canonicalizes values, drops any existing hash and returns the
// encoded query string with a fresh hash appended.
func Sign(values url.Values, botToken string) string {
	signed := url.Values{}
	for k, v := range values {
		if k == hashField || len(v) == 0 {
			continue
		}
		signed.Set(k, v[len(v)-1])
	}
	signed.Set(hashField, expectedHash(signed, botToken))
	return signed.Encode()
}

func verifyValues(values url.Values, botToken string) bool {
	if botToken == "" {
		return false
	}
	provided := lastValue(values, hashField)
	if provided == "" {
		return false
	}
	expected := expectedHash(values, botToken)
	return hmac.Equal([]byte(expected), []byte(provided))
}

func expectedHash(values url.Values, botToken string) string {
	secret := hmacSHA256([]byte(webAppDataKey), []byte(botToken))
	return hex.EncodeToString(hmacSHA256(secret, []byte(DataCheckString(values))))
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func lastValue(values url.Values, key string) string {
	v := values[key]
	if len(v) == 0 {
		return ""
	}
	return v[len(v)-1]
}
