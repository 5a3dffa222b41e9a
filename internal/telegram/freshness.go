package telegram

import (
	"math"
	"time"
)

// DefaultInitDataMaxAge is how old auth_date may be when init data reaches
// the verification endpoint.
const DefaultInitDataMaxAge = 5 * time.Minute

// CheckFreshness reports whether a payload signed at authDate (unix seconds)
// is at most maxAge old at now. Future-dated payloads are rejected.
func CheckFreshness(authDate int64, now time.Time, maxAge time.Duration) bool {
	if maxAge < 0 || authDate < 0 || authDate > math.MaxInt64/1000 {
		return false
	}
	delta := now.UnixMilli() - authDate*1000
	return delta >= 0 && delta <= maxAge.Milliseconds()
}
