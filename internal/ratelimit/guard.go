// Package ratelimit bounds how often a key may perform an action within a
// sliding time window.
package ratelimit

import (
	"context"
	"time"
)

// Guard reports whether one more attempt for key fits into the last window.
// An allowed attempt is recorded; a denied one is not.
type Guard interface {
	Allow(ctx context.Context, key string, max int, window time.Duration) (bool, error)
}

// Sign-in throttle applied by the client before calling the server.
const (
	DefaultSignInAttempts = 3
	DefaultSignInWindow   = 5 * time.Second
)
