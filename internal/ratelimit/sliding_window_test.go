package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlidingWindow_AllowsUpToMaxThenDenies(t *testing.T) {
	ctx := context.Background()
	g := NewSlidingWindow()
	clock := time.Unix(1_700_000_000, 0)
	g.now = func() time.Time { return clock }

	for i := 0; i < DefaultSignInAttempts; i++ {
		ok, err := g.Allow(ctx, "signin", DefaultSignInAttempts, DefaultSignInWindow)
		assert.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
		clock = clock.Add(time.Second)
	}

	ok, _ := g.Allow(ctx, "signin", DefaultSignInAttempts, DefaultSignInWindow)
	assert.False(t, ok, "fourth attempt inside the window")

	// first attempt was at t0; at t0+5s it falls out of the window
	clock = time.Unix(1_700_000_005, 0)
	ok, _ = g.Allow(ctx, "signin", DefaultSignInAttempts, DefaultSignInWindow)
	assert.True(t, ok)
}

func TestSlidingWindow_DeniedAttemptsAreNotRecorded(t *testing.T) {
	ctx := context.Background()
	g := NewSlidingWindow()
	clock := time.Unix(0, 0)
	g.now = func() time.Time { return clock }

	ok, _ := g.Allow(ctx, "k", 1, time.Second)
	assert.True(t, ok)
	for i := 0; i < 10; i++ {
		clock = clock.Add(50 * time.Millisecond)
		ok, _ = g.Allow(ctx, "k", 1, time.Second)
		assert.False(t, ok)
	}

	clock = time.Unix(1, 1)
	ok, _ = g.Allow(ctx, "k", 1, time.Second)
	assert.True(t, ok, "hammering while throttled must not extend the window")
}

func TestSlidingWindow_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	g := NewSlidingWindow()

	ok, _ := g.Allow(ctx, "a", 1, time.Minute)
	assert.True(t, ok)
	ok, _ = g.Allow(ctx, "a", 1, time.Minute)
	assert.False(t, ok)
	ok, _ = g.Allow(ctx, "b", 1, time.Minute)
	assert.True(t, ok)

	g.Reset("a")
	ok, _ = g.Allow(ctx, "a", 1, time.Minute)
	assert.True(t, ok)
}

func TestSlidingWindow_NonPositiveLimitDenies(t *testing.T) {
	g := NewSlidingWindow()
	ok, err := g.Allow(context.Background(), "k", 0, time.Second)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestSlidingWindow_ConcurrentCallersNeverExceedMax(t *testing.T) {
	ctx := context.Background()
	g := NewSlidingWindow()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := g.Allow(ctx, "k", 3, time.Minute); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, allowed)
}

func TestSlidingWindow_IdleKeysAreSwept(t *testing.T) {
	ctx := context.Background()
	g := NewSlidingWindow()
	clock := time.Unix(1_700_000_000, 0)
	g.now = func() time.Time { return clock }

	for i := 0; i < 100; i++ {
		ok, _ := g.Allow(ctx, "ip:10.0.0."+strconv.Itoa(i), 5, time.Minute)
		assert.True(t, ok)
	}
	assert.Equal(t, 100, g.Len())

	// every attempt has left its window by the next sweep
	clock = clock.Add(2 * time.Minute)
	ok, _ := g.Allow(ctx, "ip:10.0.1.1", 5, time.Minute)
	assert.True(t, ok)
	assert.Equal(t, 1, g.Len())
}

func TestSlidingWindow_SweepKeepsActiveKeys(t *testing.T) {
	ctx := context.Background()
	g := NewSlidingWindow()
	clock := time.Unix(1_700_000_000, 0)
	g.now = func() time.Time { return clock }

	ok, _ := g.Allow(ctx, "long", 1, time.Hour)
	assert.True(t, ok)
	ok, _ = g.Allow(ctx, "short", 1, time.Second)
	assert.True(t, ok)

	clock = clock.Add(2 * time.Minute)
	_, _ = g.Allow(ctx, "other", 1, time.Second)

	assert.Equal(t, 2, g.Len())
	ok, _ = g.Allow(ctx, "long", 1, time.Hour)
	assert.False(t, ok, "a swept key must not lose attempts still inside its window")
}
