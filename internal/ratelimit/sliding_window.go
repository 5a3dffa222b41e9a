package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepInterval is how often Allow drops keys whose attempts all left their window.
const sweepInterval = time.Minute

type attempts struct {
	log    []time.Time
	window time.Duration
}

// SlidingWindow is an in-process Guard keeping a timestamp log per key.
type SlidingWindow struct {
	mu        sync.Mutex
	hits      map[string]*attempts
	now       func() time.Time
	lastSweep time.Time
}

func NewSlidingWindow() *SlidingWindow {
	return &SlidingWindow{
		hits: make(map[string]*attempts),
		now:  time.Now,
	}
}

func (s *SlidingWindow) Allow(_ context.Context, key string, max int, window time.Duration) (bool, error) {
	if max <= 0 || window <= 0 {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= sweepInterval {
		s.sweep(now)
		s.lastSweep = now
	}

	a := s.hits[key]
	if a == nil {
		a = &attempts{}
		s.hits[key] = a
	}
	a.window = window
	a.log = prune(a.log, now.Add(-window))

	if len(a.log) >= max {
		return false, nil
	}
	a.log = append(a.log, now)
	return true, nil
}

// Reset forgets every attempt recorded for key.
func (s *SlidingWindow) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hits, key)
}

// Len returns the number of keys currently tracked.
func (s *SlidingWindow) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hits)
}

func (s *SlidingWindow) sweep(now time.Time) {
	for key, a := range s.hits {
		a.log = prune(a.log, now.Add(-a.window))
		if len(a.log) == 0 {
			delete(s.hits, key)
		}
	}
}

// prune drops the leading timestamps at or before cutoff.
func prune(log []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	if i == len(log) {
		return nil
	}
	return log[i:]
}
