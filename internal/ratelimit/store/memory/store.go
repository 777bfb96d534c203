package memory

import (
	"context"
	"sync"
	"time"

	"lifeconnect/internal/ratelimit/models"
)

// Store is a sliding-window limiter held in process memory. It is not shared
// between replicas; deployments with more than one node use the Redis store.
type Store struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow admits one request under key if fewer than limit.Requests were admitted
// within the trailing window.
func (s *Store) Allow(_ context.Context, key string, limit models.Limit) (*models.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stamps := prune(s.windows[key], now.Add(-limit.Window))

	if len(stamps) >= limit.Requests {
		s.windows[key] = stamps
		return &models.Result{
			Allowed:   false,
			Limit:     limit.Requests,
			Remaining: 0,
			ResetAt:   stamps[0].Add(limit.Window),
		}, nil
	}

	stamps = append(stamps, now)
	s.windows[key] = stamps
	return &models.Result{
		Allowed:   true,
		Limit:     limit.Requests,
		Remaining: limit.Requests - len(stamps),
		ResetAt:   stamps[0].Add(limit.Window),
	}, nil
}

// Reset forgets every admission recorded under key.
func (s *Store) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

// prune drops timestamps at or before cutoff. Timestamps are appended in order.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(stamps); i++ {
		if stamps[i].After(cutoff) {
			break
		}
	}
	return stamps[i:]
}
