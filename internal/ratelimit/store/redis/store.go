package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"lifeconnect/internal/ratelimit/models"
)

// slidingWindow prunes, counts and admits in one round trip so replicas
// sharing a key cannot both take the last slot.
//
// KEYS[1] bucket, ARGV[1] now (ms), ARGV[2] window (ms), ARGV[3] limit, ARGV[4] member.
// Returns {allowed, count, oldest_ms}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local oldest = now
local first = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if #first == 2 then
  oldest = tonumber(first[2])
end
if count >= limit then
  return {0, count, oldest}
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, count + 1, oldest}
`)

// Store is a sliding-window limiter shared by every replica through Redis.
type Store struct {
	client redis.Scripter
	now    func() time.Time
}

type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(client redis.Scripter, opts ...Option) *Store {
	s := &Store{client: client, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error) {
	now := s.now()
	vals, err := slidingWindow.Run(ctx, s.client, []string{key},
		now.UnixMilli(), limit.Window.Milliseconds(), limit.Requests, uuid.NewString()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit check for %s: %w", key, err)
	}
	if len(vals) != 3 {
		return nil, fmt.Errorf("rate limit check for %s: unexpected reply %v", key, vals)
	}

	allowed := vals[0] == 1
	remaining := limit.Requests - int(vals[1])
	if !allowed || remaining < 0 {
		remaining = 0
	}
	return &models.Result{
		Allowed:   allowed,
		Limit:     limit.Requests,
		Remaining: remaining,
		ResetAt:   time.UnixMilli(vals[2]).Add(limit.Window),
	}, nil
}
