package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript trims entries older than the window, then records the
// call when the remaining count allows it. Returns {allowed, count}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local current = redis.call('ZCARD', key)
if current < limit then
	redis.call('ZADD', key, now, ARGV[5])
	redis.call('EXPIRE', key, ttl)
	return {1, current + 1}
end
return {0, current}
`)

// SlidingWindow is a Redis sorted-set limiter shared by all processes
type SlidingWindow struct {
	client *redis.Client
	policy Policy
	prefix string
	now    func() time.Time
}

// NewSlidingWindow creates a Redis-backed limiter for p
func NewSlidingWindow(client *redis.Client, prefix string, p Policy) (*SlidingWindow, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &SlidingWindow{client: client, policy: p, prefix: prefix, now: time.Now}, nil
}

func (s *SlidingWindow) key(key string) string {
	return s.prefix + "ratelimit:" + s.policy.Name + ":" + key
}

// Allow records the call and reports whether it fits the window
func (s *SlidingWindow) Allow(ctx context.Context, key string) (*Info, error) {
	now := s.now()
	ttl := int(s.policy.Window.Seconds())
	if ttl < 1 {
		ttl = 1
	}

	res, err := slidingWindowScript.Run(ctx, s.client, []string{s.key(key)},
		now.UnixNano(),
		now.Add(-s.policy.Window).UnixNano(),
		s.policy.Limit,
		ttl,
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", s.policy.Name, err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("rate limit %s: unexpected script result %v", s.policy.Name, res)
	}

	remaining := s.policy.Limit - int(res[1])
	if remaining < 0 {
		remaining = 0
	}
	return &Info{
		Limit:     s.policy.Limit,
		Remaining: remaining,
		ResetAt:   now.Add(s.policy.Window),
		Allowed:   res[0] == 1,
	}, nil
}

// Reset clears the recorded calls for key
func (s *SlidingWindow) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// Count returns the calls recorded for key inside the current window
func (s *SlidingWindow) Count(ctx context.Context, key string) (int, error) {
	redisKey := s.key(key)
	start := s.now().Add(-s.policy.Window).UnixNano()

	pipe := s.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(start, 10))
	card := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("rate limit count: %w", err)
	}
	return int(card.Val()), nil
}
