package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestNewSlidingWindow_InvalidConfig(t *testing.T) {
	client, _ := setupTestRedis(t)

	tests := []struct {
		name        string
		client      *redis.Client
		policy      Policy
		expectedErr string
	}{
		{"nil client", nil, PerMinute("ai", 5), "redis client is required"},
		{"no name", client, Policy{Limit: 1, Window: time.Second}, "policy name is required"},
		{"zero limit", client, PerMinute("ai", 0), "limit must be greater than 0"},
		{"zero window", client, Policy{Name: "ai", Limit: 1}, "window must be greater than 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSlidingWindow(tt.client, "", tt.policy)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestSlidingWindow_ExceedLimit(t *testing.T) {
	client, mr := setupTestRedis(t)
	limiter, err := NewSlidingWindow(client, "resumate:", PerMinute("ai", 3))
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		info, err := limiter.Allow(ctx, "user:1")
		require.NoError(t, err)
		assert.True(t, info.Allowed)
		assert.Equal(t, 2-i, info.Remaining)
	}

	info, err := limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
	assert.Equal(t, 0, info.Remaining)

	assert.True(t, mr.Exists("resumate:ratelimit:ai:user:1"))

	other, err := limiter.Allow(ctx, "user:2")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys have separate budgets")
}

func TestSlidingWindow_WindowSlides(t *testing.T) {
	client, _ := setupTestRedis(t)
	limiter, err := NewSlidingWindow(client, "", PerMinute("auth", 2))
	require.NoError(t, err)
	ctx := context.Background()

	start := time.Now()
	limiter.now = func() time.Time { return start }
	for i := 0; i < 2; i++ {
		_, err := limiter.Allow(ctx, "ip:10.0.0.1")
		require.NoError(t, err)
	}
	info, err := limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, info.Allowed)

	limiter.now = func() time.Time { return start.Add(61 * time.Second) }
	info, err = limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, info.Allowed)

	count, err := limiter.Count(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSlidingWindow_Reset(t *testing.T) {
	client, _ := setupTestRedis(t)
	limiter, err := NewSlidingWindow(client, "", PerMinute("ai", 1))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, limiter.Reset(ctx, "k"))

	info, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
}

func TestSlidingWindow_Concurrent(t *testing.T) {
	client, _ := setupTestRedis(t)
	limiter, err := NewSlidingWindow(client, "", PerMinute("ai", 10))
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			info, err := limiter.Allow(context.Background(), "shared")
			if err == nil && info.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}

func TestNew_SelectsBackend(t *testing.T) {
	client, _ := setupTestRedis(t)

	l, err := New(client, "", PerMinute("ai", 1))
	require.NoError(t, err)
	assert.IsType(t, &SlidingWindow{}, l)

	l, err = New(nil, "", PerMinute("ai", 1))
	require.NoError(t, err)
	tb, ok := l.(*TokenBucket)
	require.True(t, ok)
	tb.Close()

	_, err = New(nil, "", PerMinute("ai", 0))
	assert.Error(t, err)
}
