// Package ratelimit enforces per-key request budgets. Redis keeps the counts
// when configured so every API replica shares one budget; otherwise buckets
// live in process memory.
package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether the request identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (*Info, error)
}

// Info describes the budget after a call to Allow
type Info struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
	Allowed   bool
}

// RetryAfter is the wait before the budget resets, never negative
func (i *Info) RetryAfter(now time.Time) time.Duration {
	d := i.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Policy is a named budget of Limit requests per Window
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// PerMinute builds a policy allowing n requests a minute
func PerMinute(name string, n int) Policy {
	return Policy{Name: name, Limit: n, Window: time.Minute}
}

func (p Policy) validate() error {
	if p.Name == "" {
		return errors.New("policy name is required")
	}
	if p.Limit <= 0 {
		return errors.New("limit must be greater than 0")
	}
	if p.Window <= 0 {
		return errors.New("window must be greater than 0")
	}
	return nil
}

// New returns a Redis sliding window limiter when client is set and an
// in-memory token bucket otherwise
func New(client *redis.Client, prefix string, p Policy) (Limiter, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return NewTokenBucket(p), nil
	}
	return NewSlidingWindow(client, prefix, p)
}
