// Package ratelimit throttles magic-link requests with Redis fixed-window counters.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited is returned when a window's budget is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps any Redis failure. Callers fail open on it.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const keyPrefix = "issue:"

// Config bounds requests per email and per client IP within Window.
type Config struct {
	Limit  int
	Window time.Duration
}

// Limiter counts link requests per email and per IP.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New returns a Limiter backed by client.
func New(client redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: client, config: cfg}
}

// NewClient parses a redis:// URL and returns a client for it.
func NewClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Allow counts one request for email from ip. Both counters are always incremented so a
// caller spraying addresses from one IP is throttled too.
func (l *Limiter) Allow(ctx context.Context, email, ip string) error {
	emailCount, err := l.incrementWithTTL(ctx, keyPrefix+"email:"+strings.ToLower(email), l.config.Window)
	if err != nil {
		return err
	}
	ipCount, err := l.incrementWithTTL(ctx, keyPrefix+"ip:"+ip, l.config.Window)
	if err != nil {
		return err
	}
	if emailCount > int64(l.config.Limit) || ipCount > int64(l.config.Limit)*4 {
		return ErrRateLimited
	}
	return nil
}

// Ping checks Redis reachability for health reporting.
func (l *Limiter) Ping(ctx context.Context) error {
	if err := l.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: the TTL is set only on the first hit.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}
