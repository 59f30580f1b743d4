package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter is a fixed-window limiter whose counters live in Redis,
// so every API instance shares the same budget.
type RedisRateLimiter struct {
	client    *redis.Client
	limit     int
	window    time.Duration
	keyPrefix string
	now       func() time.Time
}

// NewRedisRateLimiter creates a limiter allowing limit requests per window
func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration, keyPrefix string) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:    client,
		limit:     limit,
		window:    window,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

// Allow increments the counter of the current window for key
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowStart := l.now().Truncate(l.window)
	k := fmt.Sprintf("ratelimit:%s:%s:%d", l.keyPrefix, key, windowStart.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, l.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit check: %w", err)
	}
	return incr.Val() <= int64(l.limit), nil
}

// Reset clears the current window for key
func (l *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	windowStart := l.now().Truncate(l.window)
	k := fmt.Sprintf("ratelimit:%s:%s:%d", l.keyPrefix, key, windowStart.Unix())
	return l.client.Del(ctx, k).Err()
}
