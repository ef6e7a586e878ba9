package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	window      = 15 * time.Minute
	maxRequests = 10
)

// Limiter is a fixed-window request limiter backed by Redis.
// Requests are counted per client IP and purpose (e.g. "signup", "login").
type Limiter struct {
	client *redis.Client
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

func rateLimitKey(ip, purpose string) string {
	return fmt.Sprintf("ratelimit:%s:%s", purpose, ip)
}

// Allow records a request and reports whether it is within the limit.
// INCR followed by EXPIRE on first hit keeps the counter window-scoped
// without a read-modify-write in application code.
func (l *Limiter) Allow(ctx context.Context, ip, purpose string) (bool, error) {
	key := rateLimitKey(ip, purpose)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= maxRequests, nil
}

// Reset clears the counter for an IP and purpose
func (l *Limiter) Reset(ctx context.Context, ip, purpose string) error {
	if err := l.client.Del(ctx, rateLimitKey(ip, purpose)).Err(); err != nil {
		return fmt.Errorf("failed to reset rate limit counter: %w", err)
	}
	return nil
}
