package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is a fixed-window counter on Redis. When the remote tier is
// down the limiter fails open: submissions are never blocked by cache
// unavailability.
type RateLimiter struct {
	client Client
}

func NewRateLimiter(client Client) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return true, err
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			return true, err
		}
	}

	if count > int64(limit) {
		return false, nil
	}

	return true, nil
}

func SubmitKey(caller string) string {
	return fmt.Sprintf("rate_limit:analyze:%s", caller)
}
