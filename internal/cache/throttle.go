package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const throttlePrefix = "natours:forgot:"

// ResetThrottle allows one password reset request per key per window. A nil
// *ResetThrottle allows everything.
type ResetThrottle struct {
	client *redis.Client
	window time.Duration
}

func NewResetThrottle(client *redis.Client, window time.Duration) *ResetThrottle {
	return &ResetThrottle{client: client, window: window}
}

// Allow reports whether key may proceed and claims the window when it may.
func (t *ResetThrottle) Allow(ctx context.Context, key string) (bool, error) {
	if t == nil || t.window <= 0 {
		return true, nil
	}
	ok, err := t.client.SetNX(ctx, throttlePrefix+key, 1, t.window).Result()
	if err != nil {
		return false, fmt.Errorf("reset throttle: %w", err)
	}
	return ok, nil
}

// Release gives the window back, used when the request it guarded failed.
func (t *ResetThrottle) Release(ctx context.Context, key string) error {
	if t == nil || t.window <= 0 {
		return nil
	}
	return t.client.Del(ctx, throttlePrefix+key).Err()
}
