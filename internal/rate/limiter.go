package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the per-window budgets. A zero budget disables that counter.
type Config struct {
	Prefix             string
	MaxLoginFailures   int
	LoginWindow        time.Duration
	MaxRefreshAttempts int
	RefreshWindow      time.Duration
}

// Limiter enforces login-failure and refresh budgets with Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a Limiter backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "mockapi"
	}
	if cfg.LoginWindow <= 0 {
		cfg.LoginWindow = 15 * time.Minute
	}
	if cfg.RefreshWindow <= 0 {
		cfg.RefreshWindow = time.Minute
	}
	return &Limiter{redis: redisClient, config: cfg}
}

// CheckLogin reports ErrRateLimited when email has used up its failure budget.
// It does not count the attempt.
func (l *Limiter) CheckLogin(ctx context.Context, email string) error {
	if l == nil || l.config.MaxLoginFailures <= 0 {
		return nil
	}
	count, err := l.redis.Get(ctx, l.loginKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxLoginFailures) {
		return ErrRateLimited
	}
	return nil
}

// FailLogin records a failed sign-in for email.
func (l *Limiter) FailLogin(ctx context.Context, email string) error {
	if l == nil || l.config.MaxLoginFailures <= 0 {
		return nil
	}
	_, err := l.incrementWithTTL(ctx, l.loginKey(email), l.config.LoginWindow)
	return err
}

// ResetLogin clears the failure counter after a successful sign-in.
func (l *Limiter) ResetLogin(ctx context.Context, email string) error {
	if l == nil || l.config.MaxLoginFailures <= 0 {
		return nil
	}
	if err := l.redis.Del(ctx, l.loginKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// LoginFailures returns the failures counted in the current window.
func (l *Limiter) LoginFailures(ctx context.Context, email string) (int, error) {
	if l == nil {
		return 0, nil
	}
	count, err := l.redis.Get(ctx, l.loginKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(max(count, 0)), nil
}

// AllowRefresh counts one refresh exchange for subject and reports
// ErrRateLimited once the window's budget is exceeded.
func (l *Limiter) AllowRefresh(ctx context.Context, subject string) error {
	if l == nil || l.config.MaxRefreshAttempts <= 0 {
		return nil
	}
	count, err := l.incrementWithTTL(ctx, l.key("refresh", subject), l.config.RefreshWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxRefreshAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) loginKey(email string) string {
	return l.key("login", strings.ToLower(email))
}

func (l *Limiter) key(kind, id string) string {
	return l.config.Prefix + ":" + kind + ":" + id
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// TTL only on the first hit, so the window does not slide.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}
