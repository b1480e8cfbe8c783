package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, cfg), mr
}

func TestLoginFailuresLockUntilWindowEnds(t *testing.T) {
	l, mr := newLimiter(t, Config{MaxLoginFailures: 2, LoginWindow: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.CheckLogin(ctx, "Alice@example.com"); err != nil {
			t.Fatalf("attempt %d: unexpected %v", i, err)
		}
		if err := l.FailLogin(ctx, "alice@example.com"); err != nil {
			t.Fatalf("FailLogin: %v", err)
		}
	}
	if err := l.CheckLogin(ctx, "alice@example.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if n, _ := l.LoginFailures(ctx, "ALICE@example.com"); n != 2 {
		t.Fatalf("expected 2 failures, got %d", n)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := l.CheckLogin(ctx, "alice@example.com"); err != nil {
		t.Fatalf("expected window reset, got %v", err)
	}
}

func TestResetLoginClearsCounter(t *testing.T) {
	l, _ := newLimiter(t, Config{MaxLoginFailures: 1})
	ctx := context.Background()

	_ = l.FailLogin(ctx, "bob@example.com")
	if err := l.CheckLogin(ctx, "bob@example.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.ResetLogin(ctx, "bob@example.com"); err != nil {
		t.Fatalf("ResetLogin: %v", err)
	}
	if err := l.CheckLogin(ctx, "bob@example.com"); err != nil {
		t.Fatalf("expected cleared counter, got %v", err)
	}
}

func TestAllowRefreshBudget(t *testing.T) {
	l, _ := newLimiter(t, Config{MaxRefreshAttempts: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.AllowRefresh(ctx, "u1"); err != nil {
			t.Fatalf("refresh %d: %v", i, err)
		}
	}
	if err := l.AllowRefresh(ctx, "u1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.AllowRefresh(ctx, "u2"); err != nil {
		t.Fatalf("other subject should be independent: %v", err)
	}
}

func TestDisabledAndNilLimiter(t *testing.T) {
	var nilLimiter *Limiter
	ctx := context.Background()
	if err := nilLimiter.CheckLogin(ctx, "x"); err != nil {
		t.Fatal(err)
	}
	if err := nilLimiter.AllowRefresh(ctx, "x"); err != nil {
		t.Fatal(err)
	}

	l, mr := newLimiter(t, Config{})
	if err := l.FailLogin(ctx, "x"); err != nil {
		t.Fatal(err)
	}
	if mr.Exists("mockapi:login:x") {
		t.Fatal("disabled limiter must not write counters")
	}
}

func TestRedisDownIsReported(t *testing.T) {
	l, mr := newLimiter(t, Config{MaxLoginFailures: 1})
	mr.Close()
	if err := l.FailLogin(context.Background(), "x"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
