package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiterTest(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return New(rdb, cfg), mr
}

func TestLoginBudgetExhaustsAndResetsWithWindow(t *testing.T) {
	l, mr := newLimiterTest(t, Config{Prefix: "wl:", MaxLoginAttempts: 3, LoginCooldown: time.Minute})
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		if err := l.CheckLogin(ctx, "ana@example.com", ""); err != nil {
			t.Fatalf("check #%d: %v", i, err)
		}
		if err := l.IncrementLogin(ctx, "ana@example.com", ""); err != nil {
			t.Fatalf("increment #%d: %v", i, err)
		}
	}

	if err := l.IncrementLogin(ctx, "ana@example.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected third failure to exhaust the budget, got %v", err)
	}
	if err := l.CheckLogin(ctx, "ANA@example.com ", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected identifier to be normalized and limited, got %v", err)
	}

	retry, err := l.RetryAfter(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("retry after: %v", err)
	}
	if retry <= 0 || retry > time.Minute {
		t.Fatalf("unexpected retry after %v", retry)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := l.CheckLogin(ctx, "ana@example.com", ""); err != nil {
		t.Fatalf("expected window to expire, got %v", err)
	}
}

func TestWindowTTLSetOnlyOnFirstHit(t *testing.T) {
	l, mr := newLimiterTest(t, Config{MaxLoginAttempts: 10, LoginCooldown: time.Minute})
	ctx := context.Background()

	if err := l.IncrementLogin(ctx, "u", ""); err != nil {
		t.Fatalf("increment: %v", err)
	}
	mr.FastForward(30 * time.Second)
	if err := l.IncrementLogin(ctx, "u", ""); err != nil {
		t.Fatalf("increment: %v", err)
	}

	if ttl := mr.TTL("login:user:u"); ttl > 30*time.Second {
		t.Fatalf("expected fixed window TTL <= 30s, got %v", ttl)
	}
}

func TestResetLoginClearsCounters(t *testing.T) {
	l, mr := newLimiterTest(t, Config{EnableIPThrottle: true, MaxLoginAttempts: 2, LoginCooldown: time.Minute})
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "u", "10.0.0.1")
	_ = l.IncrementLogin(ctx, "u", "10.0.0.1")
	if err := l.CheckLogin(ctx, "u", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected limited before reset, got %v", err)
	}

	if err := l.ResetLogin(ctx, "u", "10.0.0.1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if mr.Exists("login:user:u") || mr.Exists("login:ip:10.0.0.1") {
		t.Fatal("expected counters to be deleted after reset")
	}
	if err := l.CheckLogin(ctx, "u", "10.0.0.1"); err != nil {
		t.Fatalf("expected clear after reset, got %v", err)
	}
}

func TestIPThrottleSpansIdentifiers(t *testing.T) {
	l, _ := newLimiterTest(t, Config{EnableIPThrottle: true, MaxLoginAttempts: 2, LoginCooldown: time.Minute})
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "a@example.com", "10.0.0.9")
	if err := l.IncrementLogin(ctx, "b@example.com", "10.0.0.9"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected IP budget to be shared, got %v", err)
	}
	if err := l.CheckLogin(ctx, "c@example.com", "10.0.0.9"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected IP to be limited for a fresh identifier, got %v", err)
	}
	if err := l.CheckLogin(ctx, "c@example.com", "10.0.0.10"); err != nil {
		t.Fatalf("expected other IP to pass, got %v", err)
	}
}

func TestRedisFailureSurfaces(t *testing.T) {
	l, mr := newLimiterTest(t, Config{})
	mr.Close()

	if err := l.CheckLogin(context.Background(), "u", ""); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if err := l.IncrementLogin(context.Background(), "u", ""); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}

func TestDefaults(t *testing.T) {
	l := New(nil, Config{})
	if l.config.MaxLoginAttempts != DefaultMaxLoginAttempts || l.config.LoginCooldown != DefaultLoginCooldown {
		t.Fatalf("unexpected defaults: %+v", l.config)
	}
}
