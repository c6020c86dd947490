package lease

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

func exerciseLocker(t *testing.T, locker Locker, key string) {
	t.Helper()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, key)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if _, err := locker.Acquire(ctx, key); !errors.Is(err, ErrHeld) {
		t.Fatalf("expected ErrHeld for second holder, got %v", err)
	}

	otherRelease, err := locker.Acquire(ctx, key+"-other")
	if err != nil {
		t.Fatalf("expected independent key to be free, got %v", err)
	}
	_ = otherRelease(ctx)

	if err := release(ctx); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if err := release(ctx); err != nil {
		t.Fatalf("second release failed: %v", err)
	}

	again, err := locker.Acquire(ctx, key)
	if err != nil {
		t.Fatalf("expected key to be free after release, got %v", err)
	}
	_ = again(ctx)
}

func TestLocal(t *testing.T) {
	exerciseLocker(t, NewLocal(), "req-1")
}

func TestLocalRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLocal().Acquire(ctx, "req-1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// Set ROOMBOOKING_TEST_REDIS_ADDR to run against a real server.
func TestRedis(t *testing.T) {
	addr := os.Getenv("ROOMBOOKING_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ROOMBOOKING_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	prefix := "roombooking-test:" + time.Now().Format("150405.000000") + ":"
	exerciseLocker(t, NewRedis(client, prefix, 5*time.Second), "req-1")
}

func TestRefreshInterval(t *testing.T) {
	if got := refreshInterval(30 * time.Second); got != 10*time.Second {
		t.Fatalf("expected 10s, got %v", got)
	}
	if got := refreshInterval(2 * time.Nanosecond); got != 2*time.Nanosecond {
		t.Fatalf("expected tiny TTL to be used as is, got %v", got)
	}
}

// Set ROOMBOOKING_TEST_REDIS_ADDR to run against a real server.
func TestRedisKeepsLeaseWhileHeld(t *testing.T) {
	addr := os.Getenv("ROOMBOOKING_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ROOMBOOKING_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	locker := NewRedis(client, "roombooking-test:"+time.Now().Format("150405.000000")+":", 300*time.Millisecond)
	release, err := locker.Acquire(ctx, "req-long")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	time.Sleep(time.Second)
	if _, err := locker.Acquire(ctx, "req-long"); !errors.Is(err, ErrHeld) {
		t.Fatalf("expected lease to outlive its TTL while held, got %v", err)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	again, err := locker.Acquire(ctx, "req-long")
	if err != nil {
		t.Fatalf("expected key to be free after release, got %v", err)
	}
	_ = again(ctx)
}
