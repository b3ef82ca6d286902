package lock_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"uniform-tracker/internal/lock"
)

func TestNop(t *testing.T) {
	var l lock.Locker = lock.Nop{}
	release, err := l.Obtain(context.Background(), "school-1")
	if err != nil {
		t.Fatalf("Nop.Obtain failed: %v", err)
	}
	if err := release(context.Background()); err != nil {
		t.Fatalf("release failed: %v", err)
	}
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDRESS")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDRESS not set, skipping redis test")
	}
	ctx := context.Background()
	l, rdb, err := lock.NewRedisLocker(ctx, addr, "", 5*time.Second)
	if err != nil {
		t.Fatalf("NewRedisLocker failed: %v", err)
	}
	defer rdb.Close()

	key := "test-" + time.Now().Format(time.RFC3339Nano)
	release, err := l.Obtain(ctx, key)
	if err != nil {
		t.Fatalf("first Obtain failed: %v", err)
	}

	if _, err := l.Obtain(ctx, key); !errors.Is(err, lock.ErrNotObtained) {
		t.Fatalf("expected ErrNotObtained while held, got %v", err)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	release, err = l.Obtain(ctx, key)
	if err != nil {
		t.Fatalf("Obtain after release failed: %v", err)
	}
	_ = release(ctx)
}
