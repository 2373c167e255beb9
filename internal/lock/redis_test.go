package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisForTest connects to REDIS_ADDR or skips.
func redisForTest(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis at %s unreachable: %v", addr, err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestRedisLockExcludes(t *testing.T) {
	rdb := redisForTest(t)
	ctx := context.Background()
	key := "test:lock:" + uuid.NewString()
	t.Cleanup(func() { rdb.Del(ctx, key) })

	a := NewRedisLock(rdb, key, time.Minute)
	b := NewRedisLock(rdb, key, time.Minute)

	unlock, ok, err := a.TryLock(ctx)
	if err != nil || !ok {
		t.Fatalf("first TryLock = %v, %v", ok, err)
	}
	if _, ok, err := b.TryLock(ctx); err != nil || ok {
		t.Fatalf("second TryLock = %v, %v; want not acquired", ok, err)
	}
	if err := unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	unlockB, ok, err := b.TryLock(ctx)
	if err != nil || !ok {
		t.Fatalf("TryLock after unlock = %v, %v", ok, err)
	}
	_ = unlockB(ctx)
}

func TestRedisLockUnlockAfterExpiryKeepsNewHolder(t *testing.T) {
	rdb := redisForTest(t)
	ctx := context.Background()
	key := "test:lock:" + uuid.NewString()
	t.Cleanup(func() { rdb.Del(ctx, key) })

	stale, ok, err := NewRedisLock(rdb, key, 50*time.Millisecond).TryLock(ctx)
	if err != nil || !ok {
		t.Fatalf("TryLock = %v, %v", ok, err)
	}
	time.Sleep(100 * time.Millisecond)

	if _, ok, err := NewRedisLock(rdb, key, time.Minute).TryLock(ctx); err != nil || !ok {
		t.Fatalf("TryLock after expiry = %v, %v", ok, err)
	}
	if err := stale(ctx); err != nil {
		t.Fatalf("stale unlock: %v", err)
	}
	if n, _ := rdb.Exists(ctx, key).Result(); n != 1 {
		t.Fatal("stale unlock removed the new holder's lock")
	}
}
