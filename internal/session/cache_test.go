package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"tracker/web/internal/model"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	cache, err := NewRedisCache("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis cache: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache, s
}

func TestNewRedisCache(t *testing.T) {
	cache, _ := setupTestRedis(t)
	if err := cache.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisCacheRejectsBadURL(t *testing.T) {
	if _, err := NewRedisCache("not a url"); err == nil {
		t.Fatal("expected error for invalid redis URL")
	}
}

func TestRedisCacheSaveAndLookup(t *testing.T) {
	cache, _ := setupTestRedis(t)
	ctx := context.Background()
	pair := model.TokenPair{AccessToken: "a", RefreshToken: "r", ExpiresInAccess: 900, ExpiresInRefresh: 86400}

	if err := cache.Save(ctx, "hash-1", pair, time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := cache.Lookup(ctx, "hash-1")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got != pair {
		t.Fatalf("expected %+v, got %+v", pair, got)
	}
}

func TestRedisCacheEntriesExpire(t *testing.T) {
	cache, s := setupTestRedis(t)
	ctx := context.Background()

	if err := cache.Save(ctx, "hash-1", model.TokenPair{AccessToken: "a"}, 30*time.Second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	s.FastForward(31 * time.Second)

	if _, err := cache.Lookup(ctx, "hash-1"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss after ttl, got %v", err)
	}
}

func TestRedisCacheMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)
	if _, err := cache.Lookup(context.Background(), "unknown"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCacheExpires(t *testing.T) {
	cache := NewMemoryCache()
	now := time.Now()
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	if err := cache.Save(ctx, "hash-1", model.TokenPair{AccessToken: "a"}, 10*time.Second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := cache.Lookup(ctx, "hash-1"); err != nil {
		t.Fatalf("expected hit, got %v", err)
	}

	now = now.Add(11 * time.Second)
	if _, err := cache.Lookup(ctx, "hash-1"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after ttl, got %v", err)
	}
}

func TestCachesIgnoreZeroTTL(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()
	if err := cache.Save(ctx, "hash-1", model.TokenPair{AccessToken: "a"}, 0); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := cache.Lookup(ctx, "hash-1"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected zero ttl to skip caching, got %v", err)
	}
}
