// Package session keeps the browser's credential cookies valid.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"tracker/web/internal/model"
)

var ErrCacheMiss = errors.New("refresh cache miss")

// Cache remembers the pair minted for a refresh token for a short while, so a
// burst of requests carrying the same (now rotated) refresh token gets the same
// answer instead of a rejection from the API.
type Cache interface {
	Lookup(ctx context.Context, tokenHash string) (model.TokenPair, error)
	Save(ctx context.Context, tokenHash string, pair model.TokenPair, ttl time.Duration) error
}

type cachedPair struct {
	Pair    model.TokenPair `json:"pair"`
	SavedAt time.Time       `json:"saved_at"`
}

// RedisCache shares minted pairs between web instances.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to redisURL and pings it.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisCacheWithClient(client), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: "refresh-pair:",
	}
}

func (c *RedisCache) key(tokenHash string) string {
	return c.prefix + tokenHash
}

func (c *RedisCache) Save(ctx context.Context, tokenHash string, pair model.TokenPair, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(cachedPair{Pair: pair, SavedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("marshal token pair: %w", err)
	}
	if err := c.client.Set(ctx, c.key(tokenHash), data, ttl).Err(); err != nil {
		return fmt.Errorf("save token pair: %w", err)
	}
	return nil
}

func (c *RedisCache) Lookup(ctx context.Context, tokenHash string) (model.TokenPair, error) {
	data, err := c.client.Get(ctx, c.key(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.TokenPair{}, ErrCacheMiss
	}
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("lookup token pair: %w", err)
	}

	var entry cachedPair
	if err := json.Unmarshal(data, &entry); err != nil {
		return model.TokenPair{}, fmt.Errorf("unmarshal token pair: %w", err)
	}
	return entry.Pair, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// MemoryCache is the single-instance fallback.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	pair      model.TokenPair
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Save(_ context.Context, tokenHash string, pair model.TokenPair, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	c.entries[tokenHash] = memoryEntry{pair: pair, expiresAt: now.Add(ttl)}
	return nil
}

func (c *MemoryCache) Lookup(_ context.Context, tokenHash string) (model.TokenPair, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[tokenHash]
	if !ok || !c.now().Before(entry.expiresAt) {
		return model.TokenPair{}, ErrCacheMiss
	}
	return entry.pair, nil
}
