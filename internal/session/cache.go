package session

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache resolves an OS uid to a cached internal user id string, so repeated
// bus calls from the same uid skip the storage round trip. Grounded on the
// teacher's CacheService interface with Redis/in-memory implementations.
type Cache interface {
	Get(ctx context.Context, osUID uint32) (string, bool)
	Set(ctx context.Context, osUID uint32, userID string)
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, osUID uint32) (string, bool) {
	val, err := c.client.Get(ctx, cacheKey(osUID)).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, osUID uint32, userID string) {
	c.client.Set(ctx, cacheKey(osUID), userID, c.ttl)
}

// MemoryCache is the fallback used when Redis is unreachable at startup.
type MemoryCache struct {
	mu sync.RWMutex
	m  map[uint32]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: make(map[uint32]string)}
}

func (c *MemoryCache) Get(_ context.Context, osUID uint32) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.m[osUID]
	return val, ok
}

func (c *MemoryCache) Set(_ context.Context, osUID uint32, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[osUID] = userID
}

func cacheKey(osUID uint32) string {
	return "cla:user:" + uintToString(osUID)
}

func uintToString(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// NewCacheFromConfig dials Redis with a short timeout and falls back to an
// in-memory cache on any failure, matching the teacher's graceful-fallback
// startup sequence.
func NewCacheFromConfig(ctx context.Context, url, password string, db int, logger interface{ Warn(string, ...any) }) Cache {
	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Warn("invalid redis url, falling back to in-memory session cache", "error", err)
		return NewMemoryCache()
	}
	if password != "" {
		opts.Password = password
	}
	if db != 0 {
		opts.DB = db
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable at startup, falling back to in-memory session cache", "error", err)
		return NewMemoryCache()
	}
	return NewRedisCache(client, 30*time.Minute)
}
