package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// staleFraction is the share of a TTL after which an entry is served as stale
// and refreshed in the background.
const staleFraction = 0.8

type CacheConfig struct {
	RedisURL    string
	EnableRedis bool
	DefaultTTL  time.Duration
	Logger      *zap.Logger
}

// Cache stores JSON-encoded values in redis when configured and reachable,
// otherwise in process memory.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	mu         sync.RWMutex
	mem        map[string]memEntry
	refreshing map[string]bool

	now func() time.Time
}

type memEntry struct {
	data    []byte
	stored  time.Time
	expires time.Time
}

// envelope records the write time so staleness can be judged from redis too.
type envelope struct {
	Stored time.Time       `json:"stored"`
	TTL    time.Duration   `json:"ttl"`
	Data   json.RawMessage `json:"data"`
}

func NewCache(cfg CacheConfig) *Cache {
	c := &Cache{
		ttl:        cfg.DefaultTTL,
		logger:     cfg.Logger,
		mem:        make(map[string]memEntry),
		refreshing: make(map[string]bool),
		now:        time.Now,
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.ttl <= 0 {
		c.ttl = time.Hour
	}
	if !cfg.EnableRedis || strings.TrimSpace(cfg.RedisURL) == "" {
		c.logger.Info("using in-memory cache")
		return c
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		c.logger.Warn("invalid REDIS_URL, falling back to memory", zap.Error(err))
		return c
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		c.logger.Warn("redis unreachable, falling back to memory", zap.String("addr", opts.Addr), zap.Error(err))
		_ = rdb.Close()
		return c
	}
	c.rdb = rdb
	c.logger.Info("connected to redis", zap.String("addr", opts.Addr))
	return c
}

// Backend names the active store.
func (c *Cache) Backend() string {
	if c.rdb != nil {
		return "redis"
	}
	return "memory"
}

// Ping checks the redis connection; the memory backend is always healthy.
func (c *Cache) Ping(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

// Get decodes the entry for key into v and reports whether it was found.
func (c *Cache) Get(ctx context.Context, key string, v any) bool {
	entry, ok := c.load(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(entry.Data, v); err != nil {
		c.logger.Warn("decode cached value failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set stores v for ttl; a non-positive ttl uses the default.
func (c *Cache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	now := c.now()
	if c.rdb != nil {
		b, err := json.Marshal(envelope{Stored: now, TTL: ttl, Data: data})
		if err != nil {
			return err
		}
		return c.rdb.Set(ctx, key, b, ttl).Err()
	}
	c.mu.Lock()
	c.mem[key] = memEntry{data: data, stored: now, expires: now.Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Delete removes the entries for keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if c.rdb != nil {
		return c.rdb.Del(ctx, keys...).Err()
	}
	c.mu.Lock()
	for _, k := range keys {
		delete(c.mem, k)
	}
	c.mu.Unlock()
	return nil
}

// IsStale reports whether the entry for key has passed most of its TTL.
// Missing entries are not stale.
func (c *Cache) IsStale(ctx context.Context, key string) bool {
	entry, ok := c.load(ctx, key)
	if !ok {
		return false
	}
	age := c.now().Sub(entry.Stored)
	return age > time.Duration(float64(entry.TTL)*staleFraction)
}

// TryStartRefresh marks key as refreshing; it returns false if a refresh is
// already in flight.
func (c *Cache) TryStartRefresh(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshing[key] {
		return false
	}
	c.refreshing[key] = true
	return true
}

func (c *Cache) FinishRefresh(key string) {
	c.mu.Lock()
	delete(c.refreshing, key)
	c.mu.Unlock()
}

func (c *Cache) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

func (c *Cache) load(ctx context.Context, key string) (envelope, bool) {
	if c.rdb != nil {
		b, err := c.rdb.Get(ctx, key).Bytes()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				c.logger.Warn("redis get failed", zap.String("key", key), zap.Error(err))
			}
			return envelope{}, false
		}
		var entry envelope
		if err := json.Unmarshal(b, &entry); err != nil {
			return envelope{}, false
		}
		return entry, true
	}

	c.mu.RLock()
	e, ok := c.mem[key]
	c.mu.RUnlock()
	if !ok {
		return envelope{}, false
	}
	if c.now().After(e.expires) {
		c.mu.Lock()
		delete(c.mem, key)
		c.mu.Unlock()
		return envelope{}, false
	}
	return envelope{Stored: e.stored, TTL: e.expires.Sub(e.stored), Data: e.data}, true
}
