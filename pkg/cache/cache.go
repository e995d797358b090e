// Package cache implements the two-tier cache layer (spec §4.1): an
// in-process map backed first, optionally mirrored to Redis. Redis usage
// (client construction, Get/Set with TTL, the redis.Nil sentinel) follows
// the pattern observed in the legal-AI job cache reference implementation
// in the retrieval pack; the distributed lock and atomic increment are
// built on top of Redis's SETNX/INCR semantics.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// entry is one in-process cache record.
type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Cache is the unified key/value-with-TTL store described in spec §4.1.
type Cache struct {
	mu    sync.Mutex
	local map[string]entry

	remote *redis.Client // nil if no remote endpoint configured
}

// Config configures the optional remote mirror.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// New builds a Cache. When cfg.RedisAddr is empty the cache operates purely
// in-process.
func New(cfg Config) *Cache {
	c := &Cache{local: make(map[string]entry)}
	if cfg.RedisAddr != "" {
		c.remote = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return c
}

// Ping verifies remote connectivity if a remote is configured.
func (c *Cache) Ping(ctx context.Context) error {
	if c.remote == nil {
		return nil
	}
	return c.remote.Ping(ctx).Err()
}

// GetString returns the string value for key. Remote is tried first when
// configured; on any remote error it falls back silently to the in-process
// map.
func (c *Cache) GetString(ctx context.Context, key string) (string, bool) {
	if c.remote != nil {
		v, err := c.remote.Get(ctx, key).Result()
		if err == nil {
			return v, true
		}
		if !errors.Is(err, redis.Nil) {
			return c.localGet(key)
		}
		return "", false
	}
	return c.localGet(key)
}

// SetString stores value under key with an optional TTL (ttlSec<=0 means no
// expiry).
func (c *Cache) SetString(ctx context.Context, key, value string, ttlSec int) error {
	if c.remote != nil {
		ttl := ttlDuration(ttlSec)
		if err := c.remote.Set(ctx, key, value, ttl).Err(); err == nil {
			return nil
		}
		// fall through to local on remote error
	}
	c.localSet(key, value, ttlSec)
	return nil
}

// Del removes key from both tiers.
func (c *Cache) Del(ctx context.Context, key string) {
	if c.remote != nil {
		_ = c.remote.Del(ctx, key).Err()
	}
	c.mu.Lock()
	delete(c.local, key)
	c.mu.Unlock()
}

// GetValue unmarshals a JSON-serialised value of type T.
func GetValue[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var zero T
	raw, ok := c.GetString(ctx, key)
	if !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return zero, false
	}
	return v, true
}

// SetValue serialises v as JSON and stores it under key.
func SetValue[T any](ctx context.Context, c *Cache, key string, v T, ttlSec int) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.SetString(ctx, key, string(raw), ttlSec)
}

// Increment atomically increments the integer at key, setting a TTL only if
// the key is freshly created by this call.
func (c *Cache) Increment(ctx context.Context, key string, ttlSec int) (int64, error) {
	if c.remote != nil {
		n, err := c.remote.Incr(ctx, key).Result()
		if err == nil {
			if n == 1 && ttlSec > 0 {
				_ = c.remote.Expire(ctx, key, ttlDuration(ttlSec)).Err()
			}
			return n, nil
		}
	}
	return c.localIncrement(key, ttlSec), nil
}

func (c *Cache) localIncrement(key string, ttlSec int) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	e, ok := c.local[key]
	var n int64
	if !ok || e.expired(now) {
		n = 1
		c.local[key] = entry{value: strconv.FormatInt(n, 10), expiresAt: expiryFor(ttlSec, now)}
		return n
	}
	prev, _ := strconv.ParseInt(e.value, 10, 64)
	n = prev + 1
	e.value = strconv.FormatInt(n, 10)
	c.local[key] = e
	return n
}

// AcquireLock attempts best-effort mutual exclusion with a TTL. owner is an
// opaque token; only the holder possessing the matching owner token may
// release it.
func (c *Cache) AcquireLock(ctx context.Context, key, owner string, ttlSec int) bool {
	if c.remote != nil {
		ok, err := c.remote.SetNX(ctx, key, owner, ttlDuration(ttlSec)).Result()
		if err == nil {
			return ok
		}
	}
	return c.localAcquireLock(key, owner, ttlSec)
}

func (c *Cache) localAcquireLock(key, owner string, ttlSec int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if e, ok := c.local[key]; ok && !e.expired(now) {
		return false
	}
	c.local[key] = entry{value: owner, expiresAt: expiryFor(ttlSec, now)}
	return true
}

// ReleaseLock removes the lock entry only if the stored owner token
// matches.
func (c *Cache) ReleaseLock(ctx context.Context, key, owner string) {
	if c.remote != nil {
		v, err := c.remote.Get(ctx, key).Result()
		if err == nil && v == owner {
			_ = c.remote.Del(ctx, key).Err()
			return
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			c.localReleaseLock(key, owner)
		}
		return
	}
	c.localReleaseLock(key, owner)
}

func (c *Cache) localReleaseLock(key, owner string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.local[key]; ok && e.value == owner {
		delete(c.local, key)
	}
}

func (c *Cache) localGet(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.local[key]
	if !ok {
		return "", false
	}
	if e.expired(time.Now()) {
		delete(c.local, key)
		return "", false
	}
	return e.value, true
}

func (c *Cache) localSet(key, value string, ttlSec int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.local[key] = entry{value: value, expiresAt: expiryFor(ttlSec, time.Now())}
}

func ttlDuration(ttlSec int) time.Duration {
	if ttlSec <= 0 {
		return 0
	}
	return time.Duration(ttlSec) * time.Second
}

func expiryFor(ttlSec int, now time.Time) time.Time {
	if ttlSec <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(ttlSec) * time.Second)
}

