// Package dedup provides the send-fingerprint cache that stops the
// humanizer from double-sending a chunk after a retried turn (§8 scenario 4).
// Redis is the primary backend so fingerprints survive process restarts and
// are shared across instances; an in-process LRU is the fallback so the
// invariant still holds (for a single instance) when Redis is unavailable.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

// Cache records whether a fingerprint has been seen within a TTL window.
type Cache interface {
	// SeenRecently reports whether fingerprint was recorded within the last
	// ttl, and records it now regardless of the outcome (check-and-set).
	SeenRecently(ctx context.Context, fingerprint string, ttl time.Duration) (bool, error)
}

// Fingerprint derives a stable key for an outbound chunk: re-sending the
// same lead the same text within the dedup window is a no-op.
func Fingerprint(phone, chunkText string) string {
	h := sha256.Sum256([]byte(phone + "\x00" + chunkText))
	return hex.EncodeToString(h[:16])
}

type redisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache builds a Cache backed by a redis.Client.
func NewRedisCache(client *redis.Client) Cache {
	return &redisCache{client: client, prefix: "dedup:send:"}
}

func (c *redisCache) SeenRecently(ctx context.Context, fingerprint string, ttl time.Duration) (bool, error) {
	key := c.prefix + fingerprint
	// SET NX reports whether the key was newly created: ok=false means the
	// fingerprint was already present, i.e. a recent duplicate send.
	ok, err := c.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

type lruCache struct {
	mu    chan struct{} // 1-buffered mutex
	cache *lru.Cache[string, time.Time]
}

// NewLRUCache builds a Cache backed by an in-process bounded LRU, used when
// Redis is unreachable. size bounds memory; entries older than their TTL are
// treated as absent even if not yet evicted.
func NewLRUCache(size int) (Cache, error) {
	c, err := lru.New[string, time.Time](size)
	if err != nil {
		return nil, err
	}
	mu := make(chan struct{}, 1)
	mu <- struct{}{}
	return &lruCache{mu: mu, cache: c}, nil
}

func (c *lruCache) SeenRecently(_ context.Context, fingerprint string, ttl time.Duration) (bool, error) {
	<-c.mu
	defer func() { c.mu <- struct{}{} }()

	now := time.Now()
	if seenAt, ok := c.cache.Get(fingerprint); ok && now.Sub(seenAt) < ttl {
		c.cache.Add(fingerprint, now)
		return true, nil
	}
	c.cache.Add(fingerprint, now)
	return false, nil
}
