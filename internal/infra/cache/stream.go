package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/zeebo/xxh3"

	"github.com/quillsocial/quill/internal/domain"
)

// Key derives the cache key for one page of one stream. The query window is
// part of the identity; the template part is hashed so group nicknames and
// the like cannot produce invalid memcached keys.
func Key(template string, q domain.StreamQuery) string {
	h := xxh3.HashString(template)
	return fmt.Sprintf("quill:stream:%016x:%d:%d:%d:%d", h, q.Offset, q.Limit, q.SinceID, q.MaxID)
}

// RedisStreamCache stores resolved ID pages in redis.
type RedisStreamCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStreamCache(rdb *redis.Client, ttl time.Duration) *RedisStreamCache {
	return &RedisStreamCache{rdb: rdb, ttl: ttl}
}

func (c *RedisStreamCache) GetIDs(ctx context.Context, key string) ([]int64, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "stream cache get")
	}

	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		// treat a corrupt entry as a miss
		return nil, false, nil
	}
	return ids, true, nil
}

func (c *RedisStreamCache) SetIDs(ctx context.Context, key string, ids []int64) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return errors.Wrap(err, "stream cache marshal")
	}
	return errors.Wrap(c.rdb.Set(ctx, key, raw, c.ttl).Err(), "stream cache set")
}

// MemcachedStreamCache is the memcached-backed equivalent for deployments
// that already run memcached next to the web tier.
type MemcachedStreamCache struct {
	mc  *memcache.Client
	ttl time.Duration
}

func NewMemcachedStreamCache(mc *memcache.Client, ttl time.Duration) *MemcachedStreamCache {
	return &MemcachedStreamCache{mc: mc, ttl: ttl}
}

func (c *MemcachedStreamCache) GetIDs(ctx context.Context, key string) ([]int64, bool, error) {
	item, err := c.mc.Get(key)
	if err == memcache.ErrCacheMiss {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "stream cache get")
	}

	var ids []int64
	if err := json.Unmarshal(item.Value, &ids); err != nil {
		return nil, false, nil
	}
	return ids, true, nil
}

func (c *MemcachedStreamCache) SetIDs(ctx context.Context, key string, ids []int64) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return errors.Wrap(err, "stream cache marshal")
	}
	return errors.Wrap(c.mc.Set(&memcache.Item{
		Key:        key,
		Value:      raw,
		Expiration: int32(c.ttl.Seconds()),
	}), "stream cache set")
}
