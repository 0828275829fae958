package todos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/projecto/projecto/pkg/logger"
)

// TagCache caches the per-project tag union, the one unbounded scan on the
// todo index. Misses and errors degrade to the scan.
type TagCache interface {
	Get(ctx context.Context, projectKey string) ([]string, bool)
	Set(ctx context.Context, projectKey string, tags []string)
	Invalidate(ctx context.Context, projectKey string)
}

// RedisTagCache implements TagCache on a redis client with a TTL.
type RedisTagCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisTagCache(client *redis.Client, prefix string, ttl time.Duration) *RedisTagCache {
	if prefix == "" {
		prefix = "tags:"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisTagCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisTagCache) key(projectKey string) string { return c.prefix + projectKey }

func (c *RedisTagCache) Get(ctx context.Context, projectKey string) ([]string, bool) {
	raw, err := c.client.Get(ctx, c.key(projectKey)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warnf("tag cache get failed for %s: %v", projectKey, err)
		}
		return nil, false
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, false
	}
	return tags, true
}

func (c *RedisTagCache) Set(ctx context.Context, projectKey string, tags []string) {
	raw, err := json.Marshal(tags)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(projectKey), raw, c.ttl).Err(); err != nil {
		logger.Warnf("tag cache set failed for %s: %v", projectKey, err)
	}
}

func (c *RedisTagCache) Invalidate(ctx context.Context, projectKey string) {
	if err := c.client.Del(ctx, c.key(projectKey)).Err(); err != nil {
		logger.Warnf("tag cache invalidate failed for %s: %v", projectKey, err)
	}
}
