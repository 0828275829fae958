package todos

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) *RedisTagCache {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisTagCache(client, "tags:", time.Minute)
}

func TestRedisTagCacheRoundtrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	if _, ok := cache.Get(ctx, "p1"); ok {
		t.Fatal("expected cold cache miss")
	}

	cache.Set(ctx, "p1", []string{"x", "y"})
	tags, ok := cache.Get(ctx, "p1")
	if !ok {
		t.Fatal("expected cache hit after set")
	}
	if len(tags) != 2 || tags[0] != "x" || tags[1] != "y" {
		t.Fatalf("unexpected cached tags: %v", tags)
	}

	cache.Invalidate(ctx, "p1")
	if _, ok := cache.Get(ctx, "p1"); ok {
		t.Fatal("expected miss after invalidation")
	}
}

func TestRedisTagCacheEmptyUnion(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	// an empty tag union is a valid cacheable value, distinct from a miss
	cache.Set(ctx, "p1", []string{})
	tags, ok := cache.Get(ctx, "p1")
	if !ok {
		t.Fatal("expected hit for cached empty union")
	}
	if len(tags) != 0 {
		t.Fatalf("unexpected tags: %v", tags)
	}
}
