package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SummaryCache stores generated decision summaries. Keys are chosen by the
// caller and must identify one decision unambiguously.
type SummaryCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, summary string) error
	Close() error
}

type redisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisSummaryCache(addr, password string, db int, ttl time.Duration, prefix string) (SummaryCache, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if prefix == "" {
		prefix = "decision_summary"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisSummaryCache{client: client, ttl: ttl, prefix: prefix}, nil
}

func (c *redisSummaryCache) key(k string) string {
	return fmt.Sprintf("%s:%s", c.prefix, k)
}

func (c *redisSummaryCache) Get(ctx context.Context, key string) (string, bool, error) {
	if c == nil || c.client == nil || key == "" {
		return "", false, nil
	}
	val, err := c.client.Get(ctx, c.key(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, val != "", nil
}

func (c *redisSummaryCache) Set(ctx context.Context, key, summary string) error {
	if c == nil || c.client == nil || key == "" || summary == "" {
		return nil
	}
	return c.client.Set(ctx, c.key(key), summary, c.ttl).Err()
}

func (c *redisSummaryCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
