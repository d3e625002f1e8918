package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const forecastKeyPrefix = "ambulanz:report:forecast:"

// Cache stores computed quarter forecasts.
type Cache interface {
	Get(ctx context.Context, quarter, practice string) (*Forecast, bool, error)
	Set(ctx context.Context, f *Forecast) error
	Invalidate(ctx context.Context) error
}

func forecastKey(quarter, practice string) string {
	return forecastKeyPrefix + quarter + ":" + practice
}

// RedisCache keeps forecasts as JSON strings with a TTL.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, quarter, practice string) (*Forecast, bool, error) {
	data, err := c.rdb.Get(ctx, forecastKey(quarter, practice)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get forecast: %w", err)
	}
	var f Forecast
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, false, fmt.Errorf("decode forecast: %w", err)
	}
	return &f, true, nil
}

func (c *RedisCache) Set(ctx context.Context, f *Forecast) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode forecast: %w", err)
	}
	if err := c.rdb.Set(ctx, forecastKey(f.Quarter, f.Practice), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set forecast: %w", err)
	}
	return nil
}

// Invalidate drops every cached forecast. A chain change can touch any
// quarter, so there is no finer key to target.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, forecastKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan forecasts: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete forecasts: %w", err)
	}
	return nil
}
