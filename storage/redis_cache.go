package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"price-scout/rates"
	"price-scout/utils"
)

// RedisConfig describes the Redis connection used for the rate cache.
type RedisConfig struct {
	URL          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DialTimeout  time.Duration
}

func (c RedisConfig) New(ctx context.Context) (*redis.Client, error) {
	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if c.ReadTimeout > 0 {
		opts.ReadTimeout = c.ReadTimeout
	}
	if c.WriteTimeout > 0 {
		opts.WriteTimeout = c.WriteTimeout
	}
	if c.DialTimeout > 0 {
		opts.DialTimeout = c.DialTimeout
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// redisKV is the part of redis.Cmdable the cache uses.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

const rateSnapshotKey = "price-scout:rates:last"

// RedisRateCache keeps the last good rate snapshot in Redis.
type RedisRateCache struct {
	rdb redisKV
	ttl time.Duration
}

// NewRedisRateCache stores snapshots with ttl; zero keeps them forever.
func NewRedisRateCache(rdb redisKV, ttl time.Duration) *RedisRateCache {
	return &RedisRateCache{rdb: rdb, ttl: ttl}
}

func (c *RedisRateCache) Load(ctx context.Context) (rates.Snapshot, bool, error) {
	raw, err := c.rdb.Get(ctx, rateSnapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return rates.Snapshot{}, false, nil
	}
	if err != nil {
		utils.Log().Error().Err(err).Str("key", rateSnapshotKey).Msg("failed to load rates from redis")
		return rates.Snapshot{}, false, fmt.Errorf("redis get: %w", err)
	}

	var snap rates.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return rates.Snapshot{}, false, fmt.Errorf("unmarshal rate snapshot: %w", err)
	}
	if len(snap.Rates) == 0 {
		return rates.Snapshot{}, false, nil
	}
	return snap, true, nil
}

func (c *RedisRateCache) Store(ctx context.Context, snap rates.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal rate snapshot: %w", err)
	}
	if err := c.rdb.Set(ctx, rateSnapshotKey, b, c.ttl).Err(); err != nil {
		utils.Log().Error().Err(err).Str("key", rateSnapshotKey).Msg("failed to store rates in redis")
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
