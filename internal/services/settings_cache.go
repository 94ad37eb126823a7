package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const settingsCachePrefix = "settings:"

// RedisSettingsCache keeps setting values in Redis with a TTL so a missed
// write heals on its own.
type RedisSettingsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSettingsCache(redisURL string, ttl time.Duration) (*RedisSettingsCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisSettingsCacheFromClient(redis.NewClient(opts), ttl), nil
}

func NewRedisSettingsCacheFromClient(client *redis.Client, ttl time.Duration) *RedisSettingsCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisSettingsCache{client: client, ttl: ttl}
}

func (c *RedisSettingsCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, settingsCachePrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *RedisSettingsCache) Set(ctx context.Context, key, value string) error {
	return c.client.Set(ctx, settingsCachePrefix+key, value, c.ttl).Err()
}

// Fill stores value only when key is not cached yet (SET NX).
func (c *RedisSettingsCache) Fill(ctx context.Context, key, value string) error {
	return c.client.SetNX(ctx, settingsCachePrefix+key, value, c.ttl).Err()
}

func (c *RedisSettingsCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, settingsCachePrefix+key).Err()
}

func (c *RedisSettingsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisSettingsCache) Close() error {
	return c.client.Close()
}
