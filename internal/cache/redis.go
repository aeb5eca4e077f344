package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"achievement-service/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewRedis builds a client with short timeouts so a slow Redis degrades to a
// cache miss instead of a slow request.
func NewRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

// JSON stores values as JSON documents under a key prefix.
type JSON struct {
	client redis.UniversalClient
	prefix string
}

func NewJSON(client redis.UniversalClient, prefix string) *JSON {
	return &JSON{client: client, prefix: prefix}
}

// Get decodes the cached value into dst. It reports false on a miss.
func (c *JSON) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *JSON) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, raw, ttl).Err()
}

func (c *JSON) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	return c.client.Del(ctx, full...).Err()
}

func (c *JSON) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
