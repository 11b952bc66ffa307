// Package cache provides core.Cache implementations.
package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

const scanCount = 100

type Redis struct {
	client *redis.Client
}

var _ core.Cache = (*Redis)(nil)

// NewRedis connects to the redis server configured in conf.Cache.
func NewRedis(ctx context.Context, conf *core.Config) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Cache.Address,
		Password: conf.Cache.Password,
		DB:       conf.Cache.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &Redis{client: client}, nil
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "getting %s", key)
	}
	return val, true, nil
}

func (c *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return errors.Wrapf(c.client.Set(ctx, key, val, ttl).Err(), "setting %s", key)
}

// DeletePrefix deletes every key starting with prefix, scanning in pages.
func (c *Redis) DeletePrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, prefix+"*", scanCount).Result()
		if err != nil {
			return errors.Wrapf(err, "scanning %s*", prefix)
		}
		if len(keys) > 0 {
			if err = c.client.Del(ctx, keys...).Err(); err != nil {
				return errors.Wrapf(err, "deleting %s*", prefix)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (c *Redis) Close() error {
	return c.client.Close()
}
