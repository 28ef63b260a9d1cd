// Package rediscache backs the dedup cache with Redis. Keys carry their own
// TTLs; nothing here is load-bearing for course state.
package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/aktamov/davomat/core"
)

type Cache struct {
	client *redis.Client
}

var _ core.Cache = (*Cache)(nil) // interface compliance check

func Open(conf core.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "rediscache.Open")
	}
	return &Cache{client: client}, nil
}

func (c *Cache) Exists(key string) (bool, error) {
	n, err := c.client.Exists(context.Background(), key).Result()
	if err != nil {
		return false, errors.Wrap(err, "rediscache.Exists")
	}
	return n > 0, nil
}

func (c *Cache) Get(key string) (string, bool, error) {
	v, err := c.client.Get(context.Background(), key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "rediscache.Get")
	}
	return v, true, nil
}

func (c *Cache) SetWithTTL(key, value string, ttl time.Duration) error {
	if err := c.client.Set(context.Background(), key, value, ttl).Err(); err != nil {
		return errors.Wrap(err, "rediscache.SetWithTTL")
	}
	return nil
}

func (c *Cache) Delete(key string) error {
	if err := c.client.Del(context.Background(), key).Err(); err != nil {
		return errors.Wrap(err, "rediscache.Delete")
	}
	return nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}
