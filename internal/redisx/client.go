package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// CartCache stores rendered cart responses per namespace. Every cart
// mutation must Delete the entry before answering.
type CartCache interface {
	Get(ctx context.Context, ns string) ([]byte, error)
	Set(ctx context.Context, ns string, body []byte) error
	Delete(ctx context.Context, ns string) error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCartCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, ttl: TTLCart}
}

func (c *RedisCache) Get(ctx context.Context, ns string) ([]byte, error) {
	b, err := c.client.Get(ctx, cartKey(ns)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return b, nil
}

func (c *RedisCache) Set(ctx context.Context, ns string, body []byte) error {
	if err := c.client.Set(ctx, cartKey(ns), body, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, ns string) error {
	if err := c.client.Del(ctx, cartKey(ns)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cartKey(ns string) string { return fmt.Sprintf(KeyCart, ns) }
