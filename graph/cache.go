package graph

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const apqPrefix = "apq:"

// Cache keeps automatic persisted queries in redis so a till can send a query hash instead of the text.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) (*Cache, error) {
	if client == nil {
		return nil, errors.New("redis is not connected")
	}
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &Cache{client: client, ttl: ttl}, nil
}

func (c *Cache) Add(ctx context.Context, key string, value interface{}) {
	c.client.Set(ctx, apqPrefix+key, value, c.ttl)
}

func (c *Cache) Get(ctx context.Context, key string) (interface{}, bool) {
	s, err := c.client.Get(ctx, apqPrefix+key).Result()
	if err != nil {
		return struct{}{}, false
	}
	return s, true
}
