package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// AlertDedupKeyPattern keys the suppression window for dispatched
	// notifications: one entry per (ip, kind) pair.
	AlertDedupKeyPattern = "alert:dedup:%s:%s"
)

type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Cache wraps the redis client used for alert deduplication state.
type Cache struct {
	client *redis.Client
}

func NewCache(config Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})
	return &Cache{client: client}, nil
}

// NewCacheWithClient builds a Cache around an existing client. Used by tests
// to inject a mock connection.
func NewCacheWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

func (c *Cache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.client.Set(ctx, key, value, expiration).Err()
}

// SetNX atomically claims a key for the given window. It returns true when
// the key was absent and is now set, false when an unexpired entry exists.
func (c *Cache) SetNX(ctx context.Context, key string, value string, expiration time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.client.SetNX(ctx, key, value, expiration).Result()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
