// Package redis provides a Redis-backed entity cache backend, suitable for
// sharing cached entities across multiple processes.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("redis: key not found")

const defaultPrefix = "stratum:"

// Cache implements the entity cache over a Redis client. Keys are
// namespaced with a prefix so one Redis database can serve several
// applications.
type Cache struct {
	client *redis.Client
	prefix string
	owned  bool
}

// Config holds connection settings for a Redis cache.
type Config struct {
	Addr      string // Redis address (e.g. "localhost:6379")
	Password  string // Redis password
	DB        int    // Redis database number
	KeyPrefix string // key prefix for namespacing (default "stratum:")
}

// New creates a Redis-backed cache with its own client.
func New(cfg Config) *Cache {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Cache{client: client, prefix: prefix, owned: true}
}

// NewFromClient creates a Redis-backed cache over an existing client. The
// caller keeps ownership of the client; Close does not close it.
func NewFromClient(client *redis.Client, prefix string) *Cache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Cache{client: client, prefix: prefix}
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

// Get retrieves a value.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores a value. A zero ttl means no expiry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

// Delete removes a value.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

// Clear removes every key under the cache's prefix. Other keys in the same
// Redis database are untouched.
func (c *Cache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == 512 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return c.client.Del(ctx, keys...).Err()
	}
	return nil
}

// Ping verifies connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying client when the cache created it.
func (c *Cache) Close() error {
	if !c.owned {
		return nil
	}
	return c.client.Close()
}
