package stratum

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/stratum/schema"
)

// Cache is the interface for the optional read-through entity cache placed
// in front of Find. Implementations hold encoded copies of entities, so a
// cached value is never aliased by callers (see cache/memory and
// cache/redis).
//
// The cache is consulted by Find only. Update and Delete performed through
// the engine invalidate the matching entry; writes performed through a
// path that bypasses the engine (raw SQL, the batch engine, transactions)
// do not. Callers mixing such writes with cached reads must invalidate
// manually. This is a consistency boundary, not a defect.
type Cache interface {
	// Get retrieves a value from the cache. Any error is treated as a
	// miss by the engine.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with a TTL.
	// A zero TTL means the value does not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// EntityKey returns the cache key for an entity of the given table and
// primary key.
func EntityKey(table string, key any) string {
	return fmt.Sprintf("%s:%v", table, key)
}

// cacheGet looks the entity up in the configured cache and decodes it into
// entity. It reports whether the lookup hit.
func (c *Client) cacheGet(ctx context.Context, d *schema.Descriptor, key, entity any) bool {
	if c.cache == nil {
		return false
	}
	b, err := c.cache.Get(ctx, EntityKey(d.Table, key))
	if err != nil {
		return false
	}
	if err := msgpack.Unmarshal(b, entity); err != nil {
		// A decode failure means a stale or foreign entry; drop it.
		_ = c.cache.Delete(ctx, EntityKey(d.Table, key))
		return false
	}
	return true
}

// cachePut stores the entity under its key using the type's TTL hint, or
// the engine default.
func (c *Client) cachePut(ctx context.Context, d *schema.Descriptor, key, entity any) {
	if c.cache == nil {
		return
	}
	b, err := msgpack.Marshal(entity)
	if err != nil {
		slog.Warn("stratum: cache encode failed", "table", d.Table, "error", err)
		return
	}
	ttl := d.CacheTTL
	if ttl == 0 {
		ttl = c.cacheTTL
	}
	if err := c.cache.Set(ctx, EntityKey(d.Table, key), b, ttl); err != nil {
		slog.Warn("stratum: cache store failed", "table", d.Table, "error", err)
	}
}

// cacheInvalidate removes the entity's entry after a write through the
// engine.
func (c *Client) cacheInvalidate(ctx context.Context, d *schema.Descriptor, key any) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Delete(ctx, EntityKey(d.Table, key)); err != nil {
		slog.Warn("stratum: cache invalidate failed", "table", d.Table, "error", err)
	}
}
