// Package memory provides an in-process entity cache backend.
package memory

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("memory: key not found")

// Cache is a bounded in-memory cache. Reads go through a sync.Map and take
// no lock; writes additionally maintain an insertion-ordered queue used for
// size-based eviction. When a maximum size is set, inserting beyond it
// evicts the oldest-inserted key. Re-setting an existing key keeps its
// original queue position.
//
// Expired entries are dropped lazily on Get, and eagerly by Sweep or the
// optional background sweeper.
type Cache struct {
	entries sync.Map // string -> *entry

	mu      sync.Mutex
	order   *list.List // of string, oldest insertion first
	index   map[string]*list.Element
	maxSize int

	sweepEvery time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e *entry) expired() bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxSize bounds the number of cached entries. Zero means unbounded.
// Entity types can suggest a bound through their CacheMaxSize hint; the
// cache itself only knows the number given here.
func WithMaxSize(n int) Option {
	return func(c *Cache) { c.maxSize = n }
}

// WithSweepInterval starts a background goroutine that removes expired
// entries every interval. The goroutine runs until Close is called.
func WithSweepInterval(interval time.Duration) Option {
	return func(c *Cache) { c.sweepEvery = interval }
}

// New returns an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		order: list.New(),
		index: make(map[string]*list.Element),
		stop:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sweepEvery > 0 {
		go c.sweepLoop(c.sweepEvery)
	}
	return c
}

// Get retrieves a value. The returned slice is a copy.
func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := c.entries.Load(key)
	if !ok {
		return nil, ErrNotFound
	}
	e := v.(*entry)
	if e.expired() {
		c.remove(key)
		return nil, ErrNotFound
	}
	cp := make([]byte, len(e.value))
	copy(cp, e.value)
	return cp, nil
}

// Set stores a copy of value under key. A zero ttl means no expiry.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	e := &entry{value: cp}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries.Store(key, e)
	if _, ok := c.index[key]; !ok {
		c.index[key] = c.order.PushBack(key)
		if c.maxSize > 0 && c.order.Len() > c.maxSize {
			oldest := c.order.Front()
			c.order.Remove(oldest)
			k := oldest.Value.(string)
			delete(c.index, k)
			c.entries.Delete(k)
		}
	}
	c.mu.Unlock()
	return nil
}

// Delete removes key.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.remove(key)
	return nil
}

// Clear removes every entry.
func (c *Cache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.entries.Range(func(k, _ any) bool {
		c.entries.Delete(k)
		return true
	})
	c.order.Init()
	c.index = make(map[string]*list.Element)
	c.mu.Unlock()
	return nil
}

// Len reports the number of live entries, counting not-yet-swept expired
// ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Sweep removes every expired entry.
func (c *Cache) Sweep() {
	var expired []string
	c.entries.Range(func(k, v any) bool {
		if v.(*entry).expired() {
			expired = append(expired, k.(string))
		}
		return true
	})
	for _, k := range expired {
		c.remove(k)
	}
}

// Close stops the background sweeper, if one was started. The cache stays
// usable after Close.
func (c *Cache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

func (c *Cache) remove(key string) {
	c.mu.Lock()
	c.entries.Delete(key)
	if el, ok := c.index[key]; ok {
		c.order.Remove(el)
		delete(c.index, key)
	}
	c.mu.Unlock()
}

func (c *Cache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stop:
			return
		}
	}
}
