package docstore

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/chazuruo/flowdeck/internal/log"
)

// CachedStore keeps recently read document bodies in memory for ttl.
// Every mutation through the store invalidates the affected keys; changes made
// behind its back become visible once the entry expires.
type CachedStore struct {
	next  Store
	cache *gocache.Cache
}

// NewCachedStore wraps next with a read cache.
func NewCachedStore(next Store, ttl time.Duration) *CachedStore {
	return &CachedStore{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// List is never cached; a catalog refresh must see the real store.
func (c *CachedStore) List(ctx context.Context, prefix string, opts ListOptions) ([]Entry, error) {
	return c.next.List(ctx, prefix, opts)
}

// Read serves from the cache when possible.
func (c *CachedStore) Read(ctx context.Context, path string) ([]byte, error) {
	key, err := CleanKey("read", path)
	if err != nil {
		return nil, err
	}
	if v, ok := c.cache.Get(key); ok {
		log.Debug(log.CatStore, "cache hit", "path", key)
		return append([]byte(nil), v.([]byte)...), nil
	}

	data, err := c.next.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, append([]byte(nil), data...))
	return data, nil
}

// Write invalidates path, then writes through.
func (c *CachedStore) Write(ctx context.Context, path string, content []byte, opts WriteOptions) error {
	if key, err := CleanKey("write", path); err == nil {
		c.cache.Delete(key)
	}
	return c.next.Write(ctx, path, content, opts)
}

// Move invalidates both keys, then moves through.
func (c *CachedStore) Move(ctx context.Context, oldPath, newPath string, opts WriteOptions) error {
	if key, err := CleanKey("move", oldPath); err == nil {
		c.cache.Delete(key)
	}
	if key, err := CleanKey("move", newPath); err == nil {
		c.cache.Delete(key)
	}
	return c.next.Move(ctx, oldPath, newPath, opts)
}

// Delete invalidates path, then deletes through.
func (c *CachedStore) Delete(ctx context.Context, path string) error {
	if key, err := CleanKey("delete", path); err == nil {
		c.cache.Delete(key)
	}
	return c.next.Delete(ctx, path)
}

// Flush drops every cached document.
func (c *CachedStore) Flush() {
	c.cache.Flush()
}

var _ Store = (*CachedStore)(nil)
