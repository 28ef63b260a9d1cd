// Package memcache is an in-process TTL cache used in tests and local
// development. Expired entries are dropped lazily on read.
package memcache

import (
	"sync"
	"time"

	"github.com/aktamov/davomat/core"
)

type entry struct {
	value     string
	expiresAt time.Time
}

type Cache struct {
	mu    sync.RWMutex
	table map[string]entry
}

var _ core.Cache = (*Cache)(nil) // interface compliance check

func New() *Cache {
	return &Cache{table: make(map[string]entry)}
}

func (c *Cache) Exists(key string) (bool, error) {
	_, ok, err := c.Get(key)
	return ok, err
}

func (c *Cache) Get(key string) (string, bool, error) {
	c.mu.RLock()
	e, ok := c.table[key]
	c.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.table, key)
		c.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

func (c *Cache) SetWithTTL(key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.table, key)
	return nil
}
