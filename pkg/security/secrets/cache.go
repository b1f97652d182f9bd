package secrets

import (
	"sync"
	"time"
)

// CacheConfig configures the manager's value cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	MaxSize int
}

type cached struct {
	value   string
	expires time.Time
}

// cache is a TTL map bounded by MaxSize. When full, the entry closest to
// expiry is evicted.
type cache struct {
	cfg CacheConfig
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cached
}

func newCache(cfg CacheConfig) *cache {
	return &cache{cfg: cfg, now: time.Now, entries: make(map[string]cached)}
}

func (c *cache) get(name string) (string, bool) {
	if !c.cfg.Enabled {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[name]
	if !ok {
		return "", false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, name)
		return "", false
	}
	return entry.value, true
}

func (c *cache) set(name, value string) {
	if !c.cfg.Enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[name]; !exists && c.cfg.MaxSize > 0 && len(c.entries) >= c.cfg.MaxSize {
		var victim string
		var soonest time.Time
		for k, e := range c.entries {
			if victim == "" || e.expires.Before(soonest) {
				victim, soonest = k, e.expires
			}
		}
		delete(c.entries, victim)
	}
	c.entries[name] = cached{value: value, expires: c.now().Add(c.cfg.TTL)}
}

func (c *cache) clear() {
	c.mu.Lock()
	c.entries = make(map[string]cached)
	c.mu.Unlock()
}

func (c *cache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
