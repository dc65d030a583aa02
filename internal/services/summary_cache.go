package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"

	"budget/internal/core"
)

// SummaryCache caches month views between mutations. A nil *SummaryCache is
// valid and caches nothing.
type SummaryCache struct {
	cache *ristretto.Cache
	ttl   time.Duration

	// ristretto cannot enumerate its keys, so they are tracked for Clear.
	mu   sync.Mutex
	keys map[core.MonthKey]struct{}
}

func NewSummaryCache(ttl time.Duration) (*SummaryCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000, // number of keys to track frequency of
		MaxCost:     1000,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return nil, fmt.Errorf("create summary cache: %w", err)
	}
	return &SummaryCache{cache: cache, ttl: ttl, keys: make(map[core.MonthKey]struct{})}, nil
}

func (c *SummaryCache) Get(key core.MonthKey) (MonthView, bool) {
	if c == nil {
		return MonthView{}, false
	}
	v, ok := c.cache.Get(string(key))
	if !ok {
		return MonthView{}, false
	}
	view, ok := v.(MonthView)
	return view, ok
}

func (c *SummaryCache) Set(key core.MonthKey, view MonthView) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.keys[key] = struct{}{}
	c.mu.Unlock()
	if c.ttl > 0 {
		c.cache.SetWithTTL(string(key), view, 1, c.ttl)
		return
	}
	c.cache.Set(string(key), view, 1)
}

func (c *SummaryCache) Invalidate(key core.MonthKey) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.keys, key)
	c.mu.Unlock()
	c.cache.Del(string(key))
}

// Clear drops every cached month.
func (c *SummaryCache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	for key := range c.keys {
		c.cache.Del(string(key))
	}
	c.keys = make(map[core.MonthKey]struct{})
	c.mu.Unlock()
}

func (c *SummaryCache) Close() {
	if c == nil {
		return
	}
	c.cache.Close()
}
