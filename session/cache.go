package session

import (
	"sort"
	"sync"
)

// SummaryKey caches the basket summary fragment.
const SummaryKey = "ps-summary"

// ItemKey is the cache and sink key of an item's fragment.
func ItemKey(itemID string) string {
	return "ps-item-" + itemID
}

// Fragment is rendered HTML plus the anchor it is inserted after.
type Fragment struct {
	Anchor string
	HTML   string
}

// RenderCache holds the last good rendered output of one session. Writes
// are whole batches so a failed cycle never leaves it half updated.
type RenderCache struct {
	mu      sync.RWMutex
	entries map[string]Fragment
}

func NewRenderCache() *RenderCache {
	return &RenderCache{entries: make(map[string]Fragment)}
}

// Commit replaces the whole cache with batch and returns the previously
// cached keys batch no longer has, sorted.
func (c *RenderCache) Commit(batch map[string]Fragment) []string {
	next := make(map[string]Fragment, len(batch))
	for k, v := range batch {
		next[k] = v
	}
	c.mu.Lock()
	var dropped []string
	for k := range c.entries {
		if _, ok := next[k]; !ok {
			dropped = append(dropped, k)
		}
	}
	c.entries = next
	c.mu.Unlock()
	sort.Strings(dropped)
	return dropped
}

// Merge overwrites only the keys in batch.
func (c *RenderCache) Merge(batch map[string]Fragment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range batch {
		c.entries[k] = v
	}
}

func (c *RenderCache) Get(key string) (Fragment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.entries[key]
	return f, ok
}

// Keys returns cached keys in sorted order.
func (c *RenderCache) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

func (c *RenderCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *RenderCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]Fragment)
	c.mu.Unlock()
}
