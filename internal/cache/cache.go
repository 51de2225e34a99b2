// Package cache memoizes values the tracker re-reads every frame.
package cache

import "sync"

// PointerCache memoizes resolved save-block pointers for a bounded number
// of frames. The game relocates its save blocks on map transitions, so an
// entry older than the TTL is treated as absent and re-read.
type PointerCache struct {
	mu      sync.Mutex
	ttl     uint64
	entries map[string]pointerEntry

	hits        SafeCounter
	misses      SafeCounter
	resets      SafeCounter
	relocations SafeCounter
}

// PointerStats counts lookups since the cache was created.
type PointerStats struct {
	Entries     int `json:"entries"`
	Hits        int `json:"hits"`
	Misses      int `json:"misses"`
	Resets      int `json:"resets"`
	Relocations int `json:"relocations"`
}

type pointerEntry struct {
	addr  uint32
	frame uint64
}

// NewPointerCache creates a cache whose entries live for ttl frames.
func NewPointerCache(ttl uint64) *PointerCache {
	return &PointerCache{
		ttl:     ttl,
		entries: make(map[string]pointerEntry),
	}
}

// Reset forgets every pointer, e.g. after a soft reset or an address override.
func (c *PointerCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	c.resets.Inc()
}

// Get returns the pointer stored under name if it was stored less than TTL
// frames before frame. A frame counter that went backwards misses.
func (c *PointerCache) Get(name string, frame uint64) (uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[name]
	if !ok || frame < e.frame || frame-e.frame >= c.ttl {
		c.misses.Inc()
		return 0, false
	}
	c.hits.Inc()
	return e.addr, true
}

// Put stores addr under name and reports whether it replaced a different
// address, i.e. the game moved the block since it was last resolved.
func (c *PointerCache) Put(name string, addr uint32, frame uint64) (relocated bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.entries[name]; ok && prev.addr != addr {
		relocated = true
		c.relocations.Inc()
	}
	c.entries[name] = pointerEntry{addr: addr, frame: frame}
	return relocated
}

func (c *PointerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the entry count and the lookup counters.
func (c *PointerCache) Stats() PointerStats {
	return PointerStats{
		Entries:     c.Len(),
		Hits:        c.hits.Value(),
		Misses:      c.misses.Value(),
		Resets:      c.resets.Value(),
		Relocations: c.relocations.Value(),
	}
}

// SafeCounter is a counter safe for concurrent use.
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
