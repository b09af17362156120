package library

import (
	"fmt"
	"sync"

	"github.com/book-expert/unit-tts/internal/audio"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// DEFAULT_CACHE_SIZE is the number of decoded recordings kept in memory.
const DEFAULT_CACHE_SIZE = 1000

// Cache holds decoded recordings keyed by file path, evicting the least recently used
// entry when full. It is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	lru      *simplelru.LRU[string, audio.Buffer]
	maxItems int
}

// NewCache creates a cache holding at most capacity buffers.
func NewCache(capacity int) (*Cache, error) {
	lru, err := simplelru.NewLRU[string, audio.Buffer](capacity, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache of size %d: %w", capacity, err)
	}

	return &Cache{mu: sync.Mutex{}, lru: lru, maxItems: capacity}, nil
}

// Get returns the buffer stored for path and marks it most recently used.
func (c *Cache) Get(path string) (audio.Buffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Get(path)
}

// Put stores buffer under path. An existing entry is kept unchanged.
func (c *Cache) Put(path string, buffer audio.Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lru.Contains(path) {
		return
	}

	if c.lru.Len() >= c.maxItems {
		c.lru.RemoveOldest()
	}

	c.lru.Add(path, buffer)
}

// Len returns the number of cached buffers.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Len()
}

// Keys returns the cached paths from least to most recently used.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Keys()
}
