package services

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prefeitura-rio/app-identidade/internal/observability"
)

// ViewCache keeps recently served rendered images by nickname
type ViewCache struct {
	cache *expirable.LRU[string, []byte]
}

// NewViewCache creates an LRU cache of size entries. A zero ttl keeps entries
// until they are evicted or invalidated.
func NewViewCache(size int, ttl time.Duration) *ViewCache {
	if size <= 0 {
		size = 1
	}
	return &ViewCache{cache: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get returns the cached image and whether it was present
func (c *ViewCache) Get(nickname string) ([]byte, bool) {
	val, ok := c.cache.Get(nickname)
	if ok {
		observability.CacheHits.WithLabelValues("hit").Inc()
		return val, true
	}
	observability.CacheHits.WithLabelValues("miss").Inc()
	return nil, false
}

// Set stores the image for nickname
func (c *ViewCache) Set(nickname string, image []byte) {
	c.cache.Add(nickname, image)
}

// Delete drops the entry for nickname
func (c *ViewCache) Delete(nickname string) {
	c.cache.Remove(nickname)
}

// Len returns the number of cached entries
func (c *ViewCache) Len() int {
	return c.cache.Len()
}
