// Package cache holds the in-process public link cache.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"cloudstore/internal/database/sqlc"
	"cloudstore/internal/drive"
)

var (
	linkCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cloudstore_link_cache_hits_total",
		Help: "Public token lookups answered from the cache.",
	})
	linkCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cloudstore_link_cache_misses_total",
		Help: "Public token lookups that went to the database.",
	})
)

// LinkCache maps public tokens to file records. Entries expire after a
// fixed TTL and the least recently used entry is evicted when full.
type LinkCache struct {
	lru *expirable.LRU[string, *sqlc.File]
}

var _ drive.LinkCache = (*LinkCache)(nil)

// NewLinkCache creates a cache holding up to size entries for ttl each.
func NewLinkCache(size int, ttl time.Duration) *LinkCache {
	return &LinkCache{lru: expirable.NewLRU[string, *sqlc.File](size, nil, ttl)}
}

// Get returns the cached record for token.
func (c *LinkCache) Get(token string) (*sqlc.File, bool) {
	file, ok := c.lru.Get(token)
	if ok {
		linkCacheHits.Inc()
		return file, true
	}
	linkCacheMisses.Inc()
	return nil, false
}

// Add caches file under token.
func (c *LinkCache) Add(token string, file *sqlc.File) {
	c.lru.Add(token, file)
}

// Remove drops token from the cache.
func (c *LinkCache) Remove(token string) {
	c.lru.Remove(token)
}

// Len returns the number of live entries.
func (c *LinkCache) Len() int {
	return c.lru.Len()
}
