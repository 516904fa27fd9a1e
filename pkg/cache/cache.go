// Package cache provides an in-memory LRU cache with TTL for hot item
// metadata in front of the archive store's point lookups.
package cache

import (
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unilib/archivestore/pkg/archive"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "archive_item_cache_hits_total",
		Help: "Number of item metadata cache hits.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "archive_item_cache_misses_total",
		Help: "Number of item metadata cache misses.",
	})
)

// ItemCache caches item records keyed by owner and id. Entries expire
// after the configured TTL; mutating operations must invalidate.
type ItemCache struct {
	lru *expirable.LRU[string, *archive.ItemRecord]
}

// New creates an ItemCache holding at most maxSize entries for up to ttl.
func New(maxSize int, ttl time.Duration) *ItemCache {
	return &ItemCache{lru: expirable.NewLRU[string, *archive.ItemRecord](maxSize, nil, ttl)}
}

// Get returns the cached record for the owner and id, if present.
func (c *ItemCache) Get(ownerID, id int64) (*archive.ItemRecord, bool) {
	rec, ok := c.lru.Get(key(ownerID, id))
	if ok {
		cacheHitsTotal.Inc()
		return rec, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set stores a record.
func (c *ItemCache) Set(rec *archive.ItemRecord) {
	if rec == nil {
		return
	}
	c.lru.Add(key(rec.OwnerID, rec.ID), rec)
}

// Invalidate drops a record, if cached. Call after favorite toggles,
// soft deletes, restores, and purges.
func (c *ItemCache) Invalidate(ownerID, id int64) {
	c.lru.Remove(key(ownerID, id))
}

func key(ownerID, id int64) string {
	return strconv.FormatInt(ownerID, 10) + "/" + strconv.FormatInt(id, 10)
}
