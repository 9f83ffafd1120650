// Package cache holds recently researched canonical records in memory so
// repeat requests for the same product skip the whole pipeline.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/productsense/research/models"
)

// entry holds a cached record with its creation timestamp.
type entry struct {
	record    *models.CanonicalRecord
	createdAt time.Time
}

// Cache is an in-memory record cache, safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
}

// New creates a Cache with the given capacity. A background goroutine evicts
// entries older than 1 hour every 5 minutes.
func New(maxEntries int) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
	}
	go c.cleanupLoop()
	return c
}

// Key derives the cache key for a request. Keyword sets and UPC strictness
// are part of the key: they change which record the pipeline would produce.
func Key(req *models.ResearchRequest) string {
	h := sha256.New()
	h.Write([]byte(req.ProductName))
	h.Write([]byte("|"))
	h.Write([]byte(req.PrimaryKeywords))
	h.Write([]byte("|"))
	h.Write([]byte(req.SecondaryKeywords))
	h.Write([]byte("|"))
	h.Write([]byte(req.UPCStrictness))
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached record younger than maxAgeMs. maxAgeMs <= 0 skips
// the lookup entirely.
func (c *Cache) Get(key string, maxAgeMs int) (*models.CanonicalRecord, bool) {
	if maxAgeMs <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Since(e.createdAt) > time.Duration(maxAgeMs)*time.Millisecond {
		return nil, false
	}
	return e.record, true
}

// Set stores a record. At capacity a random entry is evicted to make room
// (map iteration order is random in Go).
func (c *Cache) Set(key string, record *models.CanonicalRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{
		record:    record,
		createdAt: time.Now(),
	}
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-1 * time.Hour)
		c.mu.Lock()
		for k, e := range c.store {
			if e.createdAt.Before(cutoff) {
				delete(c.store, k)
			}
		}
		c.mu.Unlock()
	}
}
