package rates

import (
	"log"
	"sync"
	"time"

	"github.com/omartood/somalia-ex-rate/internal/metrics"
	"github.com/omartood/somalia-ex-rate/pkg/filestore"
)

// CacheStore holds the most recent snapshot in two tiers: an in-process
// value and, when a path is configured, a JSON file. The durable tier is
// best-effort in both directions; a missing or corrupt file is a miss and
// a failed write never propagates to the caller.
type CacheStore struct {
	mu   sync.RWMutex
	snap *Snapshot
	path string
}

// NewCacheStore returns a store persisting to path, or memory-only when
// path is empty.
func NewCacheStore(path string) *CacheStore {
	return &CacheStore{path: path}
}

// Read returns the most recent snapshot, preferring the in-process tier
// and falling back to the durable file. A nil return means no snapshot
// exists anywhere.
func (c *CacheStore) Read() *Snapshot {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()
	if snap != nil {
		metrics.CacheReads.WithLabelValues("memory", "hit").Inc()
		return snap
	}

	if c.path == "" {
		metrics.CacheReads.WithLabelValues("memory", "miss").Inc()
		return nil
	}

	var loaded Snapshot
	if err := filestore.ReadJSON(c.path, &loaded); err != nil {
		metrics.CacheReads.WithLabelValues("file", "miss").Inc()
		return nil
	}
	if loaded.Rates == nil || loaded.CapturedAt.IsZero() {
		// Parseable JSON but not a snapshot; treat as corrupt, i.e. a miss.
		log.Printf("rates: cache file %s has no usable snapshot, ignoring", c.path)
		metrics.CacheReads.WithLabelValues("file", "miss").Inc()
		return nil
	}
	metrics.CacheReads.WithLabelValues("file", "hit").Inc()

	c.mu.Lock()
	if c.snap == nil {
		c.snap = &loaded
	}
	snap = c.snap
	c.mu.Unlock()
	return snap
}

// Write replaces the in-process snapshot atomically and persists it when a
// path is configured. Durable write failures are logged and swallowed.
func (c *CacheStore) Write(snap Snapshot) {
	c.mu.Lock()
	c.snap = &snap
	c.mu.Unlock()

	if c.path == "" {
		return
	}
	if err := filestore.WriteJSON(c.path, snap); err != nil {
		log.Printf("rates: persisting cache to %s failed: %v", c.path, err)
	}
}

// Fresh reports whether the snapshot was captured within ttl of now.
func (c *CacheStore) Fresh(snap *Snapshot, ttl time.Duration) bool {
	if snap == nil {
		return false
	}
	return time.Since(snap.CapturedAt) < ttl
}
