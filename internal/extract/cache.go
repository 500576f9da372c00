package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"

	"github.com/nroussel/watchsignal/internal/core/domain"
)

// Cache is a content-addressed store of extraction results. It grows
// unbounded until Clear is called; the key covers the message text plus the
// envelope fields that influence the prompt, so identical inputs short-
// circuit the external model call.
type Cache struct {
	mu      sync.Mutex
	records map[string]domain.WatchRecord
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{records: make(map[string]domain.WatchRecord)}
}

// CacheKey fingerprints a message together with the prompt-relevant context.
func CacheKey(text, profileName string, isGroup bool) string {
	sum := sha256.Sum256([]byte(text + profileName + strconv.FormatBool(isGroup)))

	return hex.EncodeToString(sum[:])
}

func (c *Cache) Get(key string) (domain.WatchRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[key]

	return rec, ok
}

func (c *Cache) Put(key string, rec domain.WatchRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records[key] = rec
}

// Len reports the number of cached records.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.records)
}

// Clear drops all cached records.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = make(map[string]domain.WatchRecord)
}

// Snapshot copies the cached records for read-only aggregation.
func (c *Cache) Snapshot() []domain.WatchRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	records := make([]domain.WatchRecord, 0, len(c.records))
	for _, rec := range c.records {
		records = append(records, rec)
	}

	return records
}
