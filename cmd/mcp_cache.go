package cmd

import (
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// docCacheEntry holds a parsed snapshot with its timestamp.
type docCacheEntry struct {
	doc       *goquery.Document
	timestamp time.Time
}

// mcpDocCache provides a TTL-based cache of parsed DOM snapshots, keyed by
// content hash. Agents tend to probe the same snapshot with several tool
// calls in a row; re-parsing it each time is wasted work.
type mcpDocCache struct {
	mu      sync.Mutex
	entries map[uint64]docCacheEntry
	ttl     time.Duration
}

// newMCPDocCache creates a new cache. A ttl of 0 disables caching.
func newMCPDocCache(ttl time.Duration) *mcpDocCache {
	return &mcpDocCache{
		entries: make(map[uint64]docCacheEntry),
		ttl:     ttl,
	}
}

// parse returns a cached document for the snapshot if within TTL, otherwise
// parses fresh.
func (c *mcpDocCache) parse(src string) (*goquery.Document, error) {
	if c.ttl == 0 {
		return goquery.NewDocumentFromReader(strings.NewReader(src))
	}

	h := fnv.New64a()
	h.Write([]byte(src))
	key := h.Sum64()

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && time.Since(entry.timestamp) < c.ttl {
		doc := entry.doc
		c.mu.Unlock()
		return doc, nil
	}
	c.mu.Unlock()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = docCacheEntry{doc: doc, timestamp: time.Now()}
	c.mu.Unlock()

	return doc, nil
}
