package retrieval

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/kailas-cloud/solace/internal/domain/document"
)

// CacheOptions bounds the query cache. Zero values mean no expiry and no size limit.
type CacheOptions struct {
	TTL        time.Duration
	MaxEntries int
}

type cacheEntry struct {
	docs []document.Document
	seq  uint64
}

// QueryCache memoizes retrieval results by normalized query.
type QueryCache struct {
	items      *gocache.Cache
	maxEntries int
	seq        atomic.Uint64
	evictMu    sync.Mutex
}

// NewQueryCache creates a cache. With zero options entries live for the process lifetime.
func NewQueryCache(opts CacheOptions) *QueryCache {
	ttl := gocache.NoExpiration
	cleanup := time.Duration(0)
	if opts.TTL > 0 {
		ttl = opts.TTL
		cleanup = opts.TTL
	}
	return &QueryCache{
		items:      gocache.New(ttl, cleanup),
		maxEntries: opts.MaxEntries,
	}
}

// NormalizeKey lowercases and trims q.
func NormalizeKey(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Get returns a copy of the cached documents for key.
func (c *QueryCache) Get(key string) ([]document.Document, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		return nil, false
	}
	e := v.(cacheEntry)
	return append([]document.Document(nil), e.docs...), true
}

// Put stores docs under key, overwriting any previous value. Empty results are stored too.
func (c *QueryCache) Put(key string, docs []document.Document) {
	e := cacheEntry{
		docs: append(make([]document.Document, 0, len(docs)), docs...),
		seq:  c.seq.Add(1),
	}

	if c.maxEntries <= 0 {
		c.items.SetDefault(key, e)
		return
	}

	c.evictMu.Lock()
	defer c.evictMu.Unlock()
	if _, exists := c.items.Get(key); !exists {
		for c.items.ItemCount() >= c.maxEntries {
			if !c.evictOldest() {
				break
			}
		}
	}
	c.items.SetDefault(key, e)
}

// Len returns the number of cached queries, including expired ones not yet cleaned up.
func (c *QueryCache) Len() int {
	return c.items.ItemCount()
}

// Flush drops every entry.
func (c *QueryCache) Flush() {
	c.items.Flush()
}

func (c *QueryCache) evictOldest() bool {
	var (
		oldestKey string
		oldestSeq uint64
		found     bool
	)
	for k, item := range c.items.Items() {
		e := item.Object.(cacheEntry)
		if !found || e.seq < oldestSeq {
			oldestKey, oldestSeq, found = k, e.seq, true
		}
	}
	if found {
		c.items.Delete(oldestKey)
	}
	return found
}
