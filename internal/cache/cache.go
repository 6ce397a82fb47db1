// Package cache implements the response cache: fingerprinted
// entries with TTL expiry and LRU eviction, plus hit/miss stats.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blackcoderx/httprun/internal/model"
)

// Fingerprint is the cache key: method, canonicalized URL, body digest,
// and a configurable subset of request headers.
type Fingerprint string

// DefaultCacheableMethods is the method set the cache consults by
// default: response caching only applies to methods marked safe.
var DefaultCacheableMethods = map[string]bool{"GET": true}

// ComputeFingerprint hashes the request's identity for cache lookup.
// significantHeaders names which headers (case-insensitive) participate
// in the fingerprint; an empty set means headers are ignored entirely.
func ComputeFingerprint(req *model.Request, significantHeaders []string) Fingerprint {
	h := sha256.New()
	h.Write([]byte(req.Method))
	h.Write([]byte{0})
	canonicalURL := req.URL
	if u, err := url.Parse(canonicalURL); err == nil {
		u.Scheme = strings.ToLower(u.Scheme)
		u.Host = strings.ToLower(u.Host)
		u.Fragment = ""
		u.RawQuery = u.Query().Encode()
		canonicalURL = u.String()
	}
	h.Write([]byte(canonicalURL))
	h.Write([]byte{0})
	if req.Body != nil {
		h.Write([]byte(req.Body.Raw))
	}
	h.Write([]byte{0})

	names := append([]string(nil), significantHeaders...)
	sort.Strings(names)
	for _, name := range names {
		if v, ok := req.Headers.Get(name); ok {
			h.Write([]byte(name))
			h.Write([]byte("="))
			h.Write([]byte(v))
			h.Write([]byte{0})
		}
	}

	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

type entry struct {
	key        Fingerprint
	response   *model.Response
	insertedAt time.Time
	accessedAt time.Time
}

// Cache is a TTL + LRU response cache, safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int

	ll    *list.List // front = most recently used
	items map[Fingerprint]*list.Element

	hits   int64
	misses int64
}

// New builds a Cache with the given TTL and maximum entry count.
func New(ttl time.Duration, maxSize int) *Cache {
	return &Cache{
		ttl:     ttl,
		maxSize: maxSize,
		ll:      list.New(),
		items:   make(map[Fingerprint]*list.Element),
	}
}

// Get returns the cached response for key if present and within TTL,
// touching its last-access time on hit.
func (c *Cache) Get(key Fingerprint) (*model.Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	e := el.Value.(*entry)
	if c.ttl > 0 && time.Since(e.insertedAt) > c.ttl {
		c.ll.Remove(el)
		delete(c.items, key)
		c.misses++
		return nil, false
	}

	e.accessedAt = time.Now()
	c.ll.MoveToFront(el)
	c.hits++
	return e.response, true
}

// Set inserts resp under key, evicting the least-recently-accessed entry
// if the cache is at capacity.
func (c *Cache) Set(key Fingerprint, resp *model.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		e.response = resp
		e.insertedAt = now
		e.accessedAt = now
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&entry{key: key, response: resp, insertedAt: now, accessedAt: now})
	c.items[key] = el

	if c.maxSize > 0 && c.ll.Len() > c.maxSize {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}
}

// Stats is a point-in-time snapshot of cache hit/miss counters.
type Stats struct {
	Hits    int64
	Misses  int64
	HitRate float64
}

// Stats returns the current hit/miss counters and derived hit rate.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	s := Stats{Hits: c.hits, Misses: c.misses}
	if total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// ClearStats resets the hit/miss counters without evicting entries.
func (c *Cache) ClearStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits, c.misses = 0, 0
}

// Len reports the number of entries currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
