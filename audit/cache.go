package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// resultCache memoizes normalized results for identical (url, credential,
// depth) triples within a bounded recent window, so a repeated audit does not
// re-invoke the external agent. The credential is stored only as a
// fingerprint, never verbatim.
type resultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[cacheKey]cacheEntry
}

type cacheKey struct {
	url        string
	credential string
	depth      Depth
}

type cacheEntry struct {
	result  Result
	expires time.Time
}

func newResultCache(ttl time.Duration) *resultCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &resultCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[cacheKey]cacheEntry),
	}
}

func (c *resultCache) key(req Request) cacheKey {
	sum := sha256.Sum256([]byte(req.APIKey))
	return cacheKey{
		url:        req.URL,
		credential: hex.EncodeToString(sum[:8]),
		depth:      req.Depth,
	}
}

func (c *resultCache) get(req Request) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[c.key(req)]
	if !ok {
		return Result{}, false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, c.key(req))
		return Result{}, false
	}
	return entry.result, true
}

func (c *resultCache) put(req Request, res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.key(req)] = cacheEntry{result: res, expires: c.now().Add(c.ttl)}
}
