package geocode

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// cacheKey returns SHA-256 hex of the normalized query, or "" for a blank one.
// Queries are NFC-composed and Unicode case-folded, so "Straße" and "STRASSE"
// share a key.
func cacheKey(query string) string {
	folded := cases.Fold().String(norm.NFC.String(query))
	normalized := strings.Join(strings.Fields(folded), " ")
	if normalized == "" {
		return ""
	}
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

// cache holds resolved places in memory until they expire.
type cache struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]cacheEntry
	nowFunc func() time.Time
}

type cacheEntry struct {
	place   *Place
	expires time.Time
}

func newCache(ttl time.Duration) *cache {
	return &cache{ttl: ttl, entries: make(map[string]cacheEntry), nowFunc: time.Now}
}

func (c *cache) get(key string) (*Place, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.nowFunc().Before(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	zap.L().Debug("geocode: cache hit", zap.String("key_prefix", key[:8]))
	return e.place, true
}

func (c *cache) put(key string, p *Place) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry{place: p, expires: c.nowFunc().Add(c.ttl)}
	c.mu.Unlock()
}
