package boundary

import (
	"virtualmod/internal/shared/observability"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCacheEntries = 4096

type lookupKind byte

const (
	kindProject lookupKind = 'p'
	kindModule  lookupKind = 'm'
)

type cacheKey struct {
	kind  lookupKind
	start string
	bound string
}

type cacheEntry struct {
	dir string
	ok  bool
}

// Cache memoizes root lookups for one analysis session. The filesystem is
// assumed stable while a session lives; start a new session after changes.
type Cache struct {
	entries *lru.Cache[cacheKey, cacheEntry]
}

func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheEntries
	}
	entries, err := lru.New[cacheKey, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

func (c *Cache) lookup(kind lookupKind, start, bound string) (string, bool, bool) {
	if c == nil {
		return "", false, false
	}
	entry, hit := c.entries.Get(cacheKey{kind: kind, start: start, bound: bound})
	if hit {
		observability.RootCacheHitsTotal.Inc()
	} else {
		observability.RootCacheMissesTotal.Inc()
	}
	return entry.dir, entry.ok, hit
}

func (c *Cache) store(kind lookupKind, start, bound, dir string, ok bool) {
	if c == nil {
		return
	}
	c.entries.Add(cacheKey{kind: kind, start: start, bound: bound}, cacheEntry{dir: dir, ok: ok})
}

// Purge drops every memoized lookup.
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.entries.Purge()
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
