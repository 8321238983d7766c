package search

import (
	"github.com/RoaringBitmap/roaring/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds every per-index cache.
const DefaultCacheSize = 256

// indexCaches holds the memoized results for one index. A rebuilt index gets
// a fresh set, so nothing here is ever invalidated piecemeal.
type indexCaches struct {
	queries     *lru.Cache[string, Query]
	inputs      *lru.Cache[string, SuggestionInput]
	strict      *lru.Cache[string, *roaring.Bitmap]
	matched     *lru.Cache[string, *roaring.Bitmap]
	excluded    *lru.Cache[string, map[string]struct{}]
	suggestions *lru.Cache[suggestKey, []Match]
}

type suggestKey struct {
	query      string
	context    string
	negated    bool
	joinedByOr bool
	limit      int
}

func newIndexCaches(size int) *indexCaches {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &indexCaches{
		queries:     mustLRU[string, Query](size),
		inputs:      mustLRU[string, SuggestionInput](size),
		strict:      mustLRU[string, *roaring.Bitmap](size),
		matched:     mustLRU[string, *roaring.Bitmap](size),
		excluded:    mustLRU[string, map[string]struct{}](size),
		suggestions: mustLRU[suggestKey, []Match](size),
	}
}

// mustLRU only fails on a non-positive size, which newIndexCaches rules out.
func mustLRU[K comparable, V any](size int) *lru.Cache[K, V] {
	c, err := lru.New[K, V](size)
	if err != nil {
		panic(err)
	}
	return c
}

// CacheStats reports how many keys each cache currently holds.
type CacheStats struct {
	Queries     int
	Inputs      int
	Strict      int
	Matched     int
	Excluded    int
	Suggestions int
}

func (c *indexCaches) stats() CacheStats {
	return CacheStats{
		Queries:     c.queries.Len(),
		Inputs:      c.inputs.Len(),
		Strict:      c.strict.Len(),
		Matched:     c.matched.Len(),
		Excluded:    c.excluded.Len(),
		Suggestions: c.suggestions.Len(),
	}
}
