package search

import (
	"fmt"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(src Source, term string) SuggestionRow {
	return SuggestionRow{Source: src, Term: term}
}

func entry(id uint32, text string, rows ...SuggestionRow) Entry {
	e := Entry{ID: id, SearchText: text, SuggestionRows: make(map[string]SuggestionRow, len(rows))}
	for _, r := range rows {
		e.SuggestionRows[Normalize(r.Term)] = r
	}
	return e
}

func fixtureIndex() *Index {
	return Build([]Entry{
		entry(1, "alice wonderland blue hair"),
		entry(2, "bob builder red hair"),
		entry(3, "carol singer blue eyes"),
		entry(4, "初音ミク blue-hair twin tails"),
	}, Options{})
}

func ids(values ...uint32) []uint32 {
	return values
}

func TestMatchedEntryIDsEndToEndDates(t *testing.T) {
	idx := Build([]Entry{
		{ID: 1, SearchText: "date_y_2025 date_ym_2025_09"},
		{ID: 2, SearchText: "date_y_2025 date_ym_2025_08"},
	}, Options{})

	assert.Equal(t, ids(1, 2), idx.MatchedEntryIDs("2025"))
	assert.Equal(t, ids(1), idx.MatchedEntryIDs("09/2025"))
	assert.Equal(t, ids(1), idx.MatchedEntryIDs("2025-09"))
	assert.Equal(t, ids(1), idx.MatchedEntryIDs("2025/09/20"))
	assert.Equal(t, ids(1), idx.MatchedEntryIDs("20250914"))
	assert.Equal(t, ids(2), idx.MatchedEntryIDs("2025-08"))
}

func TestEmptyQueryMatchesUniverse(t *testing.T) {
	idx := fixtureIndex()
	assert.True(t, idx.MatchedIDs("").Equals(idx.AllIDs()))
	assert.True(t, idx.MatchedIDs("   ").Equals(idx.AllIDs()))
	assert.Equal(t, ids(1, 2, 3, 4), idx.MatchedEntryIDs(""))
}

func TestStrictBooleanSemantics(t *testing.T) {
	idx := fixtureIndex()

	testCases := []struct {
		query    string
		expected []uint32
	}{
		{"blue", ids(1, 3, 4)},
		{"hair", ids(1, 2, 4)},
		{"blue hair", ids(1, 4)},
		{"blue | red", ids(1, 2, 3, 4)},
		{"!blue", ids(2)},
		{"hair !blue", ids(2)},
		{"carol | bob builder", ids(2, 3)},
		{"bob | carol singer", ids(2, 3)},
		{`"blue hair"`, ids(1)},
		{"blue-hair", ids(4)},
		{"初音ミク", ids(4)},
		{"BLUE   Eyes", ids(3)},
	}
	for _, tc := range testCases {
		t.Run(tc.query, func(t *testing.T) {
			assert.Equal(t, tc.expected, idx.MatchedEntryIDs(tc.query))
		})
	}
}

// The complement holds for terms the strict pass resolves. A term found only
// by the fuzzy fallback is not complemented: "!term" is evaluated strictly,
// where the term matches nothing, so it returns every entry.
func TestNegationComplement(t *testing.T) {
	idx := fixtureIndex()
	for _, term := range []string{"blue", "hair", "alice", "carol"} {
		m := idx.MatchedIDs(term)
		neg := idx.MatchedIDs("!" + term)
		assert.True(t, neg.Equals(roaring.AndNot(idx.AllIDs(), m)), "!%s", term)
	}
}

func TestNegatedFuzzyOnlyTermMatchesAll(t *testing.T) {
	idx := fixtureIndex()

	require.True(t, idx.StrictMatches("hai").IsEmpty())
	assert.NotEmpty(t, idx.MatchedEntryIDs("hai"))
	assert.Equal(t, ids(1, 2, 3, 4), idx.MatchedEntryIDs("!hai"))
}

func TestOrUnionAndIntersection(t *testing.T) {
	idx := fixtureIndex()
	pairs := [][2]string{{"blue", "hair"}, {"alice", "bob"}, {"red", "eyes"}}
	for _, p := range pairs {
		a := idx.MatchedIDs(p[0])
		b := idx.MatchedIDs(p[1])

		or := idx.MatchedIDs(p[0] + " | " + p[1])
		assert.True(t, or.Equals(roaring.Or(a, b)), "%s | %s", p[0], p[1])

		and := roaring.And(a, b)
		if !and.IsEmpty() {
			assert.True(t, idx.MatchedIDs(p[0]+" "+p[1]).Equals(and), "%s %s", p[0], p[1])
		}
	}
}

func TestIdempotence(t *testing.T) {
	idx := fixtureIndex()
	for _, q := range []string{"blue", "wonderlnd", "!hair", `"blue hair" | bob`} {
		first := idx.MatchedEntryIDs(q)
		second := idx.MatchedEntryIDs(q)
		assert.Equal(t, first, second, q)
	}
}

func TestFuzzyFallback(t *testing.T) {
	idx := fixtureIndex()

	// typo has no strict hit
	assert.Equal(t, ids(1), idx.MatchedEntryIDs("wonderlnd"))
	// strict AND is empty, fuzzy still finds the entry
	assert.Equal(t, ids(1), idx.MatchedEntryIDs("blue wonderlnd"))
	// partial word
	assert.Equal(t, ids(2), idx.MatchedEntryIDs("build"))
	// nothing close enough
	assert.Empty(t, idx.MatchedEntryIDs("zzzzzz"))
}

func TestMalformedQueriesNeverFail(t *testing.T) {
	idx := fixtureIndex()
	for _, q := range []string{"!", "|", `"`, `!""`, "| | !", `"blue`, "a*b", "2025-00"} {
		assert.NotPanics(t, func() { idx.MatchedEntryIDs(q) }, q)
	}
	assert.Equal(t, ids(1, 3, 4), idx.MatchedEntryIDs(`"blue`))
	assert.Empty(t, idx.MatchedEntryIDs("|"))
}

func TestEmptyIndex(t *testing.T) {
	idx := Build(nil, Options{})
	assert.Empty(t, idx.MatchedEntryIDs(""))
	assert.Empty(t, idx.MatchedEntryIDs("alice"))
	assert.Empty(t, idx.MatchedEntryIDs("!alice"))
	assert.Nil(t, idx.Suggest("al", SuggestOptions{}))
}

func TestBuildSkipsDuplicateIDs(t *testing.T) {
	idx := Build([]Entry{
		{ID: 1, SearchText: "first"},
		{ID: 1, SearchText: "second"},
		{ID: 2, SearchText: "Third"},
	}, Options{})
	assert.Equal(t, 2, idx.Len())
	assert.Empty(t, idx.MatchedEntryIDs("second"))
	assert.Equal(t, ids(2), idx.MatchedEntryIDs("third"))
}

func TestStrictMatchesWholeWord(t *testing.T) {
	idx := fixtureIndex()
	assert.Equal(t, ids(1, 2, 4), idx.StrictMatches("hair").ToArray())
	// index-shaped miss is definite, no substring scan
	assert.True(t, idx.StrictMatches("hai").IsEmpty())
	// punctuation goes through the escaped regex scan
	assert.Equal(t, ids(4), idx.StrictMatches("blue-hair").ToArray())
	assert.True(t, idx.StrictMatches("blue.hair").IsEmpty())
	assert.True(t, idx.StrictMatches("(").IsEmpty())
}

func TestResultCaching(t *testing.T) {
	idx := fixtureIndex()
	first := idx.MatchedIDs("blue hair")
	second := idx.MatchedIDs("  BLUE  hair ")
	// both normalize to the same key
	assert.Same(t, first, second)
	assert.Equal(t, 1, idx.CacheStats().Matched)
}

func TestParseCacheIsLRU(t *testing.T) {
	idx := Build(nil, Options{CacheSize: 3})

	for _, q := range []string{"a", "b", "c"} {
		idx.ParseQuery(q)
	}
	// refresh a, then overflow
	idx.ParseQuery("a")
	idx.ParseQuery("d")

	assert.False(t, idx.caches.queries.Contains("b"), "least recently used key should be evicted")
	assert.True(t, idx.caches.queries.Contains("a"))
	assert.True(t, idx.caches.queries.Contains("c"))
	assert.True(t, idx.caches.queries.Contains("d"))
	assert.Equal(t, 3, idx.CacheStats().Queries)
}

func TestCacheBoundUnderTyping(t *testing.T) {
	idx := Build([]Entry{{ID: 1, SearchText: "alice"}}, Options{CacheSize: 16})
	for i := 0; i < 100; i++ {
		idx.MatchedIDs(fmt.Sprintf("alice%d", i))
	}
	stats := idx.CacheStats()
	assert.LessOrEqual(t, stats.Matched, 16)
	assert.LessOrEqual(t, stats.Queries, 16)
	assert.False(t, idx.caches.queries.Contains("alice0"))
	assert.True(t, idx.caches.queries.Contains("alice99"))
}

func TestRebuiltIndexHasColdCaches(t *testing.T) {
	entries := []Entry{{ID: 1, SearchText: "alice"}}
	first := Build(entries, Options{})
	first.MatchedIDs("alice")
	require.Equal(t, 1, first.CacheStats().Matched)

	second := Build(entries, Options{})
	assert.Equal(t, 0, second.CacheStats().Matched)
}

func BenchmarkMatchedIDs(b *testing.B) {
	entries := make([]Entry, 0, 2000)
	for i := 0; i < 2000; i++ {
		entries = append(entries, Entry{
			ID:         uint32(i + 1),
			SearchText: fmt.Sprintf("character%d creator%d date_y_2025 keyword%d", i%50, i%20, i%7),
		})
	}
	idx := Build(entries, Options{})
	queries := []string{"character1", "creator2 keyword3", "character1 | creator5", "!keyword2", "charactr1"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.MatchedIDs(queries[i%len(queries)])
	}
}
