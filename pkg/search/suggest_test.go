package search

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func terms(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Term
	}
	return out
}

func TestSuggestExcludesOrJoinedContext(t *testing.T) {
	idx := Build([]Entry{
		entry(1, "n*yuta", row(SourceCreator, "n*yuta")),
		entry(2, "azki", row(SourceCreator, "AZKi")),
	}, Options{})

	assert.Equal(t, []string{"AZKi"}, terms(idx.Suggest("n*yuta | AZKi", SuggestOptions{})))
	assert.Equal(t, []string{"n*yuta"}, terms(idx.Suggest("AZKi | n*yuta", SuggestOptions{})))
}

func TestSuggestWildcardTerms(t *testing.T) {
	idx := Build([]Entry{
		entry(1, "n*yuta", row(SourceCreator, "n*yuta")),
	}, Options{})

	m := idx.Suggest("noyuta", SuggestOptions{})
	require.Len(t, m, 1)
	assert.Equal(t, "n*yuta", m[0].Term)
	assert.Equal(t, []Source{SourceCreator}, m[0].Sources)

	assert.Len(t, idx.Suggest("ny", SuggestOptions{}), 1)
	assert.Empty(t, idx.Suggest("nyutaa", SuggestOptions{}))
}

func TestWildcardRank(t *testing.T) {
	pattern := []rune("n*yuta")
	testCases := []struct {
		token string
		rank  int
		ok    bool
	}{
		{"n*yuta", rankExact, true},
		{"nayuta", rankExact, true},
		{"n", rankPrefix, true},
		{"nx", rankPrefix, true},
		{"yuta", rankSubstring, true},
		{"xyuta", rankSubstring, true},
		{"yutaz", 0, false},
		{"", 0, false},
		{"n*yutas", 0, false},
	}
	for _, tc := range testCases {
		t.Run(tc.token, func(t *testing.T) {
			rank, ok := wildcardRank(pattern, []rune(tc.token))
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.rank, rank)
			}
		})
	}
}

func contextFixture() *Index {
	return Build([]Entry{
		entry(1, "azki nyuta", row(SourceCreator, "AZKi"), row(SourceCreator, "n*yuta")),
		entry(2, "nyuko", row(SourceCreator, "nyuko")),
		entry(3, "other", row(SourceKeyword, "other")),
	}, Options{})
}

func TestSuggestContextNarrowing(t *testing.T) {
	idx := contextFixture()

	// OR-joined tokens are scored against every entry
	assert.Equal(t, []string{"n*yuta", "nyuko"}, terms(idx.Suggest("azki | ny", SuggestOptions{})))
	// AND-joined tokens only keep terms that co-occur with the context
	assert.Equal(t, []string{"n*yuta"}, terms(idx.Suggest("azki ny", SuggestOptions{})))
	// a context term is never suggested again
	assert.Empty(t, idx.Suggest("azki az", SuggestOptions{}))
	assert.Empty(t, idx.Suggest("!azki az", SuggestOptions{}))
}

func TestSuggestNegatedCountsExclusions(t *testing.T) {
	idx := Build([]Entry{
		entry(1, "blue hair alice", row(SourceKeyword, "blue hair")),
		entry(2, "blue hair bob", row(SourceKeyword, "blue hair")),
		entry(3, "carol red eyes", row(SourceKeyword, "red eyes")),
	}, Options{})

	m := idx.Suggest("hair !blue", SuggestOptions{})
	require.Len(t, m, 1)
	assert.Equal(t, "blue hair", m[0].Term)
	// every entry matching "hair" would be removed
	assert.Equal(t, 0, m[0].MatchedCount)
	assert.Equal(t, 2, m[0].GlobalCount)

	// negated with a trivial context counts the rest of the universe
	m = idx.Suggest("!red", SuggestOptions{})
	require.Len(t, m, 1)
	assert.Equal(t, "red eyes", m[0].Term)
	assert.Equal(t, 2, m[0].MatchedCount)

	// the phrase typed so far is already in the context
	assert.Empty(t, idx.Suggest("blue hair bl", SuggestOptions{}))
	assert.Empty(t, idx.Suggest(`"blue hair" bl`, SuggestOptions{}))
}

func TestSuggestTopKOrdering(t *testing.T) {
	idx := Build([]Entry{
		entry(1, "anna hanna", row(SourceCharacter, "Anna"), row(SourceKeyword, "Hanna")),
		entry(2, "anna hanna", row(SourceCharacter, "Anna"), row(SourceKeyword, "Hanna")),
		entry(3, "anna annabel joanna",
			row(SourceCharacter, "Anna"), row(SourceCreator, "Annabel"), row(SourceCreator, "Joanna")),
	}, Options{})

	// exact, then prefix, then substrings by frequency
	m := idx.Suggest("anna", SuggestOptions{Limit: 3})
	assert.Equal(t, []string{"Anna", "Annabel", "Hanna"}, terms(m))
	assert.Equal(t, 3, m[0].MatchedCount)

	all := idx.Suggest("anna", SuggestOptions{Limit: 10})
	assert.Equal(t, []string{"Anna", "Annabel", "Hanna", "Joanna"}, terms(all))
}

func TestSuggestLimitFromOptions(t *testing.T) {
	entries := []Entry{
		entry(1, "anna annabel joanna",
			row(SourceCharacter, "Anna"), row(SourceCreator, "Annabel"), row(SourceCreator, "Joanna")),
	}

	assert.Len(t, Build(entries, Options{SuggestLimit: 2}).Suggest("anna", SuggestOptions{}), 2)
	assert.Len(t, Build(entries, Options{}).Suggest("anna", SuggestOptions{}), 3)
	// a per-call limit wins
	assert.Len(t, Build(entries, Options{SuggestLimit: 2}).Suggest("anna", SuggestOptions{Limit: 3}), 3)
}

func TestSuggestDates(t *testing.T) {
	idx := Build([]Entry{
		entry(1, "date_y_2025 date_ym_2025_09", row(SourceDate, "2025-09")),
		entry(2, "date_y_2025 date_ym_2025_08", row(SourceDate, "2025-08")),
		entry(3, "date_y_2024 date_ym_2024_12", row(SourceDate, "2024-12")),
	}, Options{})

	// most recent first
	assert.Equal(t, []string{"2025-09", "2025-08", "2024-12"}, terms(idx.Suggest("20", SuggestOptions{})))
	// matched by value, not text
	assert.Equal(t, []string{"2025-09"}, terms(idx.Suggest("09/2025", SuggestOptions{})))
	assert.Equal(t, []string{"2025-09", "2025-08"}, terms(idx.Suggest("2025", SuggestOptions{})))
	assert.Equal(t, []Source{SourceDate}, idx.Suggest("2024", SuggestOptions{})[0].Sources)
}

func TestSuggestOrderIsStableAcrossBuilds(t *testing.T) {
	entries := func() []Entry {
		var out []Entry
		for id := uint32(1); id <= 2; id++ {
			out = append(out, entry(id, "date_y_2024 date_ym_2024_05 2024x",
				row(SourceDate, "2024"), row(SourceDate, "2024-05"), row(SourceKeyword, "2024x")))
		}
		return out
	}

	// exact first, then the dates of a rank ahead of other terms
	want := []string{"2024", "2024-05", "2024x"}
	for i := 0; i < 100; i++ {
		got := terms(Build(entries(), Options{}).Suggest("2024", SuggestOptions{}))
		require.Equal(t, want, got, "build %d", i)
	}
}

func TestRankedTermOrderIsTotal(t *testing.T) {
	date := func(raw string) *catalogueTerm {
		d, ok := ParseDate(raw)
		require.True(t, ok)
		return &catalogueTerm{Suggestion: Suggestion{Term: raw, Count: 1}, key: raw, isDate: true, date: d}
	}
	word := &catalogueTerm{Suggestion: Suggestion{Term: "w", Count: 1}, key: "w"}

	a := rankedTerm{term: date("2025"), rank: rankPrefix, matched: 1}
	b := rankedTerm{term: date("2024"), rank: rankPrefix, matched: 5}
	c := rankedTerm{term: word, rank: rankPrefix, matched: 3}

	all := []rankedTerm{a, b, c}
	for _, x := range all {
		assert.False(t, x.less(x))
		for _, y := range all {
			if x.less(y) {
				assert.False(t, y.less(x))
				for _, z := range all {
					if y.less(z) {
						assert.True(t, x.less(z))
					}
				}
			}
		}
	}
	assert.True(t, a.less(b))
	assert.True(t, b.less(c))
}

func TestSuggestClosedTokenReturnsNothing(t *testing.T) {
	idx := contextFixture()
	for _, raw := range []string{"", "azki ", "azki |", "azki !", `"azki"`, `azki "`} {
		assert.Nil(t, idx.Suggest(raw, SuggestOptions{}), raw)
	}
}

func TestCatalogueAggregation(t *testing.T) {
	idx := Build([]Entry{
		entry(1, "x", row(SourceKeyword, "Blue Hair")),
		entry(2, "x", row(SourceCharacter, "blue hair")),
		entry(3, "x", row(SourceKeyword, "red")),
	}, Options{})

	all := idx.Catalogue().Suggestions()
	require.Len(t, all, 2)
	assert.Equal(t, Suggestion{Term: "Blue Hair", Count: 2, Sources: []Source{SourceCharacter, SourceKeyword}}, all[0])
	assert.Equal(t, Suggestion{Term: "red", Count: 1, Sources: []Source{SourceKeyword}}, all[1])
}

func TestSourceLabels(t *testing.T) {
	for _, src := range []Source{SourceCharacter, SourceDate, SourceKeyword, SourceCreator} {
		parsed, ok := ParseSource(src.String())
		assert.True(t, ok)
		assert.Equal(t, src, parsed)
	}
	parsed, ok := ParseSource(" creator ")
	assert.True(t, ok)
	assert.Equal(t, SourceCreator, parsed)

	_, ok = ParseSource("Artist")
	assert.False(t, ok)
	assert.Equal(t, "Unknown", Source(42).String())
}

func TestSuggestCacheIsBounded(t *testing.T) {
	idx := Build([]Entry{entry(1, "alice", row(SourceCharacter, "Alice"))}, Options{CacheSize: 4})
	for i := 0; i < 20; i++ {
		idx.Suggest(fmt.Sprintf("x%d al", i), SuggestOptions{})
	}
	stats := idx.CacheStats()
	assert.LessOrEqual(t, stats.Suggestions, 4)
	assert.LessOrEqual(t, stats.Inputs, 4)
	assert.LessOrEqual(t, stats.Excluded, 4)
}

func BenchmarkSuggest(b *testing.B) {
	entries := make([]Entry, 0, 2000)
	for i := 0; i < 2000; i++ {
		entries = append(entries, entry(uint32(i+1),
			fmt.Sprintf("character%d creator%d", i%50, i%20),
			row(SourceCharacter, fmt.Sprintf("Character%d", i%50)),
			row(SourceCreator, fmt.Sprintf("Creator%d", i%20)),
		))
	}
	idx := Build(entries, Options{})
	inputs := []string{"char", "character1 cre", "character1 | cre", "!creator3", "acter"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.Suggest(inputs[i%len(inputs)], SuggestOptions{})
	}
}
