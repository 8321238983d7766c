package search

import (
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/charmbracelet/log"
)

// Entry is one searchable record.
type Entry struct {
	ID uint32
	// SearchText is the lowercase haystack.
	SearchText string
	// SuggestionRows maps a normalized term to its source and display text.
	SuggestionRows map[string]SuggestionRow
}

// Options tunes an index build. Zero values fall back to defaults.
type Options struct {
	CacheSize      int
	FuzzyThreshold float64
	// SuggestLimit applies when a Suggest call gives no limit.
	SuggestLimit int
}

// Index answers queries and suggestions over a fixed entry set.
// It is immutable once built; rebuild it when entries change.
// All methods are safe for concurrent use.
type Index struct {
	entries   []Entry
	allIDs    *roaring.Bitmap
	strict    *strictIndex
	fuzzy     *fuzzyMatcher
	catalogue *Catalogue
	caches    *indexCaches
	limit     int
}

// Build indexes entries. Later duplicates of an ID are skipped.
func Build(entries []Entry, opts Options) *Index {
	kept := make([]Entry, 0, len(entries))
	allIDs := roaring.New()
	for _, e := range entries {
		if allIDs.Contains(e.ID) {
			log.Warnf("Skipping duplicate entry id %d", e.ID)
			continue
		}
		allIDs.Add(e.ID)
		e.SearchText = strings.ToLower(e.SearchText)
		kept = append(kept, e)
	}

	idx := &Index{
		entries:   kept,
		allIDs:    allIDs,
		strict:    newStrictIndex(kept),
		fuzzy:     newFuzzyMatcher(kept, opts.FuzzyThreshold),
		catalogue: newCatalogue(kept),
		caches:    newIndexCaches(opts.CacheSize),
		limit:     opts.SuggestLimit,
	}
	if idx.limit <= 0 {
		idx.limit = DefaultSuggestLimit
	}
	log.Debugf("Index built: %d entries, %d suggestion terms", len(kept), idx.catalogue.Len())
	return idx
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Entries returns the indexed entries in build order.
func (idx *Index) Entries() []Entry {
	return idx.entries
}

// AllIDs returns the universe. The bitmap is shared and must not be modified.
func (idx *Index) AllIDs() *roaring.Bitmap {
	return idx.allIDs
}

// Catalogue returns the suggestion catalogue.
func (idx *Index) Catalogue() *Catalogue {
	return idx.catalogue
}

// CacheStats reports cache occupancy.
func (idx *Index) CacheStats() CacheStats {
	return idx.caches.stats()
}

// ParseQuery is the cached form of the package-level ParseQuery.
func (idx *Index) ParseQuery(raw string) Query {
	if q, ok := idx.caches.queries.Get(raw); ok {
		return q
	}
	q := ParseQuery(raw)
	idx.caches.queries.Add(raw, q)
	return q
}

// ParseSuggestionInput is the cached form of the package-level ParseSuggestionInput.
func (idx *Index) ParseSuggestionInput(raw string) SuggestionInput {
	if in, ok := idx.caches.inputs.Get(raw); ok {
		return in
	}
	in := ParseSuggestionInput(raw)
	idx.caches.inputs.Add(raw, in)
	return in
}

// StrictMatches returns the entries containing term as a whole word.
// The bitmap is shared and must not be modified.
func (idx *Index) StrictMatches(term string) *roaring.Bitmap {
	if bm, ok := idx.caches.strict.Get(term); ok {
		return bm
	}
	bm := idx.strict.lookup(term)
	idx.caches.strict.Add(term, bm)
	return bm
}

// MatchedIDs evaluates a raw query. An empty query matches every entry.
// The bitmap is shared and must not be modified.
func (idx *Index) MatchedIDs(raw string) *roaring.Bitmap {
	if Normalize(raw) == "" {
		return idx.allIDs
	}

	q := idx.ParseQuery(raw)
	key := q.Normalized
	if q.Empty() {
		key = "\x00" + Normalize(raw)
	}
	if bm, ok := idx.caches.matched.Get(key); ok {
		return bm
	}

	var result *roaring.Bitmap
	if strict := idx.evaluateStrict(q); strict != nil && !strict.IsEmpty() {
		result = strict
	} else {
		result = idx.evaluateFuzzy(q, raw)
	}

	idx.caches.matched.Add(key, result)
	return result
}

// MatchedEntryIDs is MatchedIDs as a sorted slice.
func (idx *Index) MatchedEntryIDs(raw string) []uint32 {
	return idx.MatchedIDs(raw).ToArray()
}

// evaluateStrict unions the AND-groups of q using whole-word matches.
// nil means the query had no terms to evaluate.
func (idx *Index) evaluateStrict(q Query) *roaring.Bitmap {
	if q.Empty() {
		return nil
	}
	result := roaring.New()
	for _, group := range q.Groups {
		var acc *roaring.Bitmap
		for _, c := range group {
			m := idx.StrictMatches(c.Term)
			switch {
			case acc == nil && c.Negated:
				acc = roaring.AndNot(idx.allIDs, m)
			case acc == nil:
				acc = m.Clone()
			case c.Negated:
				acc.AndNot(m)
			default:
				acc.And(m)
			}
			if acc.IsEmpty() {
				break
			}
		}
		if acc != nil {
			result.Or(acc)
		}
	}
	return result
}

// evaluateFuzzy runs the fallback. A query with no usable structure degrades
// to an AND of its bare words.
func (idx *Index) evaluateFuzzy(q Query, raw string) *roaring.Bitmap {
	groups := q.Groups
	if len(groups) == 0 {
		groups = fallbackGroups(raw)
	}
	return idx.fuzzy.search(groups)
}

func fallbackGroups(raw string) [][]Clause {
	var group []Clause
	for _, word := range strings.Fields(Normalize(raw)) {
		word = strings.Trim(word, `"|!`)
		if word == "" {
			continue
		}
		group = append(group, Clause{Term: CanonicalizeTerm(word)})
	}
	if len(group) == 0 {
		return nil
	}
	return [][]Clause{group}
}

// SuggestOptions overrides per-call suggestion behaviour.
type SuggestOptions struct {
	Limit int
}

// Suggest returns ranked suggestions for the token being typed at the end of raw.
// An OR-joined token is scored against every entry; otherwise against the
// entries the context already matches.
func (idx *Index) Suggest(raw string, opts SuggestOptions) []Match {
	in := idx.ParseSuggestionInput(raw)
	if in.Query == "" || idx.catalogue.Len() == 0 {
		return nil
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = idx.limit
	}

	key := suggestKey{
		query:      in.Query,
		context:    in.Context,
		negated:    in.Negated,
		joinedByOr: in.JoinedByOr,
		limit:      limit,
	}
	if cached, ok := idx.caches.suggestions.Get(key); ok {
		return cached
	}

	var contextIDs *roaring.Bitmap
	if !in.JoinedByOr && !idx.ParseQuery(in.Context).Empty() {
		contextIDs = idx.MatchedIDs(in.Context)
	}

	matches := idx.catalogue.Filter(FilterOptions{
		Query:        in.Query,
		Context:      in.Context,
		ContextIDs:   contextIDs,
		UniverseSize: idx.Len(),
		Negated:      in.Negated,
		Excluded:     idx.excludedTerms(in.Context),
		Limit:        limit,
	})
	idx.caches.suggestions.Add(key, matches)
	return matches
}

func (idx *Index) excludedTerms(context string) map[string]struct{} {
	if context == "" {
		return nil
	}
	if terms, ok := idx.caches.excluded.Get(context); ok {
		return terms
	}
	terms := contextTerms(context)
	idx.caches.excluded.Add(context, terms)
	return terms
}
