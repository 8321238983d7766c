package search

import (
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// DefaultSuggestLimit is the number of suggestions returned when no limit is given.
const DefaultSuggestLimit = 8

// Source tells where a suggestion term came from.
// The numeric order is also the display priority.
type Source int

const (
	SourceCharacter Source = iota
	SourceDate
	SourceKeyword
	SourceCreator
)

var sourceNames = map[Source]string{
	SourceCharacter: "Character",
	SourceDate:      "Date",
	SourceKeyword:   "Keyword",
	SourceCreator:   "Creator",
}

func (s Source) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return "Unknown"
}

// ParseSource maps a source label such as "Creator" back to its Source.
func ParseSource(label string) (Source, bool) {
	for src, name := range sourceNames {
		if strings.EqualFold(name, strings.TrimSpace(label)) {
			return src, true
		}
	}
	return 0, false
}

// SuggestionRow is one suggestion-bearing term of an entry.
type SuggestionRow struct {
	Source Source
	Term   string
}

// Suggestion is a term aggregated over every entry.
type Suggestion struct {
	Term    string
	Count   int
	Sources []Source
}

// Match is a ranked suggestion for the token being typed.
// MatchedCount is scoped to the current context, and inverted for negated tokens.
type Match struct {
	Term         string
	Sources      []Source
	MatchedCount int
	GlobalCount  int
}

type catalogueTerm struct {
	Suggestion
	key        string
	matchToken string
	matchRunes []rune
	wildcard   bool
	isDate     bool
	date       DateKey
	carriers   *roaring.Bitmap
}

func (t *catalogueTerm) addSource(src Source) {
	for _, s := range t.Sources {
		if s == src {
			return
		}
	}
	t.Sources = append(t.Sources, src)
}

// Catalogue is the deduplicated set of suggestion terms of an index.
// Non-wildcard terms are reachable through a trie holding every suffix of
// their match token, so one subtree visit yields exact, prefix and substring hits.
type Catalogue struct {
	terms     []*catalogueTerm
	suffixes  *patricia.Trie
	wildcards []*catalogueTerm
	dates     []*catalogueTerm
}

func newCatalogue(entries []Entry) *Catalogue {
	byKey := make(map[string]*catalogueTerm)
	var terms []*catalogueTerm

	for _, e := range entries {
		for key, row := range e.SuggestionRows {
			k := Normalize(key)
			if k == "" {
				k = Normalize(row.Term)
			}
			if k == "" {
				continue
			}
			t, ok := byKey[k]
			if !ok {
				display := strings.TrimSpace(row.Term)
				if display == "" {
					display = k
				}
				t = &catalogueTerm{
					Suggestion: Suggestion{Term: display},
					key:        k,
					carriers:   roaring.New(),
				}
				byKey[k] = t
				terms = append(terms, t)
			}
			if !t.carriers.Contains(e.ID) {
				t.carriers.Add(e.ID)
				t.Count++
			}
			t.addSource(row.Source)
		}
	}

	c := &Catalogue{
		suffixes: patricia.NewTrie(),
	}
	for _, t := range terms {
		sort.Slice(t.Sources, func(i, j int) bool { return t.Sources[i] < t.Sources[j] })
		t.matchToken = NormalizeSuggestionMatchToken(t.key)
		t.matchRunes = []rune(t.matchToken)
		t.wildcard = strings.ContainsRune(t.matchToken, '*')
		for _, s := range t.Sources {
			if s == SourceDate {
				t.isDate = true
				t.date, _ = ParseDate(t.key)
				c.dates = append(c.dates, t)
				break
			}
		}
		if t.matchToken == "" {
			continue
		}
		if t.wildcard {
			c.wildcards = append(c.wildcards, t)
			continue
		}
		c.insertSuffixes(t)
	}

	sort.SliceStable(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].key < terms[j].key
	})
	c.terms = terms

	log.Debugf("Suggestion catalogue built: %d terms, %d wildcard", len(terms), len(c.wildcards))
	return c
}

func (c *Catalogue) insertSuffixes(t *catalogueTerm) {
	for i := range t.matchToken {
		suffix := patricia.Prefix(t.matchToken[i:])
		var list []*catalogueTerm
		if existing := c.suffixes.Get(suffix); existing != nil {
			list = existing.([]*catalogueTerm)
		}
		c.suffixes.Set(suffix, append(list, t))
	}
}

// Len returns the number of distinct terms.
func (c *Catalogue) Len() int {
	return len(c.terms)
}

// Suggestions lists every term, most frequent first.
func (c *Catalogue) Suggestions() []Suggestion {
	out := make([]Suggestion, len(c.terms))
	for i, t := range c.terms {
		out[i] = Suggestion{
			Term:    t.Term,
			Count:   t.Count,
			Sources: append([]Source(nil), t.Sources...),
		}
	}
	return out
}

const (
	rankExact = iota
	rankPrefix
	rankSubstring
)

// candidates returns every term matching token with its rank.
func (c *Catalogue) candidates(token string, typedDate DateKey, typedIsDate bool) map[*catalogueTerm]int {
	found := make(map[*catalogueTerm]int)
	keep := func(t *catalogueTerm, rank int) {
		if prev, ok := found[t]; !ok || rank < prev {
			found[t] = rank
		}
	}

	err := c.suffixes.VisitSubtree(patricia.Prefix(token), func(_ patricia.Prefix, item patricia.Item) error {
		for _, t := range item.([]*catalogueTerm) {
			switch {
			case t.matchToken == token:
				keep(t, rankExact)
			case strings.HasPrefix(t.matchToken, token):
				keep(t, rankPrefix)
			default:
				keep(t, rankSubstring)
			}
		}
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting suggestion trie: %v", err)
	}

	tokenRunes := []rune(token)
	for _, t := range c.wildcards {
		if rank, ok := wildcardRank(t.matchRunes, tokenRunes); ok {
			keep(t, rank)
		}
	}

	// 09/2025 never shares a substring with 2025-09, so compare dates by value too
	if typedIsDate {
		for _, t := range c.dates {
			if t.date.Year != typedDate.Year || t.date.Year == 0 {
				continue
			}
			switch {
			case t.date.Month == typedDate.Month:
				keep(t, rankExact)
			case !typedDate.HasMonth():
				keep(t, rankPrefix)
			}
		}
	}
	return found
}

// wildcardRank matches a pattern whose * stands for any single character.
func wildcardRank(pattern, token []rune) (int, bool) {
	if len(token) == 0 || len(token) > len(pattern) {
		return 0, false
	}
	if matchAt(pattern, token, 0) {
		if len(token) == len(pattern) {
			return rankExact, true
		}
		return rankPrefix, true
	}
	for off := 1; off+len(token) <= len(pattern); off++ {
		if matchAt(pattern, token, off) {
			return rankSubstring, true
		}
	}
	return 0, false
}

func matchAt(pattern, token []rune, off int) bool {
	for i, r := range token {
		pr := pattern[off+i]
		if pr != '*' && pr != r {
			return false
		}
	}
	return true
}

// FilterOptions is the input of Catalogue.Filter.
type FilterOptions struct {
	// Query is the in-progress token as typed.
	Query string
	// Context is the query text before the token. Only used to compute
	// Excluded when that is nil.
	Context string
	// ContextIDs are the entries matched by the context; nil means the universe.
	ContextIDs   *roaring.Bitmap
	UniverseSize int
	Negated      bool
	Excluded     map[string]struct{}
	Limit        int
}

type rankedTerm struct {
	term    *catalogueTerm
	rank    int
	matched int
	display int
}

// less is a total order: rank first, then within a rank the dates as a block
// ahead of other terms, most recent first.
func (a rankedTerm) less(b rankedTerm) bool {
	if a.rank != b.rank {
		return a.rank < b.rank
	}
	if a.term.isDate != b.term.isDate {
		return a.term.isDate
	}
	if a.term.isDate && a.term.date.Ordinal() != b.term.date.Ordinal() {
		return a.term.date.Ordinal() > b.term.date.Ordinal()
	}
	if a.matched != b.matched {
		return a.matched > b.matched
	}
	if a.term.Count != b.term.Count {
		return a.term.Count > b.term.Count
	}
	if a.term.key != b.term.key {
		return a.term.key < b.term.key
	}
	return a.term.Term < b.term.Term
}

// Filter ranks the catalogue against the token being typed.
func (c *Catalogue) Filter(opts FilterOptions) []Match {
	token := NormalizeSuggestionMatchToken(opts.Query)
	if token == "" || len(c.terms) == 0 {
		return nil
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}

	allowDates := IsDateShaped(token)
	var typedDate DateKey
	typedIsDate := false
	if allowDates {
		typedDate, typedIsDate = ParseDate(Normalize(opts.Query))
	}

	excluded := opts.Excluded
	if excluded == nil && opts.Context != "" {
		excluded = contextTerms(opts.Context)
	}

	universe := opts.UniverseSize
	trivial := opts.ContextIDs == nil || int(opts.ContextIDs.GetCardinality()) >= universe
	contextSize := universe
	if !trivial {
		contextSize = int(opts.ContextIDs.GetCardinality())
	}

	top := make([]rankedTerm, 0, limit)
	for t, rank := range c.candidates(token, typedDate, typedIsDate) {
		if t.isDate && !allowDates {
			continue
		}
		if _, skip := excluded[t.matchToken]; skip {
			continue
		}

		matched := t.Count
		if !trivial {
			matched = int(t.carriers.AndCardinality(opts.ContextIDs))
			if matched == 0 {
				continue
			}
		}
		display := matched
		if opts.Negated {
			display = contextSize - matched
		}

		top = insertTopK(top, rankedTerm{term: t, rank: rank, matched: matched, display: display}, limit)
	}

	out := make([]Match, len(top))
	for i, r := range top {
		out[i] = Match{
			Term:         r.term.Term,
			Sources:      append([]Source(nil), r.term.Sources...),
			MatchedCount: r.display,
			GlobalCount:  r.term.Count,
		}
	}
	return out
}

// insertTopK keeps top sorted and at most limit long.
func insertTopK(top []rankedTerm, cand rankedTerm, limit int) []rankedTerm {
	pos := sort.Search(len(top), func(i int) bool { return cand.less(top[i]) })
	if len(top) == limit {
		if pos >= limit {
			return top
		}
		top = top[:limit-1]
	}
	top = append(top, rankedTerm{})
	copy(top[pos+1:], top[pos:])
	top[pos] = cand
	return top
}
