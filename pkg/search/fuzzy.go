package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// DefaultFuzzyThreshold is the share of a term's characters that may be edited
// and still count as a match.
const DefaultFuzzyThreshold = 0.33

// fuzzyMatcher is the approximate fallback over entry search text.
// It understands the same extended syntax as the strict path: groups separated
// by | are alternatives, !term excludes, "phrase" must appear verbatim.
type fuzzyMatcher struct {
	threshold float64
	docs      []fuzzyDoc
}

type fuzzyDoc struct {
	id    uint32
	text  string
	words []string
}

func newFuzzyMatcher(entries []Entry, threshold float64) *fuzzyMatcher {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultFuzzyThreshold
	}
	fm := &fuzzyMatcher{
		threshold: threshold,
		docs:      make([]fuzzyDoc, 0, len(entries)),
	}
	for _, e := range entries {
		fm.docs = append(fm.docs, fuzzyDoc{
			id:    e.ID,
			text:  e.SearchText,
			words: splitWords(e.SearchText),
		})
	}
	return fm
}

// splitWords breaks text on anything that is not a letter, digit, underscore or *.
func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '*'
	})
}

// search returns every entry satisfying at least one group.
func (fm *fuzzyMatcher) search(groups [][]Clause) *roaring.Bitmap {
	result := roaring.New()
	if len(groups) == 0 {
		return result
	}
	for i := range fm.docs {
		doc := &fm.docs[i]
		for _, group := range groups {
			if fm.matchesGroup(doc, group) {
				result.Add(doc.id)
				break
			}
		}
	}
	return result
}

func (fm *fuzzyMatcher) matchesGroup(doc *fuzzyDoc, group []Clause) bool {
	for _, c := range group {
		var ok bool
		switch {
		case c.Negated:
			ok = !strings.Contains(doc.text, c.Term)
		case c.Quoted:
			ok = strings.Contains(doc.text, c.Term)
		default:
			ok = fm.approxContains(doc, c.Term)
		}
		if !ok {
			return false
		}
	}
	return true
}

// approxContains accepts a substring hit, or a word (or word prefix) within
// the edit budget of the term.
func (fm *fuzzyMatcher) approxContains(doc *fuzzyDoc, term string) bool {
	if strings.Contains(doc.text, term) {
		return true
	}
	termLen := utf8.RuneCountInString(term)
	maxEdits := int(fm.threshold * float64(termLen))
	if maxEdits == 0 {
		return false
	}

	for _, w := range doc.words {
		wordLen := utf8.RuneCountInString(w)
		if abs(wordLen-termLen) <= maxEdits && fuzzy.LevenshteinDistance(term, w) <= maxEdits {
			return true
		}
		if wordLen > termLen {
			prefix := string([]rune(w)[:termLen])
			if fuzzy.LevenshteinDistance(term, prefix) <= maxEdits {
				return true
			}
		}
	}
	return false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
