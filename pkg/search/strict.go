package search

import (
	"regexp"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/charmbracelet/log"
)

var (
	indexTokenPattern = regexp.MustCompile(`[a-z0-9_]+`)
	indexTokenShape   = regexp.MustCompile(`^[a-z0-9_]+$`)
)

// strictIndex maps whole-word tokens to the entries containing them.
type strictIndex struct {
	postings map[string]*roaring.Bitmap
	texts    []entryText
}

type entryText struct {
	id   uint32
	text string
}

func newStrictIndex(entries []Entry) *strictIndex {
	idx := &strictIndex{
		postings: make(map[string]*roaring.Bitmap),
		texts:    make([]entryText, 0, len(entries)),
	}

	for _, e := range entries {
		idx.texts = append(idx.texts, entryText{id: e.ID, text: e.SearchText})
		for _, tok := range indexTokenPattern.FindAllString(e.SearchText, -1) {
			bm, ok := idx.postings[tok]
			if !ok {
				bm = roaring.New()
				idx.postings[tok] = bm
			}
			bm.Add(e.ID)
		}
	}

	for _, bm := range idx.postings {
		bm.RunOptimize()
	}
	log.Debugf("Strict index built: %d tokens over %d entries", len(idx.postings), len(entries))
	return idx
}

// lookup returns the entries containing term as a whole word.
// The returned bitmap is shared and must not be modified.
func (s *strictIndex) lookup(term string) *roaring.Bitmap {
	if term == "" {
		return roaring.New()
	}
	if indexTokenShape.MatchString(term) {
		if bm, ok := s.postings[term]; ok {
			return bm
		}
		// every index-shaped word was indexed, so a miss is a definite miss
		return roaring.New()
	}
	return s.scan(term)
}

// scan is the whole-word regex fallback for terms with punctuation, spaces or
// non-ASCII text. The term is always escaped before it enters the pattern.
func (s *strictIndex) scan(term string) *roaring.Bitmap {
	result := roaring.New()
	re, err := regexp.Compile(`(?:^|[^a-z0-9_])` + regexp.QuoteMeta(term) + `(?:$|[^a-z0-9_])`)
	if err != nil {
		log.Errorf("Compiling whole-word pattern for %q: %v", term, err)
		return result
	}
	for _, et := range s.texts {
		if re.MatchString(et.text) {
			result.Add(et.id)
		}
	}
	return result
}

func (s *strictIndex) tokenCount() int {
	return len(s.postings)
}
