// Package search is the query and suggestion engine: a strict whole-word index
// with a fuzzy fallback for boolean queries, and a ranked suggestion catalogue
// for the token currently being typed.
package search

// ISearcher is what the CLI and the IPC server need from an index.
type ISearcher interface {
	// MatchedEntryIDs returns the sorted IDs matching a raw query
	MatchedEntryIDs(raw string) []uint32

	// Suggest ranks suggestions for the token being typed at the end of raw
	Suggest(raw string, opts SuggestOptions) []Match

	// Len returns the number of indexed entries
	Len() int
}

var _ ISearcher = (*Index)(nil)
