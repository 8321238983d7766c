/*
Package catalog supplies the search index with commission records.

Commissions live in a SQLite table. Each one is projected into a
search.Entry: a lowercase haystack of every searchable field and the
suggestion rows (Character, Creator, Keyword, Date) that feed autocomplete.
A Holder keeps the current index and swaps in a fresh one on Rebuild, and a
Watcher triggers that rebuild when the database file changes.
*/
package catalog

import (
	"fmt"
	"strings"

	"github.com/bastiangx/gallerysearch/internal/utils"
	"github.com/bastiangx/gallerysearch/pkg/search"
)

// Commission is one gallery record.
type Commission struct {
	ID             uint32   `toml:"id"`
	Character      string   `toml:"character"`
	Creator        string   `toml:"creator"`
	CreatorAliases []string `toml:"creator_aliases"`
	// Date is compact YYYYMMDD or any partial form ParseDate accepts.
	Date        string   `toml:"date"`
	FileName    string   `toml:"file_name"`
	Design      string   `toml:"design"`
	Description string   `toml:"description"`
	Keywords    []string `toml:"keywords"`
}

var keywordSeparators = strings.NewReplacer(
	";", ",",
	"\n", ",",
	"\r", ",",
	"、", ",",
	"，", ",",
	"；", ",",
)

// SplitKeywords splits a free-form keyword list on commas, semicolons,
// newlines and their CJK counterparts. Blank and repeated entries are dropped.
func SplitKeywords(s string) []string {
	parts := strings.Split(keywordSeparators.Replace(s), ",")
	out := make([]string, 0, len(parts))
	filter := utils.NewSeenFilter(search.Normalize)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || !filter.ShouldInclude(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Project flattens a commission into its searchable form.
func Project(c Commission) search.Entry {
	var parts []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}

	add(c.Character)
	add(c.Creator)
	for _, a := range c.CreatorAliases {
		add(a)
	}
	for _, tok := range search.DateTokens(strings.TrimSpace(c.Date)) {
		add(tok)
	}
	add(c.FileName)
	add(c.Design)
	add(c.Description)
	for _, k := range c.Keywords {
		add(k)
	}

	rows := make(map[string]search.SuggestionRow)
	put := func(src search.Source, term string) {
		term = strings.TrimSpace(term)
		key := search.Normalize(term)
		if key == "" {
			return
		}
		rows[key] = search.SuggestionRow{Source: src, Term: term}
	}

	put(search.SourceCharacter, c.Character)
	put(search.SourceCreator, c.Creator)
	for _, a := range c.CreatorAliases {
		put(search.SourceCreator, a)
	}
	for _, k := range c.Keywords {
		put(search.SourceKeyword, k)
	}
	if key, ok := search.ParseDate(strings.TrimSpace(c.Date)); ok {
		put(search.SourceDate, fmt.Sprintf("%04d", key.Year))
		if key.HasMonth() {
			put(search.SourceDate, fmt.Sprintf("%04d-%02d", key.Year, key.Month))
		}
	}

	return search.Entry{
		ID:             c.ID,
		SearchText:     strings.ToLower(strings.Join(parts, " ")),
		SuggestionRows: rows,
	}
}
