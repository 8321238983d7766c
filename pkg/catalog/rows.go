package catalog

import (
	"sort"
	"strings"

	"github.com/bastiangx/gallerysearch/pkg/search"
	"github.com/charmbracelet/log"
)

var rowTermCleaner = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

// FormatSuggestionRows writes rows as newline separated "Source\tTerm" lines,
// ordered by source priority then term.
func FormatSuggestionRows(rows map[string]search.SuggestionRow) string {
	list := make([]search.SuggestionRow, 0, len(rows))
	for _, r := range rows {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Source != list[j].Source {
			return list[i].Source < list[j].Source
		}
		return list[i].Term < list[j].Term
	})

	var b strings.Builder
	for i, r := range list {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(r.Source.String())
		b.WriteByte('\t')
		b.WriteString(rowTermCleaner.Replace(r.Term))
	}
	return b.String()
}

// ParseSuggestionRows reads a blob written by FormatSuggestionRows.
// Malformed lines and unknown sources are skipped. A term repeated under
// another source keeps the last one.
func ParseSuggestionRows(blob string) map[string]search.SuggestionRow {
	rows := make(map[string]search.SuggestionRow)
	for _, line := range strings.Split(blob, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		label, term, ok := strings.Cut(line, "\t")
		if !ok {
			log.Debugf("Skipping suggestion row without a tab: %q", line)
			continue
		}
		src, ok := search.ParseSource(label)
		if !ok {
			log.Debugf("Skipping suggestion row with unknown source %q", label)
			continue
		}
		term = strings.TrimSpace(term)
		key := search.Normalize(term)
		if key == "" {
			continue
		}
		rows[key] = search.SuggestionRow{Source: src, Term: term}
	}
	return rows
}
