package catalog

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type commissionFile struct {
	Commissions []commissionRecord `toml:"commission"`
}

// commissionRecord accepts keywords and aliases either as arrays or as one
// free-form string.
type commissionRecord struct {
	Commission
	KeywordText string `toml:"keyword_text"`
	AliasText   string `toml:"alias_text"`
}

// LoadCommissionsTOML reads [[commission]] tables from a TOML file.
//
//	[[commission]]
//	id = 1
//	character = "Alice"
//	creator = "AZKi"
//	date = "20250914"
//	keyword_text = "blue hair, 猫耳"
func LoadCommissionsTOML(path string) ([]Commission, error) {
	var f commissionFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("reading commissions from %s: %w", path, err)
	}

	out := make([]Commission, 0, len(f.Commissions))
	for _, r := range f.Commissions {
		c := r.Commission
		if r.KeywordText != "" {
			c.Keywords = append(c.Keywords, SplitKeywords(r.KeywordText)...)
		}
		if r.AliasText != "" {
			c.CreatorAliases = append(c.CreatorAliases, SplitKeywords(r.AliasText)...)
		}
		c.Keywords = dedupe(c.Keywords)
		c.CreatorAliases = dedupe(c.CreatorAliases)
		c.Date = strings.TrimSpace(c.Date)
		out = append(out, c)
	}
	return out, nil
}

func dedupe(list []string) []string {
	if len(list) == 0 {
		return list
	}
	return SplitKeywords(strings.Join(list, "\n"))
}
