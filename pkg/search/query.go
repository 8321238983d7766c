package search

import (
	"strings"
	"unicode"
)

// TokenKind tells terms apart from structural operators.
type TokenKind int

const (
	TokenTerm TokenKind = iota
	TokenOr
)

// Token is one lexical unit of a raw query.
type Token struct {
	Kind    TokenKind
	Text    string
	Negated bool
	Quoted  bool
}

// Clause is a normalized term inside an AND-group.
type Clause struct {
	Term    string
	Negated bool
	Quoted  bool
}

// Query is a compiled query: a union of AND-groups.
// Normalized is the canonical string form, used as a cache key.
type Query struct {
	Groups     [][]Clause
	Normalized string
}

// Empty reports whether the query has no clauses.
func (q Query) Empty() bool {
	return len(q.Groups) == 0
}

// SuggestionInput describes what the user is currently typing.
type SuggestionInput struct {
	// Query is the in-progress token, empty when the last token is closed.
	Query string
	// Context is everything typed before the in-progress token.
	Context    string
	Negated    bool
	JoinedByOr bool
}

func isQuerySpace(r rune) bool {
	return unicode.IsSpace(r)
}

// Tokenize splits a raw query into terms and OR markers.
// Quoted phrases stay whole, an unterminated quote runs to the end of input,
// and a leading ! negates the following term.
func Tokenize(raw string) []Token {
	rs := []rune(raw)
	n := len(rs)
	tokens := make([]Token, 0, 4)
	negate := false

	for i := 0; i < n; {
		r := rs[i]
		switch {
		case isQuerySpace(r):
			// a lone ! followed by space negates nothing
			negate = false
			i++
		case r == '|':
			tokens = append(tokens, Token{Kind: TokenOr, Text: "|"})
			negate = false
			i++
		case r == '!':
			negate = true
			i++
		case r == '"':
			j := i + 1
			for j < n && rs[j] != '"' {
				j++
			}
			text := string(rs[i+1 : j])
			if strings.TrimSpace(text) != "" {
				tokens = append(tokens, Token{Kind: TokenTerm, Text: text, Negated: negate, Quoted: true})
			}
			negate = false
			i = j + 1
		default:
			j := i
			for j < n && !isQuerySpace(rs[j]) && rs[j] != '|' && rs[j] != '"' {
				j++
			}
			tokens = append(tokens, Token{Kind: TokenTerm, Text: string(rs[i:j]), Negated: negate})
			negate = false
			i = j
		}
	}
	return tokens
}

// ParseQuery compiles a raw query into OR-separated AND-groups.
// Terms are normalized and date-like terms are rewritten to canonical tokens.
func ParseQuery(raw string) Query {
	var groups [][]Clause
	var current []Clause

	for _, tok := range Tokenize(raw) {
		if tok.Kind == TokenOr {
			if len(current) > 0 {
				groups = append(groups, current)
				current = nil
			}
			continue
		}
		term := Normalize(tok.Text)
		if term == "" {
			continue
		}
		current = append(current, Clause{
			Term:    CanonicalizeTerm(term),
			Negated: tok.Negated,
			Quoted:  tok.Quoted,
		})
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}

	return Query{Groups: groups, Normalized: formatGroups(groups)}
}

func formatGroups(groups [][]Clause) string {
	var b strings.Builder
	for gi, group := range groups {
		if gi > 0 {
			b.WriteString(" | ")
		}
		for ci, c := range group {
			if ci > 0 {
				b.WriteByte(' ')
			}
			if c.Negated {
				b.WriteByte('!')
			}
			if c.Quoted {
				b.WriteByte('"')
				b.WriteString(c.Term)
				b.WriteByte('"')
			} else {
				b.WriteString(c.Term)
			}
		}
	}
	return b.String()
}

// normalizeQuoteBoundaries inserts a space after a closing quote that is
// directly followed by text, so the next token does not fuse into the phrase.
func normalizeQuoteBoundaries(s string) string {
	if !strings.ContainsRune(s, '"') {
		return s
	}
	rs := []rune(s)
	out := make([]rune, 0, len(rs)+2)
	inQuote := false
	for i, r := range rs {
		out = append(out, r)
		if r != '"' {
			continue
		}
		if !inQuote {
			inQuote = true
			continue
		}
		inQuote = false
		if i+1 < len(rs) && !isQuerySpace(rs[i+1]) && rs[i+1] != '|' {
			out = append(out, ' ')
		}
	}
	return string(out)
}

// ParseSuggestionInput extracts the in-progress token and its context from a
// possibly half-typed query.
func ParseSuggestionInput(raw string) SuggestionInput {
	rs := []rune(normalizeQuoteBoundaries(raw))

	start := -1
	inQuote := false
	for i, r := range rs {
		if inQuote {
			if r == '"' {
				inQuote = false
			}
			continue
		}
		if isQuerySpace(r) || r == '|' {
			start = -1
			continue
		}
		if start < 0 {
			start = i
		}
		if r == '"' {
			inQuote = true
		}
	}

	if start < 0 {
		return newSuggestionInput("", string(rs), false)
	}

	if inQuote {
		q := start
		for i := len(rs) - 1; i >= start; i-- {
			if rs[i] == '"' {
				q = i
				break
			}
		}
		prefixStart := q
		negated := false
		for prefixStart > start && rs[prefixStart-1] == '!' {
			prefixStart--
			negated = true
		}
		content := string(rs[q+1:])
		if strings.TrimSpace(content) == "" {
			return newSuggestionInput("", string(rs[:prefixStart]), negated)
		}
		return newSuggestionInput(strings.TrimLeftFunc(content, unicode.IsSpace), string(rs[:prefixStart]), negated)
	}

	last := rs[len(rs)-1]
	if last == '!' || last == '"' {
		// the token is either bare negation or a closed phrase
		return newSuggestionInput("", string(rs), false)
	}

	p := start
	negated := false
	for p < len(rs) && rs[p] == '!' {
		p++
		negated = true
	}
	return newSuggestionInput(string(rs[p:]), string(rs[:start]), negated)
}

func newSuggestionInput(query, context string, negated bool) SuggestionInput {
	context = strings.TrimSpace(context)
	return SuggestionInput{
		Query:      query,
		Context:    context,
		Negated:    negated && query != "",
		JoinedByOr: query != "" && strings.HasSuffix(context, "|"),
	}
}

// contextTerms returns the match tokens a context query already mentions:
// every term and quoted phrase plus every run of adjacent unquoted words.
func contextTerms(context string) map[string]struct{} {
	terms := make(map[string]struct{})
	var run []string

	flush := func() {
		for i := 0; i < len(run); i++ {
			joined := run[i]
			for j := i + 1; j < len(run); j++ {
				joined += run[j]
				terms[joined] = struct{}{}
			}
		}
		run = run[:0]
	}

	for _, tok := range Tokenize(context) {
		if tok.Kind == TokenOr {
			flush()
			continue
		}
		token := NormalizeSuggestionMatchToken(tok.Text)
		if token == "" {
			continue
		}
		terms[token] = struct{}{}
		if tok.Quoted || tok.Negated {
			flush()
			continue
		}
		run = append(run, token)
	}
	flush()
	return terms
}
