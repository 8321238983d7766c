package search

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const (
	dateYearPrefix      = "date_y_"
	dateYearMonthPrefix = "date_ym_"

	minDateYear = 1900
	maxDateYear = 2999
)

var (
	compactDatePattern = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
	isoDatePattern     = regexp.MustCompile(`^(\d{4})([-/])(\d{1,2})(?:[-/](\d{1,2}))?$`)
	monthYearPattern   = regexp.MustCompile(`^(\d{1,2})/(\d{4})$`)
	bareYearPattern    = regexp.MustCompile(`^(\d{4})$`)
)

// quoteRunes are stripped from suggestion match tokens.
var quoteRunes = map[rune]bool{
	'"': true, '\'': true, '“': true, '”': true, '‘': true, '’': true,
}

// Normalize trims and lowercases s.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeSuggestionMatchToken normalizes a term and drops whitespace and quotes,
// so "Blue Hair" and bluehair compare equal.
func NormalizeSuggestionMatchToken(term string) string {
	normalized := Normalize(term)
	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		if unicode.IsSpace(r) || quoteRunes[r] {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DateKey is a parsed calendar position. Month is 0 when only the year is known.
type DateKey struct {
	Year  int
	Month int
}

// HasMonth reports whether the key carries a month.
func (d DateKey) HasMonth() bool {
	return d.Month > 0
}

// Ordinal gives a sortable number, later dates are larger.
func (d DateKey) Ordinal() int {
	return d.Year*100 + d.Month
}

// YearToken returns the canonical year token, e.g. date_y_2025.
func (d DateKey) YearToken() string {
	return fmt.Sprintf("%s%04d", dateYearPrefix, d.Year)
}

// YearMonthToken returns the canonical year-month token, e.g. date_ym_2025_09.
// Empty when the key has no month.
func (d DateKey) YearMonthToken() string {
	if !d.HasMonth() {
		return ""
	}
	return fmt.Sprintf("%s%04d_%02d", dateYearMonthPrefix, d.Year, d.Month)
}

// Tokens returns every canonical token for the key, year first.
func (d DateKey) Tokens() []string {
	if d.HasMonth() {
		return []string{d.YearToken(), d.YearMonthToken()}
	}
	return []string{d.YearToken()}
}

// CanonicalToken returns the most specific canonical token.
func (d DateKey) CanonicalToken() string {
	if d.HasMonth() {
		return d.YearMonthToken()
	}
	return d.YearToken()
}

// ParseDate recognizes YYYYMMDD, YYYY-MM[-DD], YYYY/MM[/DD], MM/YYYY and YYYY.
// Out-of-range months and days are rejected.
func ParseDate(s string) (DateKey, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DateKey{}, false
	}

	var year, month, day string
	if m := compactDatePattern.FindStringSubmatch(s); m != nil {
		year, month, day = m[1], m[2], m[3]
	} else if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		year, month, day = m[1], m[3], m[4]
	} else if m := monthYearPattern.FindStringSubmatch(s); m != nil {
		year, month = m[2], m[1]
	} else if m := bareYearPattern.FindStringSubmatch(s); m != nil {
		year = m[1]
	} else {
		return DateKey{}, false
	}

	y, _ := strconv.Atoi(year)
	if y < minDateYear || y > maxDateYear {
		return DateKey{}, false
	}
	key := DateKey{Year: y}

	if month != "" {
		mo, _ := strconv.Atoi(month)
		if mo < 1 || mo > 12 {
			return DateKey{}, false
		}
		key.Month = mo
	}
	if day != "" {
		d, _ := strconv.Atoi(day)
		if d < 1 || d > 31 {
			return DateKey{}, false
		}
	}
	return key, true
}

// CanonicalizeTerm rewrites a date-like term to its canonical token and
// returns every other term unchanged.
func CanonicalizeTerm(term string) string {
	if key, ok := ParseDate(term); ok {
		return key.CanonicalToken()
	}
	return term
}

// DateTokens returns the canonical tokens for a raw date string, or nil.
func DateTokens(raw string) []string {
	key, ok := ParseDate(raw)
	if !ok {
		return nil
	}
	return key.Tokens()
}

// IsDateShaped reports whether s holds only digits and . - / separators.
func IsDateShaped(s string) bool {
	if s == "" {
		return false
	}
	hasDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == '.' || r == '-' || r == '/':
		default:
			return false
		}
	}
	return hasDigit
}
