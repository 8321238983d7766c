package utils

import (
	"strconv"
	"strings"
)

// CreateRankList creates a slice of ranks based on position.
// The rank starts at 1 for the first item and increments for subsequent items.
// Useful for ranking items that are already sorted.
func CreateRankList(count int) []uint16 {
	if count <= 0 {
		return []uint16{}
	}
	ranks := make([]uint16, count)
	for i := 0; i < count; i++ {
		ranks[i] = uint16(i + 1)
	}
	return ranks
}

// FormatWithCommas renders n with thousands separators, e.g. 12345 -> "12,345".
func FormatWithCommas(n int) string {
	s := strconv.Itoa(n)
	sign := ""
	if n < 0 {
		sign, s = "-", s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return sign + s
}

// JoinIDs renders ids space separated, eliding the middle past max entries.
func JoinIDs(ids []uint32, max int) string {
	if len(ids) == 0 {
		return "-"
	}
	var parts []string
	if max > 0 && len(ids) > max {
		for _, id := range ids[:max] {
			parts = append(parts, strconv.FormatUint(uint64(id), 10))
		}
		parts = append(parts, "... (+"+strconv.Itoa(len(ids)-max)+")")
	} else {
		for _, id := range ids {
			parts = append(parts, strconv.FormatUint(uint64(id), 10))
		}
	}
	return strings.Join(parts, " ")
}
