package gateway

import (
	"strings"
	"unicode/utf8"
)

// MinQueryLength is the shortest query sent to either provider.
const MinQueryLength = 2

// IsValidQuery reports whether city is worth a network call: at least two
// characters after trimming and not made only of digits.
func IsValidQuery(city string) bool {
	trimmed := strings.TrimSpace(city)
	if utf8.RuneCountInString(trimmed) < MinQueryLength {
		return false
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return true
		}
	}
	return false
}
