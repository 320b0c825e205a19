// Package geo maps postal-code-level recruitment counts onto INSEE commune
// codes for choropleth mapping, and ranks competitor hospitals by patient
// volume. FINESS and postal/INSEE codes are identifiers: they stay zero-padded
// strings end to end and are never treated as numbers.
package geo

import (
	"strconv"
	"strings"
)

// ZeroPad normalizes an identifier to a fixed width: trims whitespace, strips
// a trailing ".0" left behind by numeric round-trips in upstream exports, and
// left-pads with zeros.
func ZeroPad(s string, width int) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0")
	for len(s) < width {
		s = "0" + s
	}
	return s
}

// ValidINSEE reports whether a value looks like an INSEE commune code:
// a 5-digit code in 01001-99999, or a Corsican code with a 2A/2B prefix.
func ValidINSEE(code string) bool {
	s := strings.ToUpper(strings.TrimSpace(code))
	if strings.HasPrefix(s, "2A") || strings.HasPrefix(s, "2B") {
		if len(s) == 5 {
			_, err := strconv.Atoi(s[2:])
			return err == nil
		}
		return false
	}
	if len(s) == 0 || len(s) > 5 {
		return false
	}
	if _, err := strconv.Atoi(s); err != nil {
		return false
	}
	n, _ := strconv.Atoi(ZeroPad(s, 5))
	return n >= 1001 && n <= 99999
}

// NormalizeINSEE uppercases Corsican prefixes and zero-pads to 5 characters.
func NormalizeINSEE(code string) string {
	s := strings.ToUpper(strings.TrimSpace(code))
	if strings.HasPrefix(s, "2A") || strings.HasPrefix(s, "2B") {
		return s
	}
	return ZeroPad(s, 5)
}
