package util

import (
	"html"
	"strings"
	"unicode"
)

// EscapeXML escapes a value for use as XML character data.
func EscapeXML(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

// DigitsOnly strips every non-digit character.
func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// IsDigits reports whether s is non-empty and made only of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// RedactKey keeps the routing hint of "<hint>-<opaque>" values and masks the rest.
func RedactKey(s string) string {
	hint, _, found := strings.Cut(s, "-")
	if found && IsDigits(hint) {
		return hint + "-***"
	}
	if s == "" {
		return ""
	}
	return "***"
}

// IsSafeKey reports whether s can be used verbatim as a storage key or path segment.
func IsSafeKey(s string) bool {
	if s == "" || len(s) > 256 {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_') {
			return false
		}
	}
	return true
}
