// Package naming normalizes identifiers so keyword tables written in
// snake_case match camelCase and PascalCase sources too.
package naming

import (
	"strings"
	"unicode"
)

// SnakeCase converts an identifier to lower snake_case.
// "IsInitialized" becomes "is_initialized", "HTTPServer" becomes
// "http_server" and "already_snake" is returned lower-cased.
func SnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prev != '_' && (unicode.IsLower(prev) || unicode.IsDigit(prev) ||
				(unicode.IsUpper(prev) && nextLower)) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// HasAnyPrefix reports whether s starts with one of prefixes.
func HasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// HasAnySuffix reports whether s ends with one of suffixes.
func HasAnySuffix(s string, suffixes []string) bool {
	for _, p := range suffixes {
		if strings.HasSuffix(s, p) {
			return true
		}
	}
	return false
}

// ContainsAny reports whether s contains one of substrs.
func ContainsAny(s string, substrs []string) bool {
	for _, p := range substrs {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
