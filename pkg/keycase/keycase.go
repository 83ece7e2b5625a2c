// Package keycase converts identifiers between underscored and camel-cased spellings.
package keycase

import (
	"strings"
	"unicode"
)

// Camelize converts an underscored identifier ("learning_outcome_id") into lower camel case
// ("learningOutcomeId"). Leading underscores are preserved.
func Camelize(s string) string {
	if s == "" {
		return s
	}

	leading := len(s) - len(strings.TrimLeft(s, "_"))
	var b strings.Builder
	b.Grow(len(s))
	b.WriteString(s[:leading])

	upperNext := false
	for _, r := range s[leading:] {
		if r == '_' {
			upperNext = true
			continue
		}
		if upperNext {
			b.WriteRune(unicode.ToUpper(r))
			upperNext = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Underscore converts a camel-cased identifier ("saveCommentsForLater") into its underscored
// spelling ("save_comments_for_later"). Input that is already underscored is returned unchanged.
func Underscore(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			prevUpper := i > 0 && unicode.IsUpper(runes[i-1])
			if i > 0 && runes[i-1] != '_' && (prevLower || (prevUpper && nextLower)) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
