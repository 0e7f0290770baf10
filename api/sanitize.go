package api

import (
	"html"
	"strings"
	"unicode/utf8"
)

// SanitizeText normalizes user-supplied free text before it enters the
// engine: trims whitespace, strips control characters, HTML-escapes, and
// truncates to maxLen runes.
func SanitizeText(s string, maxLen int) string {
	s = strings.TrimSpace(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' || r >= 0x20 {
			b.WriteRune(r)
		}
	}
	s = html.EscapeString(b.String())

	if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
		runes := []rune(s)
		s = string(runes[:maxLen])
	}
	return s
}
