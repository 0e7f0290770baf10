package api

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeTextStripsControlChars(t *testing.T) {
	out := SanitizeText("hello\x00world\x07", 100)
	require.Equal(t, "helloworld", out)
}

func TestSanitizeTextKeepsWhitespace(t *testing.T) {
	out := SanitizeText("line one\nline\ttwo", 100)
	require.Equal(t, "line one\nline\ttwo", out)
}

func TestSanitizeTextEscapesHTML(t *testing.T) {
	out := SanitizeText(`<script>alert("x")</script>`, 500)
	require.NotContains(t, out, "<script>")
	require.Contains(t, out, "&lt;script&gt;")
}

func TestSanitizeTextTrimsAndTruncates(t *testing.T) {
	require.Equal(t, "abc", SanitizeText("  abc  ", 100))

	long := strings.Repeat("x", 600)
	require.Equal(t, 500, len([]rune(SanitizeText(long, 500))))
}

func TestSanitizeTextTruncatesByRunes(t *testing.T) {
	out := SanitizeText("héllo wörld", 5)
	require.Equal(t, "héllo", out)
}
