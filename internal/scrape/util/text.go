package util

import "strings"

func CleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

func LooksLikeJunkTitle(t string) bool {
	l := strings.ToLower(t)
	return strings.Contains(l, "view") || strings.Contains(l, "apply")
}

// Snippet truncates free text to at most n runes for the stored description.
func Snippet(s string, n int) string {
	s = CleanText(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "…"
}
