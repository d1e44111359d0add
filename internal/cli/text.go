package cli

import "strings"

// minEllipsizeLen leaves room for at least one character plus "...".
const minEllipsizeLen = 4

// Ellipsize collapses a string to a single line and truncates it to maxLen
// runes, appending "..." when it was cut. Event subjects can contain
// newlines and arbitrary padding; tables and log lines want neither.
func Ellipsize(s string, maxLen int) string {
	if maxLen < minEllipsizeLen {
		maxLen = minEllipsizeLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
