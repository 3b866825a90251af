package llmutils

import (
	"regexp"
	"strings"
)

var reThink = regexp.MustCompile(`(?s)<think>.*?</think>`)

// userMarker precedes model overrun: some backends keep generating the
// next simulated user turn after the assistant reply. Everything from the
// marker on is cut from the visible narrative.
const userMarker = "<|user|>"

// Truncate shortens a string to at most n characters, adding "..." if it was truncated.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// StripThink removes <think>…</think> blocks that some models embed.
func StripThink(s string) string {
	return reThink.ReplaceAllString(s, "")
}

// CutOverrun drops everything from the first <|user|> marker onward.
func CutOverrun(s string) string {
	if i := strings.Index(s, userMarker); i >= 0 {
		return s[:i]
	}
	return s
}

// StringOrDefault returns s if it's not empty, or def if s is empty.
func StringOrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
