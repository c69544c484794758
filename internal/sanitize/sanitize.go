// Package sanitize cleans user-supplied identifiers before they reach the
// network library or are echoed back through the MCP server.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxNameLength is the maximum allowed length for network names.
const MaxNameLength = 64

var (
	// reRepeatedSeparators matches runs of two or more name separators.
	reRepeatedSeparators = regexp.MustCompile(`([-_.])[-_.]+`)
)

// SanitizeName keeps only [a-zA-Z0-9-_.], maps spaces to hyphens, collapses
// repeated separators and enforces MaxNameLength. Leading and trailing
// separators are dropped. It returns "" when nothing usable remains.
func SanitizeName(input string) string {
	input = strings.TrimSpace(stripControlChars(input))
	if input == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		case r == ' ' || r == '\t':
			b.WriteRune('-')
		}
	}

	s := reRepeatedSeparators.ReplaceAllString(b.String(), "$1")
	s = strings.Trim(s, "-_.")

	if len(s) > MaxNameLength {
		s = strings.TrimRight(s[:MaxNameLength], "-_.")
	}
	return s
}

// stripControlChars removes ASCII control characters (0x00-0x1F, 0x7F).
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
