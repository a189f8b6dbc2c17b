package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeLabel lowercases a label and strips all whitespace and colons, so
// "Booking  No:" and "BookingNo" compare equal.
func NormalizeLabel(label string) string {
	label = strings.ToLower(label)
	label = whitespaceRegex.ReplaceAllString(label, "")
	return strings.ReplaceAll(label, ":", "")
}

// HasLabel reports whether cell text starts with the given label.
func HasLabel(text, label string) bool {
	return strings.HasPrefix(NormalizeLabel(text), NormalizeLabel(label))
}

// CollapseSpace trims s and collapses inner whitespace runs to a single space.
func CollapseSpace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// AfterColon returns the trimmed text after the first colon, or "" if there
// is none.
func AfterColon(s string) string {
	_, after, found := strings.Cut(s, ":")
	if !found {
		return ""
	}
	return strings.TrimSpace(after)
}
