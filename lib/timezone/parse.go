package timezone

import (
	"regexp"
	"strings"
	"time"
)

// localLayouts are the literal shapes the portal prints, most specific first.
var localLayouts = []string{
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04",
	"1/2/2006",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04:05",
}

var (
	spaceRun       = regexp.MustCompile(`\s+`)
	meridiemSuffix = regexp.MustCompile(`(\d)(AM|PM)$`)
)

// ParseLocal parses a date literal written in Location and returns it as a
// UTC instant. Layouts are tried in order and the first successful parse wins.
// ok is false when no layout matches.
func ParseLocal(literal string) (t time.Time, ok bool) {
	literal = strings.ToUpper(strings.TrimSpace(literal))
	literal = spaceRun.ReplaceAllString(literal, " ")
	literal = meridiemSuffix.ReplaceAllString(literal, "$1 $2")
	if literal == "" {
		return time.Time{}, false
	}

	for _, layout := range localLayouts {
		parsed, err := time.ParseInLocation(layout, literal, Location)
		if err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseInstant accepts either an RFC 3339 timestamp or anything ParseLocal
// accepts.
func ParseInstant(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return parsed.UTC(), true
	}
	return ParseLocal(s)
}
