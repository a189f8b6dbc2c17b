package jaillog

import (
	"regexp"
	"strings"

	"jaillog-backend/lib/textutil"
)

// Header is the composite "NAME (RACE/GENDER)" heading of a booking.
type Header struct {
	Name   string
	Race   string
	Gender string
}

var (
	headerRegex = regexp.MustCompile(`(?i)^(.*?)\s+\(([BW])/?\s*(MALE|FEMALE|M|F)\s*\)`)
	// used on free text, where the heading is not at the start of the input
	looseHeaderRegex = regexp.MustCompile(`([A-Z][A-Z\s,]+?)\s+\(([BW])/?\s*(MALE|FEMALE|M|F)\b`)
)

func gender(code string) string {
	if strings.HasPrefix(strings.ToUpper(code), "M") {
		return "Male"
	}
	return "Female"
}

// ParseHeader parses a heading anchored at the start of text.
func ParseHeader(text string) (Header, bool) {
	groups := headerRegex.FindStringSubmatch(textutil.CollapseSpace(text))
	if groups == nil {
		return Header{}, false
	}
	return Header{
		Name:   strings.TrimSpace(groups[1]),
		Race:   strings.ToUpper(groups[2]),
		Gender: gender(groups[3]),
	}, true
}

// findHeader finds the first heading anywhere in text. Only the last line of
// the name is kept since the match may start on a preceding line.
func findHeader(text string) (Header, bool) {
	groups := looseHeaderRegex.FindStringSubmatch(text)
	if groups == nil {
		return Header{}, false
	}
	lines := strings.Split(strings.TrimSpace(groups[1]), "\n")
	name := textutil.CollapseSpace(lines[len(lines)-1])
	if name == "" {
		return Header{}, false
	}
	return Header{
		Name:   name,
		Race:   groups[2],
		Gender: gender(groups[3]),
	}, true
}
