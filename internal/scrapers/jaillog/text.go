package jaillog

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"jaillog-backend/internal/bookings"
	"jaillog-backend/internal/telemetry"
	"jaillog-backend/lib/htmlutil"
	"jaillog-backend/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/net/html"
)

const (
	report_text_window = "text.window"
)

const (
	ancestorDepth = 7
	windowBefore  = 2000
	windowAfter   = 2500
	nearDistance  = 400
	minBlockSize  = 20
)

var (
	containerTags  = map[string]bool{"tr": true, "div": true, "td": true, "table": true}
	fieldMarkers   = []string{"Booking Date", "Booking Dt", "Status:", "MniNo"}
	dateMarkers    = []string{"Booking Date", "Booking Dt"}
	nextBookingNo  = regexp.MustCompile(`(?i)Booking No:\s*PCSO`)
	mniRegex       = regexp.MustCompile(`PCSO\d{2}MNI\d{6}`)
	statusRegex    = regexp.MustCompile(`(?i)Status:\s*(In Jail|Released)`)
	ageRegex       = regexp.MustCompile(`(?i)Age On Booking Date:\s*(\d+)`)
	bondRegex      = regexp.MustCompile(`(?i)Bond Amount:[ \t]*\n?[ \t]*([^\n]+)`)
	addressRegex   = regexp.MustCompile(`(?i)Address Given:[ \t]*\n?[ \t]*([^\n]+)`)
	holdsLineRegex = regexp.MustCompile(`(?i)HOLDS\s+([^\n]+)`)
	chargeRegex    = regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?[a-z]?)\s+([^\s]+)\s+\(([^)]+)\)\s+([A-Z][^0-9]+)`)
	degreeRegex    = regexp.MustCompile(`\b([TFSN])\s+([FM]|\d)\b`)
	chargeBond     = regexp.MustCompile(`\$\d+(?:\.\d{2})?|NO BOND`)
)

const (
	dateLiteral = `(\d{1,2}/\d{1,2}/\d{4})`
	timeLiteral = `(\d{1,2}:\d{2}(?::\d{2})?\s*(?:AM|PM)?)`
)

// datePatterns are tried in order, each label with a time of day before the
// same label without one.
var datePatterns = func() []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, label := range []string{"Booking Date", "Booking Dt", "Booked"} {
		out = append(out,
			regexp.MustCompile(`(?i)`+label+`[^0-9]*`+dateLiteral+`\s+`+timeLiteral),
			regexp.MustCompile(`(?i)`+label+`[^0-9]*`+dateLiteral),
		)
	}
	return out
}()

// TextExtractor recovers bookings from the flattened page text around each
// booking number. It is best-effort: charges in particular are matched with a
// single heuristic per line and may be under-extracted.
type TextExtractor struct {
	tel telemetry.API
}

func NewTextExtractor(tel telemetry.API) TextExtractor {
	return TextExtractor{tel: telemetry.NewScopedAPI("text", tel)}
}

func (TextExtractor) Name() string {
	return bookings.ProvenanceText
}

// bookingNumbers returns the unique booking numbers in order of first
// appearance.
func bookingNumbers(text string) []string {
	seen := map[string]bool{}
	var out []string
	for _, no := range bookingNoRegex.FindAllString(text, -1) {
		if seen[no] {
			continue
		}
		seen[no] = true
		out = append(out, no)
	}
	return out
}

func (e TextExtractor) Extract(ctx context.Context, doc *htmlutil.Document) []bookings.Raw {
	_, span := tracer.Start(ctx, "TextExtractor.Extract")
	defer span.End()

	page := doc.Text("\n")
	numbers := bookingNumbers(page)
	span.SetAttributes(attribute.Int("booking_numbers", len(numbers)))

	out := make([]bookings.Raw, 0, len(numbers))
	for _, no := range numbers {
		window := e.window(doc, page, no)
		out = append(out, extractWindow(page, no, window))
	}
	return out
}

// window resolves the text block describing one booking number. In order:
// the nearest container holding booking fields, a fixed character window
// around the number, the block up to the next booking number. The last one
// is only taken when it has a booking date and the earlier block does not.
func (e TextExtractor) window(doc *htmlutil.Document, page, no string) string {
	block := containerText(doc, no)
	if block == "" || block == no || utf8.RuneCountInString(block) < minBlockSize {
		block = pageWindow(page, no)
	}
	if !containsAny(block, dateMarkers) {
		delimited := delimitedBlock(page, no)
		if containsAny(delimited, dateMarkers) {
			e.tel.ReportDebug(report_text_window, no, "delimited")
			block = delimited
		}
	}
	return block
}

// containsAny reports whether s contains one of markers, ignoring case.
func containsAny(s string, markers []string) bool {
	s = strings.ToLower(s)
	for _, m := range markers {
		if strings.Contains(s, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

func containerText(doc *htmlutil.Document, no string) string {
	occurrences := doc.TextNodes(func(s string) bool {
		return strings.Contains(s, no)
	})
	for _, node := range occurrences {
		parent := node.Parent
		for depth := 0; depth < ancestorDepth && parent != nil; depth++ {
			if parent.Type == html.ElementNode && containerTags[parent.Data] {
				text := htmlutil.TextOf(parent, "\n")
				if containsAny(text, fieldMarkers) {
					return text
				}
			}
			parent = parent.Parent
		}
	}
	return ""
}

// pageWindow cuts a fixed window around the first occurrence of no, the
// bounds are moved onto rune boundaries.
func pageWindow(page, no string) string {
	idx := strings.Index(page, no)
	if idx < 0 {
		return ""
	}
	start := max(0, idx-windowBefore)
	for start > 0 && !utf8.RuneStart(page[start]) {
		start--
	}
	end := min(len(page), idx+windowAfter)
	for end < len(page) && !utf8.RuneStart(page[end]) {
		end++
	}
	return page[start:end]
}

func delimitedBlock(page, no string) string {
	anchor := regexp.MustCompile(`(?i)Booking No:\s*` + regexp.QuoteMeta(no))
	loc := anchor.FindStringIndex(page)
	if loc == nil {
		return ""
	}
	rest := page[loc[1]:]
	next := nextBookingNo.FindStringIndex(rest)
	if next == nil {
		return page[loc[0]:]
	}
	return page[loc[0] : loc[1]+next[0]]
}

func parseDateMatch(groups []string) (time.Time, bool) {
	literal := groups[1]
	if len(groups) > 2 && groups[2] != "" {
		literal += " " + groups[2]
	}
	return timezone.ParseLocal(literal)
}

func findBookingDate(window string) (time.Time, bool) {
	for _, pattern := range datePatterns {
		groups := pattern.FindStringSubmatch(window)
		if groups == nil {
			continue
		}
		parsed, ok := parseDateMatch(groups)
		if ok {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// findNearBookingDate looks for a booking date printed within a short
// distance of "Booking No: <no>" anywhere on the page, on either side.
func findNearBookingDate(page, no string) (time.Time, bool) {
	quoted := regexp.QuoteMeta(no)
	date := `Booking Date[^0-9]*` + dateLiteral + `(?:\s+` + timeLiteral + `)?`
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`(?i)Booking No:\s*` + quoted + `[\s\S]{0,400}?` + date),
		regexp.MustCompile(`(?i)` + date + `[\s\S]{0,400}?Booking No:\s*` + quoted),
	}
	for _, pattern := range patterns {
		groups := pattern.FindStringSubmatch(page)
		if groups == nil {
			continue
		}
		parsed, ok := parseDateMatch(groups)
		if ok {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func firstGroup(re *regexp.Regexp, s string) string {
	groups := re.FindStringSubmatch(s)
	if groups == nil {
		return ""
	}
	return strings.TrimSpace(groups[1])
}

// labelledLine is firstGroup for "Label: value" lines, a value that is itself
// a label means the field was blank.
func labelledLine(re *regexp.Regexp, s string) string {
	value := firstGroup(re, s)
	if strings.HasSuffix(value, ":") {
		return ""
	}
	return value
}

// status spells a matched status the way the portal's tables do.
func status(matched string) string {
	switch {
	case strings.EqualFold(matched, "in jail"):
		return "In Jail"
	case strings.EqualFold(matched, "released"):
		return "Released"
	}
	return matched
}

func extractWindow(page, no, window string) bookings.Raw {
	raw := bookings.NewRaw(bookings.ProvenanceText)
	raw.Set(bookings.FieldBookingNo, no)

	header, ok := findHeader(window)
	if ok {
		raw.Set(bookings.FieldName, header.Name)
		raw.Set(bookings.FieldRace, header.Race)
		raw.Set(bookings.FieldGender, header.Gender)
	}

	raw.Set(bookings.FieldMniNo, mniRegex.FindString(window))
	raw.Set(bookings.FieldStatus, status(firstGroup(statusRegex, window)))

	bookingDate, ok := findBookingDate(window)
	if !ok {
		bookingDate, ok = findNearBookingDate(page, no)
	}
	if ok {
		raw.Set(bookings.FieldBookingDate, bookingDate.Format(time.RFC3339))
	}

	raw.Set(bookings.FieldAge, firstGroup(ageRegex, window))
	raw.Set(bookings.FieldBondAmount, labelledLine(bondRegex, window))
	raw.Set(bookings.FieldAddressGiven, labelledLine(addressRegex, window))
	raw.Set(bookings.FieldHoldsText, firstGroup(holdsLineRegex, window))
	raw.Set(bookings.FieldRawCardText, window)

	for _, line := range strings.Split(window, "\n") {
		charge, ok := ParseChargeLine(line)
		if ok {
			raw.Charges = append(raw.Charges, charge)
		}
	}
	return raw
}

// ParseChargeLine matches "statute case (agency) DESCRIPTION [degree level]
// [bond]" on a single line of free text. The description ends where the
// degree/level pair or the bond begins.
func ParseChargeLine(line string) (map[string]string, bool) {
	loc := chargeRegex.FindStringSubmatchIndex(line)
	if loc == nil {
		return nil, false
	}
	group := func(i int) string {
		return strings.TrimSpace(line[loc[2*i]:loc[2*i+1]])
	}

	charge := map[string]string{
		bookings.FieldStatute:    group(1),
		bookings.FieldCaseNumber: group(2),
		bookings.FieldAgency:     group(3),
	}

	tail := line[loc[8]:]
	cutoff := loc[9] - loc[8]

	degrees := degreeRegex.FindAllStringSubmatchIndex(tail, -1)
	if len(degrees) > 0 {
		last := degrees[len(degrees)-1]
		charge[bookings.FieldDegree] = tail[last[2]:last[3]]
		charge[bookings.FieldLevel] = tail[last[4]:last[5]]
		cutoff = min(cutoff, last[0])
	}
	if bond := chargeBond.FindStringIndex(tail); bond != nil {
		charge[bookings.FieldBond] = tail[bond[0]:bond[1]]
		cutoff = min(cutoff, bond[0])
	}

	description := strings.TrimSpace(tail[:cutoff])
	if description == "" {
		return nil, false
	}
	charge[bookings.FieldCharge] = description
	return charge, true
}
