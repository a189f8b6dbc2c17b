package jaillog

import (
	"context"
	"regexp"
	"strings"
	"time"

	"jaillog-backend/internal/bookings"
	"jaillog-backend/internal/telemetry"
	"jaillog-backend/lib/htmlutil"
	"jaillog-backend/lib/textutil"
	"jaillog-backend/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

const (
	report_table_extract = "table.extract"
)

const (
	chargesMarker = "JailViewCharges"
	holdsMarker   = "JailViewHolds"
)

var bookingNoRegex = regexp.MustCompile(`PCSO\d{2}JBN\d{6}`)

type labelField struct {
	label string
	field string
	date  bool
}

var infoLabels = []labelField{
	{label: "Booking No", field: bookings.FieldBookingNo},
	{label: "MniNo", field: bookings.FieldMniNo},
	{label: "Status", field: bookings.FieldStatus},
	{label: "Bond Amount", field: bookings.FieldBondAmount},
	{label: "Address Given", field: bookings.FieldAddressGiven},
	{label: "Booking Date", field: bookings.FieldBookingDate, date: true},
	{label: "Age On Booking Date", field: bookings.FieldAge},
	{label: "Release Date", field: bookings.FieldReleasedDate, date: true},
	{label: "Released Date", field: bookings.FieldReleasedDate, date: true},
}

// TableExtractor reads bookings out of the portal's structured info tables.
type TableExtractor struct {
	tel telemetry.API
}

func NewTableExtractor(tel telemetry.API) TableExtractor {
	return TableExtractor{tel: telemetry.NewScopedAPI("table", tel)}
}

func (TableExtractor) Name() string {
	return bookings.ProvenanceTable
}

func isChargesTable(n *html.Node) bool {
	if htmlutil.Attr(n, "id") == holdsMarker {
		return false
	}
	return htmlutil.Attr(n, "id") == chargesMarker || htmlutil.HasClass(n, chargesMarker)
}

func isHoldsTable(n *html.Node) bool {
	return htmlutil.Attr(n, "id") == holdsMarker
}

// InfoTables returns the tables that directly contain a "Booking No:" cell,
// charge tables are never info tables.
func InfoTables(doc *htmlutil.Document) []*html.Node {
	owners := map[*html.Node]bool{}
	labels := doc.TextNodes(func(s string) bool {
		return strings.Contains(strings.ToLower(s), "booking no:")
	})
	for _, text := range labels {
		owner := htmlutil.EnclosingTag(text, "table")
		if owner != nil {
			owners[owner] = true
		}
	}

	return doc.FindAll("table", func(n *html.Node) bool {
		return owners[n] && !htmlutil.HasClass(n, chargesMarker)
	})
}

func (e TableExtractor) Extract(ctx context.Context, doc *htmlutil.Document) []bookings.Raw {
	_, span := tracer.Start(ctx, "TableExtractor.Extract")
	defer span.End()

	tables := InfoTables(doc)
	isInfo := map[*html.Node]bool{}
	for _, t := range tables {
		isInfo[t] = true
	}
	stop := func(n *html.Node) bool {
		return isInfo[n]
	}

	var out []bookings.Raw
	for _, table := range tables {
		raw := e.extractInfo(doc, table)

		holds := doc.ScanAfter(table, "table", isHoldsTable, stop)
		if holds != nil {
			raw.Set(bookings.FieldHoldsText, holdsText(holds))
		}

		charges := doc.ScanAfter(table, "table", func(n *html.Node) bool {
			return isChargesTable(n)
		}, stop)
		if charges != nil {
			raw.Charges = ParseChargeTable(charges)
		}

		if raw.Get(bookings.FieldBookingNo) == "" {
			e.tel.ReportWarning(report_table_extract, "info table without booking number")
		}
		out = append(out, raw)
	}

	span.SetAttributes(
		attribute.Int("info_tables", len(tables)),
	)
	span.AddEvent("extracted", trace.WithAttributes(attribute.Int("bookings", len(out))))
	return out
}

// ownedCells returns the cells of table that are not inside a nested table.
func ownedCells(doc *htmlutil.Document, table *html.Node, selector string) []*html.Node {
	var out []*html.Node
	for _, cell := range doc.Select(table, selector) {
		if htmlutil.EnclosingTag(cell, "table") == table {
			out = append(out, cell)
		}
	}
	return out
}

func (e TableExtractor) extractInfo(doc *htmlutil.Document, table *html.Node) bookings.Raw {
	raw := bookings.NewRaw(bookings.ProvenanceTable)

	header, ok := e.header(doc, table)
	if ok {
		raw.Set(bookings.FieldName, header.Name)
		raw.Set(bookings.FieldRace, header.Race)
		raw.Set(bookings.FieldGender, header.Gender)
	}

	cells := ownedCells(doc, table, "td.InmateInfoGridTd")
	if len(cells) == 0 {
		cells = ownedCells(doc, table, "td")
	}
	for _, lf := range infoLabels {
		if raw.Fields[lf.field] != "" {
			continue
		}
		value := labelValue(cells, lf.label)
		if value == "" {
			continue
		}
		if lf.date {
			parsed, ok := timezone.ParseLocal(value)
			if !ok {
				e.tel.ReportDebug("unparseable date", lf.label, value)
				continue
			}
			value = parsed.Format(time.RFC3339)
		}
		raw.Set(lf.field, value)
	}

	text := htmlutil.TextOf(table, "\n")
	if raw.Fields[bookings.FieldBookingNo] == "" {
		raw.Set(bookings.FieldBookingNo, bookingNoRegex.FindString(text))
	}
	raw.Set(bookings.FieldRawCardText, text)
	return raw
}

// header parses the booking heading. A SearchHeader cell that is not in the
// "NAME (RACE/GENDER)" form still gives the name, with race and gender left
// empty.
func (e TableExtractor) header(doc *htmlutil.Document, table *html.Node) (Header, bool) {
	var unparsed string
	for _, cell := range doc.Select(table, "td.SearchHeader") {
		text := htmlutil.CleanText(cell)
		header, ok := ParseHeader(text)
		if ok {
			return header, true
		}
		if unparsed == "" {
			unparsed = text
		}
	}
	if unparsed != "" {
		e.tel.ReportDebug("unparsed header", unparsed)
		return Header{Name: unparsed}, true
	}
	for _, cell := range ownedCells(doc, table, "td, th") {
		header, ok := ParseHeader(htmlutil.CleanText(cell))
		if ok {
			return header, true
		}
	}
	return Header{}, false
}

// labelValue finds the first cell starting with label and returns its value:
// the text after the colon when the value shares the cell, otherwise the text
// of the next cell.
func labelValue(cells []*html.Node, label string) string {
	for _, cell := range cells {
		text := htmlutil.CleanText(cell)
		if !textutil.HasLabel(text, label) {
			continue
		}
		if value := textutil.AfterColon(text); value != "" {
			return value
		}
		return htmlutil.CleanText(htmlutil.SiblingAfter(cell, "td"))
	}
	return ""
}

func holdsText(table *html.Node) string {
	var parts []string
	for _, row := range ownedRows(table) {
		for _, cell := range rowCells(row) {
			if cell == "" || strings.EqualFold(cell, "HOLDS") {
				continue
			}
			parts = append(parts, cell)
		}
	}
	return strings.Join(parts, " ")
}
