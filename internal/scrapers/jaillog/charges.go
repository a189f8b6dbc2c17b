package jaillog

import (
	"regexp"
	"strings"

	"jaillog-backend/internal/bookings"
	"jaillog-backend/lib/htmlutil"

	"golang.org/x/net/html"
)

// charge table column layouts, keyed by minimum column count
var (
	expandedColumns = []string{"", bookings.FieldStatute, bookings.FieldCaseNumber, bookings.FieldCharge, bookings.FieldDegree, bookings.FieldLevel, bookings.FieldBond}
	plainColumns    = []string{bookings.FieldStatute, bookings.FieldCaseNumber, bookings.FieldCharge, bookings.FieldDegree, bookings.FieldLevel, bookings.FieldBond}
)

var caseAgencyRegex = regexp.MustCompile(`^(\S+)\s*\(([^)]+)\)$`)

// rowCells returns the text of the cells belonging directly to row.
func rowCells(row *html.Node) []string {
	var cells []string
	for _, cell := range htmlutil.Children(row, "") {
		if cell.Data != "td" && cell.Data != "th" {
			continue
		}
		cells = append(cells, htmlutil.CleanText(cell))
	}
	return cells
}

// ParseChargeRow maps the cells of one charge row by column count. ok is
// false for header rows, blank rows, rows with too few columns and rows
// without a charge description.
func ParseChargeRow(cells []string) (map[string]string, bool) {
	if len(cells) == 0 {
		return nil, false
	}
	for _, c := range cells {
		if strings.EqualFold(c, "STATUTE") {
			return nil, false
		}
	}

	var columns []string
	switch {
	case len(cells) >= len(expandedColumns):
		columns = expandedColumns
	case len(cells) >= len(plainColumns):
		columns = plainColumns
	default:
		return nil, false
	}

	charge := map[string]string{}
	for i, field := range columns {
		if field == "" || cells[i] == "" {
			continue
		}
		charge[field] = cells[i]
	}

	description := charge[bookings.FieldCharge]
	if description == "" || strings.EqualFold(description, "CHARGE") {
		return nil, false
	}

	groups := caseAgencyRegex.FindStringSubmatch(charge[bookings.FieldCaseNumber])
	if groups != nil {
		charge[bookings.FieldCaseNumber] = groups[1]
		charge[bookings.FieldAgency] = strings.TrimSpace(groups[2])
	}
	return charge, true
}

// ParseChargeTable parses every row owned by table (rows of nested tables are
// ignored) in row order.
func ParseChargeTable(table *html.Node) []map[string]string {
	var charges []map[string]string
	for _, row := range ownedRows(table) {
		charge, ok := ParseChargeRow(rowCells(row))
		if ok {
			charges = append(charges, charge)
		}
	}
	return charges
}

func ownedRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != html.ElementNode {
				continue
			}
			switch child.Data {
			case "table":
				continue
			case "tr":
				rows = append(rows, child)
			default:
				walk(child)
			}
		}
	}
	if table != nil {
		walk(table)
	}
	return rows
}
