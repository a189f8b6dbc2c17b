package jaillog

import (
	"strings"
	"testing"

	"jaillog-backend/internal/bookings"
	"jaillog-backend/lib/htmlutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseChargeRow(t *testing.T) {
	battery := map[string]string{
		bookings.FieldStatute:    "784.03",
		bookings.FieldCaseNumber: "24CF001234",
		bookings.FieldAgency:     "PCSO",
		bookings.FieldCharge:     "BATTERY",
		bookings.FieldDegree:     "F",
		bookings.FieldLevel:      "3",
		bookings.FieldBond:       "$500.00",
	}

	cases := []struct {
		name   string
		cells  []string
		ok     bool
		expect map[string]string
	}{
		{
			name:   "seven columns",
			cells:  []string{"+", "784.03", "24CF001234 (PCSO)", "BATTERY", "F", "3", "$500.00"},
			ok:     true,
			expect: battery,
		},
		{
			name:   "seven columns with blank expander",
			cells:  []string{"", "784.03", "24CF001234 (PCSO)", "BATTERY", "F", "3", "$500.00"},
			ok:     true,
			expect: battery,
		},
		{
			name:   "six columns",
			cells:  []string{"784.03", "24CF001234 (PCSO)", "BATTERY", "F", "3", "$500.00"},
			ok:     true,
			expect: battery,
		},
		{
			name:  "case without agency",
			cells: []string{"322.34", "24CT0001", "DWLS", "", "M", ""},
			ok:    true,
			expect: map[string]string{
				bookings.FieldStatute:    "322.34",
				bookings.FieldCaseNumber: "24CT0001",
				bookings.FieldCharge:     "DWLS",
				bookings.FieldLevel:      "M",
			},
		},
		{name: "header", cells: []string{"", "STATUTE", "CASE", "CHARGE", "DEG", "LVL", "BOND"}},
		{name: "placeholder", cells: []string{"893.147", "24CF005556", "CHARGE", "", "", ""}},
		{name: "empty charge", cells: []string{"893.147", "24CF005556", "", "", "", ""}},
		{name: "too short", cells: []string{"322.34", "24CT0001", "DWLS"}},
		{name: "blank", cells: nil},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			charge, ok := ParseChargeRow(test.cells)
			require.Equal(t, test.ok, ok)
			if diff := cmp.Diff(test.expect, charge); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestParseChargeTableSkipsNestedRows(t *testing.T) {
	doc, err := htmlutil.ParseString(`<table id="JailViewCharges">
		<tr><td>784.03</td><td>24CF001234 (PCSO)</td><td>BATTERY</td><td>F</td><td>3</td><td>$500.00</td></tr>
		<tr><td colspan="6"><table><tr><td>1</td><td>2</td><td>NESTED</td><td>4</td><td>5</td><td>6</td></tr></table></td></tr>
	</table>`)
	require.NoError(t, err)

	charges := ParseChargeTable(doc.Elements("table")[0])
	require.Len(t, charges, 1)
	require.Equal(t, "BATTERY", charges[0][bookings.FieldCharge])
}

func TestParseChargeLine(t *testing.T) {
	cases := []struct {
		line   string
		ok     bool
		expect map[string]string
	}{
		{
			line: "784.03 24CF001234 (PCSO) BATTERY F 3",
			ok:   true,
			expect: map[string]string{
				bookings.FieldStatute:    "784.03",
				bookings.FieldCaseNumber: "24CF001234",
				bookings.FieldAgency:     "PCSO",
				bookings.FieldCharge:     "BATTERY",
				bookings.FieldDegree:     "F",
				bookings.FieldLevel:      "3",
			},
		},
		{
			line: "316.193 24CT000999 (FHP) DUI T M $500.00",
			ok:   true,
			expect: map[string]string{
				bookings.FieldStatute:    "316.193",
				bookings.FieldCaseNumber: "24CT000999",
				bookings.FieldAgency:     "FHP",
				bookings.FieldCharge:     "DUI",
				bookings.FieldDegree:     "T",
				bookings.FieldLevel:      "M",
				bookings.FieldBond:       "$500.00",
			},
		},
		{
			line: "893.13.1a 24CF005555 (LPD) TRAFFICKING NO BOND",
			ok:   true,
			expect: map[string]string{
				bookings.FieldStatute:    "893.13.1a",
				bookings.FieldCaseNumber: "24CF005555",
				bookings.FieldAgency:     "LPD",
				bookings.FieldCharge:     "TRAFFICKING",
				bookings.FieldBond:       "NO BOND",
			},
		},
		{line: "Booking Date: 01/05/2024 2:15 PM"},
		{line: "784.03 24CF001234 BATTERY"},
	}

	for _, test := range cases {
		t.Run(test.line, func(t *testing.T) {
			charge, ok := ParseChargeLine(strings.TrimSpace(test.line))
			require.Equal(t, test.ok, ok)
			if diff := cmp.Diff(test.expect, charge); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}
