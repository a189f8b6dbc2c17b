package bookings

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func TestNormalize(t *testing.T) {
	bookingDate := time.Date(2024, time.January, 2, 15, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		raw    Raw
		policy Policy
		expect Outcome
	}{
		{
			name: "snake case",
			raw: Raw{
				Provenance: ProvenanceTable,
				Fields: map[string]string{
					FieldBookingNo:   "PCSO24JBN000123",
					FieldName:        "DOE, JOHN",
					FieldRace:        "W",
					FieldGender:      "Male",
					FieldStatus:      "In Jail",
					FieldBookingDate: "2024-01-02T15:00:00Z",
					FieldAge:         "34",
					FieldBondAmount:  "$500.00",
				},
				Charges: []map[string]string{
					{FieldStatute: "784.03", FieldCaseNumber: "24CF001234", FieldCharge: "BATTERY", FieldDegree: "F", FieldLevel: "3"},
					{FieldStatute: "999.99"},
				},
			},
			policy: Policy{SkipIncomplete: true, PhotoBaseURL: "https://portal/ViewImage.aspx?bookno="},
			expect: Outcome{Booking: Booking{
				BookingNo:        "PCSO24JBN000123",
				Name:             "DOE, JOHN",
				Race:             "W",
				Gender:           "Male",
				Status:           "In Jail",
				BookingDate:      &bookingDate,
				AgeOnBookingDate: ptr(34),
				BondAmount:       "$500.00",
				PhotoURL:         "https://portal/ViewImage.aspx?bookno=PCSO24JBN000123",
				Provenance:       ProvenanceTable,
				Charges: []Charge{
					{Statute: "784.03", CaseNumber: "24CF001234", Charge: "BATTERY", Degree: "F", Level: "3"},
				},
			}},
		},
		{
			name: "camel case and aliases",
			raw: Raw{Fields: map[string]string{
				"bookingNo":    "pcso24jbn000124",
				"mniNo":        "PCSO24MNI000001",
				FieldName:      "ROE, JANE",
				"booked_at":    "01/02/2024 10:00 AM",
				"age":          "29 years",
				"bond":         "NO BOND",
				"addressGiven": "123 MAIN ST",
				"holds":        "FDLE WARRANT",
				"releasedDate": "01/03/2024",
			}},
			policy: Policy{SkipIncomplete: true},
			expect: Outcome{Booking: Booking{
				BookingNo:        "PCSO24JBN000124",
				MniNo:            "PCSO24MNI000001",
				Name:             "ROE, JANE",
				BookingDate:      &bookingDate,
				AgeOnBookingDate: ptr(29),
				BondAmount:       "NO BOND",
				AddressGiven:     "123 MAIN ST",
				HoldsText:        "FDLE WARRANT",
				ReleasedDate:     ptr(time.Date(2024, time.January, 3, 5, 0, 0, 0, time.UTC)),
			}},
		},
		{
			name:   "missing booking no is always skipped",
			raw:    Raw{Fields: map[string]string{FieldName: "DOE, JOHN"}},
			policy: Policy{},
			expect: Outcome{
				Booking: Booking{Name: "DOE, JOHN"},
				Skip:    SkipMissingBookingNo,
			},
		},
		{
			name: "missing date with policy",
			raw: Raw{Fields: map[string]string{
				FieldBookingNo:   "PCSO24JBN000125",
				FieldName:        "DOE, JOHN",
				FieldBookingDate: "13/40/2024",
			}},
			policy: Policy{SkipIncomplete: true},
			expect: Outcome{
				Booking: Booking{BookingNo: "PCSO24JBN000125", Name: "DOE, JOHN"},
				Skip:    SkipMissingBookingDate,
			},
		},
		{
			name: "missing date without policy",
			raw: Raw{Fields: map[string]string{
				FieldBookingNo: "PCSO24JBN000125",
			}},
			policy: Policy{},
			expect: Outcome{
				Booking: Booking{BookingNo: "PCSO24JBN000125"},
			},
		},
		{
			name: "missing name with policy",
			raw: Raw{Fields: map[string]string{
				FieldBookingNo:   "PCSO24JBN000126",
				FieldBookingDate: "2024-01-02T15:00:00Z",
			}},
			policy: Policy{SkipIncomplete: true},
			expect: Outcome{
				Booking: Booking{BookingNo: "PCSO24JBN000126", BookingDate: &bookingDate},
				Skip:    SkipMissingName,
			},
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			outcome := Normalize(test.raw, test.policy)
			if diff := cmp.Diff(test.expect, outcome); diff != "" {
				t.Fatal(diff)
			}
			require.Equal(t, test.expect.Skip == "", outcome.Accepted())
		})
	}
}

func TestRawJSON(t *testing.T) {
	var raw Raw
	err := raw.UnmarshalJSON([]byte(`{
		"bookingNo": "PCSO24JBN000123",
		"age": 34,
		"mni_no": null,
		"provenance": "text",
		"charges": [{"statute": "784.03", "caseNumber": "24CF001234", "charge": "BATTERY", "level": 3}]
	}`))
	require.NoError(t, err)
	require.Equal(t, "PCSO24JBN000123", raw.Get(FieldBookingNo))
	require.Equal(t, "34", raw.Get(FieldAge))
	require.Equal(t, "", raw.Get(FieldMniNo))
	require.Equal(t, ProvenanceText, raw.Provenance)
	require.Len(t, raw.Charges, 1)
	require.Equal(t, "3", raw.Charges[0][FieldLevel])
	require.Equal(t, "24CF001234", Lookup(raw.Charges[0], FieldCaseNumber))

	encoded, err := raw.MarshalJSON()
	require.NoError(t, err)
	var decoded Raw
	require.NoError(t, decoded.UnmarshalJSON(encoded))
	if diff := cmp.Diff(raw, decoded); diff != "" {
		t.Fatal(diff)
	}

	require.Error(t, decoded.UnmarshalJSON([]byte(`{"name": {"first": "JOHN"}}`)))
}
