package bookings

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"jaillog-backend/lib/timezone"
)

type SkipReason string

const (
	SkipMissingBookingNo   SkipReason = "missing_booking_no"
	SkipMissingBookingDate SkipReason = "missing_booking_date"
	SkipMissingName        SkipReason = "missing_name"
)

// Policy configures normalization.
type Policy struct {
	// SkipIncomplete rejects bookings without a booking date or a name.
	// Bookings without a booking number are always rejected.
	SkipIncomplete bool
	// PhotoBaseURL is prefixed to the booking number to derive the source
	// photo url, when empty the extracted photo url is kept.
	PhotoBaseURL string
}

// Outcome is the result of normalizing one raw record: either an accepted
// Booking or a skip reason.
type Outcome struct {
	Booking Booking
	Skip    SkipReason
}

func (o Outcome) Accepted() bool {
	return o.Skip == ""
}

var leadingDigits = regexp.MustCompile(`^\d+`)

func parseAge(s string) *int {
	digits := leadingDigits.FindString(strings.TrimSpace(s))
	if digits == "" {
		return nil
	}
	age, err := strconv.Atoi(digits)
	if err != nil || age < 0 {
		return nil
	}
	return &age
}

func parseInstant(s string) *time.Time {
	t, ok := timezone.ParseInstant(s)
	if !ok {
		return nil
	}
	return &t
}

// NormalizeCharge maps a raw charge into a Charge. ok is false when the
// charge has no description.
func NormalizeCharge(raw map[string]string) (Charge, bool) {
	c := Charge{
		Statute:    Lookup(raw, FieldStatute),
		CaseNumber: Lookup(raw, FieldCaseNumber),
		Agency:     Lookup(raw, FieldAgency),
		Charge:     Lookup(raw, FieldCharge),
		Degree:     Lookup(raw, FieldDegree),
		Level:      Lookup(raw, FieldLevel),
		Bond:       Lookup(raw, FieldBond),
	}
	return c, c.Charge != ""
}

// Normalize maps a raw record into the canonical Booking and applies the
// completeness policy.
func Normalize(raw Raw, policy Policy) Outcome {
	b := Booking{
		BookingNo:        strings.ToUpper(raw.Get(FieldBookingNo)),
		MniNo:            raw.Get(FieldMniNo),
		Name:             raw.Get(FieldName),
		Race:             raw.Get(FieldRace),
		Gender:           raw.Get(FieldGender),
		Status:           raw.Get(FieldStatus),
		BookingDate:      parseInstant(raw.Get(FieldBookingDate)),
		AgeOnBookingDate: parseAge(raw.Get(FieldAge)),
		BondAmount:       raw.Get(FieldBondAmount),
		AddressGiven:     raw.Get(FieldAddressGiven),
		HoldsText:        raw.Get(FieldHoldsText),
		ReleasedDate:     parseInstant(raw.Get(FieldReleasedDate)),
		PhotoURL:         raw.Get(FieldPhotoURL),
		RawCardText:      raw.Get(FieldRawCardText),
		Provenance:       raw.Provenance,
	}
	for _, rc := range raw.Charges {
		c, ok := NormalizeCharge(rc)
		if ok {
			b.Charges = append(b.Charges, c)
		}
	}

	if b.BookingNo == "" {
		return Outcome{Booking: b, Skip: SkipMissingBookingNo}
	}
	if policy.PhotoBaseURL != "" {
		b.PhotoURL = policy.PhotoBaseURL + b.BookingNo
	}
	if policy.SkipIncomplete {
		if b.BookingDate == nil {
			return Outcome{Booking: b, Skip: SkipMissingBookingDate}
		}
		if b.Name == "" {
			return Outcome{Booking: b, Skip: SkipMissingName}
		}
	}
	return Outcome{Booking: b}
}
