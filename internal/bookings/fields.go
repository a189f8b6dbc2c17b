package bookings

import "strings"

// Canonical field names of a raw record. They double as column names.
const (
	FieldBookingNo    = "booking_no"
	FieldMniNo        = "mni_no"
	FieldName         = "name"
	FieldRace         = "race"
	FieldGender       = "gender"
	FieldStatus       = "status"
	FieldBookingDate  = "booking_date"
	FieldAge          = "age_on_booking_date"
	FieldBondAmount   = "bond_amount"
	FieldAddressGiven = "address_given"
	FieldHoldsText    = "holds_text"
	FieldReleasedDate = "released_date"
	FieldPhotoURL     = "photo_url"
	FieldRawCardText  = "raw_card_text"

	FieldStatute    = "statute"
	FieldCaseNumber = "case_number"
	FieldAgency     = "agency"
	FieldCharge     = "charge"
	FieldDegree     = "degree"
	FieldLevel      = "level"
	FieldBond       = "bond"
)

// aliases lists the other spellings a field has been emitted under, in
// lookup order after the canonical name.
var aliases = map[string][]string{
	FieldBookingNo:    {"bookingNo"},
	FieldMniNo:        {"mniNo"},
	FieldBookingDate:  {"bookingDate", "booked_at"},
	FieldAge:          {"ageOnBookingDate", "age"},
	FieldBondAmount:   {"bondAmount", "bond"},
	FieldAddressGiven: {"addressGiven", "address"},
	FieldHoldsText:    {"holdsText", "holds"},
	FieldReleasedDate: {"releasedDate"},
	FieldPhotoURL:     {"photoUrl"},
	FieldRawCardText:  {"rawCardText"},
	FieldCaseNumber:   {"caseNumber"},
}

// Lookup returns the first non-empty value stored under the canonical field
// name or one of its aliases, trimmed of surrounding whitespace.
func Lookup(fields map[string]string, canonical string) string {
	if v := strings.TrimSpace(fields[canonical]); v != "" {
		return v
	}
	for _, alias := range aliases[canonical] {
		if v := strings.TrimSpace(fields[alias]); v != "" {
			return v
		}
	}
	return ""
}
