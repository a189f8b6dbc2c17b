package bookings

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Charge is one statutory charge within a booking, its position in
// Booking.Charges is its charge order.
type Charge struct {
	Statute    string `json:"statute"`
	CaseNumber string `json:"case_number"`
	Agency     string `json:"agency"`
	Charge     string `json:"charge"`
	Degree     string `json:"degree"`
	Level      string `json:"level"`
	Bond       string `json:"bond"`
}

// Booking is one jail intake event in its canonical form.
type Booking struct {
	BookingNo        string     `json:"booking_no"`
	MniNo            string     `json:"mni_no"`
	Name             string     `json:"name"`
	Race             string     `json:"race"`
	Gender           string     `json:"gender"`
	Status           string     `json:"status"`
	BookingDate      *time.Time `json:"booking_date"`
	AgeOnBookingDate *int       `json:"age_on_booking_date"`
	BondAmount       string     `json:"bond_amount"`
	AddressGiven     string     `json:"address_given"`
	HoldsText        string     `json:"holds_text"`
	ReleasedDate     *time.Time `json:"released_date"`
	PhotoURL         string     `json:"photo_url"`
	Charges          []Charge   `json:"charges"`
	RawCardText      string     `json:"raw_card_text"`

	// Provenance names the extraction path that produced the booking, it is
	// not persisted.
	Provenance string `json:"-"`
}

const (
	ProvenanceTable = "table"
	ProvenanceText  = "text"
)

// Raw is an extracted booking before normalization. Field and charge keys
// may use any spelling known to Lookup.
type Raw struct {
	Fields     map[string]string
	Charges    []map[string]string
	Provenance string
}

func NewRaw(provenance string) Raw {
	return Raw{Fields: map[string]string{}, Provenance: provenance}
}

// Get is Lookup on the record's fields.
func (r Raw) Get(field string) string {
	return Lookup(r.Fields, field)
}

// Set stores a field, empty values are not stored.
func (r Raw) Set(field, value string) {
	if value == "" {
		return
	}
	r.Fields[field] = value
}

// MarshalJSON writes the record as a single flat object with a nested
// "charges" array.
func (r Raw) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	charges := r.Charges
	if charges == nil {
		charges = []map[string]string{}
	}
	out["charges"] = charges
	if r.Provenance != "" {
		out["provenance"] = r.Provenance
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts a flat object, scalar values of any JSON type are
// converted to strings and nulls are dropped.
func (r *Raw) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	err := json.Unmarshal(data, &obj)
	if err != nil {
		return err
	}

	r.Fields = map[string]string{}
	r.Charges = nil
	r.Provenance = ""
	for key, value := range obj {
		switch key {
		case "charges":
			var charges []map[string]json.RawMessage
			err := json.Unmarshal(value, &charges)
			if err != nil {
				return fmt.Errorf("charges: %w", err)
			}
			for _, c := range charges {
				charge := map[string]string{}
				for ck, cv := range c {
					s, err := scalarString(cv)
					if err != nil {
						return fmt.Errorf("charges.%s: %w", ck, err)
					}
					if s != "" {
						charge[ck] = s
					}
				}
				r.Charges = append(r.Charges, charge)
			}
		case "provenance":
			s, err := scalarString(value)
			if err != nil {
				return fmt.Errorf("provenance: %w", err)
			}
			r.Provenance = s
		default:
			s, err := scalarString(value)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			if s != "" {
				r.Fields[key] = s
			}
		}
	}
	return nil
}

func scalarString(raw json.RawMessage) (string, error) {
	var v any
	err := json.Unmarshal(raw, &v)
	if err != nil {
		return "", err
	}
	switch value := v.(type) {
	case nil:
		return "", nil
	case string:
		return value, nil
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(value), nil
	}
	return "", fmt.Errorf("expected a scalar, got %s", string(raw))
}
