package bookings

import "strings"

// Dedupe collapses raw records sharing a booking number into one. A later
// candidate replaces the kept record when it has strictly more charges, or
// the same number of charges and a name where the kept record has none.
// Records keep the position of the first occurrence of their booking number.
// Records without a booking number are passed through untouched so that
// normalization can count them as skipped.
func Dedupe(records []Raw) []Raw {
	index := map[string]int{}
	out := make([]Raw, 0, len(records))
	for _, r := range records {
		key := strings.ToUpper(r.Get(FieldBookingNo))
		if key == "" {
			out = append(out, r)
			continue
		}
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, r)
			continue
		}
		if preferred(r, out[i]) {
			out[i] = r
		}
	}
	return out
}

func preferred(candidate, kept Raw) bool {
	if len(candidate.Charges) != len(kept.Charges) {
		return len(candidate.Charges) > len(kept.Charges)
	}
	return kept.Get(FieldName) == "" && candidate.Get(FieldName) != ""
}
