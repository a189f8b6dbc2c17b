package timezone

import "time"

// Location is the portal's local time zone. Every date literal published
// by the jail log is a wall-clock time in this zone.
var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
}

func Now() time.Time {
	return time.Now().In(Location)
}

// InUTC interprets the given wall-clock fields in Location and returns the
// corresponding instant in UTC.
func InUTC(year int, month time.Month, day, hour, min, sec int) time.Time {
	return time.Date(year, month, day, hour, min, sec, 0, Location).UTC()
}
