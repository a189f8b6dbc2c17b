package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"jaillog-backend/internal/bookings"
)

var ErrNotFound = errors.New("booking not found")

func parseTimestamp(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value.String)
	if err != nil {
		return nil
	}
	return &t
}

// Booking reads a stored booking along with its charges in charge order.
func (s *Store) Booking(ctx context.Context, bookingNo string) (bookings.Booking, error) {
	row := s.db.QueryRowContext(
		ctx,
		fmt.Sprintf(
			`select booking_no, mni_no, name, race, gender, status, booking_date,
			age_on_booking_date, bond_amount, address_given, holds_text,
			released_date, photo_url, raw_card_text
			from %s where booking_no = %s`,
			s.tables.Bookings, s.dialect.Placeholder(1),
		),
		bookingNo,
	)

	var (
		b                            bookings.Booking
		mni, name, race, gender      sql.NullString
		status, bond, address, holds sql.NullString
		photo, card                  sql.NullString
		bookingDate, releasedDate    sql.NullString
		age                          sql.NullInt64
	)
	err := row.Scan(
		&b.BookingNo, &mni, &name, &race, &gender, &status, &bookingDate,
		&age, &bond, &address, &holds, &releasedDate, &photo, &card,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return bookings.Booking{}, ErrNotFound
	}
	if err != nil {
		return bookings.Booking{}, fmt.Errorf("read booking %s: %w", bookingNo, err)
	}

	b.MniNo = mni.String
	b.Name = name.String
	b.Race = race.String
	b.Gender = gender.String
	b.Status = status.String
	b.BookingDate = parseTimestamp(bookingDate)
	if age.Valid {
		n := int(age.Int64)
		b.AgeOnBookingDate = &n
	}
	b.BondAmount = bond.String
	b.AddressGiven = address.String
	b.HoldsText = holds.String
	b.ReleasedDate = parseTimestamp(releasedDate)
	b.PhotoURL = photo.String
	b.RawCardText = card.String

	b.Charges, err = s.Charges(ctx, bookingNo)
	if err != nil {
		return bookings.Booking{}, err
	}
	return b, nil
}

func (s *Store) Charges(ctx context.Context, bookingNo string) ([]bookings.Charge, error) {
	rows, err := s.db.QueryContext(
		ctx,
		fmt.Sprintf(
			`select statute, case_number, agency, charge, degree, level, bond
			from %s where booking_no = %s order by charge_order`,
			s.tables.Charges, s.dialect.Placeholder(1),
		),
		bookingNo,
	)
	if err != nil {
		return nil, fmt.Errorf("read charges of %s: %w", bookingNo, err)
	}
	defer rows.Close()

	var out []bookings.Charge
	for rows.Next() {
		var statute, caseNumber, agency, charge, degree, level, bond sql.NullString
		err := rows.Scan(&statute, &caseNumber, &agency, &charge, &degree, &level, &bond)
		if err != nil {
			return nil, fmt.Errorf("read charges of %s: %w", bookingNo, err)
		}
		out = append(out, bookings.Charge{
			Statute:    statute.String,
			CaseNumber: caseNumber.String,
			Agency:     agency.String,
			Charge:     charge.String,
			Degree:     degree.String,
			Level:      level.String,
			Bond:       bond.String,
		})
	}
	return out, rows.Err()
}

// ChargeOrders returns the stored charge_order values of a booking, used to
// check that re-syncing does not leave gaps or duplicates.
func (s *Store) ChargeOrders(ctx context.Context, bookingNo string) ([]int, error) {
	rows, err := s.db.QueryContext(
		ctx,
		fmt.Sprintf(
			"select charge_order from %s where booking_no = %s order by charge_order",
			s.tables.Charges, s.dialect.Placeholder(1),
		),
		bookingNo,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var n int
		err := rows.Scan(&n)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("select count(*) from %s", s.tables.Bookings)).Scan(&n)
	return n, err
}
