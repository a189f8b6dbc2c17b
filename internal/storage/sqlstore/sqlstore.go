// Package sqlstore persists bookings and charges to a sql database.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"jaillog-backend/internal/bookings"
	"jaillog-backend/internal/chrono"
	"jaillog-backend/internal/db"
)

var bookingColumns = []string{
	"booking_no",
	"mni_no",
	"name",
	"race",
	"gender",
	"status",
	"booking_date",
	"age_on_booking_date",
	"bond_amount",
	"address_given",
	"holds_text",
	"released_date",
	"photo_url",
	"raw_card_text",
	"updated_at",
}

var chargeColumns = []string{
	"booking_no",
	"charge_order",
	"statute",
	"case_number",
	"agency",
	"charge",
	"degree",
	"level",
	"bond",
}

type Store struct {
	db      *sql.DB
	dialect db.Dialect
	tables  db.Tables
	time    chrono.TimeAPI
}

func New(conn *sql.DB, dialect db.Dialect, tables db.Tables, clock chrono.TimeAPI) (*Store, error) {
	err := tables.Validate()
	if err != nil {
		return nil, err
	}
	return &Store{
		db:      conn,
		dialect: dialect,
		tables:  tables,
		time:    clock,
	}, nil
}

func (s *Store) columns() []string {
	if !s.tables.HasChargesColumn {
		return bookingColumns
	}
	return append(append([]string{}, bookingColumns...), "charges")
}

func timestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}
	return int64(*n)
}

func (s *Store) bookingArgs(b bookings.Booking, now time.Time) ([]any, error) {
	args := []any{
		b.BookingNo,
		nullString(b.MniNo),
		nullString(b.Name),
		nullString(b.Race),
		nullString(b.Gender),
		nullString(b.Status),
		timestamp(b.BookingDate),
		nullInt(b.AgeOnBookingDate),
		nullString(b.BondAmount),
		nullString(b.AddressGiven),
		nullString(b.HoldsText),
		timestamp(b.ReleasedDate),
		nullString(b.PhotoURL),
		nullString(b.RawCardText),
		now.UTC().Format(time.RFC3339),
	}
	if s.tables.HasChargesColumn {
		charges := b.Charges
		if charges == nil {
			charges = []bookings.Charge{}
		}
		encoded, err := json.Marshal(charges)
		if err != nil {
			return nil, fmt.Errorf("encode charges of %s: %w", b.BookingNo, err)
		}
		args = append(args, string(encoded))
	}
	return args, nil
}

// UpsertBookings writes the batch in a single statement, existing rows with
// the same booking number are overwritten.
func (s *Store) UpsertBookings(ctx context.Context, batch []bookings.Booking) error {
	if len(batch) == 0 {
		return nil
	}

	columns := s.columns()
	now := s.time.Now()
	args := make([]any, 0, len(batch)*len(columns))
	for _, b := range batch {
		row, err := s.bookingArgs(b, now)
		if err != nil {
			return err
		}
		args = append(args, row...)
	}

	query := fmt.Sprintf(
		"insert into %s (%s) values %s %s",
		s.tables.Bookings,
		strings.Join(columns, ", "),
		s.dialect.Values(len(batch), len(columns), 0),
		s.dialect.UpsertSuffix("booking_no", columns[1:]),
	)
	_, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("upsert bookings: %w", err)
	}
	return nil
}

// ReplaceCharges deletes the charges stored for bookingNo and inserts the
// given ones numbered from 1, in one transaction.
func (s *Store) ReplaceCharges(ctx context.Context, bookingNo string, charges []bookings.Charge) error {
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(
			ctx,
			fmt.Sprintf("delete from %s where booking_no = %s", s.tables.Charges, s.dialect.Placeholder(1)),
			bookingNo,
		)
		if err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		if len(charges) == 0 {
			return nil
		}

		args := make([]any, 0, len(charges)*len(chargeColumns))
		for i, c := range charges {
			args = append(args,
				bookingNo,
				i+1,
				nullString(c.Statute),
				nullString(c.CaseNumber),
				nullString(c.Agency),
				nullString(c.Charge),
				nullString(c.Degree),
				nullString(c.Level),
				nullString(c.Bond),
			)
		}
		_, err = tx.ExecContext(
			ctx,
			fmt.Sprintf(
				"insert into %s (%s) values %s",
				s.tables.Charges,
				strings.Join(chargeColumns, ", "),
				s.dialect.Values(len(charges), len(chargeColumns), 0),
			),
			args...,
		)
		if err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace charges of %s: %w", bookingNo, err)
	}
	return nil
}

func (s *Store) SetPhotoURL(ctx context.Context, bookingNo, url string) error {
	_, err := s.db.ExecContext(
		ctx,
		fmt.Sprintf(
			"update %s set photo_url = %s where booking_no = %s",
			s.tables.Bookings,
			s.dialect.Placeholder(1),
			s.dialect.Placeholder(2),
		),
		url, bookingNo,
	)
	if err != nil {
		return fmt.Errorf("set photo url of %s: %w", bookingNo, err)
	}
	return nil
}
