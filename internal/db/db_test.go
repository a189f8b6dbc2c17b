package db

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDialect(t *testing.T) {
	require.Equal(t, "(?, ?), (?, ?)", SQLite.Values(2, 2, 0))
	require.Equal(t, "($3, $4, $5)", Postgres.Values(1, 3, 2))
	require.Equal(t,
		"on conflict (booking_no) do update set name = excluded.name, status = excluded.status",
		SQLite.UpsertSuffix("booking_no", []string{"name", "status"}),
	)

	for driver, expect := range map[string]Dialect{"": SQLite, "sqlite": SQLite, "libsql": LibSQL, "postgres": Postgres} {
		dialect, err := Config{Driver: driver}.Dialect()
		require.NoError(t, err)
		require.Equal(t, expect, dialect)
	}
	_, err := Config{Driver: "mysql"}.Dialect()
	require.Error(t, err)
}

func TestSchema(t *testing.T) {
	ddl, err := Schema(Postgres, Tables{Bookings: "pcso_bookings", Charges: "pcso_charges", HasChargesColumn: true})
	require.NoError(t, err)
	require.Contains(t, ddl, "create table if not exists pcso_bookings (")
	require.Contains(t, ddl, "references pcso_bookings(booking_no)")
	require.Contains(t, ddl, "booking_date timestamptz")
	require.Contains(t, ddl, "charges jsonb,")

	ddl, err = Schema(SQLite, DefaultTables())
	require.NoError(t, err)
	require.NotContains(t, ddl, "charges text")

	_, err = Schema(SQLite, Tables{Bookings: "bookings; drop table x", Charges: "charges"})
	require.Error(t, err)
}

func TestOpenAndMigrate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "jaillog.db")

	db, dialect, err := Config{File: path}.OpenDB()
	require.NoError(t, err)
	defer db.Close()
	require.Equal(t, SQLite, dialect)

	tables := DefaultTables()
	tables.HasChargesColumn = true
	require.NoError(t, Migrate(ctx, db, dialect, tables))
	// migrating twice is a no-op
	require.NoError(t, Migrate(ctx, db, dialect, tables))

	_, err = db.ExecContext(ctx, "insert into charges (booking_no, charge_order) values ('MISSING', 1)")
	require.Error(t, err, "foreign keys are enforced")

	_, _, err = Config{Driver: "postgres"}.OpenDB()
	require.Error(t, err)
	_, _, err = Config{}.OpenDB()
	require.Error(t, err)
}

func TestOpenSQLiteUnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	_, _, err := Config{File: filepath.Join(file, "jaillog.db")}.OpenDB()
	require.Error(t, err)
	require.ErrorContains(t, err, "create "+file)
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	db, dialect, err := Config{File: ":memory:"}.OpenDB()
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(ctx, db, dialect, DefaultTables()))

	failure := errors.New("failure")
	err = WithTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "insert into bookings (booking_no) values ('A')")
		require.NoError(t, err)
		return failure
	})
	require.ErrorIs(t, err, failure)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "select count(*) from bookings").Scan(&count))
	require.Equal(t, 0, count)

	err = WithTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "insert into bookings (booking_no) values ('A')")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, db.QueryRowContext(ctx, "select count(*) from bookings").Scan(&count))
	require.Equal(t, 1, count)
}
