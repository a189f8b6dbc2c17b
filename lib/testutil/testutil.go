package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"jaillog-backend/internal/db"
	"jaillog-backend/lib/telemetry"
)

type DBParams struct {
	Name string
	// if unspecified, db.DefaultTables() is used
	Tables *db.Tables
	// if unspecified, it will use `:memory:`
	DbPath string
}

type DBResult struct {
	DB      *sql.DB
	Dialect db.Dialect
	Tables  db.Tables
}

// SetupDB opens a migrated sqlite database for a test, the database is
// closed when the test ends.
func SetupDB(t testing.TB, params DBParams) DBResult {
	t.Helper()
	cleanup := telemetry.SetupForTesting(fmt.Sprintf("test:%s", params.Name))
	t.Cleanup(cleanup)

	tables := db.DefaultTables()
	if params.Tables != nil {
		tables = *params.Tables
	}
	dbpath := params.DbPath
	if dbpath == "" {
		dbpath = ":memory:"
	}

	conn, dialect, err := db.Config{Driver: db.SQLite.Name, File: dbpath}.OpenDB()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		conn.Close()
	})
	err = db.Migrate(context.Background(), conn, dialect, tables)
	if err != nil {
		t.Fatal(err)
	}

	return DBResult{
		DB:      conn,
		Dialect: dialect,
		Tables:  tables,
	}
}
