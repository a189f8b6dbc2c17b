package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Config selects and locates the database.
type Config struct {
	// Driver is one of "sqlite", "libsql" or "postgres", empty means sqlite.
	Driver    string `json:"driver"`
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

func (config Config) Dialect() (Dialect, error) {
	switch config.Driver {
	case "", SQLite.Name:
		return SQLite, nil
	case LibSQL.Name:
		return LibSQL, nil
	case Postgres.Name:
		return Postgres, nil
	}
	return Dialect{}, fmt.Errorf("unknown database driver %q", config.Driver)
}

func (config Config) OpenDB() (*sql.DB, Dialect, error) {
	dialect, err := config.Dialect()
	if err != nil {
		return nil, Dialect{}, wrapOpenDB(err)
	}

	var db *sql.DB
	switch dialect {
	case SQLite:
		db, err = openSQLite(config.File)
	case LibSQL:
		db, err = openLibSQL(config)
	case Postgres:
		if config.Url == "" {
			return nil, Dialect{}, wrapOpenDB(fmt.Errorf("a postgres url was not specified"))
		}
		db, err = sql.Open("postgres", config.Url)
	}
	if err != nil {
		return nil, Dialect{}, wrapOpenDB(err)
	}
	return db, dialect, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("a path was not specified")
	}
	if path != ":memory:" {
		dir := filepath.Dir(path)
		err := os.MkdirAll(dir, 0777)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	_, err = db.Exec("PRAGMA foreign_keys=ON")
	if err != nil {
		return nil, err
	}
	return db, nil
}

func openLibSQL(config Config) (*sql.DB, error) {
	if config.Url == "" {
		if config.File == "" {
			return nil, fmt.Errorf("a path was not specified")
		}
		return sql.Open("libsql", fmt.Sprintf("file:%s", config.File))
	}

	values := url.Values{}
	if config.AuthToken != "" {
		values.Add("authToken", config.AuthToken)
	}
	return sql.Open("libsql", config.Url+"?"+values.Encode())
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect, tables Tables) error {
	ddl, err := Schema(dialect, tables)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	_, err = db.ExecContext(ctx, ddl)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
