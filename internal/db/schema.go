package db

import (
	"bytes"
	_ "embed"
	"fmt"
	"regexp"
	"text/template"
)

//go:embed schema.sql
var schemaTemplate string

var schema = template.Must(template.New("schema").Parse(schemaTemplate))

// Tables names the tables bookings and their charges are written to.
type Tables struct {
	Bookings string `json:"bookings"`
	Charges  string `json:"charges"`
	// HasChargesColumn adds a json column to the bookings table holding the
	// booking's charge list.
	HasChargesColumn bool `json:"has_charges_column"`
}

func DefaultTables() Tables {
	return Tables{Bookings: "bookings", Charges: "charges"}
}

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate rejects table names that cannot be used as bare sql identifiers.
func (t Tables) Validate() error {
	for _, name := range []string{t.Bookings, t.Charges} {
		if !identifierRegex.MatchString(name) {
			return fmt.Errorf("invalid table name %q", name)
		}
	}
	return nil
}

// Schema renders the create statements for the given tables in the column
// types of dialect.
func Schema(dialect Dialect, tables Tables) (string, error) {
	err := tables.Validate()
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	err = schema.Execute(&out, struct {
		Tables
		Timestamp string
		JSON      string
	}{
		Tables:    tables,
		Timestamp: dialect.timestampType,
		JSON:      dialect.jsonType,
	})
	if err != nil {
		return "", err
	}
	return out.String(), nil
}
