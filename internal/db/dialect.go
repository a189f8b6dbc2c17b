package db

import (
	"strconv"
	"strings"
)

// Dialect holds the differences in sql text between the supported drivers.
type Dialect struct {
	Name string

	numbered      bool
	timestampType string
	jsonType      string
}

var (
	SQLite   = Dialect{Name: "sqlite", timestampType: "text", jsonType: "text"}
	LibSQL   = Dialect{Name: "libsql", timestampType: "text", jsonType: "text"}
	Postgres = Dialect{Name: "postgres", numbered: true, timestampType: "timestamptz", jsonType: "jsonb"}
)

// Placeholder returns the bind parameter for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Values renders `rows` tuples of `cols` bind parameters each, numbering
// continues from offset.
func (d Dialect) Values(rows, cols, offset int) string {
	var b strings.Builder
	n := offset
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			n++
			b.WriteString(d.Placeholder(n))
		}
		b.WriteByte(')')
	}
	return b.String()
}

// UpsertSuffix renders the conflict clause that updates every column in
// update from the proposed row.
func (d Dialect) UpsertSuffix(key string, update []string) string {
	sets := make([]string, len(update))
	for i, col := range update {
		sets[i] = col + " = excluded." + col
	}
	return "on conflict (" + key + ") do update set " + strings.Join(sets, ", ")
}
