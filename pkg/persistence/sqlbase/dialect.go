// Package sqlbase provides the base functionality for SQL database persistence.
package sqlbase

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect captures the differences between the supported SQL engines.
// Queries are written with "?" placeholders and rebound per dialect.
type Dialect struct {
	Name string

	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string

	// Time converts a timestamp into the value bound for the driver.
	Time func(t time.Time) any

	// MigrationsTable creates the schema_migrations table.
	MigrationsTable string
}

var Postgres = Dialect{
	Name: "postgres",
	Placeholder: func(n int) string {
		return "$" + strconv.Itoa(n)
	},
	Time: func(t time.Time) any {
		return t.UTC()
	},
	MigrationsTable: `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`,
}

// sqliteTimeLayout keeps a fixed fraction width so stored text sorts in time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite stores timestamps as RFC 3339 text so they sort and round-trip
// without relying on the driver's column type detection.
var SQLite = Dialect{
	Name: "sqlite",
	Placeholder: func(int) string {
		return "?"
	},
	Time: func(t time.Time) any {
		return t.UTC().Format(sqliteTimeLayout)
	},
	MigrationsTable: `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT DEFAULT CURRENT_TIMESTAMP
		);
	`,
}

// Rebind replaces every "?" in query with the dialect placeholder.
func (d Dialect) Rebind(query string) string {
	if d.Placeholder == nil || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder

	n := 0

	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.Placeholder(n))

			continue
		}

		b.WriteRune(r)
	}

	return b.String()
}

// NullableTime binds an optional timestamp.
func (d Dialect) NullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}

	return d.Time(*t)
}

// nullTime scans timestamps stored natively or as text.
type nullTime struct {
	Time  time.Time
	Valid bool
}

var textTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (n *nullTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		n.Time, n.Valid = time.Time{}, false

		return nil
	case time.Time:
		n.Time, n.Valid = v.UTC(), true

		return nil
	case []byte:
		return n.parse(string(v))
	case string:
		return n.parse(v)
	default:
		return fmt.Errorf("unsupported timestamp value %T", src)
	}
}

func (n *nullTime) parse(s string) error {
	for _, layout := range textTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			n.Time, n.Valid = t.UTC(), true

			return nil
		}
	}

	return fmt.Errorf("invalid timestamp %q", s)
}

func (n nullTime) ptr() *time.Time {
	if !n.Valid {
		return nil
	}

	t := n.Time

	return &t
}

// encodeJSON renders v for a JSON/JSONB column. Strings are bound instead of
// bytes so PostgreSQL receives text it can cast to JSONB.
func encodeJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON column: %w", err)
	}

	return string(raw), nil
}

func decodeJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode JSON column: %w", err)
	}

	return nil
}
