package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/taskflow/internal/ir"
)

// timeLayout stores instants as UTC RFC 3339 with nanoseconds so that
// lexical order in SQLite matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// nullTime maps a nil pointer to SQL NULL.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func scanNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullDate maps a nil or zero date to SQL NULL.
func nullDate(d *ir.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.String()
}

func scanNullDate(ns sql.NullString) (*ir.Date, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := ir.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// nullString maps "" to SQL NULL for optional foreign keys.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
