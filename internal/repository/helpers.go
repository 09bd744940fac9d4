package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andy/billhours/internal/domain"
	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
)

// timeLayout is the RFC3339 format for storing times in SQLite
const timeLayout = time.RFC3339

// sqliteLayout is what datetime('now') defaults produce
const sqliteLayout = "2006-01-02 15:04:05"

// parseTime parses a stored timestamp
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(sqliteLayout, s)
}

// formatTime returns the current time formatted as RFC3339
func formatTime() string {
	return time.Now().Format(timeLayout)
}

// nullDate renders an optional day for a nullable TEXT column
func nullDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return domain.FormatDate(*t)
}

// scanDate parses an optional YYYY-MM-DD column
func scanDate(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := domain.ParseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

func scanID(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// notFound wraps err so callers can match both ErrNotFound and sql.ErrNoRows
func notFound(what string, err error) error {
	return fmt.Errorf("%s %w: %w", what, ErrNotFound, err)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// uniqueViolation turns a UNIQUE failure that names column into a
// validation error on field. Any other error yields nil.
func uniqueViolation(err error, column, field string) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return nil
	}
	if !strings.Contains(sqliteErr.Error(), column) {
		return nil
	}
	return domain.ValidationErrors{{Field: field, Message: "is already taken in this project"}}
}
