package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"

	ierr "github.com/billix/billix/internal/errors"
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// wrapErr maps driver errors onto the shared error kinds so callers never
// see lib/pq details
func wrapErr(err error, hint string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ierr.WithError(err).
			WithHint(hint).
			Mark(ierr.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return ierr.WithError(err).
			WithHint(hint).
			Mark(ierr.ErrAlreadyExists)
	}
	return ierr.WithError(err).
		WithHint(hint).
		Mark(ierr.ErrDatabase)
}

// mustJSON marshals nested structures for JSONB columns. The inputs are
// in-memory domain values, so a marshal failure is a programming error.
func mustJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func fromJSON(data []byte, dest interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to decode stored JSON column").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
