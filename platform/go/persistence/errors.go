package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrAccountNotFound indicates a missing account record.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountConflict indicates a uniqueness violation (duplicated email).
	ErrAccountConflict = errors.New("account conflict")
	// ErrRegistrationNotFound indicates a missing registration record.
	ErrRegistrationNotFound = errors.New("registration not found")
	// ErrStateNotAllowed is returned when a guarded write finds the record
	// outside the set of states the write is valid from.
	ErrStateNotAllowed = errors.New("registration state does not allow this write")
	// ErrCheckViolation surfaces a database check constraint rejection; the
	// service layer treats it as a field-validity failure that slipped past
	// in-process validation.
	ErrCheckViolation = errors.New("check constraint violation")
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}
