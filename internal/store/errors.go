package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/eringen/blogapi/internal/apperr"
)

// errForeignKey marks a foreign key violation inside a classified error.
var errForeignKey = errors.New("foreign key violation")

// classify maps driver constraint failures onto the error taxonomy. A unique
// or primary key violation is a Conflict; a dangling foreign key is NotFound.
// Anything else passes through untouched and surfaces as Internal.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return apperr.Wrap(apperr.Conflict, err, "Record already exists")
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return apperr.Wrap(apperr.NotFound, errors.Join(errForeignKey, err), "Referenced record not found")
		}
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return apperr.Wrap(apperr.Conflict, err, "Record already exists")
		case "23503":
			return apperr.Wrap(apperr.NotFound, errors.Join(errForeignKey, err), "Referenced record not found")
		}
	}
	return err
}

// relabel replaces the message of a classified error of the given kind,
// keeping the cause. Other errors pass through.
func relabel(err error, kind apperr.Kind, msg string) error {
	if err != nil && apperr.KindOf(err) == kind {
		return apperr.Wrap(kind, err, msg)
	}
	return err
}
