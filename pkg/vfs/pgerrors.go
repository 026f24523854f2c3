package vfs

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Application SQLSTATEs raised by the vfs_* stored functions. PostgreSQL
// allows custom five-character codes; the VF4xx block is reserved for
// file-system conditions so the Go side can classify without parsing
// message text.
const (
	pgCodeInvalidName      = "VF400"
	pgCodeNotAuthorized    = "VF401"
	pgCodeNotFound         = "VF404"
	pgCodeAlreadyExists    = "VF409"
	pgCodeNotEmpty         = "VF412"
	pgCodeIsADirectory     = "VF415"
	pgCodeNotADirectory    = "VF416"
	pgCodeCannotDeleteRoot = "VF423"
)

// mapPgError maps PostgreSQL errors to typed VFS errors.
func mapPgError(err error, operation, path string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return &Error{
			Kind:    KindNotFound,
			Message: fmt.Sprintf("%s: not found", operation),
			Path:    path,
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgErrorCode(pgErr, operation, path)
	}

	return NewInternal(operation, err)
}

// mapPgErrorCode maps SQLSTATEs, both the VF4xx application block and the
// standard PostgreSQL codes, to typed VFS errors.
func mapPgErrorCode(pgErr *pgconn.PgError, operation, path string) error {
	kind := KindInternal

	switch pgErr.Code {
	case pgCodeInvalidName:
		kind = KindInvalidName
	case pgCodeNotAuthorized:
		kind = KindNotAuthorized
	case pgCodeNotFound:
		kind = KindNotFound
	case pgCodeAlreadyExists:
		kind = KindAlreadyExists
	case pgCodeNotEmpty:
		kind = KindNotEmpty
	case pgCodeIsADirectory:
		kind = KindIsADirectory
	case pgCodeNotADirectory:
		kind = KindNotADirectory
	case pgCodeCannotDeleteRoot:
		kind = KindCannotDeleteRoot

	// 23505: unique_violation, raised by the (root_key, parent_path,
	// filename) index when two writers race on the same name.
	case "23505":
		kind = KindAlreadyExists

	// 23503: foreign_key_violation
	case "23503":
		kind = KindNotFound

	// 40001: serialization_failure, 40P01: deadlock_detected
	case "40001", "40P01":
		kind = KindConflict
	}

	if kind == KindInternal {
		return &Error{
			Kind:    KindInternal,
			Message: fmt.Sprintf("%s: database error [%s] %s", operation, pgErr.Code, pgErr.Message),
			Path:    path,
			cause:   pgErr,
		}
	}

	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf("%s: %s", operation, pgErr.Message),
		Path:    path,
		cause:   pgErr,
	}
}
