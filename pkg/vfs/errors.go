// Package vfs implements the database-backed virtual file system.
//
// Every file and directory lives in a single `nodes` table addressed by
// (root_key, parent_path, filename). The primitives in this package map
// one-to-one onto stored functions installed by the store migrations; the
// Go side normalizes and validates paths, invokes the functions through
// parameterized calls, and translates database failures into typed errors.
package vfs

import (
	"errors"
	"fmt"
)

// Kind classifies a VFS failure.
type Kind int

const (
	// KindInvalidName indicates a filename failed validation.
	KindInvalidName Kind = iota + 1

	// KindInvalidPath indicates a path that cannot be normalized.
	KindInvalidPath

	// KindNotFound indicates the row or directory is missing.
	KindNotFound

	// KindAlreadyExists indicates a uniqueness violation on create or rename.
	KindAlreadyExists

	// KindIsADirectory indicates a file operation hit a directory.
	KindIsADirectory

	// KindNotADirectory indicates a directory operation hit a file.
	KindNotADirectory

	// KindNotEmpty indicates a non-recursive rmdir on a non-empty directory.
	KindNotEmpty

	// KindCannotDeleteRoot indicates an attempted deletion of a root.
	KindCannotDeleteRoot

	// KindNotAuthorized indicates an owner mismatch without admin override.
	KindNotAuthorized

	// KindConfigMissing indicates required configuration is absent.
	KindConfigMissing

	// KindSignatureInvalid indicates message signature verification failed.
	KindSignatureInvalid

	// KindBlocked indicates the publisher is on the blocklist.
	KindBlocked

	// KindConflict indicates a rename/save-file collision.
	KindConflict

	// KindInternal wraps any other failure.
	KindInternal
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindInvalidName:
		return "InvalidName"
	case KindInvalidPath:
		return "InvalidPath"
	case KindNotFound:
		return "NotFound"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindIsADirectory:
		return "IsADirectory"
	case KindNotADirectory:
		return "NotADirectory"
	case KindNotEmpty:
		return "NotEmpty"
	case KindCannotDeleteRoot:
		return "CannotDeleteRoot"
	case KindNotAuthorized:
		return "NotAuthorized"
	case KindConfigMissing:
		return "ConfigMissing"
	case KindSignatureInvalid:
		return "SignatureInvalid"
	case KindBlocked:
		return "Blocked"
	case KindConflict:
		return "Conflict"
	case KindInternal:
		return "Internal"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Error is a typed VFS failure with an optional path and wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Path    string
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path: %s)", e.Kind, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf returns the kind of err, or KindInternal for untyped errors.
// A nil error yields zero.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

// NewError creates a typed error.
func NewError(kind Kind, message, path string) *Error {
	return &Error{Kind: kind, Message: message, Path: path}
}

// NewNotFound creates a NotFound error for the given path.
func NewNotFound(path string) *Error {
	return &Error{Kind: KindNotFound, Message: "not found", Path: path}
}

// NewAlreadyExists creates an AlreadyExists error for the given path.
func NewAlreadyExists(path string) *Error {
	return &Error{Kind: KindAlreadyExists, Message: "already exists", Path: path}
}

// NewNotAuthorized creates a NotAuthorized error for the given path.
func NewNotAuthorized(path string) *Error {
	return &Error{Kind: KindNotAuthorized, Message: "not authorized", Path: path}
}

// NewInvalidName creates an InvalidName error for the offending component.
func NewInvalidName(name string) *Error {
	return &Error{Kind: KindInvalidName, Message: fmt.Sprintf("invalid name %q", name), Path: name}
}

// NewInternal wraps an unexpected cause.
func NewInternal(op string, cause error) *Error {
	return &Error{
		Kind:    KindInternal,
		Message: fmt.Sprintf("%s: %v", op, cause),
		cause:   cause,
	}
}
