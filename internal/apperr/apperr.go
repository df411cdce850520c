// Package apperr defines the error taxonomy shared by the persistence and
// authentication layers. A single tagged type replaces subtype dispatch:
// callers switch on Kind, never on concrete error identity.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for propagation and status mapping.
type Kind int

const (
	// KindInternal marks unclassified failures.
	KindInternal Kind = iota
	// KindNotFound marks a requested entity that does not exist.
	KindNotFound
	// KindDatabase marks store-level failures, including failed delete guards.
	KindDatabase
	// KindValidation marks bad input, e.g. a password violating policy.
	KindValidation
	// KindAuthentication marks rejected credentials.
	KindAuthentication
	// KindForbidden marks a missing/invalid token or insufficient permission.
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindDatabase:
		return "database"
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Error carries a kind, a message and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an error of the given kind around a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// NotFound reports a missing entity.
func NotFound(message string) *Error {
	if message == "" {
		message = "record not found"
	}
	return New(KindNotFound, message)
}

// Database reports a store-level failure.
func Database(message string, cause error) *Error {
	if message == "" {
		message = "database operation failed"
	}
	return Wrap(KindDatabase, message, cause)
}

// Validation reports invalid input. The message is user-visible verbatim.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Authentication reports rejected credentials.
func Authentication(message string) *Error {
	if message == "" {
		message = "access credentials are incorrect"
	}
	return New(KindAuthentication, message)
}

// Forbidden reports a missing/invalid token or insufficient permission.
func Forbidden(message string) *Error {
	if message == "" {
		message = "unauthorized"
	}
	return New(KindForbidden, message)
}

// Internal reports an unclassified failure.
func Internal(message string, cause error) *Error {
	if message == "" {
		message = "internal error"
	}
	return Wrap(KindInternal, message, cause)
}

// KindOf returns the kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error kind to the status code the transport layer
// is expected to emit.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// UserVisible reports whether the error message may be returned to the
// end user verbatim. Everything else is expected to be logged and
// replaced with a generic message by the caller.
func UserVisible(err error) bool {
	return IsKind(err, KindValidation)
}
