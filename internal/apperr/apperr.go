// Package apperr carries the error taxonomy shared by every operation:
// each failure has a stable Kind plus a human-readable message, and
// handlers map the Kind to an HTTP status. Internal store/provider errors
// are wrapped at the operation boundary so their details never leak to
// the caller.
package apperr

import "errors"

type Kind int

const (
	Unknown Kind = iota
	Unauthenticated
	NotFound
	AlreadyExists
	AlreadyVerified
	NotVerified
	CodeMismatch
	CodeExpired
	InvalidInput
	NotAccepting
	DependencyFailure
	PersistenceFailure
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case NotFound:
		return "not_found"
	case AlreadyExists:
		return "already_exists"
	case AlreadyVerified:
		return "already_verified"
	case NotVerified:
		return "not_verified"
	case CodeMismatch:
		return "code_mismatch"
	case CodeExpired:
		return "code_expired"
	case InvalidInput:
		return "invalid_input"
	case NotAccepting:
		return "not_accepting"
	case DependencyFailure:
		return "dependency_failure"
	case PersistenceFailure:
		return "persistence_failure"
	}
	return "unknown"
}

type Error struct {
	Kind    Kind
	Message string
	// Status optionally carries an upstream HTTP status, set when a
	// dependency (e.g. the suggestion provider) reported one.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a plain taxonomy error.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a taxonomy kind and caller-facing message to an internal error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err, or Unknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// MessageOf returns the caller-facing message for err. Foreign errors get a
// generic message so internals are not echoed to clients.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "An unexpected error occurred"
}

// StatusOf returns the upstream status attached to err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
