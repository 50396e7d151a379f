// Package apperror defines the error kinds surfaced by the diary core.
//
// Every error returned across a package boundary by the stores, the sync
// engine and the resolution service is either an *Error or wraps one, so
// callers (HTTP handlers, CLI commands) can branch on the Kind with
// errors.Is against the sentinel values below.
//
// # Kinds
//
//   - NotFound: no entry, episode or hunk for the given key.
//   - Conflict: a pending episode blocks a re-sync, an episode was already
//     resolved, or the local entry changed since the episode was computed.
//   - InvalidRequest: malformed date, toggle direction mismatch.
//   - UpstreamUnavailable: the remote source could not be read.
//   - StorageFailure: the persistence layer failed.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindInvalidRequest      Kind = "invalid_request"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindStorageFailure      Kind = "storage_failure"
)

// Sentinel values for errors.Is.
var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrConflict            = &Error{Kind: KindConflict}
	ErrInvalidRequest      = &Error{Kind: KindInvalidRequest}
	ErrUpstreamUnavailable = &Error{Kind: KindUpstreamUnavailable}
	ErrStorageFailure      = &Error{Kind: KindStorageFailure}
)

// Error is a classified error. Op names the operation that failed.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg = e.Message
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an error of the given kind.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap classifies err under kind. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// NotFound creates a NotFound error.
func NotFound(op, message string) *Error { return New(KindNotFound, op, message) }

// Conflict creates a Conflict error.
func Conflict(op, message string) *Error { return New(KindConflict, op, message) }

// Invalid creates an InvalidRequest error.
func Invalid(op, message string) *Error { return New(KindInvalidRequest, op, message) }

// KindOf returns the Kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return 404
	case KindConflict:
		return 409
	case KindInvalidRequest:
		return 400
	case KindUpstreamUnavailable:
		return 502
	default:
		return 500
	}
}
