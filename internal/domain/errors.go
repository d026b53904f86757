// Package domain defines the structured error type shared by all layers.
// Services return *Error values; the HTTP boundary translates kinds into
// status codes. Callers match with errors.Is against the exported sentinels,
// which compares kinds only.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a domain failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindInvalidCredentials
	KindTokenInvalid
	KindTokenExpired
	KindSessionRevoked
	KindStoreUnavailable
	KindConsistencyFault
	KindInternal
)

// String returns the wire name of the kind, used in error responses and logs.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindTokenInvalid:
		return "token_invalid"
	case KindTokenExpired:
		return "token_expired"
	case KindSessionRevoked:
		return "session_revoked"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindConsistencyFault:
		return "consistency_fault"
	case KindInternal:
		return "internal"
	}
	return "unknown"
}

// Error carries a kind, a human-readable message safe to show to clients
// (except for 500-class kinds, which the boundary replaces with a generic
// message), and an optional detail list.
type Error struct {
	Kind    Kind
	Message string
	Details []string
	cause   error
}

func (e *Error) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, strings.Join(e.Details, "; "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches two domain errors by kind, so errors.Is(err, ErrNotFound)
// works regardless of message or details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func (e *Error) Unwrap() error { return e.cause }

// Sentinels for kinds that carry no per-call information.
var (
	ErrUnauthorized       = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrForbidden          = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "invalid login or password"}
	ErrTokenInvalid       = &Error{Kind: KindTokenInvalid, Message: "invalid token"}
	ErrTokenExpired       = &Error{Kind: KindTokenExpired, Message: "token expired"}
	ErrSessionRevoked     = &Error{Kind: KindSessionRevoked, Message: "session revoked"}
	ErrStoreUnavailable   = &Error{Kind: KindStoreUnavailable, Message: "storage unavailable"}
	ErrConsistencyFault   = &Error{Kind: KindConsistencyFault, Message: "consistency fault"}
	ErrInternal           = &Error{Kind: KindInternal, Message: "internal error"}
)

// Validation builds a 400-class error with optional per-field details.
func Validation(msg string, details ...string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Details: details}
}

// Conflict builds a 409-class error.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Store wraps an unexpected storage failure. The cause stays available to
// internal observability via Unwrap but is never rendered to clients.
func Store(cause error) *Error {
	return &Error{Kind: KindStoreUnavailable, Message: "storage unavailable", cause: cause}
}

// Consistency reports a violated post-condition, e.g. a dangling owned-set
// reference after a delete.
func Consistency(msg string) *Error {
	return &Error{Kind: KindConsistencyFault, Message: msg}
}

// KindOf extracts the kind from err, or KindUnknown if err is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
