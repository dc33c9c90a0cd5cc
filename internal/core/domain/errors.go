package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies gateway failures for propagation and retry decisions.
type ErrorKind string

const (
	KindAuthentication ErrorKind = "authentication"
	KindAuthorization  ErrorKind = "authorization"
	KindValidation     ErrorKind = "validation"
	KindNotFound       ErrorKind = "not_found"
	KindConflict       ErrorKind = "conflict"
	KindService        ErrorKind = "service"
)

// Wire-contract error codes, one per kind.
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeValidation      = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeServiceError    = "SERVICE_ERROR"
)

// Error is the machine-readable failure surfaced to callers. Code and Status
// mirror the wire contract; the contextual fields are populated per kind.
type Error struct {
	Kind     ErrorKind
	Code     string
	Status   int
	Message  string
	Resource string
	ID       string
	Field    string
	Service  string
	cause    error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// WithCause attaches the underlying error without changing the surfaced message.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

// NewAuthenticationError signals a missing, invalid, or expired credential, or an
// unresolvable session. Callers must re-authenticate; retrying is pointless.
func NewAuthenticationError(message string) *Error {
	return &Error{
		Kind:    KindAuthentication,
		Code:    CodeUnauthenticated,
		Status:  http.StatusUnauthorized,
		Message: message,
	}
}

// NewAuthorizationError signals a valid session lacking a required permission.
// Never retried, never silently escalated.
func NewAuthorizationError(message string) *Error {
	return &Error{
		Kind:    KindAuthorization,
		Code:    CodeForbidden,
		Status:  http.StatusForbidden,
		Message: message,
	}
}

// NewValidationError signals malformed input, optionally naming the offending field.
func NewValidationError(message, field string) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeValidation,
		Status:  http.StatusBadRequest,
		Message: message,
		Field:   field,
	}
}

// NewNotFoundError signals an absent resource; a normal, non-fatal result.
func NewNotFoundError(resource, id string) *Error {
	message := fmt.Sprintf("%s not found", resource)
	if id != "" {
		message = fmt.Sprintf("%s with id %s not found", resource, id)
	}
	return &Error{
		Kind:     KindNotFound,
		Code:     CodeNotFound,
		Status:   http.StatusNotFound,
		Message:  message,
		Resource: resource,
		ID:       id,
	}
}

// NewConflictError signals an operation that would violate a uniqueness or state
// invariant. The caller must resolve the conflict before retrying.
func NewConflictError(message string) *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    CodeConflict,
		Status:  http.StatusConflict,
		Message: message,
	}
}

// NewServiceError signals a backing dependency failure, naming the dependency.
// This is the fail-closed path for authentication when the session store is
// unreachable; it must never be surfaced as an authorization denial.
func NewServiceError(service, message string) *Error {
	return &Error{
		Kind:    KindService,
		Code:    CodeServiceError,
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf("%s service error: %s", service, message),
		Service: service,
	}
}

// AsError extracts the typed gateway error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err carries the supplied kind.
func IsKind(err error, kind ErrorKind) bool {
	if e, ok := AsError(err); ok {
		return e.Kind == kind
	}
	return false
}
