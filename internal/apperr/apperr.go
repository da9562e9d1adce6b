// Package apperr defines the error kinds every API operation can fail with.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. The values match the ErrorTypes enum of the GraphQL schema.
type Kind string

const (
	BadInput           Kind = "badInput"
	UserNotFound       Kind = "userNotFound"
	EmailInUse         Kind = "emailInUse"
	InvalidToken       Kind = "invalidToken"
	NoUsersFound       Kind = "noUsersFound"
	InvalidCredentials Kind = "invalidCredentials"
	MatchingPasswords  Kind = "matchingPasswords"
	ClientNotFound     Kind = "clientNotFound"
	NoClientsFound     Kind = "noClientsFound"
	Unauthorized       Kind = "unauthorized"
	FetchFailed        Kind = "fetchFailed"
	Fetched            Kind = "fetched" // legacy enum value, never returned
	StoreFailed        Kind = "storeFailed"
)

// FieldError describes a problem with a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the typed failure returned by services.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns an Error of the given kind that keeps cause for logging and errors.Is.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Invalid returns a BadInput error carrying per-field problems.
func Invalid(message string, fields ...FieldError) *Error {
	return &Error{Kind: BadInput, Message: message, Fields: fields}
}

// WithField appends a field error and returns e.
func (e *Error) WithField(field, message string) *Error {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
	return e
}

// KindOf extracts the Kind of err, reporting false when err is not an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
