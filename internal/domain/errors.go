package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks rejected input; match with errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrTicketNotFound is returned when an id is absent from the collection.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrUserNotFound is returned when a user lookup misses.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when registering an existing email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAdapterFailure marks a persistence failure; match with errors.Is.
	ErrAdapterFailure = errors.New("persistence adapter failure")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// AdapterError wraps the underlying storage error with the failing operation.
type AdapterError struct {
	Op  string
	Err error
}

// NewAdapterError wraps err unless it is nil or already a domain condition.
func NewAdapterError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTicketNotFound) || errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrValidation) || errors.Is(err, ErrEmailTaken) {
		return err
	}
	return &AdapterError{Op: op, Err: err}
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

func (e *AdapterError) Is(target error) bool {
	return target == ErrAdapterFailure
}
